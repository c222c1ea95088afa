package file

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"erp-shipping/config"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Importer receives catalog files that are ready to be read
type Importer interface {
	ProcessFile(filePath string)
}

// Watcher hands new parcel service catalog files to an Importer
type Watcher struct {
	config      *config.CatalogWatchConfig
	logger      *logrus.Logger
	importer    Importer
	watcher     *fsnotify.Watcher
	filePattern *regexp.Regexp
	stopChan    chan struct{}
	wg          sync.WaitGroup

	// settle is how long a file must keep its size and mtime before it is
	// considered fully written.
	settle time.Duration

	mu        sync.Mutex
	isRunning bool
}

// NewWatcher creates a new catalog directory watcher
func NewWatcher(cfg *config.CatalogWatchConfig, logger *logrus.Logger, importer Importer) (*Watcher, error) {
	pattern, err := regexp.Compile(cfg.FilePattern)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		config:      cfg,
		logger:      logger,
		importer:    importer,
		watcher:     watcher,
		filePattern: pattern,
		stopChan:    make(chan struct{}),
		settle:      time.Second,
	}, nil
}

// Start watches the catalog directory and queues the files already in it
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return nil
	}

	w.logger.WithField("directory", w.config.Directory).Info("Starting catalog watcher")

	if err := os.MkdirAll(w.config.Directory, 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(w.config.Directory); err != nil {
		return err
	}
	w.isRunning = true

	w.wg.Add(2)
	go w.watchLoop()
	go w.processExistingFiles()

	return nil
}

// Stop stops the watcher and waits for pending hand-offs
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	w.logger.Info("Stopping catalog watcher")
	close(w.stopChan)
	w.watcher.Close()
	w.wg.Wait()
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Error watching catalog directory")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !w.isTargetFile(event.Name) {
		return
	}

	w.logger.WithField("file", event.Name).Info("New catalog file detected")
	if !w.isFileReady(event.Name) {
		return
	}
	w.importer.ProcessFile(event.Name)
}

func (w *Watcher) processExistingFiles() {
	defer w.wg.Done()

	entries, err := os.ReadDir(w.config.Directory)
	if err != nil {
		w.logger.WithError(err).Error("Failed to list existing catalog files")
		return
	}

	for _, entry := range entries {
		path := filepath.Join(w.config.Directory, entry.Name())
		if w.isTargetFile(path) && w.isFileReady(path) {
			w.logger.WithField("file", path).Info("Queueing existing catalog file")
			w.importer.ProcessFile(path)
		}
	}
}

func (w *Watcher) isTargetFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return w.filePattern.MatchString(filepath.Base(path))
}

// isFileReady reports whether the file stopped changing during the settle
// period. It returns false early when the watcher is stopping.
func (w *Watcher) isFileReady(path string) bool {
	initial, err := os.Stat(path)
	if err != nil {
		return false
	}

	select {
	case <-w.stopChan:
		return false
	case <-time.After(w.settle):
	}

	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return initial.Size() == current.Size() && initial.ModTime().Equal(current.ModTime())
}
