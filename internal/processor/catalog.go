package processor

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"erp-shipping/config"

	"github.com/sirupsen/logrus"
)

// maxErrorRate is the share of failing rows above which a file is moved to
// the failed directory.
const maxErrorRate = 0.05

// CatalogStore receives the imported parcel service catalog
type CatalogStore interface {
	UpsertParcelService(ctx context.Context, name, urlReference string) error
	UpsertParcelServiceType(ctx context.Context, name, parcelService string, preferred bool) error
	AddParcelServiceTypeAlias(ctx context.Context, parent, parcelService, alias string) error
}

// ImportResult summarizes one imported catalog file
type ImportResult struct {
	Rows   int
	Errors int
}

// OK reports whether the file is considered imported
func (r *ImportResult) OK() bool {
	if r.Errors == 0 {
		return true
	}
	return float64(r.Errors)/float64(r.Rows) < maxErrorRate
}

// CatalogImporter imports Parcel Service, Parcel Service Type, alias and
// tracking URL rows from CSV files dropped into the catalog directory.
type CatalogImporter struct {
	config       *config.CatalogWatchConfig
	store        CatalogStore
	logger       *logrus.Logger
	workChan     chan string
	wg           sync.WaitGroup
	pendingFiles map[string]bool
	mutex        sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewCatalogImporter creates a new catalog importer
func NewCatalogImporter(cfg *config.CatalogWatchConfig, store CatalogStore, logger *logrus.Logger) *CatalogImporter {
	return &CatalogImporter{
		config:       cfg,
		store:        store,
		logger:       logger,
		workChan:     make(chan string, 100),
		pendingFiles: make(map[string]bool),
	}
}

// Start begins processing queued files. Files are applied one at a time in
// arrival order.
func (p *CatalogImporter) Start(ctx context.Context) {
	p.logger.Info("Starting catalog importer")

	if err := os.MkdirAll(p.config.ProcessedDir, 0755); err != nil {
		p.logger.WithError(err).Error("Failed to create processed directory")
	}
	if err := os.MkdirAll(p.config.FailedDir, 0755); err != nil {
		p.logger.WithError(err).Error("Failed to create failed directory")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.worker()
}

// Stop drains the queue and stops the importer
func (p *CatalogImporter) Stop() {
	p.logger.Info("Stopping catalog importer")
	close(p.workChan)
	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
}

// ProcessFile queues a file for import. A file already waiting is not queued twice.
func (p *CatalogImporter) ProcessFile(filePath string) {
	p.mutex.Lock()
	if p.pendingFiles[filePath] {
		p.mutex.Unlock()
		p.logger.WithField("file", filePath).Debug("File already queued, skipping")
		return
	}
	p.pendingFiles[filePath] = true
	p.mutex.Unlock()

	// The send may block on a full queue; the worker takes the mutex
	// after every file, so it must not be held here.
	p.workChan <- filePath
}

func (p *CatalogImporter) worker() {
	defer p.wg.Done()

	for filePath := range p.workChan {
		log := p.logger.WithField("file", filePath)

		destinationDir := p.config.ProcessedDir
		result, err := p.ImportFile(p.ctx, filePath)
		if err != nil {
			log.WithError(err).Error("Failed to import catalog file")
			destinationDir = p.config.FailedDir
		} else if !result.OK() {
			destinationDir = p.config.FailedDir
		}

		destinationPath := filepath.Join(destinationDir, filepath.Base(filePath))
		if err := os.Rename(filePath, destinationPath); err != nil {
			log.WithError(err).Error("Failed to move file")
		} else {
			log.WithField("destination", destinationPath).Info("Moved file")
		}

		p.mutex.Lock()
		delete(p.pendingFiles, filePath)
		p.mutex.Unlock()
	}
}

// ImportFile reads one catalog CSV and applies every row to the store
func (p *CatalogImporter) ImportFile(ctx context.Context, filePath string) (*ImportResult, error) {
	log := p.logger.WithField("file", filePath)
	startTime := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	indices := getColumnIndices(header)
	if indices.parcelService == -1 {
		return nil, errors.New("CSV file does not have a parcel_service column")
	}

	result := &ImportResult{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.Rows++
		if err != nil {
			log.WithError(err).Warn("Failed to read CSV row")
			result.Errors++
			continue
		}

		if err := p.importRow(ctx, row, indices); err != nil {
			log.WithField("line", line).WithError(err).Warn("Failed to import row")
			result.Errors++
		}
	}

	successRate := 100.0
	if result.Rows > 0 {
		successRate = 100 * float64(result.Rows-result.Errors) / float64(result.Rows)
	}
	log.WithFields(logrus.Fields{
		"elapsed":      time.Since(startTime),
		"row_count":    result.Rows,
		"error_count":  result.Errors,
		"success_rate": fmt.Sprintf("%.2f%%", successRate),
	}).Info("Completed importing catalog file")

	return result, nil
}

// columnIndices holds the position of each known column, -1 when absent
type columnIndices struct {
	parcelService     int
	urlReference      int
	parcelServiceType int
	alias             int
	showInPreferred   int
}

func getColumnIndices(header []string) columnIndices {
	indices := columnIndices{
		parcelService:     -1,
		urlReference:      -1,
		parcelServiceType: -1,
		alias:             -1,
		showInPreferred:   -1,
	}

	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "parcel_service":
			indices.parcelService = i
		case "url_reference":
			indices.urlReference = i
		case "parcel_service_type":
			indices.parcelServiceType = i
		case "alias":
			indices.alias = i
		case "show_in_preferred":
			indices.showInPreferred = i
		}
	}

	return indices
}

func column(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// importRow applies one catalog row. Empty cells leave the matching record untouched.
func (p *CatalogImporter) importRow(ctx context.Context, row []string, indices columnIndices) error {
	parcelService := column(row, indices.parcelService)
	if parcelService == "" {
		return errors.New("parcel_service is empty")
	}
	urlReference := column(row, indices.urlReference)
	serviceType := column(row, indices.parcelServiceType)
	alias := column(row, indices.alias)

	preferred := false
	if v := column(row, indices.showInPreferred); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid show_in_preferred %q", v)
		}
		preferred = b
	}
	if alias != "" && serviceType == "" {
		return fmt.Errorf("alias %q has no parcel_service_type", alias)
	}

	if urlReference != "" {
		if err := p.store.UpsertParcelService(ctx, parcelService, urlReference); err != nil {
			return fmt.Errorf("failed to save parcel service: %w", err)
		}
	}
	if serviceType != "" {
		if err := p.store.UpsertParcelServiceType(ctx, serviceType, parcelService, preferred); err != nil {
			return fmt.Errorf("failed to save parcel service type: %w", err)
		}
	}
	if alias != "" {
		if err := p.store.AddParcelServiceTypeAlias(ctx, serviceType, parcelService, alias); err != nil {
			return fmt.Errorf("failed to save alias: %w", err)
		}
	}

	p.logger.WithFields(logrus.Fields{
		"parcel_service":      parcelService,
		"parcel_service_type": serviceType,
		"alias":               alias,
	}).Debug("Imported catalog row")
	return nil
}
