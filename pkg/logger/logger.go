package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"erp-shipping/config"

	"github.com/sirupsen/logrus"
)

// timestampFormat is shared by the text and json formatters
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Setup initializes the logger with the given configuration
func Setup(cfg *config.LogConfig) *logrus.Logger {
	log := logrus.New()

	// Set log level, falling back to info
	if !ApplyLevel(log, cfg.Level) {
		log.SetLevel(logrus.InfoLevel)
	}

	// Set log format
	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	default:
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	}

	// Set log output; the file is appended to alongside stdout
	log.SetOutput(os.Stdout)
	if cfg.EnableFile && cfg.File != "" {
		file, err := openLogFile(cfg.File)
		if err != nil {
			log.WithError(err).WithField("file", cfg.File).Warn("Failed to log to file, using stdout only")
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, file))
		}
	}

	return log
}

// ApplyLevel sets the level of log when level parses and reports whether it
// did. A configuration reload uses it to change verbosity without a restart.
func ApplyLevel(log *logrus.Logger, level string) bool {
	parsed, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return false
	}
	if log.GetLevel() != parsed {
		log.SetLevel(parsed)
	}
	return true
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// Discard returns a logger that drops everything, used by tests and tools
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
