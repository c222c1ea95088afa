package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"erp-shipping/config"
	"erp-shipping/internal/model"
	"erp-shipping/internal/shipping"

	"github.com/sirupsen/logrus"
)

// ShipmentSource selects the shipments the sweep refreshes
type ShipmentSource interface {
	ShipmentsToTrack(ctx context.Context) ([]string, error)
}

// Tracker refreshes the tracking state of one stored shipment
type Tracker interface {
	TrackShipment(ctx context.Context, shipment string) (*model.TrackingRecord, *shipping.Alert, error)
}

// SweepResult summarizes one sweep run
type SweepResult struct {
	Selected int           `json:"selected"`
	Updated  int           `json:"updated"`
	NoData   int           `json:"no_data"`
	Alerts   int           `json:"alerts"`
	Failed   int           `json:"failed"`
	Elapsed  time.Duration `json:"elapsed"`
}

// TrackingSweeper re-polls tracking for every booked, undelivered shipment
// once a day.
type TrackingSweeper struct {
	config  config.TrackingSweepConfig
	source  ShipmentSource
	tracker Tracker
	logger  *logrus.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	runMu       sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewTrackingSweeper creates a new tracking sweeper
func NewTrackingSweeper(cfg config.TrackingSweepConfig, source ShipmentSource, tracker Tracker, logger *logrus.Logger) *TrackingSweeper {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	return &TrackingSweeper{
		config:  cfg,
		source:  source,
		tracker: tracker,
		logger:  logger,
	}
}

// Run refreshes every selected shipment one after the other. A failing
// shipment is logged and the sweep moves on to the next one.
func (s *TrackingSweeper) Run(ctx context.Context) (*SweepResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	log := s.logger.WithField("function", "Run")
	start := time.Now()

	names, err := s.source.ShipmentsToTrack(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select shipments: %w", err)
	}

	result := &SweepResult{Selected: len(names)}
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}

		record, alert, err := s.tracker.TrackShipment(ctx, name)
		switch {
		case err != nil:
			result.Failed++
			log.WithField("shipment", name).WithError(err).Warn("Failed to update tracking")
		case alert != nil:
			result.Alerts++
			log.WithFields(logrus.Fields{
				"shipment":  name,
				"error_log": alert.ErrorLog,
			}).Warn("Carrier error while updating tracking")
		case record == nil:
			result.NoData++
		default:
			result.Updated++
		}
	}
	result.Elapsed = time.Since(start)

	log.WithFields(logrus.Fields{
		"selected": result.Selected,
		"updated":  result.Updated,
		"no_data":  result.NoData,
		"alerts":   result.Alerts,
		"failed":   result.Failed,
		"elapsed":  result.Elapsed,
	}).Info("Completed tracking sweep")
	return result, ctx.Err()
}

// Start schedules the daily sweep
func (s *TrackingSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.WithFields(logrus.Fields{
		"hour":           s.config.Hour,
		"minute":         s.config.Minute,
		"check_interval": s.config.CheckInterval,
	}).Info("Tracking sweeper started")
}

// Stop cancels the schedule and waits for a running sweep to finish
func (s *TrackingSweeper) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Tracking sweeper stopped")
}

func (s *TrackingSweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.checkAndRun(ctx, now)
		}
	}
}

// checkAndRun starts the sweep once now has reached the configured time of
// day and the sweep has not run yet on that date, so a tick that steps over
// the exact minute still triggers it. It reports whether it ran.
func (s *TrackingSweeper) checkAndRun(ctx context.Context, now time.Time) bool {
	date := now.Format("2006-01-02")
	scheduled := time.Date(now.Year(), now.Month(), now.Day(), s.config.Hour, s.config.Minute, 0, 0, now.Location())

	s.mu.Lock()
	if s.lastRunDate == date {
		s.mu.Unlock()
		return false
	}
	if now.Before(scheduled) {
		s.mu.Unlock()
		return false
	}
	s.lastRunDate = date
	s.mu.Unlock()

	s.logger.WithField("date", date).Info("Starting daily tracking sweep")
	if _, err := s.Run(ctx); err != nil {
		s.logger.WithError(err).Error("Tracking sweep failed")
	}
	return true
}
