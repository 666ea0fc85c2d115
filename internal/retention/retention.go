// Package retention periodically sweeps unpublished caller recordings past
// their keep window. Published recordings are never swept.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/partyline/partyline/internal/database"
)

const defaultSchedule = "@hourly"

// Sweeper deletes stale unpublished recordings on a cron schedule.
type Sweeper struct {
	store    database.RecordingRepository
	keepFor  time.Duration
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewSweeper builds a sweeper that keeps unpublished recordings for
// retentionDays. An empty schedule means hourly.
func NewSweeper(store database.RecordingRepository, retentionDays int, schedule string, logger *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = defaultSchedule
	}
	return &Sweeper{
		store:    store,
		keepFor:  time.Duration(retentionDays) * 24 * time.Hour,
		schedule: schedule,
		logger:   logger.With("subsystem", "retention"),
	}
}

// Start registers the sweep job and launches the cron runner.
func (s *Sweeper) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduling retention sweep: %w", err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("retention sweeper started",
		"schedule", s.schedule, "keep_for", s.keepFor.String())
	return nil
}

// Stop halts the cron runner and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Sweep deletes unpublished recordings older than the keep window.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.keepFor)
	deleted, err := s.store.DeleteUnpublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("sweeping recordings before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if deleted > 0 {
		s.logger.Info("swept stale recordings", "deleted", deleted)
	}
	return nil
}
