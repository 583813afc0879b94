package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Syncer is anything that can push the current report.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Scheduler runs a report sync on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	syncer   Syncer
	schedule string
	timeout  time.Duration
}

// NewScheduler parses a standard five-field cron expression.
func NewScheduler(schedule string, syncer Syncer) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse report schedule %q: %w", schedule, err)
	}
	return &Scheduler{
		cron:     cron.New(),
		syncer:   syncer,
		schedule: schedule,
		timeout:  2 * time.Minute,
	}, nil
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("schedule report sync: %w", err)
	}
	s.cron.Start()
	slog.Info("Report scheduler started", "schedule", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		slog.Warn("Report scheduler stop timed out")
	}
}

// RunOnce performs one scheduled sync.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	slog.InfoContext(ctx, "Running scheduled report sync")
	if err := s.syncer.Sync(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled report sync failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "Scheduled report sync completed")
}
