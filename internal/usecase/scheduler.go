package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/ports"
)

// Scheduler wires the cron driver with the runner.
type Scheduler struct {
	driver ports.Scheduler
	runner *Runner
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, runner *Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, runner: runner, logger: logger.With("component", "scheduler")}
}

// Start registers a full, non-dry run with the driver. A trigger that fires
// while a run is active is dropped.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		err := s.runner.Start(ctx, domain.RunRequest{Steps: domain.FullRange()})
		switch {
		case errors.Is(err, ErrRunInProgress):
			s.logger.Warn("scheduled run skipped, another run is active", "trigger", trigger)
		case err != nil:
			s.logger.Error("scheduled run not started", "trigger", trigger, "error", err)
		default:
			s.logger.Info("scheduled run started", "trigger", trigger)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
