package usecase

import (
	"context"
	"log/slog"
	"time"

	"ArticleShelf/internal/ports"
)

// StaleRequeuer hands back jobs whose claim outlived the visibility timeout.
type StaleRequeuer interface {
	RequeueStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// Janitor wires the cron driver with stale-claim recovery.
type Janitor struct {
	driver     ports.Scheduler
	requeuer   StaleRequeuer
	visibility time.Duration
	logger     *slog.Logger
}

// NewJanitor returns a helper to start/stop recurring recovery sweeps.
func NewJanitor(driver ports.Scheduler, requeuer StaleRequeuer, visibility time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{driver: driver, requeuer: requeuer, visibility: visibility, logger: logger}
}

// Sweep runs one recovery pass.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	n, err := j.requeuer.RequeueStale(ctx, j.visibility)
	if err != nil && j.logger != nil {
		j.logger.Warn("janitor sweep failed", "error", err)
	}
	return n, err
}

// Start registers the sweep with the provided scheduler.
func (j *Janitor) Start(ctx context.Context) error {
	if j.driver == nil || j.requeuer == nil {
		return nil
	}

	job := func(time.Time) {
		_, _ = j.Sweep(ctx)
	}

	return j.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (j *Janitor) Stop(ctx context.Context) error {
	if j.driver == nil {
		return nil
	}

	return j.driver.Stop(ctx)
}
