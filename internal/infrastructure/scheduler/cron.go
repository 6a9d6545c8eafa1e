package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ArticleShelf/internal/ports"
)

// CronScheduler runs one job on a standard cron expression or an @every descriptor.
type CronScheduler struct {
	spec     string
	location *time.Location

	mu      sync.Mutex
	cron    *cron.Cron
	halt    chan struct{}
	started bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler validates spec up front. A nil location means UTC.
func NewCronScheduler(spec string, location *time.Location) (*CronScheduler, error) {
	if location == nil {
		location = time.UTC
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return &CronScheduler{spec: spec, location: location}, nil
}

// Start registers job and begins ticking. Overlapping runs are skipped. Stop or ctx end halts it.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return errors.New("scheduler needs a job")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}

	cr := cron.New(
		cron.WithLocation(c.location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now().In(c.location)) }); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}

	cr.Start()
	c.cron = cr
	c.halt = make(chan struct{})
	c.started = true

	go func(halt <-chan struct{}) {
		select {
		case <-ctx.Done():
			_ = c.Stop(context.Background())
		case <-halt:
		}
	}(c.halt)

	return nil
}

// Stop halts the schedule and waits for a running job until ctx ends.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	cr := c.cron
	close(c.halt)
	c.cron = nil
	c.started = false
	c.mu.Unlock()

	select {
	case <-cr.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
