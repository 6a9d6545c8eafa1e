package usecase

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/infrastructure/metrics"
	"ArticleShelf/internal/ports"
)

const dequeueErrorPause = time.Second

// JobProcessor handles one delivered job to a terminal outcome.
type JobProcessor interface {
	Process(ctx context.Context, job domain.IngestionJob) (domain.IngestionOutcome, error)
}

// WorkerPool runs independent pull loops against a shared queue.
type WorkerPool struct {
	queue     ports.JobQueue
	processor JobProcessor
	workers   int
	logger    *slog.Logger
}

// NewWorkerPool builds a pool of size workers (at least one).
func NewWorkerPool(queue ports.JobQueue, processor JobProcessor, workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{queue: queue, processor: processor, workers: workers, logger: logger}
}

// Run blocks until ctx ends or the queue closes. In-flight jobs interrupted by ctx are not acknowledged.
func (p *WorkerPool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for n := 0; n < p.workers; n++ {
		worker := n
		g.Go(func() error {
			return p.loop(gctx, worker)
		})
	}
	return g.Wait()
}

func (p *WorkerPool) loop(ctx context.Context, worker int) error {
	p.debug("worker started", "worker", worker)
	defer p.debug("worker stopped", "worker", worker)

	for {
		delivery, err := p.queue.Dequeue(ctx)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrQueueClosed), ctx.Err() != nil:
			return nil
		default:
			p.warn("dequeue failed", "worker", worker, "error", err)
			if sleep(ctx, dequeueErrorPause) != nil {
				return nil
			}
			continue
		}

		job := delivery.Job()
		outcome := p.process(ctx, worker, job)
		if ctx.Err() != nil {
			return nil
		}

		if err := delivery.Ack(ctx); err != nil {
			p.warn("ack failed", "worker", worker, "job_id", job.ID, "error", err)
			continue
		}
		p.debug("job acknowledged", "worker", worker, "job_id", job.ID, "outcome", outcome)
	}
}

// process runs one job. A panic fails the job instead of the process, so the delivery is still acknowledged.
func (p *WorkerPool) process(ctx context.Context, worker int, job domain.IngestionJob) (outcome domain.IngestionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.OutcomeFailed
			metrics.RecordJob(string(outcome), 0)
			if p.logger != nil {
				p.logger.Error("job panicked",
					"worker", worker,
					"job_id", job.ID,
					"link", job.ArticleLink,
					"user_id", job.UserID,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}
	}()

	outcome, _ = p.processor.Process(ctx, job)
	return outcome
}

func (p *WorkerPool) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *WorkerPool) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
