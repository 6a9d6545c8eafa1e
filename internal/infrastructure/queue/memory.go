// Package queue provides the ingestion job queues: an in-process FIFO and a redis-backed list queue.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/ports"
)

// DefaultCapacity bounds a queue constructed with a non-positive capacity.
const DefaultCapacity = 1000

// MemoryQueue is a bounded, mutex-protected FIFO. Jobs live only as long as the process.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  []domain.IngestionJob
	inFlight map[string]domain.IngestionJob
	capacity int
	closed   bool

	notify chan struct{}
	done   chan struct{}
	now    func() time.Time
}

var _ ports.JobQueue = (*MemoryQueue)(nil)

// NewMemoryQueue builds an empty queue holding at most capacity pending jobs.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryQueue{
		inFlight: make(map[string]domain.IngestionJob),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// Enqueue appends job and returns immediately. A full queue rejects with domain.ErrQueueFull.
func (q *MemoryQueue) Enqueue(ctx context.Context, job domain.IngestionJob) (domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.Receipt{}, domain.ErrQueueClosed
	}
	if len(q.pending) >= q.capacity {
		q.mu.Unlock()
		return domain.Receipt{}, domain.ErrQueueFull
	}

	job = stamp(job, q.now())
	q.pending = append(q.pending, job)
	q.mu.Unlock()

	q.signal()
	return domain.Receipt{JobID: job.ID, AcceptedAt: job.EnqueuedAt}, nil
}

// Dequeue blocks until a job is available, ctx ends or the queue closes.
func (q *MemoryQueue) Dequeue(ctx context.Context) (ports.Delivery, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, domain.ErrQueueClosed
		}
		if len(q.pending) > 0 {
			job := q.pending[0]
			q.pending[0] = domain.IngestionJob{}
			q.pending = q.pending[1:]
			q.inFlight[job.ID] = job
			more := len(q.pending) > 0
			q.mu.Unlock()

			if more {
				q.signal()
			}
			return &memoryDelivery{queue: q, job: job}, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.done:
			return nil, domain.ErrQueueClosed
		case <-q.notify:
		}
	}
}

// Close wakes every blocked consumer. Pending jobs are discarded.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

// Pending returns a snapshot of queued jobs in delivery order.
func (q *MemoryQueue) Pending() []domain.IngestionJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.IngestionJob, len(q.pending))
	copy(out, q.pending)
	return out
}

// InFlight returns a snapshot of delivered but unacknowledged jobs.
func (q *MemoryQueue) InFlight() []domain.IngestionJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.IngestionJob, 0, len(q.inFlight))
	for _, job := range q.inFlight {
		out = append(out, job)
	}
	return out
}

func (q *MemoryQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *MemoryQueue) ack(id string) {
	q.mu.Lock()
	delete(q.inFlight, id)
	q.mu.Unlock()
}

type memoryDelivery struct {
	queue *MemoryQueue
	job   domain.IngestionJob
	once  sync.Once
}

func (d *memoryDelivery) Job() domain.IngestionJob { return d.job }

func (d *memoryDelivery) Ack(context.Context) error {
	d.once.Do(func() { d.queue.ack(d.job.ID) })
	return nil
}

// stamp fills the identity fields a producer may leave empty.
func stamp(job domain.IngestionJob, now time.Time) domain.IngestionJob {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = now.UTC()
	}
	return job
}
