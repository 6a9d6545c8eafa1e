package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/ports"
)

// RedisOptions configures the durable list queue.
type RedisOptions struct {
	KeyPrefix    string
	Capacity     int
	PollInterval time.Duration
}

// RedisQueue keeps jobs in a pending list and claimed jobs in a processing list.
// A claim timestamp per job lets RequeueStale hand crashed work back out.
type RedisQueue struct {
	client *redis.Client
	owned  bool
	logger *slog.Logger

	pendingKey    string
	processingKey string
	claimsKey     string
	capacity      int64
	poll          time.Duration

	closeOnce sync.Once
	done      chan struct{}
	now       func() time.Time
}

var _ ports.JobQueue = (*RedisQueue)(nil)

// NewRedisQueue uses an existing client. The caller keeps ownership of it.
func NewRedisQueue(client *redis.Client, opts RedisOptions, logger *slog.Logger) *RedisQueue {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "articleshelf:ingest"
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	return &RedisQueue{
		client:        client,
		logger:        logger,
		pendingKey:    opts.KeyPrefix + ":pending",
		processingKey: opts.KeyPrefix + ":processing",
		claimsKey:     opts.KeyPrefix + ":claims",
		capacity:      int64(opts.Capacity),
		poll:          opts.PollInterval,
		done:          make(chan struct{}),
		now:           time.Now,
	}
}

// NewRedisQueueWithURL dials redisURL and closes the client together with the queue.
func NewRedisQueueWithURL(ctx context.Context, redisURL string, opts RedisOptions, logger *slog.Logger) (*RedisQueue, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	q := NewRedisQueue(client, opts, logger)
	q.owned = true
	return q, nil
}

// Enqueue pushes job onto the pending list. Over capacity the push is undone and ErrQueueFull returned.
func (q *RedisQueue) Enqueue(ctx context.Context, job domain.IngestionJob) (domain.Receipt, error) {
	if q.isClosed() {
		return domain.Receipt{}, domain.ErrQueueClosed
	}

	job = stamp(job, q.now())
	payload, err := json.Marshal(job)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("encode job: %w", err)
	}

	length, err := q.client.LPush(ctx, q.pendingKey, payload).Result()
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("push job: %w", err)
	}
	if length > q.capacity {
		if err := q.client.LRem(ctx, q.pendingKey, 1, payload).Err(); err != nil {
			return domain.Receipt{}, fmt.Errorf("undo push: %w", err)
		}
		return domain.Receipt{}, domain.ErrQueueFull
	}

	return domain.Receipt{JobID: job.ID, AcceptedAt: job.EnqueuedAt}, nil
}

// Dequeue atomically moves the oldest pending job to the processing list and records its claim.
func (q *RedisQueue) Dequeue(ctx context.Context) (ports.Delivery, error) {
	for {
		if q.isClosed() {
			return nil, domain.ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := q.client.BLMove(ctx, q.pendingKey, q.processingKey, "RIGHT", "LEFT", q.poll).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if q.isClosed() {
				return nil, domain.ErrQueueClosed
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("claim job: %w", err)
		}

		var job domain.IngestionJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			q.warn("dropping undecodable job", "payload", raw, "error", err)
			_ = q.client.LRem(ctx, q.processingKey, 1, raw).Err()
			continue
		}

		claimedAt := strconv.FormatInt(q.now().UnixMilli(), 10)
		if err := q.client.HSet(ctx, q.claimsKey, job.ID, claimedAt).Err(); err != nil {
			q.warn("record claim failed", "job_id", job.ID, "error", err)
		}

		return &redisDelivery{queue: q, job: job, raw: raw}, nil
	}
}

// RequeueStale returns processing jobs claimed before now-olderThan to the head of the pending list
// with Attempt incremented. Jobs without a claim record get one so the next sweep can judge them.
func (q *RedisQueue) RequeueStale(ctx context.Context, olderThan time.Duration) (int, error) {
	raws, err := q.client.LRange(ctx, q.processingKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("list processing: %w", err)
	}
	if len(raws) == 0 {
		return 0, nil
	}

	claims, err := q.client.HGetAll(ctx, q.claimsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("read claims: %w", err)
	}

	now := q.now()
	cutoff := now.Add(-olderThan).UnixMilli()
	requeued := 0
	for _, raw := range raws {
		var job domain.IngestionJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			_ = q.client.LRem(ctx, q.processingKey, 1, raw).Err()
			continue
		}

		claimed, ok := claims[job.ID]
		if !ok {
			_ = q.client.HSetNX(ctx, q.claimsKey, job.ID, strconv.FormatInt(now.UnixMilli(), 10)).Err()
			continue
		}
		claimedAt, err := strconv.ParseInt(claimed, 10, 64)
		if err == nil && claimedAt > cutoff {
			continue
		}

		job.Attempt++
		payload, err := json.Marshal(job)
		if err != nil {
			return requeued, fmt.Errorf("encode job %s: %w", job.ID, err)
		}

		_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, q.processingKey, 1, raw)
			pipe.RPush(ctx, q.pendingKey, payload)
			pipe.HDel(ctx, q.claimsKey, job.ID)
			return nil
		})
		if err != nil {
			return requeued, fmt.Errorf("requeue job %s: %w", job.ID, err)
		}
		requeued++
	}

	if requeued > 0 {
		q.info("requeued stale jobs", "count", requeued)
	}
	return requeued, nil
}

// Len reports pending and processing list lengths.
func (q *RedisQueue) Len(ctx context.Context) (pending, processing int64, err error) {
	pipe := q.client.Pipeline()
	p := pipe.LLen(ctx, q.pendingKey)
	c := pipe.LLen(ctx, q.processingKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return p.Val(), c.Val(), nil
}

// Close stops consumers and releases the client when the queue dialed it.
func (q *RedisQueue) Close() error {
	var err error
	q.closeOnce.Do(func() {
		close(q.done)
		if q.owned {
			err = q.client.Close()
		}
	})
	return err
}

func (q *RedisQueue) isClosed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

func (q *RedisQueue) info(msg string, args ...interface{}) {
	if q.logger != nil {
		q.logger.Info(msg, args...)
	}
}

func (q *RedisQueue) warn(msg string, args ...interface{}) {
	if q.logger != nil {
		q.logger.Warn(msg, args...)
	}
}

type redisDelivery struct {
	queue *RedisQueue
	job   domain.IngestionJob
	raw   string
}

func (d *redisDelivery) Job() domain.IngestionJob { return d.job }

func (d *redisDelivery) Ack(ctx context.Context) error {
	_, err := d.queue.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, d.queue.processingKey, 1, d.raw)
		pipe.HDel(ctx, d.queue.claimsKey, d.job.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ack job %s: %w", d.job.ID, err)
	}
	return nil
}
