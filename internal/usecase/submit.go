package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/infrastructure/metrics"
	"ArticleShelf/internal/ports"
)

// ErrEmptyLink rejects submissions without a link.
var ErrEmptyLink = errors.New("link is required")

// Submitter is the producer side of the ingestion queue.
type Submitter struct {
	queue  ports.JobQueue
	logger *slog.Logger
}

// NewSubmitter wires the queue producers write to.
func NewSubmitter(queue ports.JobQueue, logger *slog.Logger) *Submitter {
	return &Submitter{queue: queue, logger: logger}
}

// Submit enqueues link for userID and returns without waiting for ingestion.
// Link validity is judged by the worker; only an empty link is refused here.
func (s *Submitter) Submit(ctx context.Context, userID int64, link string) (domain.Receipt, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return domain.Receipt{}, ErrEmptyLink
	}

	receipt, err := s.queue.Enqueue(ctx, domain.IngestionJob{ArticleLink: link, UserID: userID})
	switch {
	case err == nil:
		metrics.RecordEnqueue("accepted")
	case errors.Is(err, domain.ErrQueueFull):
		metrics.RecordEnqueue("full")
		return domain.Receipt{}, err
	case errors.Is(err, domain.ErrQueueClosed):
		metrics.RecordEnqueue("closed")
		return domain.Receipt{}, err
	default:
		metrics.RecordEnqueue("error")
		return domain.Receipt{}, fmt.Errorf("enqueue: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("link submitted", "job_id", receipt.JobID, "link", link, "user_id", userID)
	}
	return receipt, nil
}
