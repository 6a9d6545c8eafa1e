package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/infrastructure/metrics"
	"ArticleShelf/internal/ports"
)

// IngestorDeps wires the driven adapters into the ingestion workflow.
type IngestorDeps struct {
	Repository ports.ArticleRepository
	Extractor  ports.Extractor
	Classifier ports.Classifier
	Retry      RetryPolicy
	Logger     *slog.Logger
}

// Ingestor turns one queued link into at most one stored article.
type Ingestor struct {
	repository ports.ArticleRepository
	extractor  ports.Extractor
	classifier ports.Classifier
	retry      RetryPolicy
	logger     *slog.Logger
	now        func() time.Time
}

// NewIngestor constructs the ingestion workflow.
func NewIngestor(deps IngestorDeps) (*Ingestor, error) {
	if deps.Repository == nil {
		return nil, errors.New("ingestor needs a repository")
	}
	if deps.Extractor == nil {
		return nil, errors.New("ingestor needs an extractor")
	}

	return &Ingestor{
		repository: deps.Repository,
		extractor:  deps.Extractor,
		classifier: deps.Classifier,
		retry:      deps.Retry.normalized(),
		logger:     deps.Logger,
		now:        time.Now,
	}, nil
}

// Process validates, extracts, classifies and stores the job's link.
// Every failure is terminal here; the returned error only explains the outcome.
func (i *Ingestor) Process(ctx context.Context, job domain.IngestionJob) (domain.IngestionOutcome, error) {
	started := i.now()
	outcome, attempts, err := i.process(ctx, job)
	metrics.RecordJob(string(outcome), i.now().Sub(started).Seconds())

	switch outcome {
	case domain.OutcomeStored:
		i.info("article stored", "job_id", job.ID, "link", job.ArticleLink, "user_id", job.UserID)
	case domain.OutcomeDuplicate:
		i.debug("article already stored", "job_id", job.ID, "link", job.ArticleLink, "user_id", job.UserID)
	case domain.OutcomeInvalid:
		i.warn("job dropped", "job_id", job.ID, "link", job.ArticleLink, "user_id", job.UserID, "error", err)
	default:
		i.logError("job failed", "job_id", job.ID, "link", job.ArticleLink, "user_id", job.UserID, "attempts", attempts, "error", err)
	}
	return outcome, err
}

func (i *Ingestor) process(ctx context.Context, job domain.IngestionJob) (domain.IngestionOutcome, int, error) {
	u, err := domain.ParseLink(job.ArticleLink)
	if err != nil {
		return domain.OutcomeInvalid, 0, err
	}
	link := u.String()

	if job.Attempt >= i.retry.MaxAttempts {
		return domain.OutcomeFailed, job.Attempt, fmt.Errorf("%w: %d deliveries abandoned", domain.ErrRedeliveryLimit, job.Attempt)
	}

	existing, err := i.repository.FindArticle(ctx, job.UserID, link)
	if err != nil {
		i.warn("existence check failed", "link", link, "error", err)
	} else if existing != nil {
		return domain.OutcomeDuplicate, 0, nil
	}

	extracted, attempts, err := i.extract(ctx, link)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidLink) {
			return domain.OutcomeInvalid, attempts, err
		}
		return domain.OutcomeFailed, attempts, err
	}

	label := i.classify(ctx, extracted)

	_, err = i.repository.InsertArticle(ctx, domain.Article{
		UserID:         job.UserID,
		Title:          extracted.Title,
		Body:           extracted.Body,
		Link:           link,
		PublishDate:    extracted.PublishDate,
		Classification: label,
		CreatedAt:      i.now().UTC(),
	})
	switch {
	case errors.Is(err, domain.ErrDuplicateArticle):
		return domain.OutcomeDuplicate, attempts, nil
	case err != nil:
		return domain.OutcomeFailed, attempts, fmt.Errorf("persist article: %w", err)
	}
	return domain.OutcomeStored, attempts, nil
}

// extract applies the retry policy around the extractor and reports attempts made.
func (i *Ingestor) extract(ctx context.Context, link string) (domain.ExtractedArticle, int, error) {
	parseFailures := 0
	for attempt := 1; ; attempt++ {
		article, err := i.extractor.Extract(ctx, link)
		if err == nil {
			metrics.RecordFetch("ok")
			return article, attempt, nil
		}

		var (
			fetchErr *domain.FetchError
			parseErr *domain.ParseError
		)
		switch {
		case ctx.Err() != nil:
			metrics.RecordFetch("canceled")
			return domain.ExtractedArticle{}, attempt, ctx.Err()
		case errors.As(err, &parseErr):
			metrics.RecordFetch("parse_error")
			parseFailures++
			if parseFailures > i.retry.ParseRetries {
				return domain.ExtractedArticle{}, attempt, err
			}
		case errors.As(err, &fetchErr):
			metrics.RecordFetch("transient")
		default:
			metrics.RecordFetch("fatal")
			return domain.ExtractedArticle{}, attempt, err
		}

		if attempt >= i.retry.MaxAttempts {
			return domain.ExtractedArticle{}, attempt, fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		delay := i.retry.Backoff(attempt)
		i.debug("extraction failed, retrying", "link", link, "attempt", attempt, "delay", delay, "error", err)
		if err := sleep(ctx, delay); err != nil {
			return domain.ExtractedArticle{}, attempt, err
		}
	}
}

func (i *Ingestor) classify(ctx context.Context, article domain.ExtractedArticle) string {
	if i.classifier == nil {
		return domain.UncategorizedLabel
	}

	text := strings.TrimSpace(article.Title + "\n" + article.Body)
	label, err := i.classifier.Classify(ctx, text)
	if err != nil {
		i.warn("classification failed", "error", err)
		return domain.UncategorizedLabel
	}
	if label = strings.TrimSpace(label); label == "" {
		return domain.UncategorizedLabel
	}
	return label
}

func (i *Ingestor) debug(msg string, args ...interface{}) {
	if i.logger != nil {
		i.logger.Debug(msg, args...)
	}
}

func (i *Ingestor) info(msg string, args ...interface{}) {
	if i.logger != nil {
		i.logger.Info(msg, args...)
	}
}

func (i *Ingestor) warn(msg string, args ...interface{}) {
	if i.logger != nil {
		i.logger.Warn(msg, args...)
	}
}

func (i *Ingestor) logError(msg string, args ...interface{}) {
	if i.logger != nil {
		i.logger.Error(msg, args...)
	}
}
