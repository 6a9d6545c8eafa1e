package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ArticleShelf/internal/classifier"
	"ArticleShelf/internal/config"
	"ArticleShelf/internal/infrastructure/feed"
	"ArticleShelf/internal/infrastructure/httpfetch"
	"ArticleShelf/internal/infrastructure/ml"
	"ArticleShelf/internal/infrastructure/parser"
	"ArticleShelf/internal/infrastructure/queue"
	"ArticleShelf/internal/infrastructure/scheduler"
	"ArticleShelf/internal/infrastructure/storage"
	"ArticleShelf/internal/logging"
	"ArticleShelf/internal/ports"
	"ArticleShelf/internal/transport/httpapi"
	"ArticleShelf/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	repo    *storage.Repository
	queue   ports.JobQueue
	pool    *usecase.WorkerPool
	janitor *usecase.Janitor
	server  *httpapi.Server

	submitter *usecase.Submitter
}

// New builds every component the serve command runs.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	repo, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	q, err := NewQueue(ctx, cfg, baseLogger)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	fetcher := NewFetcher(cfg)
	extractor, err := parser.NewExtractor(fetcher, parser.DefaultRegistry(), cfg.Extractor.Strategies,
		baseLogger.With("component", "extractor"))
	if err != nil {
		_ = q.Close()
		_ = repo.Close()
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	labeler, err := NewClassifier(cfg, baseLogger)
	if err != nil {
		_ = q.Close()
		_ = repo.Close()
		return nil, err
	}

	ingestor, err := usecase.NewIngestor(usecase.IngestorDeps{
		Repository: repo,
		Extractor:  extractor,
		Classifier: labeler,
		Retry: usecase.RetryPolicy{
			MaxAttempts:  cfg.Worker.MaxAttempts,
			ParseRetries: 1,
			Backoff:      usecase.ExponentialBackoff(cfg.Worker.BaseBackoff, cfg.Worker.MaxBackoff),
		},
		Logger: baseLogger.With("component", "ingestor"),
	})
	if err != nil {
		_ = q.Close()
		_ = repo.Close()
		return nil, err
	}

	a := &Application{
		cfg:       cfg,
		logger:    baseLogger,
		repo:      repo,
		queue:     q,
		pool:      usecase.NewWorkerPool(q, ingestor, cfg.Worker.Count, baseLogger.With("component", "worker")),
		submitter: usecase.NewSubmitter(q, baseLogger.With("component", "submitter")),
	}

	if requeuer, ok := q.(usecase.StaleRequeuer); ok {
		driver, err := scheduler.NewCronScheduler(cfg.Scheduler.JanitorSchedule, cfg.Scheduler.Location())
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.janitor = usecase.NewJanitor(driver, requeuer, cfg.Queue.VisibilityTimeout, baseLogger.With("component", "janitor"))
	}

	feeds := usecase.NewFeedService(repo, feed.NewFetcher(fetcher, baseLogger.With("component", "feed")))
	a.server = httpapi.NewServer(httpapi.Deps{
		Submitter:     a.submitter,
		Articles:      repo,
		Feeds:         feeds,
		Health:        repo,
		DefaultUserID: cfg.HTTP.DefaultUserID,
		SubmitRate:    cfg.HTTP.SubmitRate,
		SubmitBurst:   cfg.HTTP.SubmitBurst,
		Logger:        baseLogger.With("component", "http"),
	})

	return a, nil
}

// Run serves HTTP, drives the workers and the janitor until ctx ends.
func (a *Application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.pool.Run(gctx)
	})

	g.Go(func() error {
		return a.server.Start(a.cfg.HTTP.Addr)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if a.janitor != nil {
			if err := a.janitor.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("janitor stop: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	if a.janitor != nil {
		if err := a.janitor.Start(gctx); err != nil {
			return fmt.Errorf("start janitor: %w", err)
		}
	}

	a.logger.Info("articleshelf started",
		"addr", a.cfg.HTTP.Addr,
		"queue", a.cfg.Queue.Backend,
		"database", a.cfg.Database.Driver,
		"workers", a.cfg.Worker.Count,
	)

	err := g.Wait()
	if ctx.Err() != nil && err == nil {
		a.logger.Info("articleshelf stopped")
	}
	return err
}

// Submitter exposes the producer for one-shot commands.
func (a *Application) Submitter() *usecase.Submitter {
	return a.submitter
}

// Close releases the queue and database.
func (a *Application) Close() error {
	var errs []error
	if a.queue != nil {
		errs = append(errs, a.queue.Close())
	}
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	}
	return errors.Join(errs...)
}

// NewQueue opens the configured queue backend.
func NewQueue(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.JobQueue, error) {
	switch cfg.Queue.Backend {
	case config.QueueRedis:
		q, err := queue.NewRedisQueueWithURL(ctx, cfg.Queue.RedisURL, queue.RedisOptions{
			KeyPrefix:    cfg.Queue.KeyPrefix,
			Capacity:     cfg.Queue.Capacity,
			PollInterval: cfg.Queue.PollInterval,
		}, logger.With("component", "queue"))
		if err != nil {
			return nil, fmt.Errorf("open redis queue: %w", err)
		}
		return q, nil
	case config.QueueMemory, "":
		return queue.NewMemoryQueue(cfg.Queue.Capacity), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}

// NewFetcher builds the outbound HTTP client shared by the extractor and feed reader.
func NewFetcher(cfg config.Config) *httpfetch.Fetcher {
	return httpfetch.New(httpfetch.Options{
		Timeout:              cfg.Fetch.Timeout,
		MaxBodyBytes:         cfg.Fetch.MaxBodyBytes,
		MaxRedirects:         cfg.Fetch.MaxRedirects,
		UserAgent:            cfg.Fetch.UserAgent,
		HostInterval:         cfg.Fetch.HostInterval,
		AllowPrivateNetworks: cfg.Fetch.AllowPrivateNetworks,
	})
}

// NewClassifier builds the keyword classifier, fronted by the remote one when configured.
func NewClassifier(cfg config.Config, logger *slog.Logger) (ports.Classifier, error) {
	ruleset := classifier.DefaultRuleset()
	if cfg.Classify.RulesPath != "" {
		loaded, err := classifier.LoadRuleset(cfg.Classify.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load classifier rules: %w", err)
		}
		ruleset = loaded
	}

	rules, err := classifier.NewRules(ruleset, cfg.Classify.MinWords, logger.With("component", "classifier"))
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	var remote ports.Classifier
	if cfg.ML.InferenceURL != "" {
		remote = ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey, cfg.ML.Timeout)
	}
	return classifier.NewFallback(remote, rules, logger.With("component", "classifier")), nil
}
