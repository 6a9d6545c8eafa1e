package ports

import (
	"context"
	"time"

	"ArticleShelf/internal/domain"
)

// ArticleRepository persists ingested articles. It is the only writer of Article rows.
type ArticleRepository interface {
	FindArticle(ctx context.Context, userID int64, link string) (*domain.Article, error)
	InsertArticle(ctx context.Context, article domain.Article) (domain.Article, error)
}

// ArticleReader serves the read and delete paths of the HTTP layer.
type ArticleReader interface {
	GetArticle(ctx context.Context, userID, id int64) (domain.Article, error)
	DeleteArticle(ctx context.Context, userID, id int64) error
	ListArticles(ctx context.Context, filter domain.ArticleFilter) (domain.ArticlePage, error)
	ListCategories(ctx context.Context, userID int64) ([]string, error)
}

// FeedRepository stores feed subscriptions.
type FeedRepository interface {
	FindFeed(ctx context.Context, id int64) (domain.Feed, error)
	InsertFeed(ctx context.Context, feed domain.Feed) (domain.Feed, error)
	ListFeeds(ctx context.Context, userID int64) ([]domain.Feed, error)
}

// Extractor downloads an article page and pulls out its canonical fields.
type Extractor interface {
	Extract(ctx context.Context, link string) (domain.ExtractedArticle, error)
}

// FeedFetcher reads a syndication document into article summaries.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, link string) ([]domain.FeedArticleSummary, error)
}

// Classifier assigns a single category label to article text.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// Delivery is a claimed job. Ack releases it from the queue for good.
type Delivery interface {
	Job() domain.IngestionJob
	Ack(ctx context.Context) error
}

// JobQueue decouples link submission from ingestion.
type JobQueue interface {
	Enqueue(ctx context.Context, job domain.IngestionJob) (domain.Receipt, error)
	Dequeue(ctx context.Context) (Delivery, error)
	Close() error
}

// Scheduler controls when recurring maintenance runs.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
