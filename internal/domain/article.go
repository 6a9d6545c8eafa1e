package domain

import "time"

// UncategorizedLabel is assigned when no classification can be made.
const UncategorizedLabel = "uncategorized"

// Article is a persisted, fully ingested article owned by a single user.
type Article struct {
	ID             int64
	UserID         int64
	Title          string
	Body           string
	Link           string
	PublishDate    time.Time
	Classification string
	CreatedAt      time.Time
}

// Feed is a syndication source a user subscribed to.
type Feed struct {
	ID     int64
	UserID int64
	Name   string
	Link   string
}

// FeedArticleSummary is a transient entry produced while reading a feed.
type FeedArticleSummary struct {
	Title       string
	Link        string
	PublishDate time.Time
}

// ExtractedArticle is the outcome of fetching and parsing an article page.
type ExtractedArticle struct {
	Title       string
	Body        string
	PublishDate time.Time
}

// IngestionJob asks the pipeline to fetch and store one link for one user.
type IngestionJob struct {
	ID          string    `json:"id"`
	ArticleLink string    `json:"link"`
	UserID      int64     `json:"user_id"`
	Attempt     int       `json:"attempt"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Receipt acknowledges a submission. It never carries a processing result.
type Receipt struct {
	JobID      string
	AcceptedAt time.Time
}

// IngestionOutcome enumerates terminal states of a job.
type IngestionOutcome string

const (
	OutcomeStored    IngestionOutcome = "stored"
	OutcomeDuplicate IngestionOutcome = "duplicate"
	OutcomeInvalid   IngestionOutcome = "invalid"
	OutcomeFailed    IngestionOutcome = "failed"
)

// ArticleFilter narrows article listings.
type ArticleFilter struct {
	UserID         int64
	Classification string
	Limit          int
	Offset         int
}

// ArticlePage is a page of articles plus the total number of matches.
type ArticlePage struct {
	Articles []Article
	Total    int
}
