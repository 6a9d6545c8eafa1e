package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLink marks a link that is not an absolute http(s) URL. Never retried.
	ErrInvalidLink = errors.New("invalid article link")

	// ErrRedeliveryLimit marks a job handed out again more often than the retry policy allows.
	ErrRedeliveryLimit = errors.New("job redelivered too often")

	// ErrDuplicateArticle signals that (user, link) is already stored.
	ErrDuplicateArticle = errors.New("article already exists")

	// ErrArticleNotFound is returned when no article matches.
	ErrArticleNotFound = errors.New("article not found")

	// ErrFeedNotFound is returned when no feed matches.
	ErrFeedNotFound = errors.New("feed not found")

	// ErrFeedUnreadable is surfaced to readers of a feed whose document cannot be used.
	ErrFeedUnreadable = errors.New("feed unreadable")

	// ErrQueueFull is returned by bounded queues instead of blocking the producer.
	ErrQueueFull = errors.New("ingestion queue is full")

	// ErrQueueClosed is returned once a queue has been shut down.
	ErrQueueClosed = errors.New("ingestion queue is closed")
)

// FetchError is a network level failure: timeout, reset, non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError is returned when a fetched document cannot be interpreted.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	var fetchErr *FetchError
	var parseErr *ParseError
	return errors.As(err, &fetchErr) || errors.As(err, &parseErr)
}
