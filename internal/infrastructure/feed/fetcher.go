package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/infrastructure/httpfetch"
	"ArticleShelf/internal/ports"
)

const acceptFeeds = "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.5"

// Getter is the slice of httpfetch.Fetcher the fetcher needs.
type Getter interface {
	Get(ctx context.Context, rawURL, accept string) (*httpfetch.Response, error)
}

// Fetcher reads RSS, RDF, Atom and JSON feeds into article summaries.
type Fetcher struct {
	http   Getter
	logger *slog.Logger
}

var _ ports.FeedFetcher = (*Fetcher)(nil)

// NewFetcher wires the outbound HTTP client.
func NewFetcher(http Getter, logger *slog.Logger) *Fetcher {
	return &Fetcher{http: http, logger: logger}
}

// FetchFeed returns one summary per item or entry, in document order.
// Invalid links, unreachable hosts and malformed documents all surface as domain.ErrFeedUnreadable.
func (f *Fetcher) FetchFeed(ctx context.Context, link string) ([]domain.FeedArticleSummary, error) {
	resp, err := f.http.Get(ctx, link, acceptFeeds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFeedUnreadable, err)
	}

	summaries, err := Parse(resp.Body, resp.FetchedAt)
	if err != nil {
		f.warn("feed unreadable", "url", link, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrFeedUnreadable, &domain.ParseError{URL: link, Err: err})
	}

	f.debug("feed fetched", "url", link, "items", len(summaries))
	return summaries, nil
}

// Parse normalizes a raw feed document. Items without a date get fetchedAt.
func Parse(body []byte, fetchedAt time.Time) ([]domain.FeedArticleSummary, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty document")
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.FeedArticleSummary, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		summaries = append(summaries, domain.FeedArticleSummary{
			Title:       strings.Join(strings.Fields(item.Title), " "),
			Link:        itemLink(item),
			PublishDate: itemDate(item, fetchedAt),
		})
	}
	return summaries, nil
}

func itemLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	for _, link := range item.Links {
		if link = strings.TrimSpace(link); link != "" {
			return link
		}
	}
	if strings.HasPrefix(item.GUID, "http://") || strings.HasPrefix(item.GUID, "https://") {
		return item.GUID
	}
	return ""
}

func itemDate(item *gofeed.Item, fetchedAt time.Time) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return fetchedAt
	}
}

func (f *Fetcher) debug(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *Fetcher) warn(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
