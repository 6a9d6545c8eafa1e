package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/ports"
)

// FeedService manages subscriptions and reads them on demand.
type FeedService struct {
	feeds   ports.FeedRepository
	fetcher ports.FeedFetcher
}

// NewFeedService wires feed storage and the feed reader.
func NewFeedService(feeds ports.FeedRepository, fetcher ports.FeedFetcher) *FeedService {
	return &FeedService{feeds: feeds, fetcher: fetcher}
}

// AddFeed subscribes userID to link. The name defaults to the link host.
func (s *FeedService) AddFeed(ctx context.Context, userID int64, name, link string) (domain.Feed, error) {
	u, err := domain.ParseLink(link)
	if err != nil {
		return domain.Feed{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = u.Host
	}

	feed, err := s.feeds.InsertFeed(ctx, domain.Feed{UserID: userID, Name: name, Link: u.String()})
	if err != nil {
		return domain.Feed{}, fmt.Errorf("add feed: %w", err)
	}
	return feed, nil
}

// ListFeeds returns userID's subscriptions.
func (s *FeedService) ListFeeds(ctx context.Context, userID int64) ([]domain.Feed, error) {
	return s.feeds.ListFeeds(ctx, userID)
}

// FeedArticles reads the feed live. Feeds owned by someone else look missing.
func (s *FeedService) FeedArticles(ctx context.Context, userID, feedID int64) ([]domain.FeedArticleSummary, error) {
	feed, err := s.feeds.FindFeed(ctx, feedID)
	if err != nil {
		return nil, err
	}
	if feed.UserID != userID {
		return nil, domain.ErrFeedNotFound
	}

	summaries, err := s.fetcher.FetchFeed(ctx, feed.Link)
	if err != nil {
		if errors.Is(err, domain.ErrFeedUnreadable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrFeedUnreadable, err)
	}
	return summaries, nil
}
