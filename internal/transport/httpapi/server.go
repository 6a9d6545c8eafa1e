// Package httpapi exposes submission, library and feed endpoints over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/ports"
)

// Submitter enqueues links for ingestion.
type Submitter interface {
	Submit(ctx context.Context, userID int64, link string) (domain.Receipt, error)
}

// Feeds manages feed subscriptions.
type Feeds interface {
	AddFeed(ctx context.Context, userID int64, name, link string) (domain.Feed, error)
	ListFeeds(ctx context.Context, userID int64) ([]domain.Feed, error)
	FeedArticles(ctx context.Context, userID, feedID int64) ([]domain.FeedArticleSummary, error)
}

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps wires the use cases the handlers call.
type Deps struct {
	Submitter     Submitter
	Articles      ports.ArticleReader
	Feeds         Feeds
	Health        Pinger
	DefaultUserID int64
	SubmitRate    float64
	SubmitBurst   int
	Logger        *slog.Logger
}

// Server owns the echo instance.
type Server struct {
	echo   *echo.Echo
	logger *slog.Logger
}

// NewServer registers all routes.
func NewServer(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if deps.DefaultUserID <= 0 {
		deps.DefaultUserID = 1
	}
	if deps.SubmitRate <= 0 {
		deps.SubmitRate = 5
	}

	h := &handlers{
		submitter: deps.Submitter,
		articles:  deps.Articles,
		feeds:     deps.Feeds,
		health:    deps.Health,
		logger:    deps.Logger,
	}
	limiter := NewRateLimiter(rate.Limit(deps.SubmitRate), deps.SubmitBurst)

	e.Use(accessLog(deps.Logger))

	e.GET("/healthz", h.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api", identify(deps.DefaultUserID))
	api.POST("/articles", h.submitArticle, limiter.Middleware())
	api.GET("/articles", h.listArticles)
	api.GET("/articles/:id", h.getArticle)
	api.DELETE("/articles/:id", h.deleteArticle)
	api.GET("/categories", h.listCategories)
	api.GET("/categories/:category/articles", h.listCategoryArticles)
	api.GET("/feeds", h.listFeeds)
	api.POST("/feeds", h.addFeed, limiter.Middleware())
	api.GET("/feeds/:id/articles", h.feedArticles)

	return &Server{echo: e, logger: deps.Logger}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown. A clean shutdown returns nil.
func (s *Server) Start(addr string) error {
	if s.logger != nil {
		s.logger.Info("http server listening", "addr", addr)
	}
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
