package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/usecase"
)

// mapDomainError converts a domain error into an echo.HTTPError.
func mapDomainError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, usecase.ErrEmptyLink):
		return echo.NewHTTPError(http.StatusBadRequest, "link is required")

	case errors.Is(err, domain.ErrInvalidLink):
		return echo.NewHTTPError(http.StatusBadRequest, "link must be an absolute http(s) url")

	case errors.Is(err, domain.ErrArticleNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "article not found")

	case errors.Is(err, domain.ErrFeedNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "feed not found")

	case errors.Is(err, domain.ErrFeedUnreadable):
		return echo.NewHTTPError(http.StatusBadGateway, "feed unreadable")

	case errors.Is(err, domain.ErrQueueFull),
		errors.Is(err, domain.ErrQueueClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "ingestion queue unavailable")

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
