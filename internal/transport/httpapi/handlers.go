package httpapi

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/ports"
)

const (
	articlesPageSize = 9
	categoryPageSize = 10
	maxPageSize      = 100
)

type handlers struct {
	submitter Submitter
	articles  ports.ArticleReader
	feeds     Feeds
	health    Pinger
	logger    *slog.Logger
}

type submitRequest struct {
	Link string `json:"link"`
}

type submitResponse struct {
	JobID      string    `json:"job_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

type articleResponse struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Link           string    `json:"link"`
	PublishDate    time.Time `json:"publish_date"`
	Classification string    `json:"classification"`
	CreatedAt      time.Time `json:"created_at"`
}

type articlePageResponse struct {
	Articles    []articleResponse `json:"articles"`
	Total       int               `json:"total"`
	TotalPages  int               `json:"total_pages"`
	CurrentPage int               `json:"current_page"`
}

type feedRequest struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

type feedResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Link string `json:"link"`
}

type summaryResponse struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishDate time.Time `json:"publish_date"`
}

func (h *handlers) healthz(c echo.Context) error {
	if h.health != nil {
		if err := h.health.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handlers) submitArticle(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	receipt, err := h.submitter.Submit(c.Request().Context(), currentUser(c), req.Link)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusAccepted, submitResponse{JobID: receipt.JobID, AcceptedAt: receipt.AcceptedAt})
}

func (h *handlers) listArticles(c echo.Context) error {
	return h.listPage(c, "", articlesPageSize)
}

func (h *handlers) listCategoryArticles(c echo.Context) error {
	category := strings.TrimSpace(c.Param("category"))
	if category == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "category is required")
	}
	return h.listPage(c, category, categoryPageSize)
}

func (h *handlers) listPage(c echo.Context, category string, defaultLimit int) error {
	page, err := queryInt(c, "page", 1)
	if err != nil || page < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "page must be a positive integer")
	}
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil || limit < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page-1 > math.MaxInt32/limit {
		return echo.NewHTTPError(http.StatusBadRequest, "page is out of range")
	}

	result, err := h.articles.ListArticles(c.Request().Context(), domain.ArticleFilter{
		UserID:         currentUser(c),
		Classification: category,
		Limit:          limit,
		Offset:         (page - 1) * limit,
	})
	if err != nil {
		return h.fail(c, err)
	}

	resp := articlePageResponse{
		Articles:    make([]articleResponse, 0, len(result.Articles)),
		Total:       result.Total,
		TotalPages:  (result.Total + limit - 1) / limit,
		CurrentPage: page,
	}
	for _, a := range result.Articles {
		resp.Articles = append(resp.Articles, toArticleResponse(a))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *handlers) getArticle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	article, err := h.articles.GetArticle(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, toArticleResponse(article))
}

func (h *handlers) deleteArticle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.articles.DeleteArticle(c.Request().Context(), currentUser(c), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "article deleted"})
}

func (h *handlers) listCategories(c echo.Context) error {
	categories, err := h.articles.ListCategories(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]string{"categories": categories})
}

func (h *handlers) listFeeds(c echo.Context) error {
	feeds, err := h.feeds.ListFeeds(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.fail(c, err)
	}

	resp := make([]feedResponse, 0, len(feeds))
	for _, f := range feeds {
		resp = append(resp, feedResponse{ID: f.ID, Name: f.Name, Link: f.Link})
	}
	return c.JSON(http.StatusOK, map[string][]feedResponse{"feeds": resp})
}

func (h *handlers) addFeed(c echo.Context) error {
	var req feedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	feed, err := h.feeds.AddFeed(c.Request().Context(), currentUser(c), req.Name, req.Link)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, feedResponse{ID: feed.ID, Name: feed.Name, Link: feed.Link})
}

func (h *handlers) feedArticles(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	summaries, err := h.feeds.FeedArticles(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return h.fail(c, err)
	}

	resp := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, summaryResponse{Title: s.Title, Link: s.Link, PublishDate: s.PublishDate})
	}
	return c.JSON(http.StatusOK, map[string][]summaryResponse{"articles": resp})
}

func (h *handlers) fail(c echo.Context, err error) error {
	httpErr := mapDomainError(err)
	if httpErr.Code >= http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return httpErr
}

func toArticleResponse(a domain.Article) articleResponse {
	return articleResponse{
		ID:             a.ID,
		Title:          a.Title,
		Body:           a.Body,
		Link:           a.Link,
		PublishDate:    a.PublishDate,
		Classification: a.Classification,
		CreatedAt:      a.CreatedAt,
	}
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}
	return id, nil
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
