package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/infrastructure/feed"
	"ArticleShelf/internal/infrastructure/httpfetch"
	"ArticleShelf/internal/infrastructure/queue"
	"ArticleShelf/internal/infrastructure/storage"
	"ArticleShelf/internal/usecase"
)

type fixture struct {
	handler http.Handler
	queue   *queue.MemoryQueue
	repo    *storage.Repository
	feedURL string
}

func newFixture(t *testing.T, capacity int, feedBody string) *fixture {
	t.Helper()

	repo, err := storage.Open(context.Background(), storage.DialectSQLite, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedBody))
	}))
	t.Cleanup(feedServer.Close)

	q := queue.NewMemoryQueue(capacity)
	fetcher := feed.NewFetcher(httpfetch.NewWithClient(feedServer.Client(), httpfetch.Options{}), nil)
	server := NewServer(Deps{
		Submitter:     usecase.NewSubmitter(q, nil),
		Articles:      repo,
		Feeds:         usecase.NewFeedService(repo, fetcher),
		Health:        repo,
		DefaultUserID: 1,
		SubmitRate:    100,
		SubmitBurst:   100,
	})

	return &fixture{handler: server.Handler(), queue: q, repo: repo, feedURL: feedServer.URL + "/rss"}
}

func (f *fixture) do(t *testing.T, method, path, body string, userID int64) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req.Header.Set(HeaderUserID, fmt.Sprint(userID))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seed(t *testing.T, userID int64, link, class string, published time.Time) domain.Article {
	t.Helper()

	a, err := f.repo.InsertArticle(context.Background(), domain.Article{
		UserID: userID, Title: "T " + link, Body: "B", Link: link, PublishDate: published, Classification: class,
	})
	require.NoError(t, err)
	return a
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestSubmitArticleEnqueuesForDefaultUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10, "")
	rec := f.do(t, http.MethodPost, "/api/articles", `{"link":"https://example.com/post"}`, 0)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp submitResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.JobID)

	pending := f.queue.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, int64(1), pending[0].UserID)
	assert.Equal(t, "https://example.com/post", pending[0].ArticleLink)
}

func TestSubmitArticleErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1, "")
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/articles", `{"link":"  "}`, 0).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/articles", `{"link":`, 0).Code)

	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/articles", `{"link":"https://a.test"}`, 2).Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, "/api/articles", `{"link":"https://b.test"}`, 2).Code)
}

func TestInvalidUserHeader(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1, "")
	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	req.Header.Set(HeaderUserID, "abc")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListArticlesPaginates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1, "")
	base := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		f.seed(t, 1, fmt.Sprintf("https://e.test/%d", i), "science", base.Add(time.Duration(i)*time.Hour))
	}
	f.seed(t, 2, "https://e.test/other", "science", base)

	rec := f.do(t, http.MethodGet, "/api/articles?page=2", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)

	var page articlePageResponse
	decode(t, rec, &page)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	require.Len(t, page.Articles, 3)
	assert.Equal(t, "https://e.test/2", page.Articles[0].Link)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/articles?page=0", "", 1).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/articles?limit=x", "", 1).Code)
}

func TestListArticlesRejectsOverflowingPage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1, "")
	f.seed(t, 1, "https://e.test/only", "science", time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC))

	for _, path := range []string{
		"/api/articles?page=9223372036854775807",
		"/api/articles?page=2049638230412172402&limit=9",
		"/api/categories/science/articles?page=1000000000",
	} {
		rec := f.do(t, http.MethodGet, path, "", 1)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := f.do(t, http.MethodGet, "/api/articles?page=1000", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	var page articlePageResponse
	decode(t, rec, &page)
	assert.Empty(t, page.Articles)
	assert.Equal(t, 1000, page.CurrentPage)
}

func TestCategories(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1, "")
	f.seed(t, 1, "https://e.test/a", "science", time.Now())
	f.seed(t, 1, "https://e.test/b", "sports", time.Now())
	f.seed(t, 1, "https://e.test/c", "sports", time.Now())

	rec := f.do(t, http.MethodGet, "/api/categories", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	var cats map[string][]string
	decode(t, rec, &cats)
	assert.Equal(t, []string{"science", "sports"}, cats["categories"])

	rec = f.do(t, http.MethodGet, "/api/categories/sports/articles", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	var page articlePageResponse
	decode(t, rec, &page)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.TotalPages)
}

func TestGetAndDeleteArticleRespectOwner(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1, "")
	a := f.seed(t, 1, "https://e.test/mine", "science", time.Now())
	path := fmt.Sprintf("/api/articles/%d", a.ID)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, "", 2).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, path, "", 2).Code)

	rec := f.do(t, http.MethodGet, path, "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	var got articleResponse
	decode(t, rec, &got)
	assert.Equal(t, "https://e.test/mine", got.Link)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, path, "", 1).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, "", 1).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/articles/abc", "", 1).Code)
}

func TestFeedsEndpoints(t *testing.T) {
	t.Parallel()

	rss := `<rss version="2.0"><channel><title>x</title>
	<item><title>A</title><link>https://e.test/a</link></item>
	<item><title>B</title><link>https://e.test/b</link></item>
	<item><title>C</title><link>https://e.test/c</link></item>
	</channel></rss>`
	f := newFixture(t, 1, rss)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/feeds", `{"name":"bad","link":"not-a-url"}`, 1).Code)

	rec := f.do(t, http.MethodPost, "/api/feeds", fmt.Sprintf(`{"name":"Example","link":%q}`, f.feedURL), 1)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created feedResponse
	decode(t, rec, &created)

	rec = f.do(t, http.MethodGet, "/api/feeds", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	var feeds map[string][]feedResponse
	decode(t, rec, &feeds)
	require.Len(t, feeds["feeds"], 1)
	assert.Equal(t, "Example", feeds["feeds"][0].Name)

	path := fmt.Sprintf("/api/feeds/%d/articles", created.ID)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, "", 2).Code)

	rec = f.do(t, http.MethodGet, path, "", 1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string][]summaryResponse
	decode(t, rec, &body)
	require.Len(t, body["articles"], 3)
	assert.Equal(t, "A", body["articles"][0].Title)
	assert.Equal(t, "B", body["articles"][1].Title)
	assert.Equal(t, "C", body["articles"][2].Title)
}

func TestFeedArticlesStatusMapping(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err  error
		code int
	}{
		"unreadable": {err: fmt.Errorf("%w: bad xml", domain.ErrFeedUnreadable), code: http.StatusBadGateway},
		"missing":    {err: domain.ErrFeedNotFound, code: http.StatusNotFound},
		"other":      {err: errors.New("db down"), code: http.StatusInternalServerError},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := NewServer(Deps{Feeds: stubFeeds{err: tc.err}})
			req := httptest.NewRequest(http.MethodGet, "/api/feeds/1/articles", nil)
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestFeedArticlesReturnsSummaries(t *testing.T) {
	t.Parallel()

	server := NewServer(Deps{Feeds: stubFeeds{summaries: []domain.FeedArticleSummary{
		{Title: "A", Link: "https://e.test/a"},
		{Title: "B", Link: "https://e.test/b"},
		{Title: "C", Link: "https://e.test/c"},
	}}})
	req := httptest.NewRequest(http.MethodGet, "/api/feeds/1/articles", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]summaryResponse
	decode(t, rec, &body)
	require.Len(t, body["articles"], 3)
	assert.Equal(t, "A", body["articles"][0].Title)
	assert.Equal(t, "C", body["articles"][2].Title)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1, "")
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "", 0).Code)

	rec := f.do(t, http.MethodGet, "/metrics", "", 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	t.Parallel()

	server := NewServer(Deps{
		Submitter:   stubSubmitter{},
		SubmitRate:  0.001,
		SubmitBurst: 2,
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/articles", strings.NewReader(`{"link":"https://a.test"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests}, codes)
}

func TestMapDomainErrorWrapped(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", domain.ErrArticleNotFound))
	assert.Equal(t, http.StatusNotFound, mapDomainError(wrapped).Code)
	assert.Equal(t, http.StatusServiceUnavailable, mapDomainError(domain.ErrQueueFull).Code)
	assert.Equal(t, http.StatusBadRequest, mapDomainError(domain.ErrInvalidLink).Code)
}

type stubFeeds struct {
	summaries []domain.FeedArticleSummary
	err       error
}

func (s stubFeeds) AddFeed(context.Context, int64, string, string) (domain.Feed, error) {
	return domain.Feed{}, s.err
}

func (s stubFeeds) ListFeeds(context.Context, int64) ([]domain.Feed, error) {
	return nil, s.err
}

func (s stubFeeds) FeedArticles(context.Context, int64, int64) ([]domain.FeedArticleSummary, error) {
	return s.summaries, s.err
}

type stubSubmitter struct{}

func (stubSubmitter) Submit(context.Context, int64, string) (domain.Receipt, error) {
	return domain.Receipt{JobID: "job", AcceptedAt: time.Now()}, nil
}
