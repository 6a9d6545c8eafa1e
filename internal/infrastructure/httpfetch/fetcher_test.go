package httpfetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleShelf/internal/domain"
)

func TestGetReadsBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "text/html", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<p>hello</p>"))
	}))
	defer server.Close()

	f := NewWithClient(server.Client(), Options{UserAgent: "test-agent"})
	resp, err := f.Get(context.Background(), server.URL, "text/html")
	require.NoError(t, err)

	assert.Equal(t, "<p>hello</p>", string(resp.Body))
	assert.False(t, resp.Truncated)
	assert.False(t, resp.FetchedAt.IsZero())
}

func TestGetCapsBodySize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 1024)))
	}))
	defer server.Close()

	f := NewWithClient(server.Client(), Options{MaxBodyBytes: 100})
	resp, err := f.Get(context.Background(), server.URL, "")
	require.NoError(t, err)

	assert.Len(t, resp.Body, 100)
	assert.True(t, resp.Truncated)
}

func TestGetStatusIsFetchError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewWithClient(server.Client(), Options{})
	_, err := f.Get(context.Background(), server.URL, "")

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
	assert.True(t, domain.IsTransient(err))
}

func TestGetTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f := NewWithClient(server.Client(), Options{Timeout: 50 * time.Millisecond})
	_, err := f.Get(context.Background(), server.URL, "")

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Zero(t, fetchErr.StatusCode)
}

func TestGetStopsRedirectLoops(t *testing.T) {
	t.Parallel()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/again", http.StatusFound)
	}))
	defer server.Close()

	f := NewWithClient(server.Client(), Options{MaxRedirects: 3})
	_, err := f.Get(context.Background(), server.URL, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 3 redirects")
}

func TestGetFollowsRedirect(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewWithClient(server.Client(), Options{})
	resp, err := f.Get(context.Background(), server.URL+"/old", "")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/new", resp.URL)
	assert.Equal(t, "moved", string(resp.Body))
}

func TestGetRejectsInvalidLink(t *testing.T) {
	t.Parallel()

	f := NewWithClient(nil, Options{})
	_, err := f.Get(context.Background(), "not-a-url", "")
	assert.ErrorIs(t, err, domain.ErrInvalidLink)
}

func TestNewBlocksLoopback(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach a loopback server")
	}))
	defer server.Close()

	f := New(Options{Timeout: time.Second})
	_, err := f.Get(context.Background(), server.URL, "")
	assert.ErrorIs(t, err, domain.ErrInvalidLink)
	assert.ErrorIs(t, err, ErrBlockedAddress)
}

func TestResponseUTF8DecodesDeclaredCharset(t *testing.T) {
	t.Parallel()

	resp := &Response{
		ContentType: "text/html; charset=iso-8859-1",
		Body:        []byte("caf\xe9"),
	}
	decoded, err := resp.UTF8()
	require.NoError(t, err)
	assert.Equal(t, "café", string(decoded))
}

func TestHostLimiterSpacesRequests(t *testing.T) {
	t.Parallel()

	limiter := NewHostLimiter(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "example.com"))
	require.NoError(t, limiter.Wait(ctx, "other.example"))
	assert.Less(t, time.Since(start), 30*time.Millisecond, "different hosts do not wait on each other")

	require.NoError(t, limiter.Wait(ctx, "example.com"))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDenyInternalAddresses(t *testing.T) {
	t.Parallel()

	blocked := []string{
		"127.0.0.1:80", "10.1.2.3:80", "192.168.0.10:443", "169.254.169.254:80",
		"0.1.2.3:80", "100.64.0.1:80", "100.127.255.254:443", "198.18.0.1:80",
		"255.255.255.255:80", "[::1]:80", "[fd00::1]:443", "not-an-ip:80",
	}
	for _, addr := range blocked {
		assert.ErrorIs(t, denyInternalAddresses("tcp", addr, nil), ErrBlockedAddress, addr)
	}

	for _, addr := range []string{"93.184.216.34:443", "100.128.0.1:80", "[2606:4700::1111]:443"} {
		assert.NoError(t, denyInternalAddresses("tcp", addr, nil), addr)
	}
}

func TestHostLimiterForgetsIdleHosts(t *testing.T) {
	t.Parallel()

	limiter := NewHostLimiter(10 * time.Millisecond)
	clock := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }
	limiter.lastSweep = clock

	limiter.limiterFor("a.example")
	limiter.limiterFor("b.example")
	assert.Equal(t, 2, limiter.Len())

	clock = clock.Add(3 * time.Minute)
	kept := limiter.limiterFor("b.example")

	clock = clock.Add(3 * time.Minute)
	limiter.limiterFor("c.example")
	assert.Equal(t, 2, limiter.Len(), "a.example idled out")
	assert.Same(t, kept, limiter.limiterFor("b.example"))

	clock = clock.Add(time.Hour)
	limiter.limiterFor("d.example")
	assert.Equal(t, 1, limiter.Len())
}
