// Package httpfetch performs bounded GET requests against untrusted, user supplied URLs.
package httpfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"golang.org/x/net/html/charset"

	"ArticleShelf/internal/domain"
)

// ErrBlockedAddress is returned when a URL resolves to a loopback, private or otherwise internal address.
var ErrBlockedAddress = errors.New("destination address is not allowed")

// Options bound every request.
type Options struct {
	Timeout              time.Duration
	MaxBodyBytes         int64
	MaxRedirects         int
	UserAgent            string
	HostInterval         time.Duration
	AllowPrivateNetworks bool
}

// Response is a fully read, size capped response body.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	Truncated   bool
	FetchedAt   time.Time
}

// UTF8 returns the body converted to UTF-8 using the declared or sniffed charset.
func (r *Response) UTF8() ([]byte, error) {
	reader, err := charset.NewReader(bytes.NewReader(r.Body), r.ContentType)
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	return io.ReadAll(reader)
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	opts    Options
	limiter *HostLimiter
	now     func() time.Time
}

// New builds a Fetcher with its own transport.
func New(opts Options) *Fetcher {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !opts.AllowPrivateNetworks {
		dialer.Control = denyInternalAddresses
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: opts.Timeout,
	}

	return NewWithClient(&http.Client{Transport: transport}, opts)
}

// NewWithClient wires a caller provided client, e.g. an httptest server client.
func NewWithClient(client *http.Client, opts Options) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 << 20
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 5
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "ArticleShelf/1.0"
	}

	c := *client
	c.Timeout = opts.Timeout
	c.CheckRedirect = redirectPolicy(opts.MaxRedirects)

	f := &Fetcher{client: &c, opts: opts, now: time.Now}
	if opts.HostInterval > 0 {
		f.limiter = NewHostLimiter(opts.HostInterval)
	}
	return f
}

// Get downloads rawURL. Network failures and non-2xx statuses come back as *domain.FetchError.
func (f *Fetcher) Get(ctx context.Context, rawURL, accept string) (*Response, error) {
	u, err := domain.ParseLink(rawURL)
	if err != nil {
		return nil, err
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, u.Host); err != nil {
			return nil, &domain.FetchError{URL: rawURL, Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrInvalidLink, err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedAddress) {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidLink, err)
		}
		return nil, &domain.FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &domain.FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, &domain.FetchError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	truncated := int64(len(body)) > f.opts.MaxBodyBytes
	if truncated {
		body = body[:f.opts.MaxBodyBytes]
	}

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
		FetchedAt:   f.now().UTC(),
	}, nil
}

func redirectPolicy(max int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
			return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
		}
		return nil
	}
}

// reservedNets are non-public ranges the net.IP predicates do not cover.
var reservedNets = mustParseCIDRs(
	"0.0.0.0/8",      // "this network"
	"100.64.0.0/10",  // carrier-grade NAT
	"192.0.0.0/24",   // IETF protocol assignments
	"198.18.0.0/15",  // benchmarking
	"240.0.0.0/4",    // reserved, incl. broadcast
	"64:ff9b:1::/48", // local-use NAT64
)

// denyInternalAddresses runs after DNS resolution, so rebinding tricks are covered too.
func denyInternalAddresses(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || isInternalIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	return nil
}

func isInternalIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}
	for _, n := range reservedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}
