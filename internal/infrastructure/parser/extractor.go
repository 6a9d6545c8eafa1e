package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/extraction"
	"ArticleShelf/internal/infrastructure/httpfetch"
	"ArticleShelf/internal/ports"
)

const acceptHTML = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5"

var errNoContent = errors.New("no extractable title or body")

// Getter is the slice of httpfetch.Fetcher the extractor needs.
type Getter interface {
	Get(ctx context.Context, rawURL, accept string) (*httpfetch.Response, error)
}

// Extractor implements ports.Extractor by running registered strategies in a fixed order.
type Extractor struct {
	fetcher    Getter
	strategies []extraction.Strategy
	logger     *slog.Logger
}

var _ ports.Extractor = (*Extractor)(nil)

// NewExtractor resolves the strategy order up front so misconfiguration fails at startup.
func NewExtractor(fetcher Getter, reg *extraction.Registry, order []string, log *slog.Logger) (*Extractor, error) {
	if fetcher == nil {
		return nil, errors.New("extractor needs a fetcher")
	}
	if reg == nil {
		reg = DefaultRegistry()
	}
	if len(order) == 0 {
		order = []string{StrategyMetadata, StrategyReadability, StrategyHeadingBlock, StrategyRawText}
	}

	strategies, err := reg.ResolveAll(order)
	if err != nil {
		return nil, err
	}

	return &Extractor{fetcher: fetcher, strategies: strategies, logger: log}, nil
}

// Extract downloads link and fills title, body and publish date from the first strategy that has each.
func (e *Extractor) Extract(ctx context.Context, link string) (domain.ExtractedArticle, error) {
	resp, err := e.fetcher.Get(ctx, link, acceptHTML)
	if err != nil {
		return domain.ExtractedArticle{}, err
	}
	if resp.Truncated {
		e.debug("response truncated", "url", link, "bytes", len(resp.Body))
	}

	if !isMarkup(resp.ContentType) {
		return domain.ExtractedArticle{}, &domain.ParseError{URL: link, Err: fmt.Errorf("unsupported content type %q", resp.ContentType)}
	}

	doc, err := newDocument(resp)
	if err != nil {
		return domain.ExtractedArticle{}, &domain.ParseError{URL: link, Err: err}
	}

	var out domain.ExtractedArticle
	for _, strategy := range e.strategies {
		if out.Title != "" && out.Body != "" && !out.PublishDate.IsZero() {
			break
		}

		result, err := strategy.Extract(doc)
		if err != nil {
			e.debug("strategy failed", "strategy", strategy.Name(), "url", link, "error", err)
			continue
		}

		if out.Title == "" {
			out.Title = result.Title
		}
		if out.Body == "" {
			out.Body = result.Body
		}
		if out.PublishDate.IsZero() {
			out.PublishDate = result.PublishDate
		}
	}

	if out.Title == "" && out.Body == "" {
		return domain.ExtractedArticle{}, &domain.ParseError{URL: link, Err: errNoContent}
	}
	if out.Title == "" {
		out.Title = doc.URL.String()
	}
	if out.PublishDate.IsZero() {
		out.PublishDate = resp.FetchedAt
	}

	e.debug("article extracted", "url", link, "title", out.Title, "body_chars", len(out.Body))
	return out, nil
}

func newDocument(resp *httpfetch.Response) (*extraction.Document, error) {
	body, err := resp.UTF8()
	if err != nil {
		return nil, err
	}

	pageURL, err := url.Parse(resp.URL)
	if err != nil {
		return nil, fmt.Errorf("final url: %w", err)
	}

	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return &extraction.Document{
		URL:       pageURL,
		HTML:      body,
		DOM:       dom,
		FetchedAt: resp.FetchedAt,
	}, nil
}

// isMarkup accepts HTML-ish and unknown content types. Binary payloads are rejected.
func isMarkup(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" {
		return true
	}
	return strings.Contains(ct, "html") || strings.Contains(ct, "xml") || strings.HasPrefix(ct, "text/")
}

func (e *Extractor) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
