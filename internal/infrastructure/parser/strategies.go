package parser

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"ArticleShelf/internal/extraction"
)

// Strategy names, in default fallback order.
const (
	StrategyMetadata     = "metadata"
	StrategyReadability  = "readability"
	StrategyHeadingBlock = "heading-block"
	StrategyRawText      = "raw-text"
)

var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"2 Jan 2006",
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// DefaultRegistry registers every built-in strategy.
func DefaultRegistry() *extraction.Registry {
	reg := extraction.NewRegistry()
	reg.Register(MetadataStrategy{})
	reg.Register(ReadabilityStrategy{})
	reg.Register(HeadingBlockStrategy{})
	reg.Register(NewRawTextStrategy())
	return reg
}

// MetadataStrategy reads structured metadata: OpenGraph, Twitter cards, JSON-LD and <title>.
type MetadataStrategy struct{}

// Name identifies the strategy inside the registry.
func (MetadataStrategy) Name() string { return StrategyMetadata }

// Extract never fails; missing metadata yields an empty result.
func (MetadataStrategy) Extract(doc *extraction.Document) (extraction.Result, error) {
	ld := readJSONLD(doc.DOM)

	title := firstNonEmpty(
		metaContent(doc.DOM, `meta[property="og:title"]`),
		metaContent(doc.DOM, `meta[name="twitter:title"]`),
		ld.Headline,
		doc.DOM.Find("head > title, title").First().Text(),
	)

	published := firstNonEmpty(
		metaContent(doc.DOM, `meta[property="article:published_time"]`),
		metaContent(doc.DOM, `meta[itemprop="datePublished"]`),
		metaContent(doc.DOM, `meta[name="date"]`),
		metaContent(doc.DOM, `meta[name="pubdate"]`),
		ld.DatePublished,
		attr(doc.DOM.Find("time[datetime]").First(), "datetime"),
	)

	return extraction.Result{
		Title:       collapseSpaces(title),
		Body:        cleanText(ld.ArticleBody),
		PublishDate: parseDate(published),
	}, nil
}

// HeadingBlockStrategy takes the first <h1> and the element with the most paragraph text.
type HeadingBlockStrategy struct{}

// Name identifies the strategy inside the registry.
func (HeadingBlockStrategy) Name() string { return StrategyHeadingBlock }

// Extract picks the largest block; ties go to the earliest element in document order.
func (HeadingBlockStrategy) Extract(doc *extraction.Document) (extraction.Result, error) {
	title := collapseSpaces(doc.DOM.Find("h1").First().Text())

	var best string
	doc.DOM.Find("article, main, section, div, td").Each(func(_ int, s *goquery.Selection) {
		var paragraphs []string
		s.ChildrenFiltered("p").Each(func(_ int, p *goquery.Selection) {
			if text := collapseSpaces(p.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
		block := strings.Join(paragraphs, "\n\n")
		if len(block) > len(best) {
			best = block
		}
	})

	return extraction.Result{Title: title, Body: best}, nil
}

// RawTextStrategy strips all markup from <body>.
type RawTextStrategy struct {
	policy *bluemonday.Policy
}

// NewRawTextStrategy builds a strategy backed by a strict sanitizing policy.
func NewRawTextStrategy() RawTextStrategy {
	policy := bluemonday.StrictPolicy()
	policy.AddSpaceWhenStrippingTag(true)
	return RawTextStrategy{policy: policy}
}

// Name identifies the strategy inside the registry.
func (RawTextStrategy) Name() string { return StrategyRawText }

// Extract works on a clone of <body> so the shared DOM stays intact.
func (r RawTextStrategy) Extract(doc *extraction.Document) (extraction.Result, error) {
	body := doc.DOM.Find("body").First()
	if body.Length() == 0 {
		body = doc.DOM.Selection
	}
	clone := body.Clone()
	clone.Find("script, style, noscript, template, svg, nav, header, footer").Remove()

	markup, err := goquery.OuterHtml(clone)
	if err != nil {
		return extraction.Result{}, err
	}

	policy := r.policy
	if policy == nil {
		policy = NewRawTextStrategy().policy
	}
	text := html.UnescapeString(policy.Sanitize(markup))

	return extraction.Result{Body: collapseSpaces(text)}, nil
}

type jsonLD struct {
	Headline      string `json:"headline"`
	ArticleBody   string `json:"articleBody"`
	DatePublished string `json:"datePublished"`
}

// readJSONLD returns the first JSON-LD object carrying article fields.
func readJSONLD(dom *goquery.Document) jsonLD {
	var found jsonLD
	dom.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}

		var candidates []jsonLD
		if strings.HasPrefix(raw, "[") {
			if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
				return true
			}
		} else {
			var single struct {
				jsonLD
				Graph []jsonLD `json:"@graph"`
			}
			if err := json.Unmarshal([]byte(raw), &single); err != nil {
				return true
			}
			candidates = append([]jsonLD{single.jsonLD}, single.Graph...)
		}

		for _, c := range candidates {
			if c.Headline != "" || c.ArticleBody != "" || c.DatePublished != "" {
				found = c
				return false
			}
		}
		return true
	})
	return found
}

func metaContent(dom *goquery.Document, selector string) string {
	return attr(dom.Find(selector).First(), "content")
}

func attr(s *goquery.Selection, name string) string {
	value, _ := s.Attr(name)
	return strings.TrimSpace(value)
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func collapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// cleanText collapses whitespace inside lines and keeps at most one blank line between paragraphs.
func cleanText(value string) string {
	lines := strings.Split(strings.ReplaceAll(value, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = collapseSpaces(line)
	}
	text := strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
