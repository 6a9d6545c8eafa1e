package parser

import (
	"bytes"
	"fmt"

	readability "github.com/go-shiori/go-readability"

	"ArticleShelf/internal/extraction"
)

// ReadabilityStrategy runs Mozilla's readability heuristics over the raw page.
type ReadabilityStrategy struct{}

// Name identifies the strategy inside the registry.
func (ReadabilityStrategy) Name() string { return StrategyReadability }

// Extract parses its own copy of the HTML; the shared DOM is left untouched.
func (ReadabilityStrategy) Extract(doc *extraction.Document) (extraction.Result, error) {
	article, err := readability.FromReader(bytes.NewReader(doc.HTML), doc.URL)
	if err != nil {
		return extraction.Result{}, fmt.Errorf("readability: %w", err)
	}

	return extraction.Result{
		Title: collapseSpaces(article.Title),
		Body:  cleanText(article.TextContent),
	}, nil
}
