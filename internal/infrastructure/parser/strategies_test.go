package parser

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleShelf/internal/extraction"
)

func newTestDocument(t *testing.T, html string) *extraction.Document {
	t.Helper()

	dom, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	u, err := url.Parse("https://example.com/post")
	require.NoError(t, err)

	return &extraction.Document{URL: u, HTML: []byte(html), DOM: dom, FetchedAt: time.Now().UTC()}
}

func TestMetadataStrategyPrefersOpenGraph(t *testing.T) {
	t.Parallel()

	doc := newTestDocument(t, `
	<html><head>
	  <title>Site | Fallback</title>
	  <meta property="og:title" content="  Open   Graph Title ">
	  <meta property="article:published_time" content="2025-11-08T10:30:00+02:00">
	</head><body></body></html>`)

	result, err := MetadataStrategy{}.Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, "Open Graph Title", result.Title)
	assert.Equal(t, time.Date(2025, time.November, 8, 8, 30, 0, 0, time.UTC), result.PublishDate)
	assert.Empty(t, result.Body)
}

func TestMetadataStrategyReadsJSONLD(t *testing.T) {
	t.Parallel()

	doc := newTestDocument(t, `
	<html><head>
	  <script type="application/ld+json">{"@context":"https://schema.org","@graph":[
	    {"@type":"WebSite","name":"Example"},
	    {"@type":"NewsArticle","headline":"Graph Headline","datePublished":"2024-02-01","articleBody":"First line.\n\n\n\nSecond   line."}
	  ]}</script>
	</head><body></body></html>`)

	result, err := MetadataStrategy{}.Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, "Graph Headline", result.Title)
	assert.Equal(t, "First line.\n\nSecond line.", result.Body)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), result.PublishDate)
}

func TestMetadataStrategyFallsBackToTitleAndTimeElement(t *testing.T) {
	t.Parallel()

	doc := newTestDocument(t, `
	<html><head><title>Hello</title></head>
	<body><time datetime="2023-05-06">May 6</time></body></html>`)

	result, err := MetadataStrategy{}.Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, "Hello", result.Title)
	assert.Equal(t, time.Date(2023, time.May, 6, 0, 0, 0, 0, time.UTC), result.PublishDate)
}

func TestHeadingBlockStrategyPicksLargestBlock(t *testing.T) {
	t.Parallel()

	doc := newTestDocument(t, `
	<html><body>
	  <h1>Main Heading</h1>
	  <div class="teaser"><p>Short teaser.</p></div>
	  <article>
	    <p>The first paragraph of the real story.</p>
	    <p>The second paragraph   continues it.</p>
	  </article>
	</body></html>`)

	result, err := HeadingBlockStrategy{}.Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, "Main Heading", result.Title)
	assert.Equal(t, "The first paragraph of the real story.\n\nThe second paragraph continues it.", result.Body)
}

func TestRawTextStrategyStripsMarkup(t *testing.T) {
	t.Parallel()

	doc := newTestDocument(t, `
	<html><body>
	  <script>var tracking = "secret";</script>
	  <style>p { color: red }</style>
	  <span>Fish</span><span>&amp;</span><b>Chips</b>
	</body></html>`)

	result, err := NewRawTextStrategy().Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, "Fish & Chips", result.Body)
	assert.Empty(t, result.Title)
	assert.Equal(t, 1, doc.DOM.Find("script").Length(), "shared DOM is not mutated")
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	assert.True(t, parseDate("").IsZero())
	assert.True(t, parseDate("yesterday").IsZero())
	assert.Equal(t, time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC), parseDate("January 2, 2025"))
	assert.Equal(t, time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC), parseDate("2025-01-02T03:04:05Z"))
}
