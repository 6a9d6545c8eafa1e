package classifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleShelf/internal/domain"
)

const testRuleset = `
version: "test-1"
labels:
  - name: cooking
    keywords: [Recipe, oven, flour]
  - name: gardening
    keywords: [soil, seeds, oven]
`

func newTestRules(t *testing.T) *Rules {
	t.Helper()

	rs, err := ParseRuleset([]byte(testRuleset))
	require.NoError(t, err)
	r, err := NewRules(rs, 5, nil)
	require.NoError(t, err)
	return r
}

func TestRulesPicksHighestScore(t *testing.T) {
	t.Parallel()

	r := newTestRules(t)
	label, err := r.Classify(context.Background(), "Plant the seeds in rich soil and water the soil daily.")
	require.NoError(t, err)
	assert.Equal(t, "gardening", label)
	assert.Equal(t, "test-1", r.Version())
}

func TestRulesBreaksTiesByRulesetOrder(t *testing.T) {
	t.Parallel()

	r := newTestRules(t)
	label, err := r.Classify(context.Background(), "Warm the OVEN before you start anything else today.")
	require.NoError(t, err)
	assert.Equal(t, "cooking", label)
}

func TestRulesShortOrUnmatchedTextIsUncategorized(t *testing.T) {
	t.Parallel()

	r := newTestRules(t)
	for _, text := range []string{"", "flour oven recipe", "nothing here matches any of the keywords"} {
		label, err := r.Classify(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, domain.UncategorizedLabel, label, text)
	}
}

func TestRulesIsDeterministic(t *testing.T) {
	t.Parallel()

	r, err := NewRules(Ruleset{}, 0, nil)
	require.NoError(t, err)

	text := "Researchers at the telescope published a study on quantum physics and the economy."
	first, err := r.Classify(context.Background(), text)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		got, err := r.Classify(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
	assert.Equal(t, "science", first)
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"open-source", "ai", "wins", "2025"}, Tokenize("Open-Source AI wins, 2025!"))
}

func TestParseRulesetRejectsBadInput(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string]string{
		"no labels":   "version: x\nlabels: []\n",
		"no keywords": "labels:\n  - name: a\n    keywords: []\n",
		"duplicate":   "labels:\n  - name: a\n    keywords: [x]\n  - name: a\n    keywords: [y]\n",
		"not yaml":    "labels: [",
	} {
		_, err := ParseRuleset([]byte(raw))
		assert.Error(t, err, name)
	}
}

func TestLoadRulesetFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRuleset), 0o600))

	rs, err := LoadRuleset(path)
	require.NoError(t, err)
	require.Len(t, rs.Labels, 2)
	assert.Equal(t, []string{"recipe", "oven", "flour"}, rs.Labels[0].Keywords)
}

type stubClassifier struct {
	label string
	err   error
	calls int
}

func (s *stubClassifier) Classify(context.Context, string) (string, error) {
	s.calls++
	return s.label, s.err
}

func TestFallbackUsesSecondaryOnError(t *testing.T) {
	t.Parallel()

	primary := &stubClassifier{err: errors.New("inference down")}
	secondary := &stubClassifier{label: "science"}

	label, err := NewFallback(primary, secondary, nil).Classify(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "science", label)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackPrefersPrimary(t *testing.T) {
	t.Parallel()

	secondary := &stubClassifier{label: "science"}
	label, err := NewFallback(&stubClassifier{label: "sports"}, secondary, nil).Classify(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "sports", label)
	assert.Zero(t, secondary.calls)
}

func TestFallbackNeverFails(t *testing.T) {
	t.Parallel()

	failing := &stubClassifier{err: errors.New("boom")}
	label, err := NewFallback(failing, failing, nil).Classify(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, domain.UncategorizedLabel, label)

	label, err = NewFallback(nil, nil, nil).Classify(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, domain.UncategorizedLabel, label)
}
