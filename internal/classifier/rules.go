package classifier

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/ports"
)

// DefaultMinWords is the shortest text the rules classifier will label.
const DefaultMinWords = 5

// Rules is a deterministic keyword-vote classifier.
type Rules struct {
	version  string
	labels   []string
	index    map[string][]int
	minWords int
	logger   *slog.Logger
}

var _ ports.Classifier = (*Rules)(nil)

// NewRules compiles rs into a keyword index. An empty ruleset falls back to DefaultRuleset.
func NewRules(rs Ruleset, minWords int, logger *slog.Logger) (*Rules, error) {
	if len(rs.Labels) == 0 {
		rs = DefaultRuleset()
	}
	rs.Labels = append([]Label(nil), rs.Labels...)
	if err := rs.normalize(); err != nil {
		return nil, err
	}
	if minWords <= 0 {
		minWords = DefaultMinWords
	}

	r := &Rules{
		version:  rs.Version,
		labels:   make([]string, len(rs.Labels)),
		index:    make(map[string][]int),
		minWords: minWords,
		logger:   logger,
	}
	for i, label := range rs.Labels {
		r.labels[i] = label.Name
		for _, kw := range label.Keywords {
			if !containsIndex(r.index[kw], i) {
				r.index[kw] = append(r.index[kw], i)
			}
		}
	}
	return r, nil
}

// Version reports the ruleset version the classifier was built from.
func (r *Rules) Version() string { return r.version }

// Classify returns the label with the most keyword hits. It never fails.
func (r *Rules) Classify(_ context.Context, text string) (string, error) {
	words := Tokenize(text)
	if len(words) < r.minWords {
		return domain.UncategorizedLabel, nil
	}

	scores := make([]int, len(r.labels))
	for _, w := range words {
		for _, i := range r.index[w] {
			scores[i]++
		}
	}

	best, bestScore := -1, 0
	for i, score := range scores {
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return domain.UncategorizedLabel, nil
	}

	if r.logger != nil {
		r.logger.Debug("text classified", "label", r.labels[best], "score", bestScore, "words", len(words))
	}
	return r.labels[best], nil
}

// Tokenize lower-cases text and splits it into words. Hyphens inside a word are kept.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

func containsIndex(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
