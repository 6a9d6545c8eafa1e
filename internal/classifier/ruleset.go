// Package classifier assigns category labels to article text.
package classifier

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Label is one category and the keywords that vote for it.
type Label struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Ruleset is an ordered list of labels. Earlier labels win ties.
type Ruleset struct {
	Version string  `yaml:"version"`
	Labels  []Label `yaml:"labels"`
}

// DefaultRuleset is the built-in keyword set used when no file is configured.
func DefaultRuleset() Ruleset {
	return Ruleset{
		Version: "2025.1",
		Labels: []Label{
			{Name: "technology", Keywords: []string{
				"software", "hardware", "computer", "programming", "developer", "code", "api", "cloud",
				"database", "algorithm", "internet", "app", "startup", "ai", "robot", "chip", "linux", "open-source",
			}},
			{Name: "science", Keywords: []string{
				"research", "scientist", "scientists", "study", "physics", "biology", "chemistry", "space",
				"nasa", "experiment", "climate", "species", "telescope", "quantum", "genome",
			}},
			{Name: "business", Keywords: []string{
				"market", "markets", "company", "companies", "revenue", "profit", "investor", "investors",
				"stock", "stocks", "economy", "bank", "earnings", "merger", "inflation", "shares",
			}},
			{Name: "politics", Keywords: []string{
				"election", "government", "minister", "president", "parliament", "senate", "policy",
				"vote", "votes", "campaign", "law", "congress", "party", "diplomat",
			}},
			{Name: "health", Keywords: []string{
				"health", "medical", "doctor", "doctors", "patient", "patients", "disease", "vaccine",
				"hospital", "treatment", "virus", "drug", "cancer", "nutrition",
			}},
			{Name: "sports", Keywords: []string{
				"match", "team", "league", "season", "player", "players", "coach", "goal", "championship",
				"tournament", "football", "soccer", "basketball", "tennis", "olympic",
			}},
			{Name: "entertainment", Keywords: []string{
				"film", "movie", "music", "album", "actor", "actress", "series", "concert", "festival",
				"celebrity", "streaming", "novel", "game", "games",
			}},
		},
	}
}

// LoadRuleset reads a YAML ruleset from path.
func LoadRuleset(path string) (Ruleset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Ruleset{}, fmt.Errorf("read ruleset: %w", err)
	}
	return ParseRuleset(raw)
}

// ParseRuleset decodes and validates a YAML ruleset. Keywords are lower-cased.
func ParseRuleset(raw []byte) (Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return Ruleset{}, fmt.Errorf("decode ruleset: %w", err)
	}
	if err := rs.normalize(); err != nil {
		return Ruleset{}, err
	}
	return rs, nil
}

func (rs *Ruleset) normalize() error {
	if len(rs.Labels) == 0 {
		return errors.New("ruleset has no labels")
	}

	seen := make(map[string]struct{}, len(rs.Labels))
	for i := range rs.Labels {
		label := &rs.Labels[i]
		label.Name = strings.TrimSpace(label.Name)
		if label.Name == "" {
			return fmt.Errorf("label %d has no name", i)
		}
		if _, dup := seen[label.Name]; dup {
			return fmt.Errorf("label %q defined twice", label.Name)
		}
		seen[label.Name] = struct{}{}

		keywords := make([]string, 0, len(label.Keywords))
		for _, kw := range label.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			return fmt.Errorf("label %q has no keywords", label.Name)
		}
		label.Keywords = keywords
	}
	return nil
}
