package classifier

import (
	"context"
	"log/slog"
	"strings"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/ports"
)

// Fallback consults primary first and secondary whenever primary errors or returns nothing.
// The result is always a label; errors never escape.
type Fallback struct {
	primary   ports.Classifier
	secondary ports.Classifier
	logger    *slog.Logger
}

var _ ports.Classifier = (*Fallback)(nil)

// NewFallback chains two classifiers. Either may be nil.
func NewFallback(primary, secondary ports.Classifier, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Classify implements ports.Classifier.
func (f *Fallback) Classify(ctx context.Context, text string) (string, error) {
	for _, c := range []ports.Classifier{f.primary, f.secondary} {
		if c == nil {
			continue
		}
		label, err := c.Classify(ctx, text)
		if err != nil {
			if f.logger != nil {
				f.logger.Warn("classifier failed, falling back", "error", err)
			}
			continue
		}
		if label = strings.TrimSpace(label); label != "" {
			return label, nil
		}
	}
	return domain.UncategorizedLabel, nil
}
