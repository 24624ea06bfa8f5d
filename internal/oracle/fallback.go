package oracle

import (
	"context"
	"log/slog"
	"strings"
)

// KeywordFallback wraps a Classifier with a keyword heuristic used only
// when the backend is unreachable. With no keywords configured it passes
// transport errors through unchanged, and the pipeline's fail-open policy
// applies.
type KeywordFallback struct {
	inner    Classifier
	keywords []string // lower-cased
}

// NewKeywordFallback wraps inner with a keyword substitute classifier.
func NewKeywordFallback(inner Classifier, keywords []string) *KeywordFallback {
	return &KeywordFallback{inner: inner, keywords: keywords}
}

// Classify delegates to the wrapped classifier and substitutes a keyword
// match verdict when that call fails at the transport level.
func (k *KeywordFallback) Classify(ctx context.Context, text string) (Classification, error) {
	result, err := k.inner.Classify(ctx, text)
	if err == nil || len(k.keywords) == 0 {
		return result, err
	}

	slog.Warn("classifier unreachable, using keyword fallback", "error", err)
	lower := strings.ToLower(text)
	for _, kw := range k.keywords {
		if strings.Contains(lower, kw) {
			return Classification{Verdict: VerdictYes, Raw: "keyword:" + kw}, nil
		}
	}
	return Classification{Verdict: VerdictNo, Raw: "keyword:none"}, nil
}
