// Package oracle implements the spam classification capability backed by a
// language model.
package oracle

import (
	"context"
	"strings"

	"github.com/vaayuronics/anticlanker/internal/domain"
)

// Verdict is the binary classification outcome for a message.
type Verdict string

const (
	// VerdictYes means the message was classified as spam.
	VerdictYes Verdict = "Yes"
	// VerdictNo means the message was classified as not spam.
	VerdictNo Verdict = "No"
	// VerdictUnknown means the classification could not be determined.
	// Policy is fail-open: unknown never escalates.
	VerdictUnknown Verdict = "Unknown"
)

// Classification is a verdict plus the raw model output that produced it.
type Classification struct {
	Verdict Verdict
	Raw     string
}

// Classifier decides whether a message is spam. Implementations return a
// transport-level error only when the backend is unreachable; an available
// backend that produces unparseable output yields VerdictUnknown instead.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// Chatter generates free-form persona replies from a conversation history.
type Chatter interface {
	Chat(ctx context.Context, system string, history []domain.StoredMessage, message string) (string, error)
}

// ParseVerdict extracts a Yes/No label from raw model output. It accepts a
// leading or trailing label, preferring the trailing one (reasoning models
// often restate the question before answering), and falls back to a
// contains-yes-without-no check when the model added extra text.
func ParseVerdict(raw string) Verdict {
	content := strings.ToLower(strings.TrimSpace(stripThinking(raw)))
	if content == "" {
		return VerdictUnknown
	}

	fields := strings.FieldsFunc(content, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})
	if len(fields) == 0 {
		return VerdictUnknown
	}

	switch fields[len(fields)-1] {
	case "yes":
		return VerdictYes
	case "no":
		return VerdictNo
	}
	switch fields[0] {
	case "yes":
		return VerdictYes
	case "no":
		return VerdictNo
	}

	hasYes := strings.Contains(content, "yes")
	hasNo := strings.Contains(content, "no")
	if hasYes && !hasNo {
		return VerdictYes
	}
	if hasNo && !hasYes {
		return VerdictNo
	}
	return VerdictUnknown
}

// stripThinking removes a <think>...</think> block emitted by reasoning
// models, leaving only the final answer.
func stripThinking(raw string) string {
	end := strings.Index(raw, "</think>")
	if end == -1 {
		return raw
	}
	return raw[end+len("</think>"):]
}
