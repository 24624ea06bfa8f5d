package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vaayuronics/anticlanker/internal/domain"
)

// ClassifierSystemPrompt instructs the model to act as a strict binary
// spam classifier for the community.
const ClassifierSystemPrompt = "You are a strict binary classifier for messages in the UT Austin Pickleball Club GroupMe.\n" +
	"Task: Determine if a message is spam relevant to the group. Output exactly one word: Yes or No. No punctuation, no explanations.\n\n" +
	"Label as Yes (spam) when the message is about buying/selling/trading tickets or passes for events unrelated to the club, especially if it includes phone numbers, 'text/DM me', prices, or payment apps (Venmo, Cash App, Zelle, PayPal). Also treat ticket giveaways/resales and bulk season tickets as spam.\n\n" +
	"Label as No (not spam) for: normal conversation, club announcements, practice or event info, officer communications (including asking members to text or Venmo/Zelle for club dues/fees/merch), and posts clearly tied to official club activities."

const (
	exampleFramingStart = "Here are labeled examples. Treat assistant labels 'Yes' as spam and 'No' as not spam."
	exampleFramingEnd   = "End of examples. Classify the next message. Respond with only Yes or No."
)

// ExampleSource supplies labeled in-context examples for classification.
type ExampleSource interface {
	ListTrainingExamples(ctx context.Context) ([]domain.TrainingExample, error)
}

// OllamaClient talks to an Ollama server's chat API.
type OllamaClient struct {
	host     string
	model    string
	client   *http.Client
	examples ExampleSource
}

// NewOllamaClient creates a classifier backed by an Ollama host. The
// examples source may be nil, in which case classification runs without
// in-context examples.
func NewOllamaClient(host, model string, examples ExampleSource) *OllamaClient {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaClient{
		host:     host,
		model:    model,
		examples: examples,
		client: &http.Client{
			// Model inference can be slow; this bounds a hung backend,
			// not normal latency.
			Timeout: 2 * time.Minute,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Think    bool          `json:"think"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Classify asks the model whether a message is spam. Examples from the
// training store are framed between leading and trailing instructions.
// A transport failure is returned as an error; unparseable model output
// yields VerdictUnknown.
func (c *OllamaClient) Classify(ctx context.Context, text string) (Classification, error) {
	messages := []chatMessage{{Role: "system", Content: ClassifierSystemPrompt}}

	if c.examples != nil {
		examples, err := c.examples.ListTrainingExamples(ctx)
		if err != nil {
			// Examples only sharpen the classifier; classify without them.
			slog.Warn("failed to load training examples", "error", err)
		} else if len(examples) > 0 {
			messages = append(messages, chatMessage{Role: "user", Content: exampleFramingStart})
			for _, ex := range examples {
				messages = append(messages, chatMessage{Role: ex.Role, Content: ex.Content})
			}
			messages = append(messages, chatMessage{Role: "user", Content: exampleFramingEnd})
		}
	}

	messages = append(messages, chatMessage{Role: "user", Content: text})

	raw, err := c.chat(ctx, messages)
	if err != nil {
		return Classification{Verdict: VerdictUnknown}, err
	}
	return Classification{Verdict: ParseVerdict(raw), Raw: raw}, nil
}

// Chat generates a persona reply from a system prompt and conversation
// history. The reply has any thinking block stripped.
func (c *OllamaClient) Chat(ctx context.Context, system string, history []domain.StoredMessage, message string) (string, error) {
	messages := make([]chatMessage, 0, len(history)+2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	for _, m := range history {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: message})

	raw, err := c.chat(ctx, messages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stripThinking(raw)), nil
}

func (c *OllamaClient) chat(ctx context.Context, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama chat request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close ollama response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(payload))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return result.Message.Content, nil
}

type tagsResponse struct {
	Models []struct {
		Model string `json:"model"`
	} `json:"models"`
}

// Available reports whether the configured model is present on the host.
func (c *OllamaClient) Available(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return false, fmt.Errorf("create tags request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("ollama tags request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close ollama response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var result tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decode tags response: %w", err)
	}
	for _, m := range result.Models {
		if m.Model == c.model {
			return true, nil
		}
	}
	return false, nil
}

// Pull downloads the configured model onto the host.
func (c *OllamaClient) Pull(ctx context.Context) error {
	body, err := json.Marshal(map[string]any{"name": c.model, "stream": false})
	if err != nil {
		return fmt.Errorf("marshal pull request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Pulling a large model takes far longer than chat; use a bare client
	// with no timeout and rely on the caller's context.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("ollama pull request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close ollama response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama pull returned status %d: %s", resp.StatusCode, string(payload))
	}
	return nil
}
