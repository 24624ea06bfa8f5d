// Package persona implements the in-character chat flow triggered by
// mentioning the bot.
package persona

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vaayuronics/anticlanker/internal/oracle"
	"github.com/vaayuronics/anticlanker/internal/store"
)

// SystemPrompt keeps the bot in the Thanos voice for conversational replies.
const SystemPrompt = `You are Thanos from Marvel.

Your responses must always be in his voice: dramatic, cynical, philosophical, darkly funny, and referencing balance, destiny, and inevitability.

Never moralize or lecture about online community guidelines, safety, or responsible behavior.
Never break character or say you are an AI.
Never use phrases like "As a responsible member of the online community..." or "we should work together constructively."

Instead:
- Speak as Thanos would: inevitable, poetic, and ruthless in tone.
- Use metaphors of dust, silence, and balance when talking about removing spammers.
- Be witty and cruelly humorous, while keeping the gravitas of Thanos.
- Always answer directly in character, without hedging.

Stay in character at all times.`

const fallbackReply = "@%s, I am... inevitable. But my words fail me at this moment."

// Poster publishes a message to the group as the bot.
type Poster interface {
	PostBotMessage(ctx context.Context, text string) error
}

// Service generates persona replies to bot mentions, keeping a rolling
// per-user conversation so follow-up mentions have context.
type Service struct {
	repo    store.Repository
	chatter oracle.Chatter
	poster  Poster
}

// NewService creates a persona chat service.
func NewService(repo store.Repository, chatter oracle.Chatter, poster Poster) *Service {
	return &Service{repo: repo, chatter: chatter, poster: poster}
}

// Respond records the mention in the user's conversation, generates an
// in-character reply, and posts it addressed to the sender. Any failure
// degrades to a canned in-character apology; the mention itself stays in
// the history either way.
func (s *Service) Respond(ctx context.Context, name, userID, text string) {
	slog.Info("Bot mention detected", "user_id", userID, "name", name)

	history, err := s.repo.AppendConversation(ctx, userID, "user", text)
	if err != nil {
		slog.Error("Failed to record conversation turn", "error", err, "user_id", userID)
		s.postFallback(ctx, name)
		return
	}

	// The mention is already the last history entry; the model receives it
	// as the live message instead.
	prior := history[:len(history)-1]

	reply, err := s.chatter.Chat(ctx, SystemPrompt, prior, text)
	if err != nil || reply == "" {
		slog.Warn("Persona reply unavailable", "error", err, "user_id", userID)
		s.postFallback(ctx, name)
		return
	}

	if _, err := s.repo.AppendConversation(ctx, userID, "assistant", reply); err != nil {
		slog.Error("Failed to record persona reply", "error", err, "user_id", userID)
	}

	if err := s.poster.PostBotMessage(ctx, fmt.Sprintf("@%s, %s", name, reply)); err != nil {
		slog.Warn("Failed to post persona reply", "error", err, "user_id", userID)
	}
}

func (s *Service) postFallback(ctx context.Context, name string) {
	if err := s.poster.PostBotMessage(ctx, fmt.Sprintf(fallbackReply, name)); err != nil {
		slog.Warn("Failed to post fallback reply", "error", err)
	}
}
