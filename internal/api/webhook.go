package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vaayuronics/anticlanker/internal/domain"
	"github.com/vaayuronics/anticlanker/internal/oracle"
)

// Callback is the GroupMe webhook. Every group message arrives here; the
// pipeline decides, in priority order, whether the message is the bot's
// own, a persona mention, an admin command, exempt, or a classification
// candidate. Exactly one branch responds.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	var msg domain.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	ctx := r.Context()

	// The bot's own posts echo back through the webhook; moderating them
	// would loop.
	if msg.UserID == "0" || msg.UserID == h.cfg.BotID || msg.SenderType == "bot" {
		JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	slog.Info("Message received", "user_id", msg.UserID, "name", msg.Name, "message_id", msg.MessageID)

	lower := strings.ToLower(msg.Text)

	// Mentions take priority over everything else, including commands.
	if strings.Contains(lower, h.cfg.MentionToken) {
		h.persona.Respond(ctx, msg.Name, msg.UserID, msg.Text)
		JSON(w, http.StatusOK, map[string]string{"status": "bot_mentioned"})
		return
	}

	if h.cfg.IsAdminID(msg.UserID) || h.cfg.IsAdminName(msg.Name) {
		if status, handled := h.interpreter.Handle(ctx, msg.Text); handled {
			JSON(w, http.StatusOK, map[string]string{"status": string(status)})
			return
		}
	}

	// Ignored users are exempt from classification; their messages are
	// acknowledged with a like instead.
	if h.ignore.IsIgnored(ctx, msg.Name) {
		slog.Info("Ignored user, liking message", "user_id", msg.UserID, "name", msg.Name)
		if err := h.platform.LikeMessage(ctx, msg.MessageID); err != nil {
			slog.Warn("Failed to like ignored user's message", "error", err, "message_id", msg.MessageID)
		}
		JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if strings.TrimSpace(msg.Text) == "" {
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	result, err := h.classifier.Classify(ctx, msg.Text)
	if err != nil {
		// Fail open: an unreachable oracle never punishes anyone.
		slog.Error("Classification failed, letting message through", "error", err, "message_id", msg.MessageID)
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if result.Verdict != oracle.VerdictYes {
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	h.engine.Reckon(ctx, msg.Name, msg.UserID, msg.Text, msg.MessageID)
	h.sweeper.Schedule(msg.Name, msg.UserID)

	JSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
