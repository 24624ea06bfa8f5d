package events

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
)

// WebSocketHandler streams moderation events to connected operators.
type WebSocketHandler struct {
	broadcaster *Broadcaster
}

// NewWebSocketHandler creates a handler over the given broadcaster.
func NewWebSocketHandler(b *Broadcaster) *WebSocketHandler {
	return &WebSocketHandler{broadcaster: b}
}

// ServeHTTP upgrades the connection and writes each published event as a
// JSON text frame until the client disconnects.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Info("Event feed connection request", "ip", r.RemoteAddr)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept event feed websocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "feed closed"); closeErr != nil {
			slog.Debug("Failed to close event feed websocket", "error", closeErr)
		}
	}()

	// CloseRead handles control frames and cancels the context when the
	// client goes away; the feed is write-only.
	ctx := ws.CloseRead(r.Context())

	events, cancel := h.broadcaster.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				slog.Warn("Failed to marshal event", "error", err, "type", ev.Type)
				continue
			}
			if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
				slog.Debug("Event feed write failed", "error", err)
				return
			}
		}
	}
}
