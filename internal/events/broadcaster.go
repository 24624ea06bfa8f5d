// Package events distributes moderation events to live subscribers.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Type identifies a moderation event.
type Type string

const (
	// TypeFlagged is emitted when the classifier marks a message as spam.
	TypeFlagged Type = "message_flagged"
	// TypeWarning is emitted when a strike warning is issued.
	TypeWarning Type = "warning"
	// TypeRemoval is emitted when a user is removed from the group.
	TypeRemoval Type = "removal"
	// TypeRemovalFailed is emitted when a removal attempt fails.
	TypeRemovalFailed Type = "removal_failed"
	// TypeUndo is emitted when an admin reverses the last action.
	TypeUndo Type = "undo"
	// TypeIgnoreAdded is emitted when a name joins the ignore list.
	TypeIgnoreAdded Type = "ignore_added"
	// TypeManualBan is emitted for admin-issued bans.
	TypeManualBan Type = "manual_ban"
	// TypeSweepHit is emitted when the subgroup sweep finds spam.
	TypeSweepHit Type = "sweep_hit"
	// TypeInviteDecision is emitted when a join request is decided.
	TypeInviteDecision Type = "invite_decision"
)

// Event is a single moderation event pushed to subscribers.
type Event struct {
	Type      Type      `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	UserName  string    `json:"user_name,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Strikes   int       `json:"strikes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const subscriberBuffer = 64

// Broadcaster fans moderation events out to subscribers. Publishing never
// blocks: a subscriber that cannot keep up has events dropped.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel function must
// be called to release the subscription.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber, stamping the time when
// unset.
func (b *Broadcaster) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("dropping event for slow subscriber", "type", ev.Type)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
