package domain

// ActionKind identifies the reversible moderation actions.
type ActionKind string

const (
	// ActionStrike is a warning plus strike increment.
	ActionStrike ActionKind = "strike"
	// ActionRemove is a removal from the group (with soft or hard ban).
	ActionRemove ActionKind = "remove"
)

// ModAction records the most recent escalation so it can be undone.
// At most one exists at a time; each new escalation overwrites it.
type ModAction struct {
	Kind     ActionKind `json:"action"`
	UserName string     `json:"user"`
	UserID   string     `json:"user_id"`
}
