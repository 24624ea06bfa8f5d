package moderation

import (
	"sync"

	"github.com/vaayuronics/anticlanker/internal/domain"
)

// UndoRegister holds the single most recent reversible action. Each new
// escalation overwrites the slot; taking the action consumes it, so a
// second consecutive undo finds nothing rather than replaying the reversal.
type UndoRegister struct {
	mu   sync.Mutex
	last *domain.ModAction
}

// NewUndoRegister creates an empty register.
func NewUndoRegister() *UndoRegister {
	return &UndoRegister{}
}

// Record overwrites the slot with the latest action.
func (u *UndoRegister) Record(action domain.ModAction) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.last = &action
}

// Take returns the recorded action and clears the slot. The second return
// is false when there is nothing to undo.
func (u *UndoRegister) Take() (domain.ModAction, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.last == nil {
		return domain.ModAction{}, false
	}
	action := *u.last
	u.last = nil
	return action, true
}
