package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vaayuronics/anticlanker/internal/domain"
	"github.com/vaayuronics/anticlanker/internal/events"
	"github.com/vaayuronics/anticlanker/internal/store"
)

// UndoStatus reports the outcome of an undo request.
type UndoStatus string

const (
	// UndoNothing means there was no action to reverse.
	UndoNothing UndoStatus = "no_action_to_undo"
	// UndoneStrike means the last strike was decremented.
	UndoneStrike UndoStatus = "strike_undone"
	// UndoneRemoval means the soft ban from the last removal was lifted.
	UndoneRemoval UndoStatus = "removal_undone"
)

// Engine applies the escalating punishment policy: warnings up to the
// configured strike threshold, removal beyond it.
type Engine struct {
	repo        store.Repository
	platform    Platform
	undo        *UndoRegister
	broadcaster *events.Broadcaster
	warnStrikes int
	hardBans    bool

	// userLocks serializes reckonings per user so the increment-then-branch
	// sequence cannot interleave and under-count strikes.
	userLocks sync.Map
}

// NewEngine creates an escalation engine.
func NewEngine(repo store.Repository, platform Platform, undo *UndoRegister, broadcaster *events.Broadcaster, warnStrikes int, hardBans bool) *Engine {
	return &Engine{
		repo:        repo,
		platform:    platform,
		undo:        undo,
		broadcaster: broadcaster,
		warnStrikes: warnStrikes,
		hardBans:    hardBans,
	}
}

// Reckon escalates a confirmed violation: it records the strike, then
// either warns the user or removes them from the group. Platform calls are
// best-effort; their failures are logged and announced but never abort the
// remaining steps.
func (e *Engine) Reckon(ctx context.Context, name, userID, text, messageID string) {
	lock, _ := e.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mutex := lock.(*sync.Mutex)
	mutex.Lock()
	defer mutex.Unlock()

	count, err := e.repo.IncrementStrikes(ctx, userID)
	if err != nil {
		// No recorded strike means no punishment; the ledger is the
		// source of truth for escalation decisions.
		slog.Error("Failed to record strike, skipping escalation", "error", err, "user_id", userID)
		return
	}

	slog.Info("Violation confirmed", "user_id", userID, "name", name, "strikes", count, "message_id", messageID)
	e.broadcaster.Publish(events.Event{Type: events.TypeFlagged, UserID: userID, UserName: name, Detail: text, Strikes: count})

	if count <= e.warnStrikes {
		e.warn(ctx, name, userID, text, messageID, count)
		return
	}
	e.remove(ctx, name, userID, messageID)
}

func (e *Engine) warn(ctx context.Context, name, userID, text, messageID string, count int) {
	notice := fmt.Sprintf("@%s, warning: spam detected, issuing reckoning %d for %q.", name, count, text)
	if err := e.platform.SendDM(ctx, userID, notice); err != nil {
		slog.Warn("Failed to send warning DM", "error", err, "user_id", userID)
	}
	if err := e.platform.DeleteMessage(ctx, messageID); err != nil {
		slog.Warn("Failed to delete offending message", "error", err, "message_id", messageID)
	}

	e.undo.Record(domain.ModAction{Kind: domain.ActionStrike, UserName: name, UserID: userID})
	e.broadcaster.Publish(events.Event{Type: events.TypeWarning, UserID: userID, UserName: name, Strikes: count})
	slog.Info("Warning issued", "user_id", userID, "name", name, "strikes", count)
}

func (e *Engine) remove(ctx context.Context, name, userID, messageID string) {
	membershipID, err := e.platform.GetMembershipID(ctx, userID)
	if err != nil {
		slog.Warn("Failed to resolve membership", "error", err, "user_id", userID)
	}

	// Delete regardless of whether the removal can proceed.
	if err := e.platform.DeleteMessage(ctx, messageID); err != nil {
		slog.Warn("Failed to delete offending message", "error", err, "message_id", messageID)
	}

	// Record the undo target before attempting removal so a partial
	// failure still leaves something to reverse.
	e.undo.Record(domain.ModAction{Kind: domain.ActionRemove, UserName: name, UserID: userID})

	if membershipID == "" {
		e.announceRemovalFailure(ctx, name, userID)
		return
	}
	if err := e.platform.RemoveMember(ctx, membershipID); err != nil {
		slog.Warn("Failed to remove member", "error", err, "user_id", userID, "membership_id", membershipID)
		e.announceRemovalFailure(ctx, name, userID)
		return
	}

	if err := e.repo.ClearStrikes(ctx, userID); err != nil {
		slog.Error("Failed to clear strikes after removal", "error", err, "user_id", userID)
	}
	if err := e.platform.PostBotMessage(ctx, fmt.Sprintf("@%s has been thanos snapped.", name)); err != nil {
		slog.Warn("Failed to announce removal", "error", err, "user_id", userID)
	}
	if err := e.platform.SendDM(ctx, userID, fmt.Sprintf("@%s, you have been removed from the group due to repeated spam violations.", name)); err != nil {
		slog.Warn("Failed to notify removed user", "error", err, "user_id", userID)
	}

	e.applyBan(ctx, name, userID, membershipID)
	e.broadcaster.Publish(events.Event{Type: events.TypeRemoval, UserID: userID, UserName: name})
	slog.Info("User removed", "user_id", userID, "name", name)
}

// applyBan hard-bans when enabled and the platform call succeeds; otherwise
// it records a soft ban so the invite worker denies re-admission.
func (e *Engine) applyBan(ctx context.Context, name, userID, membershipID string) {
	if e.hardBans {
		err := e.platform.BanMembership(ctx, membershipID)
		if err == nil {
			if postErr := e.platform.PostBotMessage(ctx, fmt.Sprintf("@%s has been banned from rejoining.", name)); postErr != nil {
				slog.Warn("Failed to announce ban", "error", postErr, "user_id", userID)
			}
			return
		}
		slog.Warn("Hard ban failed, falling back to soft ban", "error", err, "user_id", userID)
	}
	if err := e.repo.AddBanned(ctx, userID); err != nil {
		slog.Error("Failed to record soft ban", "error", err, "user_id", userID)
	}
}

func (e *Engine) announceRemovalFailure(ctx context.Context, name, userID string) {
	if err := e.platform.PostBotMessage(ctx, fmt.Sprintf("Failed to remove @%s, please snap manually.", name)); err != nil {
		slog.Warn("Failed to announce removal failure", "error", err, "user_id", userID)
	}
	e.broadcaster.Publish(events.Event{Type: events.TypeRemovalFailed, UserID: userID, UserName: name})
	slog.Warn("Removal failed", "user_id", userID, "name", name)
}

// UndoLast reverses the most recent action. The undo slot is consumed on
// first use: calling again without a new escalation is a no-op.
func (e *Engine) UndoLast(ctx context.Context) UndoStatus {
	action, ok := e.undo.Take()
	if !ok {
		slog.Info("Undo requested with nothing to undo")
		return UndoNothing
	}

	switch action.Kind {
	case domain.ActionStrike:
		count, err := e.repo.DecrementStrikes(ctx, action.UserID)
		if err != nil {
			slog.Error("Failed to decrement strikes on undo", "error", err, "user_id", action.UserID)
		}
		if err := e.platform.PostBotMessage(ctx, fmt.Sprintf("@%s, I have used the time stone to undo your last strike.", action.UserName)); err != nil {
			slog.Warn("Failed to announce strike undo", "error", err, "user_id", action.UserID)
		}
		e.broadcaster.Publish(events.Event{Type: events.TypeUndo, UserID: action.UserID, UserName: action.UserName, Strikes: count})
		return UndoneStrike

	case domain.ActionRemove:
		// Membership itself cannot be restored from here; lifting the soft
		// ban makes the user eligible to rejoin when re-invited.
		if _, err := e.repo.RemoveBanned(ctx, action.UserID); err != nil {
			slog.Error("Failed to lift soft ban on undo", "error", err, "user_id", action.UserID)
		}
		if err := e.platform.PostBotMessage(ctx, fmt.Sprintf("@%s soul has been restored with the soul stone, they are eligible to rejoin.", action.UserName)); err != nil {
			slog.Warn("Failed to announce removal undo", "error", err, "user_id", action.UserID)
		}
		e.broadcaster.Publish(events.Event{Type: events.TypeUndo, UserID: action.UserID, UserName: action.UserName})
		return UndoneRemoval
	}

	slog.Error("Unknown action kind in undo register", "kind", action.Kind)
	return UndoNothing
}
