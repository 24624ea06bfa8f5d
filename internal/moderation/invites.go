package moderation

import (
	"context"
	"log/slog"
	"time"

	"github.com/vaayuronics/anticlanker/internal/events"
	"github.com/vaayuronics/anticlanker/internal/store"
)

// StartInviteWorker runs a background goroutine that periodically screens
// pending join requests: users in the banned set are denied, everyone else
// is approved. The loop survives individual iteration failures and stops
// only when ctx is canceled.
func StartInviteWorker(ctx context.Context, repo store.Repository, platform Platform, broadcaster *events.Broadcaster, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Invite worker started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				screenPendingMemberships(ctx, repo, platform, broadcaster)
			case <-ctx.Done():
				slog.Info("Invite worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func screenPendingMemberships(ctx context.Context, repo store.Repository, platform Platform, broadcaster *events.Broadcaster) {
	pending, err := platform.ListPendingMemberships(ctx)
	if err != nil {
		slog.Error("Invite worker failed to list pending memberships", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	slog.Info("Invite worker found pending memberships", "count", len(pending))

	for _, p := range pending {
		banned, err := repo.IsBanned(ctx, p.UserID)
		if err != nil {
			slog.Error("Invite worker failed to check banned set", "error", err, "user_id", p.UserID)
			continue
		}

		approve := !banned
		if err := platform.ApproveMembership(ctx, p.ID, approve); err != nil {
			slog.Warn("Invite worker failed to decide membership", "error", err, "user_id", p.UserID, "approve", approve)
			continue
		}

		detail := "approved"
		if !approve {
			detail = "denied (banned)"
		}
		broadcaster.Publish(events.Event{Type: events.TypeInviteDecision, UserID: p.UserID, UserName: p.Nickname, Detail: detail})
		slog.Info("Invite worker decided membership", "user_id", p.UserID, "nickname", p.Nickname, "approved", approve)
	}
}
