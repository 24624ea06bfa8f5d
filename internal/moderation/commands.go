package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vaayuronics/anticlanker/internal/events"
)

// CommandStatus reports how an in-band admin command was handled.
type CommandStatus string

const (
	// CmdNone means the message contained no recognized command.
	CmdNone CommandStatus = ""
	// CmdUndo means the undo register was invoked.
	CmdUndo CommandStatus = "undo"
	// CmdIgnoreAdded means a name was added to the ignore list.
	CmdIgnoreAdded CommandStatus = "ignored_added"
	// CmdIgnoreExists means the name was already ignored (or invalid).
	CmdIgnoreExists CommandStatus = "ignored_exists"
	// CmdBanned means a manual ban succeeded.
	CmdBanned CommandStatus = "banned"
	// CmdBanFailed means the named member could not be banned.
	CmdBanFailed CommandStatus = "ban_failed"
)

// Interpreter scans admin messages for the in-band command grammar:
// @undo, @ignore <name>, @ban <name>. Commands take priority over spam
// classification for that message.
type Interpreter struct {
	engine      *Engine
	ignore      *IgnoreRegistry
	platform    Platform
	resolver    MemberResolver
	broadcaster *events.Broadcaster
}

// NewInterpreter creates an admin command interpreter.
func NewInterpreter(engine *Engine, ignore *IgnoreRegistry, platform Platform, resolver MemberResolver, broadcaster *events.Broadcaster) *Interpreter {
	return &Interpreter{
		engine:      engine,
		ignore:      ignore,
		platform:    platform,
		resolver:    resolver,
		broadcaster: broadcaster,
	}
}

// Handle scans the message text for a command and executes it. The second
// return is false when no command token was found, in which case the
// message falls through to classification. Callers must have verified the
// sender is an admin.
func (i *Interpreter) Handle(ctx context.Context, text string) (CommandStatus, bool) {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "@undo"):
		status := i.engine.UndoLast(ctx)
		slog.Info("Admin undo command", "result", status)
		return CmdUndo, true

	case strings.Contains(lower, "@ignore"):
		return i.handleIgnore(ctx, lower), true

	case strings.Contains(lower, "@ban"):
		return i.handleBan(ctx, lower), true
	}
	return CmdNone, false
}

// argumentAfterCommand extracts the name portion of "@ignore First Last"
// style commands: everything after the first space, trimmed.
func argumentAfterCommand(lower string) string {
	idx := strings.Index(lower, " ")
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(lower[idx+1:])
}

func (i *Interpreter) handleIgnore(ctx context.Context, lower string) CommandStatus {
	name := argumentAfterCommand(lower)
	if name == "" {
		// Malformed command; stay silent per policy.
		return CmdIgnoreExists
	}

	added, err := i.ignore.Add(ctx, name)
	if err != nil {
		slog.Error("Failed to add to ignore list", "error", err, "name", name)
		return CmdIgnoreExists
	}
	if !added {
		i.announce(ctx, fmt.Sprintf("'%s' is already in the ignore list or invalid.", name))
		slog.Info("Ignore list add skipped", "name", name)
		return CmdIgnoreExists
	}

	i.announce(ctx, fmt.Sprintf("Added '%s' to the ignore list.", name))
	i.broadcaster.Publish(events.Event{Type: events.TypeIgnoreAdded, UserName: name})
	slog.Info("Added to ignore list", "name", name)
	return CmdIgnoreAdded
}

func (i *Interpreter) handleBan(ctx context.Context, lower string) CommandStatus {
	name := argumentAfterCommand(lower)
	if name == "" {
		return CmdBanFailed
	}

	membershipID, err := i.resolver.GetMembershipIDByName(ctx, name)
	if err != nil {
		slog.Error("Failed to resolve member for ban", "error", err, "name", name)
	}
	if membershipID == "" {
		i.announce(ctx, fmt.Sprintf("User '%s' not found or already banned.", name))
		return CmdBanFailed
	}

	if err := i.platform.BanMembership(ctx, membershipID); err != nil {
		slog.Warn("Manual ban failed", "error", err, "name", name)
		i.announce(ctx, fmt.Sprintf("User '%s' not found or already banned.", name))
		return CmdBanFailed
	}

	i.announce(ctx, fmt.Sprintf("Banned user '%s'.", name))
	i.broadcaster.Publish(events.Event{Type: events.TypeManualBan, UserName: name})
	slog.Info("Manual ban applied", "name", name)
	return CmdBanned
}

func (i *Interpreter) announce(ctx context.Context, text string) {
	if err := i.platform.PostBotMessage(ctx, text); err != nil {
		slog.Warn("Failed to post command acknowledgment", "error", err)
	}
}
