package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/vaayuronics/anticlanker/internal/events"
)

func newTestInterpreter(t *testing.T, platform *fakePlatform) (*Interpreter, *Engine) {
	t.Helper()
	repo := newTestRepo(t)
	broadcaster := events.NewBroadcaster()
	engine := NewEngine(repo, platform, NewUndoRegister(), broadcaster, 1, false)
	ignore := NewIgnoreRegistry(repo)
	return NewInterpreter(engine, ignore, platform, platform, broadcaster), engine
}

func TestHandleNoCommand(t *testing.T) {
	t.Parallel()
	interp, _ := newTestInterpreter(t, newFakePlatform())

	status, handled := interp.Handle(context.Background(), "has anyone seen my paddle?")
	if handled {
		t.Error("Expected message to fall through to classification")
	}
	if status != CmdNone {
		t.Errorf("Expected CmdNone, got %v", status)
	}
}

func TestHandleUndoCommand(t *testing.T) {
	t.Parallel()
	platform := newFakePlatform()
	interp, engine := newTestInterpreter(t, platform)
	ctx := context.Background()

	engine.Reckon(ctx, "Alex", "111", "spam", "msg-1")

	status, handled := interp.Handle(ctx, "@undo")
	if !handled || status != CmdUndo {
		t.Fatalf("Expected undo to be handled, got %v %v", status, handled)
	}
	if platform.postsContaining("time stone") != 1 {
		t.Errorf("Expected undo confirmation posted, got %v", platform.posts)
	}
}

func TestHandleIgnoreCommand(t *testing.T) {
	t.Parallel()
	platform := newFakePlatform()
	interp, _ := newTestInterpreter(t, platform)
	ctx := context.Background()

	status, handled := interp.Handle(ctx, "@ignore Jordan Lee")
	if !handled || status != CmdIgnoreAdded {
		t.Fatalf("Expected ignore add, got %v %v", status, handled)
	}
	if platform.postsContaining("Added 'jordan lee'") != 1 {
		t.Errorf("Expected add acknowledgment, got %v", platform.posts)
	}

	// Repeating the command acknowledges the duplicate instead.
	status, handled = interp.Handle(ctx, "@ignore Jordan Lee")
	if !handled || status != CmdIgnoreExists {
		t.Fatalf("Expected duplicate to be reported, got %v %v", status, handled)
	}
	if platform.postsContaining("already in the ignore list") != 1 {
		t.Errorf("Expected duplicate acknowledgment, got %v", platform.posts)
	}
}

func TestHandleIgnoreWithoutName(t *testing.T) {
	t.Parallel()
	platform := newFakePlatform()
	interp, _ := newTestInterpreter(t, platform)

	status, handled := interp.Handle(context.Background(), "@ignore")
	if !handled || status != CmdIgnoreExists {
		t.Fatalf("Expected malformed command handled silently, got %v %v", status, handled)
	}
	if len(platform.posts) != 0 {
		t.Errorf("Expected no acknowledgment for malformed command, got %v", platform.posts)
	}
}

func TestHandleBanCommand(t *testing.T) {
	t.Parallel()
	platform := newFakePlatform()
	platform.nicknames["jordan lee"] = "m-42"
	interp, _ := newTestInterpreter(t, platform)

	status, handled := interp.Handle(context.Background(), "@ban Jordan Lee")
	if !handled || status != CmdBanned {
		t.Fatalf("Expected ban to succeed, got %v %v", status, handled)
	}
	if len(platform.banned) != 1 || platform.banned[0] != "m-42" {
		t.Errorf("Expected membership m-42 banned, got %v", platform.banned)
	}
	if platform.postsContaining("Banned user 'jordan lee'") != 1 {
		t.Errorf("Expected ban acknowledgment, got %v", platform.posts)
	}
}

func TestHandleBanUnknownMember(t *testing.T) {
	t.Parallel()
	platform := newFakePlatform()
	interp, _ := newTestInterpreter(t, platform)

	status, handled := interp.Handle(context.Background(), "@ban Nobody Here")
	if !handled || status != CmdBanFailed {
		t.Fatalf("Expected ban failure, got %v %v", status, handled)
	}
	if platform.postsContaining("not found or already banned") != 1 {
		t.Errorf("Expected failure acknowledgment, got %v", platform.posts)
	}
}

func TestHandleBanPlatformError(t *testing.T) {
	t.Parallel()
	platform := newFakePlatform()
	platform.nicknames["jordan lee"] = "m-42"
	platform.banErr = errors.New("upstream 500")
	interp, _ := newTestInterpreter(t, platform)

	status, handled := interp.Handle(context.Background(), "@ban Jordan Lee")
	if !handled || status != CmdBanFailed {
		t.Fatalf("Expected ban failure, got %v %v", status, handled)
	}
}

func TestCommandTokenAnywhereInMessage(t *testing.T) {
	t.Parallel()
	platform := newFakePlatform()
	interp, engine := newTestInterpreter(t, platform)
	ctx := context.Background()

	engine.Reckon(ctx, "Alex", "111", "spam", "msg-1")

	status, handled := interp.Handle(ctx, "oops, wrong person. @UNDO")
	if !handled || status != CmdUndo {
		t.Fatalf("Expected case-insensitive mid-message token, got %v %v", status, handled)
	}
}
