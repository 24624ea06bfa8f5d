package persona

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vaayuronics/anticlanker/internal/domain"
	"github.com/vaayuronics/anticlanker/internal/store"
)

type fakeChatter struct {
	reply   string
	err     error
	system  string
	history []domain.StoredMessage
	message string
	calls   int
}

func (f *fakeChatter) Chat(_ context.Context, system string, history []domain.StoredMessage, message string) (string, error) {
	f.calls++
	f.system = system
	f.history = history
	f.message = message
	return f.reply, f.err
}

type fakePoster struct {
	posts []string
	err   error
}

func (f *fakePoster) PostBotMessage(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.posts = append(f.posts, text)
	return nil
}

func newTestService(t *testing.T, chatter *fakeChatter, poster *fakePoster) (*Service, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return NewService(repo, chatter, poster), repo
}

func TestRespondPostsAddressedReply(t *testing.T) {
	t.Parallel()
	chatter := &fakeChatter{reply: "Balance demands your silence."}
	poster := &fakePoster{}
	svc, repo := newTestService(t, chatter, poster)
	ctx := context.Background()

	svc.Respond(ctx, "Casey", "123", "what do you think of spammers?")

	if len(poster.posts) != 1 {
		t.Fatalf("Expected one post, got %v", poster.posts)
	}
	if poster.posts[0] != "@Casey, Balance demands your silence." {
		t.Errorf("Unexpected reply post: %q", poster.posts[0])
	}
	if !strings.Contains(chatter.system, "Thanos") {
		t.Errorf("Expected persona system prompt, got %q", chatter.system)
	}
	if chatter.message != "what do you think of spammers?" {
		t.Errorf("Expected live message passed through, got %q", chatter.message)
	}

	// Both turns are stored.
	history, err := repo.GetConversation(ctx, "123")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 stored turns, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Errorf("Unexpected roles: %v", history)
	}
}

func TestRespondPassesPriorHistoryOnly(t *testing.T) {
	t.Parallel()
	chatter := &fakeChatter{reply: "Inevitable."}
	poster := &fakePoster{}
	svc, _ := newTestService(t, chatter, poster)
	ctx := context.Background()

	svc.Respond(ctx, "Casey", "123", "first question")
	svc.Respond(ctx, "Casey", "123", "second question")

	// Second call: history holds the first exchange but not the live message.
	if len(chatter.history) != 2 {
		t.Fatalf("Expected 2 prior turns, got %d", len(chatter.history))
	}
	if chatter.history[0].Content != "first question" || chatter.history[1].Content != "Inevitable." {
		t.Errorf("Unexpected prior history: %v", chatter.history)
	}
	if chatter.message != "second question" {
		t.Errorf("Expected live message, got %q", chatter.message)
	}
}

func TestRespondFallsBackOnChatError(t *testing.T) {
	t.Parallel()
	chatter := &fakeChatter{err: errors.New("model unreachable")}
	poster := &fakePoster{}
	svc, repo := newTestService(t, chatter, poster)
	ctx := context.Background()

	svc.Respond(ctx, "Casey", "123", "hello?")

	if len(poster.posts) != 1 || !strings.Contains(poster.posts[0], "my words fail me") {
		t.Fatalf("Expected canned fallback, got %v", poster.posts)
	}
	if !strings.HasPrefix(poster.posts[0], "@Casey,") {
		t.Errorf("Expected fallback addressed to sender, got %q", poster.posts[0])
	}

	// The mention stays in history even when the reply failed.
	history, _ := repo.GetConversation(ctx, "123")
	if len(history) != 1 || history[0].Role != "user" {
		t.Errorf("Expected only the user turn stored, got %v", history)
	}
}

func TestRespondFallsBackOnEmptyReply(t *testing.T) {
	t.Parallel()
	chatter := &fakeChatter{reply: ""}
	poster := &fakePoster{}
	svc, _ := newTestService(t, chatter, poster)

	svc.Respond(context.Background(), "Casey", "123", "hello?")

	if len(poster.posts) != 1 || !strings.Contains(poster.posts[0], "my words fail me") {
		t.Fatalf("Expected canned fallback, got %v", poster.posts)
	}
}
