package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return repo
}

func TestStrikesLifecycle(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()

	count, err := repo.GetStrikes(ctx, "alex")
	if err != nil {
		t.Fatalf("GetStrikes failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 strikes for unknown user, got %d", count)
	}

	for want := 1; want <= 3; want++ {
		got, err := repo.IncrementStrikes(ctx, "alex")
		if err != nil {
			t.Fatalf("IncrementStrikes failed: %v", err)
		}
		if got != want {
			t.Errorf("Expected count %d, got %d", want, got)
		}
	}

	if err := repo.ClearStrikes(ctx, "alex"); err != nil {
		t.Fatalf("ClearStrikes failed: %v", err)
	}
	count, err = repo.GetStrikes(ctx, "alex")
	if err != nil {
		t.Fatalf("GetStrikes failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected cleared record to read as 0, got %d", count)
	}
}

func TestDecrementStrikesFloorsAtZero(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()

	if _, err := repo.IncrementStrikes(ctx, "alex"); err != nil {
		t.Fatalf("IncrementStrikes failed: %v", err)
	}

	count, err := repo.DecrementStrikes(ctx, "alex")
	if err != nil {
		t.Fatalf("DecrementStrikes failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected count 0 after decrement, got %d", count)
	}

	// Decrementing again must not go negative.
	count, err = repo.DecrementStrikes(ctx, "alex")
	if err != nil {
		t.Fatalf("DecrementStrikes failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected floor at 0, got %d", count)
	}

	// Missing record reads as zero, not an error.
	count, err = repo.DecrementStrikes(ctx, "nobody")
	if err != nil {
		t.Fatalf("DecrementStrikes failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 for missing record, got %d", count)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.IncrementStrikes(ctx, "alex"); err != nil {
				t.Errorf("IncrementStrikes failed: %v", err)
			}
		}()
	}
	wg.Wait()

	count, err := repo.GetStrikes(ctx, "alex")
	if err != nil {
		t.Fatalf("GetStrikes failed: %v", err)
	}
	if count != workers {
		t.Errorf("Expected %d strikes after concurrent increments, got %d", workers, count)
	}
}

func TestBannedSet(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()

	banned, err := repo.IsBanned(ctx, "alex")
	if err != nil {
		t.Fatalf("IsBanned failed: %v", err)
	}
	if banned {
		t.Error("Did not expect alex to start banned")
	}

	if err := repo.AddBanned(ctx, "alex"); err != nil {
		t.Fatalf("AddBanned failed: %v", err)
	}
	// Duplicate add is a no-op, not an error.
	if err := repo.AddBanned(ctx, "alex"); err != nil {
		t.Fatalf("Duplicate AddBanned failed: %v", err)
	}

	ids, err := repo.ListBanned(ctx)
	if err != nil {
		t.Fatalf("ListBanned failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "alex" {
		t.Errorf("Expected banned set [alex], got %v", ids)
	}

	banned, err = repo.IsBanned(ctx, "alex")
	if err != nil {
		t.Fatalf("IsBanned failed: %v", err)
	}
	if !banned {
		t.Error("Expected alex to be banned")
	}

	removed, err := repo.RemoveBanned(ctx, "alex")
	if err != nil {
		t.Fatalf("RemoveBanned failed: %v", err)
	}
	if !removed {
		t.Error("Expected removal to report true")
	}

	removed, err = repo.RemoveBanned(ctx, "alex")
	if err != nil {
		t.Fatalf("RemoveBanned failed: %v", err)
	}
	if removed {
		t.Error("Expected second removal to report false")
	}
}

func TestIgnoredIdempotent(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()

	added, err := repo.AddIgnored(ctx, "Jordan Lee")
	if err != nil {
		t.Fatalf("AddIgnored failed: %v", err)
	}
	if !added {
		t.Error("Expected first add to report true")
	}

	// Same name with different case is a duplicate.
	added, err = repo.AddIgnored(ctx, "JORDAN LEE")
	if err != nil {
		t.Fatalf("AddIgnored failed: %v", err)
	}
	if added {
		t.Error("Expected duplicate add to report false")
	}

	ignored, err := repo.IsIgnored(ctx, "jordan lee")
	if err != nil {
		t.Fatalf("IsIgnored failed: %v", err)
	}
	if !ignored {
		t.Error("Expected jordan lee to be ignored")
	}

	added, err = repo.AddIgnored(ctx, "   ")
	if err != nil {
		t.Fatalf("AddIgnored failed: %v", err)
	}
	if added {
		t.Error("Expected blank name to report false")
	}
}

func TestConversationCap(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := repo.AppendConversation(ctx, "alex", "user", fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("AppendConversation failed: %v", err)
		}
	}

	messages, err := repo.GetConversation(ctx, "alex")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(messages) != ConversationCap {
		t.Fatalf("Expected %d messages, got %d", ConversationCap, len(messages))
	}
	// Oldest five evicted: the first retained entry is message 5.
	if messages[0].Content != "message 5" {
		t.Errorf("Expected oldest retained entry to be message 5, got %q", messages[0].Content)
	}
	if messages[len(messages)-1].Content != "message 24" {
		t.Errorf("Expected newest entry to be message 24, got %q", messages[len(messages)-1].Content)
	}
}

func TestTrainingExamples(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()

	pairs := []struct{ role, content string }{
		{"user", "selling two tickets, text me"},
		{"assistant", "Yes"},
		{"user", "practice moved to 7pm"},
		{"assistant", "No"},
	}
	for _, p := range pairs {
		if err := repo.AppendTrainingExample(ctx, p.role, p.content); err != nil {
			t.Fatalf("AppendTrainingExample failed: %v", err)
		}
	}

	examples, err := repo.ListTrainingExamples(ctx)
	if err != nil {
		t.Fatalf("ListTrainingExamples failed: %v", err)
	}
	if len(examples) != 4 {
		t.Fatalf("Expected 4 examples, got %d", len(examples))
	}
	if examples[0].Content != "selling two tickets, text me" {
		t.Errorf("Expected insertion order preserved, got %q first", examples[0].Content)
	}

	deleted, err := repo.TrimTrainingExamples(ctx, 2)
	if err != nil {
		t.Fatalf("TrimTrainingExamples failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted, got %d", deleted)
	}

	examples, err = repo.ListTrainingExamples(ctx)
	if err != nil {
		t.Fatalf("ListTrainingExamples failed: %v", err)
	}
	if len(examples) != 2 || examples[1].Content != "Yes" {
		t.Errorf("Expected last two removed, got %v", examples)
	}
}
