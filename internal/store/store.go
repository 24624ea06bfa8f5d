// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/vaayuronics/anticlanker/internal/domain"
)

// Repository defines the interface for the durable moderation state: the
// violation ledger, the banned set, the ignore list, the persona
// conversations, and the labeled training examples.
type Repository interface {
	// IncrementStrikes adds one strike for a user and returns the new count.
	// Creates the record on first violation.
	IncrementStrikes(ctx context.Context, userID string) (int, error)

	// DecrementStrikes removes one strike, flooring at zero, and returns
	// the new count. A missing record is treated as zero strikes.
	DecrementStrikes(ctx context.Context, userID string) (int, error)

	// GetStrikes returns the current strike count; absence means zero.
	GetStrikes(ctx context.Context, userID string) (int, error)

	// ClearStrikes deletes the user's strike record entirely.
	ClearStrikes(ctx context.Context, userID string) error

	// AddBanned inserts the user into the soft-ban set.
	AddBanned(ctx context.Context, userID string) error

	// RemoveBanned deletes the user from the soft-ban set, reporting
	// whether an entry was actually removed.
	RemoveBanned(ctx context.Context, userID string) (bool, error)

	// IsBanned reports whether the user is in the soft-ban set.
	IsBanned(ctx context.Context, userID string) (bool, error)

	// ListBanned returns all user IDs in the soft-ban set.
	ListBanned(ctx context.Context) ([]string, error)

	// AddIgnored adds a lower-cased display name to the ignore list.
	// Returns false when the name was already present.
	AddIgnored(ctx context.Context, name string) (bool, error)

	// IsIgnored reports whether the display name is ignored
	// (case-insensitive exact match).
	IsIgnored(ctx context.Context, name string) (bool, error)

	// AppendConversation appends an entry to a user's persona conversation,
	// evicting the oldest entries beyond the retention cap, and returns the
	// resulting history.
	AppendConversation(ctx context.Context, userID, role, content string) ([]domain.StoredMessage, error)

	// GetConversation returns a user's persona conversation history.
	GetConversation(ctx context.Context, userID string) ([]domain.StoredMessage, error)

	// ListTrainingExamples returns the labeled examples in insertion order.
	ListTrainingExamples(ctx context.Context) ([]domain.TrainingExample, error)

	// AppendTrainingExample appends a labeled example.
	AppendTrainingExample(ctx context.Context, role, content string) error

	// TrimTrainingExamples removes the last n examples and returns how many
	// were deleted.
	TrimTrainingExamples(ctx context.Context, n int) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// ConversationCap is the maximum number of retained persona conversation
// entries per user; older entries are evicted first.
const ConversationCap = 20
