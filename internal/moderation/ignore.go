package moderation

import (
	"context"
	"log/slog"

	"github.com/vaayuronics/anticlanker/internal/store"
)

// IgnoreRegistry is the name-based allowlist that exempts users from
// classification entirely. Names are matched case-insensitively against
// the stored lower-cased form.
type IgnoreRegistry struct {
	repo store.Repository
}

// NewIgnoreRegistry creates a registry over the durable ignore list.
func NewIgnoreRegistry(repo store.Repository) *IgnoreRegistry {
	return &IgnoreRegistry{repo: repo}
}

// IsIgnored reports whether the display name is exempt from moderation.
// A store read failure is logged and treated as not ignored, so a broken
// store never silently disables moderation.
func (r *IgnoreRegistry) IsIgnored(ctx context.Context, name string) bool {
	ignored, err := r.repo.IsIgnored(ctx, name)
	if err != nil {
		slog.Error("Failed to check ignore list", "error", err, "name", name)
		return false
	}
	return ignored
}

// Add puts a display name on the ignore list. Returns false when the name
// is blank or already present.
func (r *IgnoreRegistry) Add(ctx context.Context, name string) (bool, error) {
	return r.repo.AddIgnored(ctx, name)
}
