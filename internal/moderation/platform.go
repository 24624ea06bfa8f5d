// Package moderation implements the decision-and-escalation engine: strike
// tracking, the escalating punishment policy, undo, admin commands, the
// delayed subgroup sweep, and join-request screening.
package moderation

import (
	"context"

	"github.com/vaayuronics/anticlanker/internal/groupme"
)

// Platform defines the chat-platform actions the moderation core needs.
// Every call is a best-effort wire operation; a non-nil error means the
// action did not take effect, and the core never assumes success.
type Platform interface {
	// GetMembershipID resolves a stable user ID to a membership handle.
	// An empty result with nil error means the user is not a member.
	GetMembershipID(ctx context.Context, userID string) (string, error)

	// RemoveMember removes a membership from the group.
	RemoveMember(ctx context.Context, membershipID string) error

	// BanMembership applies a platform-level ban.
	BanMembership(ctx context.Context, membershipID string) error

	// DeleteMessage deletes a message from the group conversation.
	DeleteMessage(ctx context.Context, messageID string) error

	// PostBotMessage posts a community-visible announcement.
	PostBotMessage(ctx context.Context, text string) error

	// SendDM sends a private notice to a user.
	SendDM(ctx context.Context, userID, text string) error

	// LikeMessage applies the passive acknowledgment reaction.
	LikeMessage(ctx context.Context, messageID string) error

	// ListSubgroups returns the auxiliary message streams with previews.
	ListSubgroups(ctx context.Context) ([]groupme.Subgroup, error)

	// ListPendingMemberships returns join requests awaiting approval.
	ListPendingMemberships(ctx context.Context) ([]groupme.PendingMembership, error)

	// ApproveMembership accepts or denies a pending join request.
	ApproveMembership(ctx context.Context, membershipID string, approve bool) error
}

// Ensure the GroupMe client satisfies the moderation contract.
var _ interface {
	Platform
	MemberResolver
} = (*groupme.Client)(nil)

// MemberResolver resolves display names to membership handles, used by the
// manual @ban command. Split from Platform because name-based resolution is
// only safe for admin-driven flows.
type MemberResolver interface {
	GetMembershipIDByName(ctx context.Context, name string) (string, error)
}
