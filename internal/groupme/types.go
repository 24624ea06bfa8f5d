// Package groupme provides a client for the GroupMe v3 REST API.
package groupme

import "encoding/json"

// envelope is the standard GroupMe response wrapper.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Meta     struct {
		Code   int      `json:"code"`
		Errors []string `json:"errors"`
	} `json:"meta"`
}

// Member is a group membership record. ID is the membership handle used by
// remove/ban calls; UserID is the stable account identity.
type Member struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

// MessagePreview is the most recent message summary attached to a subgroup.
type MessagePreview struct {
	Text     string `json:"text"`
	Nickname string `json:"nickname"`
}

// SubgroupMessages carries a subgroup's last-message identity and preview.
type SubgroupMessages struct {
	LastMessageID string         `json:"last_message_id"`
	Preview       MessagePreview `json:"preview"`
}

// Subgroup is an auxiliary message stream (topic) under the main group.
type Subgroup struct {
	ID       json.Number      `json:"id"`
	TopicID  string           `json:"topic_id"`
	Name     string           `json:"name"`
	Messages SubgroupMessages `json:"messages"`
}

// PendingMembership is a join request awaiting approval.
type PendingMembership struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

type group struct {
	ID      string   `json:"id"`
	Members []Member `json:"members"`
}
