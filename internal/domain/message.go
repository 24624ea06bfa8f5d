// Package domain contains core domain types for the anticlanker service.
package domain

// InboundMessage is a single GroupMe callback payload reduced to the fields
// the moderation pipeline needs: a stable identity, the (mutable) display
// name, the text, and a message handle sufficient for later deletion.
type InboundMessage struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Text       string `json:"text"`
	MessageID  string `json:"id"`
	GroupID    string `json:"group_id"`
	SenderType string `json:"sender_type"`
}

// StoredMessage is a serialized chat message entry in a user's persona
// conversation history.
type StoredMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TrainingExample is a labeled in-context example fed to the classifier.
// Examples alternate user messages and assistant "Yes"/"No" labels.
type TrainingExample struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
