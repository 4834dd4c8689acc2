package models

// ConversationSummary is the derived view of one message thread: the
// counterpart, the most recent message between the pair, and how many of the
// counterpart's messages the owner has not read yet. It is recomputed on
// every list request and never persisted.
type ConversationSummary struct {
	User        PublicUser `json:"user"`
	LastMessage *Message   `json:"last_message"`
	UnreadCount int        `json:"unread_count"`
}
