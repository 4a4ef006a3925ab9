package model

import "time"

// ConversationMessage is one turn of a conversation's persisted history.
// JobID links an assistant message back to the job that produced it and is
// the dedup key for at-least-once re-saves.
type ConversationMessage struct {
	ID             string
	ConversationID string
	Role           string // "user" | "assistant"
	Content        string
	SenderJID      string
	SenderName     string
	JobID          string
	Timestamp      time.Time
}
