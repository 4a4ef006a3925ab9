package repository

import (
	"context"
	"time"

	"whatsapp-ai-assistant/internal/domain/model"
)

// ConversationLog is a durable, ordered, multi-consumer-safe message log
// with one independent instance per conversation. In-order execution within
// a conversation is obtained by running exactly one consumer loop per
// conversation at a time; its claim semantics make delivery at-least-once.
type ConversationLog interface {
	// Append adds a descriptor to the conversation's log, creating the log
	// lazily, and returns the log-assigned sequence id.
	Append(ctx context.Context, conversationID string, d *model.JobDescriptor) (string, error)

	// ClaimNext leases the next unprocessed entry. Entries abandoned by a
	// crashed consumer are reclaimed before new entries are read. Blocks up
	// to block waiting for new entries and returns (nil, nil) on timeout.
	ClaimNext(ctx context.Context, conversationID string, block time.Duration) (*model.LogEntry, error)

	// Acknowledge marks a claimed entry as durably processed.
	Acknowledge(ctx context.Context, conversationID, sequenceID string) error

	// PendingCount reports entries claimed but not yet acknowledged.
	PendingCount(ctx context.Context, conversationID string) (int64, error)

	// ActiveConversations returns conversations with pending or undelivered
	// entries. May include an already-drained conversation; must never omit
	// one with work.
	ActiveConversations(ctx context.Context) ([]string, error)
}
