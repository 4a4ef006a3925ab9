package repository

import (
	"context"

	"whatsapp-ai-assistant/internal/domain/model"
)

// HistoryRepository persists conversation turns. SaveMessage deduplicates
// by job id: re-saving a message for an already-recorded job is a no-op and
// returns the stored message id.
type HistoryRepository interface {
	Recent(ctx context.Context, conversationID string, limit int) ([]*model.ConversationMessage, error)
	SaveMessage(ctx context.Context, msg *model.ConversationMessage) (string, error)
}
