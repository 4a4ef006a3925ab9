package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsapp-ai-assistant/internal/domain"
	"whatsapp-ai-assistant/internal/domain/model"
	"whatsapp-ai-assistant/internal/domain/ports/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Schema:
//
//	CREATE TABLE conversation_messages (
//	    id              UUID PRIMARY KEY,
//	    conversation_id TEXT NOT NULL,
//	    role            TEXT NOT NULL,
//	    content         TEXT NOT NULL,
//	    sender_jid      TEXT,
//	    sender_name     TEXT,
//	    job_id          UUID,
//	    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX idx_messages_conversation ON conversation_messages (conversation_id, created_at DESC);
//	CREATE UNIQUE INDEX uq_messages_job ON conversation_messages (job_id, role) WHERE job_id IS NOT NULL;

var _ repository.HistoryRepository = (*historyRepo)(nil)

type historyRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *historyRepo {
	return &historyRepo{pool: pool}
}

func (r *historyRepo) Recent(ctx context.Context, conversationID string, limit int) ([]*model.ConversationMessage, error) {
	const q = `
SELECT id, conversation_id, role, content,
       COALESCE(sender_jid, ''), COALESCE(sender_name, ''),
       COALESCE(job_id::text, ''), created_at
FROM conversation_messages
WHERE conversation_id = $1
ORDER BY created_at DESC
LIMIT $2;`

	rows, err := r.pool.Query(ctx, q, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var msgs []*model.ConversationMessage
	for rows.Next() {
		var m model.ConversationMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content,
			&m.SenderJID, &m.SenderName, &m.JobID, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// SaveMessage inserts a message. For messages carrying a job id the insert
// deduplicates on (job_id, role): re-saving after a crash-redelivery is a
// no-op that returns the originally stored message id.
func (r *historyRepo) SaveMessage(ctx context.Context, msg *model.ConversationMessage) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	const q = `
INSERT INTO conversation_messages (id, conversation_id, role, content, sender_jid, sender_name, job_id, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, '')::uuid, $8)
ON CONFLICT (job_id, role) WHERE job_id IS NOT NULL DO NOTHING;`

	tag, err := r.pool.Exec(ctx, q,
		msg.ID, msg.ConversationID, msg.Role, msg.Content,
		msg.SenderJID, msg.SenderName, msg.JobID, msg.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", domain.ErrAlreadyExists
		}
		return "", fmt.Errorf("insert message: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return msg.ID, nil
	}

	// Duplicate save for this job: return the stored id.
	const lookup = `SELECT id FROM conversation_messages WHERE job_id = $1::uuid AND role = $2;`
	var id string
	if err := r.pool.QueryRow(ctx, lookup, msg.JobID, msg.Role).Scan(&id); err != nil {
		return "", fmt.Errorf("lookup deduplicated message: %w", err)
	}
	return id, nil
}
