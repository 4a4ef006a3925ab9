package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"whatsapp-ai-assistant/internal/domain"
	"whatsapp-ai-assistant/internal/domain/model"
	"whatsapp-ai-assistant/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

var _ repository.ChunkStore = (*ChunkStore)(nil)

// ChunkStore keeps a job's streamed fragments in a Redis list and its
// completion record in a plain key, both under the retention TTL.
type ChunkStore struct {
	client RedisClient
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewChunkStore(client RedisClient, ttl time.Duration, logger *zerolog.Logger) *ChunkStore {
	l := logger.With().Str("component", "ChunkStore").Logger()
	return &ChunkStore{client: client, ttl: ttl, log: &l}
}

func chunkKey(jobID string) string { return "job:chunks:" + jobID }
func metaKey(jobID string) string  { return "job:meta:" + jobID }

func (s *ChunkStore) AppendChunk(ctx context.Context, jobID string, chunk model.Chunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	key := chunkKey(jobID)
	if err := s.client.RPush(ctx, key, data); err != nil {
		return fmt.Errorf("rpush chunk: %w", err)
	}
	return s.client.Expire(ctx, key, s.ttl)
}

func (s *ChunkStore) Chunks(ctx context.Context, jobID string) ([]model.Chunk, error) {
	raw, err := s.client.LRange(ctx, chunkKey(jobID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("lrange chunks: %w", err)
	}
	chunks := make([]model.Chunk, 0, len(raw))
	for i, r := range raw {
		var c model.Chunk
		if err := json.Unmarshal([]byte(r), &c); err != nil {
			// A skipped entry leaves a gap in the 0..N-1 sequence; make
			// the corruption visible instead of silently shortening it.
			s.log.Error().Err(err).Str("job_id", jobID).Int("position", i).
				Msg("undecodable chunk skipped")
			continue
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func (s *ChunkStore) ChunkCount(ctx context.Context, jobID string) (int64, error) {
	n, err := s.client.LLen(ctx, chunkKey(jobID))
	if err != nil {
		return 0, fmt.Errorf("llen chunks: %w", err)
	}
	return n, nil
}

func (s *ChunkStore) WriteCompletion(ctx context.Context, rec *model.CompletionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, metaKey(rec.JobID), data, s.ttl)
	if err != nil {
		return fmt.Errorf("set completion: %w", err)
	}
	if !ok {
		return domain.ErrJobAlreadyComplete
	}
	return nil
}

func (s *ChunkStore) Completion(ctx context.Context, jobID string) (*model.CompletionRecord, error) {
	data, err := s.client.Get(ctx, metaKey(jobID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get completion: %w", err)
	}
	var rec model.CompletionRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("parse completion: %w", err)
	}
	return &rec, nil
}
