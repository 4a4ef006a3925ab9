package redis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"whatsapp-ai-assistant/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.MediaStore = (*MediaStore)(nil)

// MediaStore holds attachment bytes per job, base64-encoded, so large
// payloads never travel through log entries. Same retention as chunks.
type MediaStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewMediaStore(client RedisClient, ttl time.Duration) *MediaStore {
	return &MediaStore{client: client, ttl: ttl}
}

func mediaKey(jobID string) string { return "job:media:" + jobID }

func (s *MediaStore) SaveMedia(ctx context.Context, jobID string, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	if err := s.client.Set(ctx, mediaKey(jobID), encoded, s.ttl); err != nil {
		return fmt.Errorf("set media: %w", err)
	}
	return nil
}

// Media returns (nil, nil) when no media is stored for the job.
func (s *MediaStore) Media(ctx context.Context, jobID string) ([]byte, error) {
	encoded, err := s.client.Get(ctx, mediaKey(jobID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get media: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode media: %w", err)
	}
	return data, nil
}

func (s *MediaStore) DeleteMedia(ctx context.Context, jobID string) error {
	return s.client.Del(ctx, mediaKey(jobID))
}
