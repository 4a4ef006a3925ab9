package repository

import (
	"context"

	"whatsapp-ai-assistant/internal/domain/model"
)

// ChunkStore holds a job's streamed output fragments and its completion
// marker. All entries expire after the configured retention window.
type ChunkStore interface {
	AppendChunk(ctx context.Context, jobID string, chunk model.Chunk) error
	Chunks(ctx context.Context, jobID string) ([]model.Chunk, error)
	ChunkCount(ctx context.Context, jobID string) (int64, error)

	// WriteCompletion records job completion. It is write-once: a second
	// write for the same job id returns domain.ErrJobAlreadyComplete.
	WriteCompletion(ctx context.Context, rec *model.CompletionRecord) error

	// Completion returns (nil, nil) when no record exists.
	Completion(ctx context.Context, jobID string) (*model.CompletionRecord, error)
}

// MediaStore keeps attachment bytes out of log entries; same retention
// window as chunks.
type MediaStore interface {
	SaveMedia(ctx context.Context, jobID string, data []byte) error
	Media(ctx context.Context, jobID string) ([]byte, error)
	DeleteMedia(ctx context.Context, jobID string) error
}
