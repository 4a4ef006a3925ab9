package model

import "time"

// Chunk is one fragment of a job's streamed output. Indices are monotonic
// from 0 with no gaps; the Job Executor is the sole writer for a job.
type Chunk struct {
	Index     int       `json:"index"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// CompletionRecord is written at most once when a job finishes. Its
// presence is the sole signal that a job is complete; Error is set when the
// job finished on its failure path.
type CompletionRecord struct {
	JobID          string    `json:"job_id"`
	ConversationID string    `json:"conversation_id"`
	TotalChunks    int       `json:"total_chunks"`
	MessageID      string    `json:"message_id,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
)
