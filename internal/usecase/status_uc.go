package usecase

import (
	"context"
	"strings"

	"whatsapp-ai-assistant/internal/domain/model"
	"whatsapp-ai-assistant/internal/domain/ports/repository"
)

// JobStatusReader infers a job's lifecycle state from the chunk store. Pure
// read side: complete/failed iff a completion record exists, in_progress
// iff chunks exist without one, queued otherwise.
type JobStatusReader struct {
	chunks repository.ChunkStore
}

func NewJobStatusReader(chunks repository.ChunkStore) *JobStatusReader {
	return &JobStatusReader{chunks: chunks}
}

// JobState is the poll-endpoint view of one job.
type JobState struct {
	JobID        string          `json:"job_id"`
	Status       model.JobStatus `json:"status"`
	Chunks       []model.Chunk   `json:"chunks"`
	TotalChunks  int             `json:"total_chunks"`
	Complete     bool            `json:"complete"`
	FullResponse string          `json:"full_response,omitempty"`
	Error        string          `json:"error,omitempty"`
}

func (r *JobStatusReader) Status(ctx context.Context, jobID string) (model.JobStatus, error) {
	rec, err := r.chunks.Completion(ctx, jobID)
	if err != nil {
		return "", err
	}
	if rec != nil {
		if rec.Error != "" {
			return model.JobStatusFailed, nil
		}
		return model.JobStatusComplete, nil
	}
	n, err := r.chunks.ChunkCount(ctx, jobID)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return model.JobStatusInProgress, nil
	}
	return model.JobStatusQueued, nil
}

func (r *JobStatusReader) Chunks(ctx context.Context, jobID string) ([]model.Chunk, error) {
	return r.chunks.Chunks(ctx, jobID)
}

// State assembles the full poll response. FullResponse is set only when the
// job completed successfully.
func (r *JobStatusReader) State(ctx context.Context, jobID string) (*JobState, error) {
	rec, err := r.chunks.Completion(ctx, jobID)
	if err != nil {
		return nil, err
	}
	chunks, err := r.chunks.Chunks(ctx, jobID)
	if err != nil {
		return nil, err
	}

	state := &JobState{
		JobID:       jobID,
		Status:      model.JobStatusQueued,
		Chunks:      chunks,
		TotalChunks: len(chunks),
	}
	switch {
	case rec != nil && rec.Error != "":
		state.Status = model.JobStatusFailed
		state.Complete = true
		state.Error = rec.Error
	case rec != nil:
		state.Status = model.JobStatusComplete
		state.Complete = true
		state.FullResponse = assemble(chunks)
	case len(chunks) > 0:
		state.Status = model.JobStatusInProgress
	}
	return state, nil
}

func assemble(chunks []model.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Content)
	}
	return b.String()
}
