package web

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whatsapp-ai-assistant/internal/domain"
	"whatsapp-ai-assistant/internal/domain/model"
	"whatsapp-ai-assistant/internal/domain/ports/repository"
)

// ---- In-memory stores backing the handlers under test ----

type memLog struct {
	mu       sync.Mutex
	appended []*model.JobDescriptor
}

var _ repository.ConversationLog = (*memLog)(nil)

func (m *memLog) Append(ctx context.Context, conversationID string, d *model.JobDescriptor) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended = append(m.appended, d)
	return fmt.Sprintf("%d-0", len(m.appended)), nil
}

func (m *memLog) ClaimNext(ctx context.Context, conversationID string, block time.Duration) (*model.LogEntry, error) {
	return nil, nil
}

func (m *memLog) Acknowledge(ctx context.Context, conversationID, sequenceID string) error {
	return nil
}

func (m *memLog) PendingCount(ctx context.Context, conversationID string) (int64, error) {
	return 0, nil
}

func (m *memLog) ActiveConversations(ctx context.Context) ([]string, error) {
	return nil, nil
}

type memHistory struct {
	mu     sync.Mutex
	nextID int
}

var _ repository.HistoryRepository = (*memHistory)(nil)

func (m *memHistory) Recent(ctx context.Context, conversationID string, limit int) ([]*model.ConversationMessage, error) {
	return nil, nil
}

func (m *memHistory) SaveMessage(ctx context.Context, msg *model.ConversationMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return fmt.Sprintf("msg-%d", m.nextID), nil
}

type memMedia struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ repository.MediaStore = (*memMedia)(nil)

func newMemMedia() *memMedia { return &memMedia{data: map[string][]byte{}} }

func (m *memMedia) SaveMedia(ctx context.Context, jobID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[jobID] = data
	return nil
}

func (m *memMedia) Media(ctx context.Context, jobID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[jobID], nil
}

func (m *memMedia) DeleteMedia(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, jobID)
	return nil
}

type memChunkStore struct {
	mu     sync.Mutex
	chunks map[string][]model.Chunk
	recs   map[string]*model.CompletionRecord
}

var _ repository.ChunkStore = (*memChunkStore)(nil)

func newMemChunkStore() *memChunkStore {
	return &memChunkStore{
		chunks: map[string][]model.Chunk{},
		recs:   map[string]*model.CompletionRecord{},
	}
}

func (m *memChunkStore) AppendChunk(ctx context.Context, jobID string, chunk model.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[jobID] = append(m.chunks[jobID], chunk)
	return nil
}

func (m *memChunkStore) Chunks(ctx context.Context, jobID string) ([]model.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Chunk(nil), m.chunks[jobID]...), nil
}

func (m *memChunkStore) ChunkCount(ctx context.Context, jobID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.chunks[jobID])), nil
}

func (m *memChunkStore) WriteCompletion(ctx context.Context, rec *model.CompletionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.recs[rec.JobID]; exists {
		return domain.ErrJobAlreadyComplete
	}
	cp := *rec
	m.recs[rec.JobID] = &cp
	return nil
}

func (m *memChunkStore) Completion(ctx context.Context, jobID string) (*model.CompletionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[jobID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}
