package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"whatsapp-ai-assistant/internal/domain"
	"whatsapp-ai-assistant/internal/domain/model"
	"whatsapp-ai-assistant/internal/domain/ports/adapter"
	"whatsapp-ai-assistant/internal/domain/ports/repository"
)

// ---- Fakes ----

type memChunkStore struct {
	mu        sync.Mutex
	chunks    map[string][]model.Chunk
	recs      map[string]*model.CompletionRecord
	appendErr error
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
	if m.appendErr != nil {
		return m.appendErr
	}
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
	cp.CreatedAt = time.Now().UTC()
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

type memHistory struct {
	mu          sync.Mutex
	msgs        []*model.ConversationMessage
	nextID      int
	saveErr     error
	recentLimit int // last limit passed to Recent
}

var _ repository.HistoryRepository = (*memHistory)(nil)

func newMemHistory() *memHistory { return &memHistory{} }

func (m *memHistory) Recent(ctx context.Context, conversationID string, limit int) ([]*model.ConversationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recentLimit = limit
	var out []*model.ConversationMessage
	for _, msg := range m.msgs {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memHistory) SaveMessage(ctx context.Context, msg *model.ConversationMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	if msg.JobID != "" {
		for _, prev := range m.msgs {
			if prev.JobID == msg.JobID && prev.Role == msg.Role {
				return prev.ID, nil
			}
		}
	}
	m.nextID++
	cp := *msg
	cp.ID = fmt.Sprintf("msg-%d", m.nextID)
	cp.Timestamp = time.Now().UTC()
	m.msgs = append(m.msgs, &cp)
	return cp.ID, nil
}

func (m *memHistory) saved() []*model.ConversationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.ConversationMessage(nil), m.msgs...)
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

// scriptedStream replays fragments, optionally failing at a given index.
type scriptedStream struct {
	fragments []string
	failAt    int // -1 disables
	failErr   error
	pos       int
	closed    bool
}

var _ adapter.TokenStream = (*scriptedStream)(nil)

func newScriptedStream(fragments ...string) *scriptedStream {
	return &scriptedStream{fragments: fragments, failAt: -1}
}

func (s *scriptedStream) Recv() (string, error) {
	if s.failAt >= 0 && s.pos == s.failAt {
		return "", s.failErr
	}
	if s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	f := s.fragments[s.pos]
	s.pos++
	return f, nil
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

type fakeAgent struct {
	stream  adapter.TokenStream
	err     error
	called  bool
	lastReq adapter.StreamRequest
}

var _ adapter.AgentAdapter = (*fakeAgent)(nil)

func (f *fakeAgent) StreamResponse(ctx context.Context, req adapter.StreamRequest) (adapter.TokenStream, error) {
	f.called = true
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

type fakeIngester struct {
	err  error
	refs []string
}

var _ adapter.DocumentIngester = (*fakeIngester)(nil)

func (f *fakeIngester) Ingest(ctx context.Context, documentRef, conversationID string) error {
	f.refs = append(f.refs, documentRef)
	return f.err
}

type fakeWhatsApp struct {
	mu        sync.Mutex
	reactions []string
}

var _ adapter.WhatsAppAdapter = (*fakeWhatsApp)(nil)

func (f *fakeWhatsApp) SendReaction(ctx context.Context, conversationJID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, emoji)
	return nil
}

// memLog records appended descriptors; only Append matters for enqueue
// tests.
type memLog struct {
	mu        sync.Mutex
	appended  []*model.JobDescriptor
	appendErr error
}

var _ repository.ConversationLog = (*memLog)(nil)

func newMemLog() *memLog { return &memLog{} }

func (m *memLog) Append(ctx context.Context, conversationID string, d *model.JobDescriptor) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return "", m.appendErr
	}
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
