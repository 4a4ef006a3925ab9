package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whatsapp-ai-assistant/internal/domain/model"
	"whatsapp-ai-assistant/internal/domain/ports/repository"
)

// ---- Fakes ----

// fakeLog is an in-memory ConversationLog with per-conversation FIFO
// queues. ClaimNext pops the head; Acknowledge just records the id, which
// is enough for runner ordering tests.
type fakeLog struct {
	mu       sync.Mutex
	queues   map[string][]*model.LogEntry
	acked    map[string][]string
	claimErr error
	ackErr   error
	discErr  error
}

var _ repository.ConversationLog = (*fakeLog)(nil)

func newFakeLog() *fakeLog {
	return &fakeLog{
		queues: map[string][]*model.LogEntry{},
		acked:  map[string][]string{},
	}
}

func (f *fakeLog) push(conv string, d *model.JobDescriptor, deliveries int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := fmt.Sprintf("%d-0", len(f.queues[conv])+len(f.acked[conv])+1)
	f.queues[conv] = append(f.queues[conv], &model.LogEntry{
		SequenceID:    seq,
		Descriptor:    d,
		DeliveryCount: deliveries,
	})
}

func (f *fakeLog) ackedIDs(conv string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked[conv]...)
}

func (f *fakeLog) Append(ctx context.Context, conv string, d *model.JobDescriptor) (string, error) {
	f.push(conv, d, 1)
	return "0-0", nil
}

func (f *fakeLog) ClaimNext(ctx context.Context, conv string, block time.Duration) (*model.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	q := f.queues[conv]
	if len(q) == 0 {
		return nil, nil
	}
	f.queues[conv] = q[1:]
	return q[0], nil
}

func (f *fakeLog) Acknowledge(ctx context.Context, conv, sequenceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ackErr != nil {
		return f.ackErr
	}
	f.acked[conv] = append(f.acked[conv], sequenceID)
	return nil
}

func (f *fakeLog) PendingCount(ctx context.Context, conv string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.queues[conv])), nil
}

func (f *fakeLog) ActiveConversations(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.discErr != nil {
		return nil, f.discErr
	}
	var convs []string
	for conv, q := range f.queues {
		if len(q) > 0 {
			convs = append(convs, conv)
		}
	}
	return convs, nil
}

// fakeExec records executed job ids in order. A non-nil gate makes Execute
// block until the gate closes, for concurrency tests.
type fakeExec struct {
	mu       sync.Mutex
	executed []string
	errFor   map[string]error
	gate     chan struct{}
	started  chan string
}

var _ Executor = (*fakeExec)(nil)

func newFakeExec() *fakeExec {
	return &fakeExec{errFor: map[string]error{}}
}

func (f *fakeExec) Execute(ctx context.Context, d *model.JobDescriptor) error {
	f.mu.Lock()
	f.executed = append(f.executed, d.JobID)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- d.JobID
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.errFor[d.JobID]
}

func (f *fakeExec) executedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executed...)
}

func desc(jobID, conv string) *model.JobDescriptor {
	return &model.JobDescriptor{
		JobID:          jobID,
		ConversationID: conv,
		Message:        "hello",
	}
}
