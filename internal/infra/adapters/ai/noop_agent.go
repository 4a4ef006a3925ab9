package ai

import (
	"context"
	"io"
	"strings"
	"time"

	"whatsapp-ai-assistant/internal/domain/ports/adapter"
)

var _ adapter.AgentAdapter = (*NoopAgentAdapter)(nil)

// NoopAgentAdapter implements adapter.AgentAdapter for local/dev testing.
// It echoes the request back word by word instead of calling a provider.
type NoopAgentAdapter struct {
	Delay time.Duration // per-fragment delay to mimic provider pacing
}

func NewNoopAgentAdapter() *NoopAgentAdapter {
	return &NoopAgentAdapter{Delay: 50 * time.Millisecond}
}

func (a *NoopAgentAdapter) StreamResponse(ctx context.Context, req adapter.StreamRequest) (adapter.TokenStream, error) {
	words := strings.Fields("Echo: " + req.Message)
	return &noopStream{ctx: ctx, words: words, delay: a.Delay}, nil
}

type noopStream struct {
	ctx   context.Context
	words []string
	pos   int
	delay time.Duration
}

func (s *noopStream) Recv() (string, error) {
	if s.pos >= len(s.words) {
		return "", io.EOF
	}
	select {
	case <-time.After(s.delay):
	case <-s.ctx.Done():
		return "", s.ctx.Err()
	}
	w := s.words[s.pos]
	s.pos++
	if s.pos < len(s.words) {
		w += " "
	}
	return w, nil
}

func (s *noopStream) Close() error {
	s.pos = len(s.words)
	return nil
}
