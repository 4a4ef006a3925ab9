package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-assistant/internal/config"
	"whatsapp-ai-assistant/internal/domain/ports/repository"
	"whatsapp-ai-assistant/internal/infra/metrics"
)

// Supervisor periodically discovers conversations with pending work and
// dispatches one runner per conversation through the bounded pool. A
// per-conversation running set keeps at most one runner alive per
// conversation per process, which is what preserves FIFO within a
// conversation while unrelated conversations proceed in parallel.
type Supervisor struct {
	log    repository.ConversationLog
	exec   Executor
	pool   *Pool
	cfg    config.QueueConfig
	logger *zerolog.Logger

	mu      sync.Mutex
	running map[string]struct{}
}

func NewSupervisor(log repository.ConversationLog, exec Executor, pool *Pool, cfg config.QueueConfig, logger *zerolog.Logger) *Supervisor {
	l := logger.With().Str("component", "Supervisor").Logger()
	return &Supervisor{
		log:     log,
		exec:    exec,
		pool:    pool,
		cfg:     cfg,
		logger:  &l,
		running: make(map[string]struct{}),
	}
}

// Run blocks until ctx ends. Discovery errors are logged and counted but do
// not stop the loop; a Redis blip should not take the worker down.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("tick", s.cfg.Tick).
		Int("pool_workers", s.cfg.PoolWorkers).
		Msg("supervisor started")

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("supervisor stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Supervisor) tick(ctx context.Context) error {
	convs, err := s.log.ActiveConversations(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.IncDiscoveryError()
		s.logger.Warn().Err(err).Msg("conversation discovery failed")
		return nil
	}
	metrics.SetActiveConversations(len(convs))

	for _, conv := range convs {
		if err := s.dispatch(ctx, conv); err != nil {
			return err
		}
	}
	return nil
}

// dispatch starts a runner for conv unless one is already working the
// conversation. Returns non-nil only when ctx ended while waiting on the
// pool.
func (s *Supervisor) dispatch(ctx context.Context, conv string) error {
	s.mu.Lock()
	if _, busy := s.running[conv]; busy {
		s.mu.Unlock()
		return nil
	}
	s.running[conv] = struct{}{}
	s.mu.Unlock()

	runner := NewRunner(conv, s.log, s.exec, s.cfg.ClaimBlock, s.cfg.MaxDeliveries, s.logger)
	err := s.pool.Submit(ctx, func(taskCtx context.Context) error {
		defer s.release(conv)
		return runner.Run(taskCtx)
	})
	if err != nil {
		s.release(conv)
		return err
	}
	metrics.IncRunnerStarted()
	return nil
}

func (s *Supervisor) release(conv string) {
	s.mu.Lock()
	delete(s.running, conv)
	s.mu.Unlock()
}
