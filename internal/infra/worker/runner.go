package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-assistant/internal/domain/model"
	"whatsapp-ai-assistant/internal/domain/ports/repository"
	"whatsapp-ai-assistant/internal/infra/logging"
	"whatsapp-ai-assistant/internal/infra/metrics"
)

// Executor runs a single job to completion.
type Executor interface {
	Execute(ctx context.Context, d *model.JobDescriptor) error
}

// Runner drains one conversation's log sequentially: claim, execute,
// acknowledge, repeat. It exits cleanly once a claim times out with nothing
// pending, and a fresh runner is dispatched on the next supervisor tick if
// more work arrives. Entries are acknowledged even when execution fails so a
// bad job never wedges the conversation behind it.
type Runner struct {
	convID        string
	log           repository.ConversationLog
	exec          Executor
	claimBlock    time.Duration
	maxDeliveries int64
	logger        *zerolog.Logger
}

func NewRunner(convID string, log repository.ConversationLog, exec Executor, claimBlock time.Duration, maxDeliveries int64, logger *zerolog.Logger) *Runner {
	l := logger.With().Str("component", "Runner").Str("conversation_id", convID).Logger()
	return &Runner{
		convID:        convID,
		log:           log,
		exec:          exec,
		claimBlock:    claimBlock,
		maxDeliveries: maxDeliveries,
		logger:        &l,
	}
}

func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		entry, err := r.log.ClaimNext(ctx, r.convID, r.claimBlock)
		metrics.ObserveClaim(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("claim next entry for %s: %w", r.convID, err)
		}
		if entry == nil {
			r.logger.Debug().Msg("conversation drained")
			return nil
		}

		if r.maxDeliveries > 0 && entry.DeliveryCount > r.maxDeliveries {
			r.logger.Error().
				Str("job_id", entry.Descriptor.JobID).
				Str("sequence_id", entry.SequenceID).
				Int64("deliveries", entry.DeliveryCount).
				Msg("poison entry exceeded delivery limit, dropping")
			metrics.IncPoisonEntry()
			metrics.IncJob("poisoned")
			if err := r.log.Acknowledge(ctx, r.convID, entry.SequenceID); err != nil {
				return fmt.Errorf("ack poison entry %s: %w", entry.SequenceID, err)
			}
			continue
		}

		jobCtx := logging.WithJobID(logging.WithConversationID(ctx, r.convID), entry.Descriptor.JobID)
		if execErr := r.exec.Execute(jobCtx, entry.Descriptor); execErr != nil {
			if ctx.Err() != nil {
				// Shutdown mid-job: leave the entry pending so a later
				// worker reclaims and retries it.
				return ctx.Err()
			}
			r.logger.Error().Err(execErr).
				Str("job_id", entry.Descriptor.JobID).
				Str("sequence_id", entry.SequenceID).
				Msg("job execution failed, acknowledging anyway")
		}

		if err := r.log.Acknowledge(ctx, r.convID, entry.SequenceID); err != nil {
			return fmt.Errorf("ack entry %s: %w", entry.SequenceID, err)
		}
	}
}
