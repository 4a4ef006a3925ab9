package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"whatsapp-ai-assistant/internal/config"
	"whatsapp-ai-assistant/internal/domain"
	"whatsapp-ai-assistant/internal/domain/model"
	"whatsapp-ai-assistant/internal/domain/ports/adapter"
	"whatsapp-ai-assistant/internal/domain/ports/repository"
	"whatsapp-ai-assistant/internal/infra/logging"
	"whatsapp-ai-assistant/internal/infra/metrics"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
)

// JobExecutor is the unit of work behind a log entry: it resolves history,
// streams the agent's response into the chunk store, persists the final
// message, and records completion. Execution is idempotent per job id: a
// redelivered entry whose job already has a completion record is skipped.
type JobExecutor struct {
	history  repository.HistoryRepository
	chunks   repository.ChunkStore
	media    repository.MediaStore
	agent    adapter.AgentAdapter
	ingester adapter.DocumentIngester
	wa       adapter.WhatsAppAdapter
	histCfg  config.HistoryConfig
	encoder  *tiktoken.Tiktoken
	log      *zerolog.Logger
}

func NewJobExecutor(
	history repository.HistoryRepository,
	chunks repository.ChunkStore,
	media repository.MediaStore,
	agent adapter.AgentAdapter,
	ingester adapter.DocumentIngester,
	wa adapter.WhatsAppAdapter,
	histCfg config.HistoryConfig,
	logger *zerolog.Logger,
) *JobExecutor {
	l := logger.With().Str("component", "JobExecutor").Logger()
	// Best-effort: without the encoding (e.g. offline), history is bounded
	// by message count only.
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		l.Warn().Err(err).Msg("tiktoken encoding unavailable, token budget disabled")
	}
	return &JobExecutor{
		history:  history,
		chunks:   chunks,
		media:    media,
		agent:    agent,
		ingester: ingester,
		wa:       wa,
		histCfg:  histCfg,
		encoder:  enc,
		log:      &l,
	}
}

func (e *JobExecutor) Execute(ctx context.Context, d *model.JobDescriptor) error {
	ctx = logging.WithJobID(logging.WithConversationID(ctx, d.ConversationID), d.JobID)
	log := logging.With(ctx, e.log)
	start := time.Now()

	// Effectively-once gate: a completion record means a prior delivery
	// already ran this job to the end.
	rec, err := e.chunks.Completion(ctx, d.JobID)
	if err != nil {
		return fmt.Errorf("check completion: %w", err)
	}
	if rec != nil {
		log.Info().Msg("job already complete, skipping redelivery")
		metrics.IncJob("skipped")
		return nil
	}

	log.Info().Str("conversation_type", d.ConversationType).Msg("job started")

	message := d.Message
	if d.Attachment != nil && d.Attachment.Kind == model.AttachmentDocument {
		rewritten, err := e.ingestDocument(ctx, d, log)
		if err != nil {
			return e.failJob(ctx, d, 0, "", documentErrorText(d.Attachment.Filename), err, log)
		}
		message = rewritten
	}

	history, err := e.loadHistory(ctx, d)
	if err != nil {
		return e.failJob(ctx, d, 0, "", genericErrorText, err, log)
	}

	req := adapter.StreamRequest{Message: message, History: history}
	if d.Attachment != nil && d.Attachment.Kind == model.AttachmentImage {
		img, err := e.media.Media(ctx, d.JobID)
		if err != nil {
			log.Warn().Err(err).Msg("media fetch failed, continuing without image")
		} else if img == nil {
			log.Warn().Msg("image attachment flagged but no media stored")
		} else {
			req.Image = img
			req.ImageMimetype = d.Attachment.Mimetype
		}
	}

	stream, err := e.agent.StreamResponse(ctx, req)
	if err != nil {
		return e.failJob(ctx, d, 0, "", genericErrorText, err, log)
	}
	defer stream.Close()

	var full strings.Builder
	index := 0
	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return e.failJob(ctx, d, index, full.String(), genericErrorText, err, log)
		}
		chunk := model.Chunk{Index: index, Content: fragment, Timestamp: time.Now().UTC()}
		if err := e.chunks.AppendChunk(ctx, d.JobID, chunk); err != nil {
			return e.failJob(ctx, d, index, full.String(), genericErrorText, err, log)
		}
		full.WriteString(fragment)
		index++
	}

	if req.Image != nil {
		if err := e.media.DeleteMedia(ctx, d.JobID); err != nil {
			log.Warn().Err(err).Msg("media cleanup failed")
		}
	}

	msgID, err := e.history.SaveMessage(ctx, &model.ConversationMessage{
		ConversationID: d.ConversationID,
		Role:           "assistant",
		Content:        full.String(),
		JobID:          d.JobID,
	})
	if err != nil {
		return e.failJob(ctx, d, index, full.String(), genericErrorText, err, log)
	}

	err = e.chunks.WriteCompletion(ctx, &model.CompletionRecord{
		JobID:          d.JobID,
		ConversationID: d.ConversationID,
		TotalChunks:    index,
		MessageID:      msgID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyComplete) {
			// Lost a race with a concurrent duplicate delivery; the job is
			// done either way.
			log.Warn().Msg("completion record already written")
		} else {
			return fmt.Errorf("write completion: %w", err)
		}
	}

	metrics.IncJob("completed")
	metrics.ObserveJobExecution(time.Since(start).Seconds(), index)
	log.Info().Int("total_chunks", index).Int("response_len", full.Len()).
		Dur("duration", time.Since(start)).Msg("job completed")
	return nil
}

// ingestDocument runs the pre-processing step for document attachments,
// with progress reactions on the originating message. On success it returns
// the rewritten prompt referencing the uploaded document.
func (e *JobExecutor) ingestDocument(ctx context.Context, d *model.JobDescriptor, log *zerolog.Logger) (string, error) {
	e.react(ctx, d, "⏳", log)
	if err := e.ingester.Ingest(ctx, d.Attachment.Ref, d.ConversationID); err != nil {
		e.react(ctx, d, "❌", log)
		return "", fmt.Errorf("ingest document %s: %w", d.Attachment.Ref, err)
	}
	e.react(ctx, d, "✅", log)
	log.Info().Str("document_ref", d.Attachment.Ref).Msg("document ingested")

	prompt := fmt.Sprintf("I have uploaded a document called %q. Please analyze it and let me know what it contains.", d.Attachment.Filename)
	if d.Message != "" {
		prompt = fmt.Sprintf("%s\n\n%s", prompt, d.Message)
	}
	return prompt, nil
}

func (e *JobExecutor) react(ctx context.Context, d *model.JobDescriptor, emoji string, log *zerolog.Logger) {
	if d.WhatsAppMessageID == "" {
		return
	}
	if err := e.wa.SendReaction(ctx, d.ConversationID, d.WhatsAppMessageID, emoji); err != nil {
		log.Warn().Err(err).Str("emoji", emoji).Msg("reaction send failed")
	}
}

func (e *JobExecutor) loadHistory(ctx context.Context, d *model.JobDescriptor) ([]adapter.Message, error) {
	limit := e.histCfg.LimitPrivate
	if d.ConversationType == "group" {
		limit = e.histCfg.LimitGroup
	}
	msgs, err := e.history.Recent(ctx, d.ConversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	history := make([]adapter.Message, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, adapter.Message{Role: m.Role, Content: m.Content})
	}
	return e.trimToBudget(history), nil
}

// trimToBudget drops oldest turns until the history fits the token budget.
func (e *JobExecutor) trimToBudget(history []adapter.Message) []adapter.Message {
	if e.encoder == nil || e.histCfg.TokenBudget <= 0 {
		return history
	}
	total := 0
	counts := make([]int, len(history))
	for i, m := range history {
		counts[i] = len(e.encoder.Encode(m.Content, nil, nil))
		total += counts[i]
	}
	drop := 0
	for drop < len(history) && total > e.histCfg.TokenBudget {
		total -= counts[drop]
		drop++
	}
	return history[drop:]
}

// failJob is the terminal failure path: a user-facing error chunk, a
// best-effort save of any partial output, and an error completion record so
// the job never reads as in-progress forever. The original error is
// returned for the runner to log.
func (e *JobExecutor) failJob(ctx context.Context, d *model.JobDescriptor, index int, partial, userText string, cause error, log *zerolog.Logger) error {
	log.Error().Err(cause).Int("chunks_emitted", index).Msg("job failed")

	totalChunks := index
	chunk := model.Chunk{Index: index, Content: userText, Timestamp: time.Now().UTC()}
	if err := e.chunks.AppendChunk(ctx, d.JobID, chunk); err != nil {
		log.Warn().Err(err).Msg("error chunk append failed")
	} else {
		totalChunks++
	}

	if partial != "" {
		if _, err := e.history.SaveMessage(ctx, &model.ConversationMessage{
			ConversationID: d.ConversationID,
			Role:           "assistant",
			Content:        "[Partial - Error] " + partial,
			JobID:          d.JobID,
		}); err != nil {
			log.Warn().Err(err).Msg("partial response save failed")
		}
	}

	if err := e.chunks.WriteCompletion(ctx, &model.CompletionRecord{
		JobID:          d.JobID,
		ConversationID: d.ConversationID,
		TotalChunks:    totalChunks,
		Error:          cause.Error(),
	}); err != nil && !errors.Is(err, domain.ErrJobAlreadyComplete) {
		log.Warn().Err(err).Msg("error completion record write failed")
	}

	metrics.IncJob("failed")
	return cause
}

const genericErrorText = "Sorry, something went wrong while answering. Please try again."

func documentErrorText(filename string) string {
	return fmt.Sprintf("Sorry, I couldn't process your document %q. Please try uploading it again.", filename)
}
