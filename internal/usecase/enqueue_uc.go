package usecase

import (
	"context"
	"fmt"
	"time"

	"whatsapp-ai-assistant/internal/domain"
	"whatsapp-ai-assistant/internal/domain/model"
	"whatsapp-ai-assistant/internal/domain/ports/repository"
	"whatsapp-ai-assistant/internal/infra/logging"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EnqueueRequest is the producer-side input for one job. Image bytes are
// carried out of band through the media store; documents arrive as a
// reference to an already-uploaded file.
type EnqueueRequest struct {
	ConversationJID   string
	ConversationType  string
	Message           string
	SenderJID         string
	SenderName        string
	WhatsAppMessageID string
	ImageData         []byte
	ImageMimetype     string
	DocumentRef       string
	DocumentFilename  string
	DocumentMimetype  string
}

// EnqueueUseCase validates a request, persists the user turn, and appends
// the job descriptor to the conversation's log. Validation failures happen
// here, before anything enters the log.
type EnqueueUseCase struct {
	log     repository.ConversationLog
	history repository.HistoryRepository
	media   repository.MediaStore
	logger  *zerolog.Logger
}

func NewEnqueueUseCase(
	log repository.ConversationLog,
	history repository.HistoryRepository,
	media repository.MediaStore,
	logger *zerolog.Logger,
) *EnqueueUseCase {
	l := logger.With().Str("component", "EnqueueUseCase").Logger()
	return &EnqueueUseCase{log: log, history: history, media: media, logger: &l}
}

func (uc *EnqueueUseCase) Enqueue(ctx context.Context, req *EnqueueRequest) (*model.JobDescriptor, error) {
	d, err := uc.buildDescriptor(req)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithJobID(logging.WithConversationID(ctx, d.ConversationID), d.JobID)
	log := logging.With(ctx, uc.logger)

	userMsgID, err := uc.history.SaveMessage(ctx, &model.ConversationMessage{
		ConversationID: d.ConversationID,
		Role:           "user",
		Content:        historyContent(req),
		SenderJID:      req.SenderJID,
		SenderName:     req.SenderName,
		JobID:          d.JobID,
	})
	if err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}
	d.UserMessageID = userMsgID

	if len(req.ImageData) > 0 {
		if err := uc.media.SaveMedia(ctx, d.JobID, req.ImageData); err != nil {
			return nil, fmt.Errorf("save media: %w", err)
		}
	}

	seq, err := uc.log.Append(ctx, d.ConversationID, d)
	if err != nil {
		return nil, fmt.Errorf("append to log: %w", err)
	}
	log.Info().Str("sequence_id", seq).Bool("has_image", len(req.ImageData) > 0).
		Bool("has_document", req.DocumentRef != "").Msg("job enqueued")
	return d, nil
}

func (uc *EnqueueUseCase) buildDescriptor(req *EnqueueRequest) (*model.JobDescriptor, error) {
	hasImage := len(req.ImageData) > 0 && req.ImageMimetype != ""
	hasDocument := req.DocumentRef != ""
	if hasImage && hasDocument {
		return nil, fmt.Errorf("%w: both image and document attached", domain.ErrInvalidDescriptor)
	}
	if hasDocument && req.DocumentMimetype != "application/pdf" {
		return nil, fmt.Errorf("%w: unsupported document mimetype %q", domain.ErrInvalidDescriptor, req.DocumentMimetype)
	}

	d := &model.JobDescriptor{
		JobID:             uuid.NewString(),
		ConversationID:    req.ConversationJID,
		ConversationType:  req.ConversationType,
		Message:           req.Message,
		WhatsAppMessageID: req.WhatsAppMessageID,
		EnqueuedAt:        time.Now().UTC(),
	}
	switch {
	case hasImage:
		d.Attachment = &model.Attachment{Kind: model.AttachmentImage, Mimetype: req.ImageMimetype}
	case hasDocument:
		d.Attachment = &model.Attachment{
			Kind:     model.AttachmentDocument,
			Mimetype: req.DocumentMimetype,
			Ref:      req.DocumentRef,
			Filename: req.DocumentFilename,
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// historyContent formats the stored user turn: attachment markers so later
// history reads stay meaningful, sender prefix for group chats.
func historyContent(req *EnqueueRequest) string {
	content := req.Message
	switch {
	case len(req.ImageData) > 0:
		if req.Message != "" {
			content = fmt.Sprintf("[Image: %s]", req.Message)
		} else {
			content = "[Image]"
		}
	case req.DocumentRef != "":
		content = fmt.Sprintf("[Document: %s]", req.DocumentFilename)
		if req.Message != "" {
			content = fmt.Sprintf("%s - %s", content, req.Message)
		}
	}
	if req.SenderName != "" {
		content = fmt.Sprintf("%s: %s", req.SenderName, content)
	}
	return content
}
