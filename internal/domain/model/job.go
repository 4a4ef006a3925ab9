package model

import (
	"encoding/json"
	"fmt"
	"time"

	"whatsapp-ai-assistant/internal/domain"

	"github.com/google/uuid"
)

// DescriptorSchemaVersion tags serialized descriptors so consumers can
// reject payloads written by an incompatible producer.
const DescriptorSchemaVersion = 1

type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
)

// Attachment references binary content stored outside the log entry
// (the media store for images, the upload directory for documents).
type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	Mimetype string         `json:"mimetype"`
	Ref      string         `json:"ref"`
	Filename string         `json:"filename,omitempty"`
}

// JobDescriptor is immutable once enqueued. Exactly one log entry
// references it.
type JobDescriptor struct {
	JobID             string      `json:"job_id"`
	ConversationID    string      `json:"conversation_id"`
	ConversationType  string      `json:"conversation_type"` // "private" | "group"
	Message           string      `json:"message"`
	UserMessageID     string      `json:"user_message_id"`
	WhatsAppMessageID string      `json:"whatsapp_message_id,omitempty"`
	Attachment        *Attachment `json:"attachment,omitempty"`
	EnqueuedAt        time.Time   `json:"enqueued_at"`
}

// Validate enforces the enqueue-time contract: malformed descriptors never
// enter the log.
func (d *JobDescriptor) Validate() error {
	if d.JobID == "" {
		return fmt.Errorf("%w: missing job_id", domain.ErrInvalidDescriptor)
	}
	if _, err := uuid.Parse(d.JobID); err != nil {
		return fmt.Errorf("%w: job_id is not a UUID", domain.ErrInvalidDescriptor)
	}
	if d.ConversationID == "" {
		return fmt.Errorf("%w: missing conversation_id", domain.ErrInvalidDescriptor)
	}
	switch d.ConversationType {
	case "private", "group":
	default:
		return fmt.Errorf("%w: conversation_type %q", domain.ErrInvalidDescriptor, d.ConversationType)
	}
	if d.Message == "" && d.Attachment == nil {
		return fmt.Errorf("%w: empty message and no attachment", domain.ErrInvalidDescriptor)
	}
	if d.Attachment != nil {
		switch d.Attachment.Kind {
		case AttachmentImage, AttachmentDocument:
		default:
			return fmt.Errorf("%w: attachment kind %q", domain.ErrInvalidDescriptor, d.Attachment.Kind)
		}
		if d.Attachment.Kind == AttachmentDocument && d.Attachment.Ref == "" {
			return fmt.Errorf("%w: document attachment without ref", domain.ErrInvalidDescriptor)
		}
	}
	return nil
}

// envelope is the wire form written to a log entry.
type envelope struct {
	Version    int            `json:"v"`
	Descriptor *JobDescriptor `json:"job"`
}

// EncodeDescriptor serializes a descriptor into the log's wire form.
func EncodeDescriptor(d *JobDescriptor) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: DescriptorSchemaVersion, Descriptor: d})
}

// DecodeDescriptor parses a log entry payload, rejecting unknown schema
// versions and payloads that fail validation.
func DecodeDescriptor(raw []byte) (*JobDescriptor, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDescriptor, err)
	}
	if env.Version != DescriptorSchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", domain.ErrInvalidDescriptor, env.Version)
	}
	if env.Descriptor == nil {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrInvalidDescriptor)
	}
	if err := env.Descriptor.Validate(); err != nil {
		return nil, err
	}
	return env.Descriptor, nil
}

// LogEntry is a JobDescriptor wrapped with its log-assigned sequence id.
// DeliveryCount is 1 on first delivery and increments on each reclaim.
type LogEntry struct {
	SequenceID    string
	Descriptor    *JobDescriptor
	DeliveryCount int64
}
