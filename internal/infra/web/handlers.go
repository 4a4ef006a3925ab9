package web

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"whatsapp-ai-assistant/internal/domain"
	"whatsapp-ai-assistant/internal/usecase"
)

// The expected JSON request body for enqueueing a chat message.
type enqueueRequest struct {
	WhatsAppJID       string `json:"whatsapp_jid"`
	Message           string `json:"message"`
	ConversationType  string `json:"conversation_type"`
	SenderJID         string `json:"sender_jid,omitempty"`
	SenderName        string `json:"sender_name,omitempty"`
	WhatsAppMessageID string `json:"whatsapp_message_id,omitempty"`
	ImageData         string `json:"image_data,omitempty"` // base64
	ImageMimetype     string `json:"image_mimetype,omitempty"`
	DocumentRef       string `json:"document_ref,omitempty"`
	DocumentFilename  string `json:"document_filename,omitempty"`
	DocumentMimetype  string `json:"document_mimetype,omitempty"`
}

type enqueueResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Handler for enqueueing a chat job. Returns 202 with the job id; the client
// polls /chat/job/{jobID} for progress.
func enqueueHandler(enqueueUC *usecase.EnqueueUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req enqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var image []byte
		if req.ImageData != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.ImageData)
			if err != nil {
				http.Error(w, "Invalid base64 image data", http.StatusBadRequest)
				return
			}
			image = decoded
		}

		d, err := enqueueUC.Enqueue(ctx, &usecase.EnqueueRequest{
			ConversationJID:   req.WhatsAppJID,
			ConversationType:  req.ConversationType,
			Message:           req.Message,
			SenderJID:         req.SenderJID,
			SenderName:        req.SenderName,
			WhatsAppMessageID: req.WhatsAppMessageID,
			ImageData:         image,
			ImageMimetype:     req.ImageMimetype,
			DocumentRef:       req.DocumentRef,
			DocumentFilename:  req.DocumentFilename,
			DocumentMimetype:  req.DocumentMimetype,
		})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidDescriptor) || errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Error().Err(err).Msg("enqueue failed")
			http.Error(w, "Failed to enqueue job", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(enqueueResponse{
			JobID:   d.JobID,
			Status:  "queued",
			Message: "Job queued successfully",
		})
	}
}

// Handler for polling a job's status and accumulated chunks.
func jobStatusHandler(statusUC *usecase.JobStatusReader, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		jobID := chi.URLParam(r, "jobID")
		if jobID == "" {
			http.Error(w, "Job ID is required", http.StatusBadRequest)
			return
		}

		state, err := statusUC.State(ctx, jobID)
		if err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("job status lookup failed")
			http.Error(w, "Failed to get job status", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(state)
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
