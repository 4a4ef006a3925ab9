package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-ai-assistant/internal/domain/model"
	"whatsapp-ai-assistant/internal/usecase"
)

type webFixture struct {
	log    *memLog
	chunks *memChunkStore
	router http.Handler
}

func newWebFixture() *webFixture {
	logger := zerolog.Nop()
	f := &webFixture{
		log:    &memLog{},
		chunks: newMemChunkStore(),
	}
	enqueueUC := usecase.NewEnqueueUseCase(f.log, &memHistory{}, newMemMedia(), &logger)
	statusUC := usecase.NewJobStatusReader(f.chunks)
	srv := NewServer(0, enqueueUC, statusUC, &logger)
	f.router = srv.routes()
	return f
}

func (f *webFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestEnqueueEndpointAcceptsValidRequest(t *testing.T) {
	f := newWebFixture()

	rec := f.do(http.MethodPost, "/chat/enqueue", map[string]any{
		"whatsapp_jid":      "12345@s.whatsapp.net",
		"message":           "hello",
		"conversation_type": "private",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "queued", resp.Status)

	require.Len(t, f.log.appended, 1)
	assert.Equal(t, resp.JobID, f.log.appended[0].JobID)
}

func TestEnqueueEndpointRejectsMalformedBody(t *testing.T) {
	f := newWebFixture()
	req := httptest.NewRequest(http.MethodPost, "/chat/enqueue", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnqueueEndpointRejectsInvalidRequest(t *testing.T) {
	f := newWebFixture()

	rec := f.do(http.MethodPost, "/chat/enqueue", map[string]any{
		"whatsapp_jid":      "12345@s.whatsapp.net",
		"conversation_type": "broadcast",
		"message":           "hello",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.log.appended)
}

func TestEnqueueEndpointRejectsBadBase64Image(t *testing.T) {
	f := newWebFixture()

	rec := f.do(http.MethodPost, "/chat/enqueue", map[string]any{
		"whatsapp_jid":      "12345@s.whatsapp.net",
		"conversation_type": "private",
		"message":           "look",
		"image_data":        "!!!not-base64!!!",
		"image_mimetype":    "image/jpeg",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobStatusEndpointReportsCompleteJob(t *testing.T) {
	f := newWebFixture()
	ctx := context.Background()
	require.NoError(t, f.chunks.AppendChunk(ctx, "job-1", model.Chunk{Index: 0, Content: "Hel"}))
	require.NoError(t, f.chunks.AppendChunk(ctx, "job-1", model.Chunk{Index: 1, Content: "lo"}))
	require.NoError(t, f.chunks.WriteCompletion(ctx, &model.CompletionRecord{
		JobID: "job-1", ConversationID: "c1", TotalChunks: 2, MessageID: "msg-1",
	}))

	rec := f.do(http.MethodGet, "/chat/job/job-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state usecase.JobState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, model.JobStatusComplete, state.Status)
	assert.True(t, state.Complete)
	assert.Equal(t, "Hello", state.FullResponse)
	assert.Len(t, state.Chunks, 2)
}

func TestJobStatusEndpointUnknownJobIsQueued(t *testing.T) {
	f := newWebFixture()

	rec := f.do(http.MethodGet, "/chat/job/nope", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state usecase.JobState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, model.JobStatusQueued, state.Status)
	assert.False(t, state.Complete)
}

func TestHealthEndpoint(t *testing.T) {
	f := newWebFixture()
	rec := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
