package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"whatsapp-ai-assistant/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.DocumentIngester = (*ServiceIngester)(nil)

// ServiceIngester delegates document processing to the knowledge-base
// service. Ingest blocks until the service reports the document queryable.
type ServiceIngester struct {
	base   string
	client *http.Client
}

func NewServiceIngester(baseURL string, timeout time.Duration) (*ServiceIngester, error) {
	if baseURL == "" {
		return nil, errors.New("document service url empty")
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ServiceIngester{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (s *ServiceIngester) Ingest(ctx context.Context, documentRef, conversationID string) error {
	reqBody := struct {
		DocumentID     string `json:"document_id"`
		ConversationID string `json:"conversation_id"`
	}{DocumentID: documentRef, ConversationID: conversationID}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/knowledge-base/ingest", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("document service http %d", resp.StatusCode)
	}
	return nil
}

var _ adapter.DocumentIngester = (*NoopIngester)(nil)

// NoopIngester accepts every document without processing it.
type NoopIngester struct{}

func NewNoopIngester() *NoopIngester { return &NoopIngester{} }

func (n *NoopIngester) Ingest(ctx context.Context, documentRef, conversationID string) error {
	return nil
}
