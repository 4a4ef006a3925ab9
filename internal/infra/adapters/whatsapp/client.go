package whatsapp

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
var _ adapter.WhatsAppAdapter = (*BridgeClient)(nil)

// BridgeClient talks to the WhatsApp bridge's REST API. Only the reaction
// endpoint is used by the pipeline; delivery of assistant replies happens
// through the bridge polling job status.
type BridgeClient struct {
	base   string // e.g., http://localhost:3001
	client *http.Client
}

func NewBridgeClient(baseURL string, timeout time.Duration) (*BridgeClient, error) {
	if baseURL == "" {
		return nil, errors.New("whatsapp bridge url empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BridgeClient{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (c *BridgeClient) SendReaction(ctx context.Context, conversationJID, messageID, emoji string) error {
	reqBody := struct {
		PhoneNumber string `json:"phoneNumber"`
		MessageID   string `json:"message_id"`
		Emoji       string `json:"emoji"`
	}{PhoneNumber: conversationJID, MessageID: messageID, Emoji: emoji}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/whatsapp/send-reaction", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp bridge http %d", resp.StatusCode)
	}
	return nil
}

var _ adapter.WhatsAppAdapter = (*NoopClient)(nil)

// NoopClient swallows reaction sends, for dev mode and tests.
type NoopClient struct{}

func NewNoopClient() *NoopClient { return &NoopClient{} }

func (c *NoopClient) SendReaction(ctx context.Context, conversationJID, messageID, emoji string) error {
	return nil
}
