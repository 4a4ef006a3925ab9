package adapter

import "context"

// Message represents one prior conversation turn handed to the agent.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// StreamRequest is the agent invocation: the user's message, bounded prior
// history, and an optional inline image for vision models.
type StreamRequest struct {
	Message       string
	History       []Message
	Image         []byte
	ImageMimetype string
}

// TokenStream is a lazy, finite, non-restartable sequence of text
// fragments. Recv returns io.EOF when the agent's turn is complete.
// Cancelling the surrounding context stops consumption; the provider may
// keep producing briefly (best-effort cancellation).
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// AgentAdapter is the port for the LLM agent collaborator.
type AgentAdapter interface {
	StreamResponse(ctx context.Context, req StreamRequest) (TokenStream, error)
}
