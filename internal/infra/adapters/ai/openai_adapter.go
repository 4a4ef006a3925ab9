package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"whatsapp-ai-assistant/internal/domain/ports/adapter"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/ssestream"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AgentAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter streams assistant turns from the Chat Completions API.
type OpenAIAdapter struct {
	client openai.Client
	model  string
	maxOut int
}

func NewOpenAIAdapter(apiKey, model string, maxOutputTokens int) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		maxOut: maxOutputTokens,
	}, nil
}

func (o *OpenAIAdapter) StreamResponse(ctx context.Context, req adapter.StreamRequest) (adapter.TokenStream, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+1)
	for _, m := range req.History {
		switch m.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, o.userMessage(req))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: messages,
	}
	if o.maxOut > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxOut))
	}

	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}
	return &openaiStream{stream: stream}, nil
}

func (o *OpenAIAdapter) userMessage(req adapter.StreamRequest) openai.ChatCompletionMessageParamUnion {
	if len(req.Image) == 0 {
		return openai.UserMessage(req.Message)
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", req.ImageMimetype, base64.StdEncoding.EncodeToString(req.Image))
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	}
	if req.Message != "" {
		parts = append(parts, openai.TextContentPart(req.Message))
	}
	return openai.UserMessage(parts)
}

type openaiStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

// Recv skips empty deltas so callers only see printable fragments.
func (s *openaiStream) Recv() (string, error) {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
	if err := s.stream.Err(); err != nil {
		return "", fmt.Errorf("openai stream: %w", err)
	}
	return "", io.EOF
}

func (s *openaiStream) Close() error { return s.stream.Close() }
