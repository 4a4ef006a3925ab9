package ai

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"

	"google.golang.org/genai"

	"whatsapp-ai-assistant/internal/domain/ports/adapter"
)

var _ adapter.AgentAdapter = (*GeminiAdapter)(nil)

// GeminiAdapter streams assistant turns from the Gemini API via the
// official SDK.
type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
	maxOut       int
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, model string, maxOutputTokens int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiAdapter{client: c, defaultModel: model, maxOut: maxOutputTokens}, nil
}

func (g *GeminiAdapter) StreamResponse(ctx context.Context, req adapter.StreamRequest) (adapter.TokenStream, error) {
	chat, err := g.client.Chats.Create(
		ctx,
		g.defaultModel,
		&genai.GenerateContentConfig{
			MaxOutputTokens: int32(g.maxOut),
		},
		toGenAIHistory(req.History),
	)
	if err != nil {
		return nil, err
	}

	parts := []genai.Part{{Text: req.Message}}
	if len(req.Image) > 0 {
		parts = append(parts, genai.Part{
			InlineData: &genai.Blob{MIMEType: req.ImageMimetype, Data: req.Image},
		})
	}

	next, stop := iter.Pull2(chat.SendMessageStream(ctx, parts...))
	return &geminiStream{next: next, stop: stop}, nil
}

type geminiStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
}

func (s *geminiStream) Recv() (string, error) {
	for {
		resp, err, ok := s.next()
		if !ok {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		if text := candidateText(resp); text != "" {
			return text, nil
		}
	}
}

func (s *geminiStream) Close() error {
	s.stop()
	return nil
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func toGenAIHistory(msgs []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		if strings.ToLower(m.Role) == "assistant" || strings.ToLower(m.Role) == "model" {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}
