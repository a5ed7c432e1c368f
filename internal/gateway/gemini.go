package gateway

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/scholarly-group/paper-pipeline/pkg/gemini"
)

// GeminiGateway invokes Gemini models through the genai client.
type GeminiGateway struct {
	client    gemini.Client
	model     string
	maxTokens int32
}

// NewGeminiGateway creates a gateway bound to one model.
func NewGeminiGateway(client gemini.Client, model string, maxTokens int32) *GeminiGateway {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &GeminiGateway{client: client, model: model, maxTokens: maxTokens}
}

func (g *GeminiGateway) ProviderID() string { return ProviderGemini }

func (g *GeminiGateway) Invoke(ctx context.Context, p Prompt) (string, error) {
	resp, err := g.client.Generate(ctx, gemini.GenerateRequest{
		Model:     g.model,
		System:    p.System,
		Prompt:    p.User,
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) {
			return "", classifyStatus(err, apiErr.StatusCode)
		}
		return "", err
	}
	if resp.Content == "" {
		return "", eris.New("gemini: empty completion")
	}
	return resp.Content, nil
}
