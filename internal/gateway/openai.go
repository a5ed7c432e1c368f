package gateway

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/scholarly-group/paper-pipeline/pkg/openai"
)

// OpenAIGateway invokes GPT models through the SDK client.
type OpenAIGateway struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAIGateway creates a gateway bound to one model.
func NewOpenAIGateway(client openai.Client, model string, maxTokens int64) *OpenAIGateway {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &OpenAIGateway{client: client, model: model, maxTokens: maxTokens}
}

func (g *OpenAIGateway) ProviderID() string { return ProviderOpenAI }

func (g *OpenAIGateway) Invoke(ctx context.Context, p Prompt) (string, error) {
	resp, err := g.client.Complete(ctx, openai.CompletionRequest{
		Model:     g.model,
		System:    p.System,
		Prompt:    p.User,
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", classifyStatus(err, apiErr.StatusCode)
		}
		return "", err
	}
	if resp.Content == "" {
		return "", eris.New("openai: empty completion")
	}
	return resp.Content, nil
}
