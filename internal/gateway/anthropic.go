package gateway

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/scholarly-group/paper-pipeline/pkg/anthropic"
)

// AnthropicGateway invokes Claude models through the SDK client.
type AnthropicGateway struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicGateway creates a gateway bound to one model.
func NewAnthropicGateway(client anthropic.Client, model string, maxTokens int64) *AnthropicGateway {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicGateway{client: client, model: model, maxTokens: maxTokens}
}

func (g *AnthropicGateway) ProviderID() string { return ProviderAnthropic }

func (g *AnthropicGateway) Invoke(ctx context.Context, p Prompt) (string, error) {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    p.System,
		Messages:  []anthropic.Message{{Role: "user", Content: p.User}},
	})
	if err != nil {
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) {
			return "", classifyStatus(err, apiErr.StatusCode)
		}
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", eris.New("anthropic: empty completion")
	}
	return text, nil
}
