package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/scholarly-group/paper-pipeline/pkg/perplexity"
)

// PerplexityGateway invokes the Perplexity search-grounded completion API.
type PerplexityGateway struct {
	client perplexity.Client
	model  string
}

// NewPerplexityGateway creates a gateway bound to one model.
func NewPerplexityGateway(client perplexity.Client, model string) *PerplexityGateway {
	return &PerplexityGateway{client: client, model: model}
}

func (g *PerplexityGateway) ProviderID() string { return ProviderPerplexity }

func (g *PerplexityGateway) Invoke(ctx context.Context, p Prompt) (string, error) {
	messages := make([]perplexity.Message, 0, 2)
	if p.System != "" {
		messages = append(messages, perplexity.Message{Role: "system", Content: p.System})
	}
	messages = append(messages, perplexity.Message{Role: "user", Content: p.User})

	resp, err := g.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		var apiErr *perplexity.APIError
		if errors.As(err, &apiErr) {
			return "", classifyStatus(err, apiErr.StatusCode)
		}
		return "", err
	}

	content := resp.Content()
	if content == "" {
		return "", eris.New("perplexity: empty completion")
	}
	if len(resp.Citations) > 0 {
		content += "\n\nSources:\n" + strings.Join(resp.Citations, "\n")
	}
	return content, nil
}
