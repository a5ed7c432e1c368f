// Package gateway adapts each external AI provider client to a uniform
// prompt-in, text-out call the stage agents execute through.
package gateway

import (
	"context"

	"github.com/scholarly-group/paper-pipeline/internal/resilience"
)

// Provider ids used for rate limiting and observability.
const (
	ProviderAnthropic       = "anthropic"
	ProviderOpenAI          = "openai"
	ProviderGemini          = "gemini"
	ProviderPerplexity      = "perplexity"
	ProviderSemanticScholar = "semanticscholar"
)

// Prompt is the uniform input to a provider invocation.
type Prompt struct {
	System string
	User   string
}

// Gateway is the uniform call surface over one external provider.
type Gateway interface {
	ProviderID() string
	Invoke(ctx context.Context, p Prompt) (string, error)
}

// classifyStatus rewraps a provider API error by its HTTP status so the
// resilience layer can tell throttling from auth failure.
func classifyStatus(err error, statusCode int) error {
	if resilience.IsTransientHTTPStatus(statusCode) {
		return resilience.NewTransientError(err, statusCode)
	}
	return resilience.NewStatusError(err, statusCode)
}
