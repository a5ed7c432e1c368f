package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarly-group/paper-pipeline/internal/resilience"
	"github.com/scholarly-group/paper-pipeline/pkg/anthropic"
	"github.com/scholarly-group/paper-pipeline/pkg/gemini"
	"github.com/scholarly-group/paper-pipeline/pkg/openai"
	"github.com/scholarly-group/paper-pipeline/pkg/perplexity"
	"github.com/scholarly-group/paper-pipeline/pkg/semanticscholar"
)

func TestPerplexityGateway_AppendsCitations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(perplexity.ChatCompletionResponse{
			Choices:   []perplexity.Choice{{Message: perplexity.Message{Content: "the claim holds"}}},
			Citations: []string{"https://example.org/ref"},
		})
	}))
	defer srv.Close()

	g := NewPerplexityGateway(perplexity.NewClient("k", perplexity.WithBaseURL(srv.URL)), "sonar-pro")
	out, err := g.Invoke(context.Background(), Prompt{User: "verify"})
	require.NoError(t, err)
	assert.Contains(t, out, "the claim holds")
	assert.Contains(t, out, "https://example.org/ref")
}

func TestPerplexityGateway_ClassifiesThrottling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewPerplexityGateway(perplexity.NewClient("k", perplexity.WithBaseURL(srv.URL)), "sonar-pro")
	_, err := g.Invoke(context.Background(), Prompt{User: "verify"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err), "429 must classify as transient")
}

func TestPerplexityGateway_ClassifiesAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewPerplexityGateway(perplexity.NewClient("k", perplexity.WithBaseURL(srv.URL)), "sonar-pro")
	_, err := g.Invoke(context.Background(), Prompt{User: "verify"})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err), "401 must not be retryable")
	assert.True(t, resilience.IsFatal(err))
}

func TestSemanticScholarGateway_ReturnsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "transformer architectures", r.URL.Query().Get("query"))
		_ = json.NewEncoder(w).Encode(semanticscholar.SearchResponse{
			Data: []semanticscholar.Paper{{PaperID: "p1", Title: "Transformers"}},
		})
	}))
	defer srv.Close()

	g := NewSemanticScholarGateway(semanticscholar.NewClient("", semanticscholar.WithBaseURL(srv.URL)), 5)
	out, err := g.Invoke(context.Background(), Prompt{User: "transformer architectures"})
	require.NoError(t, err)

	var papers []semanticscholar.Paper
	require.NoError(t, json.Unmarshal([]byte(out), &papers))
	require.Len(t, papers, 1)
	assert.Equal(t, "Transformers", papers[0].Title)
}

func TestGateways_ProviderIDs(t *testing.T) {
	assert.Equal(t, ProviderAnthropic, NewAnthropicGateway(nil, "m", 0).ProviderID())
	assert.Equal(t, ProviderOpenAI, NewOpenAIGateway(nil, "m", 0).ProviderID())
	assert.Equal(t, ProviderGemini, NewGeminiGateway(nil, "m", 0).ProviderID())
	assert.Equal(t, ProviderPerplexity, NewPerplexityGateway(nil, "m").ProviderID())
	assert.Equal(t, ProviderSemanticScholar, NewSemanticScholarGateway(nil, 0).ProviderID())
}

type fakeAnthropicClient struct {
	err  error
	text string
}

func (f *fakeAnthropicClient) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}}}, nil
}

type fakeOpenAIClient struct {
	err     error
	content string
}

func (f *fakeOpenAIClient) Complete(context.Context, openai.CompletionRequest) (*openai.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &openai.CompletionResponse{Content: f.content}, nil
}

type fakeGeminiClient struct {
	err     error
	content string
}

func (f *fakeGeminiClient) Generate(context.Context, gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &gemini.GenerateResponse{Content: f.content}, nil
}

func TestAnthropicGateway_ClassifiesServerError(t *testing.T) {
	client := &fakeAnthropicClient{err: &anthropic.APIError{StatusCode: http.StatusServiceUnavailable, Body: "overloaded"}}

	g := NewAnthropicGateway(client, "claude-sonnet-4-5", 0)
	_, err := g.Invoke(context.Background(), Prompt{User: "extract"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err), "503 must classify as transient")
}

func TestAnthropicGateway_ClassifiesAuthFailure(t *testing.T) {
	client := &fakeAnthropicClient{err: &anthropic.APIError{StatusCode: http.StatusUnauthorized, Body: "bad key"}}

	g := NewAnthropicGateway(client, "claude-sonnet-4-5", 0)
	_, err := g.Invoke(context.Background(), Prompt{User: "extract"})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err), "401 must not be retryable")
	assert.True(t, resilience.IsFatal(err))
}

func TestOpenAIGateway_ClassifiesServerError(t *testing.T) {
	client := &fakeOpenAIClient{err: &openai.APIError{StatusCode: http.StatusBadGateway, Body: "upstream down"}}

	g := NewOpenAIGateway(client, "gpt-5", 0)
	_, err := g.Invoke(context.Background(), Prompt{User: "enhance"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err), "502 must classify as transient")
}

func TestOpenAIGateway_ClassifiesAuthFailure(t *testing.T) {
	client := &fakeOpenAIClient{err: &openai.APIError{StatusCode: http.StatusForbidden, Body: "key revoked"}}

	g := NewOpenAIGateway(client, "gpt-5", 0)
	_, err := g.Invoke(context.Background(), Prompt{User: "enhance"})
	require.Error(t, err)
	assert.True(t, resilience.IsFatal(err))
}

func TestGeminiGateway_ClassifiesThrottling(t *testing.T) {
	client := &fakeGeminiClient{err: &gemini.APIError{StatusCode: http.StatusTooManyRequests, Body: "quota"}}

	g := NewGeminiGateway(client, "gemini-2.5-flash", 0)
	_, err := g.Invoke(context.Background(), Prompt{User: "check"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err), "429 must classify as transient")
}
