// Package gemini wraps the Google genai SDK behind a narrow generation
// interface.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// Client defines the Gemini API operations used by the pipeline.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// APIError is returned for non-2xx responses so callers can classify by status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d: %s", e.StatusCode, e.Body)
}

// GenerateRequest is our own request type for content generation.
type GenerateRequest struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int32
}

// GenerateResponse holds the generated text.
type GenerateResponse struct {
	Content string
}

// sdkClient implements Client using google.golang.org/genai. The underlying
// client is created lazily because its constructor requires a context.
type sdkClient struct {
	apiKey  string
	baseURL string
	http    *http.Client

	mu     sync.Mutex
	client *genai.Client
}

// Option configures the client.
type Option func(*sdkClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *sdkClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *sdkClient) {
		c.http = hc
	}
}

// NewClient creates a new Gemini client backed by the genai SDK.
func NewClient(apiKey string, opts ...Option) Client {
	c := &sdkClient{apiKey: apiKey}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *sdkClient) get(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.http,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	c.client = client
	return client, nil
}

func (c *sdkClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	client, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = req.MaxTokens
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}},
	}

	result, err := client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		var apierr genai.APIError
		if errors.As(err, &apierr) {
			return nil, &APIError{StatusCode: apierr.Code, Body: apierr.Message}
		}
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	return &GenerateResponse{Content: result.Text()}, nil
}
