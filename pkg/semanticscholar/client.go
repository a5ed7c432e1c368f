// Package semanticscholar provides a client for the Semantic Scholar Graph API.
package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.semanticscholar.org/graph/v1"
	defaultFields  = "title,abstract,year,authors,venue,url,citationCount"
)

// Client defines the Semantic Scholar operations used by the pipeline.
type Client interface {
	// SearchPapers runs a relevance search over the paper corpus.
	SearchPapers(ctx context.Context, query string, limit int) (*SearchResponse, error)
}

// APIError is returned for non-2xx responses so callers can classify by status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("semanticscholar: unexpected status %d: %s", e.StatusCode, e.Body)
}

// SearchResponse is the parsed /paper/search response.
type SearchResponse struct {
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Data   []Paper `json:"data"`
}

// Paper is a single search hit.
type Paper struct {
	PaperID       string   `json:"paperId"`
	Title         string   `json:"title"`
	Abstract      string   `json:"abstract"`
	Year          int      `json:"year"`
	Venue         string   `json:"venue"`
	URL           string   `json:"url"`
	CitationCount int      `json:"citationCount"`
	Authors       []Author `json:"authors"`
}

// Author identifies a paper author.
type Author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Semantic Scholar client. The API key is optional; an
// empty key uses the public unauthenticated tier.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchPapers(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	if limit <= 0 {
		limit = 10
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("fields", defaultFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/paper/search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "semanticscholar: create request")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "semanticscholar: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "semanticscholar: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "semanticscholar: unmarshal response")
	}

	return &result, nil
}
