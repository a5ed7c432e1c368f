package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/scholarly-group/paper-pipeline/pkg/semanticscholar"
)

// SemanticScholarGateway treats the prompt's user text as a corpus search
// query and returns the matching papers as a JSON document.
type SemanticScholarGateway struct {
	client semanticscholar.Client
	limit  int
}

// NewSemanticScholarGateway creates a gateway with a fixed result limit.
func NewSemanticScholarGateway(client semanticscholar.Client, limit int) *SemanticScholarGateway {
	if limit <= 0 {
		limit = 10
	}
	return &SemanticScholarGateway{client: client, limit: limit}
}

func (g *SemanticScholarGateway) ProviderID() string { return ProviderSemanticScholar }

func (g *SemanticScholarGateway) Invoke(ctx context.Context, p Prompt) (string, error) {
	resp, err := g.client.SearchPapers(ctx, p.User, g.limit)
	if err != nil {
		var apiErr *semanticscholar.APIError
		if errors.As(err, &apiErr) {
			return "", classifyStatus(err, apiErr.StatusCode)
		}
		return "", err
	}

	out, err := json.Marshal(resp.Data)
	if err != nil {
		return "", eris.Wrap(err, "semanticscholar: marshal results")
	}
	return string(out), nil
}
