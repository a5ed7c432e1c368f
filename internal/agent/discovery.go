package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/scholarly-group/paper-pipeline/internal/gateway"
)

const maxDiscoveryQueryLen = 300

// RelatedPaperDiscoverer searches an academic index for papers related
// to the analyzed one. It prefers the title as the query and falls back
// to the opening of the summary or extracted text.
type RelatedPaperDiscoverer struct {
	base
}

func NewRelatedPaperDiscoverer(gw gateway.Gateway) *RelatedPaperDiscoverer {
	return &RelatedPaperDiscoverer{base: newBase(TypeRelatedPaperDiscovery, gw, "")}
}

func (a *RelatedPaperDiscoverer) EstimateProcessingTime(task *AgentTask) time.Duration {
	return 10 * time.Second
}

func (a *RelatedPaperDiscoverer) Process(ctx context.Context, task *AgentTask) (*AgentResult, error) {
	if task == nil || task.Input == nil {
		return NewFailure("", "related paper discovery: task missing or input unset"), nil
	}

	query := a.buildQuery(task)
	if query == "" {
		return NewFailure(task.TaskID, "related paper discovery: no content available to build a search query"), nil
	}

	out, err := a.gw.Invoke(ctx, gateway.Prompt{User: query})
	if err != nil {
		return nil, err
	}

	var found []json.RawMessage
	if err := json.Unmarshal([]byte(out), &found); err != nil {
		return NewFailure(task.TaskID, "related paper discovery: unexpected search response shape"), nil
	}

	return NewSuccess(task.TaskID, map[string]any{
		"relatedPapers": out,
		"query":         query,
		"count":         len(found),
	}), nil
}

func (a *RelatedPaperDiscoverer) buildQuery(task *AgentTask) string {
	if title := task.StringInput(KeyTitle); title != "" {
		return truncate(title, maxDiscoveryQueryLen)
	}
	for _, key := range []string{KeySummary, KeyTextContent} {
		if v := task.StringInput(key); v != "" {
			// Take the first sentence when one fits, otherwise a prefix.
			if i := strings.IndexAny(v, ".\n"); i > 0 && i < maxDiscoveryQueryLen {
				return strings.TrimSpace(v[:i])
			}
			return strings.TrimSpace(truncate(v, maxDiscoveryQueryLen))
		}
	}
	return ""
}
