package agent

import (
	"context"
	"time"

	"github.com/scholarly-group/paper-pipeline/internal/gateway"
)

// ConceptExplainer explains the paper's key technical concepts in
// accessible terms. A summary, when present, focuses the explanation.
type ConceptExplainer struct {
	base
}

func NewConceptExplainer(gw gateway.Gateway, system string) *ConceptExplainer {
	return &ConceptExplainer{base: newBase(TypeConceptExplainer, gw, system)}
}

func (a *ConceptExplainer) EstimateProcessingTime(task *AgentTask) time.Duration {
	return estimate(task, 15*time.Second, 8*time.Second, 90*time.Second)
}

func (a *ConceptExplainer) Process(ctx context.Context, task *AgentTask) (*AgentResult, error) {
	if task == nil || task.Input == nil {
		return NewFailure("", "concept explainer: task missing or input unset"), nil
	}

	content := task.StringInput(KeyTextContent)
	if content == "" {
		return NewFailure(task.TaskID, "concept explainer: no content available"), nil
	}

	user := "Explain the key concepts of this paper for a non-specialist reader."
	if summary := task.StringInput(KeySummary); summary != "" {
		user += "\n\nSummary for context:\n" + truncate(summary, 4_000)
	}
	user += "\n\nPaper text:\n" + truncate(content, maxPromptContent)

	out, err := a.gw.Invoke(ctx, gateway.Prompt{System: a.system, User: user})
	if err != nil {
		return nil, err
	}

	return NewSuccess(task.TaskID, map[string]any{"concepts": out}), nil
}
