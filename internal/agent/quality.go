package agent

import (
	"context"
	"time"

	"github.com/scholarly-group/paper-pipeline/internal/gateway"
)

// QualityChecker assesses methodological rigor and flags weaknesses in
// the paper's argument.
type QualityChecker struct {
	base
}

func NewQualityChecker(gw gateway.Gateway, system string) *QualityChecker {
	return &QualityChecker{base: newBase(TypeQualityChecker, gw, system)}
}

func (a *QualityChecker) EstimateProcessingTime(task *AgentTask) time.Duration {
	return estimate(task, 15*time.Second, 8*time.Second, 90*time.Second)
}

func (a *QualityChecker) Process(ctx context.Context, task *AgentTask) (*AgentResult, error) {
	if task == nil || task.Input == nil {
		return NewFailure("", "quality checker: task missing or input unset"), nil
	}

	content := task.StringInput(KeyTextContent)
	if content == "" {
		return NewFailure(task.TaskID, "quality checker: no content available"), nil
	}

	user := "Assess the methodological quality of this paper."
	if summary := task.StringInput(KeySummary); summary != "" {
		user += "\n\nSummary for context:\n" + truncate(summary, 4_000)
	}
	user += "\n\nPaper text:\n" + truncate(content, maxPromptContent)

	out, err := a.gw.Invoke(ctx, gateway.Prompt{System: a.system, User: user})
	if err != nil {
		return nil, err
	}

	return NewSuccess(task.TaskID, map[string]any{"qualityReport": out}), nil
}
