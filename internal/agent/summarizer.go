package agent

import (
	"context"
	"time"

	"github.com/scholarly-group/paper-pipeline/internal/gateway"
)

// ContentSummarizer produces the multi-level summary the downstream
// explanation and discovery stages build on.
type ContentSummarizer struct {
	base
}

func NewContentSummarizer(gw gateway.Gateway, system string) *ContentSummarizer {
	return &ContentSummarizer{base: newBase(TypeContentSummarizer, gw, system)}
}

func (a *ContentSummarizer) EstimateProcessingTime(task *AgentTask) time.Duration {
	return estimate(task, 15*time.Second, 8*time.Second, 90*time.Second)
}

func (a *ContentSummarizer) Process(ctx context.Context, task *AgentTask) (*AgentResult, error) {
	if task == nil || task.Input == nil {
		return NewFailure("", "content summarizer: task missing or input unset"), nil
	}

	content := task.StringInput(KeyTextContent)
	if content == "" {
		return NewFailure(task.TaskID, "content summarizer: no content available"), nil
	}

	out, err := a.gw.Invoke(ctx, gateway.Prompt{
		System: a.system,
		User:   "Summarize this paper:\n\n" + truncate(content, maxPromptContent),
	})
	if err != nil {
		return nil, err
	}

	return NewSuccess(task.TaskID, map[string]any{KeySummary: out}), nil
}
