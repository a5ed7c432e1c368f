package agent

import (
	"context"
	"time"

	"github.com/scholarly-group/paper-pipeline/internal/gateway"
)

// PerplexityResearcher verifies the paper's central claims against
// current literature via a web-grounded model.
type PerplexityResearcher struct {
	base
}

func NewPerplexityResearcher(gw gateway.Gateway, system string) *PerplexityResearcher {
	return &PerplexityResearcher{base: newBase(TypePerplexityResearch, gw, system)}
}

func (a *PerplexityResearcher) EstimateProcessingTime(task *AgentTask) time.Duration {
	return estimate(task, 20*time.Second, 10*time.Second, 2*time.Minute)
}

func (a *PerplexityResearcher) Process(ctx context.Context, task *AgentTask) (*AgentResult, error) {
	if task == nil || task.Input == nil {
		return NewFailure("", "perplexity research: task missing or input unset"), nil
	}

	content := task.StringInput(KeyTextContent)
	if content == "" {
		return NewFailure(task.TaskID, "perplexity research: no content available"), nil
	}

	user := "Verify the central claims of this paper against current literature and report supporting or contradicting findings."
	if title := task.StringInput(KeyTitle); title != "" {
		user += " The paper is titled " + title + "."
	}
	user += "\n\n" + truncate(content, maxPromptContent)

	out, err := a.gw.Invoke(ctx, gateway.Prompt{System: a.system, User: user})
	if err != nil {
		return nil, err
	}

	return NewSuccess(task.TaskID, map[string]any{"researchFindings": out}), nil
}
