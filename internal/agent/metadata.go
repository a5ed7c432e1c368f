package agent

import (
	"context"
	"time"

	"github.com/scholarly-group/paper-pipeline/internal/gateway"
)

// MetadataEnhancer derives bibliographic metadata (authors, venue, year,
// keywords) from the extracted text.
type MetadataEnhancer struct {
	base
}

func NewMetadataEnhancer(gw gateway.Gateway, system string) *MetadataEnhancer {
	return &MetadataEnhancer{base: newBase(TypeMetadataEnhancer, gw, system)}
}

func (a *MetadataEnhancer) EstimateProcessingTime(task *AgentTask) time.Duration {
	return estimate(task, 10*time.Second, 5*time.Second, time.Minute)
}

func (a *MetadataEnhancer) Process(ctx context.Context, task *AgentTask) (*AgentResult, error) {
	if task == nil || task.Input == nil {
		return NewFailure("", "metadata enhancer: task missing or input unset"), nil
	}

	content := task.StringInput(KeyTextContent)
	if content == "" {
		return NewFailure(task.TaskID, "metadata enhancer: no content available"), nil
	}

	user := "Identify the bibliographic metadata of this paper."
	if title := task.StringInput(KeyTitle); title != "" {
		user += " The uploaded title is " + title + "."
	}
	user += "\n\n" + truncate(content, maxPromptContent)

	out, err := a.gw.Invoke(ctx, gateway.Prompt{System: a.system, User: user})
	if err != nil {
		return nil, err
	}

	return NewSuccess(task.TaskID, map[string]any{"metadata": out}), nil
}
