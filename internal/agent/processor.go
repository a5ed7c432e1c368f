package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scholarly-group/paper-pipeline/internal/gateway"
	"github.com/scholarly-group/paper-pipeline/internal/paper"
)

// PaperProcessor extracts and restructures the uploaded document's text.
// It is the only stage every other stage depends on.
type PaperProcessor struct {
	base
	papers paper.Store
}

// NewPaperProcessor creates the extraction agent.
func NewPaperProcessor(gw gateway.Gateway, papers paper.Store, system string) *PaperProcessor {
	return &PaperProcessor{
		base:   newBase(TypePaperProcessor, gw, system),
		papers: papers,
	}
}

// CanHandle additionally requires a resolvable paper reference.
func (a *PaperProcessor) CanHandle(task *AgentTask) bool {
	if !a.base.CanHandle(task) {
		return false
	}
	_, err := uuid.Parse(task.StringInput(KeyPaperID))
	return err == nil
}

func (a *PaperProcessor) EstimateProcessingTime(task *AgentTask) time.Duration {
	return estimate(task, 20*time.Second, 10*time.Second, 2*time.Minute)
}

func (a *PaperProcessor) Process(ctx context.Context, task *AgentTask) (*AgentResult, error) {
	if task == nil || task.Input == nil {
		return NewFailure("", "paper processor: task missing or input unset"), nil
	}

	paperID, err := uuid.Parse(task.StringInput(KeyPaperID))
	if err != nil {
		return NewFailure(task.TaskID, fmt.Sprintf("paper processor: invalid paper id %q", task.StringInput(KeyPaperID))), nil
	}

	doc, err := a.papers.GetByID(ctx, paperID)
	if err != nil {
		return NewFailure(task.TaskID, fmt.Sprintf("paper processor: paper %s not found: %v", paperID, err)), nil
	}
	if doc.TextContent == "" {
		return NewFailure(task.TaskID, fmt.Sprintf("paper processor: no content available for paper %s", paperID)), nil
	}

	out, err := a.gw.Invoke(ctx, gateway.Prompt{
		System: a.system,
		User:   "Extract and structure the full text of this paper:\n\n" + truncate(doc.TextContent, maxPromptContent),
	})
	if err != nil {
		return nil, err
	}

	// Write-back is idempotent and happens only after a successful result.
	if err := a.papers.UpdateTextContent(ctx, paperID, out); err != nil {
		zap.L().Warn("paper processor: failed to persist extracted text",
			zap.String("paper_id", paperID.String()),
			zap.Error(err),
		)
	}

	return NewSuccess(task.TaskID, map[string]any{
		KeyPaperID:     paperID.String(),
		KeyTitle:       doc.Title,
		KeyTextContent: out,
	}), nil
}
