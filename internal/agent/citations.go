package agent

import (
	"context"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/scholarly-group/paper-pipeline/internal/gateway"
)

// CitationFormatter extracts the paper's references and renders them in
// standard citation styles.
type CitationFormatter struct {
	base
	titleCaser cases.Caser
}

func NewCitationFormatter(gw gateway.Gateway, system string) *CitationFormatter {
	return &CitationFormatter{
		base:       newBase(TypeCitationFormatter, gw, system),
		titleCaser: cases.Title(language.English),
	}
}

func (a *CitationFormatter) EstimateProcessingTime(task *AgentTask) time.Duration {
	return estimate(task, 10*time.Second, 5*time.Second, time.Minute)
}

func (a *CitationFormatter) Process(ctx context.Context, task *AgentTask) (*AgentResult, error) {
	if task == nil || task.Input == nil {
		return NewFailure("", "citation formatter: task missing or input unset"), nil
	}

	content := task.StringInput(KeyTextContent)
	if content == "" {
		return NewFailure(task.TaskID, "citation formatter: no content available"), nil
	}

	user := "Extract the references from this paper and format them in APA and BibTeX."
	if title := task.StringInput(KeyTitle); title != "" {
		// Uploaded titles arrive in whatever casing the user typed.
		user += " The citing paper is " + a.titleCaser.String(title) + "."
	}
	user += "\n\n" + truncate(content, maxPromptContent)

	out, err := a.gw.Invoke(ctx, gateway.Prompt{System: a.system, User: user})
	if err != nil {
		return nil, err
	}

	return NewSuccess(task.TaskID, map[string]any{"formattedCitations": out}), nil
}
