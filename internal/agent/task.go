// Package agent defines the per-stage task abstraction and the eight
// analysis agents that execute against external AI providers.
package agent

import (
	"strings"

	"github.com/google/uuid"
)

// AgentType identifies one analysis stage.
type AgentType string

const (
	TypePaperProcessor        AgentType = "paper_processor"
	TypeMetadataEnhancer      AgentType = "metadata_enhancer"
	TypeContentSummarizer     AgentType = "content_summarizer"
	TypeConceptExplainer      AgentType = "concept_explainer"
	TypeQualityChecker        AgentType = "quality_checker"
	TypeCitationFormatter     AgentType = "citation_formatter"
	TypePerplexityResearch    AgentType = "perplexity_research"
	TypeRelatedPaperDiscovery AgentType = "related_paper_discovery"
)

// Well-known task input and result data keys.
const (
	KeyPaperID     = "paperId"
	KeyUserID      = "userId"
	KeyTitle       = "title"
	KeyTextContent = "textContent"
	KeySummary     = "summary"
)

// AgentTask is one stage invocation's immutable input envelope.
type AgentTask struct {
	TaskID string
	Type   AgentType
	Input  map[string]any
}

// NewTask builds a task with a fresh id. The input map must not be mutated
// after construction.
func NewTask(t AgentType, input map[string]any) *AgentTask {
	return &AgentTask{
		TaskID: uuid.NewString(),
		Type:   t,
		Input:  input,
	}
}

// StringInput returns the trimmed string value under key, or "" when the key
// is absent or not a string.
func (t *AgentTask) StringInput(key string) string {
	if t == nil || t.Input == nil {
		return ""
	}
	if s, ok := t.Input[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// AgentResult is the uniform success/failure envelope every stage produces.
// Exactly one of Data and ErrorMessage is meaningful depending on Success.
type AgentResult struct {
	TaskID       string
	Success      bool
	Data         map[string]any
	ErrorMessage string
}

// NewSuccess builds a successful result.
func NewSuccess(taskID string, data map[string]any) *AgentResult {
	return &AgentResult{TaskID: taskID, Success: true, Data: data}
}

// NewFailure builds a failed result with a descriptive message.
func NewFailure(taskID, message string) *AgentResult {
	return &AgentResult{TaskID: taskID, Success: false, ErrorMessage: message}
}

// DataString returns the trimmed string under key in the result data, or ""
// when absent.
func (r *AgentResult) DataString(key string) string {
	if r == nil || r.Data == nil {
		return ""
	}
	if s, ok := r.Data[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
