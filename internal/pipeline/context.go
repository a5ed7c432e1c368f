// Package pipeline sequences the analysis stages, carries their results
// through a per-run execution context, and protects every provider call
// behind the resilience layer.
package pipeline

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/scholarly-group/paper-pipeline/internal/agent"
)

// Stable result keys consumed by downstream UI and diagnostics.
const (
	KeyPaperProcessorResult        = "paperProcessorResult"
	KeyMetadataEnhancerResult      = "metadataEnhancerResult"
	KeyContentSummarizerResult     = "contentSummarizerResult"
	KeyConceptExplainerResult      = "conceptExplainerResult"
	KeyQualityCheckerResult        = "qualityCheckerResult"
	KeyCitationFormatterResult     = "citationFormatterResult"
	KeyPerplexityResearchResult    = "perplexityResearchResult"
	KeyRelatedPaperDiscoveryResult = "relatedPaperDiscoveryResult"
)

// contentFieldCandidates is the ordered list of field names a stage result
// may carry its text under. Legacy producers used different spellings.
var contentFieldCandidates = []string{"textContent", "extractedText", "content", "text"}

// ExecutionContext is the per-run key-value store carrying stage results
// forward. Insertion order is preserved for diagnostics. Lifetime is one
// run; it is never shared across runs, so it needs no locking.
type ExecutionContext struct {
	order  []string
	values map[string]any
}

// NewExecutionContext creates an empty context for one run.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{values: make(map[string]any)}
}

// Set stores a raw value. Re-setting a key keeps its original position and
// takes the last-written value.
func (ec *ExecutionContext) Set(key string, value any) {
	if _, exists := ec.values[key]; !exists {
		ec.order = append(ec.order, key)
	}
	ec.values[key] = value
}

// Get returns the raw value under key.
func (ec *ExecutionContext) Get(key string) (any, bool) {
	v, ok := ec.values[key]
	return v, ok
}

// Keys returns the stored keys in insertion order.
func (ec *ExecutionContext) Keys() []string {
	out := make([]string, len(ec.order))
	copy(out, ec.order)
	return out
}

// SetResult stores a stage result under its stable key. Failures are stored
// the same as successes so diagnostics always see an outcome.
func (ec *ExecutionContext) SetResult(key string, res *agent.AgentResult) {
	ec.Set(key, res)
}

// Result returns the stage result stored under key, if any.
func (ec *ExecutionContext) Result(key string) (*agent.AgentResult, bool) {
	v, ok := ec.values[key]
	if !ok {
		return nil, false
	}
	res, ok := v.(*agent.AgentResult)
	return res, ok && res != nil
}

// RequireResult returns the successful upstream result under key, or an
// error naming the requesting stage. A failed upstream result wraps its
// error message.
func (ec *ExecutionContext) RequireResult(stage agent.AgentType, key string) (*agent.AgentResult, error) {
	res, ok := ec.Result(key)
	if !ok {
		return nil, eris.Errorf("pipeline: stage %s requires upstream result %s which is missing", stage, key)
	}
	if !res.Success {
		return nil, eris.Errorf("pipeline: stage %s requires upstream result %s which failed: %s", stage, key, res.ErrorMessage)
	}
	return res, nil
}

// OptionalResult returns the upstream result under key when it exists and
// succeeded with a payload; absent, failed, or empty results read as not
// available and are never an error.
func (ec *ExecutionContext) OptionalResult(key string) (*agent.AgentResult, bool) {
	res, ok := ec.Result(key)
	if !ok || !res.Success || len(res.Data) == 0 {
		return nil, false
	}
	return res, true
}

// ExtractContent walks the candidate content fields of a stage result and
// returns the first non-blank string.
func ExtractContent(stage agent.AgentType, res *agent.AgentResult) (string, error) {
	if res != nil {
		for _, field := range contentFieldCandidates {
			if v := strings.TrimSpace(res.DataString(field)); v != "" {
				return v, nil
			}
		}
	}
	return "", eris.Errorf("pipeline: stage %s: no content available in upstream result", stage)
}
