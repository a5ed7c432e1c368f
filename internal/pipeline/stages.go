package pipeline

import (
	"github.com/scholarly-group/paper-pipeline/internal/agent"
)

// stageSpec is one row of the fixed execution plan.
type stageSpec struct {
	typ       agent.AgentType
	resultKey string

	// requiredUpstream must exist and have succeeded before the stage runs.
	// optionalUpstream enriches the task input when available.
	requiredUpstream []string
	optionalUpstream []string

	// optional stages record failures without aborting the run.
	optional bool

	// percent reported once the stage completes.
	percent int
}

// stagePlan is the fixed dependency order. Extraction feeds everything;
// research and discovery depend only on extraction and never block the run.
var stagePlan = []stageSpec{
	{
		typ:       agent.TypePaperProcessor,
		resultKey: KeyPaperProcessorResult,
		percent:   15,
	},
	{
		typ:              agent.TypeMetadataEnhancer,
		resultKey:        KeyMetadataEnhancerResult,
		requiredUpstream: []string{KeyPaperProcessorResult},
		percent:          30,
	},
	{
		typ:              agent.TypeContentSummarizer,
		resultKey:        KeyContentSummarizerResult,
		requiredUpstream: []string{KeyPaperProcessorResult},
		percent:          45,
	},
	{
		typ:              agent.TypeConceptExplainer,
		resultKey:        KeyConceptExplainerResult,
		requiredUpstream: []string{KeyPaperProcessorResult},
		optionalUpstream: []string{KeyContentSummarizerResult},
		percent:          60,
	},
	{
		typ:              agent.TypeQualityChecker,
		resultKey:        KeyQualityCheckerResult,
		requiredUpstream: []string{KeyPaperProcessorResult},
		optionalUpstream: []string{KeyContentSummarizerResult},
		percent:          70,
	},
	{
		typ:              agent.TypeCitationFormatter,
		resultKey:        KeyCitationFormatterResult,
		requiredUpstream: []string{KeyPaperProcessorResult},
		percent:          80,
	},
	{
		typ:              agent.TypePerplexityResearch,
		resultKey:        KeyPerplexityResearchResult,
		requiredUpstream: []string{KeyPaperProcessorResult},
		optional:         true,
		percent:          90,
	},
	{
		typ:              agent.TypeRelatedPaperDiscovery,
		resultKey:        KeyRelatedPaperDiscoveryResult,
		requiredUpstream: []string{KeyPaperProcessorResult},
		optionalUpstream: []string{KeyContentSummarizerResult},
		optional:         true,
		percent:          100,
	},
}

// StageResultKey maps a stage type to its execution context key.
func StageResultKey(t agent.AgentType) string {
	for _, s := range stagePlan {
		if s.typ == t {
			return s.resultKey
		}
	}
	return ""
}
