package agent

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Default system prompts per stage. Operators can override any of them via a
// YAML file (pipeline.prompt_override_file).
var defaultSystemPrompts = map[AgentType]string{
	TypePaperProcessor:        "You are a scientific document processor. Extract and restructure the paper's full text into clean sections. Return only the structured text.",
	TypeMetadataEnhancer:      "You are a bibliographic metadata specialist. Given a paper's text, produce enriched metadata: title, authors, venue, keywords, and research field.",
	TypeContentSummarizer:     "You are a research summarizer. Produce a faithful, self-contained summary of the paper covering motivation, method, and findings.",
	TypeConceptExplainer:      "You are a science communicator. Identify the key technical concepts in the paper and explain each one for a graduate student audience.",
	TypeQualityChecker:        "You are a peer-review assistant. Assess the paper's methodological soundness, clarity, and completeness, and list concrete issues.",
	TypeCitationFormatter:     "You are a citation specialist. Extract every reference from the paper and format each in APA style, one per line.",
	TypePerplexityResearch:    "You verify scientific claims against current literature and report supporting or contradicting evidence with sources.",
	TypeRelatedPaperDiscovery: "", // discovery queries a paper corpus, no system prompt
}

// PromptOverrides maps stage types to replacement system prompts.
type PromptOverrides struct {
	Prompts map[string]string `yaml:"prompts"`
}

// LoadPromptOverrides reads a YAML override file and returns the effective
// per-stage system prompts. A missing path returns the defaults.
func LoadPromptOverrides(path string) (map[AgentType]string, error) {
	prompts := make(map[AgentType]string, len(defaultSystemPrompts))
	for k, v := range defaultSystemPrompts {
		prompts[k] = v
	}
	if path == "" {
		return prompts, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "agent: read prompt overrides %s", path)
	}

	var overrides PromptOverrides
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, eris.Wrap(err, "agent: parse prompt overrides")
	}

	for stage, prompt := range overrides.Prompts {
		if _, known := prompts[AgentType(stage)]; !known {
			return nil, eris.Errorf("agent: prompt override for unknown stage %q", stage)
		}
		prompts[AgentType(stage)] = prompt
	}
	return prompts, nil
}

// SystemPrompt returns the effective system prompt for a stage, falling back
// to the default when the provided set has no entry.
func SystemPrompt(prompts map[AgentType]string, t AgentType) string {
	if prompts != nil {
		if p, ok := prompts[t]; ok {
			return p
		}
	}
	return defaultSystemPrompts[t]
}
