package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scholarly-group/paper-pipeline/internal/agent"
	"github.com/scholarly-group/paper-pipeline/internal/gateway"
	"github.com/scholarly-group/paper-pipeline/internal/metrics"
	"github.com/scholarly-group/paper-pipeline/internal/paper"
	"github.com/scholarly-group/paper-pipeline/internal/pipeline"
	"github.com/scholarly-group/paper-pipeline/internal/progress"
	"github.com/scholarly-group/paper-pipeline/internal/resilience"
	"github.com/scholarly-group/paper-pipeline/internal/runstore"
	"github.com/scholarly-group/paper-pipeline/pkg/anthropic"
	"github.com/scholarly-group/paper-pipeline/pkg/gemini"
	"github.com/scholarly-group/paper-pipeline/pkg/openai"
	"github.com/scholarly-group/paper-pipeline/pkg/perplexity"
	"github.com/scholarly-group/paper-pipeline/pkg/semanticscholar"
)

// pipelineEnv holds the initialized clients, orchestrator, and launcher
// shared by the run and serve commands.
type pipelineEnv struct {
	Papers       *paper.MemoryStore
	Runs         runstore.Store
	Orchestrator *pipeline.Orchestrator
	Launcher     *pipeline.Launcher
	Broadcaster  *progress.Broadcaster
	Metrics      *metrics.Recorder
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Runs != nil {
		_ = pe.Runs.Close()
	}
}

// initRunStore selects the run-log backend from config.
func initRunStore(ctx context.Context) (runstore.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		st, err := runstore.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate run store")
		}
		return st, nil
	case "sqlite":
		st, err := runstore.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate run store")
		}
		return st, nil
	default:
		zap.L().Debug("no run store configured, outcomes will not be logged")
		return runstore.Noop{}, nil
	}
}

// initPipeline sets up provider clients, agents, resilience, and the
// launcher. Callers should defer env.Close().
func initPipeline(ctx context.Context, papers *paper.MemoryStore, credits paper.CreditService, withMetrics bool) (*pipelineEnv, error) {
	runs, err := initRunStore(ctx)
	if err != nil {
		return nil, err
	}

	prompts, err := agent.LoadPromptOverrides(cfg.Pipeline.PromptOverrideFile)
	if err != nil {
		_ = runs.Close()
		return nil, err
	}

	anthropicClient := anthropic.NewClient(cfg.Anthropic.Key)
	openaiClient := openai.NewClient(cfg.OpenAI.Key)
	geminiClient := gemini.NewClient(cfg.Gemini.Key)
	perplexityClient := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
	)
	scholarOpts := []semanticscholar.Option{}
	if cfg.SemanticScholar.BaseURL != "" {
		scholarOpts = append(scholarOpts, semanticscholar.WithBaseURL(cfg.SemanticScholar.BaseURL))
	}
	scholarClient := semanticscholar.NewClient(cfg.SemanticScholar.Key, scholarOpts...)

	processorGW := gateway.NewAnthropicGateway(anthropicClient, cfg.Anthropic.ProcessorModel, int64(cfg.Anthropic.MaxTokens))
	summaryGW := gateway.NewAnthropicGateway(anthropicClient, cfg.Anthropic.SummaryModel, int64(cfg.Anthropic.MaxTokens))
	openaiGW := gateway.NewOpenAIGateway(openaiClient, cfg.OpenAI.Model, int64(cfg.OpenAI.MaxTokens))
	geminiGW := gateway.NewGeminiGateway(geminiClient, cfg.Gemini.Model, int32(cfg.Gemini.MaxTokens))
	perplexityGW := gateway.NewPerplexityGateway(perplexityClient, cfg.Perplexity.Model)
	scholarGW := gateway.NewSemanticScholarGateway(scholarClient, cfg.SemanticScholar.Limit)

	agents := []agent.Agent{
		agent.NewPaperProcessor(processorGW, papers, agent.SystemPrompt(prompts, agent.TypePaperProcessor)),
		agent.NewMetadataEnhancer(openaiGW, agent.SystemPrompt(prompts, agent.TypeMetadataEnhancer)),
		agent.NewContentSummarizer(summaryGW, agent.SystemPrompt(prompts, agent.TypeContentSummarizer)),
		agent.NewConceptExplainer(openaiGW, agent.SystemPrompt(prompts, agent.TypeConceptExplainer)),
		agent.NewQualityChecker(geminiGW, agent.SystemPrompt(prompts, agent.TypeQualityChecker)),
		agent.NewCitationFormatter(geminiGW, agent.SystemPrompt(prompts, agent.TypeCitationFormatter)),
		agent.NewPerplexityResearcher(perplexityGW, agent.SystemPrompt(prompts, agent.TypePerplexityResearch)),
		agent.NewRelatedPaperDiscoverer(scholarGW),
	}

	defaults, perProvider := cfg.LimiterPolicy()
	executor := resilience.NewExecutor(
		cfg.RetryPolicy(),
		resilience.NewStageBreakers(cfg.BreakerPolicy()),
		resilience.NewProviderLimiters(defaults, perProvider),
		resilience.NewStatsRegistry(),
	)

	var rec *metrics.Recorder
	if withMetrics {
		rec = metrics.NewRecorder()
	}

	broadcaster := progress.NewBroadcaster()
	orchestrator := pipeline.NewOrchestrator(agents, executor, broadcaster, papers, runs, rec)
	pool := pipeline.NewWorkerPool(cfg.Pipeline.MaxConcurrentRuns)
	launcher := pipeline.NewLauncher(orchestrator, credits, pool, cfg.Credits.FullPipelineCost, rec)

	return &pipelineEnv{
		Papers:       papers,
		Runs:         runs,
		Orchestrator: orchestrator,
		Launcher:     launcher,
		Broadcaster:  broadcaster,
		Metrics:      rec,
	}, nil
}
