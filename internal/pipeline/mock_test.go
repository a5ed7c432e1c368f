package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scholarly-group/paper-pipeline/internal/agent"
	"github.com/scholarly-group/paper-pipeline/internal/gateway"
	"github.com/scholarly-group/paper-pipeline/internal/paper"
	"github.com/scholarly-group/paper-pipeline/internal/progress"
	"github.com/scholarly-group/paper-pipeline/internal/resilience"
	"github.com/scholarly-group/paper-pipeline/internal/runstore"
)

// fakeGateway answers invocations from a script keyed by call order. After
// the script is exhausted it keeps returning the final entry.
type fakeGateway struct {
	provider string

	mu     sync.Mutex
	script []fakeReply
	calls  int
}

type fakeReply struct {
	text string
	err  error
}

func newFakeGateway(provider, text string) *fakeGateway {
	return &fakeGateway{provider: provider, script: []fakeReply{{text: text}}}
}

func (g *fakeGateway) ProviderID() string { return g.provider }

func (g *fakeGateway) Invoke(_ context.Context, _ gateway.Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.calls
	if idx >= len(g.script) {
		idx = len(g.script) - 1
	}
	g.calls++
	r := g.script[idx]
	return r.text, r.err
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// testHarness wires a full orchestrator over fake gateways and a memory
// paper store.
type testHarness struct {
	papers       *paper.MemoryStore
	broadcaster  *progress.Broadcaster
	orchestrator *Orchestrator
	executor     *resilience.Executor
	gateways     map[agent.AgentType]*fakeGateway
	docID        uuid.UUID
	userID       uuid.UUID
}

func newTestHarness() *testHarness {
	docID, userID := uuid.New(), uuid.New()
	papers := paper.NewMemoryStore()
	papers.Put(&paper.Document{
		ID:          docID,
		OwnerID:     userID,
		Title:       "Sparse Attention at Scale",
		TextContent: "uploaded raw text",
		Status:      paper.StatusUploaded,
	})

	gws := map[agent.AgentType]*fakeGateway{
		agent.TypePaperProcessor:        newFakeGateway(gateway.ProviderAnthropic, "structured text"),
		agent.TypeMetadataEnhancer:      newFakeGateway(gateway.ProviderOpenAI, "metadata"),
		agent.TypeContentSummarizer:     newFakeGateway(gateway.ProviderAnthropic, "summary text"),
		agent.TypeConceptExplainer:      newFakeGateway(gateway.ProviderOpenAI, "concepts"),
		agent.TypeQualityChecker:        newFakeGateway(gateway.ProviderGemini, "quality report"),
		agent.TypeCitationFormatter:     newFakeGateway(gateway.ProviderGemini, "citations"),
		agent.TypePerplexityResearch:    newFakeGateway(gateway.ProviderPerplexity, "findings"),
		agent.TypeRelatedPaperDiscovery: newFakeGateway(gateway.ProviderSemanticScholar, `[{"title":"Related"}]`),
	}

	agents := []agent.Agent{
		agent.NewPaperProcessor(gws[agent.TypePaperProcessor], papers, ""),
		agent.NewMetadataEnhancer(gws[agent.TypeMetadataEnhancer], ""),
		agent.NewContentSummarizer(gws[agent.TypeContentSummarizer], ""),
		agent.NewConceptExplainer(gws[agent.TypeConceptExplainer], ""),
		agent.NewQualityChecker(gws[agent.TypeQualityChecker], ""),
		agent.NewCitationFormatter(gws[agent.TypeCitationFormatter], ""),
		agent.NewPerplexityResearcher(gws[agent.TypePerplexityResearch], ""),
		agent.NewRelatedPaperDiscoverer(gws[agent.TypeRelatedPaperDiscovery]),
	}

	executor := resilience.NewExecutor(
		resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			JitterFraction: 0,
			RateLimitWait:  time.Second,
		},
		resilience.NewStageBreakers(resilience.DefaultCircuitBreakerConfig()),
		resilience.NewProviderLimiters(resilience.LimiterConfig{RequestsPerSecond: 1000, Burst: 1000}, nil),
		resilience.NewStatsRegistry(),
	)

	broadcaster := progress.NewBroadcaster()
	orch := NewOrchestrator(agents, executor, broadcaster, papers, runstore.Noop{}, nil)

	return &testHarness{
		papers:       papers,
		broadcaster:  broadcaster,
		orchestrator: orch,
		executor:     executor,
		gateways:     gws,
		docID:        docID,
		userID:       userID,
	}
}

func (h *testHarness) params() RunParams {
	return RunParams{
		"paperId": h.docID.String(),
		"userId":  h.userID.String(),
	}
}
