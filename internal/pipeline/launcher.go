package pipeline

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scholarly-group/paper-pipeline/internal/metrics"
	"github.com/scholarly-group/paper-pipeline/internal/paper"
)

// PipelineRunner executes one full run. Satisfied by Orchestrator; injected
// so the launcher can be wired once at startup without circular references.
type PipelineRunner interface {
	Run(ctx context.Context, params RunParams) (*ExecutionContext, error)
}

// Decision is the launch verdict returned to the caller.
type Decision struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// Launcher gates run submission on credits and pool capacity.
type Launcher struct {
	runner  PipelineRunner
	credits paper.CreditService
	pool    *WorkerPool
	cost    int
	rec     *metrics.Recorder
	wg      sync.WaitGroup
}

// NewLauncher creates a launcher. cost is the credit price of one full run.
// rec may be nil.
func NewLauncher(runner PipelineRunner, credits paper.CreditService, pool *WorkerPool, cost int, rec *metrics.Recorder) *Launcher {
	return &Launcher{
		runner:  runner,
		credits: credits,
		pool:    pool,
		cost:    cost,
		rec:     rec,
	}
}

// Pool exposes the worker pool for load reporting.
func (l *Launcher) Pool() *WorkerPool { return l.pool }

// Launch validates the run parameters and either starts the run on the
// worker pool or rejects it. Identifier problems are returned as errors;
// capacity and credit shortfalls are rejections.
func (l *Launcher) Launch(ctx context.Context, params RunParams) (Decision, error) {
	_, err := ResolveDocumentID(nil, params)
	if err != nil {
		return Decision{}, err
	}
	userID, err := ResolveUserID(nil, params)
	if err != nil {
		return Decision{}, err
	}

	enough, err := l.credits.HasEnoughCredits(ctx, userID, l.cost)
	if err != nil {
		return Decision{}, eris.Wrap(err, "pipeline: credit check")
	}
	if !enough {
		return Decision{Reason: "insufficient credits for full pipeline processing"}, nil
	}

	if !l.pool.TryAcquire() {
		return Decision{Reason: "pipeline is at capacity, try again later"}, nil
	}
	l.publishLoad()

	// The run outlives the launch request.
	runCtx := context.WithoutCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			l.pool.Release()
			l.publishLoad()
		}()
		if _, err := l.runner.Run(runCtx, params); err != nil {
			zap.L().Error("pipeline: run failed", zap.Error(err))
		}
	}()

	return Decision{Accepted: true}, nil
}

// Wait blocks until all launched runs have finished. Used during shutdown.
func (l *Launcher) Wait() {
	l.wg.Wait()
}

func (l *Launcher) publishLoad() {
	if l.rec != nil {
		l.rec.SetPoolActive(l.pool.Active())
	}
}
