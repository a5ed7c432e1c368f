package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scholarly-group/paper-pipeline/internal/agent"
	"github.com/scholarly-group/paper-pipeline/internal/metrics"
	"github.com/scholarly-group/paper-pipeline/internal/paper"
	"github.com/scholarly-group/paper-pipeline/internal/progress"
	"github.com/scholarly-group/paper-pipeline/internal/resilience"
	"github.com/scholarly-group/paper-pipeline/internal/runstore"
)

// Orchestrator sequences the analysis stages for one run at a time. One
// Orchestrator serves all concurrent runs; per-run state lives in the
// ExecutionContext.
type Orchestrator struct {
	agents      map[agent.AgentType]agent.Agent
	executor    *resilience.Executor
	broadcaster *progress.Broadcaster
	papers      paper.Store
	runs        runstore.Store
	rec         *metrics.Recorder
}

// NewOrchestrator wires the orchestrator to its agents and collaborators.
// runs and rec may be nil when no run log or metrics are configured.
func NewOrchestrator(
	agents []agent.Agent,
	executor *resilience.Executor,
	broadcaster *progress.Broadcaster,
	papers paper.Store,
	runs runstore.Store,
	rec *metrics.Recorder,
) *Orchestrator {
	byType := make(map[agent.AgentType]agent.Agent, len(agents))
	for _, a := range agents {
		byType[a.Type()] = a
	}
	if runs == nil {
		runs = runstore.Noop{}
	}
	return &Orchestrator{
		agents:      byType,
		executor:    executor,
		broadcaster: broadcaster,
		papers:      papers,
		runs:        runs,
		rec:         rec,
	}
}

// Executor exposes the resilience layer for observability endpoints.
func (o *Orchestrator) Executor() *resilience.Executor { return o.executor }

// Run executes the full stage plan for one document. Every stage outcome,
// success or failure, is stored in the returned ExecutionContext before any
// error propagates.
func (o *Orchestrator) Run(ctx context.Context, params RunParams) (*ExecutionContext, error) {
	ec := NewExecutionContext()

	docID, err := ResolveDocumentID(ec, params)
	if err != nil {
		return ec, err
	}
	userID, err := ResolveUserID(ec, params)
	if err != nil {
		return ec, err
	}
	ec.Set(ctxKeyPaperID, docID)
	ec.Set(ctxKeyUserID, userID)

	log := zap.L().With(zap.String("paper_id", docID.String()), zap.String("user_id", userID.String()))
	log.Info("pipeline: starting run")

	runID, err := o.runs.CreateRun(ctx, docID, userID)
	if err != nil {
		return ec, eris.Wrap(err, "pipeline: create run record")
	}

	if err := o.papers.UpdateStatus(ctx, docID, paper.StatusUploaded, paper.StatusProcessing); err != nil {
		log.Warn("pipeline: paper status transition failed", zap.Error(err))
	}

	for _, spec := range stagePlan {
		if err := o.runStage(ctx, ec, spec, runID, docID, userID, log); err != nil {
			o.finish(ctx, runID, docID, false, err.Error(), log)
			return ec, err
		}
	}

	o.finish(ctx, runID, docID, true, "", log)
	log.Info("pipeline: run complete")
	return ec, nil
}

// runStage executes one stage and stores its outcome. A returned error
// aborts the run; optional-stage failures return nil.
func (o *Orchestrator) runStage(
	ctx context.Context,
	ec *ExecutionContext,
	spec stageSpec,
	runID, docID, userID uuid.UUID,
	log *zap.Logger,
) error {
	a, ok := o.agents[spec.typ]
	if !ok {
		return eris.Errorf("pipeline: no agent registered for stage %s", spec.typ)
	}

	input, err := o.buildInput(ec, spec, docID, userID)
	if err != nil {
		// Precondition failures are recorded before they propagate.
		failure := agent.NewFailure("", err.Error())
		ec.SetResult(spec.resultKey, failure)
		o.record(ctx, runID, spec, failure, 0)
		o.broadcastStage(docID, spec, failure)
		return err
	}

	task := agent.NewTask(spec.typ, input)
	stage := string(spec.typ)

	if !a.CanHandle(task) {
		handleErr := eris.Errorf("pipeline: agent %s cannot handle task", stage)
		failure := agent.NewFailure(task.TaskID, handleErr.Error())
		ec.SetResult(spec.resultKey, failure)
		o.record(ctx, runID, spec, failure, 0)
		o.broadcastStage(docID, spec, failure)
		if spec.optional {
			return nil
		}
		return handleErr
	}

	log.Info("pipeline: stage start",
		zap.String("stage", stage),
		zap.Duration("estimate", a.EstimateProcessingTime(task)),
	)

	retriesBefore := o.executor.Stats().Get(stage).TotalRetries
	start := time.Now()
	result, execErr := resilience.Execute(ctx, o.executor, stage, a.ProviderID(), a.IsRetryable,
		func(ctx context.Context) (*agent.AgentResult, error) {
			return a.Process(ctx, task)
		})
	elapsed := time.Since(start)

	if execErr != nil || result == nil {
		msg := "pipeline: stage produced no result"
		if execErr != nil {
			msg = execErr.Error()
		}
		result = agent.NewFailure(task.TaskID, msg)
	}

	// Store unconditionally so diagnostics always see an outcome.
	ec.SetResult(spec.resultKey, result)
	o.record(ctx, runID, spec, result, elapsed)
	o.observe(spec, a.ProviderID(), result, elapsed, retriesBefore)
	o.broadcastStage(docID, spec, result)

	if result.Success {
		log.Info("pipeline: stage complete",
			zap.String("stage", stage),
			zap.Duration("duration", elapsed),
		)
		return nil
	}

	log.Warn("pipeline: stage failed",
		zap.String("stage", stage),
		zap.Bool("optional", spec.optional),
		zap.String("error", result.ErrorMessage),
	)
	if spec.optional {
		return nil
	}
	return eris.Errorf("pipeline: stage %s failed: %s", stage, result.ErrorMessage)
}

// buildInput assembles a stage's task input from the run identifiers and
// its upstream results.
func (o *Orchestrator) buildInput(ec *ExecutionContext, spec stageSpec, docID, userID uuid.UUID) (map[string]any, error) {
	input := map[string]any{
		agent.KeyPaperID: docID.String(),
		agent.KeyUserID:  userID.String(),
	}

	for _, key := range spec.requiredUpstream {
		upstream, err := ec.RequireResult(spec.typ, key)
		if err != nil {
			return nil, err
		}
		if key == KeyPaperProcessorResult {
			content, err := ExtractContent(spec.typ, upstream)
			if err != nil {
				return nil, err
			}
			input[agent.KeyTextContent] = content
			if title := upstream.DataString(agent.KeyTitle); title != "" {
				input[agent.KeyTitle] = title
			}
		}
	}

	for _, key := range spec.optionalUpstream {
		upstream, ok := ec.OptionalResult(key)
		if !ok {
			continue
		}
		if key == KeyContentSummarizerResult {
			if summary := upstream.DataString(agent.KeySummary); summary != "" {
				input[agent.KeySummary] = summary
			}
		}
	}

	return input, nil
}

func (o *Orchestrator) record(ctx context.Context, runID uuid.UUID, spec stageSpec, res *agent.AgentResult, elapsed time.Duration) {
	err := o.runs.RecordStage(ctx, runstore.StageRecord{
		RunID:      runID,
		Stage:      string(spec.typ),
		Success:    res.Success,
		Error:      res.ErrorMessage,
		DurationMS: elapsed.Milliseconds(),
	})
	if err != nil {
		zap.L().Warn("pipeline: record stage failed",
			zap.String("stage", string(spec.typ)),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) observe(spec stageSpec, providerID string, res *agent.AgentResult, elapsed time.Duration, retriesBefore int) {
	if o.rec == nil {
		return
	}
	stage := string(spec.typ)
	o.rec.ObserveStage(stage, res.Success, elapsed)
	o.rec.ObserveProvider(providerID, res.Success)
	for n := o.executor.Stats().Get(stage).TotalRetries - retriesBefore; n > 0; n-- {
		o.rec.ObserveRetry(stage)
	}
	o.rec.SetCircuitState(stage, circuitStateValue(o.executor.Breakers().Status(stage)))
}

func circuitStateValue(s resilience.CircuitState) int {
	switch s {
	case resilience.CircuitOpen:
		return metrics.CircuitOpen
	case resilience.CircuitHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

func (o *Orchestrator) broadcastStage(docID uuid.UUID, spec stageSpec, res *agent.AgentResult) {
	update := progress.Update{
		DocumentID:      docID,
		Stage:           string(spec.typ),
		PercentComplete: spec.percent,
	}
	if !res.Success {
		update.ErrorMessage = res.ErrorMessage
	}
	o.broadcaster.Broadcast(docID, update)
}

func (o *Orchestrator) finish(ctx context.Context, runID, docID uuid.UUID, success bool, errMessage string, log *zap.Logger) {
	status := runstore.RunStatusSucceeded
	docStatus := paper.StatusAnalyzed
	if !success {
		status = runstore.RunStatusFailed
		docStatus = paper.StatusFailed
	}
	if err := o.runs.CompleteRun(ctx, runID, status, errMessage); err != nil {
		log.Warn("pipeline: complete run record failed", zap.Error(err))
	}
	if err := o.papers.UpdateStatus(ctx, docID, paper.StatusProcessing, docStatus); err != nil {
		log.Warn("pipeline: paper status transition failed", zap.Error(err))
	}
	if o.rec != nil {
		o.rec.ObserveRun(success)
	}
}
