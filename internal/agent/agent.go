package agent

import (
	"context"
	"time"

	"github.com/scholarly-group/paper-pipeline/internal/gateway"
	"github.com/scholarly-group/paper-pipeline/internal/resilience"
)

// Agent is one analysis stage bound to one external provider.
type Agent interface {
	// Type identifies the stage this agent implements.
	Type() AgentType

	// ProviderID names the external provider for rate limiting.
	ProviderID() string

	// CanHandle reports whether the task is structurally processable.
	CanHandle(task *AgentTask) bool

	// EstimateProcessingTime returns a scheduling hint derived from input
	// size. Never enforced as a timeout.
	EstimateProcessingTime(task *AgentTask) time.Duration

	// Process executes the stage. Precondition violations produce a failed
	// AgentResult with a nil error; provider failures return a non-nil
	// error for the retry layer to classify.
	Process(ctx context.Context, task *AgentTask) (*AgentResult, error)

	// IsRetryable classifies a Process error as transient or fatal.
	IsRetryable(err error) bool
}

// base carries the pieces every provider-backed agent shares.
type base struct {
	typ    AgentType
	gw     gateway.Gateway
	system string
}

func newBase(typ AgentType, gw gateway.Gateway, system string) base {
	return base{typ: typ, gw: gw, system: system}
}

func (b base) Type() AgentType { return b.typ }

func (b base) ProviderID() string { return b.gw.ProviderID() }

// CanHandle rejects absent tasks, tasks with unset input, and tasks built
// for a different stage.
func (b base) CanHandle(task *AgentTask) bool {
	return task != nil && task.Input != nil && task.Type == b.typ
}

func (b base) IsRetryable(err error) bool {
	if resilience.IsFatal(err) {
		return false
	}
	return resilience.IsTransient(err)
}

// estimate derives a duration hint from content length: base time plus one
// increment per 10KB, capped per stage.
func estimate(task *AgentTask, baseTime, perTenKB, ceiling time.Duration) time.Duration {
	content := task.StringInput(KeyTextContent)
	d := baseTime + time.Duration(len(content)/10_000)*perTenKB
	if d > ceiling {
		return ceiling
	}
	return d
}

// truncate bounds prompt content so oversized documents don't blow provider
// context windows.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

const maxPromptContent = 60_000
