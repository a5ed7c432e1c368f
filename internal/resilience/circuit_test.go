package resilience

import (
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := newCircuitBreaker("content_summarizer", CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Minute,
	})

	for i := 0; i < 2; i++ {
		cb.recordResult(true)
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed below threshold, got %s", cb.State())
	}

	cb.recordResult(true)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open after threshold, got %s", cb.State())
	}

	if err := cb.allowRequest(); err == nil {
		t.Fatal("expected open circuit to reject requests")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := newCircuitBreaker("quality_checker", CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Minute,
	})

	cb.recordResult(true)
	cb.recordResult(true)
	cb.recordResult(false)

	failures, state := cb.Counters()
	if failures != 0 {
		t.Errorf("expected failure count reset, got %d", failures)
	}
	if state != CircuitClosed {
		t.Errorf("expected closed, got %s", state)
	}
}

func TestCircuitBreaker_CooldownTransitionsToHalfOpen(t *testing.T) {
	now := time.Now()
	cb := newCircuitBreaker("paper_processor", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     30 * time.Second,
	})
	cb.nowFunc = func() time.Time { return now }

	cb.recordResult(true)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	// Advance past the cooldown.
	now = now.Add(31 * time.Second)
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open after cooldown, got %s", cb.State())
	}
	if err := cb.allowRequest(); err != nil {
		t.Fatalf("expected probe to be allowed, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpenSuccessCloses(t *testing.T) {
	now := time.Now()
	cb := newCircuitBreaker("paper_processor", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
	})
	cb.nowFunc = func() time.Time { return now }

	cb.recordResult(true)
	now = now.Add(2 * time.Second)
	_ = cb.allowRequest() // transitions to half-open

	cb.recordResult(false)
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed after probe success, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := newCircuitBreaker("paper_processor", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
	})
	cb.nowFunc = func() time.Time { return now }

	cb.recordResult(true)
	now = now.Add(2 * time.Second)
	_ = cb.allowRequest()

	cb.recordResult(true)
	_, state := cb.Counters()
	if state != CircuitOpen {
		t.Fatalf("expected reopened circuit, got %s", state)
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cb := newCircuitBreaker("citation_formatter", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(stageType string, from, to CircuitState) {
			transitions = append(transitions, stageType+":"+from.String()+"->"+to.String())
		},
	})

	cb.recordResult(true)
	if len(transitions) != 1 || transitions[0] != "citation_formatter:closed->open" {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
}

func TestStageBreakers_PerStageIsolation(t *testing.T) {
	sb := NewStageBreakers(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})

	sb.Get("content_summarizer").recordResult(true)

	if sb.Status("content_summarizer") != CircuitOpen {
		t.Error("expected summarizer breaker open")
	}
	if sb.Status("concept_explainer") != CircuitClosed {
		t.Error("expected untouched stage to read closed")
	}

	states := sb.States()
	if len(states) != 1 {
		t.Errorf("expected exactly one created breaker, got %d", len(states))
	}
}

func TestStageBreakers_GetReturnsSameInstance(t *testing.T) {
	sb := NewStageBreakers(DefaultCircuitBreakerConfig())
	if sb.Get("x") != sb.Get("x") {
		t.Error("expected stable breaker instance per stage type")
	}
}
