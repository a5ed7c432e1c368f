package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// InitialBackoff is the base delay before the first retry. Default: 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Default: 30s.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each attempt. Default: 2.0.
	Multiplier float64

	// JitterFraction adds random jitter as a fraction of the computed delay
	// (0.0 = no jitter, 0.5 = ±50%). Default: 0.25.
	JitterFraction float64

	// RateLimitWait bounds how long an attempt may wait for a provider token.
	// Zero means fail fast when the bucket is empty.
	RateLimitWait time.Duration

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns a sensible retry configuration for provider calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
		RateLimitWait:  5 * time.Second,
	}
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}

	// Apply jitter: ±JitterFraction of delay.
	if cfg.JitterFraction > 0 {
		jitterRange := delay * cfg.JitterFraction
		jitter := (rand.Float64()*2 - 1) * jitterRange // [-jitterRange, +jitterRange]
		delay += jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Executor runs stage operations under the circuit breaker, rate limiter,
// and retry policy, and accumulates per-stage statistics. One Executor is
// shared by all concurrent pipeline runs.
type Executor struct {
	cfg      RetryConfig
	breakers *StageBreakers
	limiters *ProviderLimiters
	stats    *StatsRegistry
}

// NewExecutor wires the retry policy to its breaker and limiter registries.
func NewExecutor(cfg RetryConfig, breakers *StageBreakers, limiters *ProviderLimiters, stats *StatsRegistry) *Executor {
	return &Executor{
		cfg:      applyDefaults(cfg),
		breakers: breakers,
		limiters: limiters,
		stats:    stats,
	}
}

// Breakers exposes the breaker registry for observability endpoints.
func (e *Executor) Breakers() *StageBreakers { return e.breakers }

// Limiters exposes the limiter registry for observability endpoints.
func (e *Executor) Limiters() *ProviderLimiters { return e.limiters }

// Stats exposes the statistics registry.
func (e *Executor) Stats() *StatsRegistry { return e.stats }

// Execute runs fn for the stage type with breaker, limiter, and retry
// protection. shouldRetry classifies errors; nil falls back to IsTransient.
// Backoff sleeps select on ctx so cancellation isn't delayed.
func Execute[T any](ctx context.Context, e *Executor, stageType, providerID string, shouldRetry func(error) bool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	cb := e.breakers.Get(stageType)

	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		// Fail fast while the breaker is open; do not count rejected calls
		// as attempts against the provider.
		if err := cb.allowRequest(); err != nil {
			e.stats.RecordOutcome(stageType, false)
			return zero, eris.Wrapf(err, "resilience: %s", stageType)
		}

		if err := e.limiters.Wait(ctx, providerID, e.cfg.RateLimitWait); err != nil {
			e.stats.RecordOutcome(stageType, false)
			return zero, eris.Wrapf(err, "resilience: %s provider %s", stageType, providerID)
		}

		e.stats.RecordAttempt(stageType, attempt > 0)
		val, err := fn(ctx)
		if err == nil {
			cb.recordResult(false)
			e.stats.RecordOutcome(stageType, true)
			return val, nil
		}
		lastErr = err

		// Stop immediately on cancellation or a non-retryable failure.
		if ctx.Err() != nil || !shouldRetry(err) {
			break
		}
		if attempt >= e.cfg.MaxAttempts-1 {
			break
		}

		if e.cfg.OnRetry != nil {
			e.cfg.OnRetry(attempt+1, err)
		}

		delay := computeBackoff(attempt, e.cfg)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			cb.recordResult(true)
			e.stats.RecordOutcome(stageType, false)
			return zero, lastErr
		case <-timer.C:
		}
	}

	cb.recordResult(true)
	e.stats.RecordOutcome(stageType, false)
	return zero, lastErr
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(stageType string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying stage operation",
			zap.String("stage", stageType),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
