package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a provider's call budget is exhausted and
// the caller chose not to wait.
var ErrRateLimited = eris.New("provider rate limit exhausted")

// LimiterConfig controls a single provider's token bucket.
type LimiterConfig struct {
	// RequestsPerSecond refills the bucket. Default: 2.
	RequestsPerSecond float64
	// Burst is the bucket capacity. Default: 1.
	Burst int
}

// ProviderLimiters maintains one token bucket per external provider. It is
// shared across concurrent pipeline runs and safe for concurrent use.
type ProviderLimiters struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	defaults LimiterConfig
	perProv  map[string]LimiterConfig
}

// NewProviderLimiters creates a limiter registry. Per-provider overrides take
// precedence over the default bucket shape.
func NewProviderLimiters(defaults LimiterConfig, perProvider map[string]LimiterConfig) *ProviderLimiters {
	if defaults.RequestsPerSecond <= 0 {
		defaults.RequestsPerSecond = 2
	}
	if defaults.Burst <= 0 {
		defaults.Burst = 1
	}
	return &ProviderLimiters{
		limiters: make(map[string]*rate.Limiter),
		defaults: defaults,
		perProv:  perProvider,
	}
}

func (pl *ProviderLimiters) get(providerID string) *rate.Limiter {
	pl.mu.RLock()
	lim, ok := pl.limiters[providerID]
	pl.mu.RUnlock()
	if ok {
		return lim
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()
	if lim, ok = pl.limiters[providerID]; ok {
		return lim
	}
	cfg := pl.defaults
	if override, ok := pl.perProv[providerID]; ok {
		if override.RequestsPerSecond > 0 {
			cfg.RequestsPerSecond = override.RequestsPerSecond
		}
		if override.Burst > 0 {
			cfg.Burst = override.Burst
		}
	}
	lim = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	pl.limiters[providerID] = lim
	return lim
}

// TryAcquire consumes one token for the provider without blocking.
func (pl *ProviderLimiters) TryAcquire(providerID string) bool {
	return pl.get(providerID).Allow()
}

// Wait blocks until a token is available, the bounded wait elapses, or ctx is
// cancelled. A zero maxWait falls back to TryAcquire semantics.
func (pl *ProviderLimiters) Wait(ctx context.Context, providerID string, maxWait time.Duration) error {
	lim := pl.get(providerID)
	if maxWait <= 0 {
		if lim.Allow() {
			return nil
		}
		return ErrRateLimited
	}

	waitCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()
	if err := lim.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRateLimited
	}
	return nil
}

// Snapshot reports the configured rate and current token count per provider.
func (pl *ProviderLimiters) Snapshot() map[string]LimiterStatus {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	out := make(map[string]LimiterStatus, len(pl.limiters))
	for id, lim := range pl.limiters {
		out[id] = LimiterStatus{
			RequestsPerSecond: float64(lim.Limit()),
			Burst:             lim.Burst(),
			TokensAvailable:   lim.Tokens(),
		}
	}
	return out
}

// LimiterStatus is a point-in-time view of one provider's bucket.
type LimiterStatus struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
	TokensAvailable   float64 `json:"tokens_available"`
}
