package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5, cfg.Circuit.FailureThreshold)
	assert.Equal(t, 4, cfg.Pipeline.MaxConcurrentRuns)
	assert.Equal(t, 10, cfg.Credits.FullPipelineCost)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "https://api.semanticscholar.org/graph/v1", cfg.SemanticScholar.BaseURL)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `
retry:
  max_attempts: 7
  initial_backoff_ms: 100
circuit:
  failure_threshold: 2
rate_limit:
  requests_per_second: 9
  burst: 3
  providers:
    perplexity:
      requests_per_second: 1
      burst: 1
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2, cfg.Circuit.FailureThreshold)
	assert.Equal(t, 9.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1.0, cfg.RateLimit.Providers["perplexity"].RequestsPerSecond)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestRetryPolicy_Conversion(t *testing.T) {
	cfg := &Config{Retry: RetryConfig{
		MaxAttempts:      5,
		InitialBackoffMs: 250,
		MaxBackoffMs:     10000,
		Multiplier:       3,
		JitterFraction:   0,
		RateLimitWaitMs:  1500,
	}}

	rc := cfg.RetryPolicy()
	assert.Equal(t, 5, rc.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, rc.InitialBackoff)
	assert.Equal(t, 10*time.Second, rc.MaxBackoff)
	assert.Equal(t, 3.0, rc.Multiplier)
	assert.Equal(t, 1500*time.Millisecond, rc.RateLimitWait)
}

func TestBreakerPolicy_Conversion(t *testing.T) {
	cfg := &Config{Circuit: CircuitConfig{FailureThreshold: 9, ResetTimeoutSecs: 45}}
	bc := cfg.BreakerPolicy()
	assert.Equal(t, 9, bc.FailureThreshold)
	assert.Equal(t, 45*time.Second, bc.ResetTimeout)
}

func TestLimiterPolicy_Conversion(t *testing.T) {
	cfg := &Config{RateLimit: RateLimitConfig{
		RequestsPerSecond: 4,
		Burst:             2,
		Providers: map[string]ProviderRateConfig{
			"gemini": {RequestsPerSecond: 0.5, Burst: 1},
		},
	}}
	defaults, perProvider := cfg.LimiterPolicy()
	assert.Equal(t, 4.0, defaults.RequestsPerSecond)
	assert.Equal(t, 0.5, perProvider["gemini"].RequestsPerSecond)
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err)
}
