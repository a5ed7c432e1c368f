package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scholarly-group/paper-pipeline/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store           StoreConfig           `yaml:"store" mapstructure:"store"`
	Anthropic       AnthropicConfig       `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI          OpenAIConfig          `yaml:"openai" mapstructure:"openai"`
	Gemini          GeminiConfig          `yaml:"gemini" mapstructure:"gemini"`
	Perplexity      PerplexityConfig      `yaml:"perplexity" mapstructure:"perplexity"`
	SemanticScholar SemanticScholarConfig `yaml:"semantic_scholar" mapstructure:"semantic_scholar"`
	Retry           RetryConfig           `yaml:"retry" mapstructure:"retry"`
	Circuit         CircuitConfig         `yaml:"circuit" mapstructure:"circuit"`
	RateLimit       RateLimitConfig       `yaml:"rate_limit" mapstructure:"rate_limit"`
	Pipeline        PipelineConfig        `yaml:"pipeline" mapstructure:"pipeline"`
	Credits         CreditsConfig         `yaml:"credits" mapstructure:"credits"`
	Server          ServerConfig          `yaml:"server" mapstructure:"server"`
	Log             LogConfig             `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-log database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite", "postgres", or "none"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	ProcessorModel string `yaml:"processor_model" mapstructure:"processor_model"`
	SummaryModel   string `yaml:"summary_model" mapstructure:"summary_model"`
	MaxTokens      int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// SemanticScholarConfig holds Semantic Scholar Graph API settings.
type SemanticScholarConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Limit   int    `yaml:"limit" mapstructure:"limit"`
}

// RetryConfig configures the retry policy for stage executions.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	RateLimitWaitMs  int     `yaml:"rate_limit_wait_ms" mapstructure:"rate_limit_wait_ms"`
}

// CircuitConfig configures the per-stage circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// RateLimitConfig configures per-provider token buckets.
type RateLimitConfig struct {
	RequestsPerSecond float64                       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int                           `yaml:"burst" mapstructure:"burst"`
	Providers         map[string]ProviderRateConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderRateConfig overrides the bucket shape for one provider.
type ProviderRateConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// PipelineConfig configures run scheduling.
type PipelineConfig struct {
	MaxConcurrentRuns  int    `yaml:"max_concurrent_runs" mapstructure:"max_concurrent_runs"`
	PromptOverrideFile string `yaml:"prompt_override_file" mapstructure:"prompt_override_file"`
}

// CreditsConfig configures the launch gate.
type CreditsConfig struct {
	FullPipelineCost int `yaml:"full_pipeline_cost" mapstructure:"full_pipeline_cost"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PAPERFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "paperflow.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.processor_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.summary_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("openai.model", "gpt-5")
	v.SetDefault("openai.max_tokens", 4096)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.max_tokens", 4096)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("semantic_scholar.limit", 10)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("retry.rate_limit_wait_ms", 5000)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("rate_limit.requests_per_second", 2)
	v.SetDefault("rate_limit.burst", 2)
	v.SetDefault("pipeline.max_concurrent_runs", 4)
	v.SetDefault("credits.full_pipeline_cost", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// RetryPolicy converts the config into a resilience retry configuration.
func (c *Config) RetryPolicy() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	if c.Retry.MaxAttempts > 0 {
		cfg.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.InitialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(c.Retry.InitialBackoffMs) * time.Millisecond
	}
	if c.Retry.MaxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(c.Retry.MaxBackoffMs) * time.Millisecond
	}
	if c.Retry.Multiplier > 0 {
		cfg.Multiplier = c.Retry.Multiplier
	}
	if c.Retry.JitterFraction >= 0 {
		cfg.JitterFraction = c.Retry.JitterFraction
	}
	cfg.RateLimitWait = time.Duration(c.Retry.RateLimitWaitMs) * time.Millisecond
	return cfg
}

// BreakerPolicy converts the config into a circuit breaker configuration.
func (c *Config) BreakerPolicy() resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig()
	if c.Circuit.FailureThreshold > 0 {
		cfg.FailureThreshold = c.Circuit.FailureThreshold
	}
	if c.Circuit.ResetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(c.Circuit.ResetTimeoutSecs) * time.Second
	}
	return cfg
}

// LimiterPolicy converts the config into rate limiter settings.
func (c *Config) LimiterPolicy() (resilience.LimiterConfig, map[string]resilience.LimiterConfig) {
	defaults := resilience.LimiterConfig{
		RequestsPerSecond: c.RateLimit.RequestsPerSecond,
		Burst:             c.RateLimit.Burst,
	}
	perProvider := make(map[string]resilience.LimiterConfig, len(c.RateLimit.Providers))
	for id, p := range c.RateLimit.Providers {
		perProvider[id] = resilience.LimiterConfig{
			RequestsPerSecond: p.RequestsPerSecond,
			Burst:             p.Burst,
		}
	}
	return defaults, perProvider
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
