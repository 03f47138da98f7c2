// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains example API tokens that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-a-long-random-api-token",
	"REPLACE_WITH_YOUR_OWN_API_TOKEN_VALUE",
}

// Supported LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderOllama = "ollama"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"YOGA_DB_PATH" envDefault:"./data/yoga-i18n.db"`
	ServerHost string `env:"YOGA_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"YOGA_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"YOGA_ENV" envDefault:"development"`
	LogLevel   string `env:"YOGA_LOG_LEVEL" envDefault:"info"`

	// Bearer token for the HTTP API. Required in production.
	APIToken       string        `env:"YOGA_API_TOKEN"`
	APIRateLimit   float64       `env:"YOGA_API_RATE_LIMIT" envDefault:"5"`  // requests per second per client
	APIRateBurst   int           `env:"YOGA_API_RATE_BURST" envDefault:"10"` // burst per client
	RequestTimeout time.Duration `env:"YOGA_REQUEST_TIMEOUT" envDefault:"5m"`

	// Language model configuration
	LLMProvider      string        `env:"YOGA_LLM_PROVIDER" envDefault:"gemini"`
	LLMAPIKey        string        `env:"YOGA_LLM_API_KEY"`
	LLMBaseURL       string        `env:"YOGA_LLM_BASE_URL"`                                         // overrides the provider default
	LLMModel         string        `env:"YOGA_LLM_MODEL" envDefault:"gemini-2.0-flash"`              // immediate and on_demand tiers
	LLMEconomyModel  string        `env:"YOGA_LLM_ECONOMY_MODEL" envDefault:"gemini-2.0-flash-lite"` // batch tier
	LLMTimeout       time.Duration `env:"YOGA_LLM_TIMEOUT" envDefault:"45s"`
	LLMMaxRetries    int           `env:"YOGA_LLM_MAX_RETRIES" envDefault:"2"`
	LLMRatePerSecond float64       `env:"YOGA_LLM_RATE_PER_SECOND" envDefault:"1"`

	// Batch sizes per tier
	BatchSizeImmediate int `env:"YOGA_BATCH_SIZE_IMMEDIATE" envDefault:"10"`
	BatchSizeOnDemand  int `env:"YOGA_BATCH_SIZE_ON_DEMAND" envDefault:"8"`
	BatchSizeBatch     int `env:"YOGA_BATCH_SIZE_BATCH" envDefault:"5"`

	// Regenerate auto translations produced for an older content version.
	RetranslateStale bool `env:"YOGA_RETRANSLATE_STALE" envDefault:"false"`

	// Queue configuration
	QueueSchedule     string `env:"YOGA_QUEUE_SCHEDULE" envDefault:"*/5 * * * *"`
	QueueLimit        int    `env:"YOGA_QUEUE_LIMIT" envDefault:"5"`
	DiscoverySchedule string `env:"YOGA_DISCOVERY_SCHEDULE" envDefault:"0 3 * * *"`
	DiscoveryLimit    int    `env:"YOGA_DISCOVERY_LIMIT" envDefault:"50"`
	SchedulerEnabled  bool   `env:"YOGA_SCHEDULER_ENABLED" envDefault:"true"`

	// Event log retention
	EventRetention     time.Duration `env:"YOGA_EVENT_RETENTION" envDefault:"720h"`
	EventPruneSchedule string        `env:"YOGA_EVENT_PRUNE_SCHEDULE" envDefault:"30 4 * * *"`

	// Cache configuration
	RedisURL    string `env:"YOGA_REDIS_URL"`                            // Optional Redis URL for distributed caching
	CachePrefix string `env:"YOGA_CACHE_PREFIX" envDefault:"yoga-i18n:"` // Redis key prefix
	CacheTTL    int    `env:"YOGA_CACHE_TTL" envDefault:"900"`           // Localized text TTL in seconds
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// LLMConfigured reports whether translation calls can be made.
// Ollama runs locally and needs no key.
func (c Config) LLMConfigured() bool {
	return c.LLMProvider == ProviderOllama || c.LLMAPIKey != ""
}

// CacheDuration returns the cache TTL as a duration.
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// llmRetryPause is the longest backoff pause allowed between model attempts.
const llmRetryPause = 10 * time.Second

// LLMCallBudget bounds one batch call including its retries. LLMTimeout
// applies to each HTTP attempt, so every attempt gets the full timeout.
func (c Config) LLMCallBudget() time.Duration {
	retries := max(c.LLMMaxRetries, 0)
	return time.Duration(retries+1)*c.LLMTimeout + time.Duration(retries)*llmRetryPause
}

// MinAPITokenLength is the minimum accepted API token length in production.
const MinAPITokenLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if !cfg.LLMConfigured() {
		slog.Warn("YOGA_LLM_API_KEY is not set; translation requests will fail until it is configured",
			"provider", cfg.LLMProvider)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenAI, ProviderGroq, ProviderOllama:
	default:
		return fmt.Errorf("YOGA_LLM_PROVIDER %q is not supported (use gemini, openai, groq or ollama)", c.LLMProvider)
	}

	if c.BatchSizeImmediate <= 0 || c.BatchSizeOnDemand <= 0 || c.BatchSizeBatch <= 0 {
		return fmt.Errorf("batch sizes must be positive, got immediate=%d on_demand=%d batch=%d",
			c.BatchSizeImmediate, c.BatchSizeOnDemand, c.BatchSizeBatch)
	}

	if c.LLMTimeout < 5*time.Second || c.LLMTimeout > 5*time.Minute {
		return fmt.Errorf("YOGA_LLM_TIMEOUT must be between 5s and 5m, got %s", c.LLMTimeout)
	}

	if c.LLMMaxRetries < 0 || c.LLMMaxRetries > 5 {
		return fmt.Errorf("YOGA_LLM_MAX_RETRIES must be between 0 and 5, got %d", c.LLMMaxRetries)
	}

	if c.QueueLimit <= 0 {
		return fmt.Errorf("YOGA_QUEUE_LIMIT must be positive, got %d", c.QueueLimit)
	}

	if c.IsDevelopment() {
		return nil
	}

	if len(c.APIToken) < MinAPITokenLength {
		return fmt.Errorf("YOGA_API_TOKEN must be at least %d bytes long in production, got %d bytes; "+
			"generate one with: openssl rand -base64 32", MinAPITokenLength, len(c.APIToken))
	}

	for _, weak := range knownWeakSecrets {
		if c.APIToken == weak {
			return fmt.Errorf("YOGA_API_TOKEN is a known default value and must not be used")
		}
	}

	if !hasMinimumEntropy(c.APIToken) {
		slog.Warn("YOGA_API_TOKEN has low character diversity; " +
			"consider generating a random token with: openssl rand -base64 32")
	}

	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
