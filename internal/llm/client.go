// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package llm talks to chat-completion models over OpenAI-compatible APIs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Errors returned by the client.
var (
	ErrMissingAPIKey = errors.New("llm API key is not configured")
	ErrEmptyResponse = errors.New("llm returned no choices")
	ErrCircuitOpen   = errors.New("llm provider circuit is open")
)

// Request is a single chat completion call.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int64
}

// Response is the text and token usage of a completion.
type Response struct {
	Content          string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Provider() string
}

// Config configures a Client.
type Config struct {
	Provider      string
	APIKey        string
	BaseURL       string        // empty uses the provider default
	Timeout       time.Duration // per HTTP attempt
	MaxRetries    int
	RatePerSecond float64
	// RetryInterval is the first backoff interval between attempts.
	RetryInterval time.Duration
	// BreakerFailures is the number of consecutive failures that opens the circuit.
	BreakerFailures uint32
	// BreakerCooldown is how long the circuit stays open.
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

// Client is a Generator over openai-go with rate limiting, retries and a
// circuit breaker.
type Client struct {
	provider      string
	api           openai.Client
	limiter       *rate.Limiter
	breaker       *gobreaker.CircuitBreaker
	maxRetries    int
	retryInterval time.Duration
	logger        *slog.Logger
}

// NewClient creates a Client for the configured provider.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	info, err := GetProviderInfo(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if info.NeedsAPIKey && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrMissingAPIKey)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = info.BaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = cfg.Provider // ollama ignores the key but the header must be set
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0), // retries are handled here
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = 500 * time.Millisecond
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	c := &Client{
		provider:      cfg.Provider,
		api:           openai.NewClient(opts...),
		limiter:       rate.NewLimiter(limit, 1),
		maxRetries:    max(cfg.MaxRetries, 0),
		retryInterval: retryInterval,
		logger:        logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-" + cfg.Provider,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations say nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("llm circuit breaker state change",
				"category", "llm", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

// Provider returns the provider identifier used for provenance.
func (c *Client) Provider() string {
	return c.provider
}

// Generate runs one chat completion.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generateWithRetry(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", c.provider, ErrCircuitOpen)
	}
	if err != nil {
		return nil, err
	}
	return out.(*Response), nil
}

func (c *Client) generateWithRetry(ctx context.Context, req Request) (*Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	bo.MaxInterval = 20 * c.retryInterval
	bo.Multiplier = 2

	var resp *Response
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		r, err := c.complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil || !isRetryable(err) {
				return backoff.Permanent(err)
			}
			c.logger.Debug("llm call failed, retrying", "provider", c.provider, "attempt", attempt, "error", err)
			return err
		}
		resp = r
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxRetries)), ctx))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) complete(ctx context.Context, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}

	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s chat: %w", c.provider, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%s chat: %w", c.provider, ErrEmptyResponse)
	}

	model := completion.Model
	if model == "" {
		model = req.Model
	}
	return &Response{
		Content:          completion.Choices[0].Message.Content,
		Model:            model,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}, nil
}

// isRetryable reports whether an error is worth another attempt. Rate limits,
// server errors, transport failures and attempt timeouts are retried; client
// errors and cancellation are not. The caller's own deadline is checked
// separately.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) {
		return true
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}
