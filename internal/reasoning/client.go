package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/Rajchodisetti/pm-router/internal/observ"
)

// Generator produces a raw text completion for a prompt. Implemented by
// Client, MockGenerator, and the stub server used in local runs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds client settings. The API key is read from the environment
// by the caller and passed in; it never appears in config files.
type Config struct {
	BaseURL            string
	Model              string
	APIKey             string
	TimeoutMs          int
	RateLimitPerMinute int
	MaxRetries         int
	BackoffBaseMs      int
	BreakerMaxFailures int
	BreakerOpenMs      int
}

// Client calls the reasoning service over HTTP. Every Generate call is
// bounded by the configured timeout; retries and backoff stay inside it.
type Client struct {
	config      Config
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker

	mu                sync.Mutex
	consecutiveErrors int
}

const unhealthyAfter = 3

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, NewConfigError("API key is required")
	}
	if config.Model == "" {
		return nil, NewConfigError("model is required")
	}
	if config.BaseURL == "" {
		return nil, NewConfigError("base URL is required")
	}
	if config.TimeoutMs == 0 {
		config.TimeoutMs = 8000
	}
	if config.RateLimitPerMinute == 0 {
		config.RateLimitPerMinute = 30
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	if config.BackoffBaseMs == 0 {
		config.BackoffBaseMs = 250
	}
	if config.BreakerMaxFailures == 0 {
		config.BreakerMaxFailures = 3
	}
	if config.BreakerOpenMs == 0 {
		config.BreakerOpenMs = 30000
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "reasoning",
		Timeout: time.Duration(config.BreakerOpenMs) * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.BreakerMaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observ.Log("reasoning_breaker_state", map[string]any{
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutMs) * time.Millisecond,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(config.RateLimitPerMinute)/60.0), 1),
		breaker:     breaker,
	}, nil
}

// Generate sends one prompt and returns the extracted completion text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.config.TimeoutMs)*time.Millisecond)
	defer cancel()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.recordError()
		return "", NewTransportError("rate limit wait cancelled", err)
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (any, error) {
		return c.generate(ctx, prompt)
	})
	observ.RecordDuration("reasoning_latency_seconds", time.Since(start), nil)

	if err != nil {
		c.recordError()
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", NewTransportError("circuit breaker open", err)
		}
		return "", err
	}
	c.recordSuccess()
	return out.(string), nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{Model: c.config.Model, Prompt: prompt})
	if err != nil {
		return "", NewFormatError("failed to encode request", err)
	}
	url := fmt.Sprintf("%s/v1/models/%s:generate", c.config.BaseURL, c.config.Model)

	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(c.config.BackoffBaseMs*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-ctx.Done():
				return "", NewTransportError("deadline exceeded during backoff", ctx.Err())
			case <-time.After(backoff):
			}
		}

		text, err := c.doRequest(ctx, url, payload)
		if err == nil {
			return text, nil
		}
		var re *Error
		if errors.As(err, &re) && re.Kind == KindConfig {
			// config errors are not retryable
			return "", err
		}
		lastErr = err
		observ.IncCounter("reasoning_retries_total", nil)
	}
	return "", lastErr
}

func (c *Client) doRequest(ctx context.Context, url string, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", NewTransportError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", NewTransportError("request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewTransportError("failed to read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", NewConfigError(fmt.Sprintf("HTTP %d: credentials rejected", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", NewTransportError(fmt.Sprintf("HTTP %d: rate limited", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return "", NewTransportError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, Truncate(string(body), MaxDiagnosticLen)), nil)
	}

	return ExtractText(body)
}

func (c *Client) recordError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveErrors++
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveErrors = 0
}

// Healthy reports whether recent calls have been succeeding.
func (c *Client) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consecutiveErrors < unhealthyAfter
}
