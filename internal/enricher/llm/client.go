// Package llm is a small client for OpenAI-compatible chat completion
// endpoints, plus the text serializers used to build prompts.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects requests after
// repeated failures.
var ErrCircuitOpen = errors.New("llm: circuit open")

const (
	defaultTimeout         = 30 * time.Second
	defaultRetries         = 1
	defaultRetryBackoff    = time.Second
	defaultBreakerFailures = 3
	defaultBreakerTimeout  = time.Minute

	// maxResponseBytes bounds how much of a completion body is read.
	maxResponseBytes = 10 << 20
	temperature      = 0.2
)

// Config holds LLM client configuration. Zero values take defaults.
type Config struct {
	Endpoint string // API base URL, e.g. https://api.openai.com/v1
	APIKey   string
	Model    string
	Timeout  time.Duration

	// Retries is how many times a 429 or 5xx answer is retried. Negative
	// disables retries. RetryBackoff is the wait before a retry when the
	// server sends no Retry-After.
	Retries      int
	RetryBackoff time.Duration

	// BreakerFailures consecutive failed completions open the circuit for
	// BreakerTimeout.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	switch {
	case c.Retries == 0:
		c.Retries = defaultRetries
	case c.Retries < 0:
		c.Retries = 0
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = defaultBreakerFailures
	}
	if c.BreakerTimeout == 0 {
		c.BreakerTimeout = defaultBreakerTimeout
	}
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	return c
}

// LogValue masks the API key when the config is logged via slog.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("endpoint", c.Endpoint),
		slog.String("model", c.Model),
		slog.String("api_key", "[REDACTED]"),
	)
}

// APIError is a non-200 answer from the completions endpoint, or an error
// object inside a 200 answer.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm: status %d", e.StatusCode)
	}
	return fmt.Sprintf("llm: status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether repeating the request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client speaks the OpenAI-compatible chat completions API. All calls share
// one circuit breaker.
type Client struct {
	cfg     Config
	url     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates an LLM client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	logger = logger.With("component", "llm-client")

	return &Client{
		cfg:    cfg,
		url:    cfg.Endpoint + "/chat/completions",
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm",
			MaxRequests: 1,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
			IsSuccessful: func(err error) bool {
				// A cancelled caller says nothing about the endpoint's health.
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

type message struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model          string    `json:"model"`
	Messages       []message `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one system/user prompt pair in JSON mode and returns the
// content of the first choice. While the breaker is open it fails fast
// with ErrCircuitOpen.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload, err := c.encode(systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.send(ctx, payload)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	case err != nil:
		return "", err
	}
	return out.(string), nil
}

// State reports the breaker state: "closed", "half-open" or "open".
func (c *Client) State() string {
	return c.breaker.State().String()
}

func (c *Client) encode(systemPrompt, userPrompt string) ([]byte, error) {
	req := completionRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}
	req.ResponseFormat.Type = "json_object"

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return data, nil
}

// send posts payload, retrying temporary API errors.
func (c *Client) send(ctx context.Context, payload []byte) (string, error) {
	for attempt := 0; ; attempt++ {
		content, err := c.post(ctx, payload)
		if err == nil {
			return content, nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Temporary() || attempt >= c.cfg.Retries {
			if attempt > 0 {
				return "", fmt.Errorf("after %d attempts: %w", attempt+1, err)
			}
			return "", err
		}

		wait := c.cfg.RetryBackoff
		if apiErr.RetryAfter > 0 {
			wait = apiErr.RetryAfter
		}
		c.logger.Debug("retrying LLM request", "attempt", attempt+2, "status", apiErr.StatusCode, "wait", wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (c *Client) post(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	c.logger.Debug("sending LLM request", "url", c.url, "model", c.cfg.Model, "bytes", len(payload))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return "", apiErr
	}
	return decodeCompletion(body)
}

func decodeCompletion(body []byte) (string, error) {
	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if resp.Error != nil {
		return "", &APIError{StatusCode: http.StatusOK, Message: resp.Error.Message}
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("decode completion: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// parseRetryAfter accepts both Retry-After forms: delay seconds and an
// HTTP date.
func parseRetryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(val); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
