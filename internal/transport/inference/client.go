// Package inference is the transport client for the downstream natural
// language inference service. It owns per-attempt timeouts, the retry and
// backoff policy, and failure classification; callers only ever observe a
// final, already-classified outcome.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tenang-cloud/mindgate/internal/domain/fault"
	"github.com/tenang-cloud/mindgate/internal/domain/query"
	"github.com/tenang-cloud/mindgate/internal/metrics"
)

// Policy defaults. Worst-case sequence latency is bounded by
// (MaxRetries+1) × Timeout plus the sum of backoff delays; linear backoff
// keeps that bound predictable for a chat UI.
const (
	DefaultTimeout          = 25 * time.Second
	DefaultMaxRetries       = 2
	DefaultServerBackoff    = 2 * time.Second
	DefaultNetworkBackoff   = 3 * time.Second
	DefaultRateLimitBackoff = 5 * time.Second
	DefaultHealthTimeout    = 5 * time.Second

	maxResponseBytes = 1 << 20
)

// Config holds the inference client settings.
type Config struct {
	BaseURL       string
	HealthBaseURL string // separate base path for GET /health; BaseURL when empty

	Timeout          time.Duration
	MaxRetries       int // zero means DefaultMaxRetries; negative disables retries
	ServerBackoff    time.Duration
	NetworkBackoff   time.Duration
	RateLimitBackoff time.Duration
	HealthTimeout    time.Duration

	Logger *zap.Logger
}

// Client calls the inference service.
type Client struct {
	http   *http.Client
	cfg    Config
	logger *zap.Logger
}

// retryState tracks one call sequence. Never shared across calls.
type retryState struct {
	attempt  int
	lastKind fault.Kind
}

// NewClient creates an inference client. Zero config fields get defaults.
func NewClient(cfg *Config) *Client {
	c := *cfg
	if c.HealthBaseURL == "" {
		c.HealthBaseURL = c.BaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	switch {
	case c.MaxRetries == 0:
		c.MaxRetries = DefaultMaxRetries
	case c.MaxRetries < 0:
		c.MaxRetries = 0
	}
	if c.ServerBackoff <= 0 {
		c.ServerBackoff = DefaultServerBackoff
	}
	if c.NetworkBackoff <= 0 {
		c.NetworkBackoff = DefaultNetworkBackoff
	}
	if c.RateLimitBackoff <= 0 {
		c.RateLimitBackoff = DefaultRateLimitBackoff
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = DefaultHealthTimeout
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		// Per-attempt deadlines come from the context; the http.Client
		// itself carries no timeout so cancellation stays cooperative.
		http:   &http.Client{},
		cfg:    c,
		logger: logger,
	}
}

// searchRequest is the downstream wire format for POST /search.
type searchRequest struct {
	Text string `json:"text"`
	TopK int    `json:"top_k"`
}

// Search runs the full call sequence for one query: attempt, classify,
// back off, retry while the failure is retriable and budget remains. The
// returned body is the raw downstream payload; a 2xx with a blank body is
// an EmptyResponse fault, never forwarded as success.
func (c *Client) Search(ctx context.Context, q query.Query) ([]byte, error) {
	state := retryState{}
	start := time.Now()

	for {
		body, err := c.attempt(ctx, q)
		if err == nil {
			metrics.InferenceRequestsTotal.WithLabelValues("success").Inc()
			metrics.InferenceRequestDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
			return body, nil
		}

		// Caller cancellation is not a failure of the downstream; it
		// propagates untouched so the lifecycle layer can drop it silently.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		kind := fault.KindOf(err)
		state.lastKind = kind

		if !kind.Retriable() || state.attempt >= c.cfg.MaxRetries {
			metrics.InferenceRequestsTotal.WithLabelValues("error").Inc()
			metrics.InferenceRequestDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
			metrics.InferenceErrorsTotal.WithLabelValues(string(kind)).Inc()
			return nil, err
		}

		delay := c.backoff(kind, state.attempt)
		c.logger.Warn("inference attempt failed, retrying",
			zap.String("request_id", q.RequestID()),
			zap.String("kind", string(kind)),
			zap.Int("attempt", state.attempt),
			zap.Duration("backoff", delay),
		)
		metrics.InferenceRetriesTotal.Inc()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		state.attempt++
	}
}

// attempt issues one request with a fresh timeout budget.
func (c *Client) attempt(ctx context.Context, q query.Query) ([]byte, error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(searchRequest{Text: q.Text(), TopK: q.TopK()})
	if err != nil {
		return nil, fault.New(fault.Unknown, fmt.Sprintf("encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(actx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fault.New(fault.Unknown, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", q.RequestID())

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transportFault(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transportFault(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusFault(resp.StatusCode, body)
	}

	if isBlank(body) {
		return nil, fault.New(fault.EmptyResponse, "inference service returned an empty body")
	}
	return body, nil
}

// backoff returns the linear delay before the next attempt.
func (c *Client) backoff(kind fault.Kind, attempt int) time.Duration {
	var base time.Duration
	switch kind {
	case fault.RateLimited:
		base = c.cfg.RateLimitBackoff
	case fault.Unavailable:
		base = c.cfg.NetworkBackoff
	default:
		base = c.cfg.ServerBackoff
	}
	return base * time.Duration(attempt+1)
}

func isBlank(body []byte) bool {
	for _, b := range body {
		switch b {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
