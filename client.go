// Package mindgate is the embedded SDK for the mindgate query gateway:
// validated queries against a mindfulness inference service with retries,
// per-session cancellation, and optional offline fallback answers.
package mindgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tenang-cloud/mindgate/internal/db"
	dbRedis "github.com/tenang-cloud/mindgate/internal/db/redis"
	"github.com/tenang-cloud/mindgate/internal/domain/answer"
	"github.com/tenang-cloud/mindgate/internal/domain/fault"
	"github.com/tenang-cloud/mindgate/internal/domain/query"
	sessionrepo "github.com/tenang-cloud/mindgate/internal/repository/session"
	"github.com/tenang-cloud/mindgate/internal/transport/inference"
	"github.com/tenang-cloud/mindgate/internal/usecase/fallback"
	"github.com/tenang-cloud/mindgate/internal/usecase/gateway"
	"github.com/tenang-cloud/mindgate/internal/usecase/lifecycle"
)

const defaultReadinessTimeout = 10 * time.Second

// ErrCancelled marks an Ask whose outcome was discarded because it was
// cancelled or superseded by a newer Ask for the same session.
var ErrCancelled = lifecycle.ErrCancelled

// Answer is one candidate response to a query.
type Answer struct {
	Text              string
	Confidence        float64
	Intent            string
	Keywords          []string
	FollowUpQuestions []string
	FollowUpAnswers   []string
}

// Client is the mindgate SDK entry point.
type Client struct {
	store     db.Store
	gateway   *gateway.Service
	lifecycle *lifecycle.Manager
	matcher   *fallback.Matcher
}

// New creates a mindgate Client. At minimum WithInference is required;
// WithRedis enables session tracking and WithFallbackCorpus enables
// offline answers.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.inferenceURL == "" {
		return nil, errors.New("mindgate: inference URL required (use WithInference)")
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	client := inference.NewClient(&inference.Config{
		BaseURL:       cfg.inferenceURL,
		HealthBaseURL: cfg.healthURL,
		Timeout:       cfg.timeout,
		MaxRetries:    cfg.maxRetries,
		Logger:        cfg.logger,
	})
	gatewaySvc := gateway.New(client, cfg.logger)

	var store db.Store
	var tracker lifecycle.SessionTracker
	if len(cfg.redisAddrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.redisAddrs,
			Password: cfg.redisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("mindgate: create redis store: %w", err)
		}
		if err := s.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("mindgate: database not ready: %w", err)
		}
		store = s

		prefix := cfg.sessionKeyPrefix
		if prefix == "" {
			prefix = "mindgate:"
		}
		repo := sessionrepo.New(s, prefix)
		if cfg.sessionTTL > 0 {
			repo = repo.WithTTL(cfg.sessionTTL)
		}
		tracker = repo
	}

	var matcher *fallback.Matcher
	if cfg.corpusPath != "" {
		entries, err := fallback.LoadCorpus(cfg.corpusPath)
		if err != nil {
			if store != nil {
				store.Close()
			}
			return nil, fmt.Errorf("mindgate: load fallback corpus: %w", err)
		}
		matcher = fallback.NewMatcher(entries)
	}

	return &Client{
		store:     store,
		gateway:   gatewaySvc,
		lifecycle: lifecycle.New(gatewaySvc, tracker, cfg.logger),
		matcher:   matcher,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ask submits a query for the session with the default result count.
// A newer Ask for the same session cancels this one, in which case the
// returned error is ErrCancelled.
func (c *Client) Ask(ctx context.Context, sessionID, text string) ([]Answer, error) {
	return c.AskTopK(ctx, sessionID, text, 0)
}

// AskTopK is Ask with an explicit result count (1..10; 0 means default).
func (c *Client) AskTopK(ctx context.Context, sessionID, text string, topK int) ([]Answer, error) {
	raw := query.Raw{Text: &text}
	if topK != 0 {
		k := float64(topK)
		raw.TopK = &k
	}

	answers, err := c.lifecycle.Submit(ctx, sessionID, raw)
	if err != nil {
		if c.matcher != nil && isFallbackWorthy(err) {
			if a, ok := c.matcher.Match(text); ok {
				return []Answer{toPublic(&a)}, nil
			}
		}
		return nil, err
	}

	out := make([]Answer, len(answers))
	for i := range answers {
		out[i] = toPublic(&answers[i])
	}
	return out, nil
}

// Cancel aborts the session's in-flight query, if any.
func (c *Client) Cancel(sessionID string) {
	c.lifecycle.Cancel(sessionID)
}

// Pending reports whether the session has a query in flight.
func (c *Client) Pending(sessionID string) bool {
	return c.lifecycle.Pending(sessionID)
}

// Health checks inference service availability.
func (c *Client) Health(ctx context.Context) error {
	return c.gateway.HealthCheck(ctx)
}

// Ping checks database connectivity. Returns nil when session tracking
// is disabled.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// isFallbackWorthy limits fallback answers to transient inference
// failures; validation errors and cancellations surface as-is.
func isFallbackWorthy(err error) bool {
	return !errors.Is(err, ErrCancelled) && fault.IsRetriable(err)
}

func toPublic(a *answer.Answer) Answer {
	return Answer{
		Text:              a.Text(),
		Confidence:        a.Confidence(),
		Intent:            a.Intent(),
		Keywords:          a.Keywords(),
		FollowUpQuestions: a.FollowUpQuestions(),
		FollowUpAnswers:   a.FollowUpAnswers(),
	}
}
