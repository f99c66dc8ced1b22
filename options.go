package mindgate

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	inferenceURL     string
	healthURL        string
	timeout          time.Duration
	maxRetries       int
	redisAddrs       []string
	redisPassword    string
	sessionKeyPrefix string
	sessionTTL       time.Duration
	corpusPath       string
	logger           *zap.Logger
}

// WithInference sets the inference service base URL. Required.
func WithInference(baseURL string) Option {
	return func(c *clientConfig) { c.inferenceURL = baseURL }
}

// WithHealthURL sets a separate base URL for inference health probes.
// Defaults to the inference base URL.
func WithHealthURL(baseURL string) Option {
	return func(c *clientConfig) { c.healthURL = baseURL }
}

// WithTimeout sets the per-attempt timeout for inference calls.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithMaxRetries sets the retry budget for retriable inference failures.
// Defaults to 2; n <= 0 disables retries.
func WithMaxRetries(n int) Option {
	return func(c *clientConfig) {
		if n <= 0 {
			n = -1
		}
		c.maxRetries = n
	}
}

// WithRedis enables session tracking backed by Redis.
func WithRedis(addrs []string, password string) Option {
	return func(c *clientConfig) {
		c.redisAddrs = addrs
		c.redisPassword = password
	}
}

// WithSessionKeyPrefix overrides the Redis key prefix for session records.
func WithSessionKeyPrefix(prefix string) Option {
	return func(c *clientConfig) { c.sessionKeyPrefix = prefix }
}

// WithSessionTTL overrides how long idle session records are kept.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *clientConfig) { c.sessionTTL = ttl }
}

// WithFallbackCorpus enables locally generated answers from a corpus file
// when the inference service is unreachable.
func WithFallbackCorpus(path string) Option {
	return func(c *clientConfig) { c.corpusPath = path }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}
