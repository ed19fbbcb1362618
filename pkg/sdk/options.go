package artisanmatch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "redis" or "memory"
	addrs     []string
	password  string
	keyPrefix string

	embedder Embedder

	maxBatchSize   int
	healthWindow   int
	healthMaxFails float64

	vectorTimeout time.Duration
	cacheSize     int
	cacheTTL      time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory configures the client to keep the catalog in process memory.
// Useful for tests and small embedded deployments; nothing survives restart.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
	})
}

// WithKeyPrefix sets the Redis key prefix for catalog and cache entries.
// Default: "artisanmatch:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithEmbedder sets the text embedding provider enabling the semantic
// ranking path. Without it every request is served by keyword matching.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithMaxBatchSize sets the maximum number of texts per embedding call.
// Default: 64.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithHealthWindow tunes the rolling provider outcome window that decides
// vector-path eligibility. Defaults: window=20, maxFailRate=0.5.
func WithHealthWindow(window int, maxFailRate float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.healthWindow = window
		c.healthMaxFails = maxFailRate
	})
}

// WithVectorTimeout bounds the vector-path attempt per request. Expiry
// degrades the request to keyword matching. Default: 5s.
func WithVectorTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorTimeout = d
	})
}

// WithCache tunes the bounded in-process cache shared by embeddings and
// ranked results. Defaults: size=2048, ttl=1h.
func WithCache(size int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheSize = size
		c.cacheTTL = ttl
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
