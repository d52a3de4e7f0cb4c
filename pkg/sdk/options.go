package unisearch

import (
	"log/slog"

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
	driver    string // "redis", "valkey" or "memory"
	addrs     []string
	password  string
	keyPrefix string

	esAddrs    []string
	esUsername string
	esPassword string
	esPrefix   string

	logoDevToken string
	perTypeLimit int
	maxLimit     int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to Redis 8+ (RediSearch and RedisJSON).
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey configures the client to connect to Valkey with valkey-search.
// Valkey has no text indexes, so searches use managed search or substring matching.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory keeps every collection in process. Useful for tests and demos.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.addrs = nil
	})
}

// WithKeyPrefix namespaces document keys and index names in Redis or Valkey.
// Default: "unisearch:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithElasticsearch enables managed full-text search and autocomplete.
func WithElasticsearch(addresses []string, username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.esAddrs = addresses
		c.esUsername = username
		c.esPassword = password
	})
}

// WithIndexPrefix sets the Elasticsearch index name prefix. Default: "unisearch_".
func WithIndexPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.esPrefix = prefix
	})
}

// WithLogoDevToken enables logo.dev lookups for university logos.
func WithLogoDevToken(token string) Option {
	return optionFunc(func(c *clientConfig) {
		c.logoDevToken = token
	})
}

// WithLimits sets the per-type result count of a global search and the
// largest page size. Zero keeps the default.
func WithLimits(perType, maxLimit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.perTypeLimit = perType
		c.maxLimit = maxLimit
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
