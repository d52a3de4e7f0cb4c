package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the unisearch configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Managed    ManagedConfig    `yaml:"managed"`
	Search     SearchConfig     `yaml:"search"`
	History    HistoryConfig    `yaml:"history"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
	// UserHeader carries the caller's user id, set by the upstream gateway.
	UserHeader string `yaml:"user_header"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds collection store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ManagedConfig holds the managed full-text engine (Elasticsearch) settings.
type ManagedConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Addresses   []string `yaml:"addresses"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	IndexPrefix string   `yaml:"index_prefix"`
	TimeoutMs   int      `yaml:"timeout_ms"`
}

// SearchConfig holds paging, fan-out and typeahead settings.
type SearchConfig struct {
	DefaultPageSize     int `yaml:"default_page_size"`
	MaxPageSize         int `yaml:"max_page_size"`
	PerTypeLimit        int `yaml:"per_type_limit"`
	MinQueryLength      int `yaml:"min_query_length"`
	ResolverTimeoutMs   int `yaml:"resolver_timeout_ms"`
	CapabilityTTLSec    int `yaml:"capability_ttl_sec"`
	SuggestionLimit     int `yaml:"suggestion_limit"`
	SuggestionTimeoutMs int `yaml:"suggestion_timeout_ms"`
	RecentLimit         int `yaml:"recent_limit"`
	PopularLimit        int `yaml:"popular_limit"`
	// ApproxCountStalenessSec bounds how stale an estimated count may be.
	ApproxCountStalenessSec int `yaml:"approx_count_staleness_sec"`
}

// HistoryConfig holds search history recording settings.
type HistoryConfig struct {
	Workers   int         `yaml:"workers"`
	QueueSize int         `yaml:"queue_size"`
	Kafka     KafkaConfig `yaml:"kafka"`
}

// KafkaConfig holds the history event stream settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
	// Consume runs the consumer that applies events to the store.
	Consume bool `yaml:"consume"`
}

// EnrichmentConfig holds logo enrichment settings.
type EnrichmentConfig struct {
	LogoDevToken  string `yaml:"logo_dev_token"`
	MinIntervalMs int    `yaml:"min_interval_ms"`
	CacheTTLSec   int    `yaml:"cache_ttl_sec"`
	RetryTTLSec   int    `yaml:"retry_ttl_sec"`
	Concurrency   int    `yaml:"concurrency"`
	TimeoutMs     int    `yaml:"timeout_ms"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "unisearch:"
	}

	if c.Managed.IndexPrefix == "" {
		c.Managed.IndexPrefix = "unisearch_"
	}
	if c.Managed.TimeoutMs <= 0 {
		c.Managed.TimeoutMs = 2000
	}

	c.applySearchDefaults()

	if c.History.Workers <= 0 {
		c.History.Workers = 2
	}
	if c.History.QueueSize <= 0 {
		c.History.QueueSize = 256
	}
	if c.History.Kafka.Topic == "" {
		c.History.Kafka.Topic = "search-history"
	}
	if c.History.Kafka.GroupID == "" {
		c.History.Kafka.GroupID = "unisearch-history"
	}

	if c.Enrichment.MinIntervalMs <= 0 {
		c.Enrichment.MinIntervalMs = 100
	}
	if c.Enrichment.CacheTTLSec <= 0 {
		c.Enrichment.CacheTTLSec = 24 * 60 * 60
	}
	if c.Enrichment.RetryTTLSec <= 0 {
		c.Enrichment.RetryTTLSec = 60
	}
	if c.Enrichment.Concurrency <= 0 {
		c.Enrichment.Concurrency = 3
	}
	if c.Enrichment.TimeoutMs <= 0 {
		c.Enrichment.TimeoutMs = 3000
	}

	if c.Auth.UserHeader == "" {
		c.Auth.UserHeader = "X-User-ID"
	}
}

func (c *Config) applySearchDefaults() {
	s := &c.Search
	if s.DefaultPageSize <= 0 {
		s.DefaultPageSize = 20
	}
	if s.MaxPageSize <= 0 {
		s.MaxPageSize = 50
	}
	if s.PerTypeLimit <= 0 {
		s.PerTypeLimit = 5
	}
	if s.MinQueryLength <= 0 {
		s.MinQueryLength = 2
	}
	if s.ResolverTimeoutMs <= 0 {
		s.ResolverTimeoutMs = 3000
	}
	if s.CapabilityTTLSec <= 0 {
		s.CapabilityTTLSec = 30
	}
	if s.SuggestionLimit <= 0 {
		s.SuggestionLimit = 10
	}
	if s.SuggestionTimeoutMs <= 0 {
		s.SuggestionTimeoutMs = 500
	}
	if s.RecentLimit <= 0 {
		s.RecentLimit = 10
	}
	if s.PopularLimit <= 0 {
		s.PopularLimit = 10
	}
	if s.ApproxCountStalenessSec <= 0 {
		s.ApproxCountStalenessSec = 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be redis, valkey or memory, got %q", c.Database.Driver)
	}
	if c.Managed.Enabled && len(c.Managed.Addresses) == 0 {
		return fmt.Errorf("managed.addresses is required when managed search is enabled")
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size (%d) exceeds search.max_page_size (%d)",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	if c.History.Kafka.Enabled && len(c.History.Kafka.Brokers) == 0 {
		return fmt.Errorf("history.kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// ResolverTimeout returns the per-resolver fan-out timeout.
func (s SearchConfig) ResolverTimeout() time.Duration {
	return time.Duration(s.ResolverTimeoutMs) * time.Millisecond
}

// SuggestionTimeout returns the per-source typeahead timeout.
func (s SearchConfig) SuggestionTimeout() time.Duration {
	return time.Duration(s.SuggestionTimeoutMs) * time.Millisecond
}

// CapabilityTTL returns how long capability reports are cached.
func (s SearchConfig) CapabilityTTL() time.Duration {
	return time.Duration(s.CapabilityTTLSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
