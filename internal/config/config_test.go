package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Driver(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		addrs   []string
		wantErr string
	}{
		{"redis with addrs", "redis", []string{"localhost:6379"}, ""},
		{"valkey without addrs", "valkey", nil, `database.addrs is required for driver "valkey"`},
		{"redis without addrs", "redis", nil, `database.addrs is required for driver "redis"`},
		{"memory without addrs", "memory", nil, ""},
		{"unknown driver", "mongo", nil, `database.driver must be redis, valkey or memory, got "mongo"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.Driver = tt.driver
			cfg.Database.Addrs = tt.addrs

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ManagedRequiresAddresses(t *testing.T) {
	cfg := validConfig()
	cfg.Managed.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for managed search without addresses")
	}
	cfg.Managed.Addresses = []string{"http://localhost:9200"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_KafkaRequiresBrokers(t *testing.T) {
	cfg := validConfig()
	cfg.History.Kafka.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for kafka without brokers")
	}
}

func TestValidate_PageSizes(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultPageSize = 80

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when default page size exceeds max")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"ReadTimeoutSec", cfg.HTTP.ReadTimeoutSec, 10},
		{"Driver", cfg.Database.Driver, "redis"},
		{"KeyPrefix", cfg.Database.KeyPrefix, "unisearch:"},
		{"ReadinessTimeout", cfg.Database.ReadinessTimeout, 10},
		{"IndexPrefix", cfg.Managed.IndexPrefix, "unisearch_"},
		{"DefaultPageSize", cfg.Search.DefaultPageSize, 20},
		{"MaxPageSize", cfg.Search.MaxPageSize, 50},
		{"PerTypeLimit", cfg.Search.PerTypeLimit, 5},
		{"MinQueryLength", cfg.Search.MinQueryLength, 2},
		{"ResolverTimeoutMs", cfg.Search.ResolverTimeoutMs, 3000},
		{"CapabilityTTLSec", cfg.Search.CapabilityTTLSec, 30},
		{"SuggestionLimit", cfg.Search.SuggestionLimit, 10},
		{"SuggestionTimeoutMs", cfg.Search.SuggestionTimeoutMs, 500},
		{"ApproxCountStalenessSec", cfg.Search.ApproxCountStalenessSec, 60},
		{"HistoryWorkers", cfg.History.Workers, 2},
		{"HistoryQueueSize", cfg.History.QueueSize, 256},
		{"KafkaTopic", cfg.History.Kafka.Topic, "search-history"},
		{"CacheTTLSec", cfg.Enrichment.CacheTTLSec, 86400},
		{"RetryTTLSec", cfg.Enrichment.RetryTTLSec, 60},
		{"Concurrency", cfg.Enrichment.Concurrency, 3},
		{"UserHeader", cfg.Auth.UserHeader, "X-User-ID"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: "valkey", KeyPrefix: "custom:"},
		Search:   SearchConfig{PerTypeLimit: 8, ResolverTimeoutMs: 1500},
		Auth:     AuthConfig{UserHeader: "X-Account"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "valkey" {
		t.Errorf("expected Driver=valkey, got %q", cfg.Database.Driver)
	}
	if cfg.Database.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Database.KeyPrefix)
	}
	if cfg.Search.PerTypeLimit != 8 {
		t.Errorf("expected PerTypeLimit=8, got %d", cfg.Search.PerTypeLimit)
	}
	if got := cfg.Search.ResolverTimeout(); got != 1500*time.Millisecond {
		t.Errorf("ResolverTimeout() = %v", got)
	}
	if cfg.Auth.UserHeader != "X-Account" {
		t.Errorf("expected UserHeader=X-Account, got %q", cfg.Auth.UserHeader)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("UNISEARCH_TEST_ADDR", "redis:6379")

	got := string(expandEnvVars([]byte("a: ${UNISEARCH_TEST_ADDR}\nb: ${UNISEARCH_TEST_MISSING:-fallback}\nc: ${UNISEARCH_TEST_MISSING}")))
	want := "a: redis:6379\nb: fallback\nc: "
	if got != want {
		t.Fatalf("expandEnvVars = %q, want %q", got, want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	body := `
http:
  port: 9090
database:
  driver: memory
search:
  per_type_limit: ${UNISEARCH_TEST_PER_TYPE:-7}
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Database.Driver != "memory" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Search.PerTypeLimit != 7 {
		t.Errorf("PerTypeLimit = %d, want 7", cfg.Search.PerTypeLimit)
	}
	if cfg.Search.MaxPageSize != 50 {
		t.Errorf("defaults not applied: MaxPageSize = %d", cfg.Search.MaxPageSize)
	}
}
