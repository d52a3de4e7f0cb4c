package unisearch

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no store configured")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	_, err := createStore(cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClientOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := &clientConfig{}
	opts := []Option{
		WithValkey("localhost:6379", "secret"),
		WithKeyPrefix("test:"),
		WithElasticsearch([]string{"http://es:9200"}, "elastic", "pw"),
		WithIndexPrefix("campus_"),
		WithLogoDevToken("pk_123"),
		WithLimits(5, 50),
		WithLogger(slog.Default()),
		WithPrometheus(reg),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver != "valkey" || len(cfg.addrs) != 1 || cfg.password != "secret" {
		t.Errorf("store = %q %v %q", cfg.driver, cfg.addrs, cfg.password)
	}
	if cfg.keyPrefix != "test:" || cfg.esPrefix != "campus_" {
		t.Errorf("prefixes = %q %q", cfg.keyPrefix, cfg.esPrefix)
	}
	if len(cfg.esAddrs) != 1 || cfg.esUsername != "elastic" || cfg.esPassword != "pw" {
		t.Errorf("elasticsearch = %v %q", cfg.esAddrs, cfg.esUsername)
	}
	if cfg.logoDevToken != "pk_123" || cfg.perTypeLimit != 5 || cfg.maxLimit != 50 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.logger == nil || cfg.metricsReg != reg {
		t.Error("logger and registerer should be set")
	}

	WithMemory().apply(cfg)
	if cfg.driver != "memory" || cfg.addrs != nil {
		t.Errorf("WithMemory: driver %q addrs %v", cfg.driver, cfg.addrs)
	}
	WithRedis("r:6379", "").apply(cfg)
	if cfg.driver != "redis" || cfg.addrs[0] != "r:6379" {
		t.Errorf("WithRedis: driver %q addrs %v", cfg.driver, cfg.addrs)
	}
}

func TestClient_Close_Empty(t *testing.T) {
	c := &Client{}
	c.Close()
}

func TestClient_MemoryEndToEnd(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, WithMemory())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	results, err := c.Provision(ctx, false)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	for _, r := range results {
		if len(r.Errors) > 0 || len(r.Warnings) > 0 {
			t.Fatalf("provision %s: %+v", r.Collection, r)
		}
	}

	err = c.Put(ctx, TypeNotes, "n1", map[string]any{
		"title": "Calculus cheat sheet", "subject": "Math", "createdAt": 1700000000000,
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := c.Search(ctx, SearchParams{Query: "calculus", Type: TypeNotes})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Slots) != 1 || res.Slots[0].Type != TypeNotes {
		t.Fatalf("slots = %+v", res.Slots)
	}
	if items := res.Slots[0].Items; len(items) != 1 || items[0].ID != "n1" {
		t.Errorf("items = %+v", items)
	}

	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if h := c.Health(ctx); h.Status != "ok" || h.Checks["managed_search"] != "disabled" {
		t.Errorf("health = %+v", h)
	}
	if err := c.ClearHistory(ctx, "u1"); err != nil {
		t.Errorf("ClearHistory: %v", err)
	}
}

func TestClient_MemoryProvisionIdempotent(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, WithMemory())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, err := c.Provision(ctx, false); err != nil {
		t.Fatalf("first Provision: %v", err)
	}
	again, err := c.Provision(ctx, false)
	if err != nil {
		t.Fatalf("second Provision: %v", err)
	}
	for _, r := range again {
		if len(r.Created) != 0 {
			t.Errorf("%s recreated %v", r.Collection, r.Created)
		}
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("search", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("search", time.Now(), errors.New("fail"))

	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", "ok")); got != 1 {
		t.Errorf("ok count = %v", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", "error")); got != 1 {
		t.Errorf("error count = %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "unisearch_sdk_operations_total" {
			found = true
		}
	}
	if !found {
		t.Error("unisearch_sdk_operations_total not found")
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	second.observe("put", time.Now(), nil)
	if got := testutil.ToFloat64(first.metrics.operations.WithLabelValues("put", "ok")); got != 1 {
		t.Errorf("shared counter = %v", got)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("put", time.Now(), nil)
	obs.observe("put", time.Now(), errors.New("test error"))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrInvalidQuery, "invalid"},
		{ErrUnknownCollection, "invalid"},
		{ErrUserRequired, "invalid"},
		{ErrStoreUnavailable, "unavailable"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Errorf("statusOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
