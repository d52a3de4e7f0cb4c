package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/config"
	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/db/elastic"
	"github.com/kailas-cloud/unisearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/unisearch/internal/db/redis"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/unisearch/internal/logger"
	"github.com/kailas-cloud/unisearch/internal/metrics"
	historyrepo "github.com/kailas-cloud/unisearch/internal/repository/history"
	chiTransport "github.com/kailas-cloud/unisearch/internal/transport/chi"
	"github.com/kailas-cloud/unisearch/internal/transport/httpprobe"
	kafkaTransport "github.com/kailas-cloud/unisearch/internal/transport/kafka"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
	"github.com/kailas-cloud/unisearch/internal/usecase/enrichment"
	healthuc "github.com/kailas-cloud/unisearch/internal/usecase/health"
	historyuc "github.com/kailas-cloud/unisearch/internal/usecase/history"
	"github.com/kailas-cloud/unisearch/internal/usecase/provision"
	"github.com/kailas-cloud/unisearch/internal/usecase/resolver"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
	"github.com/kailas-cloud/unisearch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting unisearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("managed_search", cfg.Managed.Enabled),
		zap.Bool("history_stream", cfg.History.Kafka.Enabled),
	)

	metrics.RegisterHTTPMetrics(prometheus.DefaultRegisterer)
	metrics.RegisterSearchMetrics(prometheus.DefaultRegisterer)

	store, err := newStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Pass nil interfaces (not typed nil pointers) when managed search is off.
	var (
		managedSearcher resolver.ManagedSearcher
		managedProber   capability.ManagedProber
		managedIndexer  provision.ManagedIndexer
		autocompleter   searchuc.Autocompleter
		managedPinger   healthuc.Pinger
	)
	if cfg.Managed.Enabled {
		es, err := newManaged(cfg.Managed)
		if err != nil {
			logger.Fatal("Failed to create elasticsearch client", zap.Error(err))
		}
		if err := es.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			// Searches fall back to the store tiers until the engine answers.
			logger.Warn("Elasticsearch not ready", zap.Error(err))
		}
		managedSearcher, managedProber, managedIndexer, autocompleter, managedPinger = es, es, es, es, es
	}

	caps := capability.New(store, managedProber, cfg.Search.CapabilityTTL())
	prov := provision.New(store, managedIndexer, caps, logger)

	enricher := enrichment.New(
		httpprobe.New(&httpprobe.Config{
			Timeout:   time.Duration(cfg.Enrichment.TimeoutMs) * time.Millisecond,
			UserAgent: "unisearch/" + version.Version,
			Logger:    logger,
		}),
		enrichment.Config{
			LogoDevToken: cfg.Enrichment.LogoDevToken,
			MinInterval:  time.Duration(cfg.Enrichment.MinIntervalMs) * time.Millisecond,
			CacheTTL:     time.Duration(cfg.Enrichment.CacheTTLSec) * time.Second,
			RetryTTL:     time.Duration(cfg.Enrichment.RetryTTLSec) * time.Second,
			Concurrency:  cfg.Enrichment.Concurrency,
			Timeout:      time.Duration(cfg.Enrichment.TimeoutMs) * time.Millisecond,
		},
		logger,
	)

	resolvers := resolver.NewAll(resolver.Deps{
		Store:        store,
		Managed:      managedSearcher,
		Capabilities: caps,
		Enricher:     enricher,
		MaxLimit:     cfg.Search.MaxPageSize,
		Logger:       logger,
	})
	searchResolvers := make([]searchuc.Resolver, 0, len(resolvers))
	for _, r := range resolvers {
		searchResolvers = append(searchResolvers, r)
	}

	// History: the recorder either applies events directly or publishes them
	// to the stream, where a consumer applies them.
	historySvc := historyuc.New(historyrepo.New(store), cfg.Search.MinQueryLength)
	var historyHandler historyuc.Handler = historySvc
	var producer *kafkaTransport.Producer
	var consumer *kafkaTransport.Consumer
	if cfg.History.Kafka.Enabled {
		kcfg := kafkaTransport.Config{
			Brokers: cfg.History.Kafka.Brokers,
			Topic:   cfg.History.Kafka.Topic,
			GroupID: cfg.History.Kafka.GroupID,
		}
		producer = kafkaTransport.NewProducer(kcfg, logger)
		historyHandler = producer
		if cfg.History.Kafka.Consume {
			consumer = kafkaTransport.NewConsumer(kcfg, historySvc, logger)
		}
	}
	recorder := historyuc.NewRecorder(historyHandler, cfg.History.Workers, cfg.History.QueueSize, logger)

	searchSvc := searchuc.New(searchuc.Deps{
		Resolvers:    searchResolvers,
		Store:        store,
		Managed:      autocompleter,
		Capabilities: caps,
		Recorder:     recorder,
		History:      historySvc,
		Config: searchuc.Config{
			PerTypeLimit:      cfg.Search.PerTypeLimit,
			ResolverTimeout:   cfg.Search.ResolverTimeout(),
			SuggestionLimit:   cfg.Search.SuggestionLimit,
			SuggestionTimeout: cfg.Search.SuggestionTimeout(),
			RecentLimit:       cfg.Search.RecentLimit,
			PopularLimit:      cfg.Search.PopularLimit,
			MinLength:         cfg.Search.MinQueryLength,
		},
		Logger: logger,
	})

	healthSvc := healthuc.New(store, managedPinger)

	server := chiTransport.NewServer(searchSvc, caps, prov, healthSvc, chiTransport.Options{
		Limits: query.Limits{
			MinLength:    cfg.Search.MinQueryLength,
			DefaultLimit: cfg.Search.DefaultPageSize,
			MaxLimit:     cfg.Search.MaxPageSize,
		},
		UserHeader: cfg.Auth.UserHeader,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if consumer == nil {
			return
		}
		logger.Info("Starting history consumer", zap.String("topic", cfg.History.Kafka.Topic))
		if err := consumer.Run(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("History consumer stopped", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Drain queued history writes before closing their sinks.
	recorder.Close()
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warn("Failed to close history producer", zap.Error(err))
		}
	}
	stopConsumer()
	<-consumerDone
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Warn("Failed to close history consumer", zap.Error(err))
		}
	}

	logger.Info("Server stopped gracefully")
}

func newStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewStore(), nil
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Addrs,
			Username:  cfg.Username,
			Password:  cfg.Password,
			KeyPrefix: cfg.KeyPrefix,
			// valkey-search has no TEXT fields.
			DisableTextSearch: cfg.Driver == "valkey",
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newManaged(cfg config.ManagedConfig) (*elastic.Client, error) {
	return elastic.New(elastic.Config{
		Addresses:   cfg.Addresses,
		Username:    cfg.Username,
		Password:    cfg.Password,
		IndexPrefix: cfg.IndexPrefix,
		Transport: &http.Transport{
			ResponseHeaderTimeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		},
	})
}
