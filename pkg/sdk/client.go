package unisearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/db/elastic"
	"github.com/kailas-cloud/unisearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/unisearch/internal/db/redis"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
	"github.com/kailas-cloud/unisearch/internal/domain/search/querybuild"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	historyrepo "github.com/kailas-cloud/unisearch/internal/repository/history"
	"github.com/kailas-cloud/unisearch/internal/transport/httpprobe"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
	"github.com/kailas-cloud/unisearch/internal/usecase/enrichment"
	healthuc "github.com/kailas-cloud/unisearch/internal/usecase/health"
	historyuc "github.com/kailas-cloud/unisearch/internal/usecase/history"
	"github.com/kailas-cloud/unisearch/internal/usecase/provision"
	"github.com/kailas-cloud/unisearch/internal/usecase/resolver"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, replaced by fakes in tests.
type searchUseCase interface {
	GlobalSearch(ctx context.Context, q query.Query) (result.Global, error)
	Suggestions(ctx context.Context, partial string) ([]result.Suggestion, error)
	Recent(ctx context.Context, userID string) ([]domhistory.Entry, error)
	Popular(ctx context.Context) ([]domhistory.Popular, error)
	ClearHistory(ctx context.Context, userID string) error
}

type provisionUseCase interface {
	EnsureAll(ctx context.Context, descriptors []*entity.Descriptor) []provision.Result
	EnsureManaged(ctx context.Context, d *entity.Descriptor) provision.Result
}

type capabilityChecker interface {
	Check(ctx context.Context, d *entity.Descriptor) capability.Report
}

type documentStore interface {
	Put(ctx context.Context, collection, id string, fields map[string]any) error
	Ping(ctx context.Context) error
}

type managedWriter interface {
	Put(ctx context.Context, index, id string, doc map[string]any) error
}

// Client is the unisearch SDK entry point.
type Client struct {
	store     documentStore
	closer    func()
	managed   managedWriter // nil when managed search is disabled
	searchSvc searchUseCase
	provSvc   provisionUseCase
	caps      capabilityChecker
	counter   db.Counter
	healthSvc healthUseCase
	recorder  *historyuc.Recorder
	limits    query.Limits
	obs       *observer
}

// New creates a Client and connects to the store, and to Elasticsearch when
// configured. The provided context is used for the readiness checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver != "memory" && len(cfg.addrs) == 0 {
		return nil, errors.New("unisearch: store required (use WithRedis, WithValkey or WithMemory)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("unisearch: store not ready: %w", err)
	}

	var es *elastic.Client
	if len(cfg.esAddrs) > 0 {
		es, err = elastic.New(elastic.Config{
			Addresses:   cfg.esAddrs,
			Username:    cfg.esUsername,
			Password:    cfg.esPassword,
			IndexPrefix: cfg.esPrefix,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("unisearch: create elasticsearch client: %w", err)
		}
		if err := es.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("unisearch: elasticsearch not ready: %w", err)
		}
	}

	return wireClient(store, es, cfg, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "memory":
		return memory.NewStore(), nil
	case "valkey", "redis":
		prefix := cfg.keyPrefix
		if prefix == "" {
			prefix = "unisearch:"
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:             cfg.addrs,
			Password:          cfg.password,
			KeyPrefix:         prefix,
			DisableTextSearch: cfg.driver == "valkey",
		})
		if err != nil {
			return nil, fmt.Errorf("unisearch: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unisearch: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, es *elastic.Client, cfg *clientConfig, obs *observer) *Client {
	// Internal services log through zap; SDK callers observe through slog.
	logger := zap.NewNop()

	// Pass nil interfaces (not typed nil pointers) when managed search is off.
	var (
		managedSearcher resolver.ManagedSearcher
		managedProber   capability.ManagedProber
		managedIndexer  provision.ManagedIndexer
		autocompleter   searchuc.Autocompleter
		managedPinger   healthuc.Pinger
		mirror          managedWriter
	)
	if es != nil {
		managedSearcher, managedProber, managedIndexer, autocompleter, managedPinger, mirror = es, es, es, es, es, es
	}

	caps := capability.New(store, managedProber, capability.DefaultTTL)
	prov := provision.New(store, managedIndexer, caps, logger)

	enricher := enrichment.New(
		httpprobe.New(&httpprobe.Config{Logger: logger}),
		enrichment.Config{LogoDevToken: cfg.logoDevToken},
		logger,
	)

	limits := query.Limits{MaxLimit: cfg.maxLimit}
	resolvers := resolver.NewAll(resolver.Deps{
		Store:        store,
		Managed:      managedSearcher,
		Capabilities: caps,
		Enricher:     enricher,
		MaxLimit:     cfg.maxLimit,
		Logger:       logger,
	})
	list := make([]searchuc.Resolver, 0, len(resolvers))
	for _, r := range resolvers {
		list = append(list, r)
	}

	historySvc := historyuc.New(historyrepo.New(store), query.DefaultMinLength)
	recorder := historyuc.NewRecorder(historySvc, historyuc.DefaultWorkers, historyuc.DefaultQueueSize, logger)

	searchSvc := searchuc.New(searchuc.Deps{
		Resolvers:    list,
		Store:        store,
		Managed:      autocompleter,
		Capabilities: caps,
		Recorder:     recorder,
		History:      historySvc,
		Config:       searchuc.Config{PerTypeLimit: cfg.perTypeLimit},
		Logger:       logger,
	})

	return &Client{
		store:     store,
		closer:    store.Close,
		managed:   mirror,
		searchSvc: searchSvc,
		provSvc:   prov,
		caps:      caps,
		counter:   querybuild.NewStaleCounter(store, querybuild.DefaultStaleness),
		healthSvc: healthuc.New(store, managedPinger),
		recorder:  recorder,
		limits:    limits,
		obs:       obs,
	}
}

// Close drains pending history writes and releases the store connection.
func (c *Client) Close() {
	if c.recorder != nil {
		c.recorder.Close()
	}
	if c.closer != nil {
		c.closer()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search runs a global search, or a single-type search when p.Type is set.
// Per-type failures are reported in the slot; only an unreachable store fails the call.
func (c *Client) Search(ctx context.Context, p SearchParams) (_ SearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	q, err := query.New(query.Params{
		Text:    p.Query,
		Type:    p.Type,
		Filters: p.Filters,
		Page:    p.Page,
		Limit:   p.Limit,
		Cursor:  p.Cursor,
		SortBy:  p.SortBy,
		UserID:  p.UserID,
	}, c.limits)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	g, err := c.searchSvc.GlobalSearch(ctx, q)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search: %w", err)
	}
	return toSearchResponse(g), nil
}

// Suggestions returns typeahead entries for a partial query.
func (c *Client) Suggestions(ctx context.Context, partial string) (_ []Suggestion, err error) {
	start := time.Now()
	defer func() { c.obs.observe("suggestions", start, err) }()

	list, err := c.searchSvc.Suggestions(ctx, partial)
	if err != nil {
		return nil, fmt.Errorf("suggestions: %w", err)
	}
	return toSuggestions(list), nil
}

// Recent returns the user's most recent queries.
func (c *Client) Recent(ctx context.Context, userID string) (_ []RecentQuery, err error) {
	start := time.Now()
	defer func() { c.obs.observe("history.recent", start, err) }()

	entries, err := c.searchSvc.Recent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("recent: %w", err)
	}
	return toRecent(entries), nil
}

// Popular returns the most searched queries across users.
func (c *Client) Popular(ctx context.Context) (_ []PopularQuery, err error) {
	start := time.Now()
	defer func() { c.obs.observe("history.popular", start, err) }()

	list, err := c.searchSvc.Popular(ctx)
	if err != nil {
		return nil, fmt.Errorf("popular: %w", err)
	}
	return toPopular(list), nil
}

// ClearHistory deletes the user's history. Clearing an empty history succeeds.
func (c *Client) ClearHistory(ctx context.Context, userID string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("history.clear", start, err) }()

	if err = c.searchSvc.ClearHistory(ctx, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Provision creates missing store indexes, and the Elasticsearch indexes when
// managed is set. Conflicts come back as warnings; it is safe to run repeatedly.
func (c *Client) Provision(ctx context.Context, managed bool) (_ []ProvisionResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("provision", start, err) }()

	results := c.provSvc.EnsureAll(ctx, entity.All())
	if managed {
		for _, d := range entity.Searchable() {
			results = append(results, c.provSvc.EnsureManaged(ctx, d))
		}
	}
	out := make([]ProvisionResult, len(results))
	for i, r := range results {
		out[i] = toProvisionResult(r)
	}
	return out, nil
}

// Check reports the search capability and approximate size of every searchable collection.
func (c *Client) Check(ctx context.Context) (_ []CollectionStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("check", start, err) }()

	descriptors := entity.Searchable()
	out := make([]CollectionStatus, 0, len(descriptors))
	for _, d := range descriptors {
		n, err := querybuild.CountDocuments(ctx, c.counter, d.Collection, filter.Expression{})
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", d.Collection, err)
		}
		out = append(out, toCollectionStatus(c.caps.Check(ctx, d), n))
	}
	return out, nil
}

// Put stores a document in an entity collection and mirrors it to the
// managed search index when one is configured.
func (c *Client) Put(ctx context.Context, collection, id string, fields map[string]any) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("put", start, err) }()

	t, ok := entity.ParseType(collection)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	d, _ := entity.Lookup(t)

	if err = c.store.Put(ctx, d.Collection, id, fields); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	if c.managed == nil || d.Managed.Search == "" {
		return nil
	}
	if err = c.managed.Put(ctx, d.Managed.Search, id, fields); err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	if d.Managed.Autocomplete != "" {
		if v, ok := fields[d.DisplayField]; ok {
			if err = c.managed.Put(ctx, d.Managed.Autocomplete, id, map[string]any{d.DisplayField: v}); err != nil {
				return fmt.Errorf("mirror autocomplete: %w", err)
			}
		}
	}
	return nil
}
