// Package search aggregates the per-entity resolvers into one global search
// and serves suggestions, recent and popular queries.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	"github.com/kailas-cloud/unisearch/internal/logger"
	"github.com/kailas-cloud/unisearch/internal/metrics"
)

// Defaults for Config fields left zero.
const (
	DefaultPerTypeLimit      = 5
	DefaultResolverTimeout   = 3 * time.Second
	DefaultSuggestionLimit   = 10
	DefaultSuggestionTimeout = 500 * time.Millisecond
	DefaultRecentLimit       = 10
	DefaultPopularLimit      = 10
)

// Config tunes the aggregator.
type Config struct {
	PerTypeLimit      int
	ResolverTimeout   time.Duration
	SuggestionLimit   int
	SuggestionTimeout time.Duration
	RecentLimit       int
	PopularLimit      int
	MinLength         int
}

func (c Config) withDefaults() Config {
	if c.PerTypeLimit <= 0 {
		c.PerTypeLimit = DefaultPerTypeLimit
	}
	if c.ResolverTimeout <= 0 {
		c.ResolverTimeout = DefaultResolverTimeout
	}
	if c.SuggestionLimit <= 0 {
		c.SuggestionLimit = DefaultSuggestionLimit
	}
	if c.SuggestionTimeout <= 0 {
		c.SuggestionTimeout = DefaultSuggestionTimeout
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = DefaultRecentLimit
	}
	if c.PopularLimit <= 0 {
		c.PopularLimit = DefaultPopularLimit
	}
	if c.MinLength <= 0 {
		c.MinLength = query.DefaultMinLength
	}
	return c
}

// Deps are the aggregator's collaborators. Managed, Recorder and History may be nil.
type Deps struct {
	Resolvers    []Resolver
	Store        Store
	Managed      Autocompleter
	Capabilities CapabilityChecker
	Recorder     HistoryRecorder
	History      History
	Config       Config
	Logger       *zap.Logger
}

// Service is the global search aggregator.
type Service struct {
	resolvers map[entity.Type]Resolver
	store     Store
	managed   Autocompleter
	caps      CapabilityChecker
	recorder  HistoryRecorder
	history   History
	cfg       Config
	logger    *zap.Logger
}

// New creates the aggregator.
func New(deps Deps) *Service {
	resolvers := make(map[entity.Type]Resolver, len(deps.Resolvers))
	for _, r := range deps.Resolvers {
		resolvers[r.Type()] = r
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		resolvers: resolvers,
		store:     deps.Store,
		managed:   deps.Managed,
		caps:      deps.Capabilities,
		recorder:  deps.Recorder,
		history:   deps.History,
		cfg:       deps.Config.withDefaults(),
		logger:    log,
	}
}

// GlobalSearch runs q against one entity type when restricted, otherwise
// against every type concurrently. Failed types come back as empty slots
// marked unavailable; only an unreachable store fails the whole call.
func (s *Service) GlobalSearch(ctx context.Context, q query.Query) (result.Global, error) {
	if q.Trivial() {
		return result.Neutral(q.Text(), q.Page(), q.Limit()), nil
	}

	if uid := q.UserID(); uid != "" && s.recorder != nil {
		s.recorder.Enqueue(uid, q.Text())
	}

	if t, ok := q.Type(); ok {
		return s.searchOne(ctx, t, q)
	}
	return s.searchAll(ctx, q)
}

func (s *Service) searchOne(ctx context.Context, t entity.Type, q query.Query) (result.Global, error) {
	out := result.Global{Query: q.Text(), Page: q.Page(), Limit: q.Limit()}
	slot, page, failed := s.runSlot(ctx, t, q)
	if failed {
		if err := s.checkStore(ctx); err != nil {
			return result.Global{}, err
		}
	}
	out.Slots = []result.Slot{slot}
	out.NextCursor = page.NextCursor
	return out, nil
}

func (s *Service) searchAll(ctx context.Context, q query.Query) (result.Global, error) {
	order := entity.Ordered()
	slots := make([]result.Slot, len(order))
	failed := make([]bool, len(order))
	sub := q.WithLimit(s.cfg.PerTypeLimit)

	var wg sync.WaitGroup
	for i, t := range order {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slots[i], _, failed[i] = s.runSlot(ctx, t, sub)
		}()
	}
	wg.Wait()

	allFailed := true
	for _, f := range failed {
		allFailed = allFailed && f
	}
	if allFailed {
		if err := s.checkStore(ctx); err != nil {
			return result.Global{}, err
		}
	}

	return result.Global{
		Query: q.Text(),
		Slots: slots,
		Page:  sub.Page(),
		Limit: sub.Limit(),
	}, nil
}

// runSlot searches one type under its own timeout. A failure yields an empty
// slot marked unavailable.
func (s *Service) runSlot(ctx context.Context, t entity.Type, q query.Query) (result.Slot, result.Page, bool) {
	slot := result.Slot{Type: t, Items: []result.Item{}}

	r, ok := s.resolvers[t]
	if !ok {
		slot.Error = result.SlotErrorUnavailable
		return slot, result.Page{}, true
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.ResolverTimeout)
	defer cancel()

	page, err := r.Search(rctx, q.WithType(t))
	if err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Resolver failed",
			zap.String("type", string(t)),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			zap.Error(err),
		)
		metrics.ResolverFailuresTotal.WithLabelValues(string(t)).Inc()
		slot.Error = result.SlotErrorUnavailable
		return slot, result.Page{}, true
	}

	if page.Items != nil {
		slot.Items = page.Items
	}
	slot.Total = page.Total
	return slot, page, false
}

func (s *Service) checkStore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Ping(ctx); err != nil {
		logger.FromContextOr(ctx, s.logger).Error("Store unreachable", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Recent returns the user's most recent queries.
func (s *Service) Recent(ctx context.Context, userID string) ([]domhistory.Entry, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if s.history == nil {
		return []domhistory.Entry{}, nil
	}
	return s.history.Recent(ctx, userID, s.cfg.RecentLimit)
}

// Popular returns the most used queries over all users.
func (s *Service) Popular(ctx context.Context) ([]domhistory.Popular, error) {
	if s.history == nil {
		return []domhistory.Popular{}, nil
	}
	return s.history.Popular(ctx, s.cfg.PopularLimit)
}

// ClearHistory deletes the user's history. Clearing an empty history succeeds.
func (s *Service) ClearHistory(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserRequired
	}
	if s.history == nil {
		return nil
	}
	return s.history.Clear(ctx, userID)
}
