// Package enrichment resolves university logos through an ordered source
// chain with a shared rate limit, a result cache and per-key deduplication.
package enrichment

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/unisearch/internal/domain/logo"
	"github.com/kailas-cloud/unisearch/internal/metrics"
)

// Defaults for Config fields left zero.
const (
	DefaultMinInterval = 100 * time.Millisecond
	DefaultConcurrency = 3
	DefaultTimeout     = 3 * time.Second
	// DefaultRetryTTL bounds how long a result reached after a transient
	// source failure is reused.
	DefaultRetryTTL = time.Minute
)

// Config holds the enrichment settings.
type Config struct {
	LogoDevToken string
	LogoDevURL   string
	FaviconURL   string
	MinInterval  time.Duration
	CacheTTL     time.Duration
	RetryTTL     time.Duration
	Concurrency  int
	Timeout      time.Duration
}

// Service resolves logos.
type Service struct {
	sources     []Source
	cache       *Cache
	limiter     *Limiter
	group       singleflight.Group
	concurrency int
	timeout     time.Duration
	retryTTL    time.Duration
	logger      *zap.Logger
}

// New builds the default chain: cached URL, logo.dev, favicon, placeholder.
func New(probe URLProber, cfg Config, logger *zap.Logger) *Service {
	interval := cfg.MinInterval
	if interval <= 0 {
		interval = DefaultMinInterval
	}
	limiter := NewLimiter(interval)
	sources := []Source{
		CachedSource{},
		NewLogoDevSource(cfg.LogoDevURL, cfg.LogoDevToken, probe, limiter, logger),
		NewFaviconSource(cfg.FaviconURL, probe, limiter, logger),
		PlaceholderSource{},
	}
	s := NewWithSources(sources, NewCache(cfg.CacheTTL), cfg.Concurrency, logger)
	s.limiter = limiter
	s.timeout = cfg.Timeout
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if cfg.RetryTTL > 0 {
		s.retryTTL = cfg.RetryTTL
	}
	return s
}

// NewWithSources creates a Service over a custom chain. The chain should end
// with a source that always answers.
func NewWithSources(sources []Source, cache *Cache, concurrency int, logger *zap.Logger) *Service {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if cache == nil {
		cache = NewCache(0)
	}
	return &Service{
		sources:     sources,
		cache:       cache,
		concurrency: concurrency,
		timeout:     DefaultTimeout,
		retryTTL:    DefaultRetryTTL,
		logger:      logger,
	}
}

// Enrich resolves one request. It always returns a result; when every source
// declines, the result is a bare placeholder. Concurrent callers of one key
// share a lookup that runs detached under its own timeout; a caller whose ctx
// ends first gets the entity's stored logo or a placeholder without waiting.
func (s *Service) Enrich(ctx context.Context, req logo.Request) logo.Result {
	key := req.Key()
	if r, ok := s.cache.Get(key); ok {
		return r
	}

	ch := s.group.DoChan(key, func() (any, error) {
		if r, ok := s.cache.Get(key); ok {
			return r, nil
		}
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		r, final := s.resolve(lookupCtx, targetOf(req))
		if final {
			s.cache.Set(key, r)
		} else {
			s.cache.SetFor(key, r, s.retryTTL)
		}
		return r, nil
	})

	select {
	case res := <-ch:
		return res.Val.(logo.Result)
	case <-ctx.Done():
		return localResult(targetOf(req))
	}
}

// EnrichBatch resolves every request, at most Concurrency at a time. Results
// keep the request order.
func (s *Service) EnrichBatch(ctx context.Context, reqs []logo.Request) []logo.Result {
	out := make([]logo.Result, len(reqs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			out[i] = s.Enrich(ctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ResetCache drops cached results and the rate-limit watermark.
func (s *Service) ResetCache() {
	s.cache.Reset()
	if s.limiter != nil {
		s.limiter.Reset()
	}
}

// resolve walks the chain. final is false when a source failed transiently
// or the lookup ran out of time, so the answer may change on retry.
func (s *Service) resolve(ctx context.Context, t Target) (r logo.Result, final bool) {
	final = true
	for _, src := range s.sources {
		var ok bool
		if c, checked := src.(checkedSource); checked {
			var err error
			r, ok, err = c.AttemptChecked(ctx, t)
			if err != nil {
				final = false
			}
		} else {
			r, ok = src.Attempt(ctx, t)
		}
		if ok {
			metrics.EnrichmentSourceTotal.WithLabelValues(string(r.Source)).Inc()
			return r, final && ctx.Err() == nil
		}
	}
	s.logger.Warn("No logo source answered", zap.String("name", t.Name), zap.String("domain", t.Domain))
	r, _ = PlaceholderSource{}.Attempt(ctx, t)
	return r, final && ctx.Err() == nil
}

// localResult answers from the request alone: the stored logo, else a placeholder.
func localResult(t Target) logo.Result {
	if r, ok := (CachedSource{}).Attempt(context.Background(), t); ok {
		return r
	}
	r, _ := PlaceholderSource{}.Attempt(context.Background(), t)
	return r
}
