// Package resolver runs one entity type's search through the strategy chain:
// managed full-text, then the weighted text index, then substring matching.
package resolver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/logo"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
	"github.com/kailas-cloud/unisearch/internal/domain/search/querybuild"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	"github.com/kailas-cloud/unisearch/internal/logger"
	"github.com/kailas-cloud/unisearch/internal/metrics"
)

// LogoField is the summary key holding the resolved logo of a university.
const LogoField = "logo"

// Deps are the collaborators shared by every resolver.
type Deps struct {
	Store        Finder
	Managed      ManagedSearcher // nil when the managed engine is disabled
	Capabilities CapabilityChecker
	Enricher     LogoEnricher // nil disables logo enrichment
	MaxLimit     int
	Logger       *zap.Logger
}

// Resolver searches one entity type.
type Resolver struct {
	desc       *entity.Descriptor
	caps       CapabilityChecker
	strategies []Strategy
	enricher   LogoEnricher
	maxLimit   int
	logger     *zap.Logger
}

// New creates a resolver for d with the default strategy chain.
func New(d *entity.Descriptor, deps Deps) *Resolver {
	return NewWithStrategies(d, deps, []Strategy{
		&managedStrategy{searcher: deps.Managed, logger: deps.Logger},
		&weightedStrategy{store: deps.Store},
		&substringStrategy{store: deps.Store, logger: deps.Logger},
	})
}

// NewWithStrategies creates a resolver with a custom strategy chain.
func NewWithStrategies(d *entity.Descriptor, deps Deps, strategies []Strategy) *Resolver {
	maxLimit := deps.MaxLimit
	if maxLimit <= 0 {
		maxLimit = query.DefaultMaxLimit
	}
	return &Resolver{
		desc:       d,
		caps:       deps.Capabilities,
		strategies: strategies,
		enricher:   deps.Enricher,
		maxLimit:   maxLimit,
		logger:     deps.Logger,
	}
}

// NewAll creates one resolver per searchable entity type.
func NewAll(deps Deps) map[entity.Type]*Resolver {
	out := make(map[entity.Type]*Resolver)
	for _, d := range entity.Searchable() {
		out[d.Type] = New(d, deps)
	}
	return out
}

// Type returns the entity type the resolver serves.
func (r *Resolver) Type() entity.Type { return r.desc.Type }

// Search runs q through the first strategy able to serve it.
func (r *Resolver) Search(ctx context.Context, q query.Query) (result.Page, error) {
	plan := r.plan(ctx, q)

	for _, s := range r.strategies {
		start := time.Now()
		out, ok, err := s.Attempt(ctx, plan)
		if err != nil {
			return result.Page{}, fmt.Errorf("%s %s search: %w", r.desc.Type, s.Mode(), err)
		}
		if !ok {
			continue
		}
		metrics.ResolverDuration.WithLabelValues(string(r.desc.Type), string(s.Mode())).
			Observe(time.Since(start).Seconds())

		page := result.Page{
			Items: r.items(out),
			Total: out.Total,
			Mode:  s.Mode(),
		}
		if out.Info.CursorMode {
			page.NextCursor = querybuild.NextCursor(out.Documents, r.desc.CursorField, out.Info.Limit)
		}
		if r.desc.Type == entity.Universities {
			r.enrich(ctx, page.Items)
		}
		return page, nil
	}
	// the substring tier always answers; reaching here means a custom chain gave up
	return result.Page{Items: []result.Item{}}, nil
}

func (r *Resolver) plan(ctx context.Context, q query.Query) Plan {
	expr, ignored := r.desc.BuildFilter(q.Filters())
	if len(ignored) > 0 {
		logger.FromContextOr(ctx, r.logger).Debug("Ignoring malformed filters",
			zap.String("type", string(r.desc.Type)),
			zap.Strings("filters", ignored),
		)
	}

	sort := querybuild.Spec{}
	if q.SortBy() != "" {
		sort = querybuild.BuildSort(q.SortBy()).ForEntity(r.desc)
	}

	return Plan{
		Descriptor: r.desc,
		Capability: r.caps.Check(ctx, r.desc),
		Text:       q.Text(),
		Filter:     expr,
		Sort:       sort,
		Page: querybuild.Page{
			Page:        q.Page(),
			Limit:       q.Limit(),
			Cursor:      q.Cursor(),
			CursorField: r.desc.CursorField,
		},
		MaxLimit: r.maxLimit,
	}
}

func (r *Resolver) items(out Outcome) []result.Item {
	items := make([]result.Item, len(out.Documents))
	for i := range out.Documents {
		doc := &out.Documents[i]
		item := result.Item{
			Type:    r.desc.Type,
			ID:      doc.ID,
			Summary: db.Project(doc.Fields, r.desc.Summary),
		}
		if out.Scored {
			score := doc.Score
			item.Score = &score
		}
		items[i] = item
	}
	return items
}

func (r *Resolver) enrich(ctx context.Context, items []result.Item) {
	if r.enricher == nil || len(items) == 0 {
		return
	}
	reqs := make([]logo.Request, len(items))
	for i := range items {
		reqs[i] = LogoRequest(items[i].Summary)
	}
	logos := r.enricher.EnrichBatch(ctx, reqs)
	for i := range items {
		if i < len(logos) {
			items[i].Summary[LogoField] = logos[i]
		}
	}
}

// LogoRequest builds the logo lookup of a university summary.
func LogoRequest(summary map[string]any) logo.Request {
	str := func(k string) string {
		s, _ := summary[k].(string)
		return s
	}
	return logo.ByEntity{
		Name:          str("name"),
		Website:       str("website"),
		EmailDomains:  db.StringsOf(summary["emailDomains"]),
		CachedLogoURL: str("logoUrl"),
	}
}
