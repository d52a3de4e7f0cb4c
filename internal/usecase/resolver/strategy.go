package resolver

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/db/elastic"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/unisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/unisearch/internal/domain/search/querybuild"
	"github.com/kailas-cloud/unisearch/internal/metrics"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
)

// Plan is one resolved search, shared by every strategy of the chain.
type Plan struct {
	Descriptor *entity.Descriptor
	Capability capability.Report
	Text       string
	Filter     filter.Expression
	Sort       querybuild.Spec
	Page       querybuild.Page
	MaxLimit   int
}

// Strategy is one search tier. Attempt returns ok=false when the tier is not
// available for the plan; the resolver then tries the next one.
type Strategy interface {
	Mode() mode.Mode
	Attempt(ctx context.Context, p Plan) (Outcome, bool, error)
}

// Outcome is the raw answer of a strategy, before projection into result items.
type Outcome struct {
	Documents []db.Document
	Total     int
	Scored    bool
	Info      querybuild.PageInfo
}

// --- managed ---

type managedStrategy struct {
	searcher ManagedSearcher
	logger   *zap.Logger
}

func (s *managedStrategy) Mode() mode.Mode { return mode.Managed }

func (s *managedStrategy) Attempt(ctx context.Context, p Plan) (Outcome, bool, error) {
	d := p.Descriptor
	if s.searcher == nil || d.Managed.Search == "" || !p.Capability.ManagedAvailable(d.Managed.Search) {
		return Outcome{}, false, nil
	}

	// paginate a scratch query, then render its filter and sort for the engine
	q := db.FindQuery{Collection: d.Collection, Filter: p.Filter, Sort: p.Sort}
	info := querybuild.Paginate(&q, p.Page, p.MaxLimit)
	filters, mustNot := querybuild.ManagedFilters(q.Filter)

	res, err := s.searcher.Search(ctx, &elastic.SearchRequest{
		Index:   d.Managed.Search,
		Query:   p.Text,
		Fields:  d.ManagedFields(),
		Filter:  filters,
		MustNot: mustNot,
		Sort:    querybuild.ManagedSort(querybuild.Spec(q.Sort), analyzedFields(d)...),
		Source:  d.Summary,
		From:    q.Skip,
		Size:    q.Limit,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, false, ctx.Err()
		}
		s.logger.Warn("Managed search failed, falling back",
			zap.String("collection", d.Collection),
			zap.String("index", d.Managed.Search),
			zap.Error(err),
		)
		return Outcome{}, false, nil
	}

	docs := make([]db.Document, len(res.Hits))
	for i, h := range res.Hits {
		docs[i] = db.Document{ID: h.ID, Score: h.Score, Fields: h.Source}
	}
	return Outcome{Documents: docs, Total: res.Total, Scored: true, Info: info}, true, nil
}

// analyzedFields lists the text fields mapped as analyzed text, which sort on
// their keyword subfield.
func analyzedFields(d *entity.Descriptor) []string {
	out := make([]string, 0, len(d.TextFields))
	for _, f := range d.TextFields {
		if !d.IsTag(f.Field) {
			out = append(out, f.Field)
		}
	}
	return out
}

// --- weighted text ---

type weightedStrategy struct {
	store Finder
}

func (s *weightedStrategy) Mode() mode.Mode { return mode.Weighted }

func (s *weightedStrategy) Attempt(ctx context.Context, p Plan) (Outcome, bool, error) {
	d := p.Descriptor
	if !d.HasText() || !p.Capability.Text.Available {
		return Outcome{}, false, nil
	}

	q := &db.FindQuery{
		Collection: d.Collection,
		Index:      d.TextIndexName(),
		Filter:     p.Filter,
		Text:       &db.TextMatch{Query: p.Text},
		Projection: d.Summary,
		Sort:       p.Sort,
	}
	info := querybuild.Paginate(q, p.Page, p.MaxLimit)

	res, err := s.store.Find(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) || errors.Is(err, db.ErrCapabilityUnavailable) {
			return Outcome{}, false, nil
		}
		return Outcome{}, false, err
	}
	return Outcome{Documents: res.Documents, Total: res.Total, Scored: true, Info: info}, true, nil
}

// --- substring ---

type substringStrategy struct {
	store  Finder
	logger *zap.Logger
}

func (s *substringStrategy) Mode() mode.Mode { return mode.Substring }

func (s *substringStrategy) Attempt(ctx context.Context, p Plan) (Outcome, bool, error) {
	d := p.Descriptor
	sort := p.Sort
	if sort.IsRelevance() {
		sort = querybuild.Newest()
	}

	q := &db.FindQuery{
		Collection: d.Collection,
		Filter:     p.Filter,
		Contains:   &db.Substring{Field: d.DisplayField, Value: p.Text},
		Projection: d.Summary,
		Sort:       sort,
	}
	info := querybuild.Paginate(q, p.Page, p.MaxLimit)

	s.logger.Warn("Search degraded to substring match, run index provisioning",
		zap.String("collection", d.Collection),
		zap.String("capability", string(p.Capability.Capability)),
	)
	metrics.SearchDegradedTotal.WithLabelValues(d.Collection).Inc()

	res, err := s.store.Find(ctx, q)
	if err != nil {
		return Outcome{}, false, err
	}
	return Outcome{Documents: res.Documents, Total: res.Total, Info: info}, true, nil
}
