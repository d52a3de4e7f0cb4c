package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/db/elastic"
	"github.com/kailas-cloud/unisearch/internal/db/memory"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/logo"
	"github.com/kailas-cloud/unisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
	"github.com/kailas-cloud/unisearch/internal/metrics"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
)

// --- Mocks ---

type mockCaps struct {
	report capability.Report
}

func (m *mockCaps) Check(_ context.Context, d *entity.Descriptor) capability.Report {
	r := m.report
	r.Collection = d.Collection
	return r
}

type mockManaged struct {
	req *elastic.SearchRequest
	res *elastic.SearchResult
	err error
}

func (m *mockManaged) Search(_ context.Context, req *elastic.SearchRequest) (*elastic.SearchResult, error) {
	m.req = req
	return m.res, m.err
}

type failingFinder struct {
	err error
}

func (f *failingFinder) Find(context.Context, *db.FindQuery) (*db.FindResult, error) {
	return nil, f.err
}

type mockEnricher struct {
	reqs []logo.Request
}

func (m *mockEnricher) EnrichBatch(_ context.Context, reqs []logo.Request) []logo.Result {
	m.reqs = reqs
	out := make([]logo.Result, len(reqs))
	for i := range reqs {
		out[i] = logo.Result{Source: logo.SourcePlaceholder, Initials: "IS"}
	}
	return out
}

// --- Helpers ---

func lookup(t *testing.T, typ entity.Type) *entity.Descriptor {
	t.Helper()
	d, ok := entity.Lookup(typ)
	if !ok {
		t.Fatalf("descriptor %s missing", typ)
	}
	return d
}

func seed(t *testing.T, s *memory.Store, coll string, docs map[string]map[string]any) {
	t.Helper()
	for id, f := range docs {
		if err := s.Put(context.Background(), coll, id, f); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}
}

func mustQuery(t *testing.T, p query.Params) query.Query {
	t.Helper()
	q, err := query.New(p, query.Limits{})
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}

func newResolver(store Finder, caps CapabilityChecker, d *entity.Descriptor) *Resolver {
	return New(d, Deps{Store: store, Capabilities: caps, Logger: zap.NewNop()})
}

func withTextIndex(t *testing.T, s *memory.Store, d *entity.Descriptor) {
	t.Helper()
	if err := s.CreateIndex(context.Background(), d.Collection, d.TextIndex()); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
}

// --- Tests ---

func TestSearch_SubstringFallbackWithoutIndexes(t *testing.T) {
	store := memory.NewStore()
	d := lookup(t, entity.Posts)
	seed(t, store, d.Collection, map[string]map[string]any{
		"p1": {"title": "Foo fighters club", "createdAt": 100},
		"p2": {"title": "Unrelated", "createdAt": 200},
		"p3": {"title": "All about FOO", "createdAt": 300},
	})
	before := testutil.ToFloat64(metrics.SearchDegradedTotal.WithLabelValues(d.Collection))

	r := newResolver(store, capability.New(store, nil, time.Minute), d)
	page, err := r.Search(context.Background(), mustQuery(t, query.Params{Text: "foo"}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Mode != mode.Substring {
		t.Fatalf("mode = %q", page.Mode)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("page = %+v", page)
	}
	// relevance is not available here, so newest comes first
	if page.Items[0].ID != "p3" || page.Items[1].ID != "p1" {
		t.Errorf("order = %s, %s", page.Items[0].ID, page.Items[1].ID)
	}
	if page.Items[0].Score != nil {
		t.Error("substring hits carry no score")
	}
	if got := testutil.ToFloat64(metrics.SearchDegradedTotal.WithLabelValues(d.Collection)); got != before+1 {
		t.Errorf("degraded counter = %v, want %v", got, before+1)
	}
}

func TestSearch_EmptyCollection(t *testing.T) {
	store := memory.NewStore()
	r := newResolver(store, capability.New(store, nil, time.Minute), lookup(t, entity.Reviews))
	page, err := r.Search(context.Background(), mustQuery(t, query.Params{Text: "foo"}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 0 || len(page.Items) != 0 {
		t.Fatalf("page = %+v", page)
	}
}

func TestSearch_WeightedOrdering(t *testing.T) {
	store := memory.NewStore()
	d := lookup(t, entity.Notes)
	withTextIndex(t, store, d)
	seed(t, store, d.Collection, map[string]map[string]any{
		"desc":  {"title": "Lecture 4", "description": "thermodynamics recap", "createdAt": 100},
		"title": {"title": "Thermodynamics", "description": "lecture", "createdAt": 100},
		"none":  {"title": "Algebra", "createdAt": 100},
	})

	r := newResolver(store, capability.New(store, nil, time.Minute), d)
	page, err := r.Search(context.Background(), mustQuery(t, query.Params{Text: "thermodynamics"}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Mode != mode.Weighted {
		t.Fatalf("mode = %q", page.Mode)
	}
	if len(page.Items) != 2 || page.Items[0].ID != "title" {
		t.Fatalf("items = %+v", page.Items)
	}
	if page.Items[0].Score == nil || *page.Items[0].Score < *page.Items[1].Score {
		t.Error("title match must score at or above description match")
	}
	if _, ok := page.Items[0].Summary["description"]; ok {
		t.Error("summary must not include description")
	}
}

func TestSearch_UsersAlwaysExcludeInactive(t *testing.T) {
	store := memory.NewStore()
	d := lookup(t, entity.Users)
	seed(t, store, d.Collection, map[string]map[string]any{
		"u1": {"username": "ivy_ann", "status": "active", "createdAt": 1},
		"u2": {"username": "ivy_bob", "status": "deleted", "createdAt": 2},
		"u3": {"username": "ivy_cat", "status": "deactivated", "createdAt": 3},
		"u4": {"username": "ivy_dan", "createdAt": 4},
	})

	r := newResolver(store, capability.New(store, nil, time.Minute), d)
	page, err := r.Search(context.Background(), mustQuery(t, query.Params{Text: "ivy"}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("total = %d, want 2", page.Total)
	}
	for _, it := range page.Items {
		if it.ID == "u2" || it.ID == "u3" {
			t.Errorf("inactive user %s returned", it.ID)
		}
	}
}

func TestSearch_FiltersAndMalformedValues(t *testing.T) {
	store := memory.NewStore()
	d := lookup(t, entity.Reviews)
	withTextIndex(t, store, d)
	seed(t, store, d.Collection, map[string]map[string]any{
		"r1": {"title": "great dorms", "rating": 5, "universityId": "u1", "createdAt": 1},
		"r2": {"title": "bad dorms", "rating": 2, "universityId": "u1", "createdAt": 2},
		"r3": {"title": "ok dorms", "rating": 4, "universityId": "u2", "createdAt": 3},
	})
	r := newResolver(store, capability.New(store, nil, time.Minute), d)

	page, err := r.Search(context.Background(), mustQuery(t, query.Params{
		Text:    "dorms",
		Filters: map[string]string{"minRating": "4", "universityId": "u1"},
	}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != "r1" {
		t.Fatalf("filtered page = %+v", page)
	}

	page, err = r.Search(context.Background(), mustQuery(t, query.Params{
		Text:    "dorms",
		Filters: map[string]string{"minRating": "four"},
	}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("malformed filter should be ignored, total = %d", page.Total)
	}
}

func TestSearch_TopRatedReviews(t *testing.T) {
	store := memory.NewStore()
	d := lookup(t, entity.Reviews)
	withTextIndex(t, store, d)
	seed(t, store, d.Collection, map[string]map[string]any{
		"a": {"title": "campus food", "rating": 4, "helpfulCount": 10, "createdAt": 1},
		"b": {"title": "campus life", "rating": 5, "helpfulCount": 1, "createdAt": 2},
		"c": {"title": "campus gym", "rating": 4, "helpfulCount": 30, "createdAt": 3},
	})
	r := newResolver(store, capability.New(store, nil, time.Minute), d)

	page, err := r.Search(context.Background(), mustQuery(t, query.Params{Text: "campus", SortBy: "topRated"}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := []string{page.Items[0].ID, page.Items[1].ID, page.Items[2].ID}
	if got[0] != "b" || got[1] != "c" || got[2] != "a" {
		t.Errorf("order = %v, want [b c a]", got)
	}
}

func TestSearch_Managed(t *testing.T) {
	m := &mockManaged{res: &elastic.SearchResult{Total: 7, Hits: []elastic.Hit{
		{ID: "u1", Score: 9.5, Source: map[string]any{"username": "ivy", "bio": "hidden"}},
	}}}
	caps := &mockCaps{report: capability.Report{
		Capability: capability.ManagedFullText,
		Managed:    []capability.IndexStatus{{Name: "users_search", Available: true}},
	}}
	d := lookup(t, entity.Users)
	r := New(d, Deps{Store: &failingFinder{err: errors.New("must not be called")}, Managed: m, Capabilities: caps, Logger: zap.NewNop()})

	page, err := r.Search(context.Background(), mustQuery(t, query.Params{
		Text: "ivy", Page: 2, Limit: 5, Filters: map[string]string{"universityId": "u9"},
	}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Mode != mode.Managed || page.Total != 7 || *page.Items[0].Score != 9.5 {
		t.Fatalf("page = %+v", page)
	}
	if _, ok := page.Items[0].Summary["bio"]; ok {
		t.Error("summary must be projected")
	}

	req := m.req
	if req.Index != "users_search" || req.From != 5 || req.Size != 5 {
		t.Errorf("request window = %s from=%d size=%d", req.Index, req.From, req.Size)
	}
	if req.Fields[0] != "username^10" {
		t.Errorf("fields = %v", req.Fields)
	}
	if len(req.Filter) != 1 || len(req.MustNot) != 1 {
		t.Errorf("filter = %v, mustNot = %v", req.Filter, req.MustNot)
	}
	if len(req.Sort) != 0 {
		t.Errorf("relevance search must not sort: %v", req.Sort)
	}
}

func TestSearch_ManagedFailureFallsBack(t *testing.T) {
	store := memory.NewStore()
	d := lookup(t, entity.Posts)
	withTextIndex(t, store, d)
	seed(t, store, d.Collection, map[string]map[string]any{
		"p1": {"title": "ivy tips", "createdAt": 1},
	})
	caps := &mockCaps{report: capability.Report{
		Capability: capability.ManagedFullText,
		Managed:    []capability.IndexStatus{{Name: "posts_search", Available: true}},
		Text:       capability.TextStatus{Available: true, Index: "posts_text"},
	}}
	m := &mockManaged{err: elastic.ErrIndexUnavailable}
	r := New(d, Deps{Store: store, Managed: m, Capabilities: caps, Logger: zap.NewNop()})

	page, err := r.Search(context.Background(), mustQuery(t, query.Params{Text: "ivy"}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Mode != mode.Weighted || page.Total != 1 {
		t.Fatalf("page = %+v", page)
	}
}

func TestSearch_StoreErrorPropagates(t *testing.T) {
	caps := &mockCaps{report: capability.Report{Capability: capability.Unavailable}}
	r := newResolver(&failingFinder{err: errors.New("i/o timeout")}, caps, lookup(t, entity.Notes))

	if _, err := r.Search(context.Background(), mustQuery(t, query.Params{Text: "calc"})); err == nil {
		t.Fatal("expected resolver failure")
	}
}

func TestSearch_IndexMissingFallsToSubstring(t *testing.T) {
	store := memory.NewStore()
	d := lookup(t, entity.Notes)
	seed(t, store, d.Collection, map[string]map[string]any{"n1": {"title": "Calculus I", "createdAt": 1}})
	// stale report claims a text index that no longer exists
	caps := &mockCaps{report: capability.Report{
		Capability: capability.BasicWeightedText,
		Text:       capability.TextStatus{Available: true, Index: "notes_text"},
	}}

	page, err := newResolver(store, caps, d).Search(context.Background(), mustQuery(t, query.Params{Text: "calc"}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Mode != mode.Substring || page.Total != 1 {
		t.Fatalf("page = %+v", page)
	}
}

func TestSearch_CursorMode(t *testing.T) {
	store := memory.NewStore()
	d := lookup(t, entity.Posts)
	seed(t, store, d.Collection, map[string]map[string]any{
		"p1": {"title": "ivy 1", "createdAt": 100},
		"p2": {"title": "ivy 2", "createdAt": 200},
		"p3": {"title": "ivy 3", "createdAt": 300},
	})
	r := newResolver(store, capability.New(store, nil, time.Minute), d)

	page, err := r.Search(context.Background(), mustQuery(t, query.Params{Text: "ivy", Limit: 2, Cursor: "1000"}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor != "200" {
		t.Fatalf("page = %+v", page)
	}

	page, err = r.Search(context.Background(), mustQuery(t, query.Params{Text: "ivy", Limit: 2, Cursor: page.NextCursor}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "p1" || page.NextCursor != "" {
		t.Fatalf("second page = %+v", page)
	}
}

func TestSearch_UniversityLogos(t *testing.T) {
	store := memory.NewStore()
	d := lookup(t, entity.Universities)
	seed(t, store, d.Collection, map[string]map[string]any{
		"u1": {"name": "Ivy State University", "website": "https://www.ivy.edu", "createdAt": 1},
	})
	enr := &mockEnricher{}
	r := New(d, Deps{
		Store:        store,
		Capabilities: capability.New(store, nil, time.Minute),
		Enricher:     enr,
		Logger:       zap.NewNop(),
	})

	page, err := r.Search(context.Background(), mustQuery(t, query.Params{Text: "ivy"}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(enr.reqs) != 1 {
		t.Fatalf("enrich requests = %d", len(enr.reqs))
	}
	if req, ok := enr.reqs[0].(logo.ByEntity); !ok || req.Domain() != "ivy.edu" {
		t.Errorf("request = %#v", enr.reqs[0])
	}
	if got, ok := page.Items[0].Summary[LogoField].(logo.Result); !ok || got.Initials != "IS" {
		t.Errorf("logo = %#v", page.Items[0].Summary[LogoField])
	}
}

func TestNewAll(t *testing.T) {
	all := NewAll(Deps{Store: memory.NewStore(), Logger: zap.NewNop()})
	if len(all) != 5 {
		t.Fatalf("resolvers = %d", len(all))
	}
	for typ, r := range all {
		if r.Type() != typ {
			t.Errorf("resolver for %s serves %s", typ, r.Type())
		}
	}
}
