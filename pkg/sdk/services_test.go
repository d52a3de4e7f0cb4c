package unisearch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
	"github.com/kailas-cloud/unisearch/internal/usecase/provision"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
)

// --- Search ---

func TestClient_Search(t *testing.T) {
	score := 2.5
	mock := &mockSearchUC{
		globalFn: func(_ context.Context, q query.Query) (result.Global, error) {
			if typ, ok := q.Type(); !ok || typ != entity.Notes {
				t.Errorf("type = %q, %v", typ, ok)
			}
			if q.Filters()["subject"] != "Math" || q.UserID() != "u1" {
				t.Errorf("filters = %v user = %q", q.Filters(), q.UserID())
			}
			return result.Global{
				Query: q.Text(),
				Slots: []result.Slot{{
					Type:  entity.Notes,
					Items: []result.Item{{Type: entity.Notes, ID: "n1", Score: &score, Summary: map[string]any{"title": "Calc"}}},
					Total: 1,
				}},
				Page:       1,
				Limit:      20,
				NextCursor: "1700",
			}, nil
		},
	}

	c := &Client{searchSvc: mock}
	res, err := c.Search(context.Background(), SearchParams{
		Query: "calculus", Type: TypeNotes, Filters: map[string]string{"subject": "Math"}, UserID: "u1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Slots) != 1 || res.Slots[0].Type != TypeNotes || res.Slots[0].Items[0].ID != "n1" {
		t.Errorf("slots = %+v", res.Slots)
	}
	if *res.Slots[0].Items[0].Score != 2.5 || res.NextCursor != "1700" {
		t.Errorf("response = %+v", res)
	}
}

func TestClient_Search_InvalidQuery(t *testing.T) {
	c := &Client{searchSvc: &mockSearchUC{}}
	_, err := c.Search(context.Background(), SearchParams{Query: "calc", Type: "campus"})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestClient_Search_StoreUnavailable(t *testing.T) {
	mock := &mockSearchUC{
		globalFn: func(context.Context, query.Query) (result.Global, error) {
			return result.Global{}, searchuc.ErrStoreUnavailable
		},
	}
	c := &Client{searchSvc: mock}
	_, err := c.Search(context.Background(), SearchParams{Query: "calc"})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestClient_Suggestions(t *testing.T) {
	mock := &mockSearchUC{
		suggestFn: func(_ context.Context, partial string) ([]result.Suggestion, error) {
			return []result.Suggestion{{Text: "Ivy University", Type: result.SuggestionUniversity}}, nil
		},
	}
	c := &Client{searchSvc: mock}
	list, err := c.Suggestions(context.Background(), "iv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].Type != "university" {
		t.Errorf("list = %+v", list)
	}
}

// --- History ---

func TestClient_History(t *testing.T) {
	used := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	var cleared string
	mock := &mockSearchUC{
		recentFn: func(_ context.Context, uid string) ([]domhistory.Entry, error) {
			return []domhistory.Entry{{UserID: uid, Query: "calculus", Count: 2, LastUsed: used}}, nil
		},
		popularFn: func(context.Context) ([]domhistory.Popular, error) {
			return []domhistory.Popular{{Query: "calculus", Count: 7}}, nil
		},
		clearFn: func(_ context.Context, uid string) error {
			cleared = uid
			return nil
		},
	}
	c := &Client{searchSvc: mock}
	ctx := context.Background()

	recent, err := c.Recent(ctx, "u1")
	if err != nil || len(recent) != 1 || !recent[0].LastUsed.Equal(used) {
		t.Errorf("recent = %+v, err %v", recent, err)
	}
	popular, err := c.Popular(ctx)
	if err != nil || popular[0].Count != 7 {
		t.Errorf("popular = %+v, err %v", popular, err)
	}
	if err := c.ClearHistory(ctx, "u1"); err != nil || cleared != "u1" {
		t.Errorf("clear: %v, cleared %q", err, cleared)
	}
}

func TestClient_Recent_UserRequired(t *testing.T) {
	mock := &mockSearchUC{
		recentFn: func(context.Context, string) ([]domhistory.Entry, error) {
			return nil, searchuc.ErrUserRequired
		},
	}
	c := &Client{searchSvc: mock}
	if _, err := c.Recent(context.Background(), ""); !errors.Is(err, ErrUserRequired) {
		t.Errorf("err = %v", err)
	}
}

// --- Provision / Check ---

func TestClient_Provision(t *testing.T) {
	managedCalls := 0
	mock := &mockProvisionUC{
		ensureAllFn: func(_ context.Context, ds []*entity.Descriptor) []provision.Result {
			return []provision.Result{{
				Collection: "posts",
				Created:    []string{"posts_text"},
				Errors: []provision.IndexError{
					{Index: "posts_tags_createdAt", Err: errors.New("fields differ"), Conflict: true},
					{Index: "posts_category", Err: errors.New("timeout")},
				},
			}}
		},
		ensureManagedFn: func(_ context.Context, d *entity.Descriptor) provision.Result {
			managedCalls++
			return provision.Result{Collection: d.Collection}
		},
	}
	c := &Client{provSvc: mock}

	res, err := c.Provision(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 1+len(entity.Searchable()) || managedCalls != len(entity.Searchable()) {
		t.Fatalf("results = %d, managed calls = %d", len(res), managedCalls)
	}
	if len(res[0].Warnings) != 1 || len(res[0].Errors) != 1 {
		t.Errorf("first = %+v", res[0])
	}
}

func TestClient_Check(t *testing.T) {
	c := &Client{
		caps: &mockCaps{checkFn: func(_ context.Context, d *entity.Descriptor) capability.Report {
			return capability.Report{
				Collection: d.Collection,
				Capability: capability.BasicWeightedText,
				Text:       capability.TextStatus{Available: true, Index: d.Collection + "_text"},
				Managed:    []capability.IndexStatus{{Name: d.Managed.Search, Error: "managed search disabled"}},
			}
		}},
		counter: &mockCounter{estimatedFn: func(_ context.Context, coll string) (int, error) {
			return len(coll), nil
		}},
	}
	statuses, err := c.Check(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != len(entity.Searchable()) {
		t.Fatalf("statuses = %d", len(statuses))
	}
	first := statuses[0]
	if first.Collection != "universities" || first.Documents != len("universities") || first.TextIndex != "universities_text" {
		t.Errorf("first = %+v", first)
	}
	if available, ok := first.Managed["universities_search"]; !ok || available {
		t.Errorf("managed = %v", first.Managed)
	}
}

func TestClient_Check_CountError(t *testing.T) {
	c := &Client{
		caps: &mockCaps{checkFn: func(context.Context, *entity.Descriptor) capability.Report { return capability.Report{} }},
		counter: &mockCounter{estimatedFn: func(context.Context, string) (int, error) {
			return 0, errors.New("down")
		}},
	}
	if _, err := c.Check(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- Put ---

func TestClient_Put(t *testing.T) {
	var stored string
	managed := &mockManaged{}
	c := &Client{
		store: &mockStore{putFn: func(_ context.Context, coll, id string, _ map[string]any) error {
			stored = coll + "/" + id
			return nil
		}},
		managed: managed,
	}

	err := c.Put(context.Background(), "university", "u1", map[string]any{"name": "Ivy University", "city": "Ithaca"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != "universities/u1" {
		t.Errorf("stored = %q", stored)
	}
	if _, ok := managed.puts["universities_search/u1"]; !ok {
		t.Error("search index not mirrored")
	}
	if doc := managed.puts["universities_autocomplete/u1"]; len(doc) != 1 || doc["name"] != "Ivy University" {
		t.Errorf("autocomplete doc = %v", doc)
	}
}

func TestClient_Put_UnknownCollection(t *testing.T) {
	c := &Client{store: &mockStore{}}
	if err := c.Put(context.Background(), "search_history", "x", nil); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("err = %v", err)
	}
}

func TestClient_Put_StoreError(t *testing.T) {
	managed := &mockManaged{}
	c := &Client{
		store: &mockStore{putFn: func(context.Context, string, string, map[string]any) error {
			return errors.New("down")
		}},
		managed: managed,
	}
	if err := c.Put(context.Background(), "posts", "p1", map[string]any{}); err == nil {
		t.Fatal("expected error")
	}
	if len(managed.puts) != 0 {
		t.Error("failed store write must not be mirrored")
	}
}

func TestClient_Ping(t *testing.T) {
	c := &Client{store: &mockStore{pingFn: func(context.Context) error { return errors.New("refused") }}}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
