package unisearch

import (
	"time"

	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
	"github.com/kailas-cloud/unisearch/internal/usecase/provision"
)

// Entity types accepted by SearchParams.Type.
const (
	TypeUniversities = "universities"
	TypeUsers        = "users"
	TypePosts        = "posts"
	TypeNotes        = "notes"
	TypeReviews      = "reviews"
)

// SearchParams is a search request. Empty Type searches every entity type.
type SearchParams struct {
	Query   string
	Type    string
	Filters map[string]string
	Page    int
	Limit   int
	Cursor  string
	SortBy  string
	// UserID records the query in the user's history when set.
	UserID string
}

// SearchResponse holds one slot per searched entity type, in priority order.
type SearchResponse struct {
	Query      string
	Slots      []Slot
	Page       int
	Limit      int
	NextCursor string
}

// Slot is the result of one entity type. Error is set when the type failed;
// other types are unaffected.
type Slot struct {
	Type  string
	Items []Item
	Total int
	Error string
}

// Item is a single hit projected to the entity summary.
type Item struct {
	ID      string
	Score   *float64
	Summary map[string]any
}

// Suggestion is a typeahead entry.
type Suggestion struct {
	Text string
	Type string // "university", "subject" or "tag"
}

// RecentQuery is a query from the user's history.
type RecentQuery struct {
	Query    string
	Count    int
	LastUsed time.Time
}

// PopularQuery is a query ranked by its total count across users.
type PopularQuery struct {
	Query string
	Count int
}

// ProvisionResult is the outcome of provisioning one collection.
// Warnings list conflicting indexes that need manual cleanup.
type ProvisionResult struct {
	Collection string
	Created    []string
	Skipped    []string
	Warnings   []string
	Errors     []string
}

// CollectionStatus reports a collection's search capability.
type CollectionStatus struct {
	Collection string
	// Capability is "managed_full_text", "basic_weighted_text" or "unavailable".
	Capability string
	TextIndex  string
	// Managed maps managed index names to their availability.
	Managed   map[string]bool
	Documents int
}

func toSearchResponse(g result.Global) SearchResponse {
	out := SearchResponse{
		Query:      g.Query,
		Page:       g.Page,
		Limit:      g.Limit,
		NextCursor: g.NextCursor,
		Slots:      make([]Slot, len(g.Slots)),
	}
	for i, s := range g.Slots {
		items := make([]Item, len(s.Items))
		for j, it := range s.Items {
			items[j] = Item{ID: it.ID, Score: it.Score, Summary: it.Summary}
		}
		out.Slots[i] = Slot{Type: string(s.Type), Items: items, Total: s.Total, Error: s.Error}
	}
	return out
}

func toSuggestions(list []result.Suggestion) []Suggestion {
	out := make([]Suggestion, len(list))
	for i, s := range list {
		out[i] = Suggestion{Text: s.Text, Type: s.Type}
	}
	return out
}

func toRecent(entries []domhistory.Entry) []RecentQuery {
	out := make([]RecentQuery, len(entries))
	for i, e := range entries {
		out[i] = RecentQuery{Query: e.Query, Count: e.Count, LastUsed: e.LastUsed}
	}
	return out
}

func toPopular(list []domhistory.Popular) []PopularQuery {
	out := make([]PopularQuery, len(list))
	for i, p := range list {
		out[i] = PopularQuery{Query: p.Query, Count: p.Count}
	}
	return out
}

func toProvisionResult(r provision.Result) ProvisionResult {
	out := ProvisionResult{Collection: r.Collection, Created: r.Created, Skipped: r.Skipped}
	for _, e := range r.Errors {
		if e.Conflict {
			out.Warnings = append(out.Warnings, e.Error())
			continue
		}
		out.Errors = append(out.Errors, e.Error())
	}
	return out
}

func toCollectionStatus(r capability.Report, docs int) CollectionStatus {
	managed := make(map[string]bool, len(r.Managed))
	for _, m := range r.Managed {
		managed[m.Name] = m.Available
	}
	return CollectionStatus{
		Collection: r.Collection,
		Capability: string(r.Capability),
		TextIndex:  r.Text.Index,
		Managed:    managed,
		Documents:  docs,
	}
}
