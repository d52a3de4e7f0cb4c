// Package querybuild holds the pure helpers shared by every resolver:
// sort specs, pagination, counting and aggregation fragments.
package querybuild

import (
	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
)

// Sort keys accepted by search.
const (
	SortNewest         = "newest"
	SortOldest         = "oldest"
	SortPopular        = "popular"
	SortMostViewed     = "mostViewed"
	SortMostDownloaded = "mostDownloaded"
	SortTopRated       = "topRated"
	SortAlphabetical   = "alphabetical"
	SortTrending       = "trending"
	SortRelevance      = "relevance"
)

const (
	createdAt = "createdAt"
	// displayPlaceholder is replaced with the entity display field by ForEntity.
	displayPlaceholder = "$display"
	// TrendingScoreField is the precomputed trending score of posts.
	TrendingScoreField = "trendingScore"
)

// Spec is an ordered sort specification. An empty Spec means engine relevance.
type Spec []db.SortField

// BuildSort maps a sort key to its spec. Unknown keys sort newest first.
func BuildSort(key string) Spec {
	switch key {
	case SortRelevance:
		return Spec{}
	case SortOldest:
		return Spec{{Field: createdAt}}
	case SortPopular:
		return Spec{{Field: "likeCount", Desc: true}, {Field: createdAt, Desc: true}}
	case SortMostViewed:
		return Spec{{Field: "viewCount", Desc: true}}
	case SortMostDownloaded:
		return Spec{{Field: "downloadCount", Desc: true}}
	case SortTopRated:
		return Spec{{Field: "averageRating", Desc: true}, {Field: "reviewCount", Desc: true}}
	case SortAlphabetical:
		return Spec{{Field: displayPlaceholder}}
	case SortTrending:
		return Spec{{Field: TrendingScoreField, Desc: true}, {Field: createdAt, Desc: true}}
	default:
		return Newest()
	}
}

// Newest is the default sort.
func Newest() Spec {
	return Spec{{Field: createdAt, Desc: true}}
}

// IsRelevance reports whether the spec defers to engine relevance.
func (s Spec) IsRelevance() bool {
	return len(s) == 0
}

// ForEntity resolves the spec against one entity: the alphabetical
// placeholder becomes the display field, reviews rate on their own rating,
// and keys the entity cannot sort on are dropped. A spec left empty by
// dropping falls back to newest.
func (s Spec) ForEntity(d *entity.Descriptor) Spec {
	if s.IsRelevance() {
		return Spec{}
	}
	if d.Type == entity.Reviews && len(s) > 0 && s[0].Field == "averageRating" {
		s = Spec{{Field: "rating", Desc: true}, {Field: "helpfulCount", Desc: true}}
	}

	sortable := sortableFields(d)
	out := make(Spec, 0, len(s))
	for _, f := range s {
		if f.Field == displayPlaceholder {
			f.Field = d.DisplayField
		}
		if _, ok := sortable[f.Field]; ok {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return Newest()
	}
	return out
}

// Fields returns the sort field names in order.
func (s Spec) Fields() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Field
	}
	return out
}

func sortableFields(d *entity.Descriptor) map[string]struct{} {
	out := make(map[string]struct{}, len(d.NumericFields)+2)
	for _, f := range d.NumericFields {
		out[f] = struct{}{}
	}
	out[createdAt] = struct{}{}
	if d.CursorField != "" {
		out[d.CursorField] = struct{}{}
	}
	if d.DisplayField != "" {
		out[d.DisplayField] = struct{}{}
	}
	return out
}
