package querybuild

import (
	"slices"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/db/elastic"
	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
)

// Aggregation output columns.
const (
	CountColumn = "count"
	TotalColumn = "total"
)

// GroupCount counts documents per distinct value of field, largest first.
func GroupCount(collection, field string) *db.Aggregation {
	return &db.Aggregation{
		Collection: collection,
		GroupBy:    field,
		Reducers:   []db.Reducer{{Kind: db.ReduceCount, As: CountColumn}},
		SortBy:     CountColumn,
		Desc:       true,
	}
}

// GroupSum sums sumField per distinct value of groupField, largest first.
func GroupSum(collection, groupField, sumField string) *db.Aggregation {
	return &db.Aggregation{
		Collection: collection,
		GroupBy:    groupField,
		Reducers:   []db.Reducer{{Kind: db.ReduceSum, Field: sumField, As: TotalColumn}},
		SortBy:     TotalColumn,
		Desc:       true,
	}
}

// TopN limits the aggregation to its first n rows.
func TopN(a *db.Aggregation, n int) *db.Aggregation {
	a.Limit = n
	return a
}

// ManagedFilters renders a filter expression as Elasticsearch bool clauses.
// Should conditions become one nested bool in the filter list.
func ManagedFilters(expr filter.Expression) (filters, mustNot []map[string]any) {
	for _, c := range expr.Must() {
		filters = append(filters, managedClause(c))
	}
	if should := expr.Should(); len(should) > 0 {
		clauses := make([]map[string]any, len(should))
		for i, c := range should {
			clauses[i] = managedClause(c)
		}
		filters = append(filters, map[string]any{
			"bool": map[string]any{"should": clauses, "minimum_should_match": 1},
		})
	}
	for _, c := range expr.MustNot() {
		mustNot = append(mustNot, managedClause(c))
	}
	return filters, mustNot
}

func managedClause(c filter.Condition) map[string]any {
	if c.IsRange() {
		r := c.Range()
		bounds := map[string]any{}
		if r.GT() != nil {
			bounds["gt"] = *r.GT()
		}
		if r.GTE() != nil {
			bounds["gte"] = *r.GTE()
		}
		if r.LT() != nil {
			bounds["lt"] = *r.LT()
		}
		if r.LTE() != nil {
			bounds["lte"] = *r.LTE()
		}
		return map[string]any{"range": map[string]any{c.Key(): bounds}}
	}
	if values := c.AnyOf(); len(values) > 0 {
		return map[string]any{"terms": map[string]any{c.Key(): values}}
	}
	return map[string]any{"term": map[string]any{c.Key(): c.Match()}}
}

// ManagedSort renders a sort spec for Elasticsearch. Relevance yields nil so
// hits keep their _score order. Analyzed text fields sort on their keyword subfield.
func ManagedSort(s Spec, textFields ...string) []map[string]any {
	if s.IsRelevance() {
		return nil
	}
	out := make([]map[string]any, len(s))
	for i, f := range s {
		order := "asc"
		if f.Desc {
			order = "desc"
		}
		if slices.Contains(textFields, f.Field) {
			out[i] = map[string]any{f.Field + elastic.RawSuffix: map[string]any{"order": order}}
			continue
		}
		out[i] = map[string]any{f.Field: map[string]any{"order": order, "unmapped_type": "long"}}
	}
	return out
}
