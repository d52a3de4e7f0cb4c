package db

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
)

// In-process query evaluation shared by backends that scan documents
// (the memory store and the Redis SCAN fallback).

// CreatedAtField is the creation timestamp used for relevance tie-breaks.
const CreatedAtField = "createdAt"

// Matches reports whether a document satisfies the query's filter and substring clauses.
// Text matching is evaluated separately with ScoreText.
func (q *FindQuery) Matches(fields map[string]any) bool {
	if !MatchFilter(q.Filter, fields) {
		return false
	}
	return MatchContains(q.Contains, fields)
}

// MatchFilter evaluates a filter expression against document fields.
func MatchFilter(expr filter.Expression, fields map[string]any) bool {
	for _, c := range expr.Must() {
		if !matchCondition(c, fields) {
			return false
		}
	}
	for _, c := range expr.MustNot() {
		if matchCondition(c, fields) {
			return false
		}
	}
	if should := expr.Should(); len(should) > 0 {
		for _, c := range should {
			if matchCondition(c, fields) {
				return true
			}
		}
		return false
	}
	return true
}

func matchCondition(c filter.Condition, fields map[string]any) bool {
	v, ok := fields[c.Key()]
	if !ok || v == nil {
		return false
	}
	if c.IsRange() {
		n, ok := NumberOf(v)
		return ok && c.Range().Contains(n)
	}
	equal := strings.EqualFold
	if c.CaseSensitive() {
		equal = func(a, b string) bool { return a == b }
	}
	have := StringsOf(v)
	for _, want := range c.Values() {
		for _, h := range have {
			if equal(h, want) {
				return true
			}
		}
	}
	return false
}

// MatchContains evaluates a case-insensitive substring clause; nil always matches.
func MatchContains(s *Substring, fields map[string]any) bool {
	if s == nil || s.Value == "" {
		return true
	}
	needle := strings.ToLower(s.Value)
	for _, v := range StringsOf(fields[s.Field]) {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// ScoreText computes a weighted term-match score of query over the text fields.
// A field contributes weight*2tf/(tf+1), so repeated hits in a low-weight field
// never outrank a single hit in a field weighted at least twice as high.
// Zero means no query term matched.
func ScoreText(fields map[string]any, textFields []IndexField, query string) float64 {
	terms := uniqueTerms(query)
	if len(terms) == 0 {
		return 0
	}
	var score float64
	for i := range textFields {
		f := &textFields[i]
		var tf int
		for _, v := range StringsOf(fields[f.SourceField()]) {
			for _, tok := range Tokenize(v) {
				if _, ok := terms[tok]; ok {
					tf++
				}
			}
		}
		if tf > 0 {
			score += float64(f.EffectiveWeight()) * 2 * float64(tf) / float64(tf+1)
		}
	}
	return score
}

func uniqueTerms(query string) map[string]struct{} {
	toks := Tokenize(query)
	out := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		out[t] = struct{}{}
	}
	return out
}

// Tokenize splits text into lower-cased, lightly stemmed terms.
func Tokenize(s string) []string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		words[i] = stem(w)
	}
	return words
}

func stem(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 4 && (strings.HasSuffix(w, "sses") || strings.HasSuffix(w, "shes") || strings.HasSuffix(w, "ches")):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us"):
		return w[:len(w)-1]
	}
	return w
}

// SortDocuments orders docs by the sort spec. An empty spec with byScore orders
// by score desc, then createdAt desc, then id asc. Ties always end on id asc.
func SortDocuments(docs []Document, spec []SortField, byScore bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := &docs[i], &docs[j]
		if len(spec) == 0 && byScore {
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			if c := compareValues(a.Fields[CreatedAtField], b.Fields[CreatedAtField]); c != 0 {
				return c > 0
			}
			return a.ID < b.ID
		}
		for _, s := range spec {
			c := compareValues(a.Fields[s.Field], b.Fields[s.Field])
			if c == 0 {
				continue
			}
			// missing values sort last in either direction
			if a.Fields[s.Field] == nil || b.Fields[s.Field] == nil {
				return b.Fields[s.Field] == nil
			}
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return a.ID < b.ID
	})
}

// compareValues orders numbers numerically and everything else as case-folded strings.
// nil compares below any value.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	an, aok := NumberOf(a)
	bn, bok := NumberOf(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	as, bs := strings.ToLower(firstString(a)), strings.ToLower(firstString(b))
	return strings.Compare(as, bs)
}

func firstString(v any) string {
	if ss := StringsOf(v); len(ss) > 0 {
		return ss[0]
	}
	return ""
}

// Project returns only the projected fields; an empty projection returns a copy of all fields.
func Project(fields map[string]any, projection []string) map[string]any {
	if len(projection) == 0 {
		out := make(map[string]any, len(fields))
		for k, v := range fields {
			out[k] = v
		}
		return out
	}
	out := make(map[string]any, len(projection))
	for _, p := range projection {
		if v, ok := fields[p]; ok {
			out[p] = v
		}
	}
	return out
}

// Window applies skip and limit to an ordered slice. limit <= 0 means no limit.
func Window(docs []Document, skip, limit int) []Document {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(docs) {
		return nil
	}
	end := len(docs)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return docs[skip:end]
}

// GroupDocuments applies an aggregation's group, reduce, sort and limit stages
// to already filtered documents. Multi-valued group fields contribute one row per value.
func GroupDocuments(docs []Document, a *Aggregation) []Document {
	type group struct {
		key  string
		vals map[string]float64
	}
	groups := make(map[string]*group)
	var order []string

	for i := range docs {
		keys := StringsOf(docs[i].Fields[a.GroupBy])
		for _, k := range keys {
			if k == "" {
				continue
			}
			g, ok := groups[k]
			if !ok {
				g = &group{key: k, vals: make(map[string]float64, len(a.Reducers))}
				groups[k] = g
				order = append(order, k)
			}
			for _, r := range a.Reducers {
				switch r.Kind {
				case ReduceCount:
					g.vals[r.As]++
				case ReduceSum:
					if n, ok := NumberOf(docs[i].Fields[r.Field]); ok {
						g.vals[r.As] += n
					}
				}
			}
		}
	}

	out := make([]Document, 0, len(order))
	for _, k := range order {
		g := groups[k]
		fields := map[string]any{a.GroupBy: g.key}
		for name, v := range g.vals {
			fields[name] = v
		}
		out = append(out, Document{ID: g.key, Fields: fields})
	}

	if a.SortBy != "" {
		SortDocuments(out, []SortField{{Field: a.SortBy, Desc: a.Desc}}, false)
	}
	return Window(out, 0, a.Limit)
}

// NumberOf converts a decoded JSON value to float64.
func NumberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// StringsOf flattens a scalar or list value into strings.
func StringsOf(v any) []string {
	switch s := v.(type) {
	case nil:
		return nil
	case string:
		return []string{s}
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			out = append(out, StringsOf(e)...)
		}
		return out
	case bool:
		return []string{strconv.FormatBool(s)}
	case json.Number:
		return []string{s.String()}
	}
	if n, ok := NumberOf(v); ok {
		return []string{strconv.FormatFloat(n, 'f', -1, 64)}
	}
	return nil
}
