package db

import (
	"encoding/json"
	"testing"

	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
)

func mustExpr(t *testing.T, must, should, mustNot []filter.Condition) filter.Expression {
	t.Helper()
	e, err := filter.NewExpression(must, should, mustNot)
	if err != nil {
		t.Fatalf("NewExpression: %v", err)
	}
	return e
}

func TestMatchFilter(t *testing.T) {
	doc := map[string]any{
		"country":     "US",
		"tags":        []any{"ivy", "orientation"},
		"answerCount": float64(0),
		"status":      "active",
	}

	country, _ := filter.NewMatch("country", "us")
	tag, _ := filter.NewMatch("tags", "ivy")
	missingTag, _ := filter.NewMatch("tags", "sports")
	unanswered, _ := filter.AtMost("answerCount", 0)
	excluded, _ := filter.NewMatchAny("status", "deleted", "deactivated")
	absent, _ := filter.NewMatch("universityId", "u1")
	exactCountry, _ := filter.NewExactMatch("country", "us")
	exactCountryHit, _ := filter.NewExactMatch("country", "US")

	tests := []struct {
		name string
		expr filter.Expression
		want bool
	}{
		{"empty", filter.Expression{}, true},
		{"tag case-insensitive", mustExpr(t, []filter.Condition{country}, nil, nil), true},
		{"exact match rejects other case", mustExpr(t, []filter.Condition{exactCountry}, nil, nil), false},
		{"exact match", mustExpr(t, []filter.Condition{exactCountryHit}, nil, nil), true},
		{"list membership", mustExpr(t, []filter.Condition{tag}, nil, nil), true},
		{"list miss", mustExpr(t, []filter.Condition{missingTag}, nil, nil), false},
		{"range", mustExpr(t, []filter.Condition{unanswered}, nil, nil), true},
		{"must not any-of", mustExpr(t, nil, nil, []filter.Condition{excluded}), true},
		{"absent field", mustExpr(t, []filter.Condition{absent}, nil, nil), false},
		{"should one hit", mustExpr(t, nil, []filter.Condition{missingTag, tag}, nil), true},
		{"should no hit", mustExpr(t, nil, []filter.Condition{missingTag, absent}, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchFilter(tt.expr, doc); got != tt.want {
				t.Errorf("MatchFilter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchContains(t *testing.T) {
	doc := map[string]any{"name": "Ivy State University"}
	if !MatchContains(&Substring{Field: "name", Value: "state UNI"}, doc) {
		t.Error("expected case-insensitive substring hit")
	}
	if MatchContains(&Substring{Field: "name", Value: "college"}, doc) {
		t.Error("unexpected hit")
	}
	if !MatchContains(nil, doc) {
		t.Error("nil substring matches everything")
	}
}

func TestScoreText_WeightOrdering(t *testing.T) {
	textFields := []IndexField{
		{Name: "title", Type: IndexFieldText, Weight: 10},
		{Name: "description", Type: IndexFieldText, Weight: 3},
	}
	titleOnly := map[string]any{"title": "Calculus notes", "description": "weekly summary"}
	descOnly := map[string]any{
		"title":       "Weekly summary",
		"description": "calculus calculus calculus calculus calculus",
	}

	ts := ScoreText(titleOnly, textFields, "calculus")
	ds := ScoreText(descOnly, textFields, "calculus")
	if ts <= 0 || ds <= 0 {
		t.Fatalf("both should match: title=%v desc=%v", ts, ds)
	}
	if ts < ds {
		t.Errorf("title-only score %v ranked below description-only %v", ts, ds)
	}
	if ScoreText(titleOnly, textFields, "physics") != 0 {
		t.Error("non-matching query should score 0")
	}
}

func TestTokenize_Stems(t *testing.T) {
	got := Tokenize("Universities, Classes & Tips!")
	want := []string{"university", "class", "tip"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSortDocuments_RelevanceTieBreak(t *testing.T) {
	docs := []Document{
		{ID: "b", Score: 5, Fields: map[string]any{"createdAt": float64(100)}},
		{ID: "a", Score: 5, Fields: map[string]any{"createdAt": float64(100)}},
		{ID: "c", Score: 5, Fields: map[string]any{"createdAt": float64(200)}},
		{ID: "d", Score: 9, Fields: map[string]any{"createdAt": float64(1)}},
	}
	SortDocuments(docs, nil, true)
	want := []string{"d", "c", "a", "b"}
	for i, id := range want {
		if docs[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(docs), want)
		}
	}
}

func TestSortDocuments_MultiKeyAndMissing(t *testing.T) {
	docs := []Document{
		{ID: "1", Fields: map[string]any{"averageRating": 4.5, "reviewCount": float64(10)}},
		{ID: "2", Fields: map[string]any{"averageRating": 4.5, "reviewCount": float64(50)}},
		{ID: "3", Fields: map[string]any{}},
		{ID: "4", Fields: map[string]any{"averageRating": 4.9, "reviewCount": float64(1)}},
	}
	SortDocuments(docs, []SortField{{Field: "averageRating", Desc: true}, {Field: "reviewCount", Desc: true}}, false)
	want := []string{"4", "2", "1", "3"}
	for i, id := range want {
		if docs[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(docs), want)
		}
	}
}

func TestWindow(t *testing.T) {
	docs := make([]Document, 45)
	pages := []struct{ skip, want int }{{0, 20}, {20, 20}, {40, 5}, {60, 0}}
	for _, p := range pages {
		if got := len(Window(docs, p.skip, 20)); got != p.want {
			t.Errorf("Window(skip=%d) = %d, want %d", p.skip, got, p.want)
		}
	}
}

func TestGroupDocuments(t *testing.T) {
	docs := []Document{
		{ID: "1", Fields: map[string]any{"query": "calculus", "count": float64(3)}},
		{ID: "2", Fields: map[string]any{"query": "physics", "count": float64(1)}},
		{ID: "3", Fields: map[string]any{"query": "calculus", "count": float64(2)}},
		{ID: "4", Fields: map[string]any{"query": "ivy", "count": float64(4)}},
	}
	rows := GroupDocuments(docs, &Aggregation{
		GroupBy:  "query",
		Reducers: []Reducer{{Kind: ReduceSum, Field: "count", As: "total"}, {Kind: ReduceCount, As: "users"}},
		SortBy:   "total",
		Desc:     true,
		Limit:    2,
	})
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Fields["query"] != "calculus" || rows[0].Fields["total"] != float64(5) {
		t.Errorf("row[0] = %v", rows[0].Fields)
	}
	if rows[0].Fields["users"] != float64(2) {
		t.Errorf("users = %v", rows[0].Fields["users"])
	}
	if rows[1].Fields["query"] != "ivy" {
		t.Errorf("row[1] = %v", rows[1].Fields)
	}
}

func TestNumberOfAndStringsOf(t *testing.T) {
	if n, ok := NumberOf(json.Number("4.5")); !ok || n != 4.5 {
		t.Errorf("json.Number = %v %v", n, ok)
	}
	if _, ok := NumberOf("abc"); ok {
		t.Error("non-numeric string should fail")
	}
	if got := StringsOf([]any{"a", float64(2), true}); len(got) != 3 || got[1] != "2" || got[2] != "true" {
		t.Errorf("StringsOf = %v", got)
	}
}

func TestProject(t *testing.T) {
	fields := map[string]any{"name": "Ivy", "secret": "x"}
	got := Project(fields, []string{"name", "missing"})
	if len(got) != 1 || got["name"] != "Ivy" {
		t.Errorf("Project = %v", got)
	}
	all := Project(fields, nil)
	all["name"] = "changed"
	if fields["name"] != "Ivy" {
		t.Error("Project must copy")
	}
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i := range docs {
		out[i] = docs[i].ID
	}
	return out
}
