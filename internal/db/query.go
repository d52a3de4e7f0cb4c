package db

import "github.com/kailas-cloud/unisearch/internal/domain/search/filter"

// FindQuery is the input for Find, Count and DeleteMany.
type FindQuery struct {
	Collection string
	// Index is an optional hint naming the index that should serve the query.
	Index      string
	Filter     filter.Expression
	Text       *TextMatch
	Contains   *Substring
	Projection []string
	Sort       []SortField
	Skip       int
	Limit      int
}

// TextMatch requests a weighted full-text match against the collection's text index.
type TextMatch struct {
	Query string
}

// Substring requests a case-insensitive substring match on a single field.
type Substring struct {
	Field string
	Value string
}

// SortField is one key of a sort specification.
type SortField struct {
	Field string
	Desc  bool
}

// FindResult is the output of Find.
type FindResult struct {
	// Total is the number of matching documents before skip/limit.
	Total     int
	Documents []Document
}

// Document is a single stored document or aggregation row.
type Document struct {
	ID string
	// Score is the engine relevance score; zero when the query had no text match.
	Score  float64
	Fields map[string]any
}

// ReducerKind enumerates aggregation reducers.
type ReducerKind int

const (
	// ReduceCount counts rows per group.
	ReduceCount ReducerKind = iota
	// ReduceSum sums a numeric field per group.
	ReduceSum
)

// Reducer computes one output column per group.
type Reducer struct {
	Kind  ReducerKind
	Field string // input field, unused for ReduceCount
	As    string // output column name
}

// Aggregation is a single-stage group-by pipeline.
type Aggregation struct {
	Collection string
	Index      string
	Filter     filter.Expression
	Contains   *Substring
	GroupBy    string
	Reducers   []Reducer
	// SortBy names an output column; empty keeps group order unspecified.
	SortBy string
	Desc   bool
	Limit  int
}
