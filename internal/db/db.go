package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces
type Store interface {
	Pinger
	DocumentStore
	Finder
	Counter
	Aggregator
	IndexManager
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DocumentStore provides collection-scoped document writes.
type DocumentStore interface {
	Put(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	DeleteMany(ctx context.Context, collection string, q *FindQuery) (int, error)
	// Increment atomically applies op to one document, creating it when absent.
	Increment(ctx context.Context, collection, id string, op IncrementOp) error
}

// IncrementOp adds Delta to a numeric Field and sets fields in the same operation.
type IncrementOp struct {
	Field string
	Delta int64
	// Set is written on every call.
	Set map[string]any
	// SetOnInsert is written only when the document is created.
	SetOnInsert map[string]any
}

// Finder runs filtered, projected, sorted and paginated queries.
type Finder interface {
	Find(ctx context.Context, q *FindQuery) (*FindResult, error)
}

// Counter counts documents in a collection.
type Counter interface {
	// EstimatedCount returns a fast collection-level count that may lag
	// behind concurrent writes.
	EstimatedCount(ctx context.Context, collection string) (int, error)
	Count(ctx context.Context, q *FindQuery) (int, error)
}

// Aggregator runs group-by pipelines.
type Aggregator interface {
	Aggregate(ctx context.Context, a *Aggregation) ([]Document, error)
}

// IndexManager provides index lifecycle operations scoped to a collection.
type IndexManager interface {
	CreateIndex(ctx context.Context, collection string, def *IndexDefinition) error
	ListIndexes(ctx context.Context, collection string) ([]IndexDefinition, error)
	DropIndex(ctx context.Context, collection, name string) error
	SupportsTextSearch(ctx context.Context) bool
}
