package history

import (
	"context"

	"github.com/kailas-cloud/unisearch/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	incrementFn  func(ctx context.Context, collection, id string, op db.IncrementOp) error
	findFn       func(ctx context.Context, q *db.FindQuery) (*db.FindResult, error)
	aggregateFn  func(ctx context.Context, a *db.Aggregation) ([]db.Document, error)
	deleteManyFn func(ctx context.Context, collection string, q *db.FindQuery) (int, error)
}

func (m *mockStore) Increment(ctx context.Context, collection, id string, op db.IncrementOp) error {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, collection, id, op)
	}
	return nil
}

func (m *mockStore) Find(ctx context.Context, q *db.FindQuery) (*db.FindResult, error) {
	if m.findFn != nil {
		return m.findFn(ctx, q)
	}
	return &db.FindResult{}, nil
}

func (m *mockStore) Aggregate(ctx context.Context, a *db.Aggregation) ([]db.Document, error) {
	if m.aggregateFn != nil {
		return m.aggregateFn(ctx, a)
	}
	return nil, nil
}

func (m *mockStore) DeleteMany(ctx context.Context, collection string, q *db.FindQuery) (int, error) {
	if m.deleteManyFn != nil {
		return m.deleteManyFn(ctx, collection, q)
	}
	return 0, nil
}
