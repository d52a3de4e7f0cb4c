package unisearch

import (
	"context"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
	"github.com/kailas-cloud/unisearch/internal/usecase/provision"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	globalFn  func(ctx context.Context, q query.Query) (result.Global, error)
	suggestFn func(ctx context.Context, partial string) ([]result.Suggestion, error)
	recentFn  func(ctx context.Context, userID string) ([]domhistory.Entry, error)
	popularFn func(ctx context.Context) ([]domhistory.Popular, error)
	clearFn   func(ctx context.Context, userID string) error
}

func (m *mockSearchUC) GlobalSearch(ctx context.Context, q query.Query) (result.Global, error) {
	return m.globalFn(ctx, q)
}

func (m *mockSearchUC) Suggestions(ctx context.Context, partial string) ([]result.Suggestion, error) {
	return m.suggestFn(ctx, partial)
}

func (m *mockSearchUC) Recent(ctx context.Context, userID string) ([]domhistory.Entry, error) {
	return m.recentFn(ctx, userID)
}

func (m *mockSearchUC) Popular(ctx context.Context) ([]domhistory.Popular, error) {
	return m.popularFn(ctx)
}

func (m *mockSearchUC) ClearHistory(ctx context.Context, userID string) error {
	return m.clearFn(ctx, userID)
}

// --- provisionUseCase mock ---

type mockProvisionUC struct {
	ensureAllFn     func(ctx context.Context, ds []*entity.Descriptor) []provision.Result
	ensureManagedFn func(ctx context.Context, d *entity.Descriptor) provision.Result
}

func (m *mockProvisionUC) EnsureAll(ctx context.Context, ds []*entity.Descriptor) []provision.Result {
	return m.ensureAllFn(ctx, ds)
}

func (m *mockProvisionUC) EnsureManaged(ctx context.Context, d *entity.Descriptor) provision.Result {
	return m.ensureManagedFn(ctx, d)
}

// --- capabilityChecker mock ---

type mockCaps struct {
	checkFn func(ctx context.Context, d *entity.Descriptor) capability.Report
}

func (m *mockCaps) Check(ctx context.Context, d *entity.Descriptor) capability.Report {
	return m.checkFn(ctx, d)
}

// --- documentStore mock ---

type mockStore struct {
	putFn  func(ctx context.Context, collection, id string, fields map[string]any) error
	pingFn func(ctx context.Context) error
}

func (m *mockStore) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	return m.putFn(ctx, collection, id, fields)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingFn(ctx)
}

// --- managedWriter mock ---

type mockManaged struct {
	puts map[string]map[string]any
	err  error
}

func (m *mockManaged) Put(_ context.Context, index, id string, doc map[string]any) error {
	if m.err != nil {
		return m.err
	}
	if m.puts == nil {
		m.puts = make(map[string]map[string]any)
	}
	m.puts[index+"/"+id] = doc
	return nil
}

// --- db.Counter mock ---

type mockCounter struct {
	estimatedFn func(ctx context.Context, collection string) (int, error)
}

func (m *mockCounter) EstimatedCount(ctx context.Context, collection string) (int, error) {
	return m.estimatedFn(ctx, collection)
}

func (m *mockCounter) Count(context.Context, *db.FindQuery) (int, error) { return 0, nil }
