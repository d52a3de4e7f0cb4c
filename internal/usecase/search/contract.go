package search

import (
	"context"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
)

// Resolver searches one entity type.
type Resolver interface {
	Type() entity.Type
	Search(ctx context.Context, q query.Query) (result.Page, error)
}

// Store is the slice of the collection store used for suggestions and
// connectivity checks.
type Store interface {
	Ping(ctx context.Context) error
	Find(ctx context.Context, q *db.FindQuery) (*db.FindResult, error)
	Aggregate(ctx context.Context, a *db.Aggregation) ([]db.Document, error)
}

// Autocompleter serves prefix completions from the managed engine.
type Autocompleter interface {
	Autocomplete(ctx context.Context, index, field, prefix string, size int) ([]string, error)
}

// CapabilityChecker reports the search tiers of a collection.
type CapabilityChecker interface {
	Check(ctx context.Context, d *entity.Descriptor) capability.Report
}

// HistoryRecorder schedules history writes off the request path.
type HistoryRecorder interface {
	Enqueue(userID, q string) bool
}

// History reads and clears search history.
type History interface {
	Recent(ctx context.Context, userID string, n int) ([]domhistory.Entry, error)
	Popular(ctx context.Context, n int) ([]domhistory.Popular, error)
	Clear(ctx context.Context, userID string) error
}
