package chi

import (
	"context"

	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
	healthuc "github.com/kailas-cloud/unisearch/internal/usecase/health"
	"github.com/kailas-cloud/unisearch/internal/usecase/provision"
)

// Searcher serves the search endpoints.
type Searcher interface {
	GlobalSearch(ctx context.Context, q query.Query) (result.Global, error)
	Suggestions(ctx context.Context, partial string) ([]result.Suggestion, error)
	Recent(ctx context.Context, userID string) ([]domhistory.Entry, error)
	Popular(ctx context.Context) ([]domhistory.Popular, error)
	ClearHistory(ctx context.Context, userID string) error
}

// CapabilityChecker reports collection capabilities.
type CapabilityChecker interface {
	Check(ctx context.Context, d *entity.Descriptor) capability.Report
}

// Provisioner creates store and managed indexes.
type Provisioner interface {
	EnsureAll(ctx context.Context, descriptors []*entity.Descriptor) []provision.Result
	EnsureManaged(ctx context.Context, d *entity.Descriptor) provision.Result
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
