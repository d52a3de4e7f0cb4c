package resolver

import (
	"context"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/db/elastic"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/logo"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
)

// Finder runs store queries.
type Finder interface {
	Find(ctx context.Context, q *db.FindQuery) (*db.FindResult, error)
}

// ManagedSearcher runs queries on the managed full-text engine.
type ManagedSearcher interface {
	Search(ctx context.Context, req *elastic.SearchRequest) (*elastic.SearchResult, error)
}

// CapabilityChecker reports the search tiers of a collection.
type CapabilityChecker interface {
	Check(ctx context.Context, d *entity.Descriptor) capability.Report
}

// LogoEnricher resolves logos for a batch of requests, in order.
type LogoEnricher interface {
	EnrichBatch(ctx context.Context, reqs []logo.Request) []logo.Result
}
