package provision

import (
	"context"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/db/elastic"
)

// IndexStore creates and lists store indexes.
type IndexStore interface {
	CreateIndex(ctx context.Context, collection string, def *db.IndexDefinition) error
	ListIndexes(ctx context.Context, collection string) ([]db.IndexDefinition, error)
	SupportsTextSearch(ctx context.Context) bool
}

// ManagedIndexer creates managed search indexes.
type ManagedIndexer interface {
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string, mapping elastic.Mapping) error
}

// CapabilityInvalidator drops cached capability reports.
type CapabilityInvalidator interface {
	Invalidate(collection string)
}
