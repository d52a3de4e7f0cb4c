package capability

import (
	"context"

	"github.com/kailas-cloud/unisearch/internal/db"
)

// IndexLister reads the store's index metadata.
type IndexLister interface {
	ListIndexes(ctx context.Context, collection string) ([]db.IndexDefinition, error)
	SupportsTextSearch(ctx context.Context) bool
}

// ManagedProber issues a minimal query against one managed index.
type ManagedProber interface {
	ProbeIndex(ctx context.Context, index string) error
}
