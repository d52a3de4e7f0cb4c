package history

import (
	"context"
	"time"

	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
)

// Repository defines the storage contract for search history.
type Repository interface {
	Upsert(ctx context.Context, userID, normalized string, at time.Time) error
	Recent(ctx context.Context, userID string, n int) ([]domhistory.Entry, error)
	Popular(ctx context.Context, n int) ([]domhistory.Popular, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
}

// Handler consumes history events: the service applies them to storage,
// the stream producer publishes them.
type Handler interface {
	Handle(ctx context.Context, e domhistory.Event) error
}
