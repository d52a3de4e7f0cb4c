package querybuild

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/unisearch/internal/db"
)

// DefaultStaleness is how long an estimated count is reused.
const DefaultStaleness = 60 * time.Second

// StaleCounter reuses estimated counts for up to the staleness window.
// Exact counts always reach the underlying counter.
type StaleCounter struct {
	next      db.Counter
	staleness time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]estimate
}

type estimate struct {
	n  int
	at time.Time
}

// NewStaleCounter wraps next. A non-positive staleness uses DefaultStaleness.
func NewStaleCounter(next db.Counter, staleness time.Duration) *StaleCounter {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	return &StaleCounter{
		next:      next,
		staleness: staleness,
		now:       time.Now,
		entries:   make(map[string]estimate),
	}
}

// EstimatedCount returns the cached estimate while it is fresh.
func (c *StaleCounter) EstimatedCount(ctx context.Context, collection string) (int, error) {
	now := c.now()
	c.mu.Lock()
	e, ok := c.entries[collection]
	c.mu.Unlock()
	if ok && now.Sub(e.at) < c.staleness {
		return e.n, nil
	}

	n, err := c.next.EstimatedCount(ctx, collection)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.entries[collection] = estimate{n: n, at: now}
	c.mu.Unlock()
	return n, nil
}

// Count passes through.
func (c *StaleCounter) Count(ctx context.Context, q *db.FindQuery) (int, error) {
	return c.next.Count(ctx, q)
}
