package enrichment

import (
	"sync"
	"time"

	"github.com/kailas-cloud/unisearch/internal/domain/logo"
	"github.com/kailas-cloud/unisearch/internal/metrics"
)

// DefaultCacheTTL is how long a resolved logo is reused.
const DefaultCacheTTL = 24 * time.Hour

type cacheEntry struct {
	result  logo.Result
	expires time.Time
}

// Cache keeps resolved logos by request key until they expire.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates a Cache. A non-positive ttl uses DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{ttl: ttl, entries: make(map[string]cacheEntry), now: time.Now}
}

// Get returns the live entry for key. Expired entries are evicted.
func (c *Cache) Get(key string) (logo.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.now().After(e.expires) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		metrics.EnrichmentCacheTotal.WithLabelValues("miss").Inc()
		return logo.Result{}, false
	}
	metrics.EnrichmentCacheTotal.WithLabelValues("hit").Inc()
	return e.result, true
}

// Set stores r under key for the cache TTL.
func (c *Cache) Set(key string, r logo.Result) {
	c.SetFor(key, r, c.ttl)
}

// SetFor stores r under key for ttl, capped at the cache TTL.
func (c *Cache) SetFor(key string, r logo.Result, ttl time.Duration) {
	if ttl <= 0 || ttl > c.ttl {
		ttl = c.ttl
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{result: r, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
