// Package memory is an in-process db.Store used for local development and tests.
// It mirrors the Redis backend's semantics, including one text index per collection.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/unisearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithoutTextSearch makes the store behave like a backend without text indexing.
func WithoutTextSearch() Option {
	return func(s *Store) { s.textSearch = false }
}

// Store keeps collections in maps guarded by a single RW mutex.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	textSearch  bool
}

type collection struct {
	docs    map[string]map[string]any
	indexes []db.IndexDefinition
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]*collection),
		textSearch:  true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// SupportsTextSearch reports whether text indexes can be created and queried.
func (s *Store) SupportsTextSearch(_ context.Context) bool { return s.textSearch }

// coll returns the collection, creating it when create is true. Caller holds the lock.
func (s *Store) coll(name string, create bool) *collection {
	c, ok := s.collections[name]
	if !ok && create {
		c = &collection{docs: make(map[string]map[string]any)}
		s.collections[name] = c
	}
	return c
}

// Put stores a document, replacing any previous version.
func (s *Store) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := normalize(fields)
	if err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll(collection, true).docs[id] = doc
	return nil
}

// Delete removes a document; a missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.coll(collection, false); c != nil {
		delete(c.docs, id)
	}
	return nil
}

// DeleteMany removes every document matching the query's filter and substring clauses.
func (s *Store) DeleteMany(ctx context.Context, collection string, q *db.FindQuery) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection, false)
	if c == nil {
		return 0, nil
	}
	var n int
	for id, doc := range c.docs {
		if q.Matches(doc) {
			delete(c.docs, id)
			n++
		}
	}
	return n, nil
}

// Increment applies op in one critical section.
func (s *Store) Increment(ctx context.Context, collection, id string, op db.IncrementOp) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	extra, err := normalize(op.Set)
	if err != nil {
		return &db.Error{Op: db.OpIncrement, Err: err}
	}
	initial, err := normalize(op.SetOnInsert)
	if err != nil {
		return &db.Error{Op: db.OpIncrement, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection, true)
	doc, ok := c.docs[id]
	if !ok {
		doc = map[string]any{op.Field: float64(0)}
		for k, v := range initial {
			doc[k] = v
		}
		c.docs[id] = doc
	}
	for k, v := range extra {
		doc[k] = v
	}
	cur, _ := db.NumberOf(doc[op.Field])
	doc[op.Field] = cur + float64(op.Delta)
	return nil
}

// Find evaluates the query over the collection.
func (s *Store) Find(ctx context.Context, q *db.FindQuery) (*db.FindResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched, err := s.match(q)
	if err != nil {
		return nil, err
	}

	db.SortDocuments(matched, q.Sort, q.Text != nil)
	page := db.Window(matched, q.Skip, q.Limit)

	out := make([]db.Document, len(page))
	for i := range page {
		out[i] = db.Document{
			ID:     page[i].ID,
			Score:  page[i].Score,
			Fields: db.Project(page[i].Fields, q.Projection),
		}
	}
	return &db.FindResult{Total: len(matched), Documents: out}, nil
}

// Count returns the exact number of documents matching the query.
func (s *Store) Count(ctx context.Context, q *db.FindQuery) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched, err := s.match(q)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// EstimatedCount returns the collection size.
func (s *Store) EstimatedCount(ctx context.Context, collection string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c := s.coll(collection, false); c != nil {
		return len(c.docs), nil
	}
	return 0, nil
}

// Aggregate filters the collection then groups in process.
func (s *Store) Aggregate(ctx context.Context, a *db.Aggregation) ([]db.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.GroupBy == "" {
		return nil, fmt.Errorf("group by field is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched, err := s.match(&db.FindQuery{Collection: a.Collection, Filter: a.Filter, Contains: a.Contains})
	if err != nil {
		return nil, err
	}
	return db.GroupDocuments(matched, a), nil
}

// match returns matching documents with text scores. Caller holds the read lock.
// Fields are shared with the stored map and must not be mutated.
func (s *Store) match(q *db.FindQuery) ([]db.Document, error) {
	c := s.coll(q.Collection, false)

	var textFields []db.IndexField
	if q.Text != nil {
		if !s.textSearch {
			return nil, &db.Error{Op: db.OpFind, Err: db.ErrCapabilityUnavailable}
		}
		idx := textIndex(c, q.Index)
		if idx == nil {
			return nil, &db.Error{Op: db.OpFind, Err: db.ErrIndexNotFound}
		}
		textFields = idx.TextFields()
	}
	if c == nil {
		return nil, nil
	}

	var out []db.Document
	for id, doc := range c.docs {
		if !q.Matches(doc) {
			continue
		}
		var score float64
		if q.Text != nil {
			score = db.ScoreText(doc, textFields, q.Text.Query)
			if score == 0 {
				continue
			}
		}
		out = append(out, db.Document{ID: id, Score: score, Fields: doc})
	}
	return out, nil
}

func textIndex(c *collection, name string) *db.IndexDefinition {
	if c == nil {
		return nil
	}
	for i := range c.indexes {
		idx := &c.indexes[i]
		if !idx.HasText() {
			continue
		}
		if name == "" || idx.Name == name {
			return idx
		}
	}
	return nil
}

// normalize round-trips fields through JSON so stored values have the same
// types a JSON document store would return.
func normalize(fields map[string]any) (map[string]any, error) {
	if len(fields) == 0 {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}
