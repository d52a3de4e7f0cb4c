package memory

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/unisearch/internal/db"
)

// CreateIndex registers an index definition on the collection.
// An identical index under the same name returns db.ErrIndexExists; a different
// shape under the same name, or a second text index, returns db.ErrIndexConflict.
func (s *Store) CreateIndex(ctx context.Context, collection string, def *db.IndexDefinition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	if def.HasText() && !s.textSearch {
		return &db.Error{Op: db.OpCreateIndex, Err: db.ErrCapabilityUnavailable}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection, true)

	for i := range c.indexes {
		existing := &c.indexes[i]
		if existing.Name == def.Name {
			if existing.SameShape(def) {
				return db.ErrIndexExists
			}
			return fmt.Errorf("%w: index %q exists with options %s", db.ErrIndexConflict, def.Name, existing)
		}
		if existing.HasText() && def.HasText() {
			return fmt.Errorf("%w: text index %q already defined on %s", db.ErrIndexConflict, existing.Name, collection)
		}
	}

	cp := *def
	cp.Fields = append([]db.IndexField(nil), def.Fields...)
	c.indexes = append(c.indexes, cp)
	return nil
}

// ListIndexes returns copies of the collection's index definitions in creation order.
func (s *Store) ListIndexes(ctx context.Context, collection string) ([]db.IndexDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.coll(collection, false)
	if c == nil {
		return nil, nil
	}
	out := make([]db.IndexDefinition, len(c.indexes))
	for i := range c.indexes {
		out[i] = c.indexes[i]
		out[i].Fields = append([]db.IndexField(nil), c.indexes[i].Fields...)
	}
	return out, nil
}

// DropIndex removes an index by name.
func (s *Store) DropIndex(ctx context.Context, collection, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection, false)
	if c == nil {
		return db.ErrIndexNotFound
	}
	for i := range c.indexes {
		if c.indexes[i].Name == name {
			c.indexes = append(c.indexes[:i], c.indexes[i+1:]...)
			return nil
		}
	}
	return db.ErrIndexNotFound
}
