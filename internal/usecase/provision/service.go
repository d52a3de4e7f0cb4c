// Package provision creates the weighted text and auxiliary indexes each
// collection declares. Runs are idempotent; conflicts are reported, never resolved.
package provision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/db/elastic"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
)

// IndexError is a failed index of a provisioning run.
type IndexError struct {
	Index string
	Err   error
	// Conflict marks an incompatible existing index that needs manual cleanup.
	Conflict bool
}

func (e IndexError) Error() string { return e.Index + ": " + e.Err.Error() }
func (e IndexError) Unwrap() error { return e.Err }

// MarshalJSON writes the error message as a string.
func (e IndexError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index    string `json:"index"`
		Error    string `json:"error"`
		Conflict bool   `json:"conflict"`
	}{e.Index, e.Err.Error(), e.Conflict})
}

// Result is the outcome of provisioning one collection.
type Result struct {
	Collection string       `json:"collection"`
	Created    []string     `json:"created"`
	Skipped    []string     `json:"skipped"`
	Errors     []IndexError `json:"errors,omitempty"`
}

// Conflicts returns the conflicting indexes of the run.
func (r Result) Conflicts() []IndexError {
	var out []IndexError
	for _, e := range r.Errors {
		if e.Conflict {
			out = append(out, e)
		}
	}
	return out
}

// Service provisions store and managed indexes.
type Service struct {
	store   IndexStore
	managed ManagedIndexer
	cache   CapabilityInvalidator
	logger  *zap.Logger
}

// New creates a Service. managed and cache may be nil.
func New(store IndexStore, managed ManagedIndexer, cache CapabilityInvalidator, logger *zap.Logger) *Service {
	return &Service{store: store, managed: managed, cache: cache, logger: logger}
}

// EnsureIndexes creates the collection's text index, then its auxiliary
// indexes in declaration order. A failed index never stops the ones after it.
func (s *Service) EnsureIndexes(ctx context.Context, d *entity.Descriptor) Result {
	res := Result{Collection: d.Collection, Created: []string{}, Skipped: []string{}}
	defer s.invalidate(d.Collection)

	existing, err := s.store.ListIndexes(ctx, d.Collection)
	if err != nil {
		// every index fails the same way; report it once per index
		for _, def := range s.definitions(ctx, d) {
			res.Errors = append(res.Errors, IndexError{Index: def.Name, Err: fmt.Errorf("list indexes: %w", err)})
		}
		return res
	}

	if d.HasText() && !s.store.SupportsTextSearch(ctx) {
		s.logger.Info("Store has no text search, skipping text index",
			zap.String("collection", d.Collection),
			zap.String("index", d.TextIndexName()),
		)
		res.Skipped = append(res.Skipped, d.TextIndexName())
	}

	for _, def := range s.definitions(ctx, d) {
		if err := checkExisting(def, existing); err != nil {
			if errors.Is(err, errSame) {
				res.Skipped = append(res.Skipped, def.Name)
				continue
			}
			res.Errors = append(res.Errors, s.conflict(d.Collection, def.Name, err))
			continue
		}

		err := s.store.CreateIndex(ctx, d.Collection, def)
		switch {
		case err == nil:
			res.Created = append(res.Created, def.Name)
			existing = append(existing, *def)
		case errors.Is(err, db.ErrIndexExists):
			res.Skipped = append(res.Skipped, def.Name)
		case errors.Is(err, db.ErrIndexConflict):
			res.Errors = append(res.Errors, s.conflict(d.Collection, def.Name, err))
		default:
			s.logger.Error("Failed to create index",
				zap.String("collection", d.Collection),
				zap.String("index", def.Name),
				zap.Error(err),
			)
			res.Errors = append(res.Errors, IndexError{Index: def.Name, Err: err})
		}
	}

	s.logger.Info("Indexes provisioned",
		zap.String("collection", d.Collection),
		zap.Strings("created", res.Created),
		zap.Strings("skipped", res.Skipped),
		zap.Int("errors", len(res.Errors)),
	)
	return res
}

// EnsureAll provisions every descriptor in order.
func (s *Service) EnsureAll(ctx context.Context, descriptors []*entity.Descriptor) []Result {
	out := make([]Result, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, s.EnsureIndexes(ctx, d))
	}
	return out
}

// EnsureManaged creates the collection's managed search and autocomplete
// indexes when missing. Existing indexes are skipped without comparing mappings.
func (s *Service) EnsureManaged(ctx context.Context, d *entity.Descriptor) Result {
	res := Result{Collection: d.Collection, Created: []string{}, Skipped: []string{}}
	if s.managed == nil {
		return res
	}
	defer s.invalidate(d.Collection)

	ensure := func(name string, mapping elastic.Mapping) {
		if name == "" {
			return
		}
		ok, err := s.managed.IndexExists(ctx, name)
		if err != nil {
			res.Errors = append(res.Errors, IndexError{Index: name, Err: err})
			return
		}
		if ok {
			res.Skipped = append(res.Skipped, name)
			return
		}
		err = s.managed.CreateIndex(ctx, name, mapping)
		switch {
		case err == nil:
			res.Created = append(res.Created, name)
		case errors.Is(err, elastic.ErrIndexExists):
			res.Skipped = append(res.Skipped, name)
		default:
			s.logger.Error("Failed to create managed index",
				zap.String("collection", d.Collection),
				zap.String("index", name),
				zap.Error(err),
			)
			res.Errors = append(res.Errors, IndexError{Index: name, Err: err})
		}
	}

	ensure(d.Managed.Search, SearchMapping(d))
	ensure(d.Managed.Autocomplete, AutocompleteMapping(d))
	return res
}

// definitions lists the indexes to create: text first, then auxiliaries.
func (s *Service) definitions(ctx context.Context, d *entity.Descriptor) []*db.IndexDefinition {
	var defs []*db.IndexDefinition
	if d.HasText() && s.store.SupportsTextSearch(ctx) {
		defs = append(defs, d.TextIndex())
	}
	return append(defs, d.AuxIndexDefinitions()...)
}

func (s *Service) conflict(collection, index string, err error) IndexError {
	s.logger.Warn("Index conflict, manual cleanup required",
		zap.String("collection", collection),
		zap.String("index", index),
		zap.Error(err),
	)
	return IndexError{Index: index, Err: err, Conflict: true}
}

func (s *Service) invalidate(collection string) {
	if s.cache != nil {
		s.cache.Invalidate(collection)
	}
}

var errSame = errors.New("same index exists")

// checkExisting compares def with the listed indexes: errSame when an
// identical index holds the name, a conflict when the name holds another
// shape or another name holds the same fields, nil when def is new.
func checkExisting(def *db.IndexDefinition, existing []db.IndexDefinition) error {
	for i := range existing {
		e := &existing[i]
		if e.Name == def.Name {
			if e.SameShape(def) {
				return errSame
			}
			return fmt.Errorf("%w: index %q exists with options %s", db.ErrIndexConflict, def.Name, e.String())
		}
	}
	for i := range existing {
		e := &existing[i]
		if e.SameFields(def) {
			return fmt.Errorf("%w: index %q covers the same fields as %q", db.ErrIndexConflict, e.Name, def.Name)
		}
	}
	return nil
}
