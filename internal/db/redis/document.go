package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/unisearch/internal/db"
)

const fetchBatchSize = 200

// Put stores a document as JSON, replacing any previous version.
func (s *Store) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("encode document: %w", err)}
	}
	cmd := s.b().Arbitrary("JSON.SET").Keys(s.docKey(collection, id)).Args("$", string(data)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: err}
	}
	return nil
}

// Delete removes a document. A missing key is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	cmd := s.b().Del().Key(s.docKey(collection, id)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// DeleteMany removes every document matching the query and returns how many were deleted.
func (s *Store) DeleteMany(ctx context.Context, collection string, q *db.FindQuery) (int, error) {
	docs, err := s.scanDocuments(ctx, collection)
	if err != nil {
		return 0, err
	}

	var cmds rueidis.Commands
	for i := range docs {
		if q.Matches(docs[i].Fields) {
			cmds = append(cmds, s.b().Del().Key(s.docKey(collection, docs[i].ID)).Build())
		}
	}
	if len(cmds) == 0 {
		return 0, nil
	}

	var deleted int
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		n, err := res.AsInt64()
		if err != nil {
			return deleted, &db.Error{Op: db.OpDel, Err: err}
		}
		deleted += int(n)
	}
	return deleted, nil
}

// Increment applies op inside MULTI/EXEC. A missing document is created from
// SetOnInsert with the counter at zero before the increment.
func (s *Store) Increment(ctx context.Context, collection, id string, op db.IncrementOp) error {
	key := s.docKey(collection, id)
	initial := make(map[string]any, len(op.SetOnInsert)+1)
	for k, v := range op.SetOnInsert {
		initial[k] = v
	}
	initial[op.Field] = 0
	seed, err := json.Marshal(initial)
	if err != nil {
		return &db.Error{Op: db.OpIncrement, Err: err}
	}

	cmds := rueidis.Commands{
		s.b().Multi().Build(),
		s.b().Arbitrary("JSON.SET").Keys(key).Args("$", string(seed), "NX").Build(),
	}

	names := make([]string, 0, len(op.Set))
	for k := range op.Set {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		v, err := json.Marshal(op.Set[k])
		if err != nil {
			return &db.Error{Op: db.OpIncrement, Err: fmt.Errorf("encode %s: %w", k, err)}
		}
		cmds = append(cmds, s.b().Arbitrary("JSON.SET").Keys(key).Args("$."+k, string(v)).Build())
	}
	cmds = append(cmds,
		s.b().Arbitrary("JSON.NUMINCRBY").Keys(key).Args("$."+op.Field, strconv.FormatInt(op.Delta, 10)).Build(),
		s.b().Exec().Build(),
	)

	results := s.client.DoMulti(ctx, cmds...)
	for _, res := range results[:len(results)-1] {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpIncrement, Err: err}
		}
	}
	replies, err := results[len(results)-1].ToArray()
	if err != nil {
		return &db.Error{Op: db.OpIncrement, Err: err}
	}
	for i := range replies {
		if err := replies[i].Error(); err != nil && !rueidis.IsRedisNil(err) {
			return &db.Error{Op: db.OpIncrement, Err: err}
		}
	}
	return nil
}

// scanKeys iterates every key of the collection.
func (s *Store) scanKeys(ctx context.Context, collection string) ([]string, error) {
	var keys []string
	var cursor uint64
	pattern := s.keyPrefix(collection) + "*"

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// scanDocuments loads every document of the collection with SCAN + JSON.GET.
// Keys deleted between the two steps are skipped.
func (s *Store) scanDocuments(ctx context.Context, collection string) ([]db.Document, error) {
	keys, err := s.scanKeys(ctx, collection)
	if err != nil {
		return nil, err
	}

	prefix := s.keyPrefix(collection)
	docs := make([]db.Document, 0, len(keys))
	for start := 0; start < len(keys); start += fetchBatchSize {
		end := min(start+fetchBatchSize, len(keys))
		batch := keys[start:end]

		cmds := make(rueidis.Commands, len(batch))
		for i, key := range batch {
			cmds[i] = s.b().Arbitrary("JSON.GET").Keys(key).Args("$").Build()
		}
		for i, res := range s.client.DoMulti(ctx, cmds...) {
			raw, err := res.ToString()
			if err != nil {
				if rueidis.IsRedisNil(err) {
					continue
				}
				return nil, &db.Error{Op: db.OpJSONGet, Err: fmt.Errorf("key %s: %w", batch[i], err)}
			}
			fields, err := decodeRoot(raw)
			if err != nil || fields == nil {
				continue
			}
			docs = append(docs, db.Document{ID: strings.TrimPrefix(batch[i], prefix), Fields: fields})
		}
	}
	return docs, nil
}

// decodeRoot decodes a JSON.GET "$" reply, which wraps the document in an array.
func decodeRoot(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	if raw[0] == '{' {
		var m map[string]any
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		return m, nil
	}
	var wrapped []map[string]any
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if len(wrapped) == 0 {
		return nil, nil
	}
	return wrapped[0], nil
}
