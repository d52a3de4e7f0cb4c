package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/unisearch/internal/db"
)

// maxResultWindow bounds LIMIT when the caller asks for every match.
const maxResultWindow = 10000

// Find runs the query through FT.SEARCH when an index can serve it, otherwise
// evaluates it over a key scan.
func (s *Store) Find(ctx context.Context, q *db.FindQuery) (*db.FindResult, error) {
	if q.Text != nil {
		index, err := s.resolveTextIndex(ctx, q)
		if err != nil {
			return nil, err
		}
		return s.search(ctx, q, index)
	}

	if s.canUseIndex(q.Index, q.Contains) {
		res, err := s.search(ctx, q, q.Index)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, db.ErrIndexNotFound) {
			return nil, err
		}
	}
	return s.scanFind(ctx, q)
}

// Count returns the exact number of matches.
func (s *Store) Count(ctx context.Context, q *db.FindQuery) (int, error) {
	counted := *q
	counted.Skip, counted.Limit, counted.Projection, counted.Sort = 0, 0, nil, nil

	if q.Text != nil || s.canUseIndex(q.Index, q.Contains) {
		index := q.Index
		if q.Text != nil {
			var err error
			if index, err = s.resolveTextIndex(ctx, q); err != nil {
				return 0, err
			}
		}
		total, err := s.searchCount(ctx, &counted, index)
		if err == nil || q.Text != nil || !errors.Is(err, db.ErrIndexNotFound) {
			return total, err
		}
	}

	docs, err := s.scanDocuments(ctx, q.Collection)
	if err != nil {
		return 0, err
	}
	var n int
	for i := range docs {
		if q.Matches(docs[i].Fields) {
			n++
		}
	}
	return n, nil
}

// EstimatedCount reads num_docs from the first collection index, falling back
// to a key scan. The index count lags behind writes while documents are indexed.
func (s *Store) EstimatedCount(ctx context.Context, collection string) (int, error) {
	names, err := s.listIndexNames(ctx, collection)
	if err == nil && len(names) > 0 {
		if info, err := s.indexInfo(ctx, collection, names[0]); err == nil {
			return info.numDocs, nil
		}
	}
	keys, err := s.scanKeys(ctx, collection)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *Store) canUseIndex(index string, contains *db.Substring) bool {
	// valkey-search has no bare filter queries and neither engine has
	// case-insensitive infix matching, so both go through the scan path.
	return index != "" && contains == nil && s.textSearch
}

// resolveTextIndex returns the hinted index, or the first collection index with TEXT fields.
func (s *Store) resolveTextIndex(ctx context.Context, q *db.FindQuery) (string, error) {
	if !s.textSearch {
		return "", &db.Error{Op: db.OpSearch, Err: db.ErrCapabilityUnavailable}
	}
	if q.Index != "" {
		return q.Index, nil
	}
	defs, err := s.ListIndexes(ctx, q.Collection)
	if err != nil {
		return "", err
	}
	for i := range defs {
		if defs[i].HasText() {
			return defs[i].Name, nil
		}
	}
	return "", &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
}

func (s *Store) search(ctx context.Context, q *db.FindQuery, index string) (*db.FindResult, error) {
	args := []string{s.indexName(q.Collection, index), buildQueryString(q)}
	withScores := q.Text != nil
	if withScores {
		args = append(args, "WITHSCORES")
	}
	if len(q.Sort) > 0 {
		dir := "ASC"
		if q.Sort[0].Desc {
			dir = "DESC"
		}
		args = append(args, "SORTBY", q.Sort[0].Field, dir)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = maxResultWindow
	}
	args = append(args,
		"LIMIT", strconv.Itoa(max(q.Skip, 0)), strconv.Itoa(limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, searchErr(err)
	}

	res, err := parseSearchResult(raw, s.keyPrefix(q.Collection), withScores)
	if err != nil {
		return nil, err
	}

	// SORTBY takes one key; secondary keys and relevance tie-breaks are applied within the page.
	db.SortDocuments(res.Documents, q.Sort, withScores)
	for i := range res.Documents {
		res.Documents[i].Fields = db.Project(res.Documents[i].Fields, q.Projection)
	}
	return res, nil
}

func (s *Store) searchCount(ctx context.Context, q *db.FindQuery, index string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").
		Args(s.indexName(q.Collection, index), buildQueryString(q), "LIMIT", "0", "0", "DIALECT", "2").
		Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, searchErr(err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

func (s *Store) scanFind(ctx context.Context, q *db.FindQuery) (*db.FindResult, error) {
	docs, err := s.scanDocuments(ctx, q.Collection)
	if err != nil {
		return nil, err
	}

	matched := docs[:0]
	for i := range docs {
		if q.Matches(docs[i].Fields) {
			matched = append(matched, docs[i])
		}
	}
	db.SortDocuments(matched, q.Sort, false)
	page := db.Window(matched, q.Skip, q.Limit)

	out := make([]db.Document, len(page))
	for i := range page {
		out[i] = db.Document{ID: page[i].ID, Fields: db.Project(page[i].Fields, q.Projection)}
	}
	return &db.FindResult{Total: len(matched), Documents: out}, nil
}

// --- Result parsing ---

// parseSearchResult reads [total, key, (score,) fields, ...]. The JSON document
// arrives under the "$" field.
func parseSearchResult(raw []rueidis.RedisMessage, prefix string, withScores bool) (*db.FindResult, error) {
	if len(raw) == 0 {
		return &db.FindResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	stride := 2
	if withScores {
		stride = 3
	}

	docs := make([]db.Document, 0, (len(raw)-1)/stride)
	for i := 1; i+stride-1 < len(raw); i += stride {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		var score float64
		if withScores {
			scoreStr, err := raw[i+1].ToString()
			if err != nil {
				continue
			}
			if score, err = strconv.ParseFloat(scoreStr, 64); err != nil {
				continue
			}
		}

		pairs, err := raw[i+stride-1].ToArray()
		if err != nil {
			continue
		}
		fields, err := documentFromPairs(pairs)
		if err != nil {
			return nil, err
		}

		docs = append(docs, db.Document{
			ID:     strings.TrimPrefix(key, prefix),
			Score:  score,
			Fields: fields,
		})
	}

	return &db.FindResult{Total: int(total), Documents: docs}, nil
}

func documentFromPairs(pairs []rueidis.RedisMessage) (map[string]any, error) {
	fields := make(map[string]any, len(pairs)/2)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, err := pairs[j].ToString()
		if err != nil {
			continue
		}
		value, err := pairs[j+1].ToString()
		if err != nil {
			continue
		}
		if name == "$" {
			doc, err := decodeRoot(value)
			if err != nil {
				return nil, err
			}
			for k, v := range doc {
				fields[k] = v
			}
			continue
		}
		fields[name] = value
	}
	return fields, nil
}

// searchErr maps a missing index to db.ErrIndexNotFound so callers can fall back.
func searchErr(err error) error {
	if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
		return &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}
	return &db.Error{Op: db.OpSearch, Err: err}
}
