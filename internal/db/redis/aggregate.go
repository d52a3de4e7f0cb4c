package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/unisearch/internal/db"
)

// Aggregate groups matching documents via FT.AGGREGATE on the hinted index,
// or in process over a key scan when no index can serve the pipeline.
func (s *Store) Aggregate(ctx context.Context, a *db.Aggregation) ([]db.Document, error) {
	if a.GroupBy == "" {
		return nil, &db.Error{Op: db.OpAggregate, Err: errors.New("group by field is required")}
	}

	if s.canUseIndex(a.Index, a.Contains) {
		rows, err := s.aggregate(ctx, a)
		if err == nil {
			return rows, nil
		}
		if !errors.Is(err, db.ErrIndexNotFound) {
			return nil, err
		}
	}

	docs, err := s.scanDocuments(ctx, a.Collection)
	if err != nil {
		return nil, err
	}
	q := &db.FindQuery{Filter: a.Filter, Contains: a.Contains}
	matched := docs[:0]
	for i := range docs {
		if q.Matches(docs[i].Fields) {
			matched = append(matched, docs[i])
		}
	}
	return db.GroupDocuments(matched, a), nil
}

func (s *Store) aggregate(ctx context.Context, a *db.Aggregation) ([]db.Document, error) {
	args := buildAggregateArgs(s.indexName(a.Collection, a.Index), a)
	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return nil, &db.Error{Op: db.OpAggregate, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}
	return parseAggregateResult(raw, a)
}

func buildAggregateArgs(index string, a *db.Aggregation) []string {
	query := buildFilter(a.Filter)
	if query == "" {
		query = "*"
	}
	args := []string{index, query, "GROUPBY", "1", "@" + a.GroupBy}
	for _, r := range a.Reducers {
		switch r.Kind {
		case db.ReduceCount:
			args = append(args, "REDUCE", "COUNT", "0", "AS", r.As)
		case db.ReduceSum:
			args = append(args, "REDUCE", "SUM", "1", "@"+r.Field, "AS", r.As)
		}
	}
	if a.SortBy != "" {
		dir := "ASC"
		if a.Desc {
			dir = "DESC"
		}
		args = append(args, "SORTBY", "2", "@"+a.SortBy, dir)
	}
	if a.Limit > 0 {
		args = append(args, "LIMIT", "0", strconv.Itoa(a.Limit))
	}
	return append(args, "DIALECT", "2")
}

// parseAggregateResult reads [count, row, row, ...] where each row is a flat
// field/value list. Reducer columns are parsed as numbers.
func parseAggregateResult(raw []rueidis.RedisMessage, a *db.Aggregation) ([]db.Document, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	reducers := make(map[string]bool, len(a.Reducers))
	for _, r := range a.Reducers {
		reducers[r.As] = true
	}

	rows := make([]db.Document, 0, len(raw)-1)
	for i := 1; i < len(raw); i++ {
		pairs, err := raw[i].ToArray()
		if err != nil {
			return nil, fmt.Errorf("parse aggregate row: %w", err)
		}
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
			if reducers[name] {
				n, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, fmt.Errorf("parse reducer %s: %w", name, err)
				}
				fields[name] = n
				continue
			}
			fields[name] = value
		}
		key, _ := fields[a.GroupBy].(string)
		rows = append(rows, db.Document{ID: key, Fields: fields})
	}
	return rows, nil
}
