package history

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/unisearch/internal/domain/search/querybuild"
)

// store is the consumer interface for history rows (ISP).
type store interface {
	Increment(ctx context.Context, collection, id string, op db.IncrementOp) error
	Find(ctx context.Context, q *db.FindQuery) (*db.FindResult, error)
	Aggregate(ctx context.Context, a *db.Aggregation) ([]db.Document, error)
	DeleteMany(ctx context.Context, collection string, q *db.FindQuery) (int, error)
}

// Document fields of a history row.
const (
	fieldUserID    = "userId"
	fieldQuery     = "query"
	fieldCount     = "count"
	fieldLastUsed  = "lastUsed"
	fieldCreatedAt = "createdAt"
)

// Repo implements usecase/history.Repository.
type Repo struct {
	store store
	desc  *entity.Descriptor
}

// New creates a history repository.
func New(s store) *Repo {
	return &Repo{store: s, desc: entity.History()}
}

// Upsert counts one use of the (user, normalized query) pair, creating the row
// on first use. The row id is derived from the pair, so there is never a second row.
func (r *Repo) Upsert(ctx context.Context, userID, normalized string, at time.Time) error {
	ms := at.UnixMilli()
	err := r.store.Increment(ctx, r.desc.Collection, domhistory.Key(userID, normalized), db.IncrementOp{
		Field: fieldCount,
		Delta: 1,
		Set: map[string]any{
			fieldUserID:   userID,
			fieldQuery:    normalized,
			fieldLastUsed: ms,
		},
		SetOnInsert: map[string]any{fieldCreatedAt: ms},
	})
	if err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}
	return nil
}

// Recent returns the user's last n queries, most recent first.
func (r *Repo) Recent(ctx context.Context, userID string, n int) ([]domhistory.Entry, error) {
	f, err := userFilter(userID)
	if err != nil {
		return nil, err
	}
	res, err := r.store.Find(ctx, &db.FindQuery{
		Collection: r.desc.Collection,
		Index:      r.desc.IndexFor(fieldUserID, fieldLastUsed),
		Filter:     f,
		Sort:       []db.SortField{{Field: fieldLastUsed, Desc: true}},
		Limit:      n,
	})
	if err != nil {
		return nil, fmt.Errorf("find recent history: %w", err)
	}

	out := make([]domhistory.Entry, 0, len(res.Documents))
	for i := range res.Documents {
		out = append(out, entryFromFields(res.Documents[i].Fields))
	}
	return out, nil
}

// Popular returns the n queries with the highest count summed over all users.
func (r *Repo) Popular(ctx context.Context, n int) ([]domhistory.Popular, error) {
	agg := querybuild.TopN(querybuild.GroupSum(r.desc.Collection, fieldQuery, fieldCount), n)
	agg.Index = r.desc.IndexFor(fieldQuery, fieldCount)

	rows, err := r.store.Aggregate(ctx, agg)
	if err != nil {
		return nil, fmt.Errorf("aggregate popular history: %w", err)
	}

	out := make([]domhistory.Popular, 0, len(rows))
	for i := range rows {
		q, _ := rows[i].Fields[fieldQuery].(string)
		if q == "" {
			continue
		}
		total, _ := db.NumberOf(rows[i].Fields[querybuild.TotalColumn])
		out = append(out, domhistory.Popular{Query: q, Count: int(total)})
	}
	return out, nil
}

// DeleteByUser removes every row of the user. Deleting nothing is not an error.
func (r *Repo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	f, err := userFilter(userID)
	if err != nil {
		return 0, err
	}
	n, err := r.store.DeleteMany(ctx, r.desc.Collection, &db.FindQuery{
		Collection: r.desc.Collection,
		Index:      r.desc.IndexFor(fieldUserID),
		Filter:     f,
	})
	if err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	return n, nil
}

func userFilter(userID string) (filter.Expression, error) {
	c, err := filter.NewExactMatch(fieldUserID, userID)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("user filter: %w", err)
	}
	return filter.Expression{}.And(c), nil
}
