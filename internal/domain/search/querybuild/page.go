package querybuild

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
)

// DefaultLimit is the page size when none is given.
const DefaultLimit = 20

// Page is the requested window.
type Page struct {
	Page        int
	Limit       int
	Cursor      string
	CursorField string
}

// PageInfo is the window actually applied.
type PageInfo struct {
	Page       int
	Limit      int
	CursorMode bool
}

// Paginate applies the window to q. A numeric cursor selects cursor mode:
// documents strictly below the cursor, skip 0, newest first unless a sort is
// set. Anything else is offset mode, with invalid cursors ignored.
func Paginate(q *db.FindQuery, p Page, maxLimit int) PageInfo {
	if maxLimit < 1 {
		maxLimit = DefaultLimit
	}
	limit := p.Limit
	if limit < 1 {
		limit = min(DefaultLimit, maxLimit)
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	q.Limit = limit

	if p.Cursor != "" && p.CursorField != "" {
		if c, err := strconv.ParseFloat(p.Cursor, 64); err == nil {
			if below, err := filter.Below(p.CursorField, c); err == nil {
				q.Filter = q.Filter.And(below)
				q.Skip = 0
				if len(q.Sort) == 0 {
					q.Sort = []db.SortField{{Field: p.CursorField, Desc: true}}
				}
				return PageInfo{Page: 1, Limit: limit, CursorMode: true}
			}
		}
	}

	page := p.Page
	if page < 1 || p.Cursor != "" {
		page = 1
	}
	q.Skip = (page - 1) * limit
	return PageInfo{Page: page, Limit: limit}
}

// NextCursor returns the cursor continuing after docs, or "" when the page
// was not full or the last document has no cursor value.
func NextCursor(docs []db.Document, cursorField string, limit int) string {
	if limit < 1 || len(docs) < limit {
		return ""
	}
	v, ok := db.NumberOf(docs[len(docs)-1].Fields[cursorField])
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CountDocuments uses the estimated count for an unfiltered collection and an
// exact count otherwise.
func CountDocuments(ctx context.Context, c db.Counter, collection string, expr filter.Expression) (int, error) {
	if expr.IsEmpty() {
		return c.EstimatedCount(ctx, collection)
	}
	return c.Count(ctx, &db.FindQuery{Collection: collection, Filter: expr})
}
