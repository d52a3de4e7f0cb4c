// Package query holds the validated search query shared by resolvers and the aggregator.
package query

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/unisearch/internal/domain/entity"
)

// Query limits.
const (
	// MaxQueryLength is the maximum allowed query length in runes.
	MaxQueryLength   = 256
	DefaultMinLength = 2
	DefaultLimit     = 20
	DefaultMaxLimit  = 50
)

// Params is the raw, unvalidated query input.
type Params struct {
	Text    string
	Type    string
	Filters map[string]string
	Page    int
	Limit   int
	Cursor  string
	SortBy  string
	UserID  string
}

// Limits bounds paging and query length. Zero values take the defaults.
type Limits struct {
	MinLength    int
	DefaultLimit int
	MaxLimit     int
}

func (l Limits) withDefaults() Limits {
	if l.MinLength <= 0 {
		l.MinLength = DefaultMinLength
	}
	if l.DefaultLimit <= 0 {
		l.DefaultLimit = DefaultLimit
	}
	if l.MaxLimit <= 0 {
		l.MaxLimit = DefaultMaxLimit
	}
	if l.DefaultLimit > l.MaxLimit {
		l.DefaultLimit = l.MaxLimit
	}
	return l
}

// Query is a validated search query.
type Query struct {
	text      string
	typ       entity.Type
	filters   map[string]string
	page      int
	limit     int
	cursor    string
	sortBy    string
	userID    string
	minLength int
}

// New validates and normalizes search parameters.
// Defaults: page=1, limit=DefaultLimit clamped to MaxLimit.
func New(p Params, l Limits) (Query, error) {
	l = l.withDefaults()

	text := strings.TrimSpace(p.Text)
	if utf8.RuneCountInString(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}

	var typ entity.Type
	if strings.TrimSpace(p.Type) != "" {
		t, ok := entity.ParseType(p.Type)
		if !ok {
			return Query{}, fmt.Errorf("invalid type: %q", p.Type)
		}
		typ = t
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	if limit < 1 {
		limit = l.DefaultLimit
	}
	if limit > l.MaxLimit {
		limit = l.MaxLimit
	}

	filters := make(map[string]string, len(p.Filters))
	for k, v := range p.Filters {
		filters[k] = v
	}

	return Query{
		text:      text,
		typ:       typ,
		filters:   filters,
		page:      page,
		limit:     limit,
		cursor:    strings.TrimSpace(p.Cursor),
		sortBy:    strings.TrimSpace(p.SortBy),
		userID:    strings.TrimSpace(p.UserID),
		minLength: l.MinLength,
	}, nil
}

// Text returns the trimmed query text.
func (q Query) Text() string { return q.text }

// Type returns the type restriction and whether one is set.
func (q Query) Type() (entity.Type, bool) { return q.typ, q.typ != "" }

// Filters returns the raw entity filters. The map must not be modified.
func (q Query) Filters() map[string]string { return q.filters }

// Page returns the 1-based page number.
func (q Query) Page() int { return q.page }

// Limit returns the page size.
func (q Query) Limit() int { return q.limit }

// Cursor returns the opaque cursor, empty in offset mode.
func (q Query) Cursor() string { return q.cursor }

// SortBy returns the requested sort key.
func (q Query) SortBy() string { return q.sortBy }

// UserID returns the caller's user id, empty for anonymous searches.
func (q Query) UserID() string { return q.userID }

// MinLength returns the minimum query length in runes.
func (q Query) MinLength() int { return q.minLength }

// Trivial reports whether the query is too short to search.
func (q Query) Trivial() bool {
	return utf8.RuneCountInString(q.text) < q.minLength
}

// WithLimit returns a copy with the page size replaced, keeping page 1 and no cursor.
// The aggregator uses it for the per-type limit of a fan-out.
func (q Query) WithLimit(limit int) Query {
	out := q
	out.limit = limit
	out.page = 1
	out.cursor = ""
	return out
}

// WithType returns a copy restricted to one entity type.
func (q Query) WithType(t entity.Type) Query {
	out := q
	out.typ = t
	return out
}
