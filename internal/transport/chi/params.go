package chi

import (
	"fmt"
	"net/url"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/unisearch/internal/domain/entity"
)

// SearchParams are the query parameters of GET /search.
type SearchParams struct {
	Q      *string
	Type   *string
	Page   *int
	Limit  *int
	Cursor *string
	SortBy *string
	// Filters holds the entity filter parameters present on the request.
	Filters map[string]string
}

// bindSearchParams reads GET /search parameters the way generated handlers do.
func bindSearchParams(values url.Values) (SearchParams, error) {
	var p SearchParams
	bindings := []struct {
		name string
		dest any
	}{
		{"q", &p.Q},
		{"type", &p.Type},
		{"page", &p.Page},
		{"limit", &p.Limit},
		{"cursor", &p.Cursor},
		{"sortBy", &p.SortBy},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, values, b.dest); err != nil {
			return SearchParams{}, fmt.Errorf("invalid format for parameter %s: %w", b.name, err)
		}
	}

	p.Filters = make(map[string]string)
	for _, name := range entity.Params() {
		var v *string
		if err := runtime.BindQueryParameter("form", true, false, name, values, &v); err != nil {
			return SearchParams{}, fmt.Errorf("invalid format for parameter %s: %w", name, err)
		}
		if v != nil {
			p.Filters[name] = *v
		}
	}
	return p, nil
}

// bindQuery reads the single q parameter of GET /search/suggestions.
func bindQuery(values url.Values) (string, error) {
	var q *string
	if err := runtime.BindQueryParameter("form", true, false, "q", values, &q); err != nil {
		return "", fmt.Errorf("invalid format for parameter q: %w", err)
	}
	return deref(q), nil
}

// bindFlag reads an optional boolean parameter.
func bindFlag(values url.Values, name string) (bool, error) {
	var v *bool
	if err := runtime.BindQueryParameter("form", true, false, name, values, &v); err != nil {
		return false, fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return v != nil && *v, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
