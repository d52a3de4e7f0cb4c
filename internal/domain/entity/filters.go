package entity

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
)

// FilterKind selects how a raw filter parameter is coerced.
type FilterKind int

const (
	// FilterTag matches one exact value.
	FilterTag FilterKind = iota
	// FilterTagList matches any of a comma-separated list of values.
	FilterTagList
	// FilterMinimum is a numeric floor (field >= value).
	FilterMinimum
	// FilterUnanswered restricts to question posts without answers when "true".
	FilterUnanswered
)

// FilterSpec maps a request parameter onto a document field.
type FilterSpec struct {
	Param string
	Field string
	Kind  FilterKind
}

// AlwaysFilter excludes documents whose field holds any of the values.
type AlwaysFilter struct {
	Field   string
	Exclude []string
}

// Filter params accepted by the search endpoint.
const (
	ParamCountry        = "country"
	ParamState          = "state"
	ParamUniversityID   = "universityId"
	ParamCategory       = "category"
	ParamUnansweredOnly = "unansweredOnly"
	ParamSubject        = "subject"
	ParamCourse         = "course"
	ParamNoteType       = "noteType"
	ParamMinRating      = "minRating"
	ParamTags           = "tags"
)

// Params returns every filter parameter name known to any entity.
func Params() []string {
	return []string{
		ParamCountry, ParamState, ParamUniversityID, ParamCategory, ParamUnansweredOnly,
		ParamSubject, ParamCourse, ParamNoteType, ParamMinRating, ParamTags,
	}
}

const (
	answerCountField = "answerCount"
	questionCategory = "question"
)

// BuildFilter coerces raw request filters into the collection's filter
// expression, always-applied exclusions included. Parameters the entity does
// not declare are skipped silently; malformed values are skipped and their
// parameter names returned.
func (d *Descriptor) BuildFilter(raw map[string]string) (filter.Expression, []string) {
	var (
		expr    filter.Expression
		ignored []string
	)

	for _, a := range d.Always {
		if c, err := filter.NewMatchAny(a.Field, a.Exclude...); err == nil {
			expr = expr.AndNot(c)
		}
	}

	for _, spec := range d.Filters {
		v, ok := raw[spec.Param]
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		switch spec.Kind {
		case FilterTag:
			c, err := filter.NewMatch(spec.Field, v)
			if err != nil {
				ignored = append(ignored, spec.Param)
				continue
			}
			expr = expr.And(c)

		case FilterTagList:
			values := splitList(v)
			c, err := filter.NewMatchAny(spec.Field, values...)
			if err != nil {
				ignored = append(ignored, spec.Param)
				continue
			}
			expr = expr.And(c)

		case FilterMinimum:
			n, err := strconv.ParseFloat(v, 64)
			if err != nil || n < 0 {
				ignored = append(ignored, spec.Param)
				continue
			}
			c, err := filter.AtLeast(spec.Field, n)
			if err != nil {
				ignored = append(ignored, spec.Param)
				continue
			}
			expr = expr.And(c)

		case FilterUnanswered:
			on, err := strconv.ParseBool(v)
			if err != nil {
				ignored = append(ignored, spec.Param)
				continue
			}
			if !on {
				continue
			}
			none, _ := filter.AtMost(answerCountField, 0)
			expr = expr.And(none)
			if _, hasCategory := raw[ParamCategory]; !hasCategory || strings.TrimSpace(raw[ParamCategory]) == "" {
				q, _ := filter.NewMatch(spec.Field, questionCategory)
				expr = expr.And(q)
			}
		}
	}
	return expr, ignored
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[strings.ToLower(p)] {
			continue
		}
		seen[strings.ToLower(p)] = true
		out = append(out, p)
	}
	return out
}
