package filter

import "fmt"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a structured filter with must/should/must_not boolean semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// And returns a copy of e with extra must conditions appended.
// Conditions beyond MaxConditionsPerGroup are dropped.
func (e Expression) And(conds ...Condition) Expression {
	out := e.clone()
	for _, c := range conds {
		if len(out.must) >= MaxConditionsPerGroup {
			break
		}
		out.must = append(out.must, c)
	}
	return out
}

// AndNot returns a copy of e with extra must-not conditions appended.
func (e Expression) AndNot(conds ...Condition) Expression {
	out := e.clone()
	for _, c := range conds {
		if len(out.mustNot) >= MaxConditionsPerGroup {
			break
		}
		out.mustNot = append(out.mustNot, c)
	}
	return out
}

// Merge combines two expressions group by group.
func (e Expression) Merge(other Expression) Expression {
	out := e.And(other.must...).AndNot(other.mustNot...)
	for _, c := range other.should {
		if len(out.should) >= MaxConditionsPerGroup {
			break
		}
		out.should = append(out.should, c)
	}
	return out
}

func (e Expression) clone() Expression {
	return Expression{
		must:    append([]Condition(nil), e.must...),
		should:  append([]Condition(nil), e.should...),
		mustNot: append([]Condition(nil), e.mustNot...),
	}
}

// Condition is a single filter clause: a tag match, an any-of tag match, or a numeric range.
type Condition struct {
	key           string
	match         string
	anyOf         []string
	rangeExpr     *Range
	caseSensitive bool
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// NewExactMatch creates a tag match that compares values case-sensitively.
// Identifiers such as user ids use it; NewMatch folds case.
func NewExactMatch(key, match string) (Condition, error) {
	c, err := NewMatch(key, match)
	if err != nil {
		return Condition{}, err
	}
	c.caseSensitive = true
	return c, nil
}

// NewMatchAny creates a condition satisfied when the field equals any of values.
// Empty values are skipped; a single remaining value collapses to NewMatch.
func NewMatchAny(key string, values ...string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	vals := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			vals = append(vals, v)
		}
	}
	switch len(vals) {
	case 0:
		return Condition{}, fmt.Errorf("at least one value is required for key %q", key)
	case 1:
		return Condition{key: key, match: vals[0]}, nil
	}
	if len(vals) > MaxConditionsPerGroup {
		return Condition{}, fmt.Errorf("too many values for key %q (max %d)", key, MaxConditionsPerGroup)
	}
	return Condition{key: key, anyOf: vals}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// AnyOf returns the accepted values of an any-of condition.
func (c Condition) AnyOf() []string { return c.anyOf }

// Values returns every accepted value of a match or any-of condition.
func (c Condition) Values() []string {
	if c.match != "" {
		return []string{c.match}
	}
	return c.anyOf
}

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match or any-of condition.
func (c Condition) IsMatch() bool { return c.match != "" || len(c.anyOf) > 0 }

// CaseSensitive reports whether match values must equal the field exactly.
func (c Condition) CaseSensitive() bool { return c.caseSensitive }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

// Contains reports whether v satisfies every boundary of r.
func (r Range) Contains(v float64) bool {
	if r.gt != nil && v <= *r.gt {
		return false
	}
	if r.gte != nil && v < *r.gte {
		return false
	}
	if r.lt != nil && v >= *r.lt {
		return false
	}
	if r.lte != nil && v > *r.lte {
		return false
	}
	return true
}

// Below is a shorthand for a strict upper bound range condition.
func Below(key string, v float64) (Condition, error) {
	r, err := NewRangeFilter(nil, nil, &v, nil)
	if err != nil {
		return Condition{}, err
	}
	return NewRange(key, r)
}

// AtLeast is a shorthand for an inclusive lower bound range condition.
func AtLeast(key string, v float64) (Condition, error) {
	r, err := NewRangeFilter(nil, &v, nil, nil)
	if err != nil {
		return Condition{}, err
	}
	return NewRange(key, r)
}

// AtMost is a shorthand for an inclusive upper bound range condition.
func AtMost(key string, v float64) (Condition, error) {
	r, err := NewRangeFilter(nil, nil, nil, &v)
	if err != nil {
		return Condition{}, err
	}
	return NewRange(key, r)
}
