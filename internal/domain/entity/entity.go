// Package entity describes the searchable collections: their text weights,
// filterable attributes, summary projections and index layout.
package entity

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/unisearch/internal/db"
)

// Type is a searchable entity type.
type Type string

// Entity types in fixed priority order.
const (
	Universities Type = "universities"
	Users        Type = "users"
	Posts        Type = "posts"
	Notes        Type = "notes"
	Reviews      Type = "reviews"
)

// Ordered returns every entity type in response priority order.
func Ordered() []Type {
	return []Type{Universities, Users, Posts, Notes, Reviews}
}

// IsValid checks if the type is one of the searchable entity types.
func (t Type) IsValid() bool {
	switch t {
	case Universities, Users, Posts, Notes, Reviews:
		return true
	}
	return false
}

// ParseType parses a case-insensitive type name. Singular forms are accepted.
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "universities", "university":
		return Universities, true
	case "users", "user":
		return Users, true
	case "posts", "post":
		return Posts, true
	case "notes", "note":
		return Notes, true
	case "reviews", "review":
		return Reviews, true
	}
	return "", false
}

// WeightedField is a text field with its static relevance weight.
type WeightedField struct {
	Field  string
	Weight int
}

// ManagedIndexes names the managed full-text indexes of a collection.
// Search is the primary index; Autocomplete is optional.
type ManagedIndexes struct {
	Search       string
	Autocomplete string
}

// Names returns the registered managed index names, primary first.
func (m ManagedIndexes) Names() []string {
	var out []string
	if m.Search != "" {
		out = append(out, m.Search)
	}
	if m.Autocomplete != "" {
		out = append(out, m.Autocomplete)
	}
	return out
}

// Descriptor declares how one collection is indexed and searched.
type Descriptor struct {
	Type       Type
	Collection string

	TextFields   []WeightedField
	DisplayField string
	// Summary is the projection returned in search results.
	Summary []string

	TagFields []string
	// ExactTags are tag fields matched case-sensitively, such as owner ids.
	ExactTags     []string
	NumericFields []string
	Filters       []FilterSpec
	// Always lists filters applied to every query regardless of input.
	Always []AlwaysFilter

	// AuxIndexes lists secondary indexes as field lists, in creation order.
	AuxIndexes [][]string
	Managed    ManagedIndexes

	CursorField string
}

// TextIndexName is the name of the weighted text index.
func (d *Descriptor) TextIndexName() string {
	return d.Collection + "_text"
}

// AuxIndexName joins the collection and field names.
func (d *Descriptor) AuxIndexName(fields []string) string {
	return d.Collection + "_" + strings.Join(fields, "_")
}

// HasText reports whether the collection declares weighted text fields.
func (d *Descriptor) HasText() bool {
	return len(d.TextFields) > 0
}

// TextIndex builds the weighted text index. Filterable and sortable fields are
// part of the same index so filters and sorts run in one query.
func (d *Descriptor) TextIndex() *db.IndexDefinition {
	if !d.HasText() {
		return nil
	}
	b := db.NewIndex(d.TextIndexName())
	seen := make(map[string]bool)
	for _, f := range d.TagFields {
		d.addTag(b, f)
		seen[f] = true
	}
	for _, f := range d.TextFields {
		if seen[f.Field] {
			// tag fields keep exact-match filtering; text matching reads a second alias
			b.TextFrom(f.Field+"Text", f.Field, f.Weight)
			continue
		}
		b.Text(f.Field, f.Weight)
		seen[f.Field] = true
	}
	for _, f := range d.numericWithCursor() {
		if !seen[f] {
			b.SortableNumeric(f)
			seen[f] = true
		}
	}
	return b.MustBuild()
}

// AuxIndexDefinitions builds the auxiliary indexes in declaration order.
func (d *Descriptor) AuxIndexDefinitions() []*db.IndexDefinition {
	out := make([]*db.IndexDefinition, 0, len(d.AuxIndexes))
	for _, fields := range d.AuxIndexes {
		b := db.NewIndex(d.AuxIndexName(fields))
		for _, f := range fields {
			if d.IsTag(f) {
				d.addTag(b, f)
			} else {
				b.SortableNumeric(f)
			}
		}
		out = append(out, b.MustBuild())
	}
	return out
}

// IndexFor returns the name of the first index covering every field, or "".
func (d *Descriptor) IndexFor(fields ...string) string {
	if d.HasText() && d.TextIndex().Covers(fields...) {
		return d.TextIndexName()
	}
	for _, def := range d.AuxIndexDefinitions() {
		if def.Covers(fields...) {
			return def.Name
		}
	}
	return ""
}

// ManagedFields returns the text fields with boosts in managed-search notation.
func (d *Descriptor) ManagedFields() []string {
	out := make([]string, len(d.TextFields))
	for i, f := range d.TextFields {
		out[i] = f.Field + "^" + strconv.Itoa(f.Weight)
	}
	return out
}

// IsTag reports whether field is an exact-match tag field.
func (d *Descriptor) IsTag(field string) bool {
	for _, f := range d.TagFields {
		if f == field {
			return true
		}
	}
	return false
}

// IsExactTag reports whether the tag field is matched case-sensitively.
func (d *Descriptor) IsExactTag(field string) bool {
	for _, f := range d.ExactTags {
		if f == field {
			return true
		}
	}
	return false
}

func (d *Descriptor) addTag(b *db.IndexBuilder, field string) {
	if d.IsExactTag(field) {
		b.TagWithOpts(field, "", true)
		return
	}
	b.Tag(field)
}

func (d *Descriptor) numericWithCursor() []string {
	out := append([]string(nil), d.NumericFields...)
	if d.CursorField != "" && !containsString(out, d.CursorField) {
		out = append(out, d.CursorField)
	}
	return out
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
