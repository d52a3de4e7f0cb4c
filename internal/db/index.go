package db

import (
	"errors"
	"sort"
	"strconv"
)

// IndexFieldType enumerates supported index field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is an exact-match tag field.
	IndexFieldTag
	// IndexFieldText is a weighted full-text field.
	IndexFieldText
)

// String returns the FT schema keyword for the field type.
func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldNumeric:
		return "NUMERIC"
	case IndexFieldTag:
		return "TAG"
	case IndexFieldText:
		return "TEXT"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
	}
}

// IndexField describes a single field in an index schema.
type IndexField struct {
	Name string
	Type IndexFieldType
	// Path is the document field the index reads. Empty means Name.
	Path string

	// Weight is the static relevance weight of a TEXT field (0 means 1).
	Weight int
	// Sortable keeps the field value in the index for SORTBY.
	Sortable bool

	// TAG options
	TagSeparator     string
	TagCaseSensitive bool
}

// EffectiveWeight returns the text weight with the implicit default applied.
func (f *IndexField) EffectiveWeight() int {
	if f.Weight <= 0 {
		return 1
	}
	return f.Weight
}

// SourceField returns the document field backing the index field.
func (f *IndexField) SourceField() string {
	if f.Path == "" {
		return f.Name
	}
	return f.Path
}

// IndexDefinition is a complete index definition scoped to one collection.
type IndexDefinition struct {
	Name   string
	Fields []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		if f.Weight < 0 {
			return errors.New("negative weight for field " + f.Name)
		}
		if f.Weight > 0 && f.Type != IndexFieldText {
			return errors.New("weight is only valid on TEXT fields: " + f.Name)
		}
	}

	return nil
}

// HasText reports whether the index carries text-index semantics.
func (idx *IndexDefinition) HasText() bool {
	for i := range idx.Fields {
		if idx.Fields[i].Type == IndexFieldText {
			return true
		}
	}
	return false
}

// TextFields returns the TEXT fields of the index in declaration order.
func (idx *IndexDefinition) TextFields() []IndexField {
	var out []IndexField
	for i := range idx.Fields {
		if idx.Fields[i].Type == IndexFieldText {
			out = append(out, idx.Fields[i])
		}
	}
	return out
}

// Covers reports whether every named field is present in the index.
func (idx *IndexDefinition) Covers(fields ...string) bool {
	have := make(map[string]struct{}, len(idx.Fields))
	for i := range idx.Fields {
		have[idx.Fields[i].Name] = struct{}{}
	}
	for _, f := range fields {
		if _, ok := have[f]; !ok {
			return false
		}
	}
	return true
}

// SameFields reports whether both indexes declare the same field names and types,
// regardless of order and options.
func (idx *IndexDefinition) SameFields(other *IndexDefinition) bool {
	if len(idx.Fields) != len(other.Fields) {
		return false
	}
	a := fieldKeys(idx.Fields, false)
	b := fieldKeys(other.Fields, false)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SameShape reports whether both indexes are interchangeable: same fields,
// types, weights and sortable flags. Names are not compared.
func (idx *IndexDefinition) SameShape(other *IndexDefinition) bool {
	if len(idx.Fields) != len(other.Fields) {
		return false
	}
	a := fieldKeys(idx.Fields, true)
	b := fieldKeys(other.Fields, true)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func fieldKeys(fields []IndexField, withOptions bool) []string {
	keys := make([]string, len(fields))
	for i := range fields {
		f := &fields[i]
		k := f.Name + "|" + f.Type.String()
		if f.Path != "" && f.Path != f.Name {
			k += "|" + f.Path
		}
		if withOptions {
			if f.Type == IndexFieldText {
				k += "|w" + strconv.Itoa(f.EffectiveWeight())
			}
			if f.Sortable {
				k += "|s"
			}
			if f.Type == IndexFieldTag && f.TagCaseSensitive {
				k += "|cs"
			}
		}
		keys[i] = k
	}
	sort.Strings(keys)
	return keys
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
