package provision

import (
	"github.com/kailas-cloud/unisearch/internal/db/elastic"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
)

// SearchMapping is the managed search index mapping of a collection.
// Tag fields are keywords, text fields analyzed text, and numbers doubles.
// A field that is both tag and text stays a keyword so term filters keep working.
func SearchMapping(d *entity.Descriptor) elastic.Mapping {
	m := elastic.Mapping{}
	for _, f := range d.TextFields {
		m[f.Field] = elastic.TypeText
	}
	for _, f := range d.TagFields {
		m[f] = elastic.TypeKeyword
	}
	for _, f := range d.NumericFields {
		m[f] = elastic.TypeDouble
	}
	if d.CursorField != "" {
		m[d.CursorField] = elastic.TypeLong
	}
	for _, f := range d.Summary {
		if _, ok := m[f]; !ok {
			m[f] = elastic.TypeKeyword
		}
	}
	return m
}

// AutocompleteMapping indexes the display field for prefix queries.
func AutocompleteMapping(d *entity.Descriptor) elastic.Mapping {
	return elastic.Mapping{d.DisplayField: elastic.TypeSearchAsYouType}
}
