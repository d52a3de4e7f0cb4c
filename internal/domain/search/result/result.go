// Package result holds search hits and the aggregated global response.
package result

import (
	"bytes"
	"encoding/json"

	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/search/mode"
)

// SlotErrorUnavailable marks a type slot whose resolver failed.
const SlotErrorUnavailable = "unavailable"

// Item is a single search hit projected to the entity summary.
type Item struct {
	Type    entity.Type    `json:"type"`
	ID      string         `json:"id"`
	Score   *float64       `json:"score,omitempty"`
	Summary map[string]any `json:"summary"`
}

// Page is one resolver's answer.
type Page struct {
	Items []Item
	Total int
	// Mode is the strategy tier that produced the page.
	Mode mode.Mode
	// NextCursor is set in cursor mode when more items may follow.
	NextCursor string
}

// Slot is the per-type section of a global response.
type Slot struct {
	Type  entity.Type
	Items []Item
	Total int
	Error string
}

// Global is the aggregated search response.
type Global struct {
	Query      string
	Slots      []Slot
	Page       int
	Limit      int
	NextCursor string
}

// Neutral returns the response for a query that was not searched:
// every slot empty, totals zero.
func Neutral(query string, page, limit int) Global {
	g := Global{Query: query, Page: page, Limit: limit}
	for _, t := range entity.Ordered() {
		g.Slots = append(g.Slots, Slot{Type: t, Items: []Item{}})
	}
	return g
}

// Slot returns the slot of a type, if present.
func (g *Global) Slot(t entity.Type) (Slot, bool) {
	for _, s := range g.Slots {
		if s.Type == t {
			return s, true
		}
	}
	return Slot{}, false
}

// MarshalJSON writes results, counts and errors keyed by type in slot order.
// encoding/json sorts map keys, so the objects are written by hand.
func (g Global) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"query":`)
	if err := writeValue(&buf, g.Query); err != nil {
		return nil, err
	}

	buf.WriteString(`,"results":{`)
	for i, s := range g.Slots {
		if i > 0 {
			buf.WriteByte(',')
		}
		items := s.Items
		if items == nil {
			items = []Item{}
		}
		if err := writeKeyValue(&buf, string(s.Type), items); err != nil {
			return nil, err
		}
	}

	buf.WriteString(`},"counts":{`)
	for i, s := range g.Slots {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyValue(&buf, string(s.Type), s.Total); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')

	first := true
	for _, s := range g.Slots {
		if s.Error == "" {
			continue
		}
		if first {
			buf.WriteString(`,"errors":{`)
			first = false
		} else {
			buf.WriteByte(',')
		}
		if err := writeKeyValue(&buf, string(s.Type), s.Error); err != nil {
			return nil, err
		}
	}
	if !first {
		buf.WriteByte('}')
	}

	buf.WriteString(`,"page":`)
	if err := writeValue(&buf, g.Page); err != nil {
		return nil, err
	}
	buf.WriteString(`,"limit":`)
	if err := writeValue(&buf, g.Limit); err != nil {
		return nil, err
	}
	if g.NextCursor != "" {
		buf.WriteString(`,"nextCursor":`)
		if err := writeValue(&buf, g.NextCursor); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKeyValue(buf *bytes.Buffer, key string, v any) error {
	if err := writeValue(buf, key); err != nil {
		return err
	}
	buf.WriteByte(':')
	return writeValue(buf, v)
}

func writeValue(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// Suggestion is one typeahead entry.
type Suggestion struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// Suggestion types.
const (
	SuggestionUniversity = "university"
	SuggestionSubject    = "subject"
	SuggestionTag        = "tag"
)
