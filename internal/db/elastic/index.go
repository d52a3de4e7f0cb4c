package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Field types used in index mappings.
const (
	TypeText            = "text"
	TypeKeyword         = "keyword"
	TypeDouble          = "double"
	TypeLong            = "long"
	TypeSearchAsYouType = "search_as_you_type"
)

// Mapping maps field names to Elasticsearch field types.
type Mapping map[string]string

// RawSuffix names the keyword subfield of text fields, used for sorting.
const RawSuffix = ".raw"

// Body renders the index creation body. Keyword fields are lowercase-normalized
// so tag filters match case-insensitively. Text fields carry a normalized
// keyword subfield for sorting.
func (m Mapping) Body() map[string]any {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	props := make(map[string]any, len(m))
	for _, name := range names {
		typ := m[name]
		prop := map[string]any{"type": typ}
		switch typ {
		case TypeKeyword:
			prop["normalizer"] = "lowercase"
		case TypeText:
			prop["fields"] = map[string]any{
				"raw": map[string]any{"type": TypeKeyword, "normalizer": "lowercase"},
			}
		}
		props[name] = prop
	}
	return map[string]any{
		"settings": map[string]any{
			"analysis": map[string]any{
				"normalizer": map[string]any{
					"lowercase": map[string]any{"type": "custom", "filter": []string{"lowercase"}},
				},
			},
		},
		"mappings": map[string]any{"properties": props},
	}
}

// IndexExists reports whether the logical index exists.
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := c.es.Indices.Exists(
		[]string{c.IndexName(index)},
		c.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", index, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return false, nil
	case res.IsError():
		return false, responseError("exists "+index, res)
	default:
		return true, nil
	}
}

// CreateIndex creates the logical index with the given mapping.
func (c *Client) CreateIndex(ctx context.Context, index string, mapping Mapping) error {
	payload, err := json.Marshal(mapping.Body())
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	req := esapi.IndicesCreateRequest{
		Index: c.IndexName(index),
		Body:  bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index "+index, res)
	}
	return nil
}

// Put indexes a document under id, replacing any previous version.
func (c *Client) Put(ctx context.Context, index, id string, doc map[string]any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      c.IndexName(index),
		DocumentID: id,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index document %s/%s: %w", index, id, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index document "+index, res)
	}
	return nil
}
