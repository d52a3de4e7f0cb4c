package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// SearchRequest is a weighted multi-field query with filters in the same request.
type SearchRequest struct {
	Index string
	Query string
	// Fields carry boosts in Elasticsearch notation, e.g. "name^10".
	Fields  []string
	Filter  []map[string]any
	MustNot []map[string]any
	Sort    []map[string]any
	Source  []string
	From    int
	Size    int
}

// Hit is one search hit.
type Hit struct {
	ID     string
	Score  float64
	Source map[string]any
}

// SearchResult is the outcome of Search.
type SearchResult struct {
	Total int
	Hits  []Hit
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string         `json:"_id"`
			Score  *float64       `json:"_score"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ProbeIndex issues a minimal match-all query to check that the index can answer.
func (c *Client) ProbeIndex(ctx context.Context, index string) error {
	body := map[string]any{
		"size":  1,
		"query": map[string]any{"query_string": map[string]any{"query": "*"}},
	}
	_, err := c.search(ctx, index, body)
	return err
}

// Search runs a multi_match query with AUTO fuzziness.
func (c *Client) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	return c.search(ctx, req.Index, buildSearchBody(req))
}

func buildSearchBody(req *SearchRequest) map[string]any {
	boolQuery := map[string]any{
		"must": []map[string]any{{
			"multi_match": map[string]any{
				"query":     req.Query,
				"fields":    req.Fields,
				"fuzziness": "AUTO",
			},
		}},
	}
	if len(req.Filter) > 0 {
		boolQuery["filter"] = req.Filter
	}
	if len(req.MustNot) > 0 {
		boolQuery["must_not"] = req.MustNot
	}

	body := map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"from":  req.From,
		"size":  req.Size,
	}
	if len(req.Sort) > 0 {
		body["sort"] = req.Sort
		body["track_scores"] = true
	}
	if len(req.Source) > 0 {
		body["_source"] = req.Source
	}
	return body
}

// Autocomplete returns distinct field values matching the prefix, using the
// search_as_you_type subfields of the autocomplete index.
func (c *Client) Autocomplete(ctx context.Context, index, field, prefix string, size int) ([]string, error) {
	body := map[string]any{
		"size": size,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  prefix,
				"type":   "bool_prefix",
				"fields": []string{field, field + "._2gram", field + "._3gram"},
			},
		},
		"_source": []string{field},
	}
	res, err := c.search(ctx, index, body)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(res.Hits))
	out := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		v, ok := h.Source[field].(string)
		if !ok || v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, index string, body map[string]any) (*SearchResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	req := esapi.SearchRequest{
		Index:          []string{c.IndexName(index)},
		Body:           bytes.NewReader(payload),
		TrackTotalHits: true,
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("search "+index, res)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &SearchResult{Total: parsed.Hits.Total.Value, Hits: make([]Hit, 0, len(parsed.Hits.Hits))}
	for _, h := range parsed.Hits.Hits {
		hit := Hit{ID: h.ID, Source: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}
