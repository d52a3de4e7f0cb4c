// Package elastic is the managed full-text backend built on go-elasticsearch.
// It serves weighted multi-field search with fuzziness and autocomplete for
// collections mirrored into Elasticsearch.
package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Sentinel errors for managed search operations.
var (
	// ErrIndexUnavailable means the managed index is missing or cannot answer queries.
	ErrIndexUnavailable = errors.New("elastic: index unavailable")
	// ErrIndexExists is returned by CreateIndex when the index is already present.
	ErrIndexExists = errors.New("elastic: index already exists")
)

// Config holds connection parameters for the managed search cluster.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	// IndexPrefix is prepended to every logical index name.
	IndexPrefix string
	// Transport overrides the HTTP transport (tests, custom TLS).
	Transport http.RoundTripper
}

// Client wraps an Elasticsearch client scoped to an index prefix.
type Client struct {
	es     *elasticsearch.Client
	prefix string
}

// New creates a Client. It does not contact the cluster.
func New(cfg Config) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("addresses is required")
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Client{es: es, prefix: cfg.IndexPrefix}, nil
}

// IndexName returns the physical name of a logical index.
func (c *Client) IndexName(name string) string {
	return c.prefix + name
}

// Ping checks cluster connectivity.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping: %s", res.Status())
	}
	return nil
}

// WaitForReady retries Ping with exponential backoff until timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = timeout

	if err := backoff.Retry(func() error { return c.Ping(ctx) }, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("timeout waiting for elasticsearch: %w", err)
	}
	return nil
}

// errorBody is the error envelope returned by Elasticsearch.
type errorBody struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// responseError converts a failed response into an error, mapping missing
// and existing indexes to the package sentinels.
func responseError(op string, res *esapi.Response) error {
	raw, _ := io.ReadAll(res.Body)
	var body errorBody
	_ = json.Unmarshal(raw, &body)

	detail := body.Error.Reason
	if detail == "" {
		detail = strings.TrimSpace(string(raw))
	}

	switch {
	case body.Error.Type == "index_not_found_exception" || res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w: %s", op, ErrIndexUnavailable, detail)
	case body.Error.Type == "resource_already_exists_exception":
		return fmt.Errorf("%s: %w", op, ErrIndexExists)
	default:
		return fmt.Errorf("%s: %s: %s", op, res.Status(), detail)
	}
}
