// Package vectorindex is a client for a Pinecone style vector index REST API:
// upsert records with metadata, query by vector with an equality metadata
// filter, and delete by filter.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned by NewClient when the index host or key is
// missing.
var ErrNotConfigured = errors.New("vector index host or key not configured")

// Record is one vector with its metadata.
type Record struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Match is one query hit.
type Match struct {
	ID       string                 `json:"id"`
	Score    float32                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Index is the surface the retrieval layer depends on.
type Index interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]Match, error)
	Delete(ctx context.Context, filter map[string]interface{}) error
}

// Eq builds the equality metadata filter `{"field": {"$eq": value}}`.
func Eq(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{field: map[string]interface{}{"$eq": value}}
}

// Client calls the vector index REST API.
type Client struct {
	host   string
	key    string
	httpc  *http.Client
	logger zerolog.Logger
}

// NewClient validates credentials and constructs a client for the index at
// host.
func NewClient(host, key string, logger zerolog.Logger) (*Client, error) {
	if host == "" || key == "" {
		return nil, ErrNotConfigured
	}
	return &Client{
		host:   host,
		key:    key,
		httpc:  &http.Client{Timeout: 30 * time.Second},
		logger: logger.With().Str("component", "vectorindex").Logger(),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.key)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s call: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s failed: status %d: %s", path, resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

type upsertRequest struct {
	Vectors []Record `json:"vectors"`
}

// Upsert writes records into the index, replacing any with the same id.
func (c *Client) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return c.post(ctx, "/vectors/upsert", upsertRequest{Vectors: records}, nil)
}

type queryRequest struct {
	Vector          []float32              `json:"vector"`
	TopK            int                    `json:"topK"`
	IncludeMetadata bool                   `json:"includeMetadata"`
	Filter          map[string]interface{} `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Query returns the topK nearest records to vector, restricted by filter when
// non-nil. Metadata is always included.
func (c *Client) Query(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]Match, error) {
	var out queryResponse
	err := c.post(ctx, "/query", queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
		Filter:          filter,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Matches, nil
}

type deleteRequest struct {
	Filter map[string]interface{} `json:"filter"`
}

// Delete removes every record matching filter.
func (c *Client) Delete(ctx context.Context, filter map[string]interface{}) error {
	return c.post(ctx, "/vectors/delete", deleteRequest{Filter: filter}, nil)
}
