// Package embedding is a client for the sentence embedding sidecar. The
// sidecar loads its model on first request, so the client sends a one-word
// warm-up call exactly once before serving real traffic.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned by NewClient when the sidecar URL is missing.
var ErrNotConfigured = errors.New("embedding service url not configured")

// Encoder turns text into a fixed-dimension vector.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Client calls the embedding sidecar over HTTP.
type Client struct {
	url      string
	dim      int
	httpc    *http.Client
	logger   zerolog.Logger
	warmOnce sync.Once
}

// NewClient constructs a client for the sidecar at url producing dim-sized
// vectors.
func NewClient(url string, dim int, logger zerolog.Logger) (*Client, error) {
	if url == "" {
		return nil, ErrNotConfigured
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	return &Client{
		url:    url,
		dim:    dim,
		httpc:  &http.Client{Timeout: 60 * time.Second},
		logger: logger.With().Str("component", "embedding").Logger(),
	}, nil
}

// Dimension reports the vector size the sidecar produces.
func (c *Client) Dimension() int { return c.dim }

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Encode embeds one text. The first call warms the sidecar model; warm-up
// failures are logged and retried implicitly by the real request.
func (c *Client) Encode(ctx context.Context, text string) ([]float32, error) {
	c.warmOnce.Do(func() {
		if _, err := c.embed(ctx, "warmup"); err != nil {
			c.logger.Warn().Err(err).Msg("embedding warm-up failed")
		}
	})
	return c.embed(ctx, text)
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embed call failed: status %d: %s", resp.StatusCode, string(raw))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(out.Embedding) != c.dim {
		return nil, fmt.Errorf("embed returned %d dimensions, expected %d", len(out.Embedding), c.dim)
	}
	return out.Embedding, nil
}
