// Package docintel is a client for an Azure Form Recognizer style document
// analysis service. It submits a document for analysis, polls the returned
// operation until it settles, and exposes the structured result (key/value
// pairs, tables in row-major cell order, paragraphs, full content text) that
// the report extractor consumes.
package docintel

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

const apiVersion = "2023-07-31"

// ErrNotConfigured is returned by NewClient when the service endpoint or key
// is missing. It fires before any network I/O.
var ErrNotConfigured = errors.New("document analysis endpoint or key not configured")

// KeyValuePair is a labelled field detected in the document.
type KeyValuePair struct {
	Key   string
	Value string
}

// Table is a detected table with cells flattened in row-major order.
type Table struct {
	RowCount    int
	ColumnCount int
	Cells       []string
}

// Row returns the cells of row i, or nil when the table shape is inconsistent.
func (t *Table) Row(i int) []string {
	start := i * t.ColumnCount
	end := start + t.ColumnCount
	if start < 0 || end > len(t.Cells) {
		return nil
	}
	return t.Cells[start:end]
}

// AnalysisResult is the structured output of a document analysis.
type AnalysisResult struct {
	Content       string
	KeyValuePairs []KeyValuePair
	Tables        []Table
	Paragraphs    []string
}

// Client calls the document analysis REST API.
type Client struct {
	endpoint     string
	key          string
	httpc        *http.Client
	pollInterval time.Duration
	pollBudget   time.Duration
	logger       zerolog.Logger
}

// NewClient validates credentials and constructs a client. A missing endpoint
// or key is a configuration error surfaced here, never at call time.
func NewClient(endpoint, key string, logger zerolog.Logger) (*Client, error) {
	if endpoint == "" || key == "" {
		return nil, ErrNotConfigured
	}
	return &Client{
		endpoint:     endpoint,
		key:          key,
		httpc:        &http.Client{Timeout: 30 * time.Second},
		pollInterval: 2 * time.Second,
		pollBudget:   2 * time.Minute,
		logger:       logger.With().Str("component", "docintel").Logger(),
	}, nil
}

// wire types for the analyze operation

type contentRef struct {
	Content string `json:"content"`
}

type wireKeyValuePair struct {
	Key   *contentRef `json:"key"`
	Value *contentRef `json:"value"`
}

type wireCell struct {
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

type wireTable struct {
	RowCount    int        `json:"rowCount"`
	ColumnCount int        `json:"columnCount"`
	Cells       []wireCell `json:"cells"`
}

type analyzeResult struct {
	Content       string             `json:"content"`
	KeyValuePairs []wireKeyValuePair `json:"keyValuePairs"`
	Tables        []wireTable        `json:"tables"`
	Paragraphs    []contentRef       `json:"paragraphs"`
}

type operationStatus struct {
	Status        string         `json:"status"`
	Error         *operationErr  `json:"error"`
	AnalyzeResult *analyzeResult `json:"analyzeResult"`
}

type operationErr struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Analyze submits document bytes with the prebuilt-document model and blocks
// until the analysis operation settles or ctx expires.
func (c *Client) Analyze(ctx context.Context, document []byte) (*AnalysisResult, error) {
	opURL, err := c.submit(ctx, document)
	if err != nil {
		return nil, err
	}
	return c.poll(ctx, opURL)
}

func (c *Client) submit(ctx context.Context, document []byte) (string, error) {
	url := fmt.Sprintf("%s/formrecognizer/documentModels/prebuilt-document:analyze?api-version=%s", c.endpoint, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit document for analysis: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("analyze request rejected: status %d: %s", resp.StatusCode, string(body))
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", fmt.Errorf("analyze response missing Operation-Location header")
	}
	return opURL, nil
}

func (c *Client) poll(ctx context.Context, opURL string) (*AnalysisResult, error) {
	deadline := time.Now().Add(c.pollBudget)
	for {
		status, err := c.fetchStatus(ctx, opURL)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case "succeeded":
			if status.AnalyzeResult == nil {
				return nil, fmt.Errorf("analysis succeeded but result is empty")
			}
			return mapResult(status.AnalyzeResult), nil
		case "failed":
			msg := "unknown"
			if status.Error != nil {
				msg = fmt.Sprintf("%s: %s", status.Error.Code, status.Error.Message)
			}
			return nil, fmt.Errorf("document analysis failed: %s", msg)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("document analysis did not settle within %s", c.pollBudget)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) fetchStatus(ctx context.Context, opURL string) (*operationStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch analysis status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("analysis status request failed: status %d: %s", resp.StatusCode, string(body))
	}

	var status operationStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode analysis status: %w", err)
	}
	return &status, nil
}

// maxTableDim bounds table dimensions reported by the analysis service so a
// bad payload cannot drive a huge or negative allocation.
const maxTableDim = 1000

func clampDim(n int) int {
	if n < 0 {
		return 0
	}
	if n > maxTableDim {
		return maxTableDim
	}
	return n
}

func mapResult(r *analyzeResult) *AnalysisResult {
	out := &AnalysisResult{Content: r.Content}

	for _, kv := range r.KeyValuePairs {
		pair := KeyValuePair{}
		if kv.Key != nil {
			pair.Key = kv.Key.Content
		}
		if kv.Value != nil {
			pair.Value = kv.Value.Content
		}
		out.KeyValuePairs = append(out.KeyValuePairs, pair)
	}

	for _, wt := range r.Tables {
		rows := clampDim(wt.RowCount)
		cols := clampDim(wt.ColumnCount)
		t := Table{
			RowCount:    rows,
			ColumnCount: cols,
			Cells:       make([]string, rows*cols),
		}
		for _, cell := range wt.Cells {
			if cell.RowIndex < 0 || cell.RowIndex >= rows || cell.ColumnIndex < 0 || cell.ColumnIndex >= cols {
				continue
			}
			t.Cells[cell.RowIndex*cols+cell.ColumnIndex] = cell.Content
		}
		out.Tables = append(out.Tables, t)
	}

	for _, p := range r.Paragraphs {
		out.Paragraphs = append(out.Paragraphs, p.Content)
	}

	return out
}
