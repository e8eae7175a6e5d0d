// Package llm is a client for an OpenRouter style chat-completions API.
// It exposes two failure modes: Generate propagates transport and API errors
// to the caller, Ask degrades them into an inline error string so that chat
// surfaces always have something to show the user.
package llm

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

// ErrNotConfigured is returned by NewClient when the API key is missing.
var ErrNotConfigured = errors.New("llm api key not configured")

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one chat-completions call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Client calls the chat-completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  zerolog.Logger
}

// NewClient validates the API key and constructs a client.
func NewClient(baseURL, apiKey string, logger zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 120 * time.Second},
		logger:  logger.With().Str("component", "llm").Logger(),
	}, nil
}

type wireRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type wireResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate runs one chat-completions call and returns the first choice's
// content. Any transport or API failure is returned as an error.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(wireRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion failed: status %d: %s", resp.StatusCode, string(raw))
	}

	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if wire.Error != nil {
		return "", fmt.Errorf("chat completion failed: %s", wire.Error.Message)
	}
	if len(wire.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return wire.Choices[0].Message.Content, nil
}

// Ask is Generate with the degrading failure policy used by conversational
// surfaces: failures come back as a visible inline string, never an error.
func (c *Client) Ask(ctx context.Context, req Request) string {
	out, err := c.Generate(ctx, req)
	if err != nil {
		c.logger.Warn().Err(err).Str("model", req.Model).Msg("chat completion degraded to inline error")
		return fmt.Sprintf("⚠️ API Error: %v", err)
	}
	return out
}
