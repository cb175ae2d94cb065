// Package upstream talks to the WaveSpeed completion API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wavechat/wavechat/internal/log"
)

// DefaultBaseURL is the production WaveSpeed endpoint.
const DefaultBaseURL = "https://api.wavespeed.ai"

const chatPath = "/api/v3/wavespeed-ai/any-llm"

// maxResponseBytes bounds how much of an upstream response is read.
const maxResponseBytes = 4 << 20

// ErrNotConfigured is returned when no API key has been stored yet.
// The request is rejected before any network I/O happens.
var ErrNotConfigured = errors.New("upstream: API key not configured")

// Error is a non-2xx reply from the upstream API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream: %s (status %d)", e.Message, e.StatusCode)
}

// Client calls the WaveSpeed chat completion endpoint. Safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// NewClient builds a Client. baseURL falls back to DefaultBaseURL and
// timeout bounds the whole request including body read.
func NewClient(baseURL string, timeout time.Duration, logger log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type chatRequest struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model"`
	EnableSyncMode bool   `json:"enable_sync_mode"`
	Priority       string `json:"priority"`
}

type chatResponse struct {
	Output  string `json:"output"`
	Message string `json:"message"`
}

// Chat sends a prompt for synchronous completion and returns the
// model's output. A reply without an output field yields an empty
// string, not an error.
func (c *Client) Chat(ctx context.Context, apiKey, prompt, model string) (string, error) {
	if apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Prompt:         prompt,
		Model:          model,
		EnableSyncMode: true,
		Priority:       "latency",
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call upstream: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read upstream response: %w", err)
	}

	success := resp.StatusCode/100 == 2

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil && success {
		return "", fmt.Errorf("decode upstream response: %w", err)
	}

	if !success {
		msg := parsed.Message
		if msg == "" {
			msg = "WaveSpeed API error"
		}
		c.logger.Warn("upstream request failed",
			"status", resp.StatusCode, "model", model, "duration", time.Since(start))
		return "", &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	c.logger.Debug("upstream request completed",
		"model", model, "duration", time.Since(start), "output_len", len(parsed.Output))
	return parsed.Output, nil
}
