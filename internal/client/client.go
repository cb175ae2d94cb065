// Package client is the Go client for the wavechat API, plus the
// observable view state a frontend binds to.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/wavechat/wavechat/internal/catalog"
	"github.com/wavechat/wavechat/internal/store"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (%s, status %d)", e.Message, e.Code, e.Status)
}

// Client talks to a wavechat server. The session cookie set by Login
// or Register lives in the client's jar, so one Client is one logged
// in user.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the server at baseURL.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 2 * time.Minute,
		},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return &APIError{Status: resp.StatusCode, Code: "unknown", Message: resp.Status}
		}
		return &APIError{
			Status:  resp.StatusCode,
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
		}
	}

	if out != nil {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// Register creates an account and logs the client in.
func (c *Client) Register(ctx context.Context, email, password string, name *string) (*store.User, error) {
	var out struct {
		User *store.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"email": email, "password": password, "name": name,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.User, nil
}

// Login opens a session for an existing account.
func (c *Client) Login(ctx context.Context, email, password string) (*store.User, error) {
	var out struct {
		User *store.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": email, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.User, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/logout", map[string]string{}, nil)
}

// Me returns the logged in user.
func (c *Client) Me(ctx context.Context) (*store.User, error) {
	var out struct {
		User *store.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Models returns the model catalog and the server's default.
func (c *Client) Models(ctx context.Context) ([]catalog.Model, string, error) {
	var out struct {
		Models       []catalog.Model `json:"models"`
		DefaultModel string          `json:"defaultModel"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/models", nil, &out); err != nil {
		return nil, "", err
	}
	return out.Models, out.DefaultModel, nil
}

// SendResult mirrors the chat endpoint's response.
type SendResult struct {
	Conversation *store.Conversation `json:"conversation"`
	UserMessage  *store.Message      `json:"userMessage"`
	Reply        *store.Message      `json:"reply"`
}

// Send posts a message. conversationID empty starts a new
// conversation; model empty uses the conversation default.
func (c *Client) Send(ctx context.Context, conversationID, message, model string) (*SendResult, error) {
	var out SendResult
	err := c.do(ctx, http.MethodPost, "/api/v1/chat", map[string]string{
		"conversationId": conversationID,
		"message":        message,
		"model":          model,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversations lists the user's conversations, most recent first.
func (c *Client) Conversations(ctx context.Context) ([]store.Conversation, error) {
	var out struct {
		Conversations []store.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// Conversation fetches one conversation with its messages.
func (c *Client) Conversation(ctx context.Context, id string) (*store.Conversation, []store.Message, error) {
	var out struct {
		Conversation *store.Conversation `json:"conversation"`
		Messages     []store.Message     `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/conversations/"+id, nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Conversation, out.Messages, nil
}

// DeleteConversation removes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/conversations/"+id, nil, nil)
}
