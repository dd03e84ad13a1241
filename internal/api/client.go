// Package api talks to the chat host's REST endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/strrl/chat-history/internal/logging"
)

// Endpoint paths on the host.
const (
	PathChatGet        = "/api/chats/get"
	PathGroupChatGet   = "/api/chats/group/get"
	PathChatSearch     = "/api/chats/search"
	PathCharacterChats = "/api/characters/chats"
	PathGroupChatInfo  = "/api/chats/group/info"
	PathGroupsAll      = "/api/groups/all"
)

// HeadersFactory supplies request headers per call, e.g. a fresh CSRF token.
type HeadersFactory func() http.Header

// DefaultHeaders is used when no factory is configured.
func DefaultHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	return h
}

// StaticHeaders returns a factory that layers extra headers over DefaultHeaders.
func StaticHeaders(extra map[string]string) HeadersFactory {
	return func() http.Header {
		h := DefaultHeaders()
		for k, v := range extra {
			h.Set(k, v)
		}
		return h
	}
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, body)
}

// Client is a JSON-over-HTTP client for the host.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Headers HeadersFactory

	log zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.HTTP = hc
	}
}

// WithHeaders sets the request headers factory.
func WithHeaders(f HeadersFactory) Option {
	return func(c *Client) {
		c.Headers = f
	}
}

// NewClient creates a client for the host at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		log:     logging.Component("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON sends payload as JSON to path and returns the raw response body.
func (c *Client) PostJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	headers := DefaultHeaders()
	if c.Headers != nil {
		headers = c.Headers()
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("host request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Method: http.MethodPost,
			Path:   path,
			Status: resp.StatusCode,
			Body:   string(respBody),
		}
	}
	return respBody, nil
}
