// Package api provides typed gateways to the task backend's JSON API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is generous to accommodate cold-start backends and
// multi-step chat tool invocations.
const DefaultTimeout = 30 * time.Second

// Client is the shared HTTP transport for all gateways. The session
// cookie is carried automatically via the cookie jar.
type Client struct {
	base *url.URL
	http *http.Client
	jar  *cookiejar.Jar
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client. The cookie jar is
// re-attached so session handling keeps working.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
		if c.http.Jar == nil {
			c.http.Jar = c.jar
		}
	}
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		base: base,
		jar:  jar,
		http: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Cookies returns the cookies currently held for the backend origin.
// Used to persist the session across CLI invocations.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.base)
}

// SetCookies seeds the jar with previously persisted session cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.jar.SetCookies(c.base, cookies)
}

// Tasks returns the task gateway.
func (c *Client) Tasks() *TaskService { return &TaskService{c: c} }

// Chat returns the chat gateway.
func (c *Client) Chat() *ChatService { return &ChatService{c: c} }

// Auth returns the auth gateway.
func (c *Client) Auth() *AuthService { return &AuthService{c: c} }

// Dashboard returns the stats gateway.
func (c *Client) Dashboard() *DashboardService { return &DashboardService{c: c} }

// do issues one JSON request and decodes the response into out (which
// may be nil when the body is irrelevant). Non-2xx responses become
// *Error values carrying the HTTP status.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ref := &url.URL{Path: path}
	u := c.base.ResolveReference(ref)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Status: resp.StatusCode,
			Detail: errorDetail(data, resp.Status),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrBadShape, err)
	}
	return nil
}

// errorDetail extracts a human-readable message from an error body.
// FastAPI-style backends put it under "detail".
func errorDetail(data []byte, fallback string) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		for _, s := range []string{payload.Detail, payload.Message, payload.Error} {
			if strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return fallback
}
