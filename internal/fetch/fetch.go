// Package fetch retrieves the monitored page over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultUserAgent mimics a desktop Chrome; store pages tend to serve bot
// user agents a stripped or blocked response.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const (
	DefaultTimeout = 20 * time.Second
	maxBodyBytes   = 10 << 20
)

// Fetcher returns the raw text of a resource.
type Fetcher interface {
	Fetch(ctx context.Context, resource string) (string, error)
}

// Error is every fetch failure: transport, timeout, non-2xx, body read.
type Error struct {
	Resource string
	Status   int // 0 when no response was received
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: http %d: %v", e.Resource, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTP is a Fetcher backed by net/http.
type HTTP struct {
	client *http.Client
	ua     string
}

type Option func(*HTTP)

// WithClient replaces the HTTP client. Its Timeout still bounds every call.
func WithClient(c *http.Client) Option {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(h *HTTP) {
		if strings.TrimSpace(ua) != "" {
			h.ua = ua
		}
	}
}

// WithTimeout sets the per-request timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{
		client: &http.Client{Timeout: DefaultTimeout},
		ua:     DefaultUserAgent,
	}
	for _, o := range opts {
		o(h)
	}
	if h.client.Timeout <= 0 {
		h.client.Timeout = DefaultTimeout
	}
	return h
}

func (h *HTTP) Fetch(ctx context.Context, resource string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource, nil)
	if err != nil {
		return "", &Error{Resource: resource, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("User-Agent", h.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", &Error{Resource: resource, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &Error{Resource: resource, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &Error{Resource: resource, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(body), nil
}
