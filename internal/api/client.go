// Package api implements the authenticated request pipeline against the
// Entari WebUI backend. Every call reads the base address and credential
// at send time, and every failure is normalized into a single
// operator-facing message on the notification bus.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arcletproject/entari-console/internal/notify"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	maxErrorBody       = 8 << 10

	fallbackErrorMessage = "network error"
)

// AddressSource supplies the API base address. It is consulted on every
// call because runtime resolution may complete after the client is built.
type AddressSource interface {
	BaseURL() string
}

// TokenSource supplies the current credential. It is consulted on every
// call because login may happen after the client is built.
type TokenSource interface {
	Token() string
}

// APIError is a non-2xx response from the backend, carrying the best
// available operator-facing message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}

// IsUnauthorized reports whether err is a rejected-credential response.
// The backend gives those no special treatment beyond the status code,
// so neither does the console; callers may still branch on it.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden)
}

// Client is the shared HTTP pipeline for all backend calls.
type Client struct {
	http     *http.Client
	base     AddressSource
	creds    TokenSource
	notifier *notify.Bus
}

// Option customises the pipeline.
type Option func(*Client)

// WithTransport overrides the HTTP transport (primarily for tests).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.http.Transport = rt
		}
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New builds a client. base and creds are captured by reference and read
// per call; notifier may be nil.
func New(base AddressSource, creds TokenSource, notifier *notify.Bus, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: defaultHTTPTimeout},
		base:     base,
		creds:    creds,
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues one call. body (when non-nil) is JSON-encoded; out (when
// non-nil) receives the decoded response payload.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: marshal %s %s payload: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	url := strings.TrimRight(c.base.BaseURL(), "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Raw credential, attached unconditionally: empty string simply means
	// the call is unauthenticated.
	req.Header.Set("Authorization", c.creds.Token())

	resp, err := c.http.Do(req)
	if err != nil {
		msg := strings.TrimSpace(err.Error())
		if msg == "" {
			msg = fallbackErrorMessage
		}
		c.notifier.Errorf(notify.SourcePipeline, "%s", msg)
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    readAPIMessage(resp),
		}
		c.notifier.Errorf(notify.SourcePipeline, "%s", apiErr.Message)
		return fmt.Errorf("api: %s %s: %w", method, path, apiErr)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("api: decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// readAPIMessage extracts the operator-facing message from a failed
// response: the server's "message" field when present, then the HTTP
// status text, then a fixed fallback.
func readAPIMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
			if msg := strings.TrimSpace(payload.Message); msg != "" {
				return msg
			}
		}
	}
	if status := strings.TrimSpace(resp.Status); status != "" {
		return status
	}
	return fallbackErrorMessage
}
