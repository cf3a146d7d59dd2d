package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultTimeout matches the timeout the web client has always used.
const DefaultTimeout = 10 * time.Second

// TokenSource yields the credential attached to outgoing requests. It is
// consulted at call time, so the latest stored value always governs.
type TokenSource func(ctx context.Context) string

// Client is a thin JSON client for the clinic REST API. It owns the base
// URL, the bearer header and the request timeout; everything else is the
// remote API's business.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
	logger  Logger
}

// NewClient returns a Client for the given API base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  defLogger{},
	}
}

func (c *Client) WithLogger(logger Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithTokenSource sets the resolver for the bearer credential.
func (c *Client) WithTokenSource(source TokenSource) *Client {
	c.token = source
	return c
}

func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.http.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the underlying http.Client, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.http = hc
	}
	return c
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build request")
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if token := c.token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "request failed").
			WithMetadata(map[string]any{"method": method, "path": path})
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to read response")
	}

	if res.StatusCode >= http.StatusBadRequest {
		return newAPIError(res.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to decode response").
			WithMetadata(map[string]any{"method": method, "path": path})
	}

	return nil
}

// APIError is a non-2xx response from the remote API.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func newAPIError(status int, raw []byte) *APIError {
	e := &APIError{Status: status, Body: raw}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			e.Message = payload.Message
		} else {
			e.Message = payload.Error
		}
	}

	return e
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == status
}

func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

func IsConflict(err error) bool {
	return IsStatus(err, http.StatusConflict)
}

func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// APIMessage extracts the API's message field from err, falling back to the
// given string when the response carried none.
func APIMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
