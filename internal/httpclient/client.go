// Package httpclient wraps outbound API requests and exposes interception
// points around every exchange.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
)

// RequestIDHeader carries a per-request id for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// PreSendHook inspects or mutates an outgoing request. A non-nil error
// aborts the send and is returned to the caller.
type PreSendHook func(req *http.Request) error

// PostReceiveHook observes a completed exchange before the caller does.
// resp is nil when no response was received; err is the error the caller
// will get (a *googleapi.Error or *NetworkError), nil on success.
type PostReceiveHook func(ctx context.Context, req *http.Request, resp *Response, err error)

// UnauthorizedHandler is called for every 401 response.
type UnauthorizedHandler func(ctx context.Context, err *googleapi.Error)

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	return nil
}

// NetworkError reports that no response was received.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NetworkFailure marks the error as a transport-level failure.
func (e *NetworkError) NetworkFailure() bool { return true }

// Client sends JSON requests relative to a base URL.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger

	mu   sync.RWMutex
	pre  []PreSendHook
	post []PostReceiveHook
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// BeforeSend registers a pre-send hook. Hooks run in registration order.
func (c *Client) BeforeSend(h PreSendHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pre = append(c.pre, h)
}

// AfterReceive registers a post-receive hook. Hooks run in registration order.
func (c *Client) AfterReceive(h PostReceiveHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.post = append(c.post, h)
}

// OnUnauthorized subscribes h to 401 responses.
func (c *Client) OnUnauthorized(h UnauthorizedHandler) {
	c.AfterReceive(func(ctx context.Context, req *http.Request, resp *Response, err error) {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
			h(ctx, gerr)
		}
	})
}

// Send issues method path with an optional JSON body and query.
// Non-2xx responses return a *googleapi.Error, transport failures a
// *NetworkError. Post-receive hooks see the result first.
func (c *Client) Send(ctx context.Context, method, path string, body any, query url.Values) (*Response, error) {
	req, err := c.newRequest(ctx, method, path, body, query)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	pre := append([]PreSendHook(nil), c.pre...)
	post := append([]PostReceiveHook(nil), c.post...)
	c.mu.RUnlock()

	for _, h := range pre {
		if err := h(req); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := c.do(req)
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", req.Header.Get(RequestIDHeader)).
		Int("status", statusOf(resp)).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("api request")

	for _, h := range post {
		h(ctx, req, resp, err)
	}
	return resp, err
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, query url.Values) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	return req, nil
}

func (c *Client) do(req *http.Request) (*Response, error) {
	path := req.URL.Path
	res, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, Path: path, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, Path: path, Err: err}
	}

	resp := &Response{StatusCode: res.StatusCode, Header: res.Header, Body: data}
	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return resp, nil
	}
	return resp, &googleapi.Error{
		Code:    res.StatusCode,
		Message: serverMessage(data),
		Body:    string(data),
		Header:  res.Header,
	}
}

// serverMessage extracts the user-facing message from an error body.
// Both {"message": "..."} and {"error": "..."} shapes are accepted.
func serverMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	var s string
	if err := json.Unmarshal(payload.Error, &s); err == nil {
		return s
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil {
		return nested.Message
	}
	return ""
}

func statusOf(resp *Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
