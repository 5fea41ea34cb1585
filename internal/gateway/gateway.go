// Package gateway issues HTTP requests on behalf of the content store and the
// device flow authenticator.
//
// The gateway is pure transport: it never retries and never interprets status
// codes. Any response that arrives, whatever its status, is returned as a
// Response; only failures to obtain a response become a *NetworkError.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	// DefaultTimeout is the default timeout for a single request.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies pagecms to the remote API.
	DefaultUserAgent = "pagecms"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 << 20
)

// Request describes one HTTP call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the status, headers and fully read body of a completed call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Gateway performs HTTP requests.
type Gateway interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// NetworkError reports that no response could be obtained for a request.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewJSONRequest builds a request whose body is payload encoded as JSON.
func NewJSONRequest(method, url string, payload interface{}) (*Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return &Request{Method: method, URL: url, Header: header, Body: body}, nil
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse response body: %w", err)
	}
	return nil
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HTTPGateway implements Gateway on top of an *http.Client.
type HTTPGateway struct {
	httpClient *http.Client
	userAgent  string
}

// Option configures an HTTPGateway.
type Option func(*HTTPGateway)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(g *HTTPGateway) {
		g.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout of the underlying client.
func WithTimeout(timeout time.Duration) Option {
	return func(g *HTTPGateway) {
		if timeout > 0 {
			g.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(g *HTTPGateway) {
		g.userAgent = userAgent
	}
}

// New creates an HTTPGateway backed by a pooled client without shared global state.
func New(opts ...Option) *HTTPGateway {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = DefaultTimeout

	g := &HTTPGateway{
		httpClient: client,
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Do sends the request and reads the whole response body.
func (g *HTTPGateway) Do(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: req.URL, Err: err}
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if g.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: req.URL, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
