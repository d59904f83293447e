// Package client is the Go client for the risklab REST API.
//
// A Client is configured once with a base URL and a fixed request timeout.
// Every resource method issues exactly one request and hands back the raw
// response body; failures are returned unmodified, with no retry.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// DefaultBaseURL is used when BaseURLEnv is unset.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds every request issued by the client.
	DefaultTimeout = 5 * time.Second

	// BaseURLEnv overrides the API host.
	BaseURLEnv = "RISKLAB_API_URL"
)

// Client issues requests against the risklab API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    http.Header
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL replaces the environment-resolved base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout replaces the request timeout. The HTTP client is copied so a
// client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithHeader sets a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// BaseURLFromEnv returns the value of BaseURLEnv, or DefaultBaseURL when it
// is unset or empty.
func BaseURLFromEnv() string {
	if v := os.Getenv(BaseURLEnv); v != "" {
		return v
	}
	return DefaultBaseURL
}

// New creates a Client. Without options the base URL comes from
// BaseURLFromEnv and requests time out after DefaultTimeout.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: BaseURLFromEnv(),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL requests are issued against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Strategies returns the strategy resource client.
func (c *Client) Strategies() *StrategyAPI {
	return &StrategyAPI{c: c}
}

// Tests returns the test resource client.
func (c *Client) Tests() *TestAPI {
	return &TestAPI{c: c}
}

// Decode unmarshals a raw response body into v.
func Decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// resourcePath joins a collection path and an id as one path segment.
func resourcePath(collection, id string, suffix ...string) string {
	p := collection + "/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func (c *Client) url(path string) string {
	return strings.TrimSuffix(c.baseURL, "/") + path
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// do issues a single request and returns the response body. Non-2xx
// responses are reported as *StatusError.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	reader, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       data,
		}
	}

	if len(data) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}
