// Package httpclient provides the outbound HTTP client shared by the registry
// query and the notification webhook.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/obentoo/nugetwatch/internal/common/version"
)

// Error variables for HTTP client errors
var (
	// ErrRequestTimeout is returned when a request times out
	ErrRequestTimeout = errors.New("request timeout")
	// ErrUnexpectedStatus is returned when the server answers outside 2xx
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// maxErrorBody caps how much of an error response is echoed into the error
const maxErrorBody = 512

// Config holds client settings.
type Config struct {
	// Timeout is the timeout for each individual request (default: 30s)
	Timeout time.Duration
	// UserAgent is sent on every request
	UserAgent string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		UserAgent: version.UserAgent(),
	}
}

// Client wraps an HTTP client with defaults applied to every request.
// Each call is a single attempt.
type Client struct {
	client *http.Client
	config Config
	// defaultHeaders are headers applied to all requests
	defaultHeaders map[string]string
}

// New creates a client with the default configuration.
func New() *Client {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a client with a custom configuration.
func NewWithConfig(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.UserAgent == "" {
		config.UserAgent = version.UserAgent()
	}
	return &Client{
		client: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// SetHTTPClient sets a custom underlying HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.client = client
}

// SetDefaultHeaders sets default headers that will be applied to all requests.
func (c *Client) SetDefaultHeaders(headers map[string]string) {
	c.defaultHeaders = headers
}

// Config returns the current configuration.
func (c *Client) Config() Config {
	return c.config
}

// Do executes a request once, applying the default headers.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", c.config.UserAgent)
	for key, value := range c.defaultHeaders {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeoutError(err) {
			return nil, fmt.Errorf("%w: %v", ErrRequestTimeout, err)
		}
		return nil, err
	}
	return resp, nil
}

// Get performs a GET and returns the body of a 2xx response.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := CheckStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// PostJSON marshals payload and POSTs it. The response body is drained and
// discarded; only the status code is checked.
func (c *Client) PostJSON(ctx context.Context, url string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := CheckStatus(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// CheckStatus returns ErrUnexpectedStatus for non-2xx responses, including a
// prefix of the body for diagnostics.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(bytes.TrimSpace(snippet)) == 0 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(snippet))
}

// isTimeoutError checks if an error is a timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	type timeoutError interface {
		Timeout() bool
	}
	var te timeoutError
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}
