package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Client is a pooled REST client for hosted APIs that have no Go SDK in our stack
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Headers    map[string]string
}

// RequestOptions tunes a single request
type RequestOptions struct {
	Headers    map[string]string
	Retries    int
	RetryDelay time.Duration
}

// ClientConfig holds configuration for the API client
type ClientConfig struct {
	BaseURL             string
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
	KeepAlive           time.Duration
	TLSHandshakeTimeout time.Duration
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status code %d: %s", e.StatusCode, e.Body)
}

// DefaultClientConfig returns pooled defaults for the API client
func DefaultClientConfig(baseURL string) *ClientConfig {
	return &ClientConfig{
		BaseURL:             baseURL,
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		KeepAlive:           30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return NewClientWithConfig(DefaultClientConfig(baseURL))
}

// NewClientWithConfig creates a new API client with custom configuration
func NewClientWithConfig(config *ClientConfig) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		TLSHandshakeTimeout: config.TLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		BaseURL: strings.TrimRight(config.BaseURL, "/"),
		HTTPClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		Headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "bedtime-stories/1.0",
		},
	}
}

// PostJSON sends body as JSON to path and decodes a JSON response into result
func (c *Client) PostJSON(ctx context.Context, path string, body, result any, opts *RequestOptions) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error marshaling request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.BaseURL+path, "application/json", payload, result, opts)
}

// PostForm sends form values to an absolute URL and decodes a JSON response into result
func (c *Client) PostForm(ctx context.Context, target string, form url.Values, result any, opts *RequestOptions) error {
	return c.do(ctx, http.MethodPost, target, "application/x-www-form-urlencoded", []byte(form.Encode()), result, opts)
}

// do performs a request, retrying 5xx responses and network timeouts with a linear delay
func (c *Client) do(ctx context.Context, method, target, contentType string, payload []byte, result any, opts *RequestOptions) error {
	if opts == nil {
		opts = &RequestOptions{}
	}
	retryDelay := opts.RetryDelay
	if retryDelay == 0 {
		retryDelay = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("request cancelled after %d attempts: %w", attempt, lastErr)
			case <-time.After(time.Duration(attempt) * retryDelay):
			}
		}

		lastErr = c.execute(ctx, method, target, contentType, payload, result, opts)
		if lastErr == nil {
			return nil
		}
		if !isRetryableError(lastErr) {
			break
		}
		fiberlog.Debugf("Retrying %s %s after error: %v", method, target, lastErr)
	}

	return lastErr
}

func (c *Client) execute(ctx context.Context, method, target, contentType string, payload []byte, result any, opts *RequestOptions) error {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("error executing request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fiberlog.Errorf("Error closing response body: %v", err)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, result); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}
	return nil
}

func isRetryableError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// Close releases idle connections
func (c *Client) Close() {
	if transport, ok := c.HTTPClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
