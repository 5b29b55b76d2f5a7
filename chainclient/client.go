// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chainclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultRetries    = 5
	defaultRetryDelay = 5 * time.Second
	defaultTimeout    = 30 * time.Second
)

// Client is a thin typed client for the node REST API. Every request is
// retried a bounded number of times with a fixed delay; exhausting retries
// returns the last error and is fatal for the calling run.
type Client struct {
	baseUrl    string
	apiKey     string
	httpClient *http.Client
	retries    int
	retryDelay time.Duration
	logger     *slog.Logger
}

// ClientOptionFunc is a type that represents functions that modify the client config
type ClientOptionFunc func(*Client)

// WithHTTPClient specifies the http.Client to use. The default client has a 30s request timeout
func WithHTTPClient(httpClient *http.Client) ClientOptionFunc {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithApiKey specifies the node API key used for server-side transaction signing
func WithApiKey(apiKey string) ClientOptionFunc {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithRetries specifies the number of retries after a failed request
func WithRetries(retries int) ClientOptionFunc {
	return func(c *Client) {
		c.retries = retries
	}
}

// WithRetryDelay specifies the fixed delay between retries
func WithRetryDelay(delay time.Duration) ClientOptionFunc {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ClientOptionFunc {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a node API client with the specified options
func NewClient(baseUrl string, opts ...ClientOptionFunc) *Client {
	c := &Client{
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
		logger:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return c
}

// httpError is a non-2xx response. Client errors (4xx) are not retried.
type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http %d: %s", e.status, e.body)
}

func (e *httpError) retryable() bool {
	return e.status >= 500
}

// doJSON sends a request with the given method, path, and JSON payload and
// decodes the response into out (when non-nil). Transport failures and
// server errors are retried with a fixed delay up to the configured bound.
func (c *Client) doJSON(
	ctx context.Context,
	method, path string,
	payload any,
	out any,
) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.Debug(
				"retrying request",
				"component", "chainclient",
				"path", path,
				"attempt", attempt,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		lastErr = c.doJSONOnce(ctx, method, path, payload, out)
		if lastErr == nil {
			return nil
		}
		var httpErr *httpError
		if errors.As(lastErr, &httpErr) && !httpErr.retryable() {
			return lastErr
		}
	}
	return fmt.Errorf(
		"request %s %s failed after %d attempts: %w",
		method, path, c.retries+1, lastErr,
	)
}

func (c *Client) doJSONOnce(
	ctx context.Context,
	method, path string,
	payload any,
	out any,
) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &httpError{status: resp.StatusCode, body: string(buf)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
