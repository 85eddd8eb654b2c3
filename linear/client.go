/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package linear is a typed client for the Linear GraphQL API, covering the
// label, issue, and project surfaces this service consumes.
package linear

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

	"github.com/zagent-dev/zagent/retry"
)

const defaultEndpoint = "https://api.linear.app/graphql"

// Client is a Linear GraphQL client over net/http.
type Client struct {
	apiKey      string
	httpClient  *http.Client
	endpoint    string
	retryConfig retry.Config
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint URL (useful for testing).
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryConfig overrides the default retry configuration.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) { c.retryConfig = cfg }
}

// New creates a Linear client authenticated with the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		httpClient:  http.DefaultClient,
		endpoint:    defaultEndpoint,
		retryConfig: retry.Config{
			MaxRetries:  2,
			BaseBackoff: 500 * time.Millisecond,
			MaxBackoff:  5 * time.Second,
			MaxJitter:   250 * time.Millisecond,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// serverError marks HTTP 5xx responses as retryable.
type serverError struct {
	status int
	body   string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("linear API returned HTTP %d: %s", e.status, e.body)
}

func isRetryableLinearError(err error) bool {
	var se *serverError
	if errors.As(err, &se) {
		return true
	}
	// Anything that never reached the API (transport failures) is worth retrying.
	var te *transportError
	return errors.As(err, &te)
}

// transportError wraps transport-level failures so the retry classifier can
// distinguish them from application errors.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// execute sends a GraphQL request, retrying transient failures, and returns
// the raw data payload.
func (c *Client) execute(ctx context.Context, query string, vars map[string]any) (json.RawMessage, error) {
	return retry.Do(ctx, c.retryConfig, "linear_graphql", isRetryableLinearError, func() (json.RawMessage, error) {
		return c.executeOnce(ctx, query, vars)
	})
}

func (c *Client) executeOnce(ctx context.Context, query string, vars map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode >= 500 {
		return nil, &serverError{status: resp.StatusCode, body: truncate(string(respBody), 200)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("linear API returned HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		msgs := make([]string, len(gqlResp.Errors))
		for i, e := range gqlResp.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("linear API errors: %s", strings.Join(msgs, "; "))
	}

	return gqlResp.Data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
