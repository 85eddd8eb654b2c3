/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package sandbox is a client for the sandbox provider API: ephemeral
// isolated execution environments with their own filesystem and process
// space, created per webhook invocation and destroyed unconditionally after.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned by ReadFile when the path does not exist in the
// session's filesystem. Tool handlers report it as data, not as a failure.
var ErrNotFound = errors.New("file not found")

// RepoWorkdir is the fixed directory the target repository is cloned into.
const RepoWorkdir = "/home/user/repo"

// Client provisions sandbox sessions.
type Client struct {
	apiKey     string
	httpClient *http.Client
	endpoint   string
	template   string
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the provider API base URL (useful for testing).
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTemplate sets the sandbox template to provision from.
func WithTemplate(template string) Option {
	return func(c *Client) { c.template = template }
}

// NewClient creates a sandbox provider client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		endpoint:   "https://api.e2b.dev",
		template:   "base",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Session is one provisioned sandbox. Destroy must be called exactly once,
// on every exit path of the invocation that created it.
type Session struct {
	client *Client
	id     string
}

// ID returns the provider-assigned session identifier.
func (s *Session) ID() string { return s.id }

// CommandResult is the outcome of a shell command run in the session.
type CommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

// Create provisions a new session from the configured template.
func (c *Client) Create(ctx context.Context) (*Session, error) {
	body := map[string]any{"template": c.template}
	var resp struct {
		SessionID string `json:"sessionID"`
	}
	if err := c.do(ctx, http.MethodPost, "/sessions", body, &resp); err != nil {
		return nil, fmt.Errorf("creating sandbox session: %w", err)
	}
	if resp.SessionID == "" {
		return nil, errors.New("provider returned an empty session ID")
	}
	return &Session{client: c, id: resp.SessionID}, nil
}

// Destroy tears the session down. Idempotent on the provider side; callers
// still arrange to invoke it exactly once.
func (s *Session) Destroy(ctx context.Context) error {
	if err := s.client.do(ctx, http.MethodDelete, "/sessions/"+s.id, nil, nil); err != nil {
		return fmt.Errorf("destroying sandbox session: %w", err)
	}
	return nil
}

// Run executes a shell command in the session with the given working directory.
func (s *Session) Run(ctx context.Context, command, cwd string) (CommandResult, error) {
	body := map[string]any{"command": command, "cwd": cwd}
	var result CommandResult
	if err := s.client.do(ctx, http.MethodPost, "/sessions/"+s.id+"/commands", body, &result); err != nil {
		return CommandResult{}, fmt.Errorf("running command: %w", err)
	}
	return result, nil
}

// ReadFile returns the content of a file in the session, or ErrNotFound.
func (s *Session) ReadFile(ctx context.Context, path string) ([]byte, error) {
	query := url.Values{"path": {path}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.client.endpoint+"/sessions/"+s.id+"/files?"+query, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.client.apiKey)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned HTTP %d reading %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}

// WriteFile writes content to a path in the session, creating parents as needed.
func (s *Session) WriteFile(ctx context.Context, path string, content []byte) error {
	body := map[string]any{"path": path, "content": string(content)}
	if err := s.client.do(ctx, http.MethodPut, "/sessions/"+s.id+"/files", body, nil); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	return nil
}

// do sends a JSON request and decodes a JSON response when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned HTTP %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
