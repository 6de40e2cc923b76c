// Package backend is a typed client for the cloud ordering backend's
// PostgREST-style surface: RPC calls (print_claim_jobs, printing_register_agent,
// ...) and direct table reads (restaurants, user_roles), all documented in
// spec.md section 6.
package backend

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
	"time"
)

// Client talks to the backend over HTTP. Every call carries the current
// bearer token supplied by TokenFunc, so a refreshed session takes effect
// on the very next call without reconstructing the client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokenFunc  func() string
}

// New returns a Client targeting baseURL (e.g. "https://xyz.supabase.co"),
// authorizing every request with the token TokenFunc returns at call time.
func New(baseURL string, tokenFunc func() string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokenFunc:  tokenFunc,
	}
}

// FunctionNotFoundError means the backend doesn't know about a given RPC
// name — the degrade-gracefully condition of spec.md 4.6/7.
type FunctionNotFoundError struct {
	Function string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function %s not found in schema cache", e.Function)
}

// IsFunctionNotFound reports whether err (or its message) indicates the
// backend has no such RPC, matching the three phrasings named in spec.md 7.
func IsFunctionNotFound(err error) bool {
	if err == nil {
		return false
	}
	var fnfe *FunctionNotFoundError
	if errors.As(err, &fnfe) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "schema cache") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "not found")
}

// RPC calls POST {baseURL}/rest/v1/rpc/{function} with params as the JSON
// body and decodes the response into out (nil to discard the body).
func (c *Client) RPC(ctx context.Context, function string, params map[string]any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal rpc params: %w", err)
	}

	endpoint := c.baseURL + "/rest/v1/rpc/" + function
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", function, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read rpc %s response: %w", function, err)
	}

	if resp.StatusCode >= 400 {
		if IsFunctionNotFound(fmt.Errorf("%s", respBody)) {
			return &FunctionNotFoundError{Function: function}
		}
		return fmt.Errorf("rpc %s: status %d: %s", function, resp.StatusCode, truncate(string(respBody), 500))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode rpc %s response: %w", function, err)
	}
	return nil
}

// Table issues a GET against {baseURL}/rest/v1/{table}?{query} and decodes
// the JSON array response into out.
func (c *Client) Table(ctx context.Context, table string, query url.Values, out any) error {
	endpoint := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build table request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("table %s: %w", table, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read table %s response: %w", table, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("table %s: status %d: %s", table, resp.StatusCode, truncate(string(respBody), 500))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode table %s response: %w", table, err)
	}
	return nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.tokenFunc(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
