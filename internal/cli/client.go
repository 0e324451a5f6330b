package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// actorHeader carries the operator name for the server's audit log
const actorHeader = "X-Hlimbo-Actor"

// Client is an HTTP client for the API
type Client struct {
	baseURL    string
	token      string
	actor      string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, token, actor string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		actor:   actor,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an API error
type ErrorResponse struct {
	Error APIError `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Do performs an HTTP request
func (c *Client) Do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.actor != "" {
		req.Header.Set(actorHeader, c.actor)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Code != "" {
			errResp.Error.Status = resp.StatusCode
			return &errResp.Error
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// Health fetches the health endpoint
func (c *Client) Health(ctx context.Context) (HealthResult, error) {
	var result HealthResult
	err := c.Do(ctx, http.MethodGet, "/api/v1/health", nil, &result)
	return result, err
}

// Status fetches a player's life state by name
func (c *Client) Status(ctx context.Context, name string) (PlayerStatus, error) {
	var result PlayerStatus
	err := c.Do(ctx, http.MethodGet, playerPath(name), nil, &result)
	return result, err
}

// Revive restores a dead player
func (c *Client) Revive(ctx context.Context, name string) (PlayerStatus, error) {
	var result PlayerStatus
	err := c.Do(ctx, http.MethodPost, playerPath(name)+"/revive", nil, &result)
	return result, err
}

// SetLives overrides a player's life count
func (c *Client) SetLives(ctx context.Context, name string, lives int) (PlayerStatus, error) {
	var result PlayerStatus
	err := c.Do(ctx, http.MethodPut, playerPath(name)+"/lives", map[string]int{"lives": lives}, &result)
	return result, err
}

func playerPath(name string) string {
	return "/api/v1/players/" + url.PathEscape(name)
}
