package api

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

	"driveline/internal/orchestrator"
)

// Client talks to a running daemon's control API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds an API client for the given bind address. The address may
// be a bare host:port or a full http URL.
func NewClient(address, token string) *Client {
	address = strings.TrimSpace(address)
	if address != "" && !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}
	return &Client{
		baseURL:    strings.TrimRight(address, "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// RunCycle triggers one orchestration cycle and returns its summary.
func (c *Client) RunCycle(ctx context.Context, req orchestrator.Request) (orchestrator.Summary, error) {
	var out orchestrator.Summary
	err := c.do(ctx, http.MethodPost, "/api/cycle", req, &out)
	return out, err
}

// ListQueue fetches queue items, optionally filtered by status.
func (c *Client) ListQueue(ctx context.Context, statuses ...string) ([]QueueItemView, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var out QueueListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetItem fetches one queue item by id.
func (c *Client) GetItem(ctx context.Context, id int64) (QueueItemView, error) {
	var out QueueItemResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/queue/%d", id), nil, &out)
	return out.Item, err
}

// Enqueue inserts a listing URL through the daemon.
func (c *Client) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResponse, error) {
	var out EnqueueResponse
	err := c.do(ctx, http.MethodPost, "/api/queue", req, &out)
	return out, err
}

// RetryItem resets a failed item back to pending.
func (c *Client) RetryItem(ctx context.Context, id int64) (QueueItemView, error) {
	var out QueueItemResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/queue/%d/retry", id), nil, &out)
	return out.Item, err
}

// SkipItem marks an item skipped.
func (c *Client) SkipItem(ctx context.Context, id int64) (QueueItemView, error) {
	var out QueueItemResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/queue/%d/skip", id), nil, &out)
	return out.Item, err
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("api client: no daemon address configured")
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("api client: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api client: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("api client: %s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("api client: %s %s: http %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api client: decode response: %w", err)
	}
	return nil
}
