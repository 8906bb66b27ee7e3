// Package scraper triggers the upstream discovery scrapers that feed the
// queue. Triggers are best-effort pokes: the scrapers insert discovered
// listings through the enqueue API on their own schedule, so the cycle never
// waits on them.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"driveline/internal/config"
	"driveline/internal/services"
)

// Client fires discovery triggers at configured scraper endpoints.
type Client struct {
	timeout    time.Duration
	httpClient *http.Client
}

// Option customizes the scraper client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (useful for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New constructs a scraper trigger client.
func New(cfg config.Scrapers, opts ...Option) *Client {
	client := &Client{
		timeout:    time.Duration(cfg.TriggerTimeoutSeconds) * time.Second,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Trigger POSTs to one scraper endpoint. The response body is discarded;
// only reachability matters. Callers run this fire-and-forget.
func (c *Client) Trigger(ctx context.Context, name, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return services.Wrap(services.ErrConfiguration, "scraper", name, "empty endpoint", nil)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "scraper", name, "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrDownstream, "scraper", name, "trigger failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return services.Wrap(services.ErrDownstream, "scraper", name,
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	return nil
}
