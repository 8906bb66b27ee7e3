package extractor

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

	"driveline/internal/config"
	"driveline/internal/selector"
	"driveline/internal/services"
)

// Result is the fixed contract every processor invocation returns. The
// orchestration core never inspects processor internals beyond this shape.
type Result struct {
	Success   bool   `json:"success"`
	CreatedID string `json:"created_id,omitempty"`
	UpdatedID string `json:"updated_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EntityID returns the entity the processor produced, preferring a freshly
// created id over an upsert-updated one.
func (r Result) EntityID() string {
	if r.CreatedID != "" {
		return r.CreatedID
	}
	return r.UpdatedID
}

// Client invokes downstream extractor functions over HTTP. Each processor is
// an independent callable at <base_url>/<processor> taking a JSON parameter
// bundle and returning a Result.
type Client struct {
	baseURL    string
	apiKey     string
	timeouts   timeouts
	httpClient *http.Client
}

type timeouts struct {
	core       time.Duration
	enrichment time.Duration
	batch      time.Duration
}

// Option customizes the extractor client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (useful for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New constructs an extractor client from configuration. The base URL is
// required; per-call timeouts come from the config section.
func New(cfg config.Extractors, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, services.Wrap(services.ErrConfiguration, "extractor", "new", "extractors.base_url is required", nil)
	}
	client := &Client{
		baseURL: base,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		timeouts: timeouts{
			core:       time.Duration(cfg.CoreTimeoutSeconds) * time.Second,
			enrichment: time.Duration(cfg.EnrichmentTimeoutSeconds) * time.Second,
			batch:      time.Duration(cfg.BatchTimeoutSeconds) * time.Second,
		},
		// Per-call deadlines come from the context; the transport itself
		// carries no timeout so batch calls are not cut short.
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Invoke calls one processor with the given parameter bundle. Transport
// failures and 5xx responses are classified as downstream errors; a 2xx
// response is returned as-is, including success=false processor errors,
// so callers can judge criticality themselves.
func (c *Client) Invoke(ctx context.Context, processor string, params selector.Params) (Result, error) {
	var empty Result
	body, err := c.post(ctx, processor, params, c.timeoutFor(processor))
	if err != nil {
		return empty, err
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return empty, services.Wrap(services.ErrMalformed, "extractor", processor, "decode response", err)
	}
	return result, nil
}

// batchRequest and batchResponse form the wire contract of the batch
// processor: one call carries many source URLs, the response keys per-item
// results by source URL.
type batchRequest struct {
	URLs      []string `json:"urls"`
	BatchSize int      `json:"batch_size,omitempty"`
}

type batchResponse struct {
	Results map[string]Result `json:"results"`
}

// InvokeBatch calls the batch processor once for all sourceURLs and returns
// per-item results keyed by source URL. Missing keys are the caller's
// problem to treat as malformed per-item responses.
func (c *Client) InvokeBatch(ctx context.Context, processor string, sourceURLs []string, batchSize int) (map[string]Result, error) {
	if len(sourceURLs) == 0 {
		return map[string]Result{}, nil
	}
	payload := batchRequest{URLs: sourceURLs, BatchSize: batchSize}
	body, err := c.post(ctx, processor, payload, c.timeouts.batch)
	if err != nil {
		return nil, err
	}

	var resp batchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, services.Wrap(services.ErrMalformed, "extractor", processor, "decode batch response", err)
	}
	if resp.Results == nil {
		resp.Results = map[string]Result{}
	}
	return resp.Results, nil
}

func (c *Client) post(ctx context.Context, processor string, payload any, timeout time.Duration) ([]byte, error) {
	processor = strings.TrimSpace(processor)
	if processor == "" {
		return nil, services.Wrap(services.ErrValidation, "extractor", "invoke", "processor name required", nil)
	}
	endpoint, err := url.JoinPath(c.baseURL, processor)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "extractor", processor, "build url", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extractor", processor, "encode request", err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "extractor", processor, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, services.Wrap(services.ErrTimeout, "extractor", processor, "call timed out", err)
		}
		return nil, services.Wrap(services.ErrDownstream, "extractor", processor, "call failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrDownstream, "extractor", processor, "read response", err)
	}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, services.Wrap(services.ErrDownstream, "extractor", processor,
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, services.Wrap(services.ErrValidation, "extractor", processor,
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	return body, nil
}

// timeoutFor picks the per-call deadline by processor role: enrichment calls
// get the shorter budget, everything else runs under the core budget.
func (c *Client) timeoutFor(processor string) time.Duration {
	if processor == selector.ProcessorEnrich {
		return c.timeouts.enrichment
	}
	return c.timeouts.core
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
