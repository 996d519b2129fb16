package dune

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cryptotax/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.dune.com/api/v1"
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client against the Dune API v1.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = u
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Dune API client.
func NewHTTPClient(apiKey string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

type executeRequest struct {
	QueryParameters map[string]string `json:"query_parameters,omitempty"`
}

type executeResponse struct {
	ExecutionID string `json:"execution_id"`
	State       string `json:"state"`
}

type statusResponse struct {
	ExecutionID string `json:"execution_id"`
	State       string `json:"state"`
}

// Submit starts an execution of queryID with text parameters.
func (c *HTTPClient) Submit(ctx context.Context, queryID int64, params []Parameter) (string, error) {
	start := time.Now()
	defer func() {
		observability.RecordDuneRequest("execute", time.Since(start).Seconds())
	}()

	reqBody := executeRequest{}
	if len(params) > 0 {
		reqBody.QueryParameters = make(map[string]string, len(params))
		for _, p := range params {
			reqBody.QueryParameters[p.Name] = p.Value
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal execute request: %w", err)
	}

	url := fmt.Sprintf("%s/query/%d/execute", c.baseURL, queryID)
	respBody, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("execute query %d: %w", queryID, err)
	}

	var resp executeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("unmarshal execute response: %w", err)
	}
	if resp.ExecutionID == "" {
		return "", fmt.Errorf("execute query %d: empty execution id", queryID)
	}
	return resp.ExecutionID, nil
}

// PollStatus returns the current state of an execution.
func (c *HTTPClient) PollStatus(ctx context.Context, executionID string) (State, error) {
	start := time.Now()
	defer func() {
		observability.RecordDuneRequest("status", time.Since(start).Seconds())
	}()

	url := fmt.Sprintf("%s/execution/%s/status", c.baseURL, executionID)
	respBody, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("status of execution %s: %w", executionID, err)
	}

	var resp statusResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("unmarshal status response: %w", err)
	}
	return ParseState(resp.State)
}

// FetchResultCSV downloads the CSV result set of a completed execution.
func (c *HTTPClient) FetchResultCSV(ctx context.Context, executionID string) ([]byte, error) {
	start := time.Now()
	defer func() {
		observability.RecordDuneRequest("results", time.Since(start).Seconds())
	}()

	url := fmt.Sprintf("%s/execution/%s/results/csv", c.baseURL, executionID)
	respBody, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("results of execution %s: %w", executionID, err)
	}
	return respBody, nil
}

// do performs one API request with retries on 429 and 5xx responses.
func (c *HTTPClient) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("X-Dune-API-Key", c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			// Client errors are not retried
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
