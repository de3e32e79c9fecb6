// Package transport provides the resty-backed HTTP client that sits behind the
// batch coordinator. One Client serves both roles the coordinator needs:
//
//   - Handler: single requests that bypass batching are sent as-is and their
//     HTTP result is returned as a batching.Response
//   - Transport: combined requests are POSTed to the batch endpoint and the
//     207 Multi-Status body is decoded into one response per sub-request
//
// RETRY POLICY:
// Single requests are retried on connection errors only, and only for
// idempotent methods: a POST that timed out may already have been applied.
// Combined requests are never retried: a partially applied batch must not be
// replayed, so SendBatch goes through a second resty client with retries off.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/concave-dev/coalesce/internal/batching"
	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/concave-dev/coalesce/internal/validate"
	"github.com/go-resty/resty/v2"
)

// Config holds the client configuration.
type Config struct {
	BaseURL    string        `validate:"required,http_url"` // e.g. http://127.0.0.1:8008
	Timeout    time.Duration `validate:"min=0"`             // Per request, 0 disables
	RetryCount int           `validate:"min=0,max=10"`      // Connection-error retries for idempotent single requests
	UserAgent  string
}

// DefaultConfig returns a client configuration for a local reference server.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://127.0.0.1:8008",
		Timeout:    10 * time.Second,
		RetryCount: 3,
		UserAgent:  "coalesce",
	}
}

// Validate checks the client configuration.
func (c *Config) Validate() error {
	if err := validate.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid transport config: %w", err)
	}
	return nil
}

// StatusError is returned when the server answers a combined request, or a
// JSON fetch, with a non-success status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, body)
}

// Client sends single and combined requests to one server.
type Client struct {
	client  *resty.Client // single requests, retries on connection errors
	batch   *resty.Client // combined requests, never retried
	baseURL string
}

// New creates a Client from config. A nil config uses DefaultConfig.
func New(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	return &Client{
		client:  newRestyClient(config, baseURL, config.RetryCount),
		batch:   newRestyClient(config, baseURL, 0),
		baseURL: baseURL,
	}, nil
}

func newRestyClient(config *Config, baseURL string, retries int) *resty.Client {
	client := resty.New()

	// Route Resty's internal logging through our structured logging system
	client.SetLogger(logging.RestyLogger{})

	client.
		SetTimeout(config.Timeout).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if config.UserAgent != "" {
		client.SetHeader("User-Agent", config.UserAgent)
	}

	if retries > 0 {
		client.
			SetRetryCount(retries).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			AddRetryCondition(retryable)
	}

	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		if id := req.Header.Get(batching.BatchIDHeader); id != "" {
			logging.Debug("Transport: Sending batch %s: %s %s", id, req.Method, req.URL)
			return nil
		}
		logging.Debug("Transport: Sending request: %s %s", req.Method, req.URL)
		return nil
	})

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logging.Debug("Transport: Response %d for %s %s (took %v)",
			resp.StatusCode(), resp.Request.Method, resp.Request.URL, resp.Time())
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		logging.Debug("Transport: Request failed: %s %s - %v", req.Method, req.URL, err)
	})

	return client
}

// BaseURL returns the server base URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do implements batching.Handler. Any HTTP status is returned as a Response;
// only connection-level failures are errors.
func (c *Client) Do(ctx context.Context, req *batching.Request) (*batching.Response, error) {
	r := c.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers)
	if len(req.Body) > 0 {
		r.SetBody([]byte(req.Body))
	}

	resp, err := r.Execute(strings.ToUpper(req.Method), req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server at %s: %w", c.baseURL, err)
	}

	return &batching.Response{
		Status:  resp.StatusCode(),
		Headers: flattenHeaders(resp.Header()),
		Body:    batching.RawBody(resp.Body()),
	}, nil
}

// batchResponse is the body of a 207 Multi-Status batch reply. Null items
// are sub-requests the server did not execute.
type batchResponse struct {
	Failed    string               `json:"failed,omitempty"`
	Responses []*batching.Response `json:"responses"`
}

// SendBatch implements batching.Transport.
func (c *Client) SendBatch(ctx context.Context, req *batching.BatchRequest) ([]batching.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	r := c.batch.R().
		SetContext(ctx).
		SetBody(req)
	if req.FlushID != "" {
		r.SetHeader(batching.BatchIDHeader, req.FlushID)
	}

	resp, err := r.Execute(method, req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to send batch to %s: %w", c.baseURL, err)
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var decoded batchResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}

	if decoded.Failed != "" {
		logging.Warn("Transport: Batch %s rejected by server (failed: %s)", logging.FormatFlushID(req.FlushID), decoded.Failed)
	}

	responses := make([]batching.Response, len(decoded.Responses))
	for i, item := range decoded.Responses {
		if item != nil {
			responses[i] = *item
		}
	}
	return responses, nil
}

// GetJSON fetches path and decodes a 2xx JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("failed to connect to server at %s: %w", c.baseURL, err)
	}
	if !resp.IsSuccess() {
		return &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// retryable reports whether a failed single request may be sent again. Only
// connection errors are retried, never HTTP errors, and only for methods
// that are safe to repeat.
func retryable(r *resty.Response, err error) bool {
	if err == nil || r == nil || r.Request == nil {
		return false
	}
	switch strings.ToUpper(r.Request.Method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// flattenHeaders keeps the first value of each response header.
func flattenHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
