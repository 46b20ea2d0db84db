// Package api is the REST command surface of the agent engine.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/log"
	"github.com/mastershashi/llm-engineering-usecases/internal/metrics"
	"github.com/mastershashi/llm-engineering-usecases/internal/telemetry"
	"github.com/mastershashi/llm-engineering-usecases/internal/version"
)

// DefaultTimeout bounds every request. Cold planning on a local model
// can take well over a minute.
const DefaultTimeout = 3 * time.Minute

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Client talks to the engine's REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	timeout    time.Duration
	logger     *log.Logger
	metrics    *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends a bearer token on every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for failed commands
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records request counts and latency
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// http://localhost:8000/api.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     log.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Component("api")
	return c
}

// BaseURL returns the API root the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx response from the engine
type APIError struct {
	StatusCode int
	Body       string
	Detail     string
	RequestID  string
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Body
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, msg)
}

// errorBody covers the shapes the engine uses for error payloads.
type errorBody struct {
	Detail  any    `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newAPIError(status int, body []byte, requestID string) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body), RequestID: requestID}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch d := eb.Detail.(type) {
		case string:
			apiErr.Detail = d
		case nil:
		default:
			if raw, err := json.Marshal(d); err == nil {
				apiErr.Detail = string(raw)
			}
		}
		if apiErr.Detail == "" {
			apiErr.Detail = eb.Error
		}
		if apiErr.Detail == "" {
			apiErr.Detail = eb.Message
		}
	}
	return apiErr
}

// AsAPIError extracts an *APIError from err's chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := stderrors.As(err, &apiErr)
	return apiErr, ok
}

// do sends one request and decodes a 2xx body into out. operation names
// the command in logs, spans and metrics.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	requestID := uuid.NewString()

	ctx, span := telemetry.StartRequestSpan(ctx, operation, method, path, requestID)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	status, err := c.roundTrip(ctx, operation, method, path, requestID, body, out)
	c.metrics.RecordRequest(operation, status, time.Since(start))
	if status > 0 {
		telemetry.RecordStatus(span, status)
	}

	if err != nil {
		telemetry.RecordError(span, err)
		c.metrics.RecordCommandError(operation, string(errors.CodeOf(err)))
		c.logger.LogErrorContext(ctx, "command failed", err)
		return err
	}
	telemetry.RecordSuccess(span)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, operation, method, path, requestID string, body, out any) (int, error) {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, errors.Wrap(errors.ErrCodeCommandRequest, "failed to marshal request body", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeCommandRequest, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, errors.NewCommandTimeoutError(operation, err)
		}
		return 0, errors.Wrap(errors.ErrCodeCommandRequest, operation+" could not reach the engine", err).
			WithSuggestion("Check server.url in the config and that the engine is running")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return resp.StatusCode, errors.NewCommandFailedError(operation, newAPIError(resp.StatusCode, raw, requestID))
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return resp.StatusCode, errors.NewCommandTimeoutError(operation, err)
		}
		return resp.StatusCode, errors.Wrap(errors.ErrCodeCommandDecode, "failed to decode "+operation+" response", err)
	}
	return resp.StatusCode, nil
}
