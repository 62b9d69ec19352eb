package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/metrics"
	"example.com/backstage/services/procurement/internal/tracing"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RequestIDHeader carries a per-call id the backend can log
const RequestIDHeader = "X-Request-ID"

// Client calls the procurement backend REST API. It performs no retries and
// no caching; every failure is returned as *APIError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     tracing.Tracer
	metrics    *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTracer records backend calls as New Relic external segments
func WithTracer(tracer tracing.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// WithMetrics records call counts, timings and error rates
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client for the backend at cfg.BaseURL
func New(cfg config.APIConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tracer:     tracing.NewNoopTracer(),
		metrics:    metrics.NewMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a request and returns the response of a 2xx status. The caller
// closes the body. Any other outcome is an *APIError.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body interface{}) (resp *http.Response, err error) {
	start := time.Now()
	requestID := uuid.NewString()

	txn := c.tracer.StartTransaction("api." + op)
	defer c.tracer.EndTransaction(txn)

	defer func() {
		c.metrics.Observe("api."+op, start, err)
		if err != nil {
			c.tracer.RecordError(txn, err)
		}
		status := 0
		if resp != nil {
			status = resp.StatusCode
		} else if apiErr, ok := AsAPIError(err); ok {
			status = apiErr.Status
		}
		log.Debug().
			Str("op", op).
			Str("method", method).
			Str("path", path).
			Str("request_id", requestID).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Err(err).
			Msg("Backend call")
	}()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, transportError(err, "failed to encode %s request", op)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, transportError(err, "failed to build %s request", op)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	segment := c.tracer.StartExternalSegment(txn, req)
	resp, err = c.httpClient.Do(req)
	if segment != nil {
		segment.Response = resp
		segment.End()
	}
	if err != nil {
		return nil, transportError(err, "%s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, newAPIError(resp)
	}

	return resp, nil
}

// doJSON sends a request and decodes a JSON success body into out
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	resp, err := c.do(ctx, op, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{
			Status:  resp.StatusCode,
			Message: "malformed response from backend: " + err.Error(),
			Err:     err,
		}
	}
	return nil
}
