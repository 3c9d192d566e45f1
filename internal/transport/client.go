// Package transport performs the HTTP round trips for every provider adapter.
//
// It only moves bytes: status classification and body decoding belong to the
// decode package. A failure here is always a transport error.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/polyglot-providers/internal/domain"
)

// DefaultUserAgent is sent when no WithUserAgent option is given.
const DefaultUserAgent = "polyglot-providers/1.0"

// attrRequestID carries the X-Request-Id of the latest round trip on the
// caller's span.
const attrRequestID = attribute.Key("polyglot.request.id")

// Auth describes how a request authenticates. The zero value sends no
// credentials, which is what TEI expects.
type Auth struct {
	BearerToken string
}

// Bearer returns bearer-token auth.
func Bearer(token string) Auth {
	return Auth{BearerToken: token}
}

// NoAuth returns auth that sends no Authorization header.
func NoAuth() Auth {
	return Auth{}
}

func (a Auth) apply(req *http.Request) {
	if a.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.BearerToken)
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithLogger sets the logger used for request debug logs.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client sends JSON requests. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a client. Without WithHTTPClient it uses an otelhttp
// instrumented transport so every round trip gets a client span.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: DefaultHTTPClient(),
		userAgent:  DefaultUserAgent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultHTTPClient returns an HTTP client with an instrumented transport.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// PostJSON marshals body, posts it to url and reads the whole response. Any
// status is returned as a Response; only failures to complete the exchange
// produce an error.
func (c *Client) PostJSON(ctx context.Context, url string, auth Auth, body any) (*Response, error) {
	httpReq, requestID, err := c.newJSONRequest(ctx, url, auth, body)
	if err != nil {
		return nil, err
	}
	return c.do(httpReq, requestID)
}

// Get issues a GET to url and reads the whole response.
func (c *Client) Get(ctx context.Context, url string, auth Auth) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewTransportError(fmt.Errorf("failed to create request: %w", err))
	}
	requestID := c.setHeaders(httpReq, auth)
	return c.do(httpReq, requestID)
}

func (c *Client) newJSONRequest(ctx context.Context, url string, auth Auth, body any) (*http.Request, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, "", domain.NewValidationError(fmt.Sprintf("failed to marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, "", domain.NewTransportError(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	requestID := c.setHeaders(httpReq, auth)
	return httpReq, requestID, nil
}

func (c *Client) do(httpReq *http.Request, requestID string) (*Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("provider request failed",
			slog.String("method", httpReq.Method),
			slog.String("url", httpReq.URL.String()),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return nil, domain.NewTransportError(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewTransportError(fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Debug("provider request",
		slog.String("method", httpReq.Method),
		slog.String("url", httpReq.URL.String()),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(respBody)),
		slog.Duration("duration", time.Since(start)),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
		RequestID:  requestID,
	}, nil
}

func (c *Client) setHeaders(req *http.Request, auth Auth) string {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	trace.SpanFromContext(req.Context()).SetAttributes(attrRequestID.String(requestID))
	req.Header.Set("User-Agent", c.userAgent)
	auth.apply(req)
	return requestID
}
