// Package openaicompat implements chat, embeddings and verification for
// providers that speak the OpenAI-compatible wire format (Volcengine Ark,
// Bailian compatible mode). Provider packages wrap a Client with their own
// names, defaults and model constants.
package openaicompat

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tjfontaine/polyglot-providers/internal/decode"
	"github.com/tjfontaine/polyglot-providers/internal/domain"
	"github.com/tjfontaine/polyglot-providers/internal/endpoint"
	"github.com/tjfontaine/polyglot-providers/internal/tokens"
	"github.com/tjfontaine/polyglot-providers/internal/transport"
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL. An empty value keeps the default.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTokenCounter sets the counter used when a response omits usage.
func WithTokenCounter(counter *tokens.Counter) ClientOption {
	return func(c *Client) {
		if counter != nil {
			c.counter = counter
		}
	}
}

// Client is an OpenAI-compatible provider client. Its endpoints and
// credentials are fixed at construction, so it is safe to share.
type Client struct {
	provider   string
	apiKey     string
	baseURL    string
	endpoints  endpoint.Set
	httpClient *http.Client
	userAgent  string
	transport  *transport.Client
	logger     *slog.Logger
	counter    *tokens.Counter
}

// NewClient creates a client for provider, authenticating with apiKey.
func NewClient(provider, apiKey, defaultBaseURL string, opts ...ClientOption) *Client {
	c := &Client{
		provider:  provider,
		apiKey:    apiKey,
		baseURL:   strings.TrimSuffix(defaultBaseURL, "/"),
		userAgent: transport.DefaultUserAgent,
		logger:    slog.Default(),
		counter:   tokens.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.endpoints = endpoint.Resolve(c.baseURL, nil, endpoint.Chat, endpoint.Embeddings, endpoint.Models)
	c.transport = transport.NewClient(
		transport.WithHTTPClient(c.httpClient),
		transport.WithUserAgent(c.userAgent),
		transport.WithLogger(c.logger),
	)
	return c
}

// Provider returns the provider name used in errors, spans and metrics.
func (c *Client) Provider() string {
	return c.provider
}

// BaseURL returns the resolved base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Endpoints returns the resolved endpoint set.
func (c *Client) Endpoints() endpoint.Set {
	return c.endpoints
}

func (c *Client) auth() transport.Auth {
	return transport.Bearer(c.apiKey)
}

func (c *Client) annotate(err error, operation string) error {
	return domain.Annotate(err, c.provider, operation)
}

// Verify checks the API key against the models endpoint. 401 means the key is
// rejected, 500/502/503 are provider failures; any other status counts as
// reachable and accepted.
func (c *Client) Verify(ctx context.Context) error {
	resp, err := c.transport.Get(ctx, c.endpoints.MustURL(endpoint.Models), c.auth())
	if err != nil {
		return c.annotate(err, "verify")
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return c.annotate(&domain.Error{
			Kind:       domain.KindHTTPStatus,
			StatusCode: resp.StatusCode,
			Message:    decode.FailureMessage(resp.Body),
			Err:        domain.ErrInvalidAuthentication,
		}, "verify")
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return c.annotate(domain.NewHTTPStatusError(resp.StatusCode, decode.FailureMessage(resp.Body)), "verify")
	default:
		c.logger.Debug("verify accepted non-200 status",
			slog.String("provider", c.provider),
			slog.Int("status", resp.StatusCode),
		)
		return nil
	}
}

// PostJSON posts body to url with this client's credentials. Provider
// packages use it for endpoints outside the OpenAI-compatible surface.
func (c *Client) PostJSON(ctx context.Context, url string, body any) (*transport.Response, error) {
	return c.transport.PostJSON(ctx, url, c.auth(), body)
}

// Annotate tags err with this client's provider name and operation.
func (c *Client) Annotate(err error, operation string) error {
	return c.annotate(err, operation)
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}
