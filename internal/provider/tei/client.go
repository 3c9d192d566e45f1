// Package tei is a client for a Hugging Face Text Embeddings Inference router.
// TEI runs locally without credentials and serves embed, rerank and predict
// endpoints that are resolved once at construction.
package tei

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/polyglot-providers/internal/config"
	"github.com/tjfontaine/polyglot-providers/internal/decode"
	"github.com/tjfontaine/polyglot-providers/internal/domain"
	"github.com/tjfontaine/polyglot-providers/internal/endpoint"
	"github.com/tjfontaine/polyglot-providers/internal/transport"
)

// ProviderName labels errors, spans and metrics.
const ProviderName = "tei"

// DefaultBaseURL is the local router address.
const DefaultBaseURL = config.DefaultTEIBaseURL

// MaxDocuments is the per-call embedding batch limit.
const MaxDocuments = 1024

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets the router base URL. An empty value keeps the default.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithEmbedEndpoint replaces the embed URL. It is used verbatim.
func WithEmbedEndpoint(url string) ClientOption {
	return func(c *Client) { c.overrides[endpoint.Embed] = url }
}

// WithRerankEndpoint replaces the rerank URL. It is used verbatim.
func WithRerankEndpoint(url string) ClientOption {
	return func(c *Client) { c.overrides[endpoint.Rerank] = url }
}

// WithPredictEndpoint replaces the predict URL. It is used verbatim.
func WithPredictEndpoint(url string) ClientOption {
	return func(c *Client) { c.overrides[endpoint.Predict] = url }
}

// WithReturnText asks the rerank endpoint to echo document text.
func WithReturnText(enabled bool) ClientOption {
	return func(c *Client) { c.returnText = enabled }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
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
	return func(c *Client) { c.userAgent = userAgent }
}

// Client talks to one TEI router. It is immutable after NewClient and safe
// for concurrent use.
type Client struct {
	baseURL    string
	overrides  map[endpoint.Operation]string
	endpoints  endpoint.Set
	returnText bool
	httpClient *http.Client
	userAgent  string
	transport  *transport.Client
	logger     *slog.Logger
}

// NewClient creates a client. Without options it targets DefaultBaseURL.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		overrides: make(map[endpoint.Operation]string),
		userAgent: transport.DefaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.endpoints = endpoint.Resolve(c.baseURL, c.overrides, endpoint.Embed, endpoint.Rerank, endpoint.Predict)
	c.overrides = nil
	c.transport = transport.NewClient(
		transport.WithHTTPClient(c.httpClient),
		transport.WithUserAgent(c.userAgent),
		transport.WithLogger(c.logger),
	)
	return c
}

// FromConfig creates a client from loaded configuration. Options given here
// are applied after the configured values.
func FromConfig(cfg config.TEIConfig, opts ...ClientOption) *Client {
	all := []ClientOption{
		WithBaseURL(cfg.BaseURL),
		WithEmbedEndpoint(cfg.EmbedEndpoint),
		WithRerankEndpoint(cfg.RerankEndpoint),
		WithPredictEndpoint(cfg.PredictEndpoint),
	}
	return NewClient(append(all, opts...)...)
}

// Endpoints returns the resolved endpoint set.
func (c *Client) Endpoints() endpoint.Set {
	return c.endpoints
}

// Verify always succeeds; a local router has no credentials to check.
func (c *Client) Verify(context.Context) error {
	return nil
}

func (c *Client) post(ctx context.Context, op endpoint.Operation, body any) (*transport.Response, error) {
	resp, err := c.transport.PostJSON(ctx, c.endpoints.MustURL(op), transport.NoAuth(), body)
	if err != nil {
		return nil, err
	}
	if err := decode.Status(resp.StatusCode, resp.Body); err != nil {
		return nil, err
	}
	return resp, nil
}

func annotate(err error, operation string) error {
	return domain.Annotate(err, ProviderName, operation)
}

// inputs is the TEI "inputs" value: a bare string for one item, a list otherwise.
func inputs(items []string) any {
	if len(items) == 1 {
		return items[0]
	}
	return items
}
