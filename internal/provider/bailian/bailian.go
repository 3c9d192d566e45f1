// Package bailian provides chat, embedding and rerank models for Alibaba
// Cloud Bailian (DashScope). Chat and embeddings use the OpenAI-compatible
// mode; rerank uses the native DashScope text-rerank service.
package bailian

import (
	"github.com/tjfontaine/polyglot-providers/internal/config"
	"github.com/tjfontaine/polyglot-providers/internal/provider/openaicompat"
)

// ProviderName labels errors, spans and metrics.
const ProviderName = "bailian"

// Default endpoints.
const (
	DefaultBaseURL   = config.DefaultBailianBaseURL
	DefaultRerankURL = config.DefaultBailianRerankURL
)

// Model names.
const (
	Qwen3Max        = "qwen3-max"
	TextEmbeddingV4 = "text-embedding-v4"
	GteRerankV2     = "gte-rerank-v2"
)

// Client is a Bailian client.
type Client struct {
	*openaicompat.Client
	rerankURL string
}

// NewClient creates a client authenticating with apiKey. The rerank endpoint
// defaults to DefaultRerankURL; see WithRerankURL on the model.
func NewClient(apiKey string, opts ...openaicompat.ClientOption) *Client {
	return &Client{
		Client:    openaicompat.NewClient(ProviderName, apiKey, DefaultBaseURL, opts...),
		rerankURL: DefaultRerankURL,
	}
}

// FromConfig creates a client from loaded configuration.
func FromConfig(cfg config.BailianConfig, opts ...openaicompat.ClientOption) *Client {
	all := append([]openaicompat.ClientOption{openaicompat.WithBaseURL(cfg.BaseURL)}, opts...)
	c := NewClient(cfg.APIKey, all...)
	if cfg.RerankURL != "" {
		c.rerankURL = cfg.RerankURL
	}
	return c
}
