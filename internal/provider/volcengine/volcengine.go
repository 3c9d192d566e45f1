// Package volcengine provides chat and embedding models for Volcengine Ark,
// which speaks the OpenAI-compatible wire format with bearer auth.
package volcengine

import (
	"github.com/tjfontaine/polyglot-providers/internal/config"
	"github.com/tjfontaine/polyglot-providers/internal/provider/openaicompat"
)

// ProviderName labels errors, spans and metrics.
const ProviderName = "volcengine"

// DefaultBaseURL is the Ark API base.
const DefaultBaseURL = config.DefaultVolcengineBaseURL

// Model names.
const (
	DoubaoSeed               = "Doubao-Seed-1.6"
	TextDoubaoEmbedding      = "Doubao-embedding"
	TextDoubaoEmbeddingLarge = "doubao-embedding-large"
)

// Client is a Volcengine Ark client.
type Client struct {
	*openaicompat.Client
}

// NewClient creates a client authenticating with apiKey.
func NewClient(apiKey string, opts ...openaicompat.ClientOption) *Client {
	return &Client{Client: openaicompat.NewClient(ProviderName, apiKey, DefaultBaseURL, opts...)}
}

// FromConfig creates a client from loaded configuration. Options given here
// are applied after the configured base URL.
func FromConfig(cfg config.VolcengineConfig, opts ...openaicompat.ClientOption) *Client {
	all := append([]openaicompat.ClientOption{openaicompat.WithBaseURL(cfg.BaseURL)}, opts...)
	return NewClient(cfg.APIKey, all...)
}
