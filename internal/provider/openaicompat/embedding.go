package openaicompat

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tjfontaine/polyglot-providers/internal/decode"
	"github.com/tjfontaine/polyglot-providers/internal/domain"
	"github.com/tjfontaine/polyglot-providers/internal/endpoint"
	"github.com/tjfontaine/polyglot-providers/internal/metrics"
	"github.com/tjfontaine/polyglot-providers/internal/telemetry"
)

// MaxDocuments is the per-call embedding batch limit.
const MaxDocuments = 1024

// EmbeddingModel embeds documents with one model.
type EmbeddingModel struct {
	client *Client
	model  string
	ndims  int
}

// EmbeddingModel returns an embedding model. ndims > 0 is sent as the
// requested output dimensions; 0 leaves it to the provider.
func (c *Client) EmbeddingModel(model string, ndims int) *EmbeddingModel {
	return &EmbeddingModel{client: c, model: model, ndims: ndims}
}

// Model returns the model name.
func (m *EmbeddingModel) Model() string {
	return m.model
}

// Dimensions returns the requested output dimensions, 0 when unset.
func (m *EmbeddingModel) Dimensions() int {
	return m.ndims
}

// MaxDocuments implements domain.EmbeddingModel.
func (m *EmbeddingModel) MaxDocuments() int {
	return MaxDocuments
}

// Embed returns one embedding per document, in input order.
func (m *EmbeddingModel) Embed(ctx context.Context, documents []string) (out []domain.Embedding, err error) {
	if err := domain.ValidateBatch(len(documents), MaxDocuments); err != nil {
		return nil, m.client.annotate(err, telemetry.OpEmbeddings)
	}

	call := metrics.Start(m.client.provider, telemetry.OpEmbeddings, m.model)
	ctx, span := telemetry.StartSpan(ctx, telemetry.OpEmbeddings, m.client.provider, m.model,
		telemetry.AttrDocumentCount.Int(len(documents)))
	defer func() {
		err = m.client.annotate(err, telemetry.OpEmbeddings)
		call.Finish(err)
		telemetry.End(span, err)
	}()

	body := EmbeddingRequest{Model: m.model, Input: documents}
	if m.ndims > 0 {
		body.Dimensions = m.ndims
	}

	httpResp, err := m.client.transport.PostJSON(ctx, m.client.endpoints.MustURL(endpoint.Embeddings), m.client.auth(), body)
	if err != nil {
		return nil, err
	}

	vecs, err := decode.Envelope(httpResp.StatusCode, httpResp.Body, decode.EmbeddingData)
	if err != nil {
		return nil, err
	}
	if err := decode.CheckCount("embeddings", len(vecs), len(documents)); err != nil {
		return nil, err
	}

	m.logUsage(documents, httpResp.Body)

	out = make([]domain.Embedding, len(documents))
	for i, doc := range documents {
		out[i] = domain.Embedding{Document: doc, Vector: vecs[i]}
	}
	return out, nil
}

func (m *EmbeddingModel) logUsage(documents []string, body []byte) {
	var envelope struct {
		Usage *EmbeddingUsage `json:"usage"`
	}
	_ = json.Unmarshal(body, &envelope)

	usage := domain.Usage{}
	if envelope.Usage != nil {
		usage.InputTokens = envelope.Usage.PromptTokens
		usage.TotalTokens = envelope.Usage.TotalTokens
	} else {
		usage.InputTokens = m.client.counter.EstimateInputs(m.model, documents)
		usage.TotalTokens = usage.InputTokens
		usage.Estimated = true
	}

	metrics.RecordUsage(m.client.provider, m.model, usage)
	m.client.logger.Info("embedding token usage",
		slog.String("provider", m.client.provider),
		slog.String("model", m.model),
		slog.Int("prompt_tokens", usage.InputTokens),
		slog.Int("total_tokens", usage.TotalTokens),
		slog.Bool("estimated", usage.Estimated),
	)
}
