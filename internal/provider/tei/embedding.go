package tei

import (
	"context"

	"github.com/tjfontaine/polyglot-providers/internal/decode"
	"github.com/tjfontaine/polyglot-providers/internal/domain"
	"github.com/tjfontaine/polyglot-providers/internal/endpoint"
	"github.com/tjfontaine/polyglot-providers/internal/metrics"
	"github.com/tjfontaine/polyglot-providers/internal/telemetry"
)

type embedRequest struct {
	Inputs any `json:"inputs"`
}

// EmbeddingModel embeds documents with the router's loaded model. The model
// name only labels spans and metrics; TEI serves one model per router.
type EmbeddingModel struct {
	client *Client
	model  string
	ndims  int
}

// EmbeddingModel returns an embedding model. ndims is informational.
func (c *Client) EmbeddingModel(model string, ndims int) *EmbeddingModel {
	return &EmbeddingModel{client: c, model: model, ndims: ndims}
}

// Dimensions returns the declared vector size, 0 when unknown.
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
		return nil, annotate(err, telemetry.OpEmbeddings)
	}

	call := metrics.Start(ProviderName, telemetry.OpEmbeddings, m.model)
	ctx, span := telemetry.StartSpan(ctx, telemetry.OpEmbeddings, ProviderName, m.model,
		telemetry.AttrDocumentCount.Int(len(documents)))
	defer func() {
		err = annotate(err, telemetry.OpEmbeddings)
		call.Finish(err)
		telemetry.End(span, err)
	}()

	resp, err := m.client.post(ctx, endpoint.Embed, embedRequest{Inputs: inputs(documents)})
	if err != nil {
		return nil, err
	}
	vecs, err := decode.TEIEmbeddings(resp.Body, len(documents))
	if err != nil {
		return nil, err
	}

	out = make([]domain.Embedding, len(documents))
	for i, doc := range documents {
		out[i] = domain.Embedding{Document: doc, Vector: vecs[i]}
	}
	return out, nil
}
