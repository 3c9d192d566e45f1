package bailian

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/tjfontaine/polyglot-providers/internal/decode"
	"github.com/tjfontaine/polyglot-providers/internal/domain"
	"github.com/tjfontaine/polyglot-providers/internal/metrics"
	"github.com/tjfontaine/polyglot-providers/internal/telemetry"
)

// RerankRequest is the DashScope text-rerank request body.
type RerankRequest struct {
	Model      string           `json:"model"`
	Input      RerankInput      `json:"input"`
	Parameters RerankParameters `json:"parameters"`
}

type RerankInput struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type RerankParameters struct {
	ReturnDocuments bool `json:"return_documents"`
	TopN            *int `json:"top_n,omitempty"`
}

type rerankMeta struct {
	RequestID string `json:"request_id"`
	Usage     *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// RerankOption configures a rerank model.
type RerankOption func(*RerankModel)

// WithRerankURL overrides the rerank endpoint. The URL is used verbatim.
func WithRerankURL(url string) RerankOption {
	return func(m *RerankModel) {
		if url != "" {
			m.url = url
		}
	}
}

// WithReturnDocuments asks the service to echo document text in results.
func WithReturnDocuments(enabled bool) RerankOption {
	return func(m *RerankModel) {
		m.returnDocuments = enabled
	}
}

// RerankModel reranks documents with a DashScope rerank model.
type RerankModel struct {
	client          *Client
	model           string
	url             string
	returnDocuments bool
}

// RerankModel returns a rerank model bound to model.
func (c *Client) RerankModel(model string, opts ...RerankOption) *RerankModel {
	m := &RerankModel{client: c, model: model, url: c.rerankURL}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// URL returns the rerank endpoint.
func (m *RerankModel) URL() string {
	return m.url
}

// Rerank scores documents against query. Results keep the service's order;
// topN > 0 truncates them client-side even when the service already did.
// topN == 0 means no limit, not an empty result.
func (m *RerankModel) Rerank(ctx context.Context, query string, documents []string, topN int) (results []domain.RerankResult, err error) {
	if strings.TrimSpace(query) == "" {
		return nil, m.client.Annotate(domain.NewValidationError("query cannot be empty"), telemetry.OpRerank)
	}
	if len(documents) == 0 {
		return nil, m.client.Annotate(domain.NewValidationError("documents cannot be empty"), telemetry.OpRerank)
	}

	call := metrics.Start(ProviderName, telemetry.OpRerank, m.model)
	ctx, span := telemetry.StartSpan(ctx, telemetry.OpRerank, ProviderName, m.model,
		telemetry.AttrDocumentCount.Int(len(documents)))
	defer func() {
		err = m.client.Annotate(err, telemetry.OpRerank)
		call.Finish(err)
		telemetry.End(span, err)
	}()

	body := RerankRequest{
		Model: m.model,
		Input: RerankInput{Query: query, Documents: documents},
		Parameters: RerankParameters{
			ReturnDocuments: m.returnDocuments,
		},
	}
	if topN > 0 {
		body.Parameters.TopN = &topN
	}

	resp, err := m.client.PostJSON(ctx, m.url, body)
	if err != nil {
		return nil, err
	}
	if err := decode.Status(resp.StatusCode, resp.Body); err != nil {
		return nil, err
	}

	results, err = decode.First(resp.Body, decode.RerankNested)
	if err != nil {
		return nil, err
	}
	if err := decode.CheckRerankIndices(results, len(documents)); err != nil {
		return nil, err
	}

	var meta rerankMeta
	if json.Unmarshal(resp.Body, &meta) == nil {
		attrs := []any{
			slog.String("model", m.model),
			slog.String("request_id", meta.RequestID),
			slog.Int("results", len(results)),
		}
		if meta.Usage != nil {
			attrs = append(attrs, slog.Int("total_tokens", meta.Usage.TotalTokens))
			metrics.RecordUsage(ProviderName, m.model, domain.Usage{InputTokens: meta.Usage.TotalTokens})
		}
		m.client.Logger().Debug("rerank response", attrs...)
	}

	return domain.TruncateRerank(results, topN), nil
}
