package tei

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tjfontaine/polyglot-providers/internal/decode"
	"github.com/tjfontaine/polyglot-providers/internal/domain"
	"github.com/tjfontaine/polyglot-providers/internal/endpoint"
	"github.com/tjfontaine/polyglot-providers/internal/metrics"
	"github.com/tjfontaine/polyglot-providers/internal/telemetry"
)

type rerankRequest struct {
	Query      string   `json:"query"`
	Texts      []string `json:"texts"`
	TopN       *int     `json:"top_n,omitempty"`
	ReturnText bool     `json:"return_text,omitempty"`
}

// Rerank scores texts against query. topN > 0 is sent to the router and
// applied again to the decoded list.
// topN == 0 means no limit, not an empty result.
func (c *Client) Rerank(ctx context.Context, query string, texts []string, topN int) (results []domain.RerankResult, err error) {
	if strings.TrimSpace(query) == "" {
		return nil, annotate(domain.NewValidationError("query cannot be empty"), telemetry.OpRerank)
	}
	if len(texts) == 0 {
		return nil, annotate(domain.NewValidationError("documents cannot be empty"), telemetry.OpRerank)
	}

	call := metrics.Start(ProviderName, telemetry.OpRerank, "")
	ctx, span := telemetry.StartSpan(ctx, telemetry.OpRerank, ProviderName, "",
		telemetry.AttrDocumentCount.Int(len(texts)))
	defer func() {
		err = annotate(err, telemetry.OpRerank)
		call.Finish(err)
		telemetry.End(span, err)
	}()

	body := rerankRequest{Query: query, Texts: texts, ReturnText: c.returnText}
	if topN > 0 {
		body.TopN = &topN
	}

	resp, err := c.post(ctx, endpoint.Rerank, body)
	if err != nil {
		return nil, err
	}
	results, err = decode.First(resp.Body, decode.RerankFlat)
	if err != nil {
		return nil, err
	}
	if err := decode.CheckRerankIndices(results, len(texts)); err != nil {
		return nil, err
	}

	c.logger.Debug("rerank response",
		slog.String("provider", ProviderName),
		slog.Int("documents", len(texts)),
		slog.Int("results", len(results)),
	)
	return domain.TruncateRerank(results, topN), nil
}
