package tei

import (
	"context"

	"github.com/tjfontaine/polyglot-providers/internal/decode"
	"github.com/tjfontaine/polyglot-providers/internal/domain"
	"github.com/tjfontaine/polyglot-providers/internal/endpoint"
	"github.com/tjfontaine/polyglot-providers/internal/metrics"
	"github.com/tjfontaine/polyglot-providers/internal/telemetry"
)

type predictRequest struct {
	Inputs any `json:"inputs"`
}

// Predict classifies a single input.
func (c *Client) Predict(ctx context.Context, input string) (*domain.PredictResponse, error) {
	return c.PredictInputs(ctx, []string{input})
}

// PredictInputs classifies one or more inputs in a single request. Labels are
// returned in the router's order.
func (c *Client) PredictInputs(ctx context.Context, items []string) (resp *domain.PredictResponse, err error) {
	if len(items) == 0 {
		return nil, annotate(domain.NewValidationError("no inputs to classify"), telemetry.OpPredict)
	}

	call := metrics.Start(ProviderName, telemetry.OpPredict, "")
	ctx, span := telemetry.StartSpan(ctx, telemetry.OpPredict, ProviderName, "",
		telemetry.AttrDocumentCount.Int(len(items)))
	defer func() {
		err = annotate(err, telemetry.OpPredict)
		call.Finish(err)
		telemetry.End(span, err)
	}()

	raw, err := c.post(ctx, endpoint.Predict, predictRequest{Inputs: inputs(items)})
	if err != nil {
		return nil, err
	}
	labels, err := decode.First(raw.Body, decode.PredictShapes...)
	if err != nil {
		return nil, err
	}
	return &domain.PredictResponse{Items: labels}, nil
}
