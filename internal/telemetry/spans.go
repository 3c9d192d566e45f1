// Package telemetry sets up tracing and records gen_ai spans around provider calls.
package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/polyglot-providers/internal/domain"
)

// TracerName is the instrumentation scope for provider spans.
const TracerName = "github.com/tjfontaine/polyglot-providers"

// Span names, also used as gen_ai.operation.name.
const (
	OpChat          = "chat"
	OpChatStreaming = "chat_streaming"
	OpEmbeddings    = "embeddings"
	OpRerank        = "rerank"
	OpPredict       = "predict"
)

// Attribute keys.
const (
	AttrOperationName      = attribute.Key("gen_ai.operation.name")
	AttrProviderName       = attribute.Key("gen_ai.provider.name")
	AttrRequestModel       = attribute.Key("gen_ai.request.model")
	AttrSystemInstructions = attribute.Key("gen_ai.system_instructions")
	AttrInputMessages      = attribute.Key("gen_ai.input.messages")
	AttrOutputMessages     = attribute.Key("gen_ai.output.messages")
	AttrResponseID         = attribute.Key("gen_ai.response.id")
	AttrResponseModel      = attribute.Key("gen_ai.response.model")
	AttrInputTokens        = attribute.Key("gen_ai.usage.input_tokens")
	AttrOutputTokens       = attribute.Key("gen_ai.usage.output_tokens")
	AttrUsageEstimated     = attribute.Key("polyglot.usage.estimated")
	AttrDocumentCount      = attribute.Key("polyglot.request.documents")
	AttrErrorType          = attribute.Key("error.type")
	AttrErrorRetryable     = attribute.Key("polyglot.error.retryable")
)

// StartSpan starts a client span for a provider operation.
func StartSpan(ctx context.Context, operation, provider, model string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := []attribute.KeyValue{
		AttrOperationName.String(operation),
		AttrProviderName.String(provider),
		AttrRequestModel.String(model),
	}
	return otel.Tracer(TracerName).Start(ctx, operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(base, attrs...)...),
	)
}

// RecordResponse sets the response id and model when known.
func RecordResponse(span trace.Span, id, model string) {
	if id != "" {
		span.SetAttributes(AttrResponseID.String(id))
	}
	if model != "" {
		span.SetAttributes(AttrResponseModel.String(model))
	}
}

// RecordUsage sets the usage attributes.
func RecordUsage(span trace.Span, usage domain.Usage) {
	span.SetAttributes(
		AttrInputTokens.Int(usage.InputTokens),
		AttrOutputTokens.Int(usage.OutputTokens),
	)
	if usage.Estimated {
		span.SetAttributes(AttrUsageEstimated.Bool(true))
	}
}

// End records err on span, if any, and ends it. Typed errors also set
// error.type: the error kind, or the status class for HTTP status errors.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var derr *domain.Error
		if errors.As(err, &derr) {
			errType := string(derr.Kind)
			if derr.Kind == domain.KindHTTPStatus {
				errType = string(derr.Type())
			}
			span.SetAttributes(
				AttrErrorType.String(errType),
				AttrErrorRetryable.Bool(derr.Retryable()),
			)
		}
	}
	span.End()
}
