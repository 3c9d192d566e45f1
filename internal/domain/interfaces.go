package domain

import (
	"context"
)

// CompletionModel produces chat completions.
type CompletionModel interface {
	// Complete handles unary requests (non-streaming).
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Stream returns a channel of events.
	// The channel is closed by the model when the stream ends, fails, or ctx is done.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamEvent, error)
}

// EmbeddingModel turns documents into vectors, one per document, in input order.
type EmbeddingModel interface {
	Embed(ctx context.Context, documents []string) ([]Embedding, error)

	// MaxDocuments is the per-call batch limit.
	MaxDocuments() int
}

// RerankModel scores documents against a query.
type RerankModel interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error)
}

// PredictModel classifies a single input.
type PredictModel interface {
	Predict(ctx context.Context, input string) (*PredictResponse, error)
}

// Verifier checks that the provider accepts the configured credentials.
type Verifier interface {
	Verify(ctx context.Context) error
}
