package openaicompat

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/polyglot-providers/internal/decode"
	"github.com/tjfontaine/polyglot-providers/internal/domain"
	"github.com/tjfontaine/polyglot-providers/internal/endpoint"
	"github.com/tjfontaine/polyglot-providers/internal/jsonmerge"
	"github.com/tjfontaine/polyglot-providers/internal/metrics"
	"github.com/tjfontaine/polyglot-providers/internal/telemetry"
	"github.com/tjfontaine/polyglot-providers/internal/transport"
)

var chunkShape = decode.Object[ChatCompletionChunk]("chat.completion.chunk", "choices")

// streamFlags is the final overlay for streaming requests.
func streamFlags() map[string]any {
	return map[string]any{
		"stream":         true,
		"stream_options": map[string]any{"include_usage": true},
	}
}

// BuildStreamRequest builds the same document as BuildRequest with the
// streaming flags merged over it last.
func (m *CompletionModel) BuildStreamRequest(req *domain.CompletionRequest) (map[string]any, error) {
	doc, err := m.BuildRequest(req)
	if err != nil {
		return nil, err
	}
	return jsonmerge.Objects(doc, streamFlags()), nil
}

// Stream sends a streaming chat completion. Events arrive in frame order; a
// failure mid-stream is delivered as a final event with Err set. When the
// provider never reports usage, a last event carries an estimate.
func (m *CompletionModel) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamEvent, error) {
	doc, err := m.BuildStreamRequest(req)
	if err != nil {
		return nil, m.client.annotate(err, telemetry.OpChatStreaming)
	}

	call := metrics.Start(m.client.provider, telemetry.OpChatStreaming, m.model)
	ctx, span := telemetry.StartSpan(ctx, telemetry.OpChatStreaming, m.client.provider, m.model, m.spanAttributes(req, doc)...)
	ctx, cancel := context.WithCancel(ctx)

	frames, err := m.client.transport.Stream(ctx, m.client.endpoints.MustURL(endpoint.Chat), m.client.auth(), doc)
	if err != nil {
		cancel()
		err = m.client.annotate(err, telemetry.OpChatStreaming)
		call.Finish(err)
		telemetry.End(span, err)
		return nil, err
	}

	s := &streamState{
		model:  m,
		req:    req,
		span:   span,
		call:   call,
		calls:  make(map[int]*domain.ToolCall),
		cancel: cancel,
	}
	out := make(chan domain.StreamEvent)
	go s.run(ctx, frames, out)
	return out, nil
}

type streamState struct {
	model  *CompletionModel
	req    *domain.CompletionRequest
	span   trace.Span
	call   *metrics.Call
	cancel context.CancelFunc

	id        string
	respModel string
	content   strings.Builder
	calls     map[int]*domain.ToolCall
	usage     *domain.Usage
}

func (s *streamState) run(ctx context.Context, frames <-chan transport.Frame, out chan<- domain.StreamEvent) {
	var err error
	client := s.model.client
	defer close(out)
	defer s.cancel()
	defer func() {
		err = client.annotate(err, telemetry.OpChatStreaming)
		s.call.Finish(err)
		telemetry.End(s.span, err)
	}()

	send := func(ev domain.StreamEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for frame := range frames {
		if frame.Err != nil {
			err = frame.Err
			send(domain.StreamEvent{Err: client.annotate(err, telemetry.OpChatStreaming)})
			return
		}

		chunk, derr := decode.Envelope(http.StatusOK, frame.Data, chunkShape)
		if derr != nil {
			client.logger.Warn("malformed stream frame",
				slog.String("provider", client.provider),
				slog.String("model", s.model.model),
				slog.String("error", derr.Error()),
			)
			err = derr
			send(domain.StreamEvent{Err: client.annotate(err, telemetry.OpChatStreaming)})
			return
		}

		for _, ev := range s.events(chunk) {
			if !send(ev) {
				err = domain.NewTransportError(ctx.Err())
				return
			}
		}
	}

	if ctx.Err() != nil {
		err = domain.NewTransportError(ctx.Err())
		return
	}

	if s.usage == nil {
		est := client.counter.EstimateUsage(s.model.model, s.req, s.content.String(), s.toolCalls())
		s.usage = &est
		if !send(domain.StreamEvent{ID: s.id, Model: s.respModel, Usage: s.usage}) {
			err = domain.NewTransportError(ctx.Err())
			return
		}
	}

	telemetry.RecordResponse(s.span, s.id, s.respModel)
	telemetry.RecordUsage(s.span, *s.usage)
	metrics.RecordUsage(client.provider, s.model.model, *s.usage)
}

// events converts one chunk into stream events, accumulating what the usage
// estimate needs along the way.
func (s *streamState) events(chunk ChatCompletionChunk) []domain.StreamEvent {
	if chunk.ID != "" {
		s.id = chunk.ID
	}
	if chunk.Model != "" {
		s.respModel = chunk.Model
	}

	var events []domain.StreamEvent
	for _, choice := range chunk.Choices {
		ev := domain.StreamEvent{
			ID:           chunk.ID,
			Model:        chunk.Model,
			Role:         choice.Delta.Role,
			ContentDelta: choice.Delta.Content,
		}
		if choice.FinishReason != nil {
			ev.FinishReason = *choice.FinishReason
		}
		s.content.WriteString(choice.Delta.Content)

		if len(choice.Delta.ToolCalls) == 0 {
			if ev.Role != "" || ev.ContentDelta != "" || ev.FinishReason != "" {
				events = append(events, ev)
			}
			continue
		}
		for i, tc := range choice.Delta.ToolCalls {
			delta := s.toolCallDelta(tc)
			if i == 0 {
				ev.ToolCall = delta
				events = append(events, ev)
				continue
			}
			events = append(events, domain.StreamEvent{ID: chunk.ID, Model: chunk.Model, ToolCall: delta})
		}
	}

	if chunk.Usage != nil {
		usage := chunk.Usage.ToUsage()
		s.usage = &usage
		if len(events) > 0 {
			events[len(events)-1].Usage = s.usage
		} else {
			events = append(events, domain.StreamEvent{ID: chunk.ID, Model: chunk.Model, Usage: s.usage})
		}
	}
	return events
}

func (s *streamState) toolCallDelta(tc ToolCallChunk) *domain.ToolCallDelta {
	delta := &domain.ToolCallDelta{Index: tc.Index, ID: tc.ID}
	if tc.Function != nil {
		delta.Name = tc.Function.Name
		delta.Arguments = tc.Function.Arguments
	}

	acc, ok := s.calls[tc.Index]
	if !ok {
		acc = &domain.ToolCall{}
		s.calls[tc.Index] = acc
	}
	if delta.ID != "" {
		acc.ID = delta.ID
	}
	if delta.Name != "" {
		acc.Name = delta.Name
	}
	acc.Arguments += delta.Arguments
	return delta
}

func (s *streamState) toolCalls() []domain.ToolCall {
	indices := make([]int, 0, len(s.calls))
	for i := range s.calls {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	calls := make([]domain.ToolCall, 0, len(indices))
	for _, i := range indices {
		calls = append(calls, *s.calls[i])
	}
	return calls
}
