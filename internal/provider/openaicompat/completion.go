package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tjfontaine/polyglot-providers/internal/decode"
	"github.com/tjfontaine/polyglot-providers/internal/domain"
	"github.com/tjfontaine/polyglot-providers/internal/endpoint"
	"github.com/tjfontaine/polyglot-providers/internal/jsonmerge"
	"github.com/tjfontaine/polyglot-providers/internal/metrics"
	"github.com/tjfontaine/polyglot-providers/internal/telemetry"
)

var chatCompletionShape = decode.Object[ChatCompletionResponse]("chat.completion", "choices")

// CompletionModel runs chat completions against one model.
type CompletionModel struct {
	client *Client
	model  string
}

// CompletionModel returns a completion model bound to model.
func (c *Client) CompletionModel(model string) *CompletionModel {
	return &CompletionModel{client: c, model: model}
}

// Model returns the model name.
func (m *CompletionModel) Model() string {
	return m.model
}

// BuildRequest builds the chat request document: the typed request body with
// the caller's AdditionalParams merged over it.
func (m *CompletionModel) BuildRequest(req *domain.CompletionRequest) (map[string]any, error) {
	wire := ChatCompletionRequest{
		Model:       m.model,
		Messages:    buildMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	if len(req.Tools) > 0 {
		wire.Tools = make([]Tool, len(req.Tools))
		for i, t := range req.Tools {
			wire.Tools[i] = Tool{
				Type: "function",
				Function: FunctionTool{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			}
		}
		if req.ToolChoice != nil {
			if !req.ToolChoice.Valid() {
				return nil, domain.NewValidationError(fmt.Sprintf("unsupported tool choice %q", *req.ToolChoice))
			}
			wire.ToolChoice = string(*req.ToolChoice)
		}
	}

	doc, err := jsonmerge.FromStruct(wire)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	return jsonmerge.Layers(doc, req.AdditionalParams), nil
}

// buildMessages orders the history as: system preamble, context documents,
// then the caller's messages.
func buildMessages(req *domain.CompletionRequest) []Message {
	msgs := make([]Message, 0, len(req.ChatHistory)+2)
	if req.Preamble != "" {
		msgs = append(msgs, Message{Role: domain.RoleSystem, Content: req.Preamble})
	}
	if len(req.Documents) > 0 {
		msgs = append(msgs, Message{Role: domain.RoleUser, Content: renderDocuments(req.Documents)})
	}
	for _, msg := range req.ChatHistory {
		wire := Message{
			Role:       msg.Role,
			Content:    msg.Content,
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		msgs = append(msgs, wire)
	}
	return msgs
}

func renderDocuments(docs []domain.Document) string {
	var sb strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&sb, "<file id: %s>\n%s\n</file>\n", doc.ID, doc.Text)
	}
	return sb.String()
}

func (m *CompletionModel) spanAttributes(req *domain.CompletionRequest, doc map[string]any) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		telemetry.AttrSystemInstructions.String(req.Preamble),
	}
	if messages, err := json.Marshal(doc["messages"]); err == nil {
		attrs = append(attrs, telemetry.AttrInputMessages.String(string(messages)))
	}
	return attrs
}

// Complete sends a non-streaming chat completion.
func (m *CompletionModel) Complete(ctx context.Context, req *domain.CompletionRequest) (resp *domain.CompletionResponse, err error) {
	doc, err := m.BuildRequest(req)
	if err != nil {
		return nil, m.client.annotate(err, telemetry.OpChat)
	}

	call := metrics.Start(m.client.provider, telemetry.OpChat, m.model)
	ctx, span := telemetry.StartSpan(ctx, telemetry.OpChat, m.client.provider, m.model, m.spanAttributes(req, doc)...)
	defer func() {
		err = m.client.annotate(err, telemetry.OpChat)
		call.Finish(err)
		telemetry.End(span, err)
	}()

	httpResp, err := m.client.transport.PostJSON(ctx, m.client.endpoints.MustURL(endpoint.Chat), m.client.auth(), doc)
	if err != nil {
		return nil, err
	}

	wire, err := decode.Envelope(httpResp.StatusCode, httpResp.Body, chatCompletionShape)
	if err != nil {
		return nil, err
	}
	if len(wire.Choices) == 0 {
		return nil, domain.NewDecodeError("completion response has no choices", nil)
	}

	choice := wire.Choices[0]
	resp = &domain.CompletionResponse{
		ID:           wire.ID,
		Model:        wire.Model,
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Raw:          httpResp.Body,
	}
	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	if wire.Usage != nil {
		resp.Usage = wire.Usage.ToUsage()
	} else {
		resp.Usage = m.client.counter.EstimateUsage(m.model, req, resp.Content, resp.ToolCalls)
	}

	telemetry.RecordResponse(span, wire.ID, wire.Model)
	telemetry.RecordUsage(span, resp.Usage)
	if out, err := json.Marshal(wire.Choices); err == nil {
		span.SetAttributes(telemetry.AttrOutputMessages.String(string(out)))
	}
	metrics.RecordUsage(m.client.provider, m.model, resp.Usage)

	m.client.logger.Debug("completion response",
		slog.String("provider", m.client.provider),
		slog.String("model", m.model),
		slog.String("id", wire.ID),
		slog.String("request_id", httpResp.RequestID),
		slog.Int("input_tokens", resp.Usage.InputTokens),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
		slog.Bool("usage_estimated", resp.Usage.Estimated),
	)

	return resp, nil
}
