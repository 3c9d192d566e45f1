package domain

import "fmt"

// Message represents a chat message in the caller's history.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Roles used in chat history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition describes a tool the model may call.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"` // JSON Schema
}

// ToolChoice selects how the model may use tools.
type ToolChoice string

const (
	ToolChoiceNone     ToolChoice = "none"
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
)

// Valid reports whether c is one of the supported selectors.
func (c ToolChoice) Valid() bool {
	switch c {
	case ToolChoiceNone, ToolChoiceAuto, ToolChoiceRequired:
		return true
	}
	return false
}

// Document is a context document attached to a completion request.
type Document struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CompletionRequest is the provider-agnostic completion request.
type CompletionRequest struct {
	// Preamble is the system instruction placed before the history.
	Preamble string

	// Documents are rendered into one user message ahead of the history.
	Documents []Document

	// ChatHistory is the ordered message history. Callers must supply at least
	// one message; this layer does not enforce it.
	ChatHistory []Message

	Tools       []ToolDefinition
	ToolChoice  *ToolChoice
	Temperature *float64
	MaxTokens   *int

	// AdditionalParams is merged over the built request last, recursively per
	// nested object.
	AdditionalParams map[string]any
}

// Usage represents token usage for one call.
type Usage struct {
	InputTokens  int  `json:"input_tokens"`
	OutputTokens int  `json:"output_tokens"`
	TotalTokens  int  `json:"total_tokens"`
	Estimated    bool `json:"estimated,omitempty"`
}

// CompletionResponse is the canonical non-streaming completion result.
type CompletionResponse struct {
	ID           string     `json:"id"`
	Model        string     `json:"model"`
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason"`
	Usage        Usage      `json:"usage"`

	// Raw is the undecoded provider body.
	Raw []byte `json:"-"`
}

// ToolCallDelta is a partial tool call received while streaming.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// StreamEvent is one decoded streaming frame.
type StreamEvent struct {
	ID           string         `json:"id,omitempty"`
	Model        string         `json:"model,omitempty"`
	Role         string         `json:"role,omitempty"`
	ContentDelta string         `json:"content_delta,omitempty"`
	ToolCall     *ToolCallDelta `json:"tool_call,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Usage        *Usage         `json:"usage,omitempty"`
	Err          error          `json:"-"`
}

// Embedding pairs an input document with its vector.
type Embedding struct {
	Document string    `json:"document"`
	Vector   []float64 `json:"vector"`
}

// RerankResult is one scored document. Index always refers to the caller's input
// position, never to the position in the result list.
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
	Text           string  `json:"text,omitempty"`
}

// LabelScore is one classification label.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// PredictResponse holds classification results in provider order.
type PredictResponse struct {
	Items []LabelScore `json:"items"`
}

// ValidateBatch rejects an empty batch and a batch larger than limit.
func ValidateBatch(n, limit int) error {
	switch {
	case n == 0:
		return NewValidationError("no documents to embed")
	case n > limit:
		return NewValidationError(fmt.Sprintf("%d documents exceed the per-call limit of %d", n, limit))
	}
	return nil
}

// TruncateRerank keeps the first n results. n <= 0 keeps everything.
func TruncateRerank(results []RerankResult, n int) []RerankResult {
	if n <= 0 || len(results) <= n {
		return results
	}
	return results[:n]
}
