package tokens

import (
	"testing"

	"github.com/tjfontaine/polyglot-providers/internal/domain"
)

func TestCounter_CountText(t *testing.T) {
	c := NewCounter()

	tests := []struct {
		name      string
		model     string
		text      string
		minTokens int
		maxTokens int
	}{
		{name: "empty", model: "gpt-4o", text: "", minTokens: 0, maxTokens: 0},
		{name: "short", model: "gpt-4o", text: "Hello, how are you?", minTokens: 3, maxTokens: 10},
		{name: "cl100k model", model: "gpt-4", text: "Hello world", minTokens: 1, maxTokens: 4},
		{name: "doubao", model: "Doubao-Seed-1.6", text: "The quick brown fox jumps over the lazy dog.", minTokens: 5, maxTokens: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.CountText(tt.model, tt.text)
			if got < tt.minTokens || got > tt.maxTokens {
				t.Errorf("CountText() = %d, want between %d and %d", got, tt.minTokens, tt.maxTokens)
			}
		})
	}
}

func TestCounter_EstimateUsage(t *testing.T) {
	c := NewCounter()

	req := &domain.CompletionRequest{
		Preamble:    "You are a helpful assistant.",
		Documents:   []domain.Document{{ID: "doc1", Text: "Paris is the capital of France."}},
		ChatHistory: []domain.Message{{Role: domain.RoleUser, Content: "What is the capital of France?"}},
		Tools: []domain.ToolDefinition{{
			Name:        "lookup",
			Description: "Look up a fact",
			Parameters:  map[string]any{"type": "object"},
		}},
	}

	usage := c.EstimateUsage("qwen3-max", req, "Paris.", nil)
	if !usage.Estimated {
		t.Error("Estimated = false, want true")
	}
	if usage.InputTokens <= assistantPriming {
		t.Errorf("InputTokens = %d, want more than priming overhead", usage.InputTokens)
	}
	if usage.OutputTokens < 1 {
		t.Errorf("OutputTokens = %d, want >= 1", usage.OutputTokens)
	}
	if usage.TotalTokens != usage.InputTokens+usage.OutputTokens {
		t.Errorf("TotalTokens = %d, want %d", usage.TotalTokens, usage.InputTokens+usage.OutputTokens)
	}

	withCalls := c.EstimateUsage("qwen3-max", req, "", []domain.ToolCall{{Name: "lookup", Arguments: `{"q":"france"}`}})
	if withCalls.OutputTokens <= tokensPerCall {
		t.Errorf("OutputTokens with tool call = %d", withCalls.OutputTokens)
	}
}

func TestCounter_EstimateFallback(t *testing.T) {
	c := &Counter{CharsPerToken: 4}
	if got := c.estimate("abcdefgh"); got != 2 {
		t.Errorf("estimate() = %d, want 2", got)
	}
	if got := c.estimate("a"); got != 1 {
		t.Errorf("estimate() = %d, want 1", got)
	}
}

func TestCounter_EstimateInputs(t *testing.T) {
	c := NewCounter()
	one := c.EstimateInputs("text-embedding-v4", []string{"hello world"})
	two := c.EstimateInputs("text-embedding-v4", []string{"hello world", "hello world"})
	if two != 2*one {
		t.Errorf("EstimateInputs() = %d, want %d", two, 2*one)
	}
}
