package openaicompat

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/tjfontaine/polyglot-providers/internal/domain"
	"github.com/tjfontaine/polyglot-providers/internal/testutil"
)

func newTestClient(mock *testutil.MockProvider) *Client {
	return NewClient("volcengine", "test-key", "http://unused.invalid",
		WithBaseURL(mock.URL()+"/api/v3/"),
		WithHTTPClient(mock.Client()),
	)
}

func ptr[T any](v T) *T { return &v }

func TestBuildRequest(t *testing.T) {
	c := NewClient("volcengine", "k", "http://example.test/api/v3")
	m := c.CompletionModel("Doubao-Seed-1.6")

	tests := []struct {
		name string
		req  *domain.CompletionRequest
		want map[string]any
	}{
		{
			name: "minimal omits optional fields",
			req: &domain.CompletionRequest{
				ChatHistory: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
			},
			want: map[string]any{
				"model": "Doubao-Seed-1.6",
				"messages": []any{
					map[string]any{"role": "user", "content": "hi"},
				},
			},
		},
		{
			name: "preamble and documents precede history",
			req: &domain.CompletionRequest{
				Preamble:    "be brief",
				Documents:   []domain.Document{{ID: "a", Text: "alpha"}, {ID: "b", Text: "beta"}},
				ChatHistory: []domain.Message{{Role: domain.RoleUser, Content: "summarize"}},
				Temperature: ptr(0.3),
				MaxTokens:   ptr(64),
			},
			want: map[string]any{
				"model": "Doubao-Seed-1.6",
				"messages": []any{
					map[string]any{"role": "system", "content": "be brief"},
					map[string]any{"role": "user", "content": "<file id: a>\nalpha\n</file>\n<file id: b>\nbeta\n</file>\n"},
					map[string]any{"role": "user", "content": "summarize"},
				},
				"temperature": 0.3,
				"max_tokens":  64.0,
			},
		},
		{
			name: "tools with lowercase tool choice",
			req: &domain.CompletionRequest{
				ChatHistory: []domain.Message{{Role: domain.RoleUser, Content: "weather?"}},
				Tools: []domain.ToolDefinition{{
					Name:        "get_weather",
					Description: "Look up weather",
					Parameters:  map[string]any{"type": "object"},
				}},
				ToolChoice: ptr(domain.ToolChoiceRequired),
			},
			want: map[string]any{
				"model": "Doubao-Seed-1.6",
				"messages": []any{
					map[string]any{"role": "user", "content": "weather?"},
				},
				"tools": []any{
					map[string]any{
						"type": "function",
						"function": map[string]any{
							"name":        "get_weather",
							"description": "Look up weather",
							"parameters":  map[string]any{"type": "object"},
						},
					},
				},
				"tool_choice": "required",
			},
		},
		{
			name: "tool choice without tools is dropped",
			req: &domain.CompletionRequest{
				ChatHistory: []domain.Message{{Role: domain.RoleUser, Content: "x"}},
				ToolChoice:  ptr(domain.ToolChoiceAuto),
			},
			want: map[string]any{
				"model":    "Doubao-Seed-1.6",
				"messages": []any{map[string]any{"role": "user", "content": "x"}},
			},
		},
		{
			name: "additional params merged last and recursively",
			req: &domain.CompletionRequest{
				ChatHistory: []domain.Message{{Role: domain.RoleUser, Content: "x"}},
				Temperature: ptr(0.1),
				AdditionalParams: map[string]any{
					"temperature": 0.9,
					"thinking":    map[string]any{"type": "disabled"},
					"messages":    []any{map[string]any{"role": "user", "content": "replaced"}},
				},
			},
			want: map[string]any{
				"model":       "Doubao-Seed-1.6",
				"messages":    []any{map[string]any{"role": "user", "content": "replaced"}},
				"temperature": 0.9,
				"thinking":    map[string]any{"type": "disabled"},
			},
		},
		{
			name: "assistant tool calls and tool results",
			req: &domain.CompletionRequest{
				ChatHistory: []domain.Message{
					{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "call_1", Name: "f", Arguments: "{}"}}},
					{Role: domain.RoleTool, Content: "42", ToolCallID: "call_1"},
				},
			},
			want: map[string]any{
				"model": "Doubao-Seed-1.6",
				"messages": []any{
					map[string]any{
						"role":    "assistant",
						"content": "",
						"tool_calls": []any{map[string]any{
							"id":       "call_1",
							"type":     "function",
							"function": map[string]any{"name": "f", "arguments": "{}"},
						}},
					},
					map[string]any{"role": "tool", "content": "42", "tool_call_id": "call_1"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.BuildRequest(tt.req)
			if err != nil {
				t.Fatalf("BuildRequest() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildRequest() = %#v\nwant %#v", got, tt.want)
			}
		})
	}
}

func TestBuildRequest_InvalidToolChoice(t *testing.T) {
	m := NewClient("volcengine", "k", "http://example.test").CompletionModel("m")
	_, err := m.BuildRequest(&domain.CompletionRequest{
		Tools:      []domain.ToolDefinition{{Name: "f"}},
		ToolChoice: ptr(domain.ToolChoice("Specific")),
	})
	if !domain.IsValidation(err) {
		t.Fatalf("BuildRequest() error = %v, want validation error", err)
	}
}

func TestComplete(t *testing.T) {
	mock := testutil.NewMockProvider(t)
	mock.Respond(http.MethodPost, "/api/v3/chat/completions", http.StatusOK, `{
		"id": "chatcmpl-123",
		"object": "chat.completion",
		"model": "doubao-seed-1-6-250615",
		"choices": [{
			"index": 0,
			"message": {"role": "assistant", "content": "Hello!", "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "lookup", "arguments": "{\"q\":1}"}}
			]},
			"finish_reason": "tool_calls"
		}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
	}`)

	m := newTestClient(mock).CompletionModel("Doubao-Seed-1.6")
	resp, err := m.Complete(context.Background(), &domain.CompletionRequest{
		ChatHistory: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if resp.ID != "chatcmpl-123" || resp.Content != "Hello!" || resp.FinishReason != "tool_calls" {
		t.Errorf("Complete() = %+v", resp)
	}
	wantCalls := []domain.ToolCall{{ID: "call_1", Name: "lookup", Arguments: `{"q":1}`}}
	if !reflect.DeepEqual(resp.ToolCalls, wantCalls) {
		t.Errorf("ToolCalls = %+v, want %+v", resp.ToolCalls, wantCalls)
	}
	wantUsage := domain.Usage{InputTokens: 12, OutputTokens: 5, TotalTokens: 17}
	if resp.Usage != wantUsage {
		t.Errorf("Usage = %+v, want %+v", resp.Usage, wantUsage)
	}

	req := mock.LastRequest(t)
	if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if _, ok := req.JSON(t)["stream"]; ok {
		t.Error("non-streaming request must not carry stream flag")
	}
}

func TestComplete_UsageSaturates(t *testing.T) {
	mock := testutil.NewMockProvider(t)
	mock.Respond(http.MethodPost, "/api/v3/chat/completions", http.StatusOK, `{
		"id": "x", "choices": [{"message": {"role": "assistant", "content": "ok"}}],
		"usage": {"prompt_tokens": 20, "total_tokens": 15}
	}`)

	resp, err := newTestClient(mock).CompletionModel("m").Complete(context.Background(), &domain.CompletionRequest{
		ChatHistory: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Usage.InputTokens != 20 || resp.Usage.OutputTokens != 0 {
		t.Errorf("Usage = %+v, want input 20 output 0", resp.Usage)
	}
}

func TestComplete_MissingUsageIsEstimated(t *testing.T) {
	mock := testutil.NewMockProvider(t)
	mock.Respond(http.MethodPost, "/api/v3/chat/completions", http.StatusOK,
		`{"id": "x", "choices": [{"message": {"role": "assistant", "content": "The answer is four."}}]}`)

	resp, err := newTestClient(mock).CompletionModel("m").Complete(context.Background(), &domain.CompletionRequest{
		ChatHistory: []domain.Message{{Role: domain.RoleUser, Content: "What is 2+2?"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !resp.Usage.Estimated || resp.Usage.InputTokens == 0 || resp.Usage.OutputTokens == 0 {
		t.Errorf("Usage = %+v, want non-zero estimate", resp.Usage)
	}
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   domain.ErrorKind
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "error envelope with 200",
			status:     http.StatusOK,
			body:       `{"error": {"message": "model overloaded", "type": "server_error"}}`,
			wantKind:   domain.KindProvider,
			wantStatus: http.StatusOK,
			wantMsg:    "model overloaded",
		},
		{
			name:       "http status with message",
			status:     http.StatusInternalServerError,
			body:       `{"message": "overloaded"}`,
			wantKind:   domain.KindHTTPStatus,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "overloaded",
		},
		{
			name:       "http status without message",
			status:     http.StatusBadRequest,
			body:       `{"code": "InvalidParameter"}`,
			wantKind:   domain.KindHTTPStatus,
			wantStatus: http.StatusBadRequest,
			wantMsg:    domain.UnknownErrorMessage,
		},
		{
			name:     "zero choices",
			status:   http.StatusOK,
			body:     `{"id": "x", "choices": []}`,
			wantKind: domain.KindDecode,
		},
		{
			name:     "unrecognised body",
			status:   http.StatusOK,
			body:     `{"result": "ok"}`,
			wantKind: domain.KindDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockProvider(t)
			mock.Respond(http.MethodPost, "/api/v3/chat/completions", tt.status, tt.body)

			_, err := newTestClient(mock).CompletionModel("m").Complete(context.Background(), &domain.CompletionRequest{
				ChatHistory: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
			})
			var derr *domain.Error
			if !errors.As(err, &derr) {
				t.Fatalf("Complete() error = %v, want *domain.Error", err)
			}
			if derr.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", derr.Kind, tt.wantKind)
			}
			if derr.Provider != "volcengine" || derr.Operation != "chat" {
				t.Errorf("Provider/Operation = %q/%q", derr.Provider, derr.Operation)
			}
			if tt.wantStatus != 0 && derr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", derr.StatusCode, tt.wantStatus)
			}
			if tt.wantMsg != "" && derr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", derr.Message, tt.wantMsg)
			}
		})
	}
}

func TestComplete_TransportError(t *testing.T) {
	c := NewClient("bailian", "k", "http://127.0.0.1:1", WithHTTPClient(&http.Client{}))
	_, err := c.CompletionModel("qwen3-max").Complete(context.Background(), &domain.CompletionRequest{
		ChatHistory: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	if !domain.IsTransport(err) {
		t.Fatalf("Complete() error = %v, want transport error", err)
	}
	if !strings.HasPrefix(err.Error(), "bailian transport") {
		t.Errorf("error = %q, want provider prefix", err.Error())
	}
}
