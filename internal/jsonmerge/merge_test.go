package jsonmerge

import (
	"reflect"
	"testing"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		base    any
		overlay any
		want    any
	}{
		{
			name:    "new keys are added and base keys kept",
			base:    map[string]any{"model": "m", "temperature": 0.2},
			overlay: map[string]any{"top_p": 0.9},
			want:    map[string]any{"model": "m", "temperature": 0.2, "top_p": 0.9},
		},
		{
			name:    "scalar replaced outright",
			base:    map[string]any{"temperature": 0.2},
			overlay: map[string]any{"temperature": 1.0},
			want:    map[string]any{"temperature": 1.0},
		},
		{
			name: "nested objects merged recursively",
			base: map[string]any{
				"stream_options": map[string]any{"include_usage": false, "chunk": 10.0},
			},
			overlay: map[string]any{
				"stream_options": map[string]any{"include_usage": true},
			},
			want: map[string]any{
				"stream_options": map[string]any{"include_usage": true, "chunk": 10.0},
			},
		},
		{
			name:    "arrays replaced not concatenated",
			base:    map[string]any{"stop": []any{"a", "b"}},
			overlay: map[string]any{"stop": []any{"c"}},
			want:    map[string]any{"stop": []any{"c"}},
		},
		{
			name:    "type mismatch overlay wins",
			base:    map[string]any{"tool_choice": map[string]any{"type": "function"}},
			overlay: map[string]any{"tool_choice": "auto"},
			want:    map[string]any{"tool_choice": "auto"},
		},
		{
			name:    "object replaces scalar",
			base:    map[string]any{"response_format": "text"},
			overlay: map[string]any{"response_format": map[string]any{"type": "json_object"}},
			want:    map[string]any{"response_format": map[string]any{"type": "json_object"}},
		},
		{
			name:    "explicit null overlay replaces value",
			base:    map[string]any{"max_tokens": 100.0},
			overlay: map[string]any{"max_tokens": nil},
			want:    map[string]any{"max_tokens": nil},
		},
		{
			name:    "non-object roots overlay wins",
			base:    []any{1.0},
			overlay: "x",
			want:    "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.base, tt.overlay)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Merge() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestObjects_DoesNotMutateInputs(t *testing.T) {
	base := map[string]any{"a": map[string]any{"x": 1.0}}
	overlay := map[string]any{"a": map[string]any{"y": 2.0}, "b": true}

	_ = Objects(base, overlay)

	if !reflect.DeepEqual(base, map[string]any{"a": map[string]any{"x": 1.0}}) {
		t.Errorf("base mutated: %#v", base)
	}
	if !reflect.DeepEqual(overlay, map[string]any{"a": map[string]any{"y": 2.0}, "b": true}) {
		t.Errorf("overlay mutated: %#v", overlay)
	}
}

func TestObjects_NewKeysUnion(t *testing.T) {
	base := map[string]any{"a": 1.0, "b": "two"}
	overlay := map[string]any{"c": false, "d": []any{"x"}}

	got := Objects(base, overlay)
	for k, v := range base {
		if !reflect.DeepEqual(got[k], v) {
			t.Errorf("base key %q lost: got %#v", k, got[k])
		}
	}
	for k, v := range overlay {
		if !reflect.DeepEqual(got[k], v) {
			t.Errorf("overlay key %q missing: got %#v", k, got[k])
		}
	}
	if len(got) != 4 {
		t.Errorf("len = %d, want 4", len(got))
	}
}

func TestLayers_Precedence(t *testing.T) {
	request := map[string]any{
		"model":  "doubao",
		"stream": false,
	}
	caller := map[string]any{
		"stream":         false,
		"stream_options": map[string]any{"include_usage": false, "extra": "kept"},
	}
	streaming := map[string]any{
		"stream":         true,
		"stream_options": map[string]any{"include_usage": true},
	}

	got := Layers(request, caller, nil, streaming)
	want := map[string]any{
		"model":          "doubao",
		"stream":         true,
		"stream_options": map[string]any{"include_usage": true, "extra": "kept"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Layers() = %#v, want %#v", got, want)
	}
}

func TestFromStruct(t *testing.T) {
	type wire struct {
		Model string `json:"model"`
		TopN  *int   `json:"top_n,omitempty"`
	}

	doc, err := FromStruct(wire{Model: "gte"})
	if err != nil {
		t.Fatalf("FromStruct() error = %v", err)
	}
	if !reflect.DeepEqual(doc, map[string]any{"model": "gte"}) {
		t.Errorf("FromStruct() = %#v", doc)
	}

	if _, err := FromStruct([]int{1}); err == nil {
		t.Error("expected error for non-object value")
	}
}
