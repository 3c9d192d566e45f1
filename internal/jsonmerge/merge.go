// Package jsonmerge deep-merges JSON documents decoded into Go values
// (map[string]any, []any, string, float64, bool, nil).
//
// The rule is the same everywhere: when both sides of a key are objects they
// are merged key by key, otherwise the overlay replaces the base outright.
// Arrays are never concatenated and keys are never deleted.
package jsonmerge

import (
	"encoding/json"
	"fmt"
)

// Merge returns base with overlay applied. Neither argument is modified.
func Merge(base, overlay any) any {
	b, bok := base.(map[string]any)
	o, ook := overlay.(map[string]any)
	if !bok || !ook {
		return overlay
	}
	return Objects(b, o)
}

// Objects merges overlay into a copy of base.
func Objects(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if existing, ok := out[k]; ok {
			out[k] = Merge(existing, v)
			continue
		}
		out[k] = v
	}
	return out
}

// Layers folds overlays onto base from left to right, so later layers dominate
// earlier ones on overlapping keys. Nil layers are skipped.
func Layers(base map[string]any, overlays ...map[string]any) map[string]any {
	out := base
	if out == nil {
		out = map[string]any{}
	}
	for _, overlay := range overlays {
		if overlay == nil {
			continue
		}
		out = Objects(out, overlay)
	}
	return out
}

// FromStruct converts a typed wire value into its document form by round
// tripping through encoding/json, so overlays can be applied to it.
func FromStruct(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}
	return doc, nil
}
