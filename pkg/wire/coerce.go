package wire

import (
	"encoding/json"
	"fmt"
)

// Stringify prepares an arbitrary body for transmission as a text frame.
// Strings pass through untouched; everything else is JSON-marshalled.
func Stringify(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("stringify body: %w", err)
	}
	return string(raw), nil
}

// ParseObject shallowly maps a JSON object into a map. Nested values stay as
// the types encoding/json produces (map[string]any, []any, float64, ...).
func ParseObject(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse object: %w", err)
	}
	return m, nil
}
