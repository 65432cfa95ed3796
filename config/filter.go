package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Filter names a coercion applied to a value returned by Get.
type Filter string

// Named filters.
const (
	FilterArray  Filter = "array"
	FilterHash   Filter = "hash"
	FilterString Filter = "string"
	FilterSymbol Filter = "symbol"
	FilterTest   Filter = "test"
)

// Apply coerces value to the filter's shape. Unknown filters return the
// value unchanged.
func (f Filter) Apply(value any) any {
	switch f {
	case FilterArray:
		return Array(value)
	case FilterHash:
		return Hash(value)
	case FilterString:
		return String(value)
	case FilterSymbol:
		return NormalizeKey(value)
	case FilterTest:
		return Test(value)
	default:
		return value
	}
}

// Array coerces value to a list. Nil becomes an empty list and a scalar
// becomes a one-element list.
func Array(value any) []any {
	switch v := Normalize(value).(type) {
	case nil:
		return []any{}
	case []any:
		return v
	default:
		return []any{v}
	}
}

// Hash coerces value to a map. Anything that is not map-like becomes an
// empty map.
func Hash(value any) map[string]any {
	if m, ok := Normalize(value).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// String coerces value to a string. Maps and lists are rendered as JSON.
func String(value any) string {
	switch v := Normalize(value).(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}

// Test reports whether value is non-empty and not a false-like word.
func Test(value any) bool {
	switch v := Normalize(value).(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "false", "no", "n":
			return false
		}
		return true
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
