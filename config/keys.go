package config

import (
	"fmt"
	"reflect"
	"strings"
)

// NormalizeKey converts a key of any type to its canonical string form.
func NormalizeKey(key any) string {
	switch k := key.(type) {
	case nil:
		return ""
	case string:
		return k
	case fmt.Stringer:
		return k.String()
	case []byte:
		return string(k)
	default:
		return fmt.Sprint(k)
	}
}

// Path converts a key or key sequence to a normalized key path.
// A single key is wrapped into a one-element path. Empty keys are dropped.
func Path(path any) []string {
	var keys []string
	switch p := path.(type) {
	case nil:
		return nil
	case string:
		keys = []string{p}
	case []string:
		keys = append(keys, p...)
	case []any:
		for _, k := range p {
			keys = append(keys, NormalizeKey(k))
		}
	default:
		rv := reflect.ValueOf(path)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				keys = append(keys, NormalizeKey(rv.Index(i).Interface()))
			}
		} else {
			keys = []string{NormalizeKey(path)}
		}
	}

	result := keys[:0]
	for _, k := range keys {
		if k != "" {
			result = append(result, k)
		}
	}
	return result
}

// Normalize converts a value into the tree's canonical representation.
// Maps of any key or value type become map[string]any, slices and arrays
// become []any, and *Config values are exported. The result never shares
// mutable state with the input.
func Normalize(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case *Config:
		if v == nil {
			return nil
		}
		return v.Export()
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = Normalize(val)
		}
		return out
	case string, bool, int, int64, float64:
		return v
	case []byte:
		return string(v)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[NormalizeKey(iter.Key().Interface())] = Normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		if rv.Elem().Kind() == reflect.Map || rv.Elem().Kind() == reflect.Slice {
			return Normalize(rv.Elem().Interface())
		}
	}
	return value
}

// isMap reports whether a normalized value is a map.
func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// isList reports whether a normalized value is a list.
func isList(v any) bool {
	_, ok := v.([]any)
	return ok
}

// isTextual reports whether a value is textual (string-like).
func isTextual(v any) bool {
	switch v.(type) {
	case string, fmt.Stringer:
		return true
	}
	return false
}

// SanitizeID converts an identifier to the canonical snake_case form used for
// namespaces, plugin types and providers ("MyProvider" and "my-provider" both
// become "my_provider").
func SanitizeID(id any) string {
	s := NormalizeKey(id)
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				prev := runes[i-1]
				if (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9') {
					b.WriteByte('_')
				}
			}
			b.WriteRune(r + ('a' - 'A'))
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
