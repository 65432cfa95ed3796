package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		in     any
		want   any
	}{
		{"array nil", FilterArray, nil, []any{}},
		{"array scalar", FilterArray, "x", []any{"x"}},
		{"array list", FilterArray, []string{"a", "b"}, []any{"a", "b"}},
		{"array map", FilterArray, map[string]any{"a": 1}, []any{map[string]any{"a": 1}}},
		{"hash nil", FilterHash, nil, map[string]any{}},
		{"hash scalar", FilterHash, 3, map[string]any{}},
		{"hash map", FilterHash, map[string]int{"a": 1}, map[string]any{"a": 1}},
		{"string nil", FilterString, nil, ""},
		{"string int", FilterString, 12, "12"},
		{"string list", FilterString, []any{1, "a"}, `[1,"a"]`},
		{"string map", FilterString, map[string]any{"a": true}, `{"a":true}`},
		{"symbol stringer", FilterSymbol, label("key"), "key"},
		{"symbol int", FilterSymbol, 7, "7"},
		{"unknown filter", Filter("other"), 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Apply(tt.in))
		})
	}
}

func TestTest(t *testing.T) {
	falsy := []any{nil, false, "", "  ", "false", "No", "N", []any{}, map[string]any{}}
	for _, v := range falsy {
		assert.False(t, Test(v), "%#v", v)
	}

	truthy := []any{true, "yes", "anything", 0, []any{nil}, map[string]any{"a": nil}}
	for _, v := range truthy {
		assert.True(t, Test(v), "%#v", v)
	}
}
