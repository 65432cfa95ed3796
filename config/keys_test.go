package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPath(t *testing.T) {
	assert.Nil(t, Path(nil))
	assert.Equal(t, []string{"a"}, Path("a"))
	assert.Equal(t, []string{"a", "b"}, Path([]string{"a", "", "b"}))
	assert.Equal(t, []string{"a", "1"}, Path([]any{"a", 1}))
	assert.Equal(t, []string{"x", "y"}, Path([]label{"x", "y"}))
	assert.Equal(t, []string{"5"}, Path(5))
	assert.Empty(t, Path(""))
}

func TestPath_DoesNotAliasInput(t *testing.T) {
	in := []string{"a", "", "b"}
	Path(in)
	assert.Equal(t, []string{"a", "", "b"}, in)
}

func TestNormalize(t *testing.T) {
	type custom map[string][]int

	got := Normalize(map[any]any{
		1:        "one",
		"nested": custom{"list": {1, 2}},
		"config": New(map[string]any{"k": "v"}),
		"bytes":  []byte("raw"),
	})
	assert.Equal(t, map[string]any{
		"1":      "one",
		"nested": map[string]any{"list": []any{1, 2}},
		"config": map[string]any{"k": "v"},
		"bytes":  "raw",
	}, got)

	var nilSlice []string
	assert.Nil(t, Normalize(nilSlice))
	assert.Equal(t, map[string]any{"a": 1}, Normalize(&map[string]int{"a": 1}))
}

func TestSanitizeID(t *testing.T) {
	tests := map[string]string{
		"MyProvider":  "my_provider",
		"my-provider": "my_provider",
		"group/file":  "group_file",
		"already_ok":  "already_ok",
		"HTTPServer":  "httpserver",
		"v2Plugin":    "v2_plugin",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeID(in), in)
	}
}
