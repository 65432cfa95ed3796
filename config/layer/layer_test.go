package layer

import (
	"testing"
)

func TestNewLayer(t *testing.T) {
	l := NewLayer(SourceEnv)

	if l.Name != "environment" {
		t.Errorf("Name = %q, want 'environment'", l.Name)
	}
	if l.Source != SourceEnv {
		t.Errorf("Source = %v, want SourceEnv", l.Source)
	}
	if l.Priority != PriorityEnv {
		t.Errorf("Priority = %d, want %d", l.Priority, PriorityEnv)
	}
	if l.Data == nil {
		t.Error("Data should be initialized")
	}
}

func TestLayer_Set(t *testing.T) {
	l := NewLayer(SourceArgs)
	l.Set("log.level", "debug")
	l.Set("concurrent", true)

	log, ok := l.Data["log"].(map[string]any)
	if !ok {
		t.Fatal("log should be a map")
	}
	if log["level"] != "debug" {
		t.Errorf("log.level = %v, want debug", log["level"])
	}
	if l.Data["concurrent"] != true {
		t.Errorf("concurrent = %v, want true", l.Data["concurrent"])
	}
}

func TestLayer_Clone(t *testing.T) {
	original := NewLayerWithData(SourceFile, map[string]any{
		"log": map[string]any{"level": "info"},
	})
	original.Path = "/work/nucleon.toml"

	cloned := original.Clone()
	cloned.Data["log"].(map[string]any)["level"] = "error"

	if cloned.Path != original.Path {
		t.Errorf("Path = %q, want %q", cloned.Path, original.Path)
	}
	if original.Data["log"].(map[string]any)["level"] != "info" {
		t.Error("modifying clone should not affect original")
	}
}

func TestSource_String(t *testing.T) {
	tests := []struct {
		source Source
		want   string
	}{
		{SourceBuiltin, "defaults"},
		{SourceFile, "file"},
		{SourceEnv, "environment"},
		{SourceArgs, "arguments"},
		{Source(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.source.String(); got != tt.want {
			t.Errorf("Source(%d).String() = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestStack_Merge(t *testing.T) {
	s := NewStack(
		NewLayerWithData(SourceArgs, map[string]any{
			"log":         map[string]any{"level": "debug"},
			"plugin_path": []any{"/flags"},
		}),
		NewLayerWithData(SourceBuiltin, map[string]any{
			"log":        map[string]any{"level": "warn", "format": "text"},
			"concurrent": false,
		}),
		NewLayerWithData(SourceFile, map[string]any{
			"concurrent":  true,
			"plugin_path": []any{"/file"},
		}),
	)

	c := s.Merge()
	if got := c.GetString([]string{"log", "level"}, ""); got != "debug" {
		t.Errorf("log.level = %q, want debug", got)
	}
	if got := c.GetString([]string{"log", "format"}, ""); got != "text" {
		t.Errorf("log.format = %q, want text", got)
	}
	if !c.GetBool("concurrent", false) {
		t.Error("concurrent should come from the file layer")
	}
	paths := c.GetArray("plugin_path")
	if len(paths) != 2 || paths[0] != "/file" || paths[1] != "/flags" {
		t.Errorf("plugin_path = %v, want [/file /flags]", paths)
	}
}

func TestStack_Order(t *testing.T) {
	s := NewStack(NewLayer(SourceEnv), NewLayer(SourceBuiltin), NewLayer(SourceArgs))

	layers := s.Layers()
	want := []string{"defaults", "environment", "arguments"}
	if len(layers) != len(want) {
		t.Fatalf("len(Layers()) = %d, want %d", len(layers), len(want))
	}
	for i, name := range want {
		if layers[i].Name != name {
			t.Errorf("Layers()[%d] = %q, want %q", i, layers[i].Name, name)
		}
	}
}

func TestStack_AddReplaces(t *testing.T) {
	s := NewStack(NewLayerWithData(SourceEnv, map[string]any{"a": 1}))
	s.Add(NewLayerWithData(SourceEnv, map[string]any{"a": 2}))

	if n := len(s.Layers()); n != 1 {
		t.Fatalf("len(Layers()) = %d, want 1", n)
	}
	if got := s.Merge().GetInt("a", 0); got != 2 {
		t.Errorf("a = %d, want 2", got)
	}
}

func TestStack_Remove(t *testing.T) {
	s := NewStack(NewLayer(SourceEnv))

	if !s.Remove("environment") {
		t.Error("Remove should report the layer was found")
	}
	if s.Remove("environment") {
		t.Error("second Remove should report nothing removed")
	}
	if s.Get("environment") != nil {
		t.Error("Get should return nil after Remove")
	}
}

func TestStack_SourceOf(t *testing.T) {
	s := NewStack(
		NewLayerWithData(SourceBuiltin, map[string]any{"log": map[string]any{"level": "warn"}, "dump_dir": ""}),
		NewLayerWithData(SourceEnv, map[string]any{"log": map[string]any{"level": "info"}}),
	)

	tests := map[string]string{
		"log.level": "environment",
		"dump_dir":  "defaults",
		"missing":   "",
	}
	for path, want := range tests {
		if got := s.SourceOf(path); got != want {
			t.Errorf("SourceOf(%q) = %q, want %q", path, got, want)
		}
	}
}
