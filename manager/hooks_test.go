package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/plugin"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		results []any
		want    bool
	}{
		{"one false", []any{true, true, false}, false},
		{"all true", []any{true, true, true}, true},
		{"non-bool results", []any{"yes", nil, 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forEachMode(t, func(t *testing.T, m *Manager) {
				var hooks []map[string]plugin.Hook
				for _, r := range tt.results {
					hooks = append(hooks, map[string]plugin.Hook{"allowed": returning(r)})
				}
				defineExtensions(t, m, hooks...)

				got, err := m.Check(context.Background(), "allowed", nil)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		})
	}
}

func TestCheckVacuous(t *testing.T) {
	forEachMode(t, func(t *testing.T, m *Manager) {
		defineExtensions(t, m, map[string]plugin.Hook{"other": returning(false)})

		got, err := m.Check(context.Background(), "allowed", nil)
		require.NoError(t, err)
		assert.True(t, got)
	})
}

func scale(factor int) plugin.Hook {
	return func(_ context.Context, options *config.Config) (any, error) {
		return options.GetInt(ValueKey, 0) * factor, nil
	}
}

func TestValue(t *testing.T) {
	forEachMode(t, func(t *testing.T, m *Manager) {
		defineExtensions(t, m,
			map[string]plugin.Hook{"scale": scale(2)},
			map[string]plugin.Hook{"scale": returning(nil)},
			map[string]plugin.Hook{"scale": scale(3)},
		)

		got, err := m.Value(context.Background(), "scale", 1, nil)
		require.NoError(t, err)
		assert.Equal(t, 6, got)

		got, err = m.Value(context.Background(), "missing", "initial", nil)
		require.NoError(t, err)
		assert.Equal(t, "initial", got)
	})
}

func TestCollect(t *testing.T) {
	forEachMode(t, func(t *testing.T, m *Manager) {
		defineExtensions(t, m,
			map[string]plugin.Hook{"names": returning([]string{"a", "b"})},
			map[string]plugin.Hook{"names": returning(nil)},
			map[string]plugin.Hook{"names": returning("c")},
		)

		got, err := m.Collect(context.Background(), "names", nil)
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b", "c"}, got)

		got, err = m.Collect(context.Background(), "missing", nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestCollectNested(t *testing.T) {
	forEachMode(t, func(t *testing.T, m *Manager) {
		defineExtensions(t, m,
			map[string]plugin.Hook{"names": returning([]any{"a", []any{"b", []any{"c", nil}}})},
			map[string]plugin.Hook{"names": returning([]any{[]string{"d"}, []any{}})},
		)

		got, err := m.Collect(context.Background(), "names", nil)
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b", "c", "d"}, got)
	})
}

func TestCollectEmptyLists(t *testing.T) {
	forEachMode(t, func(t *testing.T, m *Manager) {
		defineExtensions(t, m,
			map[string]plugin.Hook{"names": returning([]any{[]any{}, nil})},
		)

		got, err := m.Collect(context.Background(), "names", nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestExec(t *testing.T) {
	forEachMode(t, func(t *testing.T, m *Manager) {
		ctx := context.Background()
		var kinds []string
		record := func(v any) plugin.Hook {
			return func(_ context.Context, options *config.Config) (any, error) {
				kinds = append(kinds, options.GetString(ExtensionTypeKey, ""))
				return v, nil
			}
		}
		defineExtensions(t, m,
			map[string]plugin.Hook{"count": record(1)},
			map[string]plugin.Hook{"count": record(2)},
		)

		raw, err := m.Exec(ctx, "count", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"ext0": 1, "ext1": 2}, raw)

		var processed []string
		sum, err := m.Exec(ctx, "count", nil, func(op Op, provider string, value any) any {
			if op == OpProcess {
				processed = append(processed, provider)
				return value.(int) * 10
			}
			total := 0
			for _, v := range value.(map[string]any) {
				total += v.(int)
			}
			return total
		})
		require.NoError(t, err)
		assert.Equal(t, 30, sum)
		assert.Equal(t, []string{"ext0", "ext1"}, processed)

		none, err := m.Exec(ctx, "missing", nil, func(Op, string, any) any { return "reduced" })
		require.NoError(t, err)
		assert.Nil(t, none)

		_, err = m.Check(ctx, "count", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"", "", "", "", "check", "check"}, kinds)
	})
}

func TestExecError(t *testing.T) {
	forEachMode(t, func(t *testing.T, m *Manager) {
		boom := errors.New("boom")
		called := false
		defineExtensions(t, m,
			map[string]plugin.Hook{"fail": func(context.Context, *config.Config) (any, error) { return nil, boom }},
			map[string]plugin.Hook{"fail": func(context.Context, *config.Config) (any, error) {
				called = true
				return nil, nil
			}},
		)

		_, err := m.Check(context.Background(), "fail", nil)
		assert.ErrorIs(t, err, boom)
		assert.False(t, called)
	})
}

func TestConfigHook(t *testing.T) {
	forEachMode(t, func(t *testing.T, m *Manager) {
		ctx := context.Background()
		defineExtensions(t, m,
			map[string]plugin.Hook{"test_config": returning(map[string]any{"a": 99, "b": 2})},
			map[string]plugin.Hook{"test_config": returning(map[string]any{"c": 3})},
		)
		defineTestType(t, m)

		defaults, err := m.Config(ctx, "test", nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": 99, "b": 2, "c": 3}, defaults)

		p, err := m.Load(ctx, "nucleon", "test", "", map[string]any{"a": 1})
		require.NoError(t, err)
		assert.Equal(t, 1, p.Config().GetInt("a", 0))
		assert.Equal(t, 2, p.Config().GetInt("b", 0))
		assert.Equal(t, 3, p.Config().GetInt("c", 0))
	})
}

func TestHookReentrancy(t *testing.T) {
	forEachMode(t, func(t *testing.T, m *Manager) {
		ctx := context.Background()
		defineTestType(t, m)
		defineExtensions(t, m, map[string]plugin.Hook{
			"spawn": func(ctx context.Context, options *config.Config) (any, error) {
				return m.Load(ctx, "nucleon", "test", "first", map[string]any{"a": options.GetInt("a", 0)})
			},
		})

		var created []string
		m.Subscribe(func(ev Event) {
			if ev.Type == EventPluginCreated {
				created = append(created, ev.Provider)
			}
		})

		results, err := m.Collect(ctx, "spawn", map[string]any{"a": 5})
		require.NoError(t, err)
		require.Len(t, results, 1)

		child := results[0].(plugin.Plugin)
		assert.Equal(t, 5, child.Config().GetInt("a", 0))
		parent := child.Meta().Parent
		require.NotNil(t, parent)
		assert.Equal(t, "ext0", parent.Meta().Provider)
		assert.Equal(t, []string{"first"}, created)
	})
}

func TestLuaExtension(t *testing.T) {
	forEachMode(t, func(t *testing.T, m *Manager) {
		ctx := context.Background()
		base := t.TempDir()
		script := `
identity = { "plugin_name" }

hooks = {}

function hooks.scale(options, config)
  return options.value * 2
end

function hooks.allowed(options, config)
  return options.extension_type == "check"
end
`
		path := filepath.Join(base, "nucleon", "extension", "doubler.lua")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(script), 0o644))

		require.NoError(t, m.DefineType(ctx, "nucleon", plugin.ExtensionType, ""))
		require.NoError(t, m.Register(ctx, base))
		require.NoError(t, m.Autoload(ctx))
		require.Len(t, m.Extensions(ctx), 1)

		got, err := m.Value(ctx, "scale", 4, nil)
		require.NoError(t, err)
		assert.Equal(t, 8, got)

		ok, err := m.Check(ctx, "allowed", nil)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
