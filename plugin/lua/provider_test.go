package lua

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/plugin"
)

const testScript = `
identity = { "name", "port" }

function translate(options)
  if options.input ~= nil then
    return { name = options.input, port = 80 }
  end
  return options
end

function init(config)
  return { ready = true, greeting = "hello " .. plugin.name }
end

hooks = {}

function hooks.double(options, config)
  return options.value * 2
end

function hooks.port(options, config)
  return config.port
end
`

func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "web.lua")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestProviderIdentity(t *testing.T) {
	p, err := NewProvider(context.Background(), writeScript(t, testScript))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, []string{"name", "port"}, p.Identity())
	assert.Equal(t, []string{"name", "port"}, plugin.IdentityFields(p))
}

func TestProviderDefaultIdentity(t *testing.T) {
	p, err := NewProvider(context.Background(), writeScript(t, `-- empty provider`))
	require.NoError(t, err)
	defer p.Close()

	assert.Empty(t, p.Identity())
	assert.Equal(t, plugin.DefaultIdentity, plugin.IdentityFields(p))
}

func TestProviderTranslate(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider(ctx, writeScript(t, testScript))
	require.NoError(t, err)
	defer p.Close()

	out, err := p.Translate(ctx, config.New(map[string]any{"input": "web"}))
	require.NoError(t, err)
	assert.Equal(t, "web", out.Get("name", nil))
	assert.Equal(t, 80, out.Get("port", nil))

	out, err = p.Translate(ctx, config.New(map[string]any{"name": "db"}))
	require.NoError(t, err)
	assert.Equal(t, "db", out.Get("name", nil))
}

func TestProviderTranslateRejectsNonTable(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider(ctx, writeScript(t, `function translate(options) return 42 end`))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Translate(ctx, config.New(nil))
	assert.Error(t, err)
}

func TestProviderLoadError(t *testing.T) {
	_, err := NewProvider(context.Background(), writeScript(t, `this is not lua`))
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), filepath.Join(t.TempDir(), "missing.lua"))
	assert.Error(t, err)
}

func TestProviderInstance(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider(ctx, writeScript(t, testScript))
	require.NoError(t, err)
	defer p.Close()

	meta := plugin.NewMeta("nucleon", "extension", "web", "primary")
	inst, err := p.New(ctx, meta, config.New(map[string]any{"port": 8080}))
	require.NoError(t, err)

	lp, ok := inst.(*Instance)
	require.True(t, ok)
	defer lp.Close(ctx)

	assert.Equal(t, meta.ID, lp.Meta().ID)
	assert.Equal(t, "primary", lp.LuaState().Global("plugin").(map[string]any)["name"])

	require.NoError(t, lp.Init(ctx))
	assert.Equal(t, true, lp.Config().Get("ready", nil))
	assert.Equal(t, "hello primary", lp.Config().Get("greeting", nil))
	assert.Equal(t, 8080, lp.Config().Get("port", nil))

	double, ok := plugin.HookOf(lp, "double")
	require.True(t, ok)
	got, err := double(ctx, config.New(map[string]any{"value": 3}))
	require.NoError(t, err)
	assert.Equal(t, 6, got)

	port, ok := plugin.HookOf(lp, "port")
	require.True(t, ok)
	got, err = port(ctx, config.New(nil))
	require.NoError(t, err)
	assert.Equal(t, 8080, got)

	_, ok = plugin.HookOf(lp, "missing")
	assert.False(t, ok)
}

func TestInstanceClose(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider(ctx, writeScript(t, testScript))
	require.NoError(t, err)
	defer p.Close()

	inst, err := p.New(ctx, plugin.NewMeta("nucleon", "extension", "web", "a"), nil)
	require.NoError(t, err)
	lp := inst.(*Instance)

	require.NoError(t, lp.Close(ctx))
	assert.True(t, lp.LuaState().IsClosed())

	double, ok := plugin.HookOf(lp, "double")
	require.True(t, ok)
	_, err = double(ctx, config.New(map[string]any{"value": 1}))
	assert.ErrorIs(t, err, ErrStateClosed)
}
