package environment

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/plugin"
)

func construct(info *LoadInfo, name string, options *config.Config) (plugin.Plugin, error) {
	meta := plugin.NewMeta(info.Namespace, info.Type, info.Provider, name)
	return info.Factory.New(context.Background(), meta, options)
}

func testEnvironment(t *testing.T) *Environment {
	t.Helper()
	env := New()
	require.NoError(t, env.DefinePluginType("nucleon", "test", "first"))
	_, _, err := env.DefineBuiltin("nucleon", "test", "first", &plugin.Provider{Fields: []string{"a"}})
	require.NoError(t, err)
	_, _, err = env.DefineBuiltin("nucleon", "test", "second", plugin.BaseFactory)
	require.NoError(t, err)
	return env
}

func TestDefinePluginType(t *testing.T) {
	env := New()
	require.NoError(t, env.DefinePluginType("nucleon", "test", "first"))
	require.NoError(t, env.DefinePluginType("Nucleon", "Test", "Second"))
	require.NoError(t, env.DefinePluginType("nucleon", "project", "git"))

	assert.True(t, env.TypeDefined("nucleon", "test"))
	assert.False(t, env.TypeDefined("nucleon", "missing"))
	assert.Equal(t, "second", env.TypeDefault("nucleon", "test"))
	assert.Equal(t, "", env.TypeDefault("other", "test"))
	assert.Equal(t, []string{"nucleon"}, env.Namespaces())
	assert.Equal(t, []string{"test", "project"}, env.TypeNames("nucleon"))
	assert.Equal(t, map[string]string{"test": "second", "project": "git"}, env.PluginTypes("nucleon"))

	assert.ErrorIs(t, env.DefinePluginType("", "test", "first"), ErrInvalidName)
}

func TestCreatePluginIdentityCollapse(t *testing.T) {
	env := testEnvironment(t)

	a, err := env.CreatePlugin("nucleon", "test", "first", config.New(map[string]any{"a": 1, "b": 1}), construct)
	require.NoError(t, err)
	require.NotNil(t, a)

	b, err := env.CreatePlugin("nucleon", "test", "first", config.New(map[string]any{"a": 1, "b": 2}), construct)
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := env.CreatePlugin("nucleon", "test", "first", config.New(map[string]any{"a": 2, "b": 1}), construct)
	require.NoError(t, err)
	assert.NotSame(t, a, c)

	assert.Len(t, env.ActivePlugins("nucleon", "test"), 2)
}

func TestCreatePluginForcedNew(t *testing.T) {
	env := testEnvironment(t)
	opts := map[string]any{"a": 1}

	a, err := env.CreatePlugin("nucleon", "test", "first", config.New(opts), construct)
	require.NoError(t, err)

	b, err := env.CreatePlugin("nucleon", "test", "first", config.New(map[string]any{"a": 1, "new": true}), construct)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, a.Meta().Name, b.Meta().Name)
	assert.False(t, b.Config().Has("new"))

	c, err := env.CreatePlugin("nucleon", "test", "first", config.New(opts), construct)
	require.NoError(t, err)
	assert.Same(t, b, c)
}

func TestCreatePluginExplicitName(t *testing.T) {
	env := testEnvironment(t)

	p, err := env.CreatePlugin("nucleon", "test", "second", config.New(map[string]any{"plugin_name": "custom"}), construct)
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Meta().Name)

	got, ok := env.GetPlugin("nucleon", "test", "custom")
	assert.True(t, ok)
	assert.Same(t, p, got)
}

func TestCreatePluginUnresolvable(t *testing.T) {
	env := testEnvironment(t)

	p, err := env.CreatePlugin("nucleon", "missing", "first", nil, construct)
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = env.CreatePlugin("nucleon", "test", "missing", nil, construct)
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestCreatePluginConstructError(t *testing.T) {
	env := testEnvironment(t)
	boom := errors.New("boom")

	p, err := env.CreatePlugin("nucleon", "test", "first", nil, func(*LoadInfo, string, *config.Config) (plugin.Plugin, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, p)
	assert.Empty(t, env.ActivePlugins("nucleon", "test"))
}

func TestRemovePlugin(t *testing.T) {
	env := testEnvironment(t)

	p, err := env.CreatePlugin("nucleon", "test", "first", nil, construct)
	require.NoError(t, err)

	removed, ok := env.RemovePlugin("nucleon", "test", p.Meta().Name)
	assert.True(t, ok)
	assert.Same(t, p, removed)

	_, ok = env.GetPlugin("nucleon", "test", p.Meta().Name)
	assert.False(t, ok)

	_, ok = env.RemovePlugin("nucleon", "test", p.Meta().Name)
	assert.False(t, ok)
}

func TestRemovePluginType(t *testing.T) {
	env := testEnvironment(t)

	p, err := env.CreatePlugin("nucleon", "test", "first", nil, construct)
	require.NoError(t, err)

	removed := env.RemovePluginType("nucleon", "test")
	assert.Equal(t, []plugin.Plugin{p}, removed)
	assert.False(t, env.TypeDefined("nucleon", "test"))
	assert.Empty(t, env.LoadedPlugins("nucleon", "test"))
	assert.Empty(t, env.ActivePlugins("nucleon", "test"))
	assert.Empty(t, env.Namespaces())

	assert.Nil(t, env.RemovePluginType("nucleon", "test"))
}

func TestLoadedPlugins(t *testing.T) {
	env := testEnvironment(t)

	loaded := env.LoadedPlugins("nucleon", "test")
	assert.Len(t, loaded, 2)
	assert.Equal(t, "Nucleon::Test::First", loaded["first"].TypeName)
	assert.Equal(t, []string{"first", "second"}, env.Providers("nucleon", "test"))

	info, ok := env.LoadedPlugin("nucleon", "test", "second")
	require.True(t, ok)
	assert.Equal(t, "second", info.Provider)
	assert.Empty(t, info.File)
}

func TestDefineBuiltinReplacesFactory(t *testing.T) {
	env := testEnvironment(t)

	info, isNew, err := env.DefineBuiltin("nucleon", "test", "second", &plugin.Provider{Fields: []string{"x"}})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, []string{"x"}, plugin.IdentityFields(info.Factory))

	_, _, err = env.DefineBuiltin("nucleon", "test", "third", nil)
	assert.ErrorIs(t, err, plugin.ErrNilFactory)
}

func TestDefineProvider(t *testing.T) {
	env := New()
	base := filepath.Join(t.TempDir(), "plugins")
	file := filepath.Join(base, "nucleon", "test", "my_group", "First.lua")

	calls := 0
	info, isNew, err := env.DefineProvider("nucleon", "test", base, file, func(info *LoadInfo) error {
		calls++
		info.Factory = plugin.BaseFactory
		return nil
	})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "my_group_first", info.Provider)
	assert.Equal(t, "Nucleon::Test::MyGroup::First", info.TypeName)
	assert.Equal(t, filepath.Dir(file), info.Directory)
	assert.Equal(t, file, info.File)
	assert.Equal(t, base, info.BasePath)
	assert.NotNil(t, info.Factory)

	again, isNew, err := env.DefineProvider("nucleon", "test", base, file, func(*LoadInfo) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Same(t, info, again)
	assert.Equal(t, 1, calls)
}

func TestDefineProviderErrors(t *testing.T) {
	env := New()
	base := t.TempDir()

	_, _, err := env.DefineProvider("nucleon", "test", base, filepath.Join(base, "nucleon", "other", "a.lua"), nil)
	assert.ErrorIs(t, err, ErrOutsideBase)

	boom := errors.New("boom")
	_, _, err = env.DefineProvider("nucleon", "test", base, filepath.Join(base, "nucleon", "test", "a.lua"), func(*LoadInfo) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, env.LoadedPlugins("nucleon", "test"))
}

func TestReset(t *testing.T) {
	env := testEnvironment(t)
	_, err := env.CreatePlugin("nucleon", "test", "first", nil, construct)
	require.NoError(t, err)

	env.Reset()
	assert.Empty(t, env.Namespaces())
	assert.Empty(t, env.LoadedPlugins("nucleon", "test"))
	assert.Empty(t, env.ActivePlugins("nucleon", "test"))
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		components []string
		want       string
	}{
		{[]string{"nucleon", "test", "first"}, "Nucleon::Test::First"},
		{[]string{"nucleon", "project", "github_repo"}, "Nucleon::Project::GithubRepo"},
		{[]string{"CORL", "node", "AWS"}, "Corl::Node::Aws"},
		{[]string{"nucleon", "", "first"}, "Nucleon::First"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeName(tt.components...), tt.components)
	}
}
