package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/nucleon/internal/action"
	"github.com/dshills/nucleon/status"
)

type result struct {
	code   int
	out    string
	errOut string
	app    *app
}

func execute(t *testing.T, workDir string, args ...string) result {
	t.Helper()
	if workDir == "" {
		workDir = t.TempDir()
	}
	var out, errOut bytes.Buffer
	a := newApp(&out, &errOut, workDir)
	code := a.execute(context.Background(), args)
	return result{code: code, out: out.String(), errOut: errOut.String(), app: a}
}

func (r result) status(name string) int {
	return r.app.globals.Status.Code(name)
}

// pluginTree creates a base path with one "store" type whose default
// provider is "memory".
func pluginTree(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	ns := filepath.Join(base, "nucleon")
	require.NoError(t, os.MkdirAll(filepath.Join(ns, "store"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ns, "store.toml"), []byte(`default_provider = "memory"`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ns, "store", "memory.txt"), []byte("memory store\n"), 0o644))
	return base
}

func TestVersion(t *testing.T) {
	r := execute(t, "", "version")
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "nucleon dev\n", r.out)
}

func TestHelp(t *testing.T) {
	for name, args := range map[string][]string{
		"no action":  nil,
		"help flag":  {"-h"},
		"long flag":  {"--help"},
		"empty name": {""},
	} {
		t.Run(name, func(t *testing.T) {
			r := execute(t, "", args...)
			assert.Equal(t, r.status(status.HelpWanted), r.code)
			assert.Contains(t, r.out, "Actions:")
			assert.Contains(t, r.out, "plugins")
		})
	}
}

func TestUnknownAction(t *testing.T) {
	r := execute(t, "", "frobnicate")
	assert.Equal(t, r.status(status.ActionUnprocessed), r.code)
	assert.Contains(t, r.out, `unknown action: "frobnicate"`)
}

func TestBadFlag(t *testing.T) {
	r := execute(t, "", "--nope", "version")
	assert.Equal(t, r.status(status.HelpWanted), r.code)
	assert.Contains(t, r.errOut, "unknown flag")
}

func TestInvalidLogSettings(t *testing.T) {
	r := execute(t, "", "--log_level", "loud", "version")
	assert.Equal(t, r.status(status.ValidationFailed), r.code)
	assert.Contains(t, r.errOut, "invalid log level")

	r = execute(t, "", "--log_format", "xml", "version")
	assert.Equal(t, r.status(status.ValidationFailed), r.code)
}

func TestEncoded(t *testing.T) {
	encoded, err := action.EncodeBundle([]string{"action=version", "settings.log.level=error"})
	require.NoError(t, err)

	r := execute(t, "", "--encoded", encoded)
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "nucleon dev\n", r.out)

	r = execute(t, "", "--encoded", "%%%")
	assert.Equal(t, r.status(status.ValidationFailed), r.code)
}

func TestPluginPathFlag(t *testing.T) {
	base := pluginTree(t)

	r := execute(t, "", "--plugin_path", base, "plugins")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.out, "Nucleon::Store::Memory")
	assert.Contains(t, r.out, "memory.txt")
}

func TestPluginPathConfigFile(t *testing.T) {
	base := pluginTree(t)
	workDir := t.TempDir()
	content := "plugin_path = [\"" + filepath.ToSlash(base) + "\"]\n\n[log]\nlevel = \"error\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "nucleon.toml"), []byte(content), 0o644))

	r := execute(t, workDir, "plugins")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.out, "Nucleon::Store::Memory")
}

func TestPluginPathEnv(t *testing.T) {
	base := pluginTree(t)
	t.Setenv("NUCLEON_PLUGIN_PATH", base)

	r := execute(t, "", "--concurrent", "plugins", "nucleon")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.out, "Nucleon::Store::Memory")
}

func TestDumpDir(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump")

	r := execute(t, "", "--dump_dir", dump, "version")
	require.Equal(t, 0, r.code)

	data, err := os.ReadFile(filepath.Join(dump, "properties.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"action": "version"`)
	assert.Contains(t, string(data), `"status": "success"`)
}

func TestExtensionsDiscovered(t *testing.T) {
	base := pluginTree(t)
	dir := filepath.Join(base, "nucleon", "extension")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	script := "hooks = {}\n\nfunction hooks.names(options, config)\n  return { \"audit\" }\nend\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "audit.lua"), []byte(script), 0o644))

	r := execute(t, "", "--plugin_path", base, "extensions")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.out, "audit")
	assert.Contains(t, r.out, "names")
}

func TestTypesSetting(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "acme", "widget"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "acme", "widget", "basic.txt"), []byte("basic\n"), 0o644))

	workDir := t.TempDir()
	content := "plugin_path = [\"" + filepath.ToSlash(base) + "\"]\n\n[types.acme]\nwidget = \"basic\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "nucleon.toml"), []byte(content), 0o644))

	r := execute(t, workDir, "plugins", "acme")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.out, "Acme::Widget::Basic")
}

func TestInvalidTypesSetting(t *testing.T) {
	workDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "nucleon.toml"), []byte("[types]\nacme = \"widget\"\n"), 0o644))

	r := execute(t, workDir, "plugins")
	assert.Equal(t, r.status(status.ValidationFailed), r.code)
	assert.Contains(t, r.errOut, "types.acme")
}

func TestDumpDirUnwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	r := execute(t, "", "--dump_dir", filepath.Join(blocker, "dump"), "version")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.errOut, "dumping properties failed")
}
