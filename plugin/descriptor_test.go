package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/nucleon/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDescriptor_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "git.yaml", `
version: 1.2.0
requires: ">= 1.0.0"
description: git repository
identity: [path]
shorthand: path
defaults:
  remote: origin
`)

	d, err := LoadDescriptor(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", d.Version.String())
	assert.Equal(t, "git repository", d.Description)
	assert.Equal(t, []string{"path"}, d.Identity())

	out, err := d.Translate(context.Background(), config.New(map[string]any{InputKey: "/src/repo"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"path": "/src/repo", "remote": "origin"}, out.Export())

	out, err = d.Translate(context.Background(), config.New(map[string]any{"remote": "upstream"}))
	require.NoError(t, err)
	assert.Equal(t, "upstream", out.Get("remote", nil))
}

func TestLoadDescriptor_TOMLWithClass(t *testing.T) {
	path := writeFile(t, t.TempDir(), "echo.toml", `
class = "echo"
`)
	custom := &Provider{
		Fields: []string{"name", "directory"},
		Construct: func(_ context.Context, meta Meta, opts *config.Config) (Plugin, error) {
			return &echoExtension{Base: NewBase(meta, opts)}, nil
		},
	}
	resolve := func(class string) (Factory, bool) {
		if class == "echo" {
			return custom, true
		}
		return nil, false
	}

	d, err := LoadDescriptor(path, resolve)
	require.NoError(t, err)
	assert.Nil(t, d.Version)
	assert.Equal(t, []string{"name", "directory"}, d.Identity())

	p, err := d.New(context.Background(), NewMeta("nucleon", "extension", "echo", "echo"), nil)
	require.NoError(t, err)
	assert.IsType(t, &echoExtension{}, p)
}

func TestLoadDescriptor_JSONDefaultsToBase(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plain.json", `{"description": "plain"}`)

	d, err := LoadDescriptor(path, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultIdentity, d.Identity())

	p, err := d.New(context.Background(), NewMeta("nucleon", "test", "plain", "x"), nil)
	require.NoError(t, err)
	assert.IsType(t, &Base{}, p)
}

func TestLoadDescriptor_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		target  error
	}{
		{"unknown key", "a.yaml", "bogus: 1\n", ErrInvalidDescriptor},
		{"wrong type", "b.yaml", "identity: name\n", ErrInvalidDescriptor},
		{"bad version", "c.yaml", "version: not-a-version\n", ErrInvalidDescriptor},
		{"bad constraint", "d.yaml", "requires: \"~~~\"\n", ErrInvalidDescriptor},
		{"unmet constraint", "e.yaml", "requires: \">= 99.0.0\"\n", ErrIncompatibleVersion},
		{"unknown class", "f.yaml", "class: missing\n", ErrUnknownClass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDescriptor(writeFile(t, dir, tt.file, tt.content), nil)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestLoadDescriptor_MissingFile(t *testing.T) {
	_, err := LoadDescriptor(filepath.Join(t.TempDir(), "none.yaml"), nil)
	assert.ErrorIs(t, err, config.ErrFileNotFound)
}
