package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/nucleon/config"
)

// IncludeKey lists files merged beneath a TOML file's own values.
const IncludeKey = "@include"

// MaxIncludeDepth bounds @include nesting for LoadFrom.
const MaxIncludeDepth = 8

// TOMLLoader loads configuration from TOML files.
type TOMLLoader struct {
	fs   FileSystem
	path string
}

// NewTOMLLoader creates a new TOML loader for the given path.
func NewTOMLLoader(path string) *TOMLLoader {
	return NewTOMLLoaderWithFS(DefaultFS(), path)
}

// NewTOMLLoaderWithFS creates a TOML loader with a custom file system.
func NewTOMLLoaderWithFS(fs FileSystem, path string) *TOMLLoader {
	return &TOMLLoader{
		fs:   fs,
		path: path,
	}
}

// Load reads configuration from the configured path.
func (l *TOMLLoader) Load() (map[string]any, error) {
	return l.LoadFrom(l.path)
}

// LoadFrom reads configuration from a specific path, resolving @include.
func (l *TOMLLoader) LoadFrom(path string) (map[string]any, error) {
	return l.LoadWithIncludes(path, MaxIncludeDepth)
}

func (l *TOMLLoader) read(path string) (map[string]any, error) {
	data, err := readFile(l.fs, path)
	if err != nil || data == nil {
		return nil, err
	}
	return l.parse(path, data)
}

// LoadFromReader reads configuration from an io.Reader.
func (l *TOMLLoader) LoadFromReader(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return l.parse("<reader>", data)
}

func (l *TOMLLoader) parse(source string, data []byte) (map[string]any, error) {
	var out map[string]any
	if err := toml.Unmarshal(data, &out); err != nil {
		perr := &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return nil, perr
	}
	return normalize(out), nil
}

// LoadWithIncludes loads a TOML file and merges the files named by its
// @include key beneath it. maxDepth limits nesting.
func (l *TOMLLoader) LoadWithIncludes(path string, maxDepth int) (map[string]any, error) {
	if maxDepth <= 0 {
		return nil, fmt.Errorf("include depth exceeded for %s", path)
	}

	data, err := l.read(path)
	if err != nil || data == nil {
		return data, err
	}

	includes, ok := data[IncludeKey]
	if !ok {
		return data, nil
	}
	delete(data, IncludeKey)

	baseDir := filepath.Dir(path)
	for _, inc := range config.Array(includes) {
		name, ok := inc.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be string or array of strings, got %T", IncludeKey, inc)
		}
		incPath := name
		if !filepath.IsAbs(name) {
			incPath = filepath.Join(baseDir, name)
		}

		incData, err := l.LoadWithIncludes(incPath, maxDepth-1)
		if err != nil {
			return nil, fmt.Errorf("loading include %s: %w", incPath, err)
		}
		data = config.MergeMaps([]map[string]any{incData, data}, true, false)
	}
	return data, nil
}
