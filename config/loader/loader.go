// Package loader reads nucleon configuration and provider descriptors.
//
// Files are parsed by extension (TOML, YAML or JSON) into plain maps that
// can be imported into a config.Config. Environment variables with a fixed
// prefix are loaded the same way.
package loader

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/nucleon/config"
)

// Loader is the interface for configuration loaders.
type Loader interface {
	// Load reads configuration from the source and returns a map.
	// Returns nil, nil if the source doesn't exist (not an error).
	Load() (map[string]any, error)
}

// FileLoader is the interface for loaders that read from files.
type FileLoader interface {
	Loader
	// LoadFrom reads configuration from a specific path.
	LoadFrom(path string) (map[string]any, error)
	// LoadFromReader reads configuration from a reader.
	LoadFromReader(r io.Reader) (map[string]any, error)
}

// FileSystem is an abstraction for file system operations.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// Format identifies a configuration file syntax.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Extensions lists the file extensions understood by ForPath.
var Extensions = []string{".toml", ".yaml", ".yml", ".json"}

// FormatOf returns the format for a file path, or "" when unknown.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}
	return ""
}

// Supported reports whether path has a configuration file extension.
func Supported(path string) bool {
	return FormatOf(path) != ""
}

// ForPath returns a file loader for path chosen by extension.
func ForPath(fsys FileSystem, path string) (FileLoader, error) {
	if fsys == nil {
		fsys = DefaultFS()
	}
	switch FormatOf(path) {
	case FormatTOML:
		return NewTOMLLoaderWithFS(fsys, path), nil
	case FormatYAML:
		return NewYAMLLoaderWithFS(fsys, path), nil
	case FormatJSON:
		return NewJSONLoaderWithFS(fsys, path), nil
	}
	return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, path)
}

// LoadFile parses the file at path by extension. A missing file is an
// error wrapping config.ErrFileNotFound.
func LoadFile(path string) (map[string]any, error) {
	l, err := ForPath(DefaultFS(), path)
	if err != nil {
		return nil, err
	}
	data, err := l.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", config.ErrFileNotFound, path)
	}
	return data, nil
}

// FromFile loads a file into a new tree.
func FromFile(path string, opts ...config.Option) (*config.Config, error) {
	data, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return config.New(data, opts...), nil
}

// FirstExisting loads the first file among dir/name.<ext> for each
// supported extension. It returns nil, "" when none exist.
func FirstExisting(fsys FileSystem, dir, name string) (map[string]any, string, error) {
	if fsys == nil {
		fsys = DefaultFS()
	}
	for _, ext := range Extensions {
		path := filepath.Join(dir, name+ext)
		if _, err := fsys.Stat(path); err != nil {
			continue
		}
		l, err := ForPath(fsys, path)
		if err != nil {
			return nil, "", err
		}
		data, err := l.LoadFrom(path)
		if err != nil {
			return nil, path, err
		}
		return data, path, nil
	}
	return nil, "", nil
}

// readFile reads path, treating a missing file as nil data.
func readFile(fsys FileSystem, path string) ([]byte, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // File doesn't exist, not an error
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return data, nil
}

// normalize converts decoded data into a tree-shaped map.
func normalize(data any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	if m, ok := config.Normalize(data).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
