// Package layer assembles process configuration from prioritized sources.
//
// Each source (builtin defaults, a configuration file, environment
// variables, command-line flags) contributes one Layer. Higher priority
// layers override lower ones when the stack is merged into a config.Config.
package layer

import (
	"strings"

	"github.com/dshills/nucleon/config"
)

// Layer is a single configuration source.
type Layer struct {
	// Name identifies the layer (e.g., "defaults", "file").
	Name string

	// Priority determines merge order (higher overrides lower).
	Priority int

	// Source indicates where this layer was loaded from.
	Source Source

	// Path is the file path (if loaded from file).
	Path string

	// Data holds the configuration values as a nested map.
	Data map[string]any
}

// NewLayer creates an empty layer with the standard name and priority
// for source.
func NewLayer(source Source) *Layer {
	return NewLayerWithData(source, nil)
}

// NewLayerWithData creates a layer for source holding data.
func NewLayerWithData(source Source, data map[string]any) *Layer {
	if data == nil {
		data = make(map[string]any)
	}
	return &Layer{
		Name:     source.String(),
		Source:   source,
		Priority: source.Priority(),
		Data:     data,
	}
}

// Set stores value at a dotted path in the layer.
func (l *Layer) Set(path string, value any) {
	l.Data = config.New(l.Data).Set(strings.Split(path, "."), value).Export()
}

// Clone creates a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	c := *l
	c.Data = config.New(l.Data).Export()
	return &c
}

// Source indicates where a configuration layer came from.
type Source uint8

const (
	// SourceBuiltin represents built-in defaults.
	SourceBuiltin Source = iota
	// SourceFile represents a nucleon.* file in the working directory.
	SourceFile
	// SourceEnv represents environment variables.
	SourceEnv
	// SourceArgs represents command-line flags.
	SourceArgs
)

// Standard priority levels.
const (
	PriorityBuiltin = 0
	PriorityFile    = 100
	PriorityEnv     = 500
	PriorityArgs    = 600
)

// String returns the standard layer name for the source.
func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "defaults"
	case SourceFile:
		return "file"
	case SourceEnv:
		return "environment"
	case SourceArgs:
		return "arguments"
	default:
		return "unknown"
	}
}

// Priority returns the default priority for the source.
func (s Source) Priority() int {
	switch s {
	case SourceFile:
		return PriorityFile
	case SourceEnv:
		return PriorityEnv
	case SourceArgs:
		return PriorityArgs
	default:
		return PriorityBuiltin
	}
}
