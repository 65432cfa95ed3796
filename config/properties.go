package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Dump formats supported by Properties.Save.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Properties holds named property snapshots shared by a process.
// Snapshots may be dumped to disk but are never read back.
type Properties struct {
	mu    sync.RWMutex
	props map[string]any
}

// NewProperties creates an empty property collection.
func NewProperties() *Properties {
	return &Properties{
		props: make(map[string]any),
	}
}

// Set stores a detached copy of value under name.
func (p *Properties) Set(name string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.props[NormalizeKey(name)] = cloneValue(Normalize(value))
}

// Get returns the property stored under name, or def.
func (p *Properties) Get(name string, def any) any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if value, ok := p.props[NormalizeKey(name)]; ok {
		return cloneValue(value)
	}
	return def
}

// Delete removes a property and returns its previous value.
func (p *Properties) Delete(name string) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := NormalizeKey(name)
	value := p.props[key]
	delete(p.props, key)
	return value
}

// All returns a detached copy of every property.
func (p *Properties) All() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneMap(p.props)
}

// Names returns the sorted property names.
func (p *Properties) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.props))
	for name := range p.props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes every property.
func (p *Properties) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.props = make(map[string]any)
}

// SaveOptions controls where and how properties are dumped.
type SaveOptions struct {
	// Dir is the output directory. Nothing is written when empty.
	Dir string
	// Format is FormatJSON (default) or FormatYAML.
	Format string
	// Timestamped adds the save time to the file name.
	Timestamped bool
}

// Save dumps all properties to a file in opts.Dir and returns its path.
// It returns an empty path and no error when no directory is configured.
func (p *Properties) Save(opts SaveOptions) (string, error) {
	if opts.Dir == "" {
		return "", nil
	}

	format := opts.Format
	if format == "" {
		format = FormatJSON
	}

	var (
		data []byte
		err  error
	)
	props := p.All()
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(props, "", "  ")
	case FormatYAML, "yml":
		format = FormatYAML
		data, err = yaml.Marshal(props)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
	if err != nil {
		return "", fmt.Errorf("encoding properties: %w", err)
	}

	name := "properties"
	if opts.Timestamped {
		name += "-" + time.Now().UTC().Format("20060102T150405")
	}
	path := filepath.Join(opts.Dir, name+"."+format)

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating dump directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing properties: %w", err)
	}
	return path, nil
}
