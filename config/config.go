package config

import (
	"encoding/json"
	"sort"
	"strconv"
	"sync"
)

// Config is a nested key/value tree with merge, defaulting and coercion.
// The zero value is an empty tree with force and basic merge disabled;
// use New for the usual attributes.
type Config struct {
	mu sync.RWMutex

	data       map[string]any
	force      bool
	basicMerge bool
}

// Option configures a Config instance.
type Option func(*Config)

// WithForce sets whether merges replace values of mismatched shape.
func WithForce(force bool) Option {
	return func(c *Config) {
		c.force = force
	}
}

// WithBasicMerge sets whether map merges are shallow (true) or recursive.
func WithBasicMerge(basic bool) Option {
	return func(c *Config) {
		c.basicMerge = basic
	}
}

// New creates a tree from data. Force and basic merge default to true.
// Data is imported with the tree's own attributes, so any map-like value,
// *Config or list of those is accepted.
func New(data any, opts ...Option) *Config {
	c := &Config{
		data:       make(map[string]any),
		force:      true,
		basicMerge: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if data != nil {
		c.Import(data)
	}
	return c
}

// NewWithDefaults creates a tree from defaults overlaid by data.
func NewWithDefaults(data, defaults any, opts ...Option) *Config {
	c := New(defaults, opts...)
	if data != nil {
		c.Import(data)
	}
	return c
}

// Ensure returns v as a tree. A *Config is passed through, map-like values
// are wrapped, and everything else yields an empty tree.
func Ensure(v any) *Config {
	switch t := v.(type) {
	case *Config:
		if t != nil {
			return t
		}
	case nil:
	default:
		if m, ok := Normalize(v).(map[string]any); ok {
			return New(m)
		}
	}
	return New(nil)
}

// Force reports whether merges replace values of mismatched shape.
func (c *Config) Force() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.force
}

// BasicMerge reports whether map merges are shallow.
func (c *Config) BasicMerge() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.basicMerge
}

// Get returns the value at path or def when the path is missing or
// holds nil. A filter, if given, is applied to whichever value is returned.
// The returned value is detached from the tree.
func (c *Config) Get(path any, def any, filter ...Filter) any {
	c.mu.RLock()
	value, ok := lookup(c.data, Path(path))
	if ok {
		value = cloneValue(value)
	}
	c.mu.RUnlock()

	if !ok || value == nil {
		value = Normalize(def)
	}
	if len(filter) > 0 {
		return filter[0].Apply(value)
	}
	return value
}

// Has reports whether a value exists at path.
func (c *Config) Has(path any) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := lookup(c.data, Path(path))
	return ok
}

// GetString returns the value at path coerced to a string.
func (c *Config) GetString(path any, def string) string {
	s, _ := c.Get(path, def, FilterString).(string)
	return s
}

// GetBool returns the value at path passed through the test filter.
func (c *Config) GetBool(path any, def bool) bool {
	b, _ := c.Get(path, def, FilterTest).(bool)
	return b
}

// GetInt returns the value at path as an int, or def when the value is
// missing or not numeric.
func (c *Config) GetInt(path any, def int) int {
	switch v := c.Get(path, def).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// GetArray returns the value at path coerced to a list.
func (c *Config) GetArray(path any) []any {
	list, _ := c.Get(path, nil, FilterArray).([]any)
	return list
}

// GetHash returns the value at path coerced to a map.
func (c *Config) GetHash(path any) map[string]any {
	m, _ := c.Get(path, nil, FilterHash).(map[string]any)
	return m
}

// GetConfig returns a detached tree holding the map at path. The child
// inherits this tree's merge attributes.
func (c *Config) GetConfig(path any) *Config {
	child := New(nil, WithForce(c.Force()), WithBasicMerge(c.BasicMerge()))
	child.data = c.GetHash(path)
	return child
}

// Set stores value at path, creating or replacing intermediate maps.
// A *Config value is stored as a detached export.
func (c *Config) Set(path any, value any) *Config {
	keys := Path(path)
	if len(keys) == 0 {
		return c
	}
	value = Normalize(value)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]any)
	}

	current := c.data
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
	return c
}

// Delete removes the value at path and returns it, or def when the path
// is missing.
func (c *Config) Delete(path any, def any) any {
	keys := Path(path)
	if len(keys) == 0 {
		return def
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	parent, ok := lookup(c.data, keys[:len(keys)-1])
	if !ok {
		return def
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return def
	}
	last := keys[len(keys)-1]
	value, ok := m[last]
	if !ok {
		return def
	}
	delete(m, last)
	return value
}

// Clear removes every value from the tree.
func (c *Config) Clear() *Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]any)
	return c
}

// Keys returns the sorted top-level keys.
func (c *Config) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Empty reports whether the tree holds no values.
func (c *Config) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data) == 0
}

// Export returns a deep copy of the tree's data.
func (c *Config) Export() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil {
		return map[string]any{}
	}
	return cloneMap(c.data)
}

// Clone returns a detached copy of the tree with the same attributes.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data := cloneMap(c.data)
	if data == nil {
		data = make(map[string]any)
	}
	return &Config{
		data:       data,
		force:      c.force,
		basicMerge: c.basicMerge,
	}
}

// MarshalJSON encodes the tree's data as a JSON object.
func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Export())
}

// UnmarshalJSON imports a JSON object into the tree.
func (c *Config) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	c.Import(m)
	return nil
}

// MarshalYAML encodes the tree's data as a YAML mapping.
func (c *Config) MarshalYAML() (any, error) {
	return c.Export(), nil
}

// lookup walks keys through nested maps.
func lookup(data map[string]any, keys []string) (any, bool) {
	var current any = data
	if data == nil {
		if len(keys) == 0 {
			return map[string]any{}, true
		}
		return nil, false
	}
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
