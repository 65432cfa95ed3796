package config

// ImportType selects how imported data combines with existing values.
type ImportType int

const (
	// ImportOverride lets incoming values win.
	ImportOverride ImportType = iota
	// ImportDefault only fills gaps left by existing values.
	ImportDefault
)

// String returns the import type's name.
func (t ImportType) String() string {
	if t == ImportDefault {
		return "default"
	}
	return "override"
}

type importSettings struct {
	importType ImportType
	force      bool
	basicMerge bool
}

// ImportOption configures a single Import call.
type ImportOption func(*importSettings)

// AsDefault makes Import fill gaps only.
func AsDefault() ImportOption {
	return func(s *importSettings) {
		s.importType = ImportDefault
	}
}

// WithImportType sets the import type.
func WithImportType(t ImportType) ImportOption {
	return func(s *importSettings) {
		s.importType = t
	}
}

// ForceImport overrides the tree's force attribute for one import.
func ForceImport(force bool) ImportOption {
	return func(s *importSettings) {
		s.force = force
	}
}

// BasicImport overrides the tree's basic merge attribute for one import.
func BasicImport(basic bool) ImportOption {
	return func(s *importSettings) {
		s.basicMerge = basic
	}
}

// Import merges data into the tree. Data may be any map-like value, a
// *Config, or a list of those imported in order. Other shapes are ignored.
func (c *Config) Import(data any, opts ...ImportOption) *Config {
	c.mu.RLock()
	settings := importSettings{
		importType: ImportOverride,
		force:      c.force,
		basicMerge: c.basicMerge,
	}
	c.mu.RUnlock()
	for _, opt := range opts {
		opt(&settings)
	}

	switch incoming := Normalize(data).(type) {
	case map[string]any:
		c.merge(incoming, settings)
	case []any:
		for _, item := range incoming {
			if m, ok := item.(map[string]any); ok {
				c.merge(m, settings)
			}
		}
	}
	return c
}

// Defaults merges data into the tree without replacing existing values.
func (c *Config) Defaults(data any, opts ...ImportOption) *Config {
	return c.Import(data, append(opts, AsDefault())...)
}

func (c *Config) merge(incoming map[string]any, s importSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]any)
	}

	var items []map[string]any
	force := s.force
	if s.importType == ImportDefault {
		// existing values take the later position and always win ties
		items = []map[string]any{incoming, c.data}
		force = true
	} else {
		items = []map[string]any{c.data, incoming}
	}
	c.data = MergeMaps(items, force, s.basicMerge)
}
