package config

import "sync"

// AllContext is the option context every lookup starts from.
const AllContext = "all"

// Options holds named option contexts shared by a process. Lookups merge
// several contexts in order so later, more specific contexts win.
type Options struct {
	mu       sync.RWMutex
	contexts map[string]map[string]any
}

// NewOptions creates an empty option collection.
func NewOptions() *Options {
	return &Options{
		contexts: make(map[string]map[string]any),
	}
}

// Contexts builds an ordered context list starting with AllContext.
// When base is set each context is also expanded as "<base>_<context>".
func Contexts(contexts []string, base string) []string {
	result := []string{AllContext}
	seen := map[string]bool{AllContext: true}
	add := func(name string) {
		name = SanitizeID(name)
		if name != "" && !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}

	if base != "" {
		add(base)
	}
	for _, ctx := range contexts {
		if base != "" {
			add(base + "_" + ctx)
		} else {
			add(ctx)
		}
	}
	return result
}

// Set merges data into every named context.
func (o *Options) Set(contexts []string, data map[string]any, force bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, name := range contexts {
		name = SanitizeID(name)
		existing := o.contexts[name]
		if existing == nil {
			existing = map[string]any{}
		}
		o.contexts[name] = MergeMaps([]map[string]any{existing, data}, force, false)
	}
}

// Get merges the named contexts in order and returns a detached map.
func (o *Options) Get(contexts []string, force bool) map[string]any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	items := make([]map[string]any, 0, len(contexts))
	for _, name := range contexts {
		if data, ok := o.contexts[SanitizeID(name)]; ok {
			items = append(items, data)
		}
	}
	return MergeMaps(items, force, false)
}

// Clear removes the named contexts.
func (o *Options) Clear(contexts []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, name := range contexts {
		delete(o.contexts, SanitizeID(name))
	}
}

// ClearAll removes every context.
func (o *Options) ClearAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.contexts = make(map[string]map[string]any)
}

// Names returns the defined context names.
func (o *Options) Names() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.contexts))
	for name := range o.contexts {
		names = append(names, name)
	}
	return names
}
