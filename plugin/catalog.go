package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/nucleon/config"
)

// Catalog holds compiled-in provider factories keyed by namespace, type
// and provider. It is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

func catalogKey(namespace, typ, provider string) string {
	return config.SanitizeID(namespace) + "/" + config.SanitizeID(typ) + "/" + config.SanitizeID(provider)
}

// Register adds a factory, replacing any previous one under the same key.
func (c *Catalog) Register(namespace, typ, provider string, f Factory) error {
	if f == nil {
		return fmt.Errorf("registering %s.%s.%s: %w", namespace, typ, provider, ErrNilFactory)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[catalogKey(namespace, typ, provider)] = f
	return nil
}

// Lookup returns the factory registered for a provider.
func (c *Catalog) Lookup(namespace, typ, provider string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factories[catalogKey(namespace, typ, provider)]
	return f, ok
}

// Providers returns the sorted provider names registered for a type.
func (c *Catalog) Providers(namespace, typ string) []string {
	prefix := config.SanitizeID(namespace) + "/" + config.SanitizeID(typ) + "/"

	c.mu.RLock()
	defer c.mu.RUnlock()
	var names []string
	for key := range c.factories {
		if name, ok := strings.CutPrefix(key, prefix); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered factories.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.factories)
}
