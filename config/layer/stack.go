package layer

import (
	"sort"
	"strings"
	"sync"

	"github.com/dshills/nucleon/config"
)

// Stack holds layers ordered by priority.
type Stack struct {
	mu     sync.RWMutex
	layers []*Layer
}

// NewStack creates a stack with the given layers.
func NewStack(layers ...*Layer) *Stack {
	s := &Stack{}
	for _, l := range layers {
		s.Add(l)
	}
	return s
}

// Add inserts a layer, replacing any layer with the same name.
// Layers of equal priority keep insertion order.
func (s *Stack) Add(layer *Layer) {
	if layer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(layer.Name)
	s.layers = append(s.layers, layer)
	sort.SliceStable(s.layers, func(i, j int) bool {
		return s.layers[i].Priority < s.layers[j].Priority
	})
}

// Remove removes a layer by name.
// Returns true if the layer was found and removed.
func (s *Stack) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(name)
}

func (s *Stack) remove(name string) bool {
	for i, l := range s.layers {
		if l.Name == name {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns a layer by name.
func (s *Stack) Get(name string) *Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// Layers returns a copy of all layers sorted by priority.
func (s *Stack) Layers() []*Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Layer, len(s.layers))
	copy(result, s.layers)
	return result
}

// Merge combines all layers, lowest priority first, into a new tree.
// Nested maps merge recursively, lists accumulate without duplicates and
// scalars from higher layers replace lower values.
func (s *Stack) Merge() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := config.New(nil, config.WithBasicMerge(false))
	for _, l := range s.layers {
		c.Import(l.Data)
	}
	return c
}

// SourceOf returns the name of the highest priority layer defining the
// dotted path, or "" when no layer does.
func (s *Stack) SourceOf(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := strings.Split(path, ".")
	for i := len(s.layers) - 1; i >= 0; i-- {
		if config.New(s.layers[i].Data).Has(keys) {
			return s.layers[i].Name
		}
	}
	return ""
}
