package manager

import (
	"context"

	"github.com/dshills/nucleon/plugin"
)

// Collection gives typed access to the instances of one plugin type.
// Instances that are not a T are skipped.
type Collection[T plugin.Plugin] struct {
	m         *Manager
	namespace string
	typ       string
}

// NewCollection creates a typed view of namespace.typ on m.
func NewCollection[T plugin.Plugin](m *Manager, namespace, typ string) *Collection[T] {
	return &Collection[T]{m: m, namespace: namespace, typ: typ}
}

// Load loads an instance and reports whether it is a T.
func (c *Collection[T]) Load(ctx context.Context, provider string, options any) (T, bool, error) {
	var zero T
	p, err := c.m.Load(ctx, c.namespace, c.typ, provider, options)
	if err != nil || p == nil {
		return zero, false, err
	}
	item, ok := p.(T)
	return item, ok, nil
}

// Get returns the active instance named name.
func (c *Collection[T]) Get(ctx context.Context, name string) (T, bool) {
	var zero T
	p, ok := c.m.Get(ctx, c.namespace, c.typ, name)
	if !ok {
		return zero, false
	}
	item, ok := p.(T)
	return item, ok
}

// Each calls fn for every active instance in creation order until fn
// returns false.
func (c *Collection[T]) Each(ctx context.Context, fn func(name string, item T) bool) {
	var items []plugin.Plugin
	var names []string
	_ = c.m.do(ctx, func(context.Context, *batch) error {
		c.m.env.EachActive(c.namespace, c.typ, func(name string, p plugin.Plugin) bool {
			names = append(names, name)
			items = append(items, p)
			return true
		})
		return nil
	})
	for i, p := range items {
		if item, ok := p.(T); ok {
			if !fn(names[i], item) {
				return
			}
		}
	}
}

// All returns the active instances keyed by instance name.
func (c *Collection[T]) All(ctx context.Context) map[string]T {
	all := make(map[string]T)
	c.Each(ctx, func(name string, item T) bool {
		all[name] = item
		return true
	})
	return all
}

// Len returns the number of active instances that are a T.
func (c *Collection[T]) Len(ctx context.Context) int {
	n := 0
	c.Each(ctx, func(string, T) bool {
		n++
		return true
	})
	return n
}

// Remove removes the active instance named name.
func (c *Collection[T]) Remove(ctx context.Context, name string) error {
	p, ok := c.m.Get(ctx, c.namespace, c.typ, name)
	if !ok {
		return nil
	}
	return c.m.Remove(ctx, p)
}
