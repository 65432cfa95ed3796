package plugin

// Collection is an insertion-ordered keyed collection. It is not safe for
// concurrent use; owners serialize access.
type Collection[T any] struct {
	keys  []string
	items map[string]T
}

// NewCollection creates an empty collection.
func NewCollection[T any]() *Collection[T] {
	return &Collection[T]{items: make(map[string]T)}
}

// Get returns the item stored under key.
func (c *Collection[T]) Get(key string) (T, bool) {
	item, ok := c.items[key]
	return item, ok
}

// Has reports whether key is present.
func (c *Collection[T]) Has(key string) bool {
	_, ok := c.items[key]
	return ok
}

// Set stores item under key. A replaced key keeps its position.
// It reports whether the key is new.
func (c *Collection[T]) Set(key string, item T) bool {
	if c.items == nil {
		c.items = make(map[string]T)
	}
	_, exists := c.items[key]
	c.items[key] = item
	if !exists {
		c.keys = append(c.keys, key)
	}
	return !exists
}

// Delete removes key and returns its item.
func (c *Collection[T]) Delete(key string) (T, bool) {
	item, ok := c.items[key]
	if !ok {
		return item, false
	}
	delete(c.items, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
	return item, true
}

// Each calls fn for every item in insertion order until fn returns false.
func (c *Collection[T]) Each(fn func(key string, item T) bool) {
	for _, key := range c.Keys() {
		item, ok := c.items[key]
		if !ok {
			continue
		}
		if !fn(key, item) {
			return
		}
	}
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	return len(c.keys)
}

// Keys returns the keys in insertion order.
func (c *Collection[T]) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Values returns the items in insertion order.
func (c *Collection[T]) Values() []T {
	values := make([]T, 0, len(c.keys))
	for _, key := range c.keys {
		values = append(values, c.items[key])
	}
	return values
}

// Map returns a copy of the collection as a plain map.
func (c *Collection[T]) Map() map[string]T {
	m := make(map[string]T, len(c.items))
	for k, v := range c.items {
		m[k] = v
	}
	return m
}
