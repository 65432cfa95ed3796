package manager

import "github.com/dshills/nucleon/plugin"

// EventHandler handles manager events.
// Handlers run on the goroutine that issued the operation, after the
// operation has finished. Panics in handlers are recovered.
type EventHandler func(event Event)

// Event describes a registry change.
type Event struct {
	Type       EventType
	Namespace  string
	PluginType string
	Provider   string
	// Plugin is set for instance events.
	Plugin plugin.Plugin
}

// EventType is the type of manager event.
type EventType int

const (
	// EventTypeDefined is emitted when a plugin type is defined.
	EventTypeDefined EventType = iota
	// EventProviderRegistered is emitted when a provider is registered.
	EventProviderRegistered
	// EventPluginCreated is emitted when a new instance is stored.
	EventPluginCreated
	// EventPluginRemoved is emitted when an instance is removed.
	EventPluginRemoved
)

// String returns a string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventTypeDefined:
		return "type_defined"
	case EventProviderRegistered:
		return "provider_registered"
	case EventPluginCreated:
		return "plugin_created"
	case EventPluginRemoved:
		return "plugin_removed"
	default:
		return "unknown"
	}
}

// Subscribe adds an event handler.
// Returns an unsubscribe function to remove the handler.
func (m *Manager) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	m.mu.Lock()
	m.handlers = append(m.handlers, handler)
	index := len(m.handlers) - 1
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// keep indexes of other subscriptions stable
		if index < len(m.handlers) {
			m.handlers[index] = nil
		}
	}
}

func (m *Manager) emit(evs []Event) {
	if len(evs) == 0 {
		return
	}
	m.mu.RLock()
	handlers := make([]EventHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.RUnlock()

	for _, ev := range evs {
		for _, handler := range handlers {
			if handler == nil {
				continue
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						m.log.Warn("event handler panicked", "event", ev.Type.String(), "panic", r)
					}
				}()
				handler(ev)
			}()
		}
	}
}
