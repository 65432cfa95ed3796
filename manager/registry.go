package manager

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/plugin/lua"
	"github.com/dshills/nucleon/status"
)

// DefaultName is the name of the Manager returned for an empty connection name.
const DefaultName = "nucleon"

// Globals is the process-wide state shared by every Manager of a Registry.
type Globals struct {
	// Options holds option contexts applied as defaults on creation.
	Options *config.Options
	// Properties holds named property snapshots.
	Properties *config.Properties
	// Status is the status code vocabulary.
	Status *status.Table
}

// NewGlobals creates empty globals with the default status vocabulary.
func NewGlobals() *Globals {
	return &Globals{
		Options:    config.NewOptions(),
		Properties: config.NewProperties(),
		Status:     status.Default(),
	}
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Concurrent gives every Manager its own actor goroutine.
	Concurrent bool

	// QueueSize is the actor queue size in concurrent mode.
	QueueSize int

	// Logger is used when an operation's context carries no logger.
	Logger *slog.Logger

	// Globals is shared by every Manager. NewGlobals is used when nil.
	Globals *Globals

	// LuaOptions configure the states of Lua providers.
	LuaOptions []lua.StateOption
}

// Registry creates one Manager per name. It is safe for concurrent use.
type Registry struct {
	mu sync.Mutex

	opts     RegistryOptions
	managers map[string]*Manager
	order    []string
}

// NewRegistry creates a registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Globals == nil {
		opts.Globals = NewGlobals()
	}
	return &Registry{
		opts:     opts,
		managers: make(map[string]*Manager),
	}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process registry, creating a sequential one on
// first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(RegistryOptions{})
	})
	return defaultRegistry
}

// Concurrent reports whether managers run on actors.
func (r *Registry) Concurrent() bool {
	return r.opts.Concurrent
}

// Globals returns the shared process state.
func (r *Registry) Globals() *Globals {
	return r.opts.Globals
}

// Connection returns the Manager for name, creating it on first use.
func (r *Registry) Connection(name string) *Manager {
	name = config.SanitizeID(name)
	if name == "" {
		name = DefaultName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.managers[name]; ok {
		return m
	}
	m := newManager(name, r.opts)
	r.managers[name] = m
	r.order = append(r.order, name)
	return m
}

// Names returns the names of existing managers in creation order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Reset closes and forgets the named Manager. The next Connection call
// creates a fresh one.
func (r *Registry) Reset(ctx context.Context, name string) error {
	name = config.SanitizeID(name)
	if name == "" {
		name = DefaultName
	}

	r.mu.Lock()
	m, ok := r.managers[name]
	if ok {
		delete(r.managers, name)
		for i, n := range r.order {
			if n == name {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return m.Close(ctx)
}

// ResetAll closes every Manager and clears the shared option and
// property collections.
func (r *Registry) ResetAll(ctx context.Context) error {
	var errs []error
	for _, name := range r.Names() {
		if err := r.Reset(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	r.opts.Globals.Options.ClearAll()
	r.opts.Globals.Properties.Clear()
	return errors.Join(errs...)
}
