package plugin

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/nucleon/config"
)

// Well-known option keys.
const (
	// NameOption sets an explicit instance name, bypassing the identity
	// fingerprint.
	NameOption = "plugin_name"
	// NewOption forces construction of a new instance.
	NewOption = "new"
	// ProviderOption overrides the provider chosen by Load.
	ProviderOption = "provider"
	// InputKey holds a non-map value passed where options were expected.
	// Translators rewrite it into structured options.
	InputKey = "input"
)

// ExtensionType is the plugin type whose instances receive hook dispatches.
const ExtensionType = "extension"

// Meta is the immutable description of a plugin instance.
type Meta struct {
	// ID is a runtime identifier unique to this instance.
	ID uuid.UUID
	// Namespace, Type and Provider identify the provider the instance
	// was created from.
	Namespace string
	Type      string
	Provider  string
	// Name is the instance name: an explicit plugin_name option or the
	// identity fingerprint.
	Name string
	// TypeName is the fully qualified provider name, e.g. "Nucleon::Test::First".
	TypeName string
	// Directory and File locate the provider source. Both are empty for
	// compiled-in providers.
	Directory string
	File      string
	// Parent is a non-owning reference to the instance that requested this one.
	Parent Plugin
	// Created is when the instance was constructed.
	Created time.Time
}

// NewMeta creates metadata with a fresh runtime ID.
func NewMeta(namespace, typ, provider, name string) Meta {
	return Meta{
		ID:        uuid.New(),
		Namespace: namespace,
		Type:      typ,
		Provider:  provider,
		Name:      name,
		Created:   time.Now(),
	}
}

// String returns "namespace.type.provider[name]".
func (m Meta) String() string {
	return fmt.Sprintf("%s.%s.%s[%s]", m.Namespace, m.Type, m.Provider, m.Name)
}

// Plugin is a live plugin instance.
type Plugin interface {
	// Meta returns the instance's immutable metadata.
	Meta() Meta
	// Config returns the instance's state tree. The tree is owned by the
	// instance; callers must not retain it across removals.
	Config() *config.Config
}

// Stateful is implemented by instances that track their lifecycle state.
type Stateful interface {
	State() State
	SetState(State)
}

// Base is the default Plugin implementation. Provider types embed it.
type Base struct {
	meta   Meta
	config *config.Config

	mu    sync.RWMutex
	state State
}

// NewBase creates a base instance. The options tree is cloned into a
// recursive-merge tree owned by the instance.
func NewBase(meta Meta, options *config.Config) *Base {
	if meta.ID == uuid.Nil {
		meta.ID = uuid.New()
	}
	if meta.Created.IsZero() {
		meta.Created = time.Now()
	}
	cfg := config.New(nil, config.WithForce(true), config.WithBasicMerge(false))
	if options != nil {
		cfg.Import(options)
	}
	return &Base{
		meta:   meta,
		config: cfg,
		state:  StateCreated,
	}
}

// Meta returns the instance's metadata.
func (b *Base) Meta() Meta {
	return b.meta
}

// Config returns the instance's state tree.
func (b *Base) Config() *config.Config {
	return b.config
}

// ID returns the runtime identifier.
func (b *Base) ID() uuid.UUID {
	return b.meta.ID
}

// Name returns the instance name.
func (b *Base) Name() string {
	return b.meta.Name
}

// Provider returns the provider name.
func (b *Base) Provider() string {
	return b.meta.Provider
}

// Get reads a value from the instance's state tree.
func (b *Base) Get(path any, def any, filter ...config.Filter) any {
	return b.config.Get(path, def, filter...)
}

// Set writes a value into the instance's state tree.
func (b *Base) Set(path any, value any) {
	b.config.Set(path, value)
}

// State returns the lifecycle state.
func (b *Base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// SetState updates the lifecycle state.
func (b *Base) SetState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
}

// String implements fmt.Stringer.
func (b *Base) String() string {
	return b.meta.String()
}
