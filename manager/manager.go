package manager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/config/loader"
	"github.com/dshills/nucleon/environment"
	"github.com/dshills/nucleon/plugin"
	"github.com/dshills/nucleon/plugin/lua"
)

// DefaultProviderKey names the default provider in a type definition file.
const DefaultProviderKey = "default_provider"

// Manager owns one Environment and manages the lifecycle of its plugins:
// type and provider registration, discovery, creation, lookup, removal and
// extension hook dispatch.
//
// In concurrent mode every operation runs on the Manager's actor
// goroutine. In sequential mode operations run on the caller's goroutine,
// one at a time.
type Manager struct {
	name    string
	env     *environment.Environment
	catalog *plugin.Catalog
	globals *Globals
	log     *slog.Logger
	luaOpts []lua.StateOption

	// nil in sequential mode
	actor *actor
	// serializes operations in sequential mode
	seq sync.Mutex

	// scripts are the Lua providers created by registration. Only touched
	// by operations.
	scripts []*lua.Provider

	mu        sync.RWMutex
	handlers  []EventHandler
	basePaths []string
	watchers  map[string]*watcher
	closed    bool
}

func newManager(name string, opts RegistryOptions) *Manager {
	logger := opts.Logger.With("manager", name)
	m := &Manager{
		name:     name,
		env:      environment.New(),
		catalog:  plugin.NewCatalog(),
		globals:  opts.Globals,
		log:      logger,
		luaOpts:  append([]lua.StateOption{lua.WithLogger(logger)}, opts.LuaOptions...),
		watchers: make(map[string]*watcher),
	}
	if opts.Concurrent {
		m.actor = newActor(opts.QueueSize)
	}
	return m
}

// Name returns the connection name.
func (m *Manager) Name() string {
	return m.name
}

// Concurrent reports whether the Manager runs on an actor.
func (m *Manager) Concurrent() bool {
	return m.actor != nil
}

// Globals returns the shared process state.
func (m *Manager) Globals() *Globals {
	return m.globals
}

// batch collects the events of one top-level operation.
type batch struct {
	m      *Manager
	events []Event
}

func (b *batch) add(ev Event) {
	b.events = append(b.events, ev)
}

type batchKey struct{}

// do runs fn serialized with every other operation of m. Calls made from
// inside an operation with its context run inline and their events are
// emitted with the outermost operation's.
func (m *Manager) do(ctx context.Context, fn func(ctx context.Context, b *batch) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if b, ok := ctx.Value(batchKey{}).(*batch); ok && b != nil && b.m == m {
		if m.actor == nil || m.actor.inside(ctx) {
			return fn(ctx, b)
		}
	}

	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrManagerClosed
	}

	b := &batch{m: m}
	ctx = context.WithValue(ctx, batchKey{}, b)
	var err error
	if m.actor != nil {
		err = m.actor.Do(ctx, func(ctx context.Context) error {
			return fn(ctx, b)
		})
	} else {
		func() {
			m.seq.Lock()
			defer m.seq.Unlock()
			err = fn(ctx, b)
		}()
	}
	m.emit(b.events)
	return err
}

// detached returns ctx without the marks of the operation it belongs to,
// for work that outlives the operation.
func detached(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, batchKey{}, (*batch)(nil))
	return context.WithValue(ctx, actorKey{}, (*actor)(nil))
}

// logger returns the context's logger, or the Manager's when the context
// carries none.
func (m *Manager) logger(ctx context.Context) *slog.Logger {
	if l := slogcontext.FromCtx(ctx); l != slog.Default() {
		return l.With("manager", m.name)
	}
	return m.log
}

// DefineType defines a plugin type with its default provider.
func (m *Manager) DefineType(ctx context.Context, namespace, typ, defaultProvider string) error {
	return m.do(ctx, func(ctx context.Context, b *batch) error {
		return m.defineType(ctx, b, namespace, typ, defaultProvider)
	})
}

func (m *Manager) defineType(ctx context.Context, b *batch, namespace, typ, defaultProvider string) error {
	if err := m.env.DefinePluginType(namespace, typ, defaultProvider); err != nil {
		return fmt.Errorf("defining type %s.%s: %w", namespace, typ, err)
	}
	m.logger(ctx).Debug("plugin type defined", "namespace", namespace, "type", typ, "default", defaultProvider)
	b.add(Event{
		Type:       EventTypeDefined,
		Namespace:  config.SanitizeID(namespace),
		PluginType: config.SanitizeID(typ),
		Provider:   config.SanitizeID(defaultProvider),
	})
	return nil
}

// RemoveType undefines a plugin type and removes its providers and
// instances. Instances implementing plugin.Closer are closed.
func (m *Manager) RemoveType(ctx context.Context, namespace, typ string) error {
	return m.do(ctx, func(ctx context.Context, b *batch) error {
		var errs []error
		for _, p := range m.env.RemovePluginType(namespace, typ) {
			if err := m.release(ctx, b, p); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// DefineProvider registers a compiled-in provider. A builtin provider takes
// precedence over a provider file with the same name.
func (m *Manager) DefineProvider(ctx context.Context, namespace, typ, provider string, factory plugin.Factory) error {
	if err := m.catalog.Register(namespace, typ, provider, factory); err != nil {
		return fmt.Errorf("defining provider %s.%s.%s: %w", namespace, typ, provider, err)
	}
	return m.do(ctx, func(ctx context.Context, b *batch) error {
		info, isNew, err := m.env.DefineBuiltin(namespace, typ, provider, factory)
		if err != nil {
			return fmt.Errorf("defining provider %s.%s.%s: %w", namespace, typ, provider, err)
		}
		if isNew {
			m.providerRegistered(ctx, b, info)
		}
		return nil
	})
}

func (m *Manager) providerRegistered(ctx context.Context, b *batch, info *environment.LoadInfo) {
	m.logger(ctx).Debug("provider registered",
		"namespace", info.Namespace,
		"type", info.Type,
		"provider", info.Provider,
		"file", info.File,
	)
	b.add(Event{
		Type:       EventProviderRegistered,
		Namespace:  info.Namespace,
		PluginType: info.Type,
		Provider:   info.Provider,
	})
}

// Register discovers providers under basePath. For every defined namespace,
// files directly under basePath/<namespace> define types (their
// default_provider key names the default provider) and every file under
// basePath/<namespace>/<type> defines a provider. Missing directories are
// skipped.
func (m *Manager) Register(ctx context.Context, basePath string) error {
	m.mu.Lock()
	known := false
	for _, p := range m.basePaths {
		if p == basePath {
			known = true
			break
		}
	}
	if !known {
		m.basePaths = append(m.basePaths, basePath)
	}
	m.mu.Unlock()

	return m.do(ctx, func(ctx context.Context, b *batch) error {
		return m.register(ctx, b, basePath)
	})
}

// BasePaths returns the registered base paths.
func (m *Manager) BasePaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, len(m.basePaths))
	copy(paths, m.basePaths)
	return paths
}

func (m *Manager) register(ctx context.Context, b *batch, basePath string) error {
	var errs []error
	for _, namespace := range m.env.Namespaces() {
		dir := filepath.Join(basePath, namespace)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || hidden(entry.Name()) || !loader.Supported(entry.Name()) {
				continue
			}
			if err := m.defineTypeFile(ctx, b, namespace, filepath.Join(dir, entry.Name())); err != nil {
				errs = append(errs, err)
			}
		}

		for _, entry := range entries {
			if !entry.IsDir() || hidden(entry.Name()) {
				continue
			}
			typ := entry.Name()
			if config.SanitizeID(typ) != typ {
				m.logger(ctx).Debug("skipping type directory", "dir", filepath.Join(dir, typ))
				continue
			}
			if err := m.registerType(ctx, b, basePath, namespace, typ); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// defineTypeFile defines the type named by a namespace-level file.
func (m *Manager) defineTypeFile(ctx context.Context, b *batch, namespace, path string) error {
	data, err := loader.LoadFile(path)
	if err != nil {
		return fmt.Errorf("loading type definition: %w", err)
	}
	name := filepath.Base(path)
	typ := config.SanitizeID(strings.TrimSuffix(name, filepath.Ext(name)))
	defaultProvider := config.New(data).GetString(DefaultProviderKey, "")
	if defaultProvider == "" && m.env.TypeDefined(namespace, typ) {
		return nil
	}
	return m.defineType(ctx, b, namespace, typ, defaultProvider)
}

// registerType defines a provider for every file below the type directory.
func (m *Manager) registerType(ctx context.Context, b *batch, basePath, namespace, typ string) error {
	root := filepath.Join(basePath, namespace, typ)
	var errs []error
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if d.IsDir() {
			if path != root && hidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden(d.Name()) || !d.Type().IsRegular() {
			return nil
		}

		info, isNew, err := m.env.DefineProvider(namespace, typ, basePath, path, func(info *environment.LoadInfo) error {
			return m.resolveFactory(ctx, info)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("registering %s: %w", path, err))
			return nil
		}
		if isNew {
			m.providerRegistered(ctx, b, info)
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// resolveFactory selects the factory for a provider file: a builtin with
// the same name, a Lua script, a descriptor, or the base factory.
func (m *Manager) resolveFactory(ctx context.Context, info *environment.LoadInfo) error {
	if f, ok := m.catalog.Lookup(info.Namespace, info.Type, info.Provider); ok {
		info.Factory = f
		return nil
	}

	switch {
	case strings.EqualFold(filepath.Ext(info.File), ".lua"):
		p, err := lua.NewProvider(ctx, info.File, m.luaOpts...)
		if err != nil {
			return err
		}
		m.scripts = append(m.scripts, p)
		info.Factory = p
	case loader.Supported(info.File):
		d, err := plugin.LoadDescriptor(info.File, func(class string) (plugin.Factory, bool) {
			return m.catalog.Lookup(info.Namespace, info.Type, class)
		})
		if err != nil {
			return err
		}
		info.Factory = d
	default:
		info.Factory = plugin.BaseFactory
	}
	return nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Autoload creates one persistent instance of every extension provider,
// named after its provider.
func (m *Manager) Autoload(ctx context.Context) error {
	return m.do(ctx, func(ctx context.Context, b *batch) error {
		var errs []error
		for _, namespace := range m.env.Namespaces() {
			if !m.env.TypeDefined(namespace, plugin.ExtensionType) {
				continue
			}
			for _, provider := range m.env.Providers(namespace, plugin.ExtensionType) {
				opts := config.New(map[string]any{plugin.NameOption: provider})
				if _, err := m.create(ctx, b, namespace, plugin.ExtensionType, provider, opts); err != nil {
					errs = append(errs, err)
				}
			}
		}
		return errors.Join(errs...)
	})
}

// Load returns the instance of a provider identified by options,
// creating it when needed. The provider is taken from the provider option,
// then the provider argument, then the type's default. Options that are
// not map-like are passed to the provider under the input key.
//
// Load returns nil without error when the type is undefined or the
// provider is unknown.
func (m *Manager) Load(ctx context.Context, namespace, typ, provider string, options any) (plugin.Plugin, error) {
	var p plugin.Plugin
	err := m.do(ctx, func(ctx context.Context, b *batch) error {
		var err error
		p, err = m.load(ctx, b, namespace, typ, provider, optionsOf(options))
		return err
	})
	return p, err
}

func (m *Manager) load(ctx context.Context, b *batch, namespace, typ, provider string, opts *config.Config) (plugin.Plugin, error) {
	if override := opts.GetString(plugin.ProviderOption, ""); override != "" {
		provider = override
	}
	opts.Delete(plugin.ProviderOption, nil)
	if provider == "" {
		provider = m.env.TypeDefault(namespace, typ)
	}
	if provider == "" {
		m.logger(ctx).Debug("no provider to load", "namespace", namespace, "type", typ)
		return nil, nil
	}
	return m.create(ctx, b, namespace, typ, provider, opts)
}

// Create is Load with an explicit provider.
func (m *Manager) Create(ctx context.Context, namespace, typ, provider string, options any) (plugin.Plugin, error) {
	var p plugin.Plugin
	err := m.do(ctx, func(ctx context.Context, b *batch) error {
		var err error
		p, err = m.create(ctx, b, namespace, typ, provider, optionsOf(options))
		return err
	})
	return p, err
}

func (m *Manager) create(ctx context.Context, b *batch, namespace, typ, provider string, opts *config.Config) (plugin.Plugin, error) {
	logger := m.logger(ctx).With("namespace", namespace, "type", typ, "provider", provider)
	if !m.env.TypeDefined(namespace, typ) {
		logger.Debug("plugin type not defined")
		return nil, nil
	}
	info, ok := m.env.LoadedPlugin(namespace, typ, provider)
	if !ok {
		logger.Debug("provider not loaded")
		return nil, nil
	}

	opts, err := plugin.Translate(ctx, info.Factory, opts)
	if err != nil {
		return nil, fmt.Errorf("translating options for %s: %w", info.TypeName, err)
	}
	opts = config.Ensure(opts)
	opts.Defaults(m.globals.Options.Get(config.Contexts([]string{info.Provider}, info.Type), true))

	if info.Type != plugin.ExtensionType {
		defaults, err := m.Config(ctx, info.Type, opts)
		if err != nil {
			return nil, err
		}
		opts.Defaults(defaults)
	}

	created := false
	p, err := m.env.CreatePlugin(namespace, typ, info.Provider, opts, func(info *environment.LoadInfo, name string, options *config.Config) (plugin.Plugin, error) {
		p, err := m.construct(ctx, info, name, options)
		created = err == nil
		return p, err
	})
	if err != nil {
		logger.Error("plugin creation failed", "error", err)
		return nil, err
	}
	if created {
		logger.Debug("plugin created", "name", p.Meta().Name)
		b.add(Event{
			Type:       EventPluginCreated,
			Namespace:  info.Namespace,
			PluginType: info.Type,
			Provider:   info.Provider,
			Plugin:     p,
		})
	}
	return p, nil
}

// construct builds and initializes a new instance.
func (m *Manager) construct(ctx context.Context, info *environment.LoadInfo, name string, options *config.Config) (plugin.Plugin, error) {
	meta := plugin.NewMeta(info.Namespace, info.Type, info.Provider, name)
	meta.TypeName = info.TypeName
	meta.Directory = info.Directory
	meta.File = info.File
	meta.Parent = ParentFrom(ctx)

	factory := info.Factory
	if factory == nil {
		factory = plugin.BaseFactory
	}
	p, err := factory.New(ctx, meta, options)
	if err != nil {
		return nil, fmt.Errorf("constructing %s: %w", meta, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilPlugin, meta)
	}

	if init, ok := p.(plugin.Initializer); ok {
		if err := init.Init(ctx); err != nil {
			setState(p, plugin.StateError)
			if closer, ok := p.(plugin.Closer); ok {
				_ = closer.Close(ctx)
			}
			return nil, fmt.Errorf("%s: %w", meta, err)
		}
	}
	setState(p, plugin.StateActive)
	return p, nil
}

func setState(p plugin.Plugin, s plugin.State) {
	if st, ok := p.(plugin.Stateful); ok {
		st.SetState(s)
	}
}

// optionsOf converts creation options to a tree owned by the operation.
func optionsOf(options any) *config.Config {
	switch o := options.(type) {
	case nil:
		return config.New(nil)
	case *config.Config:
		if o == nil {
			return config.New(nil)
		}
		return o.Clone()
	}
	if m, ok := config.Normalize(options).(map[string]any); ok {
		return config.New(m)
	}
	return config.New(map[string]any{plugin.InputKey: options})
}

// Get returns an active instance by name.
func (m *Manager) Get(ctx context.Context, namespace, typ, name string) (plugin.Plugin, bool) {
	var p plugin.Plugin
	var ok bool
	_ = m.do(ctx, func(context.Context, *batch) error {
		p, ok = m.env.GetPlugin(namespace, typ, name)
		return nil
	})
	return p, ok
}

// Remove removes an instance from its environment and closes it when it
// implements plugin.Closer.
func (m *Manager) Remove(ctx context.Context, p plugin.Plugin) error {
	if p == nil {
		return nil
	}
	return m.do(ctx, func(ctx context.Context, b *batch) error {
		meta := p.Meta()
		if current, ok := m.env.GetPlugin(meta.Namespace, meta.Type, meta.Name); ok && current == p {
			m.env.RemovePlugin(meta.Namespace, meta.Type, meta.Name)
		}
		return m.release(ctx, b, p)
	})
}

// release closes a removed instance.
func (m *Manager) release(ctx context.Context, b *batch, p plugin.Plugin) error {
	if st, ok := p.(plugin.Stateful); ok && st.State() == plugin.StateRemoved {
		return nil
	}

	var err error
	if closer, ok := p.(plugin.Closer); ok {
		if err = closer.Close(ctx); err != nil {
			err = fmt.Errorf("closing %s: %w", p.Meta(), err)
		}
	}
	setState(p, plugin.StateRemoved)

	meta := p.Meta()
	m.logger(ctx).Debug("plugin removed", "plugin", meta.String())
	b.add(Event{
		Type:       EventPluginRemoved,
		Namespace:  meta.Namespace,
		PluginType: meta.Type,
		Provider:   meta.Provider,
		Plugin:     p,
	})
	return err
}

// ActivePlugins returns a type's active instances keyed by instance name.
func (m *Manager) ActivePlugins(ctx context.Context, namespace, typ string) map[string]plugin.Plugin {
	result := map[string]plugin.Plugin{}
	_ = m.do(ctx, func(context.Context, *batch) error {
		result = m.env.ActivePlugins(namespace, typ)
		return nil
	})
	return result
}

// LoadedPlugins returns copies of a type's provider load info keyed by
// provider.
func (m *Manager) LoadedPlugins(ctx context.Context, namespace, typ string) map[string]environment.LoadInfo {
	result := map[string]environment.LoadInfo{}
	_ = m.do(ctx, func(context.Context, *batch) error {
		for name, info := range m.env.LoadedPlugins(namespace, typ) {
			result[name] = *info
		}
		return nil
	})
	return result
}

// PluginTypes returns a namespace's types mapped to their default providers.
func (m *Manager) PluginTypes(ctx context.Context, namespace string) map[string]string {
	result := map[string]string{}
	_ = m.do(ctx, func(context.Context, *batch) error {
		result = m.env.PluginTypes(namespace)
		return nil
	})
	return result
}

// TypeNames returns a namespace's types in definition order.
func (m *Manager) TypeNames(ctx context.Context, namespace string) []string {
	var result []string
	_ = m.do(ctx, func(context.Context, *batch) error {
		result = m.env.TypeNames(namespace)
		return nil
	})
	return result
}

// Namespaces returns the namespaces with defined types.
func (m *Manager) Namespaces(ctx context.Context) []string {
	var result []string
	_ = m.do(ctx, func(context.Context, *batch) error {
		result = m.env.Namespaces()
		return nil
	})
	return result
}

// Close stops watchers, removes every instance, releases Lua providers and
// stops the actor. Operations on a closed Manager return ErrManagerClosed.
func (m *Manager) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.Lock()
	watchers := m.watchers
	m.watchers = make(map[string]*watcher)
	m.mu.Unlock()

	var errs []error
	for _, w := range watchers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	err := m.do(ctx, func(ctx context.Context, b *batch) error {
		var errs []error
		for _, namespace := range m.env.Namespaces() {
			for _, typ := range m.env.TypeNames(namespace) {
				for _, p := range m.env.RemovePluginType(namespace, typ) {
					if err := m.release(ctx, b, p); err != nil {
						errs = append(errs, err)
					}
				}
			}
		}
		for _, script := range m.scripts {
			if err := script.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		m.scripts = nil
		m.env.Reset()
		return errors.Join(errs...)
	})
	if err != nil && !errors.Is(err, ErrManagerClosed) {
		errs = append(errs, err)
	}

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	if m.actor != nil {
		m.actor.Close()
		if !m.actor.inside(ctx) {
			m.actor.Wait()
		}
	}
	return errors.Join(errs...)
}

type parentKey struct{}

// WithParent returns a context whose instance creations record p as
// their parent.
func WithParent(ctx context.Context, p plugin.Plugin) context.Context {
	return context.WithValue(ctx, parentKey{}, p)
}

// ParentFrom returns the parent instance recorded in ctx.
func ParentFrom(ctx context.Context) plugin.Plugin {
	p, _ := ctx.Value(parentKey{}).(plugin.Plugin)
	return p
}
