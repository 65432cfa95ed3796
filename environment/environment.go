package environment

import (
	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/plugin"
)

// LoadInfo describes a registered provider.
type LoadInfo struct {
	Namespace string
	Type      string
	Provider  string

	// BasePath, File and Directory locate the provider source. They are
	// empty for builtin providers.
	BasePath  string
	File      string
	Directory string

	// TypeName is the qualified provider name, e.g. "Nucleon::Test::Group::First".
	TypeName string

	// Factory constructs instances. The Manager injects it during registration.
	Factory plugin.Factory
}

// ConstructFunc builds a new instance for CreatePlugin.
type ConstructFunc func(info *LoadInfo, name string, options *config.Config) (plugin.Plugin, error)

type typeKey struct {
	namespace string
	typ       string
}

// Environment is a plugin registry.
type Environment struct {
	// namespace -> type -> default provider
	pluginTypes *plugin.Collection[*plugin.Collection[string]]

	loadInfo   map[typeKey]*plugin.Collection[*LoadInfo]
	activeInfo map[typeKey]*plugin.Collection[plugin.Plugin]
}

// New creates an empty environment.
func New() *Environment {
	e := &Environment{}
	e.Reset()
	return e
}

// Reset forgets all types, providers and instances.
func (e *Environment) Reset() {
	e.pluginTypes = plugin.NewCollection[*plugin.Collection[string]]()
	e.loadInfo = make(map[typeKey]*plugin.Collection[*LoadInfo])
	e.activeInfo = make(map[typeKey]*plugin.Collection[plugin.Plugin])
}

func key(namespace, typ string) typeKey {
	return typeKey{namespace: config.SanitizeID(namespace), typ: config.SanitizeID(typ)}
}

// DefinePluginType defines a plugin type or updates its default provider.
func (e *Environment) DefinePluginType(namespace, typ, defaultProvider string) error {
	k := key(namespace, typ)
	if k.namespace == "" || k.typ == "" {
		return ErrInvalidName
	}
	types, ok := e.pluginTypes.Get(k.namespace)
	if !ok {
		types = plugin.NewCollection[string]()
		e.pluginTypes.Set(k.namespace, types)
	}
	types.Set(k.typ, config.SanitizeID(defaultProvider))
	return nil
}

// RemovePluginType undefines a type together with its providers and
// active instances.
func (e *Environment) RemovePluginType(namespace, typ string) []plugin.Plugin {
	k := key(namespace, typ)
	types, ok := e.pluginTypes.Get(k.namespace)
	if !ok {
		return nil
	}
	if _, ok := types.Delete(k.typ); !ok {
		return nil
	}
	if types.Len() == 0 {
		e.pluginTypes.Delete(k.namespace)
	}

	var removed []plugin.Plugin
	if active, ok := e.activeInfo[k]; ok {
		removed = active.Values()
	}
	delete(e.activeInfo, k)
	delete(e.loadInfo, k)
	return removed
}

// TypeDefined reports whether the type is defined in the namespace.
func (e *Environment) TypeDefined(namespace, typ string) bool {
	k := key(namespace, typ)
	types, ok := e.pluginTypes.Get(k.namespace)
	return ok && types.Has(k.typ)
}

// TypeDefault returns the type's default provider, or "" when the type is
// undefined or has no default.
func (e *Environment) TypeDefault(namespace, typ string) string {
	k := key(namespace, typ)
	types, ok := e.pluginTypes.Get(k.namespace)
	if !ok {
		return ""
	}
	provider, _ := types.Get(k.typ)
	return provider
}

// Namespaces returns the namespaces with defined types in definition order.
func (e *Environment) Namespaces() []string {
	return e.pluginTypes.Keys()
}

// PluginTypes returns the namespace's types mapped to their default providers.
func (e *Environment) PluginTypes(namespace string) map[string]string {
	types, ok := e.pluginTypes.Get(config.SanitizeID(namespace))
	if !ok {
		return map[string]string{}
	}
	return types.Map()
}

// TypeNames returns the namespace's types in definition order.
func (e *Environment) TypeNames(namespace string) []string {
	types, ok := e.pluginTypes.Get(config.SanitizeID(namespace))
	if !ok {
		return nil
	}
	return types.Keys()
}

// LoadedPlugin returns the load info of one provider.
func (e *Environment) LoadedPlugin(namespace, typ, provider string) (*LoadInfo, bool) {
	providers, ok := e.loadInfo[key(namespace, typ)]
	if !ok {
		return nil, false
	}
	return providers.Get(config.SanitizeID(provider))
}

// LoadedPlugins returns the load info of every provider of a type.
func (e *Environment) LoadedPlugins(namespace, typ string) map[string]*LoadInfo {
	providers, ok := e.loadInfo[key(namespace, typ)]
	if !ok {
		return map[string]*LoadInfo{}
	}
	return providers.Map()
}

// Providers returns a type's provider names in registration order.
func (e *Environment) Providers(namespace, typ string) []string {
	providers, ok := e.loadInfo[key(namespace, typ)]
	if !ok {
		return nil
	}
	return providers.Keys()
}

// storeLoadInfo stores info unless its provider is already registered.
func (e *Environment) storeLoadInfo(info *LoadInfo) (*LoadInfo, bool) {
	k := typeKey{namespace: info.Namespace, typ: info.Type}
	providers, ok := e.loadInfo[k]
	if !ok {
		providers = plugin.NewCollection[*LoadInfo]()
		e.loadInfo[k] = providers
	}
	if existing, ok := providers.Get(info.Provider); ok {
		return existing, false
	}
	providers.Set(info.Provider, info)
	return info, true
}

// CreatePlugin returns the instance identified by options, constructing it
// with construct when no instance has the same name or when options set
// the new flag. It returns nil when the type is undefined or the provider
// has no load info.
func (e *Environment) CreatePlugin(namespace, typ, provider string, options *config.Config, construct ConstructFunc) (plugin.Plugin, error) {
	if !e.TypeDefined(namespace, typ) {
		return nil, nil
	}
	info, ok := e.LoadedPlugin(namespace, typ, provider)
	if !ok {
		return nil, nil
	}

	options = config.Ensure(options).Clone()
	forceNew := options.GetBool(plugin.NewOption, false)
	options.Delete(plugin.NewOption, nil)

	name := InstanceName(info.Provider, plugin.IdentityFields(info.Factory), options)

	k := key(namespace, typ)
	active, ok := e.activeInfo[k]
	if !ok {
		active = plugin.NewCollection[plugin.Plugin]()
		e.activeInfo[k] = active
	}
	if existing, ok := active.Get(name); ok && !forceNew {
		return existing, nil
	}

	inst, err := construct(info, name, options)
	if err != nil || inst == nil {
		return nil, err
	}
	active.Set(name, inst)
	return inst, nil
}

// AddPlugin stores an instance built outside CreatePlugin under its
// instance name.
func (e *Environment) AddPlugin(inst plugin.Plugin) bool {
	meta := inst.Meta()
	if !e.TypeDefined(meta.Namespace, meta.Type) {
		return false
	}
	if _, ok := e.LoadedPlugin(meta.Namespace, meta.Type, meta.Provider); !ok {
		return false
	}
	k := key(meta.Namespace, meta.Type)
	active, ok := e.activeInfo[k]
	if !ok {
		active = plugin.NewCollection[plugin.Plugin]()
		e.activeInfo[k] = active
	}
	active.Set(meta.Name, inst)
	return true
}

// GetPlugin returns the active instance with the given name.
func (e *Environment) GetPlugin(namespace, typ, name string) (plugin.Plugin, bool) {
	active, ok := e.activeInfo[key(namespace, typ)]
	if !ok {
		return nil, false
	}
	return active.Get(name)
}

// RemovePlugin removes the active instance with the given name and
// returns it.
func (e *Environment) RemovePlugin(namespace, typ, name string) (plugin.Plugin, bool) {
	active, ok := e.activeInfo[key(namespace, typ)]
	if !ok {
		return nil, false
	}
	return active.Delete(name)
}

// ActivePlugins returns the type's active instances keyed by name.
func (e *Environment) ActivePlugins(namespace, typ string) map[string]plugin.Plugin {
	active, ok := e.activeInfo[key(namespace, typ)]
	if !ok {
		return map[string]plugin.Plugin{}
	}
	return active.Map()
}

// EachActive calls fn for the type's active instances in creation order
// until fn returns false.
func (e *Environment) EachActive(namespace, typ string, fn func(name string, p plugin.Plugin) bool) {
	active, ok := e.activeInfo[key(namespace, typ)]
	if !ok {
		return
	}
	active.Each(fn)
}
