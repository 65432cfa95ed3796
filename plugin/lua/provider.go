package lua

import (
	"context"
	"fmt"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/plugin"
)

// Script globals recognized by Provider.
const (
	// IdentityGlobal is an array of identity field names.
	IdentityGlobal = "identity"
	// TranslateFunc receives the options table and returns a replacement.
	TranslateFunc = "translate"
	// InitFunc receives the instance's config and may return values merged into it.
	InitFunc = "init"
	// HooksGlobal is a table of extension hook functions.
	HooksGlobal = "hooks"
	// PluginGlobal is set on instance states to the instance's metadata.
	PluginGlobal = "plugin"
)

// Provider is a plugin factory backed by a Lua script. The script is run
// once in a provider-level state for identity and translation, and again in
// a fresh state for every instance.
type Provider struct {
	path   string
	opts   []StateOption
	state  *State
	fields []string
}

// NewProvider loads the script at path.
func NewProvider(ctx context.Context, path string, opts ...StateOption) (*Provider, error) {
	state := NewState(opts...)
	if err := state.DoFile(ctx, path); err != nil {
		state.Close()
		return nil, fmt.Errorf("loading lua provider %s: %w", path, err)
	}

	p := &Provider{
		path:  path,
		opts:  opts,
		state: state,
	}
	for _, field := range config.Array(state.Global(IdentityGlobal)) {
		if name := config.String(field); name != "" {
			p.fields = append(p.fields, name)
		}
	}
	return p, nil
}

// Path returns the script path.
func (p *Provider) Path() string {
	return p.path
}

// Identity implements plugin.Identifier.
func (p *Provider) Identity() []string {
	return p.fields
}

// Translate implements plugin.Translator by calling the script's translate
// function when it defines one.
func (p *Provider) Translate(ctx context.Context, options *config.Config) (*config.Config, error) {
	if options == nil {
		options = config.New(nil)
	}
	if !p.state.HasFunction(TranslateFunc) {
		return options, nil
	}

	results, err := p.state.Call(ctx, TranslateFunc, options.Export())
	if err != nil {
		return nil, fmt.Errorf("translating options for %s: %w", p.path, err)
	}
	if len(results) == 0 || results[0] == nil {
		return options, nil
	}
	translated, ok := results[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("translating options for %s: expected table, got %T", p.path, results[0])
	}
	return config.New(translated, config.WithForce(options.Force()), config.WithBasicMerge(options.BasicMerge())), nil
}

// New implements plugin.Factory.
func (p *Provider) New(ctx context.Context, meta plugin.Meta, options *config.Config) (plugin.Plugin, error) {
	state := NewState(p.opts...)
	state.SetGlobal(PluginGlobal, map[string]any{
		"id":        meta.ID.String(),
		"namespace": meta.Namespace,
		"type":      meta.Type,
		"provider":  meta.Provider,
		"name":      meta.Name,
		"directory": meta.Directory,
	})
	if err := state.DoFile(ctx, p.path); err != nil {
		state.Close()
		return nil, fmt.Errorf("loading lua instance %s: %w", meta, err)
	}

	inst := &Instance{
		Base:  plugin.NewBase(meta, options),
		state: state,
	}
	inst.hooks = inst.loadHooks()
	return inst, nil
}

// Close releases the provider-level state.
func (p *Provider) Close() error {
	return p.state.Close()
}

// Instance is a plugin instance with its own Lua state.
type Instance struct {
	*plugin.Base
	state *State
	hooks map[string]plugin.Hook
}

// LuaState returns the instance's Lua state.
func (i *Instance) LuaState() *State {
	return i.state
}

// Init implements plugin.Initializer. A table returned by the script's init
// function is merged into the instance's config.
func (i *Instance) Init(ctx context.Context) error {
	if !i.state.HasFunction(InitFunc) {
		return nil
	}
	results, err := i.state.Call(ctx, InitFunc, i.Config().Export())
	if err != nil {
		return fmt.Errorf("initializing %s: %w", i.Meta(), err)
	}
	if len(results) > 0 {
		if m, ok := results[0].(map[string]any); ok {
			i.Config().Import(m)
		}
	}
	return nil
}

// Hooks implements plugin.Extension.
func (i *Instance) Hooks() map[string]plugin.Hook {
	return i.hooks
}

func (i *Instance) loadHooks() map[string]plugin.Hook {
	funcs := i.state.Functions(HooksGlobal)
	if len(funcs) == 0 {
		return nil
	}
	hooks := make(map[string]plugin.Hook, len(funcs))
	for name, fn := range funcs {
		hooks[name] = func(ctx context.Context, options *config.Config) (any, error) {
			results, err := i.state.CallFunction(ctx, fn, options.Export(), i.Config().Export())
			if err != nil {
				return nil, fmt.Errorf("lua hook %s on %s: %w", name, i.Meta(), err)
			}
			if len(results) == 0 {
				return nil, nil
			}
			return results[0], nil
		}
	}
	return hooks
}

// Close implements plugin.Closer.
func (i *Instance) Close(context.Context) error {
	return i.state.Close()
}
