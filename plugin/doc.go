// Package plugin defines the plugin instance model shared by the nucleon
// environment and manager.
//
// A plugin type is an extension point declared under a namespace. A provider
// is one implementation of a type, represented at runtime by a Factory. Each
// instance created by a factory is a Plugin: a configuration tree holding its
// settable state plus immutable Meta describing where it came from.
//
// # Capabilities
//
// Optional behavior is discovered through interface satisfaction:
//
//   - Factories may implement Identifier to declare the option fields that
//     make two instances "the same", and Translator to rewrite shorthand
//     options before construction.
//   - Instances may implement Initializer (called after construction),
//     Closer (called on removal) and Extension (exposes named hooks).
//
// Embedding *Base gives an instance the required Plugin methods:
//
//	type Shell struct {
//	    *plugin.Base
//	}
//
//	factory := plugin.FactoryFunc(func(ctx context.Context, meta plugin.Meta, opts *config.Config) (plugin.Plugin, error) {
//	    return &Shell{Base: plugin.NewBase(meta, opts)}, nil
//	})
//
// # Providers
//
// Compiled-in providers are registered in a Catalog. File based providers are
// either descriptors (YAML, TOML or JSON files validated against a schema and
// optionally delegating to a compiled-in class) or Lua scripts, handled by the
// plugin/lua package.
package plugin
