// Package manager implements named plugin managers.
//
// A Registry hands out one Manager per connection name. Each Manager owns
// an Environment and provides:
//
//   - type and builtin provider definition (DefineType, DefineProvider)
//   - discovery of provider files under base paths (Register, Watch)
//   - instance lifecycle (Autoload, Load, Create, LoadMultiple, Get, Remove)
//   - extension hook dispatch (Exec, Check, Value, Collect, Config)
//
// Provider files are resolved to factories in this order: a builtin
// provider with the same name, a Lua script (.lua), a descriptor
// (.yaml, .yml, .json, .toml), and finally plugin.BaseFactory.
//
//	reg := manager.NewRegistry(manager.RegistryOptions{Concurrent: true})
//	m := reg.Connection("nucleon")
//	_ = m.DefineType(ctx, "nucleon", "project", "git")
//	_ = m.Register(ctx, "/usr/share/nucleon/plugins")
//	p, err := m.Load(ctx, "nucleon", "project", "", map[string]any{"path": "/src/app"})
//
// In concurrent mode a Manager runs its operations on a single actor
// goroutine. Plugins and hooks receive the operation's context; passing it
// back into the Manager runs the nested call inline.
package manager
