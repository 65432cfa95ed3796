// Package environment holds the plugin registry owned by one Manager.
//
// An Environment records three things:
//
//   - plugin types: namespace -> type -> default provider
//   - load info: namespace -> type -> provider -> LoadInfo
//   - active instances: namespace -> type -> instance name -> plugin.Plugin
//
// An instance is active only while its provider has load info and its type
// is defined. CreatePlugin collapses logically identical requests into one
// instance by naming each instance with an identity fingerprint computed
// over the provider's identity fields:
//
//	env.DefinePluginType("nucleon", "project", "git")
//	env.DefineBuiltin("nucleon", "project", "git", factory)
//	a, _ := env.CreatePlugin("nucleon", "project", "git", opts, construct)
//	b, _ := env.CreatePlugin("nucleon", "project", "git", opts, construct)
//	// a == b
//
// Environment performs no locking. The owning Manager serializes access.
package environment
