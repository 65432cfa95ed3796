// Package action is the outermost execution boundary of the nucleon CLI.
//
// An Action is a named function run against an Env holding the plugin
// Manager, the process configuration and the status table. Run looks the
// action up in a Registry, recovers panics, logs failures and maps every
// outcome to a registered status code:
//
//	code := action.Run(ctx, registry, env, "plugins", nil)
//	os.Exit(code)
//
// Errors carry a status name by implementing status.Coder; Error is the
// package's implementation. Errors without one map to unknown_status.
//
// Builtin actions list registered providers and active extensions, build
// --encoded argument bundles and print version and status information.
package action
