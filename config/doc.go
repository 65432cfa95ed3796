// Package config provides the hierarchical configuration tree used as the
// state representation of every nucleon object.
//
// A Config is a nested key/value container. Keys are normalized to a single
// canonical string form on input, nested maps of any shape are normalized to
// map[string]any, and slices of any element type become []any.
//
// # Access
//
// Every accessor takes a key path. A single key is wrapped automatically:
//
//	cfg := config.New(map[string]any{"server": map[string]any{"port": 8080}})
//	cfg.Get([]string{"server", "port"}, 0)    // 8080
//	cfg.Get("missing", "fallback")            // "fallback"
//	cfg.Get("tags", nil, config.FilterArray)  // []any{}
//
// Get never fails. A missing path yields the default, optionally passed through
// one of the named filters (array, hash, string, symbol, test).
//
// # Merging
//
// Import merges external data into the tree. ImportOverride (the default)
// lets incoming values win; ImportDefault only fills gaps. Defaults is sugar
// for the latter. The merge algorithm is exposed as Merge:
//
//   - two maps are combined key by key (recursively unless BasicMerge is set)
//   - two lists are concatenated and de-duplicated
//   - two scalars keep the second operand only when Force is set or the second
//     operand is textual
//
// Shape mismatches are never reported. They are coerced to the nearest valid
// shape or resolved by the rules above.
//
// # Process-wide collections
//
// Options holds named option contexts and Properties holds named property
// snapshots that may be dumped to JSON or YAML. Both are safe for concurrent
// use and are meant to be owned by a single process-level state object.
package config
