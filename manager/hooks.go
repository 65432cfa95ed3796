package manager

import (
	"context"
	"fmt"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/plugin"
)

// ExtensionTypeKey is set in hook options to the dispatching operation.
const ExtensionTypeKey = "extension_type"

// ValueKey holds the running value of a Value dispatch.
const ValueKey = "value"

// Op identifies the stage at which a ProcessFunc is called.
type Op int

const (
	// OpProcess is called with each extension's result.
	OpProcess Op = iota
	// OpReduce is called once with the map of processed results.
	OpReduce
)

// String returns a string representation of the op.
func (o Op) String() string {
	switch o {
	case OpProcess:
		return "process"
	case OpReduce:
		return "reduce"
	default:
		return "unknown"
	}
}

// ProcessFunc post-processes hook results. For OpProcess, provider names
// the extension and value is its result; a nil return keeps the raw result.
// For OpReduce, provider is empty and value is the map[string]any of
// processed results.
type ProcessFunc func(op Op, provider string, value any) any

// extensions returns the active extension instances in creation order.
func (m *Manager) extensions() []plugin.Plugin {
	var exts []plugin.Plugin
	for _, namespace := range m.env.Namespaces() {
		m.env.EachActive(namespace, plugin.ExtensionType, func(_ string, p plugin.Plugin) bool {
			exts = append(exts, p)
			return true
		})
	}
	return exts
}

// Extensions returns the active extension instances in creation order.
func (m *Manager) Extensions(ctx context.Context) []plugin.Plugin {
	var exts []plugin.Plugin
	_ = m.do(ctx, func(context.Context, *batch) error {
		exts = m.extensions()
		return nil
	})
	return exts
}

// Exec calls method on every active extension implementing it, in creation
// order. Without process it returns the results keyed by provider. With
// process, each result is passed through process and the processed map is
// reduced to the returned value. Exec returns nil when no extension
// implements method. A hook error stops the dispatch and is returned.
func (m *Manager) Exec(ctx context.Context, method string, options any, process ProcessFunc) (any, error) {
	var result any
	err := m.do(ctx, func(ctx context.Context, _ *batch) error {
		var err error
		result, err = m.exec(ctx, method, optionsOf(options), process)
		return err
	})
	return result, err
}

func (m *Manager) exec(ctx context.Context, method string, opts *config.Config, process ProcessFunc) (any, error) {
	logger := m.logger(ctx)
	results := make(map[string]any)
	ran := false

	for _, ext := range m.extensions() {
		hook, ok := plugin.HookOf(ext, method)
		if !ok {
			continue
		}
		meta := ext.Meta()
		logger.Debug("executing extension hook", "hook", method, "provider", meta.Provider)

		value, err := hook(WithParent(ctx, ext), opts)
		if err != nil {
			return nil, fmt.Errorf("extension %s hook %s: %w", meta, method, err)
		}
		ran = true

		if process != nil {
			if processed := process(OpProcess, meta.Provider, value); processed != nil {
				value = processed
			}
		}
		results[meta.Provider] = value
	}

	if !ran {
		return nil, nil
	}
	if process != nil {
		return process(OpReduce, "", results), nil
	}
	return results, nil
}

// dispatchOptions copies options for a hook dispatch of the given kind.
func dispatchOptions(options any, kind string) *config.Config {
	opts := optionsOf(options)
	opts.Set(ExtensionTypeKey, kind)
	return opts
}

// Check reports whether no extension implementing method returned false.
// It is true when no extension implements method.
func (m *Manager) Check(ctx context.Context, method string, options any) (bool, error) {
	success := true
	err := m.do(ctx, func(ctx context.Context, _ *batch) error {
		_, err := m.exec(ctx, method, dispatchOptions(options, "check"), func(op Op, _ string, value any) any {
			if op == OpProcess {
				if b, ok := value.(bool); ok && !b {
					success = false
				}
			}
			return nil
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return success, nil
}

// Value threads a running value through the extensions implementing
// method. Each extension sees the current value under the value option;
// a non-nil result replaces it.
func (m *Manager) Value(ctx context.Context, method string, initial any, options any) (any, error) {
	value := initial
	err := m.do(ctx, func(ctx context.Context, _ *batch) error {
		opts := dispatchOptions(options, "value")
		opts.Set(ValueKey, value)
		_, err := m.exec(ctx, method, opts, func(op Op, _ string, result any) any {
			if op == OpProcess && result != nil {
				value = result
				opts.Set(ValueKey, result)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Collect returns the non-nil results of the extensions implementing
// method, with list results flattened at every depth, in creation order.
func (m *Manager) Collect(ctx context.Context, method string, options any) ([]any, error) {
	values := []any{}
	err := m.do(ctx, func(ctx context.Context, _ *batch) error {
		_, err := m.exec(ctx, method, dispatchOptions(options, "collect"), func(op Op, _ string, result any) any {
			if op != OpProcess || result == nil {
				return nil
			}
			values = flatten(values, result)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// flatten appends value to values, expanding nested lists and dropping nils.
func flatten(values []any, value any) []any {
	if value == nil {
		return values
	}
	list, ok := config.Normalize(value).([]any)
	if !ok {
		return append(values, value)
	}
	for _, item := range list {
		values = flatten(values, item)
	}
	return values
}

// Config calls the <type>_config hook and merges the map results, in
// creation order, into option defaults for a new instance of typ.
func (m *Manager) Config(ctx context.Context, typ string, options any) (map[string]any, error) {
	var maps []map[string]any
	err := m.do(ctx, func(ctx context.Context, _ *batch) error {
		method := config.SanitizeID(typ) + "_config"
		_, err := m.exec(ctx, method, dispatchOptions(options, "config"), func(op Op, _ string, result any) any {
			if op == OpProcess {
				if hash, ok := config.Normalize(result).(map[string]any); ok {
					maps = append(maps, hash)
				}
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return config.MergeMaps(maps, true, false), nil
}
