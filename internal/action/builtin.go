package action

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dshills/nucleon/plugin"
	"github.com/dshills/nucleon/status"
)

// Builtins returns the actions every nucleon process provides.
func Builtins() []Action {
	return []Action{
		{Name: "plugins", Short: "List registered providers, optionally of one namespace", Run: listPlugins},
		{Name: "extensions", Short: "List active extensions and their hooks", Run: listExtensions},
		{Name: "encode", Short: "Build an --encoded bundle from path=value pairs", Run: encode},
		{Name: "status", Short: "List status codes", Run: listStatus},
		{Name: "version", Short: "Print the version", Run: version},
	}
}

// RegisterBuiltins adds Builtins to reg.
func RegisterBuiltins(reg *Registry) error {
	for _, a := range Builtins() {
		if err := reg.Register(a); err != nil {
			return err
		}
	}
	return nil
}

func newTable(env *Env, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(env.out())
	t.AppendHeader(header)
	t.SetStyle(table.StyleLight)
	return t
}

func listPlugins(ctx context.Context, env *Env, args []string) error {
	m := env.Manager
	if m == nil {
		return Errorf(status.ActionUnprocessed, "no plugin manager")
	}

	namespaces := m.Namespaces(ctx)
	if len(args) > 0 {
		namespaces = args
	}

	t := newTable(env, table.Row{"Namespace", "Type", "Provider", "Default", "Type Name", "File"})
	for _, namespace := range namespaces {
		types := m.PluginTypes(ctx, namespace)
		typeNames := make([]string, 0, len(types))
		for typ := range types {
			typeNames = append(typeNames, typ)
		}
		sort.Strings(typeNames)

		for _, typ := range typeNames {
			loaded := m.LoadedPlugins(ctx, namespace, typ)
			providers := make([]string, 0, len(loaded))
			for provider := range loaded {
				providers = append(providers, provider)
			}
			sort.Strings(providers)

			for _, provider := range providers {
				info := loaded[provider]
				def := ""
				if provider == types[typ] {
					def = "*"
				}
				t.AppendRow(table.Row{namespace, typ, provider, def, info.TypeName, info.File})
			}
		}
	}
	t.Render()
	return nil
}

func listExtensions(ctx context.Context, env *Env, _ []string) error {
	m := env.Manager
	if m == nil {
		return Errorf(status.ActionUnprocessed, "no plugin manager")
	}

	t := newTable(env, table.Row{"Provider", "Name", "Hooks"})
	for _, ext := range m.Extensions(ctx) {
		var hooks []string
		if e, ok := ext.(plugin.Extension); ok {
			for name := range e.Hooks() {
				hooks = append(hooks, name)
			}
		}
		sort.Strings(hooks)
		meta := ext.Meta()
		t.AppendRow(table.Row{meta.Provider, meta.Name, strings.Join(hooks, ", ")})
	}
	t.Render()
	return nil
}

func encode(_ context.Context, env *Env, args []string) error {
	if len(args) == 0 {
		return Errorf(status.ValidationFailed, "encode needs at least one path=value pair")
	}
	encoded, err := EncodeBundle(args)
	if err != nil {
		return &Error{Status: status.ValidationFailed, Err: err}
	}
	fmt.Fprintln(env.out(), encoded)
	return nil
}

func listStatus(_ context.Context, env *Env, _ []string) error {
	t := newTable(env, table.Row{"Code", "Name"})
	for code, name := range env.table().Names() {
		t.AppendRow(table.Row{code, name})
	}
	t.Render()
	return nil
}

func version(_ context.Context, env *Env, _ []string) error {
	v := env.Version
	if v == "" {
		v = "dev"
	}
	fmt.Fprintf(env.out(), "nucleon %s\n", v)
	return nil
}
