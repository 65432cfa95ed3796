package environment

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/plugin"
)

// DefineProvider registers the provider defined by file. The provider id
// is derived from the file's path relative to basePath/<namespace>/<type>:
// directory segments and the file name, without extension, joined by "_".
//
// A provider id is registered once. For a new provider, cb is called with
// the load info before it is stored; an error from cb leaves the provider
// unregistered. DefineProvider reports whether the provider was new.
func (e *Environment) DefineProvider(namespace, typ, basePath, file string, cb func(*LoadInfo) error) (*LoadInfo, bool, error) {
	k := key(namespace, typ)
	if k.namespace == "" || k.typ == "" {
		return nil, false, ErrInvalidName
	}

	typeDir := filepath.Join(basePath, k.namespace, k.typ)
	rel, err := filepath.Rel(typeDir, file)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil, false, fmt.Errorf("%w: %s", ErrOutsideBase, file)
	}

	segments := strings.Split(filepath.ToSlash(rel), "/")
	last := len(segments) - 1
	segments[last] = strings.TrimSuffix(segments[last], filepath.Ext(segments[last]))

	provider := config.SanitizeID(strings.Join(segments, "_"))
	if provider == "" {
		return nil, false, fmt.Errorf("%w: %s", ErrInvalidName, file)
	}
	if existing, ok := e.LoadedPlugin(k.namespace, k.typ, provider); ok {
		return existing, false, nil
	}

	info := &LoadInfo{
		Namespace: k.namespace,
		Type:      k.typ,
		Provider:  provider,
		BasePath:  basePath,
		File:      file,
		Directory: filepath.Dir(file),
		TypeName:  TypeName(append([]string{k.namespace, k.typ}, segments...)...),
	}
	if cb != nil {
		if err := cb(info); err != nil {
			return nil, false, err
		}
	}
	stored, isNew := e.storeLoadInfo(info)
	return stored, isNew, nil
}

// DefineBuiltin registers a compiled-in provider. When the provider is
// already registered its factory is replaced.
func (e *Environment) DefineBuiltin(namespace, typ, provider string, factory plugin.Factory) (*LoadInfo, bool, error) {
	k := key(namespace, typ)
	id := config.SanitizeID(provider)
	if k.namespace == "" || k.typ == "" || id == "" {
		return nil, false, ErrInvalidName
	}
	if factory == nil {
		return nil, false, plugin.ErrNilFactory
	}

	if existing, ok := e.LoadedPlugin(k.namespace, k.typ, id); ok {
		existing.Factory = factory
		return existing, false, nil
	}
	info, isNew := e.storeLoadInfo(&LoadInfo{
		Namespace: k.namespace,
		Type:      k.typ,
		Provider:  id,
		TypeName:  TypeName(k.namespace, k.typ, id),
		Factory:   factory,
	})
	return info, isNew, nil
}

// TypeName joins name components into a qualified type name, CamelCasing
// each component: TypeName("nucleon", "test", "my_group", "first") is
// "Nucleon::Test::MyGroup::First".
func TypeName(components ...string) string {
	parts := make([]string, 0, len(components))
	for _, c := range components {
		if name := camelCase(config.SanitizeID(c)); name != "" {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "::")
}

func camelCase(id string) string {
	var b strings.Builder
	for _, word := range strings.Split(id, "_") {
		if word == "" {
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	return b.String()
}
