package manager

import (
	"context"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/plugin"
)

// LoadOption configures LoadMultiple.
type LoadOption func(*loadSettings)

type loadSettings struct {
	keepArray bool
	nameKeyed bool
	provider  string
}

// KeepArray makes LoadMultiple return a list even for a single result.
func KeepArray() LoadOption {
	return func(s *loadSettings) {
		s.keepArray = true
	}
}

// NameKeyed makes LoadMultiple return instances keyed by instance name.
// A map argument is then read as options keyed by instance name.
func NameKeyed() LoadOption {
	return func(s *loadSettings) {
		s.nameKeyed = true
	}
}

// WithProvider sets the provider for items without a provider option.
func WithProvider(provider string) LoadOption {
	return func(s *loadSettings) {
		s.provider = provider
	}
}

// LoadMultiple loads one instance per item of data, which may be a list,
// a single item, or with NameKeyed a map of options keyed by instance
// name. Items that resolve to no instance are skipped.
//
// The result is a map[string]plugin.Plugin with NameKeyed, the single
// instance when exactly one was loaded and KeepArray is not set, and a
// []plugin.Plugin otherwise.
func (m *Manager) LoadMultiple(ctx context.Context, namespace, typ string, data any, opts ...LoadOption) (any, error) {
	var s loadSettings
	for _, opt := range opts {
		opt(&s)
	}

	var loaded []plugin.Plugin
	err := m.do(ctx, func(ctx context.Context, b *batch) error {
		for _, item := range loadItems(data, s.nameKeyed) {
			p, err := m.load(ctx, b, namespace, typ, s.provider, item)
			if err != nil {
				return err
			}
			if p != nil {
				loaded = append(loaded, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case s.nameKeyed:
		byName := make(map[string]plugin.Plugin, len(loaded))
		for _, p := range loaded {
			byName[p.Meta().Name] = p
		}
		return byName, nil
	case len(loaded) == 1 && !s.keepArray:
		return loaded[0], nil
	default:
		return loaded, nil
	}
}

// loadItems splits LoadMultiple data into per-item options.
func loadItems(data any, nameKeyed bool) []*config.Config {
	switch v := config.Normalize(data).(type) {
	case nil:
		return nil
	case []any:
		items := make([]*config.Config, 0, len(v))
		for _, item := range v {
			items = append(items, optionsOf(item))
		}
		return items
	case map[string]any:
		if !nameKeyed {
			return []*config.Config{config.New(v)}
		}
		items := make([]*config.Config, 0, len(v))
		for _, name := range config.New(v).Keys() {
			item := optionsOf(v[name])
			item.Set(plugin.NameOption, name)
			items = append(items, item)
		}
		return items
	default:
		return []*config.Config{optionsOf(data)}
	}
}
