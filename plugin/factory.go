package plugin

import (
	"context"

	"github.com/dshills/nucleon/config"
)

// DefaultIdentity is used by providers that declare no identity fields.
var DefaultIdentity = []string{"name"}

// Factory constructs plugin instances for one provider.
type Factory interface {
	New(ctx context.Context, meta Meta, options *config.Config) (Plugin, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, meta Meta, options *config.Config) (Plugin, error)

// New calls f.
func (f FactoryFunc) New(ctx context.Context, meta Meta, options *config.Config) (Plugin, error) {
	return f(ctx, meta, options)
}

// BaseFactory creates plain *Base instances.
var BaseFactory Factory = FactoryFunc(func(_ context.Context, meta Meta, options *config.Config) (Plugin, error) {
	return NewBase(meta, options), nil
})

// Identifier is implemented by factories that declare identity fields.
type Identifier interface {
	Identity() []string
}

// Translator is implemented by factories that rewrite options before
// construction, for example expanding a bare InputKey value.
type Translator interface {
	Translate(ctx context.Context, options *config.Config) (*config.Config, error)
}

// Initializer is implemented by instances needing setup after construction.
type Initializer interface {
	Init(ctx context.Context) error
}

// Closer is implemented by instances holding resources released on removal.
type Closer interface {
	Close(ctx context.Context) error
}

// Hook is a named extension entry point.
type Hook func(ctx context.Context, options *config.Config) (any, error)

// Extension is implemented by instances that observe hook dispatches.
type Extension interface {
	Hooks() map[string]Hook
}

// IdentityFields returns f's identity fields or DefaultIdentity.
func IdentityFields(f Factory) []string {
	if id, ok := f.(Identifier); ok {
		if fields := id.Identity(); len(fields) > 0 {
			return fields
		}
	}
	return DefaultIdentity
}

// Translate runs f's Translator when it has one.
func Translate(ctx context.Context, f Factory, options *config.Config) (*config.Config, error) {
	if t, ok := f.(Translator); ok {
		out, err := t.Translate(ctx, options)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return options, nil
}

// HookOf returns the named hook of an extension instance.
func HookOf(p Plugin, method string) (Hook, bool) {
	ext, ok := p.(Extension)
	if !ok {
		return nil, false
	}
	hook, ok := ext.Hooks()[method]
	return hook, ok && hook != nil
}

// Provider is a compiled-in factory with optional identity fields and a
// translation step.
type Provider struct {
	// Construct creates instances. BaseFactory is used when nil.
	Construct FactoryFunc
	// Fields lists the identity fields.
	Fields []string
	// TranslateFunc rewrites options before construction.
	TranslateFunc func(ctx context.Context, options *config.Config) (*config.Config, error)
}

// New implements Factory.
func (p *Provider) New(ctx context.Context, meta Meta, options *config.Config) (Plugin, error) {
	if p.Construct == nil {
		return BaseFactory.New(ctx, meta, options)
	}
	return p.Construct(ctx, meta, options)
}

// Identity implements Identifier.
func (p *Provider) Identity() []string {
	return p.Fields
}

// Translate implements Translator.
func (p *Provider) Translate(ctx context.Context, options *config.Config) (*config.Config, error) {
	if p.TranslateFunc == nil {
		return options, nil
	}
	return p.TranslateFunc(ctx, options)
}
