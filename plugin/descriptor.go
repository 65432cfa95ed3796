package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/config/loader"
)

// APIVersion is the provider API version descriptors are checked against.
const APIVersion = "1.0.0"

const descriptorSchemaID = "nucleon-descriptor.json"

const descriptorSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "version": {"type": "string"},
    "requires": {"type": "string"},
    "class": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "identity": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "defaults": {"type": "object"},
    "shorthand": {"type": "string", "minLength": 1}
  },
  "additionalProperties": false
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func descriptorValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(descriptorSchema))
		if err != nil {
			schemaErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(descriptorSchemaID, doc); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(descriptorSchemaID)
	})
	return compiledSchema, schemaErr
}

// Descriptor is a file based provider: a YAML, TOML or JSON document
// declaring identity fields, option defaults and optionally the compiled-in
// class that constructs its instances.
type Descriptor struct {
	Path        string
	Version     *semver.Version
	Requires    *semver.Constraints
	Class       string
	Description string
	Fields      []string
	Defaults    map[string]any
	Shorthand   string

	inner Factory
}

// ClassResolver returns the compiled-in factory for a class name.
type ClassResolver func(class string) (Factory, bool)

// LoadDescriptor reads and validates the descriptor at path.
func LoadDescriptor(path string, resolve ClassResolver) (*Descriptor, error) {
	data, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDescriptor(path, data, resolve)
}

// ParseDescriptor validates decoded descriptor data.
func ParseDescriptor(path string, data map[string]any, resolve ClassResolver) (*Descriptor, error) {
	if err := validateDescriptor(data); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidDescriptor, path, err)
	}

	cfg := config.New(data)
	d := &Descriptor{
		Path:        path,
		Class:       cfg.GetString("class", ""),
		Description: cfg.GetString("description", ""),
		Defaults:    cfg.GetHash("defaults"),
		Shorthand:   cfg.GetString("shorthand", ""),
		inner:       BaseFactory,
	}
	for _, field := range cfg.GetArray("identity") {
		d.Fields = append(d.Fields, config.String(field))
	}

	if v := cfg.GetString("version", ""); v != "" {
		version, err := semver.NewVersion(v)
		if err != nil {
			return nil, fmt.Errorf("%w %s: version %q: %w", ErrInvalidDescriptor, path, v, err)
		}
		d.Version = version
	}

	if r := cfg.GetString("requires", ""); r != "" {
		constraint, err := semver.NewConstraint(r)
		if err != nil {
			return nil, fmt.Errorf("%w %s: requires %q: %w", ErrInvalidDescriptor, path, r, err)
		}
		if !constraint.Check(semver.MustParse(APIVersion)) {
			return nil, fmt.Errorf("%w: %s requires %s, have %s", ErrIncompatibleVersion, path, r, APIVersion)
		}
		d.Requires = constraint
	}

	if d.Class != "" {
		var inner Factory
		var ok bool
		if resolve != nil {
			inner, ok = resolve(d.Class)
		}
		if !ok {
			return nil, fmt.Errorf("%w %q in %s", ErrUnknownClass, d.Class, path)
		}
		d.inner = inner
	}
	return d, nil
}

func validateDescriptor(data map[string]any) error {
	schema, err := descriptorValidator()
	if err != nil {
		return fmt.Errorf("compiling descriptor schema: %w", err)
	}
	// round-trip through JSON so the validator sees plain JSON values
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return schema.Validate(inst)
}

// New implements Factory by delegating to the descriptor's class.
func (d *Descriptor) New(ctx context.Context, meta Meta, options *config.Config) (Plugin, error) {
	return d.inner.New(ctx, meta, options)
}

// Identity implements Identifier. Declared fields win over the class's.
func (d *Descriptor) Identity() []string {
	if len(d.Fields) > 0 {
		return d.Fields
	}
	return IdentityFields(d.inner)
}

// Translate implements Translator. A bare input value is moved to the
// shorthand key, the class translator runs, and defaults fill the gaps.
func (d *Descriptor) Translate(ctx context.Context, options *config.Config) (*config.Config, error) {
	if options == nil {
		options = config.New(nil)
	}
	if d.Shorthand != "" && options.Has(InputKey) && !options.Has(d.Shorthand) {
		options.Set(d.Shorthand, options.Delete(InputKey, nil))
	}

	out, err := Translate(ctx, d.inner, options)
	if err != nil {
		return nil, err
	}
	if len(d.Defaults) > 0 {
		out.Defaults(d.Defaults)
	}
	return out, nil
}
