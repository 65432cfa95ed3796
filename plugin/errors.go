package plugin

import "errors"

// Plugin system errors.
var (
	// ErrInvalidDescriptor is returned when a provider descriptor fails validation.
	ErrInvalidDescriptor = errors.New("invalid provider descriptor")

	// ErrUnknownClass is returned when a descriptor names a provider class
	// that is not in the catalog.
	ErrUnknownClass = errors.New("unknown provider class")

	// ErrIncompatibleVersion is returned when a descriptor requires a
	// framework version this build does not satisfy.
	ErrIncompatibleVersion = errors.New("incompatible provider version")

	// ErrNilFactory is returned when registering a provider without a factory.
	ErrNilFactory = errors.New("factory is nil")

	// ErrInvalidPlugin is returned when a factory returns no instance.
	ErrInvalidPlugin = errors.New("invalid plugin")
)
