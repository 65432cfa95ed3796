package environment

import "errors"

// Errors returned by provider registration.
var (
	// ErrOutsideBase is returned when a provider file is not under
	// <base>/<namespace>/<type>.
	ErrOutsideBase = errors.New("provider file outside type directory")

	// ErrInvalidName is returned for empty namespace, type or provider names.
	ErrInvalidName = errors.New("invalid plugin name")
)
