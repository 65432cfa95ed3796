package manager

import "errors"

// Errors returned by Manager operations.
var (
	// ErrManagerClosed is returned when operating on a closed manager.
	ErrManagerClosed = errors.New("manager is closed")

	// ErrNilPlugin is returned when a factory constructs no instance.
	ErrNilPlugin = errors.New("factory returned nil plugin")

	// ErrAlreadyWatching is returned when a base path is already watched.
	ErrAlreadyWatching = errors.New("base path is already watched")
)
