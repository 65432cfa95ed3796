package config

import "errors"

// Errors returned by configuration operations. Tree access itself never
// fails; these cover encoding and file handling.
var (
	// ErrUnsupportedFormat indicates an unknown file or dump format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrFileNotFound indicates the configuration file doesn't exist.
	ErrFileNotFound = errors.New("config file not found")
)
