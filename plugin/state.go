package plugin

// State represents the lifecycle state of a plugin instance.
type State int

// Plugin states.
const (
	// StateCreated - Instance is constructed but not yet initialized.
	StateCreated State = iota

	// StateActive - Instance is initialized and stored in its environment.
	StateActive

	// StateRemoved - Instance was removed from its environment.
	StateRemoved

	// StateError - Instance failed to initialize or close.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateRemoved:
		return "removed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsUsable returns true if the instance can be used.
func (s State) IsUsable() bool {
	return s == StateCreated || s == StateActive
}
