package module

// State is the lifecycle state of a module.
type State int

// Module states.
const (
	// StateUnloaded means the module is not loaded.
	StateUnloaded State = iota

	// StateLoaded means the module code ran but the module is not
	// activated.
	StateLoaded

	// StateActive means the module is active.
	StateActive

	// StateError means the module hit an error.
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsUsable reports whether the module can be called.
func (s State) IsUsable() bool {
	return s == StateLoaded || s == StateActive
}
