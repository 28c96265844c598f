package extension

// State represents the lifecycle state of an extension.
type State int

// Extension states.
const (
	// StateUnloaded - Extension is not loaded.
	StateUnloaded State = iota

	// StateLoaded - Script has run but the extension is not activated.
	StateLoaded

	// StateActivating - activate() is running.
	StateActivating

	// StateActive - Extension is active and holds a session guard.
	StateActive

	// StateDeactivating - deactivate() is running.
	StateDeactivating

	// StateError - Extension failed to load or activate.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateDeactivating:
		return "deactivating"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsUsable returns true if the extension is loaded or active.
func (s State) IsUsable() bool {
	return s == StateLoaded || s == StateActive
}
