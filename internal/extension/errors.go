package extension

import "errors"

// Extension system errors.
var (
	// ErrNotFound is returned when an extension cannot be located.
	ErrNotFound = errors.New("extension not found")

	// ErrNoEntryPoint is returned when an extension has no main script.
	ErrNoEntryPoint = errors.New("extension has no entry point (init.lua)")

	// ErrAlreadyLoaded is returned when loading an extension twice.
	ErrAlreadyLoaded = errors.New("extension is already loaded")

	// ErrNotLoaded is returned when using an extension that is not loaded.
	ErrNotLoaded = errors.New("extension is not loaded")

	// ErrIncompatibleHost is returned when the host is older than an
	// extension's min_host_version.
	ErrIncompatibleHost = errors.New("extension requires a newer host")
)

// Manifest validation errors.
var (
	ErrMissingName     = errors.New("manifest: name is required")
	ErrInvalidName     = errors.New("manifest: name must be lowercase alphanumeric with hyphens")
	ErrInvalidVersion  = errors.New("manifest: version must be valid semver")
	ErrInvalidMain     = errors.New("manifest: main must be a .lua file")
	ErrInvalidKey      = errors.New("manifest: invalid key binding")
	ErrInvalidManifest = errors.New("manifest: malformed")
)
