package host

import "errors"

// Host registration errors.
var (
	// ErrRegistrationFailed is returned when the host refuses a registration.
	ErrRegistrationFailed = errors.New("host refused registration")

	// ErrNotRegistered is returned when removing something the host does not know.
	ErrNotRegistered = errors.New("not registered with host")

	// ErrUnsupported is returned when the running host version lacks an API.
	ErrUnsupported = errors.New("not supported by this host version")

	// ErrInvalidAccel is returned when an accelerator description cannot be parsed.
	ErrInvalidAccel = errors.New("invalid accelerator")
)
