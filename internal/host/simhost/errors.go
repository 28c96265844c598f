package simhost

import "errors"

var (
	// ErrAlreadyRunning is returned by Run when the host is already running.
	ErrAlreadyRunning = errors.New("simulated host is already running")

	// ErrStopped is returned by Call once Run has returned.
	ErrStopped = errors.New("simulated host stopped")

	// ErrUnknownCommand is returned when invoking a name with no command id.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrNotHandled is returned when no hook handled an invoked command.
	ErrNotHandled = errors.New("command not handled")
)
