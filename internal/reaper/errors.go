package reaper

import "errors"

// Session errors.
var (
	// ErrAlreadyAwake is returned by WakeUp when the session is awake.
	ErrAlreadyAwake = errors.New("session already awake")

	// ErrAlreadySleeping is returned by GoToSleep when the session is sleeping.
	ErrAlreadySleeping = errors.New("session already sleeping")

	// ErrInvalidState is returned when the parked audio adapter has been lost.
	ErrInvalidState = errors.New("session in invalid state")

	// ErrAudioHookRemoval is returned when the host refuses to give back the
	// audio hook. The session stays awake.
	ErrAudioHookRemoval = errors.New("audio hook removal failed")
)

// Lifecycle errors.
var (
	// ErrAlreadySetUp is returned by Setup when an instance exists.
	ErrAlreadySetUp = errors.New("reaper already set up")

	// ErrTornDown is returned for work queued after Teardown.
	ErrTornDown = errors.New("reaper torn down")
)

// Task errors.
var (
	// ErrMainThreadQueueFull is returned when the main-thread task queue is full.
	ErrMainThreadQueueFull = errors.New("main-thread task queue full")
)
