package rtqueue

import "errors"

// Queue errors.
var (
	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("real-time task queue full")

	// ErrDisconnected is returned after the queue has been closed.
	ErrDisconnected = errors.New("real-time task queue disconnected")
)
