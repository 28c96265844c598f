// Package rtqueue moves small tasks from any goroutine onto the host's
// real-time audio thread.
//
// A Queue is a bounded multi-producer channel. Its Adapter is registered as
// the host's audio hook and runs at most BulkSize tasks per audio block, so
// the work added to any one block stays bounded. Producers are never
// blocked: a full queue rejects the task.
package rtqueue

import (
	"sync/atomic"

	"github.com/dshills/reabridge/internal/host"
	"github.com/dshills/reabridge/internal/observability"
)

const (
	// DefaultCapacity is the number of tasks the queue holds.
	DefaultCapacity = 500

	// BulkSize is the number of tasks run per audio block.
	BulkSize = 1
)

// RealTimeReaper is the capability handed to tasks running on the audio thread.
// It carries no state; holding one means "I am on the real-time thread".
type RealTimeReaper struct{}

// Task is a one-shot unit of work for the audio thread.
type Task func(RealTimeReaper)

// Queue is a bounded FIFO of tasks.
type Queue struct {
	ch     chan Task
	closed atomic.Bool
}

// New creates a queue. A nonpositive capacity selects DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{ch: make(chan Task, capacity)}
}

// TryEnqueue adds task without blocking.
// Safe for concurrent use.
func (q *Queue) TryEnqueue(task Task) error {
	if q.closed.Load() {
		observability.RecordRTEnqueue(false)
		return ErrDisconnected
	}
	select {
	case q.ch <- task:
		observability.RecordRTEnqueue(true)
		return nil
	default:
		observability.RecordRTEnqueue(false)
		return ErrQueueFull
	}
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Close makes further TryEnqueue calls fail with ErrDisconnected.
// Tasks already queued stay until drained or discarded.
func (q *Queue) Close() {
	q.closed.Store(true)
}

// Closed reports whether Close was called.
func (q *Queue) Closed() bool {
	return q.closed.Load()
}

// Adapter is the consumer end of a Queue, registered as the audio hook.
type Adapter struct {
	queue *Queue
}

var _ host.OnAudioBuffer = (*Adapter)(nil)

// NewAdapter creates the consumer for q.
func NewAdapter(q *Queue) *Adapter {
	return &Adapter{queue: q}
}

// OnAudioBuffer runs at most BulkSize queued tasks.
// Post-processing calls are ignored.
func (a *Adapter) OnAudioBuffer(args host.OnAudioBufferArgs) {
	if args.IsPost {
		return
	}
	for i := 0; i < BulkSize; i++ {
		select {
		case task := <-a.queue.ch:
			task(RealTimeReaper{})
			observability.RecordRTExecuted()
		default:
			return
		}
	}
}

// Discard drops every queued task without running it and returns how many
// were dropped.
func (a *Adapter) Discard() int {
	n := 0
	for {
		select {
		case <-a.queue.ch:
			n++
		default:
			observability.RecordRTDiscarded(n)
			return n
		}
	}
}
