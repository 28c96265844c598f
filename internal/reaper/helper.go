package reaper

import (
	"fmt"

	"github.com/dshills/reabridge/internal/host"
	"github.com/dshills/reabridge/internal/observability"
	"github.com/dshills/reabridge/internal/rtqueue"
)

const (
	// DefaultMainThreadTaskCapacity is the size of the main-thread task queue.
	DefaultMainThreadTaskCapacity = 256

	// DefaultMainThreadTaskBulkSize is the number of main-thread tasks run per helper poll.
	DefaultMainThreadTaskBulkSize = 100

	helperConsoleCapacity = 10
)

// helperSurface is the control surface the façade keeps registered for its
// whole lifetime. The host polls it on the main thread.
type helperSurface struct{ r *Reaper }

var _ host.ControlSurface = (*helperSurface)(nil)

func (h *helperSurface) Run() {
	h.r.runHelper()
}

func (r *Reaper) runHelper() {
console:
	for {
		select {
		case msg := <-r.consoleQueue:
			r.session.ShowConsoleMsg(msg)
		default:
			break console
		}
	}

	n := 0
tasks:
	for n < r.mainBulkSize {
		select {
		case task := <-r.mainQueue:
			task()
			n++
		default:
			break tasks
		}
	}
	observability.RecordMainExecuted(n)
}

// DoInMainThreadAsap queues task for the next helper poll on the main thread.
// Safe for concurrent use; it never blocks.
func (r *Reaper) DoInMainThreadAsap(task func()) error {
	if r.closed.Load() {
		observability.RecordMainEnqueue(false)
		return ErrTornDown
	}
	select {
	case r.mainQueue <- task:
		observability.RecordMainEnqueue(true)
		return nil
	default:
		observability.RecordMainEnqueue(false)
		return ErrMainThreadQueueFull
	}
}

// DoLaterInRealTimeAudioThreadAsap queues task for the audio thread.
// Safe for concurrent use; it never blocks. A nil error does not guarantee
// the task runs: tasks still queued at the next WakeUp are discarded.
func (r *Reaper) DoLaterInRealTimeAudioThreadAsap(task func(rtqueue.RealTimeReaper)) error {
	if err := r.rtQueue.TryEnqueue(task); err != nil {
		return fmt.Errorf("schedule real-time task: %w", err)
	}
	return nil
}

// ShowConsoleMsg writes msg to the host console.
func (r *Reaper) ShowConsoleMsg(msg string) {
	r.RequireMainThread()
	r.session.ShowConsoleMsg(msg)
}

// ShowConsoleMsgThreadSafe writes msg to the host console from any goroutine.
// Off the main thread the message is shown on the next helper poll, or
// dropped if too many are pending.
func (r *Reaper) ShowConsoleMsgThreadSafe(msg string) {
	if r.session.IsInMainThread() {
		r.session.ShowConsoleMsg(msg)
		return
	}
	select {
	case r.consoleQueue <- msg:
	default:
	}
}

// AddAcceleratorRegister gives cb a place in the host's keyboard processing.
func (r *Reaper) AddAcceleratorRegister(cb host.TranslateAccel) (host.AcceleratorHandle, error) {
	r.RequireMainThread()
	h, err := r.session.AddAcceleratorRegister(cb)
	if err != nil {
		return 0, fmt.Errorf("register accelerator translator: %w", err)
	}
	return h, nil
}

// RemoveAcceleratorRegister removes a translator added with AddAcceleratorRegister.
func (r *Reaper) RemoveAcceleratorRegister(handle host.AcceleratorHandle) error {
	r.RequireMainThread()
	return r.session.RemoveAcceleratorRegister(handle)
}
