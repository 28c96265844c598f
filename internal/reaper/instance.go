package reaper

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/reabridge/internal/host"
	"github.com/dshills/reabridge/internal/rtqueue"
)

// Reaper is the process-wide façade.
//
// Fields below the channels are owned by the main thread.
type Reaper struct {
	session host.Session
	logger  *zap.Logger

	rtQueue      *rtqueue.Queue
	mainQueue    chan func()
	consoleQueue chan string
	mainBulkSize int
	closed       atomic.Bool

	registry     map[host.CommandID]*command
	status       sessionStatus
	valueHistory map[host.CommandID]host.ActionValueChange
	undoActive   bool
	keys         map[string]host.Accel

	hooks        hooks
	helperHandle host.SurfaceHandle
}

var instance atomic.Pointer[Reaper]

// Option configures a Reaper.
type Option func(*Reaper)

// WithRealTimeCapacity sets the capacity of the real-time task queue.
func WithRealTimeCapacity(n int) Option {
	return func(r *Reaper) {
		if n > 0 {
			r.rtQueue = rtqueue.New(n)
		}
	}
}

// WithMainThreadCapacity sets the capacity of the main-thread task queue.
func WithMainThreadCapacity(n int) Option {
	return func(r *Reaper) {
		if n > 0 {
			r.mainQueue = make(chan func(), n)
		}
	}
}

// WithMainThreadBulkSize sets how many main-thread tasks run per helper poll.
func WithMainThreadBulkSize(n int) Option {
	return func(r *Reaper) {
		if n > 0 {
			r.mainBulkSize = n
		}
	}
}

// WithKeyBindings sets default shortcuts by command name. They apply to
// actions registered without an explicit binding.
func WithKeyBindings(keys map[string]host.Accel) Option {
	return func(r *Reaper) {
		for name, accel := range keys {
			r.keys[name] = accel
		}
	}
}

// Builder collects setup parameters.
type Builder struct {
	session host.Session
	logger  *zap.Logger
	opts    []Option
}

// Load starts setting up the façade over session.
// It must be called on the main thread.
func Load(session host.Session, opts ...Option) *Builder {
	requireMainThread(session)
	return &Builder{
		session: session,
		logger:  zap.NewNop(),
		opts:    opts,
	}
}

// Logger sets the logger used for diagnostics.
func (b *Builder) Logger(l *zap.Logger) *Builder {
	requireMainThread(b.session)
	if l != nil {
		b.logger = l
	}
	return b
}

// Setup creates the instance and registers the helper control surface.
// The façade starts sleeping.
func (b *Builder) Setup() error {
	requireMainThread(b.session)
	if instance.Load() != nil {
		return ErrAlreadySetUp
	}

	r := &Reaper{
		session:      b.session,
		logger:       b.logger,
		rtQueue:      rtqueue.New(rtqueue.DefaultCapacity),
		mainQueue:    make(chan func(), DefaultMainThreadTaskCapacity),
		consoleQueue: make(chan string, helperConsoleCapacity),
		mainBulkSize: DefaultMainThreadTaskBulkSize,
		registry:     make(map[host.CommandID]*command),
		valueHistory: make(map[host.CommandID]host.ActionValueChange),
		keys:         make(map[string]host.Accel),
	}
	for _, opt := range b.opts {
		opt(r)
	}
	r.status = sleeping{state: &sleepingState{adapter: rtqueue.NewAdapter(r.rtQueue)}}
	r.hooks = hooks{
		command:     &commandHook{r: r},
		toggle:      &toggleHook{r: r},
		postCommand: &postCommandHook{r: r},
		helper:      &helperSurface{r: r},
	}

	handle, err := r.session.AddControlSurface(r.hooks.helper)
	if err != nil {
		return fmt.Errorf("register helper control surface: %w", err)
	}
	r.helperHandle = handle

	instance.Store(r)
	r.logger.Debug("reaper set up",
		zap.Int("rt_capacity", r.rtQueue.Cap()),
		zap.Int("main_capacity", cap(r.mainQueue)),
	)
	return nil
}

// Get returns the façade. It panics if Setup has not run.
// Safe to call from any goroutine.
func Get() *Reaper {
	r := instance.Load()
	if r == nil {
		panic("reaper.Get called before Setup")
	}
	return r
}

// Teardown puts the façade to sleep if needed, removes the helper control
// surface and drops the instance. Tasks queued afterwards are rejected.
// It is a no-op if Setup has not run.
//
// If the host keeps the audio hook, Teardown returns an error wrapping
// ErrAudioHookRemoval and leaves the façade set up and awake, since the
// audio thread may still drain its queue. Teardown can be retried.
func Teardown() error {
	r := instance.Load()
	if r == nil {
		return nil
	}
	r.RequireMainThread()

	var errs error
	if r.IsAwake() {
		err := r.GoToSleep()
		if errors.Is(err, ErrAudioHookRemoval) {
			return err
		}
		errs = multierr.Append(errs, err)
	}

	orphanGuard()
	if err := r.session.RemoveControlSurface(r.helperHandle); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("remove helper control surface: %w", err))
	}
	r.rtQueue.Close()
	r.closed.Store(true)
	instance.CompareAndSwap(r, nil)

	r.logger.Debug("reaper torn down")
	return errs
}

// Logger returns the façade logger.
func (r *Reaper) Logger() *zap.Logger {
	return r.logger
}
