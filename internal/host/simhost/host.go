package simhost

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreos/go-semver/semver"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/dshills/reabridge/internal/host"
)

// Defaults for a Host.
const (
	DefaultVersion       = "7.0.0"
	DefaultBlockSize     = 512
	DefaultSampleRate    = 48000
	DefaultBlockInterval = 10 * time.Millisecond
	DefaultRunInterval   = 33 * time.Millisecond

	// FirstCommandID is the first id handed out by AddCommandID.
	FirstCommandID host.CommandID = 40000
)

// PostCommand2Version is the first simulated version that reports
// post-command notifications with values.
var PostCommand2Version = semver.New("6.19.0")

// Host simulates the host side of the façade's contract.
type Host struct {
	logger        *zap.Logger
	version       *semver.Version
	blockSize     int32
	sampleRate    float64
	blockInterval time.Duration
	runInterval   time.Duration
	console       io.Writer

	mainTID atomic.Int64
	calls   chan func()
	stopped chan struct{}
	blocks  atomic.Uint64

	// audioMu is held for a whole audio block.
	audioMu sync.Mutex

	mu           sync.Mutex
	nextHandle   uint64
	nextID       host.CommandID
	ids          map[string]host.CommandID
	names        map[host.CommandID]string
	hookCommands []hookCommand
	toggles      []toggleAction
	postCommands []postCommand
	gaccels      map[host.GaccelHandle]host.GaccelRegister
	audioHooks   map[host.AudioHookHandle]audioHook
	surfaces     map[host.SurfaceHandle]host.RawControlSurfaceRun
	accels       map[host.AcceleratorHandle]host.RawTranslateAccel
	accelOrder   []host.AcceleratorHandle
	undoDepth    int
	undoHistory  []string
	consoleLog   []string
}

type hookCommand struct {
	cb  host.HookCommand
	raw host.RawHookCommand
}

type toggleAction struct {
	cb  host.ToggleAction
	raw host.RawToggleAction
}

type postCommand struct {
	cb  host.HookPostCommand2
	raw host.RawHookPostCommand2
}

type audioHook struct {
	cb  host.OnAudioBuffer
	raw host.RawOnAudioBuffer
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host's logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithVersion sets the version the host reports.
func WithVersion(v *semver.Version) Option {
	return func(h *Host) {
		if v != nil {
			h.version = v
		}
	}
}

// WithAudio sets the block size, sample rate and block interval of the
// simulated audio thread.
func WithAudio(blockSize int, sampleRate float64, interval time.Duration) Option {
	return func(h *Host) {
		if blockSize > 0 {
			h.blockSize = int32(blockSize)
		}
		if sampleRate > 0 {
			h.sampleRate = sampleRate
		}
		if interval > 0 {
			h.blockInterval = interval
		}
	}
}

// WithRunInterval sets how often control surfaces are polled.
func WithRunInterval(d time.Duration) Option {
	return func(h *Host) {
		if d > 0 {
			h.runInterval = d
		}
	}
}

// WithConsole copies console messages to w.
func WithConsole(w io.Writer) Option {
	return func(h *Host) {
		h.console = w
	}
}

// New creates a host. It does nothing until Run is called.
func New(opts ...Option) *Host {
	h := &Host{
		logger:        zap.NewNop(),
		version:       semver.New(DefaultVersion),
		blockSize:     DefaultBlockSize,
		sampleRate:    DefaultSampleRate,
		blockInterval: DefaultBlockInterval,
		runInterval:   DefaultRunInterval,
		calls:         make(chan func()),
		stopped:       make(chan struct{}),
		nextID:        FirstCommandID,
		ids:           make(map[string]host.CommandID),
		names:         make(map[host.CommandID]string),
		gaccels:       make(map[host.GaccelHandle]host.GaccelRegister),
		audioHooks:    make(map[host.AudioHookHandle]audioHook),
		surfaces:      make(map[host.SurfaceHandle]host.RawControlSurfaceRun),
		accels:        make(map[host.AcceleratorHandle]host.RawTranslateAccel),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Version returns the version the host reports.
func (h *Host) Version() *semver.Version {
	return h.version
}

// Blocks returns the number of audio blocks played so far.
func (h *Host) Blocks() uint64 {
	return h.blocks.Load()
}

// Run makes the calling goroutine the host's main thread and blocks until
// ctx is done. A host runs once.
func (h *Host) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if !h.mainTID.CompareAndSwap(0, currentThreadID()) {
		if h.mainTID.Load() < 0 {
			return ErrStopped
		}
		return ErrAlreadyRunning
	}
	defer func() {
		h.mainTID.Store(-1)
		close(h.stopped)
	}()

	audioCtx, stopAudio := context.WithCancel(ctx)
	var wg conc.WaitGroup
	wg.Go(func() { h.audioLoop(audioCtx) })
	defer func() {
		stopAudio()
		wg.Wait()
	}()

	h.logger.Info("simulated host running",
		zap.Stringer("version", h.version),
		zap.Int32("block_size", h.blockSize),
		zap.Float64("sample_rate", h.sampleRate),
	)

	ticker := time.NewTicker(h.runInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("simulated host stopping", zap.Uint64("blocks", h.Blocks()))
			return nil
		case fn := <-h.calls:
			fn()
		case <-ticker.C:
			h.RunSurfaces()
		}
	}
}

// Call runs fn on the main thread and waits for it. Called on the main
// thread, it runs fn directly. A panic in fn is returned as an error.
func (h *Host) Call(ctx context.Context, fn func()) error {
	if h.IsInMainThread() {
		return protect(fn)
	}

	done := make(chan error, 1)
	task := func() { done <- protect(fn) }
	select {
	case h.calls <- task:
	case <-h.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func protect(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("main thread call panicked: %v", r)
		}
	}()
	fn()
	return nil
}

// IsInMainThread implements host.ThreadChecker.
func (h *Host) IsInMainThread() bool {
	tid := h.mainTID.Load()
	return tid > 0 && tid == currentThreadID()
}

func (h *Host) audioLoop(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(h.blockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.AudioBlock()
		}
	}
}

// AudioBlock plays one audio block: every audio hook is called once before
// and once after processing. RemoveAudioHook waits for a running block.
func (h *Host) AudioBlock() {
	h.audioMu.Lock()
	defer h.audioMu.Unlock()

	h.mu.Lock()
	hooks := make([]host.RawOnAudioBuffer, 0, len(h.audioHooks))
	for _, hk := range h.audioHooks {
		hooks = append(hooks, hk.raw)
	}
	h.mu.Unlock()

	for _, isPost := range []bool{false, true} {
		for _, raw := range hooks {
			raw(isPost, h.blockSize, h.sampleRate)
		}
	}
	h.blocks.Add(1)
}

// RunSurfaces plays one control surface poll.
func (h *Host) RunSurfaces() {
	h.mu.Lock()
	surfaces := make([]host.RawControlSurfaceRun, 0, len(h.surfaces))
	for _, run := range h.surfaces {
		surfaces = append(surfaces, run)
	}
	h.mu.Unlock()

	for _, run := range surfaces {
		run()
	}
}
