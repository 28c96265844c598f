package extension

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	elua "github.com/dshills/reabridge/internal/extension/lua"
	"github.com/dshills/reabridge/internal/host"
	"github.com/dshills/reabridge/internal/reaper"
)

// Extension is one loaded Lua extension.
type Extension struct {
	manifest *Manifest
	fs       afero.Fs
	facade   elua.Facade
	logger   *zap.Logger
	timeout  time.Duration
	keys     map[string]host.Accel

	state State
	err   error

	lstate *elua.State
	module *elua.Module
	guard  *reaper.Guard
}

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the extension's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extension) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithExecutionTimeout bounds each call into the extension's script.
func WithExecutionTimeout(d time.Duration) Option {
	return func(e *Extension) {
		e.timeout = d
	}
}

// WithKeyOverrides sets shortcuts that take precedence over the manifest's.
func WithKeyOverrides(keys map[string]host.Accel) Option {
	return func(e *Extension) {
		for name, accel := range keys {
			e.keys[name] = accel
		}
	}
}

// New creates an unloaded extension.
func New(manifest *Manifest, fsys afero.Fs, facade elua.Facade, opts ...Option) (*Extension, error) {
	keys, err := manifest.KeyBindings()
	if err != nil {
		return nil, err
	}
	e := &Extension{
		manifest: manifest,
		fs:       fsys,
		facade:   facade,
		logger:   zap.NewNop(),
		timeout:  elua.DefaultExecutionTimeout,
		keys:     keys,
		state:    StateUnloaded,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("extension", manifest.Name))
	return e, nil
}

// Name returns the extension name.
func (e *Extension) Name() string {
	return e.manifest.Name
}

// Manifest returns the extension manifest.
func (e *Extension) Manifest() *Manifest {
	return e.manifest
}

// State returns the lifecycle state.
func (e *Extension) State() State {
	return e.state
}

// Err returns the error that put the extension in StateError.
func (e *Extension) Err() error {
	return e.err
}

// Actions returns the names of the actions the extension registered.
func (e *Extension) Actions() []string {
	if e.module == nil {
		return nil
	}
	return e.module.Actions()
}

// Load creates the Lua state and runs the main script.
func (e *Extension) Load() error {
	if e.state != StateUnloaded && e.state != StateError {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, e.Name())
	}
	e.closeState()

	src, err := afero.ReadFile(e.fs, e.manifest.MainPath())
	if err != nil {
		return e.fail(fmt.Errorf("read %s: %w", e.manifest.MainPath(), err))
	}

	e.lstate = elua.NewState(elua.WithExecutionTimeout(e.timeout))
	e.module = elua.NewModule(e.lstate, e.facade,
		elua.WithLogger(e.logger),
		elua.WithDefaultKeys(e.keys),
	)
	if err := e.lstate.DoSource(string(src), e.manifest.MainPath()); err != nil {
		err = multierr.Append(fmt.Errorf("run %s: %w", e.manifest.Main, err), e.module.UnregisterAll())
		e.closeState()
		return e.fail(err)
	}

	e.state = StateLoaded
	e.err = nil
	e.logger.Debug("extension loaded", zap.Strings("actions", e.module.Actions()))
	return nil
}

// Activate wakes the façade through a guard and calls the script's
// activate function if it has one.
func (e *Extension) Activate() error {
	if e.state == StateActive {
		return nil
	}
	if e.state != StateLoaded {
		return fmt.Errorf("%w: %s", ErrNotLoaded, e.Name())
	}

	e.state = StateActivating
	e.guard = reaper.Guarded(nil, nil)
	if e.lstate.HasFunction("activate") {
		if _, err := e.lstate.Call("activate"); err != nil {
			err = multierr.Append(fmt.Errorf("activate: %w", err), e.module.UnregisterAll())
			e.releaseGuard()
			return e.fail(err)
		}
	}

	e.state = StateActive
	e.logger.Info("extension activated", zap.String("version", e.manifest.Version))
	return nil
}

// Deactivate calls the script's deactivate function, unregisters its
// actions and releases its guard. Errors from deactivate are logged.
func (e *Extension) Deactivate() error {
	if e.state != StateActive {
		return nil
	}

	e.state = StateDeactivating
	if e.lstate.HasFunction("deactivate") {
		if _, err := e.lstate.Call("deactivate"); err != nil {
			e.logger.Warn("deactivate failed", zap.Error(err))
		}
	}
	err := e.module.UnregisterAll()
	e.releaseGuard()

	e.state = StateLoaded
	e.logger.Info("extension deactivated")
	return err
}

// Unload deactivates the extension if needed and closes its Lua state.
func (e *Extension) Unload() error {
	if e.state == StateUnloaded {
		return nil
	}

	err := e.Deactivate()
	if e.module != nil {
		err = multierr.Append(err, e.module.UnregisterAll())
	}
	e.closeState()
	e.state = StateUnloaded
	e.err = nil
	return err
}

func (e *Extension) releaseGuard() {
	if e.guard != nil {
		e.guard.Release()
		e.guard = nil
	}
}

func (e *Extension) closeState() {
	if e.lstate != nil {
		e.lstate.Close()
		e.lstate = nil
	}
	e.module = nil
}

func (e *Extension) fail(err error) error {
	e.state = StateError
	e.err = err
	e.logger.Error("extension failed", zap.Error(err))
	return err
}
