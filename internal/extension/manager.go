package extension

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/coreos/go-semver/semver"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	elua "github.com/dshills/reabridge/internal/extension/lua"
	"github.com/dshills/reabridge/internal/host"
)

// Manager manages the lifecycle of all extensions.
//
// Owner and Errors may be called from any goroutine. Everything else must
// run on the main thread.
type Manager struct {
	mu sync.RWMutex

	loader *Loader
	facade elua.Facade
	logger *zap.Logger

	hostVersion *semver.Version
	timeout     time.Duration
	keys        map[string]host.Accel

	extensions map[string]*Extension
	errors     map[string]error
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager's logger.
func WithManagerLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithHostVersion sets the version compared against min_host_version.
func WithHostVersion(v *semver.Version) ManagerOption {
	return func(m *Manager) {
		m.hostVersion = v
	}
}

// WithTimeout bounds each call into an extension's script.
func WithTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = d
	}
}

// WithKeys sets shortcuts that override those in manifests.
func WithKeys(keys map[string]host.Accel) ManagerOption {
	return func(m *Manager) {
		m.keys = keys
	}
}

// NewManager creates a manager discovering extensions with loader.
func NewManager(loader *Loader, facade elua.Facade, opts ...ManagerOption) *Manager {
	m := &Manager{
		loader:     loader,
		facade:     facade,
		logger:     zap.NewNop(),
		timeout:    elua.DefaultExecutionTimeout,
		extensions: make(map[string]*Extension),
		errors:     make(map[string]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Loader returns the manager's loader.
func (m *Manager) Loader() *Loader {
	return m.loader
}

// LoadAll discovers, loads and activates every extension. A failing
// extension does not stop the others; all failures are returned together.
func (m *Manager) LoadAll() error {
	infos, err := m.loader.Discover()
	if err != nil {
		return err
	}

	var errs error
	for _, info := range infos {
		if m.Get(info.Name) != nil {
			continue
		}
		errs = multierr.Append(errs, m.start(info))
	}
	return errs
}

// Load discovers, loads and activates the extension called name.
func (m *Manager) Load(name string) error {
	if m.Get(name) != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, name)
	}
	info, err := m.loader.Find(name)
	if err != nil {
		return err
	}
	return m.start(info)
}

func (m *Manager) start(info *Info) error {
	err := m.startInfo(info)
	m.mu.Lock()
	if err != nil {
		m.errors[info.Name] = err
	} else {
		delete(m.errors, info.Name)
	}
	m.mu.Unlock()
	if err != nil {
		m.logger.Warn("extension not started", zap.String("extension", info.Name), zap.Error(err))
	}
	return err
}

func (m *Manager) startInfo(info *Info) error {
	if info.Err != nil {
		return fmt.Errorf("%s: %w", info.Name, info.Err)
	}
	if !info.Manifest.CompatibleWith(m.hostVersion) {
		return fmt.Errorf("%s: %w: needs %s, host is %s", info.Name, ErrIncompatibleHost, info.Manifest.MinHostVersion, m.hostVersion)
	}

	ext, err := New(info.Manifest, m.loader.Fs(), m.facade,
		WithLogger(m.logger),
		WithExecutionTimeout(m.timeout),
		WithKeyOverrides(m.keys),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", info.Name, err)
	}
	if err := ext.Load(); err != nil {
		return fmt.Errorf("%s: %w", info.Name, err)
	}
	if err := ext.Activate(); err != nil {
		_ = ext.Unload()
		return fmt.Errorf("%s: %w", info.Name, err)
	}

	m.mu.Lock()
	m.extensions[info.Name] = ext
	m.mu.Unlock()
	return nil
}

// Unload deactivates and unloads the extension called name.
func (m *Manager) Unload(name string) error {
	m.mu.Lock()
	ext, ok := m.extensions[name]
	delete(m.extensions, name)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	return ext.Unload()
}

// UnloadAll unloads every extension in reverse name order.
func (m *Manager) UnloadAll() error {
	names := m.names()
	var errs error
	for i := len(names) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, m.Unload(names[i]))
	}
	return errs
}

// Reload unloads the extension called name if it is loaded, then
// rediscovers, loads and activates it.
func (m *Manager) Reload(name string) error {
	var errs error
	if m.Get(name) != nil {
		errs = m.Unload(name)
	}
	err := m.Load(name)
	if err == nil {
		m.logger.Info("extension reloaded", zap.String("extension", name))
	}
	return multierr.Append(errs, err)
}

// Get returns the loaded extension called name, or nil.
func (m *Manager) Get(name string) *Extension {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.extensions[name]
}

// Owner returns the name of the extension a file belongs to, looking at
// loaded extensions first and then at what is on disk.
func (m *Manager) Owner(path string) (string, bool) {
	path = filepath.Clean(path)

	m.mu.RLock()
	for name, ext := range m.extensions {
		if ext.manifest.owns(path) {
			m.mu.RUnlock()
			return name, true
		}
	}
	m.mu.RUnlock()

	infos, err := m.loader.Discover()
	if err != nil {
		return "", false
	}
	for _, info := range infos {
		if info.Manifest != nil && info.Manifest.owns(path) {
			return info.Name, true
		}
		if info.Manifest == nil && within(info.Path, path) {
			return info.Name, true
		}
	}
	return "", false
}

// Status describes an extension for reporting.
type Status struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	State   string   `json:"state"`
	Actions []string `json:"actions,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// List returns the status of every loaded or failed extension, sorted by name.
func (m *Manager) List() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Status, 0, len(m.extensions)+len(m.errors))
	for name, ext := range m.extensions {
		out = append(out, Status{
			Name:    name,
			Version: ext.manifest.Version,
			State:   ext.State().String(),
			Actions: ext.Actions(),
		})
	}
	for name, err := range m.errors {
		if _, loaded := m.extensions[name]; loaded {
			continue
		}
		out = append(out, Status{Name: name, State: StateError.String(), Error: err.Error()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Errors returns the last start error of each failed extension.
func (m *Manager) Errors() map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]error, len(m.errors))
	for name, err := range m.errors {
		out[name] = err
	}
	return out
}

func (m *Manager) names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.extensions))
	for name := range m.extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
