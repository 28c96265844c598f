package extension

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a watcher waits for changes to settle.
const DefaultDebounce = 200 * time.Millisecond

// ErrWatcherClosed is returned when starting a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// Watcher reports which extension changed when files under the search
// paths are written, created, removed or renamed. Changes to one extension
// within the debounce delay are coalesced.
type Watcher struct {
	fsw      *fsnotify.Watcher
	paths    []string
	owner    func(path string) (string, bool)
	onChange func(name string)
	delay    time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher watches paths and their immediate subdirectories. owner maps a
// changed file to an extension name; onChange is called from a timer
// goroutine once per settled change.
func NewWatcher(paths []string, owner func(string) (string, bool), onChange func(string), opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		paths:    paths,
		owner:    owner,
		onChange: onChange,
		delay:    DefaultDebounce,
		logger:   zap.NewNop(),
		pending:  make(map[string]*time.Timer),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start adds the watches and starts processing events.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	for _, base := range w.paths {
		if err := w.addTree(base); err != nil {
			return err
		}
	}

	w.wg.Add(1)
	go w.processLoop()
	return nil
}

// addTree watches base and the directories directly inside it. Missing
// paths are skipped.
func (w *Watcher) addTree(base string) error {
	entries, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := w.fsw.Add(base); err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := w.fsw.Add(filepath.Join(base, entry.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("extension watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	if event.Has(fsnotify.Create) {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				w.logger.Warn("watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
		}
	}

	if !relevant(event.Name) {
		return
	}
	name, ok := w.owner(event.Name)
	if !ok {
		return
	}
	w.debounce(name)
}

// relevant reports whether a change to path can affect an extension:
// scripts, manifests, or a directory appearing or going away.
func relevant(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua", ".yaml", ".yml", "":
		return true
	}
	return false
}

func (w *Watcher) debounce(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if t, ok := w.pending[name]; ok {
		t.Reset(w.delay)
		return
	}
	w.pending[name] = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		delete(w.pending, name)
		closed := w.closed
		w.mu.Unlock()

		if !closed {
			w.logger.Debug("extension changed", zap.String("extension", name))
			w.onChange(name)
		}
	})
}

// Close stops the watcher. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}

// Watch creates a watcher that reloads changed extensions. schedule must run
// the reload on the main thread, typically reaper.Reaper.DoInMainThreadAsap.
func (m *Manager) Watch(schedule func(task func()) error, opts ...WatcherOption) (*Watcher, error) {
	opts = append([]WatcherOption{WithWatcherLogger(m.logger)}, opts...)
	return NewWatcher(m.loader.Paths(), m.Owner, func(name string) {
		err := schedule(func() {
			_ = m.Reload(name)
		})
		if err != nil {
			m.logger.Warn("extension reload not scheduled", zap.String("extension", name), zap.Error(err))
		}
	}, opts...)
}
