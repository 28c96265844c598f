// Package hosttest provides a recording host.Session for tests.
package hosttest

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dshills/reabridge/internal/host"
)

// FirstCommandID is the id handed out for the first command name.
const FirstCommandID host.CommandID = 40000

// Session is an in-memory host.Session.
//
// It records every call, can be told to fail specific methods and lets tests
// play the host's role by invoking the registered callbacks directly.
type Session struct {
	notMain atomic.Bool

	mu sync.Mutex

	ids    map[string]host.CommandID
	nextID host.CommandID

	hookCommands []host.HookCommand
	toggles      []host.ToggleAction
	postCommands []host.HookPostCommand2

	nextHandle uint64
	gaccels    map[host.GaccelHandle]host.GaccelRegister
	audioHooks map[host.AudioHookHandle]host.OnAudioBuffer
	surfaces   map[host.SurfaceHandle]host.ControlSurface
	accels     map[host.AcceleratorHandle]host.TranslateAccel

	failures map[string]error
	calls    []string

	undoBegins []host.Project
	undoEnds   []string
	console    []string
}

// New creates an empty session whose caller is on the main thread.
func New() *Session {
	return &Session{
		ids:        make(map[string]host.CommandID),
		nextID:     FirstCommandID,
		gaccels:    make(map[host.GaccelHandle]host.GaccelRegister),
		audioHooks: make(map[host.AudioHookHandle]host.OnAudioBuffer),
		surfaces:   make(map[host.SurfaceHandle]host.ControlSurface),
		accels:     make(map[host.AcceleratorHandle]host.TranslateAccel),
		failures:   make(map[string]error),
	}
}

var _ host.Session = (*Session)(nil)

// SetMainThread controls what IsInMainThread reports.
func (s *Session) SetMainThread(main bool) {
	s.notMain.Store(!main)
}

// FailOn makes the named method return err until ClearFailures is called.
// Use the method name, e.g. "AddAudioHook".
func (s *Session) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = fmt.Errorf("%s: %w", method, host.ErrRegistrationFailed)
	}
	s.failures[method] = err
}

// ClearFailures removes all injected failures.
func (s *Session) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]error)
}

// Calls returns the method names called so far, in order.
func (s *Session) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// record must be called with mu held.
func (s *Session) record(method string) error {
	s.calls = append(s.calls, method)
	return s.failures[method]
}

func (s *Session) handle() uint64 {
	s.nextHandle++
	return s.nextHandle
}

// IsInMainThread implements host.ThreadChecker.
func (s *Session) IsInMainThread() bool {
	return !s.notMain.Load()
}

// AddCommandID implements host.CommandRegistrar.
func (s *Session) AddCommandID(name string) (host.CommandID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("AddCommandID"); err != nil {
		return 0, err
	}
	if id, ok := s.ids[name]; ok {
		return id, nil
	}
	id := s.nextID
	s.nextID++
	s.ids[name] = id
	return id, nil
}

// CommandID returns the id allocated for name.
func (s *Session) CommandID(name string) (host.CommandID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[name]
	return id, ok
}

// AddHookCommand implements host.HookRegistrar.
func (s *Session) AddHookCommand(cb host.HookCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("AddHookCommand"); err != nil {
		return err
	}
	s.hookCommands = append(s.hookCommands, cb)
	return nil
}

// RemoveHookCommand implements host.HookRegistrar.
func (s *Session) RemoveHookCommand(cb host.HookCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("RemoveHookCommand"); err != nil {
		return err
	}
	for i, h := range s.hookCommands {
		if h == cb {
			s.hookCommands = append(s.hookCommands[:i], s.hookCommands[i+1:]...)
			return nil
		}
	}
	return host.ErrNotRegistered
}

// AddToggleAction implements host.HookRegistrar.
func (s *Session) AddToggleAction(cb host.ToggleAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("AddToggleAction"); err != nil {
		return err
	}
	s.toggles = append(s.toggles, cb)
	return nil
}

// RemoveToggleAction implements host.HookRegistrar.
func (s *Session) RemoveToggleAction(cb host.ToggleAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("RemoveToggleAction"); err != nil {
		return err
	}
	for i, h := range s.toggles {
		if h == cb {
			s.toggles = append(s.toggles[:i], s.toggles[i+1:]...)
			return nil
		}
	}
	return host.ErrNotRegistered
}

// AddHookPostCommand2 implements host.HookRegistrar.
func (s *Session) AddHookPostCommand2(cb host.HookPostCommand2) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("AddHookPostCommand2"); err != nil {
		return err
	}
	s.postCommands = append(s.postCommands, cb)
	return nil
}

// RemoveHookPostCommand2 implements host.HookRegistrar.
func (s *Session) RemoveHookPostCommand2(cb host.HookPostCommand2) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("RemoveHookPostCommand2"); err != nil {
		return err
	}
	for i, h := range s.postCommands {
		if h == cb {
			s.postCommands = append(s.postCommands[:i], s.postCommands[i+1:]...)
			return nil
		}
	}
	return host.ErrNotRegistered
}

// AddGaccel implements host.HookRegistrar.
func (s *Session) AddGaccel(reg host.GaccelRegister) (host.GaccelHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("AddGaccel"); err != nil {
		return 0, err
	}
	h := host.GaccelHandle(s.handle())
	s.gaccels[h] = reg
	return h, nil
}

// RemoveGaccel implements host.HookRegistrar.
func (s *Session) RemoveGaccel(handle host.GaccelHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("RemoveGaccel"); err != nil {
		return err
	}
	if _, ok := s.gaccels[handle]; !ok {
		return host.ErrNotRegistered
	}
	delete(s.gaccels, handle)
	return nil
}

// AddAudioHook implements host.HookRegistrar.
func (s *Session) AddAudioHook(cb host.OnAudioBuffer) (host.AudioHookHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("AddAudioHook"); err != nil {
		return 0, err
	}
	h := host.AudioHookHandle(s.handle())
	s.audioHooks[h] = cb
	return h, nil
}

// RemoveAudioHook implements host.HookRegistrar.
func (s *Session) RemoveAudioHook(handle host.AudioHookHandle) (host.OnAudioBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("RemoveAudioHook"); err != nil {
		return nil, err
	}
	cb, ok := s.audioHooks[handle]
	if !ok {
		return nil, host.ErrNotRegistered
	}
	delete(s.audioHooks, handle)
	return cb, nil
}

// AddControlSurface implements host.HookRegistrar.
func (s *Session) AddControlSurface(cs host.ControlSurface) (host.SurfaceHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("AddControlSurface"); err != nil {
		return 0, err
	}
	h := host.SurfaceHandle(s.handle())
	s.surfaces[h] = cs
	return h, nil
}

// RemoveControlSurface implements host.HookRegistrar.
func (s *Session) RemoveControlSurface(handle host.SurfaceHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("RemoveControlSurface"); err != nil {
		return err
	}
	if _, ok := s.surfaces[handle]; !ok {
		return host.ErrNotRegistered
	}
	delete(s.surfaces, handle)
	return nil
}

// AddAcceleratorRegister implements host.HookRegistrar.
func (s *Session) AddAcceleratorRegister(cb host.TranslateAccel) (host.AcceleratorHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("AddAcceleratorRegister"); err != nil {
		return 0, err
	}
	h := host.AcceleratorHandle(s.handle())
	s.accels[h] = cb
	return h, nil
}

// RemoveAcceleratorRegister implements host.HookRegistrar.
func (s *Session) RemoveAcceleratorRegister(handle host.AcceleratorHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("RemoveAcceleratorRegister"); err != nil {
		return err
	}
	if _, ok := s.accels[handle]; !ok {
		return host.ErrNotRegistered
	}
	delete(s.accels, handle)
	return nil
}

// UndoBeginBlock implements host.UndoAPI.
func (s *Session) UndoBeginBlock(project host.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.record("UndoBeginBlock")
	s.undoBegins = append(s.undoBegins, project)
}

// UndoEndBlock implements host.UndoAPI.
func (s *Session) UndoEndBlock(project host.Project, description string, scope host.UndoScope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.record("UndoEndBlock")
	s.undoEnds = append(s.undoEnds, description)
}

// ShowConsoleMsg implements host.Console.
func (s *Session) ShowConsoleMsg(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.record("ShowConsoleMsg")
	s.console = append(s.console, msg)
}

// UndoBlocks returns the number of begin and end calls and the end labels.
func (s *Session) UndoBlocks() (begins, ends int, labels []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	labels = make([]string, len(s.undoEnds))
	copy(labels, s.undoEnds)
	return len(s.undoBegins), len(s.undoEnds), labels
}

// Console returns everything written to the console.
func (s *Session) Console() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.console))
	copy(out, s.console)
	return out
}

// Counts summarizes the live registrations.
type Counts struct {
	HookCommands int
	Toggles      int
	PostCommands int
	Gaccels      int
	AudioHooks   int
	Surfaces     int
	Accels       int
}

// Registrations returns how many callbacks of each kind are registered.
func (s *Session) Registrations() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		HookCommands: len(s.hookCommands),
		Toggles:      len(s.toggles),
		PostCommands: len(s.postCommands),
		Gaccels:      len(s.gaccels),
		AudioHooks:   len(s.audioHooks),
		Surfaces:     len(s.surfaces),
		Accels:       len(s.accels),
	}
}

// Gaccels returns the registered accelerator entries sorted by command.
func (s *Session) Gaccels() []host.GaccelRegister {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]host.GaccelRegister, 0, len(s.gaccels))
	for _, g := range s.gaccels {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Accel.Cmd < out[j].Accel.Cmd })
	return out
}

// Dispatch plays the host invoking a command. It returns true if a hook handled it.
func (s *Session) Dispatch(id host.CommandID) bool {
	s.mu.Lock()
	hooks := append([]host.HookCommand(nil), s.hookCommands...)
	s.mu.Unlock()
	for _, h := range hooks {
		if host.DelegateHookCommand(h)(int32(id), 0) == 1 {
			return true
		}
	}
	return false
}

// ToggleState plays the host querying a command's toggle state.
func (s *Session) ToggleState(id host.CommandID) host.ToggleActionResult {
	s.mu.Lock()
	toggles := append([]host.ToggleAction(nil), s.toggles...)
	s.mu.Unlock()
	for _, t := range toggles {
		if r := t.ToggleAction(id); r != host.NotRelevant {
			return r
		}
	}
	return host.NotRelevant
}

// PostCommand plays the host reporting a finished command with its value.
func (s *Session) PostCommand(section host.SectionContext, id host.CommandID, change host.ActionValueChange) {
	s.mu.Lock()
	hooks := append([]host.HookPostCommand2(nil), s.postCommands...)
	s.mu.Unlock()
	val, valhw, relmode := change.Encode()
	for _, h := range hooks {
		host.DelegateHookPostCommand2(h)(section.UniqueID(), int32(id), val, valhw, relmode, 0, 0)
	}
}

// AudioBlock plays one audio callback on every registered audio hook.
func (s *Session) AudioBlock(isPost bool) {
	s.mu.Lock()
	hooks := make([]host.OnAudioBuffer, 0, len(s.audioHooks))
	for _, h := range s.audioHooks {
		hooks = append(hooks, h)
	}
	s.mu.Unlock()
	for _, h := range hooks {
		host.DelegateOnAudioBuffer(h)(isPost, 512, 48000)
	}
}

// RunSurfaces plays one control surface poll.
func (s *Session) RunSurfaces() {
	s.mu.Lock()
	surfaces := make([]host.ControlSurface, 0, len(s.surfaces))
	for _, cs := range s.surfaces {
		surfaces = append(surfaces, cs)
	}
	s.mu.Unlock()
	for _, cs := range surfaces {
		host.DelegateControlSurface(cs)()
	}
}
