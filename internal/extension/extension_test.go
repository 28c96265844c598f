package extension

import (
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/dshills/reabridge/internal/host/hosttest"
	"github.com/dshills/reabridge/internal/reaper"
)

const helloScript = `
count = 0
function activate()
	reaper.register_action{
		name = "hello-world",
		description = "Say hello",
		handler = function() count = count + 1 end,
	}
end
function deactivate()
	reaper.show_console_msg("bye")
end
`

func setupFacade(t *testing.T) (*reaper.Reaper, *hosttest.Session) {
	t.Helper()
	s := hosttest.New()
	if err := reaper.Load(s).Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = reaper.Teardown() })
	return reaper.Get(), s
}

func newHello(t *testing.T, r *reaper.Reaper, script string) *Extension {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/ext/hello/init.lua": script})
	ext, err := New(NewManifestMinimal("hello", "/ext/hello"), fs, r)
	if err != nil {
		t.Fatal(err)
	}
	return ext
}

func TestExtensionLifecycle(t *testing.T) {
	r, s := setupFacade(t)
	ext := newHello(t, r, helloScript)

	if ext.State() != StateUnloaded {
		t.Fatalf("state = %v", ext.State())
	}
	if err := ext.Activate(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Activate before Load = %v, want ErrNotLoaded", err)
	}

	if err := ext.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := ext.Load(); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("second Load = %v, want ErrAlreadyLoaded", err)
	}
	if r.IsAwake() {
		t.Error("loading should not wake the session")
	}

	if err := ext.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if ext.State() != StateActive || !r.IsAwake() {
		t.Fatalf("state = %v awake = %v", ext.State(), r.IsAwake())
	}
	if err := ext.Activate(); err != nil {
		t.Errorf("Activate when active = %v", err)
	}

	id, ok := s.CommandID("hello-world")
	if !ok || !s.Dispatch(id) {
		t.Fatal("hello-world not dispatched")
	}
	if got := ext.Actions(); len(got) != 1 || got[0] != "hello-world" {
		t.Errorf("Actions = %v", got)
	}

	if err := ext.Deactivate(); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if ext.State() != StateLoaded || r.IsAwake() {
		t.Errorf("state = %v awake = %v", ext.State(), r.IsAwake())
	}
	if len(r.Actions()) != 0 {
		t.Errorf("actions left: %+v", r.Actions())
	}
	if console := s.Console(); len(console) != 1 || console[0] != "bye" {
		t.Errorf("console = %v", console)
	}

	if err := ext.Unload(); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if ext.State() != StateUnloaded {
		t.Errorf("state = %v", ext.State())
	}
}

func TestExtensionLoadErrors(t *testing.T) {
	r, _ := setupFacade(t)

	ext := newHello(t, r, "this is not lua")
	if err := ext.Load(); err == nil {
		t.Fatal("expected error")
	}
	if ext.State() != StateError || ext.Err() == nil {
		t.Errorf("state = %v err = %v", ext.State(), ext.Err())
	}

	missing, err := New(NewManifestMinimal("gone", "/nowhere"), afero.NewMemMapFs(), r)
	if err != nil {
		t.Fatal(err)
	}
	if err := missing.Load(); err == nil || missing.State() != StateError {
		t.Errorf("Load = %v state = %v", err, missing.State())
	}
}

func TestExtensionLoadErrorUnregistersTopLevelActions(t *testing.T) {
	r, _ := setupFacade(t)

	ext := newHello(t, r, `
		reaper.register_action{name = "early", handler = function() end}
		error("broken after registering")
	`)
	if err := ext.Load(); err == nil {
		t.Fatal("expected error")
	}
	if len(r.Actions()) != 0 {
		t.Errorf("actions left: %+v", r.Actions())
	}
}

func TestExtensionActivateFailure(t *testing.T) {
	r, _ := setupFacade(t)

	ext := newHello(t, r, `
		function activate()
			reaper.register_action{name = "half", handler = function() end}
			error("nope")
		end
	`)
	if err := ext.Load(); err != nil {
		t.Fatal(err)
	}
	if err := ext.Activate(); err == nil {
		t.Fatal("expected error")
	}
	if ext.State() != StateError {
		t.Errorf("state = %v", ext.State())
	}
	if r.IsAwake() {
		t.Error("failed activation should release its guard")
	}
	if len(r.Actions()) != 0 {
		t.Errorf("actions left: %+v", r.Actions())
	}
}

func TestExtensionsShareSession(t *testing.T) {
	r, _ := setupFacade(t)

	a := newHello(t, r, helloScript)
	b := newHello(t, r, "")
	for _, ext := range []*Extension{a, b} {
		if err := ext.Load(); err != nil {
			t.Fatal(err)
		}
		if err := ext.Activate(); err != nil {
			t.Fatal(err)
		}
	}

	if err := a.Deactivate(); err != nil {
		t.Fatal(err)
	}
	if !r.IsAwake() {
		t.Error("session should stay awake while another extension is active")
	}
	if err := b.Unload(); err != nil {
		t.Fatal(err)
	}
	if r.IsAwake() {
		t.Error("session should sleep after the last extension is deactivated")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateUnloaded:     "unloaded",
		StateLoaded:       "loaded",
		StateActivating:   "activating",
		StateActive:       "active",
		StateDeactivating: "deactivating",
		StateError:        "error",
		State(99):         "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
	if !StateLoaded.IsUsable() || StateError.IsUsable() {
		t.Error("IsUsable mismatch")
	}
}
