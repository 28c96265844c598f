package extension

import (
	"errors"
	"testing"

	"github.com/coreos/go-semver/semver"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/dshills/reabridge/internal/host"
)

func newManagerFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/ext/hello/extension.yaml":  "name: hello\nversion: 1.0.0\nkeys:\n  hello-world: Ctrl+H\n",
		"/ext/hello/init.lua":        helloScript,
		"/ext/solo.lua":              `reaper.register_action{name = "solo", handler = function() end}`,
		"/ext/broken/extension.yaml": "name: Broken\n",
		"/ext/newer/extension.yaml":  "name: newer\nmin_host_version: 99.0.0\n",
		"/ext/newer/init.lua":        "",
	})
	return fs
}

func TestManagerLoadAll(t *testing.T) {
	r, s := setupFacade(t)
	m := NewManager(NewLoader(WithFs(newManagerFs(t)), WithPaths("/ext")), r,
		WithHostVersion(semver.New("7.0.0")),
	)

	err := m.LoadAll()
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("errors = %d (%v), want 2", got, err)
	}
	if !errors.Is(err, ErrIncompatibleHost) || !errors.Is(err, ErrInvalidName) {
		t.Errorf("err = %v", err)
	}
	if !r.IsAwake() {
		t.Error("active extensions should wake the session")
	}

	for _, name := range []string{"hello-world", "solo"} {
		id, ok := s.CommandID(name)
		if !ok || !s.Dispatch(id) {
			t.Errorf("%s not dispatched", name)
		}
	}

	list := m.List()
	want := []struct{ name, state string }{
		{"broken", "error"},
		{"hello", "active"},
		{"newer", "error"},
		{"solo", "active"},
	}
	if len(list) != len(want) {
		t.Fatalf("List = %+v", list)
	}
	for i, w := range want {
		if list[i].Name != w.name || list[i].State != w.state {
			t.Errorf("List[%d] = %+v, want %s %s", i, list[i], w.name, w.state)
		}
	}
	if list[1].Version != "1.0.0" || len(list[1].Actions) != 1 {
		t.Errorf("hello status = %+v", list[1])
	}
	if len(m.Errors()) != 2 {
		t.Errorf("Errors = %v", m.Errors())
	}

	if err := m.LoadAll(); errCount(err) != 2 {
		t.Errorf("second LoadAll should only retry failures: %v", err)
	}

	if err := m.UnloadAll(); err != nil {
		t.Fatalf("UnloadAll: %v", err)
	}
	if r.IsAwake() {
		t.Error("session should sleep after UnloadAll")
	}
	if len(r.Actions()) != 0 {
		t.Errorf("actions left: %+v", r.Actions())
	}
}

func errCount(err error) int {
	return len(multierr.Errors(err))
}

func TestManagerKeys(t *testing.T) {
	r, s := setupFacade(t)
	fs := newManagerFs(t)

	m := NewManager(NewLoader(WithFs(fs), WithPaths("/ext")), r)
	if err := m.Load("hello"); err != nil {
		t.Fatal(err)
	}
	id, _ := s.CommandID("hello-world")
	if accel := findGaccel(s.Gaccels(), id); accel.Key != 'H' {
		t.Errorf("manifest key = %v", accel)
	}
	if err := m.Unload("hello"); err != nil {
		t.Fatal(err)
	}

	override, _ := host.ParseAccel("Alt+W")
	m = NewManager(NewLoader(WithFs(fs), WithPaths("/ext")), r, WithKeys(map[string]host.Accel{"hello-world": override}))
	if err := m.Load("hello"); err != nil {
		t.Fatal(err)
	}
	if accel := findGaccel(s.Gaccels(), id); accel.Key != 'W' {
		t.Errorf("override key = %v", accel)
	}
}

func findGaccel(regs []host.GaccelRegister, id host.CommandID) host.Accel {
	for _, g := range regs {
		if g.Accel.Cmd == uint16(id) {
			return g.Accel
		}
	}
	return host.Accel{}
}

func TestManagerLoadUnload(t *testing.T) {
	r, _ := setupFacade(t)
	m := NewManager(NewLoader(WithFs(newManagerFs(t)), WithPaths("/ext")), r)

	if err := m.Load("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(nope) = %v", err)
	}
	if err := m.Load("solo"); err != nil {
		t.Fatal(err)
	}
	if err := m.Load("solo"); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("second Load = %v", err)
	}
	if m.Get("solo") == nil {
		t.Error("Get(solo) = nil")
	}
	if err := m.Unload("solo"); err != nil {
		t.Fatal(err)
	}
	if err := m.Unload("solo"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("second Unload = %v", err)
	}
}

func TestManagerReload(t *testing.T) {
	r, s := setupFacade(t)
	fs := newManagerFs(t)
	m := NewManager(NewLoader(WithFs(fs), WithPaths("/ext")), r)

	if err := m.Load("solo"); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, fs, map[string]string{
		"/ext/solo.lua": `reaper.register_action{name = "solo-v2", handler = function() end}`,
	})
	if err := m.Reload("solo"); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	actions := m.Get("solo").Actions()
	if len(actions) != 1 || actions[0] != "solo-v2" {
		t.Errorf("actions = %v", actions)
	}
	if old, _ := s.CommandID("solo"); s.Dispatch(old) {
		t.Error("old action still handled after reload")
	}
	if !r.IsAwake() {
		t.Error("session should be awake after reload")
	}

	writeFiles(t, fs, map[string]string{"/ext/solo.lua": "error('x')"})
	if err := m.Reload("solo"); err == nil {
		t.Error("reload of a broken script should fail")
	}
	if m.Get("solo") != nil {
		t.Error("broken extension should not stay loaded")
	}
	if r.IsAwake() {
		t.Error("session should sleep once nothing is active")
	}
	if list := m.List(); len(list) != 1 || list[0].Error == "" {
		t.Errorf("List = %+v", list)
	}
}

func TestManagerOwner(t *testing.T) {
	r, _ := setupFacade(t)
	m := NewManager(NewLoader(WithFs(newManagerFs(t)), WithPaths("/ext")), r)
	if err := m.Load("hello"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/ext/hello/init.lua", "hello", true},
		{"/ext/hello/extension.yaml", "hello", true},
		{"/ext/solo.lua", "solo", true},
		{"/ext/broken/extension.yaml", "broken", true},
		{"/ext/unrelated.txt", "", false},
		{"/elsewhere/x.lua", "", false},
	}
	for _, tt := range tests {
		name, ok := m.Owner(tt.path)
		if name != tt.want || ok != tt.ok {
			t.Errorf("Owner(%s) = %q, %v; want %q, %v", tt.path, name, ok, tt.want, tt.ok)
		}
	}
}
