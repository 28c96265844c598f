package extension

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func writeOS(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitName(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case name := <-ch:
		return name
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
		return ""
	}
}

func TestWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	writeOS(t, filepath.Join(dir, "hello", "init.lua"), "")

	changes := make(chan string, 10)
	owner := func(path string) (string, bool) {
		if within(filepath.Join(dir, "hello"), path) {
			return "hello", true
		}
		return "", false
	}
	w, err := NewWatcher([]string{dir, filepath.Join(dir, "missing")}, owner,
		func(name string) { changes <- name }, WithDebounce(100*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 5; i++ {
		writeOS(t, filepath.Join(dir, "hello", "init.lua"), "-- edit")
	}
	if name := waitName(t, changes); name != "hello" {
		t.Errorf("changed = %q, want hello", name)
	}

	select {
	case name := <-changes:
		t.Errorf("burst produced a second change for %q", name)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcherIgnoresUnownedFiles(t *testing.T) {
	dir := t.TempDir()

	changes := make(chan string, 10)
	w, err := NewWatcher([]string{dir}, func(path string) (string, bool) {
		return "", false
	}, func(name string) { changes <- name }, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	writeOS(t, filepath.Join(dir, "notes.txt"), "x")
	select {
	case name := <-changes:
		t.Errorf("unexpected change for %q", name)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherIgnoresOtherFileTypes(t *testing.T) {
	dir := t.TempDir()
	writeOS(t, filepath.Join(dir, "hello", "init.lua"), "")

	changes := make(chan string, 10)
	w, err := NewWatcher([]string{dir}, func(path string) (string, bool) {
		return "hello", true
	}, func(name string) { changes <- name }, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	writeOS(t, filepath.Join(dir, "hello", "README.md"), "x")
	select {
	case name := <-changes:
		t.Errorf("unexpected change for %q", name)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRelevant(t *testing.T) {
	tests := map[string]bool{
		"/ext/hello/init.lua":       true,
		"/ext/hello/extension.yaml": true,
		"/ext/hello/keys.YML":       true,
		"/ext/hello":                true,
		"/ext/hello/README.md":      false,
		"/ext/hello/init.lua.swp":   false,
	}
	for path, want := range tests {
		if got := relevant(path); got != want {
			t.Errorf("relevant(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWatcherClose(t *testing.T) {
	w, err := NewWatcher(nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if err := w.Start(); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Start after Close = %v", err)
	}
}

func TestManagerWatchReloads(t *testing.T) {
	r, _ := setupFacade(t)
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "solo.lua")
	writeOS(t, mainPath, `reaper.register_action{name = "solo", handler = function() end}`)

	m := NewManager(NewLoader(WithFs(afero.NewOsFs()), WithPaths(dir)), r)
	if err := m.Load("solo"); err != nil {
		t.Fatal(err)
	}

	tasks := make(chan func(), 10)
	w, err := m.Watch(func(task func()) error {
		tasks <- task
		return nil
	}, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	writeOS(t, mainPath, `reaper.register_action{name = "solo-edited", handler = function() end}`)

	select {
	case task := <-tasks:
		task()
	case <-time.After(5 * time.Second):
		t.Fatal("reload was not scheduled")
	}
	if got := m.Get("solo").Actions(); len(got) != 1 || got[0] != "solo-edited" {
		t.Errorf("actions after reload = %v", got)
	}
}
