package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

const helloExtension = `
function activate()
	reaper.register_action{
		name = "hello-world",
		handler = function() print("hello from lua") end,
	}
end
`

const testConfig = `
[logging]
level = "error"

[extensions]
paths = ["/ext"]

[sim]
block_interval = "1ms"
run_interval = "2ms"
`

// executeCommand runs the root command over fs with args and returns
// captured output.
func executeCommand(t *testing.T, fs afero.Fs, environ []string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmdWith(&rootOptions{
		fs:      fs,
		environ: func() []string { return environ },
	})
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func newTestFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	if root.Use != "reabridge-sim" {
		t.Errorf("Use = %q", root.Use)
	}
	want := map[string]bool{"run": false, "check": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q missing", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag missing")
	}
}

func TestCheck(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/etc/reabridge.toml": testConfig,
		"/ext/hello/init.lua": helloExtension,
		"/ext/solo.lua":       "x = 1",
	})

	out, err := executeCommand(t, fs, nil, "check", "--config", "/etc/reabridge.toml")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	for _, want := range []string{"config: ok", "hello: ok", "solo: ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckReportsBrokenExtensions(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/etc/reabridge.toml":       testConfig,
		"/ext/hello/init.lua":       helloExtension,
		"/ext/syntax/init.lua":      "function (",
		"/ext/newer/extension.yaml": "name: newer\nmin_host_version: 99.0.0\n",
		"/ext/newer/init.lua":       "",
	})

	out, err := executeCommand(t, fs, nil, "check", "-c", "/etc/reabridge.toml")
	if !errors.Is(err, errCheckFailed) {
		t.Fatalf("check = %v, want errCheckFailed", err)
	}
	if !strings.Contains(err.Error(), "2 of 3") {
		t.Errorf("err = %v", err)
	}
	if !strings.Contains(out, "hello: ok") || !strings.Contains(out, "newer: ") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestCheckInvalidConfig(t *testing.T) {
	fs := newTestFs(t, map[string]string{"/etc/reabridge.toml": testConfig})

	_, err := executeCommand(t, fs, []string{"REABRIDGE_LOG_LEVEL=loud"}, "check", "-c", "/etc/reabridge.toml")
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("check = %v, want logging.level error", err)
	}
}

func TestRunInvokesExtensionAction(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/etc/reabridge.toml": testConfig,
		"/ext/hello/init.lua": helloExtension,
	})

	out, err := executeCommand(t, fs, nil,
		"run", "-c", "/etc/reabridge.toml", "--for", "200ms", "--invoke", "hello-world")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "hello from lua") {
		t.Errorf("console output missing handler message:\n%s", out)
	}
}

func TestRunUnknownAction(t *testing.T) {
	fs := newTestFs(t, map[string]string{"/etc/reabridge.toml": testConfig})

	_, err := executeCommand(t, fs, nil,
		"run", "-c", "/etc/reabridge.toml", "--for", "5s", "--invoke", "nope")
	if err == nil || !strings.Contains(err.Error(), "invoke nope") {
		t.Errorf("run = %v, want invoke error", err)
	}
}
