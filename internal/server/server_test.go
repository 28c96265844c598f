package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"github.com/dshills/reabridge/internal/extension"
	"github.com/dshills/reabridge/internal/host/simhost"
	"github.com/dshills/reabridge/internal/reaper"
)

const helloScript = `
function activate()
	reaper.register_action{
		name = "hello-world",
		handler = function() end,
	}
end
`

type fixture struct {
	host    *simhost.Host
	reaper  *reaper.Reaper
	manager *extension.Manager
	server  *Server
	guard   *reaper.Guard
	hits    int
	on      bool
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h := simhost.New(simhost.WithAudio(0, 0, time.Millisecond), simhost.WithRunInterval(2*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	f := &fixture{host: h}
	t.Cleanup(func() {
		_ = h.Call(context.Background(), func() {
			if f.manager != nil {
				_ = f.manager.UnloadAll()
			}
			f.guard.Release()
			_ = reaper.Teardown()
		})
		cancel()
		<-done
	})

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/ext/hello/init.lua", []byte(helloScript), 0o644); err != nil {
		t.Fatal(err)
	}

	err := h.Call(context.Background(), func() {
		if err := reaper.Load(h).Setup(); err != nil {
			t.Errorf("Setup: %v", err)
			return
		}
		f.reaper = reaper.Get()
		if _, err := f.reaper.RegisterAction("count", "Count", func() { f.hits++ }, reaper.NotToggleable); err != nil {
			t.Errorf("RegisterAction: %v", err)
		}
		if _, err := f.reaper.RegisterAction("flag", "Flag", func() { f.on = !f.on }, reaper.Toggleable(func() bool { return f.on })); err != nil {
			t.Errorf("RegisterAction: %v", err)
		}
		f.guard = reaper.Guarded(nil, nil)
		loader := extension.NewLoader(extension.WithFs(fs), extension.WithPaths("/ext"))
		f.manager = extension.NewManager(loader, f.reaper)
		if err := f.manager.LoadAll(); err != nil {
			t.Errorf("LoadAll: %v", err)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	f.server = New(h, f.reaper, WithExtensions(f.manager))
	return f
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status      string `json:"status"`
		HostVersion string `json:"host_version"`
		Awake       bool   `json:"awake"`
	}
	decode(t, rec, &body)
	if body.Status != "ok" || body.HostVersion != simhost.DefaultVersion || !body.Awake {
		t.Errorf("health = %+v", body)
	}
}

func TestListActions(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/actions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Actions []Action `json:"actions"`
	}
	decode(t, rec, &body)

	names := map[string]Action{}
	for _, a := range body.Actions {
		names[a.Name] = a
	}
	for _, want := range []string{"count", "flag", "hello-world"} {
		if _, ok := names[want]; !ok {
			t.Errorf("action %q missing from %+v", want, body.Actions)
		}
	}
	if !names["flag"].Toggleable || names["count"].Toggleable {
		t.Errorf("toggleable flags wrong: %+v", body.Actions)
	}
}

func TestInvokeAction(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		path string
		want int
	}{
		{"/actions/count/invoke", http.StatusOK},
		{"/actions/missing/invoke", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if rec := f.do(t, http.MethodPost, tt.path); rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	var hits int
	_ = f.host.Call(context.Background(), func() { hits = f.hits })
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

func TestInvokeUnhandledAction(t *testing.T) {
	f := newFixture(t)

	// The id stays allocated after the action is gone.
	err := f.host.Call(context.Background(), func() {
		a, err := f.reaper.RegisterAction("gone", "Gone", func() {}, reaper.NotToggleable)
		if err != nil {
			t.Errorf("RegisterAction: %v", err)
			return
		}
		if err := a.Unregister(); err != nil {
			t.Errorf("Unregister: %v", err)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec := f.do(t, http.MethodPost, "/actions/gone/invoke"); rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestToggleState(t *testing.T) {
	f := newFixture(t)

	state := func() string {
		rec := f.do(t, http.MethodGet, "/actions/flag/toggle")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var body struct {
			State string `json:"state"`
		}
		decode(t, rec, &body)
		return body.State
	}

	before := state()
	if rec := f.do(t, http.MethodPost, "/actions/flag/invoke"); rec.Code != http.StatusOK {
		t.Fatalf("invoke status = %d", rec.Code)
	}
	after := state()
	if before == after {
		t.Errorf("toggle state did not change: %q", before)
	}
	if rec := f.do(t, http.MethodGet, "/actions/missing/toggle"); rec.Code != http.StatusNotFound {
		t.Errorf("missing toggle status = %d", rec.Code)
	}
}

func TestExtensions(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/extensions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Extensions []extension.Status `json:"extensions"`
	}
	decode(t, rec, &body)
	if len(body.Extensions) != 1 || body.Extensions[0].Name != "hello" {
		t.Fatalf("extensions = %+v", body.Extensions)
	}
	if body.Extensions[0].State != extension.StateActive.String() {
		t.Errorf("state = %q", body.Extensions[0].State)
	}

	if rec := f.do(t, http.MethodPost, "/extensions/hello/reload"); rec.Code != http.StatusOK {
		t.Errorf("reload status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodPost, "/extensions/nope/reload"); rec.Code != http.StatusNotFound {
		t.Errorf("reload missing status = %d", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodGet, "/health")
	rec := f.do(t, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `reabridge_http_requests_total{method="GET",path="/health",status="200"}`) {
		t.Error("metrics missing http request counter")
	}
}

func TestMainThreadStopped(t *testing.T) {
	h := simhost.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	_ = h.Call(context.Background(), func() {})
	cancel()
	<-done

	s := New(h, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actions", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestStartShutdown(t *testing.T) {
	f := newFixture(t)

	addr, err := f.server.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.server.Start("127.0.0.1:0"); err != ErrServerRunning {
		t.Errorf("second Start = %v, want ErrServerRunning", err)
	}

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
