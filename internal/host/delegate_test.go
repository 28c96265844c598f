package host

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })
	return logs
}

func TestDelegateHookCommand(t *testing.T) {
	var gotID CommandID
	var gotFlag int32
	raw := DelegateHookCommand(HookCommandFunc(func(id CommandID, flag int32) bool {
		gotID, gotFlag = id, flag
		return id == 42
	}))

	if raw(42, 3) != 1 {
		t.Error("handled command should return 1")
	}
	if gotID != 42 || gotFlag != 3 {
		t.Errorf("callback got id=%d flag=%d", gotID, gotFlag)
	}
	if raw(7, 0) != 0 {
		t.Error("unhandled command should return 0")
	}
}

func TestDelegateHookCommandPanic(t *testing.T) {
	logs := observeLogs(t)
	raw := DelegateHookCommand(HookCommandFunc(func(CommandID, int32) bool {
		panic("boom")
	}))

	if raw(1, 0) != 0 {
		t.Error("panicking callback should report not handled")
	}
	entries := logs.FilterMessage("callback panicked").All()
	if len(entries) != 1 {
		t.Fatalf("got %d panic logs, want 1", len(entries))
	}
	if entries[0].ContextMap()["callback"] != "hook_command" {
		t.Errorf("callback field = %v", entries[0].ContextMap()["callback"])
	}
}

func TestDelegateToggleAction(t *testing.T) {
	raw := DelegateToggleAction(ToggleActionFunc(func(id CommandID) ToggleActionResult {
		switch id {
		case 1:
			return On
		case 2:
			return Off
		default:
			return NotRelevant
		}
	}))

	if raw(1) != 1 || raw(2) != 0 || raw(3) != -1 {
		t.Errorf("raw toggles = %d %d %d", raw(1), raw(2), raw(3))
	}

	panicky := DelegateToggleAction(ToggleActionFunc(func(CommandID) ToggleActionResult {
		panic("boom")
	}))
	observeLogs(t)
	if panicky(1) != -1 {
		t.Error("panicking toggle should report not relevant")
	}
}

type recordingPostCommand struct {
	calls   int
	section SectionContext
	id      CommandID
	change  ActionValueChange
	window  WindowContext
	project Project
}

func (r *recordingPostCommand) HookPostCommand2(section SectionContext, id CommandID, change ActionValueChange, window WindowContext, project Project) {
	r.calls++
	r.section, r.id, r.change, r.window, r.project = section, id, change, window, project
}

func TestDelegateHookPostCommand2(t *testing.T) {
	rec := &recordingPostCommand{}
	raw := DelegateHookPostCommand2(rec)

	raw(0, 40001, 3, 5, 0, 0x10, 0x20)
	if rec.calls != 1 {
		t.Fatalf("calls = %d", rec.calls)
	}
	if !rec.section.IsMain() || rec.id != 40001 {
		t.Errorf("section=%v id=%d", rec.section, rec.id)
	}
	if rec.change != (ActionValueChange{Kind: AbsoluteHighRes, Value: 3<<7 | 5}) {
		t.Errorf("change = %+v", rec.change)
	}
	if rec.window != 0x10 || rec.project != 0x20 {
		t.Errorf("window=%#x project=%#x", rec.window, rec.project)
	}

	raw(32060, 40002, 1, -1, 2, 0, 0)
	if rec.section.UniqueID() != 32060 || rec.change.Kind != Relative2 {
		t.Errorf("second call section=%v change=%+v", rec.section, rec.change)
	}
}

func TestDelegateHookPostCommand2DropsUnknownMode(t *testing.T) {
	logs := observeLogs(t)
	rec := &recordingPostCommand{}
	raw := DelegateHookPostCommand2(rec)

	raw(0, 1, 1, -1, 9, 0, 0)
	if rec.calls != 0 {
		t.Error("callback should not run for undecodable value")
	}
	if logs.FilterMessage("dropping post command notification").Len() != 1 {
		t.Error("expected debug log for dropped notification")
	}
}

func TestDelegateOnAudioBuffer(t *testing.T) {
	var got []OnAudioBufferArgs
	raw := DelegateOnAudioBuffer(OnAudioBufferFunc(func(args OnAudioBufferArgs) {
		got = append(got, args)
	}))

	raw(false, 256, 44100)
	raw(true, 256, 44100)

	if len(got) != 2 {
		t.Fatalf("got %d calls", len(got))
	}
	if got[0].IsPost || !got[1].IsPost || got[0].Len != 256 || got[0].SampleRate != 44100 {
		t.Errorf("args = %+v", got)
	}

	observeLogs(t)
	panicky := DelegateOnAudioBuffer(OnAudioBufferFunc(func(OnAudioBufferArgs) { panic("rt") }))
	panicky(false, 1, 1)
}

func TestDelegateControlSurface(t *testing.T) {
	runs := 0
	raw := DelegateControlSurface(ControlSurfaceFunc(func() { runs++ }))
	raw()
	raw()
	if runs != 2 {
		t.Errorf("runs = %d", runs)
	}
}

func TestDelegateTranslateAccel(t *testing.T) {
	raw := DelegateTranslateAccel(TranslateAccelFunc(func(msg AccelMsg) TranslateAccelResult {
		if msg.Kind() == MsgKeyDown && msg.Key() == 'K' {
			return Eat
		}
		return NotOurWindow
	}))

	if raw(RawMsg{Message: WMKeyDown, WParam: 'K'}) != 1 {
		t.Error("K down should be eaten")
	}
	if raw(RawMsg{Message: WMKeyUp, WParam: 'K'}) != 0 {
		t.Error("K up should not be ours")
	}

	observeLogs(t)
	panicky := DelegateTranslateAccel(TranslateAccelFunc(func(AccelMsg) TranslateAccelResult { panic("x") }))
	if panicky(RawMsg{}) != 0 {
		t.Error("panicking translator should return NotOurWindow")
	}
}

func TestFirewallPassesResult(t *testing.T) {
	if got := Firewall("f", -1, func() int { return 5 }); got != 5 {
		t.Errorf("Firewall = %d", got)
	}
}

func TestSetLoggerIgnoresNil(t *testing.T) {
	logs := observeLogs(t)
	SetLogger(nil)
	if Logger() == nil {
		t.Fatal("Logger should not be nil")
	}

	raw := DelegateHookCommand(HookCommandFunc(func(CommandID, int32) bool { panic("boom") }))
	if raw(1, 0) != 0 {
		t.Error("panicking hook should fall back to not handled")
	}
	if logs.Len() == 0 {
		t.Error("panic should be logged through the previous logger")
	}
}
