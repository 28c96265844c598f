package host

import (
	"fmt"

	"go.uber.org/zap"
)

// Raw callback shapes as they cross the native boundary.
type (
	// RawHookCommand returns 1 if the command was handled, 0 otherwise.
	RawHookCommand func(command, flag int32) int32

	// RawToggleAction returns 1 (on), 0 (off) or -1 (not relevant).
	RawToggleAction func(command int32) int32

	// RawHookPostCommand2 receives the section's unique id instead of a section pointer.
	RawHookPostCommand2 func(sectionID, command, val, valhw, relmode int32, hwnd, proj uintptr)

	// RawOnAudioBuffer is called twice per audio block.
	RawOnAudioBuffer func(isPost bool, length int32, srate float64)

	// RawControlSurfaceRun is the periodic poll.
	RawControlSurfaceRun func()

	// RawTranslateAccel returns one of the TranslateAccelResult raw values.
	RawTranslateAccel func(msg RawMsg) int32
)

// Firewall runs fn and converts a panic into fallback.
// Panics must never unwind into the host.
func Firewall[T any](name string, fallback T, fn func() T) (result T) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("callback panicked",
				zap.String("callback", name),
				zap.String("panic", fmt.Sprint(r)),
				zap.Stack("stack"),
			)
			result = fallback
		}
	}()
	return fn()
}

// DelegateHookCommand translates raw command invocations into cb.
func DelegateHookCommand(cb HookCommand) RawHookCommand {
	return func(command, flag int32) int32 {
		handled := Firewall("hook_command", false, func() bool {
			return cb.HookCommand(CommandID(command), flag)
		})
		if handled {
			return 1
		}
		return 0
	}
}

// DelegateToggleAction translates raw toggle-state queries into cb.
func DelegateToggleAction(cb ToggleAction) RawToggleAction {
	return func(command int32) int32 {
		return Firewall("toggle_action", NotRelevant, func() ToggleActionResult {
			return cb.ToggleAction(CommandID(command))
		}).Raw()
	}
}

// DelegateHookPostCommand2 translates raw post-command notifications into cb.
// Notifications with an undecodable value are dropped.
func DelegateHookPostCommand2(cb HookPostCommand2) RawHookPostCommand2 {
	return func(sectionID, command, val, valhw, relmode int32, hwnd, proj uintptr) {
		change, err := DecodeActionValueChange(val, valhw, relmode)
		if err != nil {
			Logger().Debug("dropping post command notification",
				zap.Int32("command_id", command),
				zap.Error(err),
			)
			return
		}
		Firewall("hook_post_command_2", struct{}{}, func() struct{} {
			cb.HookPostCommand2(Section(sectionID), CommandID(command), change, WindowContext(hwnd), Project(proj))
			return struct{}{}
		})
	}
}

// DelegateOnAudioBuffer translates raw audio block callbacks into cb.
func DelegateOnAudioBuffer(cb OnAudioBuffer) RawOnAudioBuffer {
	return func(isPost bool, length int32, srate float64) {
		Firewall("on_audio_buffer", struct{}{}, func() struct{} {
			cb.OnAudioBuffer(OnAudioBufferArgs{IsPost: isPost, Len: length, SampleRate: srate})
			return struct{}{}
		})
	}
}

// DelegateControlSurface translates the raw periodic poll into cs.
func DelegateControlSurface(cs ControlSurface) RawControlSurfaceRun {
	return func() {
		Firewall("control_surface_run", struct{}{}, func() struct{} {
			cs.Run()
			return struct{}{}
		})
	}
}

// DelegateTranslateAccel translates raw keyboard messages into cb.
func DelegateTranslateAccel(cb TranslateAccel) RawTranslateAccel {
	return func(msg RawMsg) int32 {
		return Firewall("translate_accel", NotOurWindow, func() TranslateAccelResult {
			return cb.TranslateAccel(AccelMsgFromRaw(msg))
		}).Raw()
	}
}
