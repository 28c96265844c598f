// Package host describes the native host surface the façade is built on.
//
// The host is a single-threaded audio application with a main (UI) thread and
// a real-time audio thread. Everything the façade needs from it is expressed
// as small interfaces composed into Session:
//
//   - ThreadChecker reports whether the caller runs on the host's main thread
//   - CommandRegistrar allocates stable command ids from names
//   - HookRegistrar adds and removes host callbacks (command dispatch, toggle
//     state, post-command values, accelerator table entries, the audio hook,
//     control surfaces and accelerator translators)
//   - UndoAPI opens and closes undo blocks
//   - Console prints to the host's console window
//
// # Callbacks
//
// The host calls back into extension code through plain C function pointers
// plus an opaque user-data pointer. This package models the typed side as
// interfaces (HookCommand, ToggleAction, HookPostCommand2, OnAudioBuffer,
// ControlSurface, TranslateAccel) and provides Delegate* constructors that
// turn a typed callback into its raw, C-shaped counterpart:
//
//	raw := host.DelegateHookCommand(myHook)
//	handled := raw(int32(cmd), 0) // 1 if handled
//
// Every delegate runs the callback inside Firewall, so a panic in extension
// code is logged instead of unwinding into the host.
package host
