// Package reaper is the process-wide façade between the host and extension
// code.
//
// There is exactly one Reaper per process. It is created on the main thread:
//
//	err := reaper.Load(session).Logger(log).Setup()
//
// and reached from anywhere with reaper.Get. Almost every method must be
// called on the host's main thread and panics otherwise; the registry, the
// session state and the undo flag are owned by that thread and are not
// locked. The exceptions are DoLaterInRealTimeAudioThreadAsap,
// DoInMainThreadAsap and ShowConsoleMsgThreadSafe, which only touch bounded
// channels.
//
// # Session
//
// The façade is either sleeping (no host registrations held, the audio
// adapter parked) or awake (command hooks, one accelerator entry per action
// and the audio hook registered). WakeUp and GoToSleep switch between the
// two. Guarded lets several independent extensions share one wake/sleep
// cycle: the first handle wakes the session, the last Release puts it back
// to sleep.
//
// # Actions
//
// RegisterAction allocates a command id from a name and stores the
// operation. The host calls back through the command hook to run it, asks
// the toggle hook for its on/off state and reports continuous values
// through the post-command hook (see LastActionValueChange).
package reaper
