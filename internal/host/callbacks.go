package host

// HookCommand is called by the host whenever a command is triggered.
// It returns true if the command was handled.
type HookCommand interface {
	HookCommand(id CommandID, flag int32) bool
}

// ToggleAction is asked by the host for the on/off state of a command.
// Implementations must not mutate state.
type ToggleAction interface {
	ToggleAction(id CommandID) ToggleActionResult
}

// HookPostCommand2 is called by the host after a command ran, with the value
// it was invoked with.
type HookPostCommand2 interface {
	HookPostCommand2(section SectionContext, id CommandID, change ActionValueChange, window WindowContext, project Project)
}

// OnAudioBuffer is called on the real-time audio thread twice per audio block,
// once before and once after processing.
type OnAudioBuffer interface {
	OnAudioBuffer(args OnAudioBufferArgs)
}

// ControlSurface is polled by the host on the main thread, roughly 30 times a second.
type ControlSurface interface {
	Run()
}

// HookCommandFunc adapts a function to HookCommand.
type HookCommandFunc func(id CommandID, flag int32) bool

// HookCommand implements HookCommand.
func (f HookCommandFunc) HookCommand(id CommandID, flag int32) bool { return f(id, flag) }

// ToggleActionFunc adapts a function to ToggleAction.
type ToggleActionFunc func(id CommandID) ToggleActionResult

// ToggleAction implements ToggleAction.
func (f ToggleActionFunc) ToggleAction(id CommandID) ToggleActionResult { return f(id) }

// OnAudioBufferFunc adapts a function to OnAudioBuffer.
type OnAudioBufferFunc func(args OnAudioBufferArgs)

// OnAudioBuffer implements OnAudioBuffer.
func (f OnAudioBufferFunc) OnAudioBuffer(args OnAudioBufferArgs) { f(args) }

// ControlSurfaceFunc adapts a function to ControlSurface.
type ControlSurfaceFunc func()

// Run implements ControlSurface.
func (f ControlSurfaceFunc) Run() { f() }
