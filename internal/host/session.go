package host

// ThreadChecker reports the calling thread's role.
type ThreadChecker interface {
	// IsInMainThread reports whether the caller runs on the host's main thread.
	IsInMainThread() bool
}

// CommandRegistrar allocates command ids.
type CommandRegistrar interface {
	// AddCommandID returns the id for a command name, allocating it on first use.
	// Calling it again with the same name returns the same id.
	AddCommandID(name string) (CommandID, error)
}

// HookRegistrar registers host callbacks.
//
// All methods must be called on the main thread.
type HookRegistrar interface {
	AddHookCommand(cb HookCommand) error
	RemoveHookCommand(cb HookCommand) error

	AddToggleAction(cb ToggleAction) error
	RemoveToggleAction(cb ToggleAction) error

	// AddHookPostCommand2 may return ErrUnsupported on older hosts.
	AddHookPostCommand2(cb HookPostCommand2) error
	RemoveHookPostCommand2(cb HookPostCommand2) error

	AddGaccel(reg GaccelRegister) (GaccelHandle, error)
	RemoveGaccel(handle GaccelHandle) error

	// AddAudioHook hands cb to the host, which calls it on the audio thread
	// until RemoveAudioHook returns it.
	AddAudioHook(cb OnAudioBuffer) (AudioHookHandle, error)
	RemoveAudioHook(handle AudioHookHandle) (OnAudioBuffer, error)

	AddControlSurface(cs ControlSurface) (SurfaceHandle, error)
	RemoveControlSurface(handle SurfaceHandle) error

	AddAcceleratorRegister(cb TranslateAccel) (AcceleratorHandle, error)
	RemoveAcceleratorRegister(handle AcceleratorHandle) error
}

// UndoAPI groups host changes into undo points.
type UndoAPI interface {
	UndoBeginBlock(project Project)
	UndoEndBlock(project Project, description string, scope UndoScope)
}

// Console writes to the host's console window.
type Console interface {
	ShowConsoleMsg(msg string)
}

// Session is everything the façade consumes from the host.
type Session interface {
	ThreadChecker
	CommandRegistrar
	HookRegistrar
	UndoAPI
	Console
}
