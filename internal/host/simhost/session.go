package simhost

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/dshills/reabridge/internal/host"
)

var _ host.Session = (*Host)(nil)

func (h *Host) handle() uint64 {
	h.nextHandle++
	return h.nextHandle
}

// AddCommandID implements host.CommandRegistrar.
func (h *Host) AddCommandID(name string) (host.CommandID, error) {
	if name == "" {
		return 0, fmt.Errorf("empty command name: %w", host.ErrRegistrationFailed)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if id, ok := h.ids[name]; ok {
		return id, nil
	}
	id := h.nextID
	h.nextID++
	h.ids[name] = id
	h.names[id] = name
	return id, nil
}

// AddHookCommand implements host.HookRegistrar.
func (h *Host) AddHookCommand(cb host.HookCommand) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hookCommands = append(h.hookCommands, hookCommand{cb: cb, raw: host.DelegateHookCommand(cb)})
	return nil
}

// RemoveHookCommand implements host.HookRegistrar.
func (h *Host) RemoveHookCommand(cb host.HookCommand) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, hc := range h.hookCommands {
		if hc.cb == cb {
			h.hookCommands = append(h.hookCommands[:i:i], h.hookCommands[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("hook command: %w", host.ErrNotRegistered)
}

// AddToggleAction implements host.HookRegistrar.
func (h *Host) AddToggleAction(cb host.ToggleAction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.toggles = append(h.toggles, toggleAction{cb: cb, raw: host.DelegateToggleAction(cb)})
	return nil
}

// RemoveToggleAction implements host.HookRegistrar.
func (h *Host) RemoveToggleAction(cb host.ToggleAction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, t := range h.toggles {
		if t.cb == cb {
			h.toggles = append(h.toggles[:i:i], h.toggles[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("toggle action: %w", host.ErrNotRegistered)
}

// AddHookPostCommand2 implements host.HookRegistrar. Hosts older than
// PostCommand2Version return host.ErrUnsupported.
func (h *Host) AddHookPostCommand2(cb host.HookPostCommand2) error {
	if h.version.LessThan(*PostCommand2Version) {
		return fmt.Errorf("post command 2 on %s: %w", h.version, host.ErrUnsupported)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.postCommands = append(h.postCommands, postCommand{cb: cb, raw: host.DelegateHookPostCommand2(cb)})
	return nil
}

// RemoveHookPostCommand2 implements host.HookRegistrar.
func (h *Host) RemoveHookPostCommand2(cb host.HookPostCommand2) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, p := range h.postCommands {
		if p.cb == cb {
			h.postCommands = append(h.postCommands[:i:i], h.postCommands[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("post command 2: %w", host.ErrNotRegistered)
}

// AddGaccel implements host.HookRegistrar.
func (h *Host) AddGaccel(reg host.GaccelRegister) (host.GaccelHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	handle := host.GaccelHandle(h.handle())
	h.gaccels[handle] = reg
	return handle, nil
}

// RemoveGaccel implements host.HookRegistrar.
func (h *Host) RemoveGaccel(handle host.GaccelHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.gaccels[handle]; !ok {
		return fmt.Errorf("gaccel %d: %w", handle, host.ErrNotRegistered)
	}
	delete(h.gaccels, handle)
	return nil
}

// AddAudioHook implements host.HookRegistrar.
func (h *Host) AddAudioHook(cb host.OnAudioBuffer) (host.AudioHookHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	handle := host.AudioHookHandle(h.handle())
	h.audioHooks[handle] = audioHook{cb: cb, raw: host.DelegateOnAudioBuffer(cb)}
	return handle, nil
}

// RemoveAudioHook implements host.HookRegistrar. It waits for a running
// audio block to finish, so once it returns the audio thread no longer
// calls the hook. It must not be called from an audio hook.
func (h *Host) RemoveAudioHook(handle host.AudioHookHandle) (host.OnAudioBuffer, error) {
	h.audioMu.Lock()
	defer h.audioMu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	hk, ok := h.audioHooks[handle]
	if !ok {
		return nil, fmt.Errorf("audio hook %d: %w", handle, host.ErrNotRegistered)
	}
	delete(h.audioHooks, handle)
	return hk.cb, nil
}

// AddControlSurface implements host.HookRegistrar.
func (h *Host) AddControlSurface(cs host.ControlSurface) (host.SurfaceHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	handle := host.SurfaceHandle(h.handle())
	h.surfaces[handle] = host.DelegateControlSurface(cs)
	return handle, nil
}

// RemoveControlSurface implements host.HookRegistrar.
func (h *Host) RemoveControlSurface(handle host.SurfaceHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.surfaces[handle]; !ok {
		return fmt.Errorf("control surface %d: %w", handle, host.ErrNotRegistered)
	}
	delete(h.surfaces, handle)
	return nil
}

// AddAcceleratorRegister implements host.HookRegistrar. Later registrations
// see keystrokes first.
func (h *Host) AddAcceleratorRegister(cb host.TranslateAccel) (host.AcceleratorHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	handle := host.AcceleratorHandle(h.handle())
	h.accels[handle] = host.DelegateTranslateAccel(cb)
	h.accelOrder = append([]host.AcceleratorHandle{handle}, h.accelOrder...)
	return handle, nil
}

// RemoveAcceleratorRegister implements host.HookRegistrar.
func (h *Host) RemoveAcceleratorRegister(handle host.AcceleratorHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.accels[handle]; !ok {
		return fmt.Errorf("accelerator register %d: %w", handle, host.ErrNotRegistered)
	}
	delete(h.accels, handle)
	for i, o := range h.accelOrder {
		if o == handle {
			h.accelOrder = append(h.accelOrder[:i:i], h.accelOrder[i+1:]...)
			break
		}
	}
	return nil
}

// UndoBeginBlock implements host.UndoAPI.
func (h *Host) UndoBeginBlock(host.Project) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undoDepth++
}

// UndoEndBlock implements host.UndoAPI. Only the outermost block creates an
// undo point.
func (h *Host) UndoEndBlock(_ host.Project, description string, _ host.UndoScope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.undoDepth == 0 {
		h.logger.Warn("undo block ended without begin", zap.String("description", description))
		return
	}
	h.undoDepth--
	if h.undoDepth == 0 {
		h.undoHistory = append(h.undoHistory, description)
	}
}

// ShowConsoleMsg implements host.Console.
func (h *Host) ShowConsoleMsg(msg string) {
	h.mu.Lock()
	h.consoleLog = append(h.consoleLog, msg)
	w := h.console
	h.mu.Unlock()

	if w != nil {
		_, _ = io.WriteString(w, msg)
	}
}
