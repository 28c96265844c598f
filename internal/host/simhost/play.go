package simhost

import (
	"fmt"
	"sort"

	"github.com/dshills/reabridge/internal/host"
)

// CommandID returns the id allocated for name.
func (h *Host) CommandID(name string) (host.CommandID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.ids[name]
	return id, ok
}

// CommandName returns the name id was allocated for.
func (h *Host) CommandName(id host.CommandID) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	name, ok := h.names[id]
	return name, ok
}

// Invoke runs the command called name the way the host's action list
// would, then reports it to post-command hooks. Must run on the main thread.
func (h *Host) Invoke(name string) error {
	return h.InvokeWithValue(name, host.ActionValueChange{Kind: host.AbsoluteLowRes, Value: 127})
}

// InvokeWithValue is Invoke with a continuous value, as from a MIDI
// controller bound to the action.
func (h *Host) InvokeWithValue(name string, change host.ActionValueChange) error {
	id, ok := h.CommandID(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return h.Dispatch(id, change)
}

// Dispatch offers id to the command hooks in registration order.
func (h *Host) Dispatch(id host.CommandID, change host.ActionValueChange) error {
	h.mu.Lock()
	hooks := make([]host.RawHookCommand, len(h.hookCommands))
	for i, hc := range h.hookCommands {
		hooks[i] = hc.raw
	}
	posts := make([]host.RawHookPostCommand2, len(h.postCommands))
	for i, p := range h.postCommands {
		posts[i] = p.raw
	}
	h.mu.Unlock()

	handled := false
	for _, raw := range hooks {
		if raw(int32(id), 0) == 1 {
			handled = true
			break
		}
	}
	if !handled {
		return fmt.Errorf("%w: %d", ErrNotHandled, id)
	}

	val, valhw, relmode := change.Encode()
	for _, raw := range posts {
		raw(host.MainSection.UniqueID(), int32(id), val, valhw, relmode, uintptr(host.NoWindow), uintptr(host.CurrentProject))
	}
	return nil
}

// ToggleState asks the toggle hooks for the state of the command called name.
func (h *Host) ToggleState(name string) (host.ToggleActionResult, error) {
	id, ok := h.CommandID(name)
	if !ok {
		return host.NotRelevant, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	h.mu.Lock()
	toggles := make([]host.RawToggleAction, len(h.toggles))
	for i, t := range h.toggles {
		toggles[i] = t.raw
	}
	h.mu.Unlock()

	for _, raw := range toggles {
		switch raw(int32(id)) {
		case 1:
			return host.On, nil
		case 0:
			return host.Off, nil
		}
	}
	return host.NotRelevant, nil
}

// PressKey plays a key-down for accel. Accelerator registers see it first;
// if none eats it, the command bound to the key in the accelerator table
// runs. It returns the name of the command that ran, if any.
func (h *Host) PressKey(accel host.Accel) (string, error) {
	h.mu.Lock()
	translators := make([]host.RawTranslateAccel, 0, len(h.accelOrder))
	for _, handle := range h.accelOrder {
		translators = append(translators, h.accels[handle])
	}
	var bound []host.GaccelRegister
	for _, g := range h.gaccels {
		if g.Accel.HasKey() && g.Accel.Key == accel.Key && g.Accel.Behavior == accel.Behavior {
			bound = append(bound, g)
		}
	}
	h.mu.Unlock()

	msg := host.RawMsg{
		Message: host.WMKeyDown,
		WParam:  uintptr(accel.Key),
		LParam:  uintptr(accel.Behavior),
	}
	for _, raw := range translators {
		if raw(msg) == host.Eat.Raw() {
			return "", nil
		}
	}

	if len(bound) == 0 {
		return "", nil
	}
	sort.Slice(bound, func(i, j int) bool { return bound[i].Accel.Cmd < bound[j].Accel.Cmd })
	id := host.CommandID(bound[0].Accel.Cmd)
	name, _ := h.CommandName(id)
	return name, h.Dispatch(id, host.ActionValueChange{Kind: host.AbsoluteLowRes, Value: 127})
}

// Gaccels returns the accelerator table sorted by command.
func (h *Host) Gaccels() []host.GaccelRegister {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]host.GaccelRegister, 0, len(h.gaccels))
	for _, g := range h.gaccels {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Accel.Cmd < out[j].Accel.Cmd })
	return out
}

// UndoHistory returns the descriptions of the undo points created so far.
func (h *Host) UndoHistory() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.undoHistory...)
}

// ConsoleLog returns every console message shown so far.
func (h *Host) ConsoleLog() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.consoleLog...)
}

// Registrations counts what is currently registered with the host.
type Registrations struct {
	HookCommands int `json:"hook_commands"`
	Toggles      int `json:"toggles"`
	PostCommands int `json:"post_commands"`
	Gaccels      int `json:"gaccels"`
	AudioHooks   int `json:"audio_hooks"`
	Surfaces     int `json:"surfaces"`
	Accels       int `json:"accelerator_registers"`
}

// Registrations returns the current registration counts.
func (h *Host) Registrations() Registrations {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Registrations{
		HookCommands: len(h.hookCommands),
		Toggles:      len(h.toggles),
		PostCommands: len(h.postCommands),
		Gaccels:      len(h.gaccels),
		AudioHooks:   len(h.audioHooks),
		Surfaces:     len(h.surfaces),
		Accels:       len(h.accels),
	}
}
