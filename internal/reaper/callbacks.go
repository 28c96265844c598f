package reaper

import (
	"github.com/dshills/reabridge/internal/host"
	"github.com/dshills/reabridge/internal/observability"
)

// hooks are the callback objects handed to the host. They are created once
// so the same pointer can be removed again.
type hooks struct {
	command     *commandHook
	toggle      *toggleHook
	postCommand *postCommandHook
	helper      *helperSurface
}

type commandHook struct{ r *Reaper }

func (h *commandHook) HookCommand(id host.CommandID, _ int32) bool {
	return h.r.invokeAction(id)
}

type toggleHook struct{ r *Reaper }

func (h *toggleHook) ToggleAction(id host.CommandID) host.ToggleActionResult {
	return h.r.toggleState(id)
}

type postCommandHook struct{ r *Reaper }

func (h *postCommandHook) HookPostCommand2(section host.SectionContext, id host.CommandID, change host.ActionValueChange, _ host.WindowContext, _ host.Project) {
	h.r.recordValueChange(section, id, change)
}

var (
	_ host.HookCommand      = (*commandHook)(nil)
	_ host.ToggleAction     = (*toggleHook)(nil)
	_ host.HookPostCommand2 = (*postCommandHook)(nil)
)

// invokeAction runs the operation for id. The lookup is finished before the
// operation runs, so the operation may register or unregister actions,
// including itself.
func (r *Reaper) invokeAction(id host.CommandID) bool {
	cmd, ok := r.registry[id]
	if !ok {
		return false
	}
	op := cmd.op
	op.fn()
	observability.RecordActionInvoked()
	return true
}

func (r *Reaper) toggleState(id host.CommandID) host.ToggleActionResult {
	cmd, ok := r.registry[id]
	if !ok || !cmd.kind.IsToggleable() {
		return host.NotRelevant
	}
	if cmd.kind.isOn() {
		return host.On
	}
	return host.Off
}

// Only the main section is recorded.
func (r *Reaper) recordValueChange(section host.SectionContext, id host.CommandID, change host.ActionValueChange) {
	if !section.IsMain() {
		return
	}
	r.valueHistory[id] = change
}

// LastActionValueChange returns the last value the host invoked id with.
func (r *Reaper) LastActionValueChange(id host.CommandID) (host.ActionValueChange, bool) {
	r.RequireMainThread()
	change, ok := r.valueHistory[id]
	return change, ok
}
