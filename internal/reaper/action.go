package reaper

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/dshills/reabridge/internal/host"
)

// ActionKind says whether an action has an on/off state.
type ActionKind struct {
	isOn func() bool
}

// NotToggleable is the kind of plain actions.
var NotToggleable = ActionKind{}

// Toggleable returns the kind of an action whose state is reported by isOn.
// isOn is called on the main thread whenever the host asks and must not
// mutate state.
func Toggleable(isOn func() bool) ActionKind {
	return ActionKind{isOn: isOn}
}

// IsToggleable reports whether the kind has an on/off state.
func (k ActionKind) IsToggleable() bool {
	return k.isOn != nil
}

// operation is the shared handle to an action's closure. Dispatch copies the
// pointer out of the registry before calling it.
type operation struct {
	fn func()
}

type command struct {
	op          *operation
	kind        ActionKind
	description string
	accel       host.Accel
}

func (c *command) gaccel(id host.CommandID) host.GaccelRegister {
	if c.accel.HasKey() {
		return host.GaccelWithKeyBinding(id, c.description, c.accel)
	}
	return host.GaccelWithoutKeyBinding(id, c.description)
}

// ActionOption configures a registered action.
type ActionOption func(*command)

// WithKeyBinding sets the action's default shortcut.
func WithKeyBinding(accel host.Accel) ActionOption {
	return func(c *command) {
		c.accel = accel
	}
}

// RegisteredAction is the handle returned by RegisterAction.
type RegisteredAction struct {
	r  *Reaper
	id host.CommandID
}

// CommandID returns the host's id for the action.
func (a *RegisteredAction) CommandID() host.CommandID {
	return a.id
}

// Unregister removes the action. The host no longer sees it once this
// returns, even if its accelerator entry could not be removed.
// Calling it again is a no-op.
func (a *RegisteredAction) Unregister() error {
	return a.r.unregisterAction(a.id)
}

// RegisterAction registers op under the command name.
//
// The first registration for a command id wins: registering the same name
// again returns a handle to the existing action and leaves its operation in
// place. If the session is awake the accelerator entry is registered right
// away, otherwise on the next WakeUp. If that fails the action stays in the
// registry and both the handle and the error are returned, so the caller
// can still unregister it.
func (r *Reaper) RegisterAction(name, description string, op func(), kind ActionKind, opts ...ActionOption) (*RegisteredAction, error) {
	r.RequireMainThread()

	id, err := r.session.AddCommandID(name)
	if err != nil {
		return nil, fmt.Errorf("allocate command id for %q: %w", name, err)
	}
	handle := &RegisteredAction{r: r, id: id}

	if _, exists := r.registry[id]; exists {
		r.logger.Debug("action already registered",
			zap.String("name", name),
			zap.Uint32("command_id", uint32(id)),
		)
		return handle, nil
	}

	cmd := &command{
		op:          &operation{fn: op},
		kind:        kind,
		description: description,
	}
	if accel, ok := r.keys[name]; ok {
		cmd.accel = accel
	}
	for _, opt := range opts {
		opt(cmd)
	}
	r.registry[id] = cmd

	if aw, ok := r.status.(*awakeState); ok {
		gh, err := r.session.AddGaccel(cmd.gaccel(id))
		if err != nil {
			return handle, fmt.Errorf("register accelerator for %q: %w", name, err)
		}
		aw.gaccels[id] = gh
	}

	r.logger.Debug("action registered",
		zap.String("name", name),
		zap.Uint32("command_id", uint32(id)),
		zap.Bool("toggleable", kind.IsToggleable()),
	)
	return handle, nil
}

func (r *Reaper) unregisterAction(id host.CommandID) error {
	r.RequireMainThread()

	if _, ok := r.registry[id]; !ok {
		return nil
	}
	delete(r.registry, id)

	aw, ok := r.status.(*awakeState)
	if !ok {
		return nil
	}
	gh, ok := aw.gaccels[id]
	if !ok {
		return nil
	}
	delete(aw.gaccels, id)
	if err := r.session.RemoveGaccel(gh); err != nil {
		return fmt.Errorf("remove accelerator for command %d: %w", id, err)
	}
	return nil
}

// ActionInfo describes a registered action.
type ActionInfo struct {
	ID          host.CommandID
	Description string
	Toggleable  bool
	KeyBinding  string
}

// Actions returns the registered actions sorted by command id.
func (r *Reaper) Actions() []ActionInfo {
	r.RequireMainThread()

	infos := make([]ActionInfo, 0, len(r.registry))
	for _, id := range r.commandIDs() {
		cmd := r.registry[id]
		infos = append(infos, ActionInfo{
			ID:          id,
			Description: cmd.description,
			Toggleable:  cmd.kind.IsToggleable(),
			KeyBinding:  cmd.accel.String(),
		})
	}
	return infos
}

func (r *Reaper) commandIDs() []host.CommandID {
	return sortedIDs(r.registry)
}

func sortedIDs[V any](m map[host.CommandID]V) []host.CommandID {
	ids := make([]host.CommandID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
