package reaper

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/reabridge/internal/host"
	"github.com/dshills/reabridge/internal/observability"
	"github.com/dshills/reabridge/internal/rtqueue"
)

// sessionStatus is either sleeping or *awakeState.
type sessionStatus interface {
	isSessionStatus()
}

// sleeping holds the parked audio adapter. A nil state means the adapter
// was lost and the session cannot wake up again.
type sleeping struct {
	state *sleepingState
}

type sleepingState struct {
	adapter *rtqueue.Adapter
}

// awakeState holds the live host registrations.
type awakeState struct {
	audioHook         host.AudioHookHandle
	postCommandHooked bool
	gaccels           map[host.CommandID]host.GaccelHandle
}

func (sleeping) isSessionStatus()    {}
func (*awakeState) isSessionStatus() {}

// IsAwake reports whether the host registrations are held.
func (r *Reaper) IsAwake() bool {
	r.RequireMainThread()
	_, awake := r.status.(*awakeState)
	return awake
}

// WakeUp registers the command hooks, one accelerator entry per action and
// the audio hook. Real-time tasks queued while sleeping are discarded.
//
// If any registration fails, everything registered by this call is removed
// again and the session stays sleeping.
func (r *Reaper) WakeUp() error {
	r.RequireMainThread()

	sl, ok := r.status.(sleeping)
	if !ok {
		return ErrAlreadyAwake
	}
	if sl.state == nil {
		return ErrInvalidState
	}
	adapter := sl.state.adapter

	if n := adapter.Discard(); n > 0 {
		r.logger.Warn("discarded real-time tasks queued while sleeping", zap.Int("task_count", n))
	}

	var undo []func() error
	rollback := func(cause error) error {
		err := cause
		for i := len(undo) - 1; i >= 0; i-- {
			err = multierr.Append(err, undo[i]())
		}
		r.logger.Error("wake up failed", zap.Error(err))
		return err
	}

	if err := r.session.AddHookCommand(r.hooks.command); err != nil {
		return rollback(fmt.Errorf("register hook command: %w", err))
	}
	undo = append(undo, func() error { return r.session.RemoveHookCommand(r.hooks.command) })

	if err := r.session.AddToggleAction(r.hooks.toggle); err != nil {
		return rollback(fmt.Errorf("register toggle action: %w", err))
	}
	undo = append(undo, func() error { return r.session.RemoveToggleAction(r.hooks.toggle) })

	postCommandHooked := true
	if err := r.session.AddHookPostCommand2(r.hooks.postCommand); err != nil {
		// Older hosts lack this hook; only analog values are lost.
		r.logger.Debug("post command hook unavailable", zap.Error(err))
		postCommandHooked = false
	} else {
		undo = append(undo, func() error { return r.session.RemoveHookPostCommand2(r.hooks.postCommand) })
	}

	gaccels := make(map[host.CommandID]host.GaccelHandle, len(r.registry))
	for _, id := range r.commandIDs() {
		handle, err := r.session.AddGaccel(r.registry[id].gaccel(id))
		if err != nil {
			return rollback(fmt.Errorf("register accelerator for command %d: %w", id, err))
		}
		gaccels[id] = handle
		undo = append(undo, func() error { return r.session.RemoveGaccel(handle) })
	}

	audioHook, err := r.session.AddAudioHook(adapter)
	if err != nil {
		return rollback(fmt.Errorf("register audio hook: %w", err))
	}

	r.status = &awakeState{
		audioHook:         audioHook,
		postCommandHooked: postCommandHooked,
		gaccels:           gaccels,
	}
	observability.RecordSessionTransition(true)
	r.logger.Info("session awake", zap.Int("action_count", len(gaccels)))
	return nil
}

// GoToSleep removes the audio hook, then every accelerator entry and the
// command hooks. Failures after the audio hook is back are logged and
// otherwise ignored.
func (r *Reaper) GoToSleep() error {
	r.RequireMainThread()

	aw, ok := r.status.(*awakeState)
	if !ok {
		return ErrAlreadySleeping
	}

	cb, err := r.session.RemoveAudioHook(aw.audioHook)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAudioHookRemoval, err)
	}

	var errs error
	for _, id := range sortedIDs(aw.gaccels) {
		if err := r.session.RemoveGaccel(aw.gaccels[id]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("remove accelerator for command %d: %w", id, err))
		}
	}
	if aw.postCommandHooked {
		if err := r.session.RemoveHookPostCommand2(r.hooks.postCommand); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("remove post command hook: %w", err))
		}
	}
	if err := r.session.RemoveToggleAction(r.hooks.toggle); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("remove toggle action: %w", err))
	}
	if err := r.session.RemoveHookCommand(r.hooks.command); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("remove hook command: %w", err))
	}
	if errs != nil {
		r.logger.Warn("errors while going to sleep", zap.Error(errs))
	}

	adapter, ok := cb.(*rtqueue.Adapter)
	if !ok || adapter == nil {
		r.status = sleeping{}
		r.logger.Error("host returned a foreign audio hook")
		return ErrInvalidState
	}

	r.status = sleeping{state: &sleepingState{adapter: adapter}}
	observability.RecordSessionTransition(false)
	r.logger.Info("session sleeping")
	return nil
}
