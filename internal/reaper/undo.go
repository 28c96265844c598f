package reaper

import "github.com/dshills/reabridge/internal/host"

// UndoBlock is an open host undo block. End closes it.
type UndoBlock struct {
	r       *Reaper
	project host.Project
	label   string
	ended   bool
}

// EnterUndoBlock opens an undo block labelled label.
// It returns nil if a block is already open; the outer block then covers
// the nested changes.
func (r *Reaper) EnterUndoBlock(project host.Project, label string) *UndoBlock {
	r.RequireMainThread()
	if r.undoActive {
		return nil
	}
	r.session.UndoBeginBlock(project)
	r.undoActive = true
	return &UndoBlock{r: r, project: project, label: label}
}

// End closes the block. It is safe to call on a nil block and more than once.
func (b *UndoBlock) End() {
	if b == nil || b.ended {
		return
	}
	b.r.RequireMainThread()
	b.ended = true
	b.r.leaveUndoBlock(b.project, b.label)
}

func (r *Reaper) leaveUndoBlock(project host.Project, label string) {
	if !r.undoActive {
		return
	}
	r.session.UndoEndBlock(project, label, host.UndoScopeAll)
	r.undoActive = false
}

// Undoable runs fn inside an undo block.
func (r *Reaper) Undoable(project host.Project, label string, fn func()) {
	block := r.EnterUndoBlock(project, label)
	defer block.End()
	fn()
}

// UndoableActionIsRunning reports whether an undo block is open.
func (r *Reaper) UndoableActionIsRunning() bool {
	r.RequireMainThread()
	return r.undoActive
}
