package reaper

import "github.com/dshills/reabridge/internal/host"

const mainThreadViolation = "this function must be called in the main thread"

func requireMainThread(tc host.ThreadChecker) {
	if !tc.IsInMainThread() {
		panic(mainThreadViolation)
	}
}

// RequireMainThread panics unless called on the host's main thread.
func (r *Reaper) RequireMainThread() {
	requireMainThread(r.session)
}
