package reaper

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	guardMu   sync.Mutex
	liveGuard *guardToken
	initOnce  sync.Once
)

// guardToken is shared by every Guard of one activation cycle.
type guardToken struct {
	refs     int
	sleep    func()
	cycle    uuid.UUID
	orphaned bool
}

// Guard keeps the session awake until released.
type Guard struct {
	token    *guardToken
	released bool
}

// Guarded returns a handle onto the current activation cycle, starting one
// if none is live.
//
// Starting a cycle runs initializer (once per process, ever), wakes the
// façade and then calls wakeUp, whose returned closure runs when the last
// handle of the cycle is released, right before the façade goes to sleep.
// initializer may set up the façade. Either function may be nil.
//
// Must be called on the main thread. wakeUp and the sleep closure must not
// call Guarded or Release.
func Guarded(initializer func(), wakeUp func() func()) *Guard {
	guardMu.Lock()
	defer guardMu.Unlock()

	if liveGuard != nil {
		liveGuard.refs++
		return &Guard{token: liveGuard}
	}

	initOnce.Do(func() {
		if initializer != nil {
			initializer()
		}
	})

	r := Get()
	if err := r.WakeUp(); err != nil {
		r.logger.Warn("guarded wake up failed", zap.Error(err))
	}

	var sleep func()
	if wakeUp != nil {
		sleep = wakeUp()
	}

	liveGuard = &guardToken{refs: 1, sleep: sleep, cycle: uuid.New()}
	r.logger.Debug("activation cycle started", zap.Stringer("cycle", liveGuard.cycle))
	return &Guard{token: liveGuard}
}

// Clone returns another handle onto the same cycle.
// Cloning a released handle returns nil.
func (g *Guard) Clone() *Guard {
	guardMu.Lock()
	defer guardMu.Unlock()

	if g == nil || g.released {
		return nil
	}
	g.token.refs++
	return &Guard{token: g.token}
}

// CycleID identifies the activation cycle the handle belongs to.
func (g *Guard) CycleID() uuid.UUID {
	return g.token.cycle
}

// Release drops the handle. Releasing the last handle of a cycle runs its
// sleep closure and puts the façade to sleep. Calling it again is a no-op.
func (g *Guard) Release() {
	guardMu.Lock()
	defer guardMu.Unlock()

	if g == nil || g.released {
		return
	}
	g.released = true

	t := g.token
	t.refs--
	if t.refs > 0 {
		return
	}
	if liveGuard == t {
		liveGuard = nil
	}
	if t.sleep != nil {
		t.sleep()
	}
	if t.orphaned {
		return
	}

	r := Get()
	if err := r.GoToSleep(); err != nil {
		r.logger.Warn("guarded sleep failed", zap.Error(err))
	}
	r.logger.Debug("activation cycle ended", zap.Stringer("cycle", t.cycle))
}

// orphanGuard detaches the live cycle from the façade being torn down.
// Its remaining handles still run the sleep closure on release.
func orphanGuard() {
	guardMu.Lock()
	defer guardMu.Unlock()

	if liveGuard != nil {
		liveGuard.orphaned = true
		liveGuard = nil
	}
}
