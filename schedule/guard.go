package schedule

import "sync/atomic"

// Guard refuses to start a new tick of a job while a previous tick of
// the same job is still running. A rejected tick is a normal no-op,
// not an error; the runner logs it and the skip counter records it.
type Guard struct {
	busy  atomic.Bool
	skips atomic.Int64
}

// TryAcquire marks the job busy. It returns false, and counts a skip,
// when a tick is already in flight.
func (g *Guard) TryAcquire() bool {
	if g.busy.CompareAndSwap(false, true) {
		return true
	}
	g.skips.Add(1)
	return false
}

// Release clears the busy mark. Callers defer it immediately after a
// successful TryAcquire so the guard is released even if the tick
// panics.
func (g *Guard) Release() {
	g.busy.Store(false)
}

// Busy reports whether a tick is currently running.
func (g *Guard) Busy() bool {
	return g.busy.Load()
}

// Skips returns how many ticks were rejected since startup.
func (g *Guard) Skips() int64 {
	return g.skips.Load()
}
