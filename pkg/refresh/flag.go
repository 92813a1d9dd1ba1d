// Package refresh bridges asynchronous refresh requests (POSIX signals and
// IPC commands) into the status loop.
package refresh

import "sync/atomic"

// Flag is the forced-refresh request shared between requesters and the loop.
// Any number of Request calls before the next Take coalesce into one.
//
// A wake token in the channel always belongs to a request that is set or
// about to be set, so a sleep cut short by Wake is followed by a Take that
// reports the request.
type Flag struct {
	set  atomic.Bool
	wake chan struct{}
}

// NewFlag returns a cleared flag.
func NewFlag() *Flag {
	return &Flag{wake: make(chan struct{}, 1)}
}

// Request marks a refresh as pending and wakes a sleeping loop. It never
// blocks and does not allocate, so it is safe to call from the signal path.
func (f *Flag) Request() {
	f.notify()
	f.set.Store(true)
}

// Take reports whether a refresh was requested since the last Take and
// clears the request. A pending wake-up is consumed with it.
func (f *Flag) Take() bool {
	if !f.set.Swap(false) {
		return false
	}
	f.drain()
	return true
}

// drain consumes the wake token of a taken request. A request that landed
// between the swap and the drain lost its token, so it is re-armed.
func (f *Flag) drain() {
	select {
	case <-f.wake:
	default:
	}
	if f.Pending() {
		f.notify()
	}
}

// Pending reports whether a request is outstanding without clearing it.
func (f *Flag) Pending() bool {
	return f.set.Load()
}

// Wake returns a channel that receives once after a Request. The loop
// selects on it to cut a sleep short.
func (f *Flag) Wake() <-chan struct{} {
	return f.wake
}

func (f *Flag) notify() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}
