package relay

import (
	"sync/atomic"
	"time"
)

// ReadyClock records when the first transport became ready. The value is
// written once and never changes afterwards.
type ReadyClock struct {
	at atomic.Pointer[time.Time]
}

// MarkReady sets the ready time if it is not set yet. It reports whether
// this call was the one that set it.
func (r *ReadyClock) MarkReady(t time.Time) bool {
	return r.at.CompareAndSwap(nil, &t)
}

// ReadyAt returns the ready time and whether it has been set.
func (r *ReadyClock) ReadyAt() (time.Time, bool) {
	p := r.at.Load()
	if p == nil {
		return time.Time{}, false
	}
	return *p, true
}
