package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultIdleTimeout is how long a conversation may stay quiet before its
// remote context is reset.
const DefaultIdleTimeout = 3 * time.Minute

// timerEntry is one armed idle timer. gen identifies the Schedule call that
// created it so a superseded firing can recognize itself.
type timerEntry struct {
	timer clockwork.Timer
	gen   uint64
}

// Timers keeps at most one pending idle action per conversation key.
// Scheduling restarts the countdown (debounce); the action runs once.
type Timers struct {
	clock   clockwork.Clock
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]*timerEntry
	gen     uint64
}

// NewTimers creates a timer manager. A nil clock uses the real clock and a
// non-positive timeout uses DefaultIdleTimeout.
func NewTimers(clock clockwork.Clock, timeout time.Duration) *Timers {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &Timers{
		clock:   clock,
		timeout: timeout,
		entries: make(map[string]*timerEntry),
	}
}

// Timeout returns the idle interval.
func (t *Timers) Timeout() time.Duration { return t.timeout }

// Schedule cancels any pending action for uid and arms a new one that calls
// onTimeout after the idle interval.
func (t *Timers) Schedule(uid string, onTimeout func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[uid]; ok {
		e.timer.Stop()
		delete(t.entries, uid)
	}

	t.gen++
	gen := t.gen
	t.entries[uid] = &timerEntry{
		gen:   gen,
		timer: t.clock.AfterFunc(t.timeout, func() { t.fire(uid, gen, onTimeout) }),
	}
	slog.Debug("idle timer armed", "uid", uid, "timeout", t.timeout)
}

// fire runs onTimeout if the entry for uid is still the one armed by the
// Schedule call with generation gen. The slot is released before the
// callback so the callback may schedule again.
func (t *Timers) fire(uid string, gen uint64, onTimeout func()) {
	t.mu.Lock()
	e, ok := t.entries[uid]
	if !ok || e.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.entries, uid)
	t.mu.Unlock()

	slog.Info("idle timeout", "uid", uid)
	onTimeout()
}

// Cancel removes the pending action for uid. It reports whether one existed.
func (t *Timers) Cancel(uid string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[uid]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.entries, uid)
	slog.Debug("idle timer cancelled", "uid", uid)
	return true
}

// HasActiveSession reports whether uid has a pending idle action.
func (t *Timers) HasActiveSession(uid string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[uid]
	return ok
}

// ActiveCount returns the number of pending idle actions.
func (t *Timers) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Stop cancels every pending action.
func (t *Timers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for uid, e := range t.entries {
		e.timer.Stop()
		delete(t.entries, uid)
	}
}
