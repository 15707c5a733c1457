// Package session holds the in-memory per-conversation state of the relay:
// human takeover flags and idle timers. Nothing here is persisted.
package session

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Manager owns the takeover gate and the idle timers for all conversations.
type Manager struct {
	Timers   *Timers
	Takeover *Takeover
}

// NewManager creates a session manager. A nil clock uses the real clock.
func NewManager(clock clockwork.Clock, idleTimeout time.Duration) *Manager {
	return &Manager{
		Timers:   NewTimers(clock, idleTimeout),
		Takeover: NewTakeover(),
	}
}

// Stats is a point-in-time snapshot for status reporting.
type Stats struct {
	ActiveSessions int
	TakenOver      int
}

// Stats returns the current counts.
func (m *Manager) Stats() Stats {
	return Stats{
		ActiveSessions: m.Timers.ActiveCount(),
		TakenOver:      m.Takeover.Count(),
	}
}

// Close cancels all pending idle timers.
func (m *Manager) Close() {
	m.Timers.Stop()
}
