// Package heartbeat periodically reports relay session activity to the log.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/joebot/relaybot/internal/session"
)

// DefaultInterval is the default reporting interval.
const DefaultInterval = 5 * time.Minute

// StatsFunc returns the current session counts.
type StatsFunc func() session.Stats

// Service logs session stats on every tick. Unchanged stats are logged at
// debug level so an idle relay stays quiet.
type Service struct {
	clock    clockwork.Clock
	interval time.Duration
	stats    StatsFunc

	last    session.Stats
	started bool
}

// NewService creates a status reporter. A nil clock uses the real clock.
func NewService(clock clockwork.Clock, interval time.Duration, stats StatsFunc) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{clock: clock, interval: interval, stats: stats}
}

// Run starts the reporting loop. It blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	slog.Info("Status reporter started", "interval", s.interval)
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Status reporter stopped")
			return
		case <-ticker.Chan():
			s.tick()
		}
	}
}

// tick reports whether the stats changed since the previous tick.
func (s *Service) tick() bool {
	if s.stats == nil {
		return false
	}
	st := s.stats()
	changed := !s.started || st != s.last
	s.last, s.started = st, true

	level := slog.LevelDebug
	if changed {
		level = slog.LevelInfo
	}
	slog.Log(context.Background(), level, "Relay status", "active_sessions", st.ActiveSessions, "taken_over", st.TakenOver)
	return changed
}
