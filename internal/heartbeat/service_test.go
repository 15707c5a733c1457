package heartbeat

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/joebot/relaybot/internal/session"
)

func TestTickReportsChanges(t *testing.T) {
	var active atomic.Int64
	s := NewService(nil, 0, func() session.Stats {
		return session.Stats{ActiveSessions: int(active.Load())}
	})
	if s.interval != DefaultInterval {
		t.Errorf("interval = %v, want default", s.interval)
	}

	steps := []struct {
		active int64
		want   bool
	}{
		{0, true},
		{0, false},
		{2, true},
		{2, false},
		{1, true},
	}
	for i, step := range steps {
		active.Store(step.active)
		if got := s.tick(); got != step.want {
			t.Errorf("step %d: changed = %v, want %v", i, got, step.want)
		}
	}
}

func TestRunTicksOnClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	calls := make(chan struct{}, 4)
	s := NewService(clock, time.Minute, func() session.Stats {
		calls <- struct{}{}
		return session.Stats{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute)
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("no tick after one interval")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
