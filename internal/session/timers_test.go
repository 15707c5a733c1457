package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func waitFire(t *testing.T, ch <-chan time.Time) time.Time {
	t.Helper()
	select {
	case at := <-ch:
		return at
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	return time.Time{}
}

func expectNoFire(t *testing.T, ch <-chan time.Time) {
	t.Helper()
	select {
	case at := <-ch:
		t.Fatalf("unexpected firing at %v", at)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduleDebounce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	start := clock.Now()
	timers := NewTimers(clock, 3*time.Minute)
	fired := make(chan time.Time, 8)

	for i := 0; i < 5; i++ {
		timers.Schedule("u1", func() { fired <- clock.Now() })
		clock.Advance(time.Minute)
	}
	// Last Schedule happened at start+4m; we are at start+5m.
	expectNoFire(t, fired)
	if got := timers.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount = %d, want 1", got)
	}

	clock.Advance(2 * time.Minute)
	at := waitFire(t, fired)
	if want := start.Add(7 * time.Minute); !at.Equal(want) {
		t.Errorf("fired at %v, want %v (timed from the last call)", at, want)
	}

	clock.Advance(10 * time.Minute)
	expectNoFire(t, fired)
}

func TestCancelPreventsFiring(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimers(clock, time.Minute)
	fired := make(chan time.Time, 1)

	timers.Schedule("u1", func() { fired <- clock.Now() })
	if !timers.Cancel("u1") {
		t.Fatal("Cancel should report a pending timer")
	}
	if timers.Cancel("u1") {
		t.Error("second Cancel should be a no-op")
	}
	if timers.Cancel("nobody") {
		t.Error("Cancel of unknown uid should be a no-op")
	}

	clock.Advance(5 * time.Minute)
	expectNoFire(t, fired)
}

func TestHasActiveSessionLifecycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimers(clock, time.Minute)
	fired := make(chan time.Time, 1)

	if timers.HasActiveSession("u1") {
		t.Fatal("no session expected before Schedule")
	}
	timers.Schedule("u1", func() { fired <- clock.Now() })
	if !timers.HasActiveSession("u1") {
		t.Fatal("session expected right after Schedule")
	}

	clock.Advance(time.Minute)
	waitFire(t, fired)
	if timers.HasActiveSession("u1") {
		t.Error("session should be gone after firing")
	}

	timers.Schedule("u1", func() {})
	timers.Cancel("u1")
	if timers.HasActiveSession("u1") {
		t.Error("session should be gone after Cancel")
	}
}

func TestCallbackMayReschedule(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimers(clock, time.Minute)
	fired := make(chan time.Time, 4)

	var cb func()
	rounds := 0
	cb = func() {
		rounds++
		if rounds == 1 {
			timers.Schedule("u1", cb)
		}
		fired <- clock.Now()
	}
	timers.Schedule("u1", cb)

	clock.Advance(time.Minute)
	waitFire(t, fired)
	if !timers.HasActiveSession("u1") {
		t.Fatal("callback's own Schedule should leave a pending timer")
	}

	clock.Advance(time.Minute)
	waitFire(t, fired)
	if timers.HasActiveSession("u1") {
		t.Error("no timer expected after the second firing")
	}
}

func TestSupersededFiringIsDiscarded(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimers(clock, time.Minute)

	ran := false
	timers.Schedule("u1", func() { ran = true })
	staleGen := timers.entries["u1"].gen
	timers.Schedule("u1", func() {})

	// Simulates the old timer's callback racing a newer Schedule.
	timers.fire("u1", staleGen, func() { ran = true })
	if ran {
		t.Error("stale firing must not run its callback")
	}
	if !timers.HasActiveSession("u1") {
		t.Error("stale firing must not remove the newer entry")
	}
}

func TestTimersIndependentPerUID(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimers(clock, time.Minute)
	fired := make(chan string, 2)

	timers.Schedule("a", func() { fired <- "a" })
	clock.Advance(30 * time.Second)
	timers.Schedule("b", func() { fired <- "b" })
	clock.Advance(30 * time.Second)

	select {
	case uid := <-fired:
		if uid != "a" {
			t.Fatalf("first firing = %q, want a", uid)
		}
	case <-time.After(time.Second):
		t.Fatal("a did not fire")
	}
	if !timers.HasActiveSession("b") {
		t.Error("b should still be pending")
	}
}

func TestConcurrentScheduleAndCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimers(clock, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := fmt.Sprintf("u%d", i%4)
			for j := 0; j < 100; j++ {
				timers.Schedule(uid, func() {})
				if j%3 == 0 {
					timers.Cancel(uid)
				}
				timers.HasActiveSession(uid)
			}
		}(i)
	}
	wg.Wait()

	if got := timers.ActiveCount(); got > 4 {
		t.Errorf("ActiveCount = %d, want at most one per uid", got)
	}
	timers.Stop()
	if got := timers.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after Stop = %d, want 0", got)
	}
}

func TestNewTimersDefaults(t *testing.T) {
	timers := NewTimers(nil, 0)
	if timers.Timeout() != DefaultIdleTimeout {
		t.Errorf("Timeout = %v, want %v", timers.Timeout(), DefaultIdleTimeout)
	}
}
