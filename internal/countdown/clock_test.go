package countdown

import (
	"sync"
	"testing"
	"time"
)

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t
}

func receive(t *testing.T, c *Clock) Breakdown {
	t.Helper()
	select {
	case b := <-c.Updates():
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for clock update")
		return Breakdown{}
	}
}

func TestClock_EmitsAndStopsAtTarget(t *testing.T) {
	now := &fakeNow{t: base}
	c := NewClock(5*time.Millisecond, WithNow(now.Now))
	defer c.Stop()

	c.Start(base.Add(90 * time.Second))
	first := receive(t, c)
	if first.Minutes != 1 || first.Seconds != 30 || first.Done {
		t.Fatalf("first update = %+v, want 1m30s", first)
	}

	now.Set(base.Add(2 * time.Minute))
	deadline := time.After(2 * time.Second)
	for {
		select {
		case b := <-c.Updates():
			if !b.Done {
				continue
			}
			if b != (Breakdown{Done: true}) {
				t.Fatalf("terminal update = %+v, want all zero", b)
			}
			if _, running := c.Target(); running {
				t.Error("clock still running after terminal update")
			}
			return
		case <-deadline:
			t.Fatal("clock never reported done")
		}
	}
}

func TestClock_RestartUsesNewTarget(t *testing.T) {
	now := &fakeNow{t: base}
	c := NewClock(5*time.Millisecond, WithNow(now.Now))
	defer c.Stop()

	c.Start(base.Add(time.Hour))
	receive(t, c)

	next := base.Add(10 * time.Minute)
	c.Start(next)
	if target, running := c.Target(); !target.Equal(next) || !running {
		t.Fatalf("Target() = %v, %v, want %v, true", target, running, next)
	}

	// Every value after the restart is computed against the new target.
	deadline := time.After(2 * time.Second)
	for seen := 0; seen < 3; seen++ {
		select {
		case b := <-c.Updates():
			if b.Minutes != 10 || b.Hours != 0 {
				t.Fatalf("update %d = %+v, want 10m against new target", seen, b)
			}
		case <-deadline:
			t.Fatal("timed out")
		}
	}
}

func TestClock_RestartDiscardsPendingValue(t *testing.T) {
	now := &fakeNow{t: base}
	c := NewClock(time.Hour, WithNow(now.Now))
	defer c.Stop()

	c.Start(base.Add(time.Hour))
	// The first value is published immediately and left unread.
	waitFor(t, func() bool { return len(c.updates) == 1 })

	c.Start(base.Add(10 * time.Minute))
	b := receive(t, c)
	if b.Hours != 0 || b.Minutes != 10 {
		t.Fatalf("first update after restart = %+v, want 10m against new target", b)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestClock_StopHaltsUpdates(t *testing.T) {
	now := &fakeNow{t: base}
	c := NewClock(5*time.Millisecond, WithNow(now.Now))

	c.Start(base.Add(time.Hour))
	receive(t, c)
	c.Stop()

	// At most one value published before Stop may still be buffered.
	select {
	case <-c.Updates():
	default:
	}
	select {
	case b := <-c.Updates():
		t.Errorf("received %+v after Stop", b)
	case <-time.After(50 * time.Millisecond):
	}
	if _, running := c.Target(); running {
		t.Error("Target() reports running after Stop")
	}
}

func TestClock_PastTargetEmitsTerminalImmediately(t *testing.T) {
	c := NewClock(time.Hour, WithNow(func() time.Time { return base }))
	defer c.Stop()

	c.Start(base.Add(-time.Minute))
	if b := receive(t, c); !b.Done {
		t.Errorf("update = %+v, want done", b)
	}
}
