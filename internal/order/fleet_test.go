package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/dietline/internal/models"
)

func TestFleet_SnapshotsAndCancel(t *testing.T) {
	f := NewFleet()
	sink := &fakeSink{}
	now := func() time.Time { return at(18, 0) }
	f.Add(New("b-2", &fakeSource{order: dinnerOrder(t, models.StatusActive)}, sink, WithNow(now)))
	f.Add(New("a-1", &fakeSource{order: dinnerOrder(t, models.StatusActive)}, sink, WithNow(now)))
	t.Cleanup(f.Close)

	snaps := f.Snapshots()
	if len(snaps) != 2 || snaps[0].OrderID != "a-1" || snaps[1].OrderID != "b-2" {
		t.Fatalf("Snapshots() = %+v, want a-1, b-2", snaps)
	}
	if snaps[0].Condition != ConditionLoading {
		t.Errorf("unevaluated order condition = %q, want loading", snaps[0].Condition)
	}

	if _, err := f.Cancel(context.Background(), "zzz"); !errors.Is(err, ErrUnknownOrder) {
		t.Errorf("Cancel(unknown) error = %v, want ErrUnknownOrder", err)
	}

	c, _ := f.Get("a-1")
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	c.Evaluate(now())

	snap, err := f.Cancel(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if snap.Condition != ConditionCancelled {
		t.Errorf("Cancel() snapshot = %q, want cancelled", snap.Condition)
	}
	if sink.Calls() != 1 {
		t.Errorf("sink calls = %d, want 1", sink.Calls())
	}
}

func TestFleet_RunStopsWithContext(t *testing.T) {
	f := NewFleet(WithReload(5 * time.Millisecond))
	src := &fakeSource{order: dinnerOrder(t, models.StatusActive)}
	f.Add(New("ord-1", src, &fakeSink{}, WithNow(func() time.Time { return at(9, 0) })))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, _ := f.Snapshot("ord-1")
		if snap.Condition == ConditionActive {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("order never became active")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
