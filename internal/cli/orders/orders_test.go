package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/dietline/internal/cli"
	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/order"
	"github.com/julianstephens/dietline/internal/storage/sqlite"
)

var testNow = time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)

type fakeService struct {
	order     models.Order
	fetchErr  error
	cancelErr error
	cancels   int
}

func (f *fakeService) FetchOrder(_ context.Context, id string) (models.Order, error) {
	if f.fetchErr != nil {
		return models.Order{}, f.fetchErr
	}
	o := f.order
	o.ID = id
	return o, nil
}

func (f *fakeService) CancelOrder(ctx context.Context, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.cancels++
	return f.cancelErr
}

func newService(t *testing.T) *fakeService {
	t.Helper()
	sched, err := models.NewSchedule(testNow.AddDate(0, 0, -2), testNow.AddDate(0, 0, 3),
		[]models.MealTime{
			{Category: models.MealLunch, Time: "12:30"},
			{Category: models.MealDinner, Time: "19:00"},
		}, time.UTC)
	if err != nil {
		t.Fatalf("NewSchedule() error = %v", err)
	}
	return &fakeService{order: models.Order{Schedule: sched, Status: models.StatusActive}}
}

func setupTestContext(t *testing.T) (*cli.Context, *fakeService, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	settings, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	settings.NotificationsEnabled = false
	if err := store.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	svc := newService(t)
	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Store:   store,
		Service: svc,
		Out:     out,
		Now:     func() time.Time { return testNow },
	}
	return ctx, svc, out
}

func TestTrackCmd(t *testing.T) {
	ctx, svc, out := setupTestContext(t)

	if err := (&TrackCmd{ID: "ord-1", Label: "weekday meals", Verify: true}).Run(ctx); err != nil {
		t.Fatalf("track failed: %v", err)
	}
	got, err := ctx.Store.GetTrackedOrder("ord-1")
	if err != nil {
		t.Fatalf("GetTrackedOrder() error = %v", err)
	}
	if got.Label != "weekday meals" || got.LastStatus != models.StatusActive {
		t.Errorf("tracked = %+v", got)
	}
	if !strings.Contains(out.String(), "ord-1 (weekday meals)") {
		t.Errorf("output = %q", out.String())
	}

	if err := (&TrackCmd{ID: "ord-1"}).Run(ctx); err == nil {
		t.Error("tracking twice should fail")
	}
	if err := (&TrackCmd{ID: "bad/id"}).Run(ctx); err == nil {
		t.Error("invalid id should fail")
	}

	svc.fetchErr = errors.New("order not found")
	if err := (&TrackCmd{ID: "ord-2", Verify: true}).Run(ctx); err == nil {
		t.Error("verification failure should fail")
	}
	if _, err := ctx.Store.GetTrackedOrder("ord-2"); err == nil {
		t.Error("unverified order should not be tracked")
	}
}

func TestUntrackAndList(t *testing.T) {
	ctx, _, out := setupTestContext(t)

	if err := (&TrackCmd{ID: "ord-1"}).Run(ctx); err != nil {
		t.Fatalf("track failed: %v", err)
	}
	out.Reset()
	if err := (&ListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "ord-1") {
		t.Errorf("list output = %q", out.String())
	}

	if err := (&UntrackCmd{ID: "ord-1"}).Run(ctx); err != nil {
		t.Fatalf("untrack failed: %v", err)
	}
	if err := (&UntrackCmd{ID: "ord-1"}).Run(ctx); err == nil {
		t.Error("untracking twice should fail")
	}

	out.Reset()
	if err := (&ListCmd{JSON: true}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var tracked []models.TrackedOrder
	if err := json.Unmarshal(out.Bytes(), &tracked); err != nil {
		t.Fatalf("list --json output is not JSON: %v", err)
	}
	if len(tracked) != 0 {
		t.Errorf("tracked = %+v, want none", tracked)
	}
}

func TestStatusCmd_JSON(t *testing.T) {
	ctx, _, out := setupTestContext(t)

	if err := (&StatusCmd{ID: "ord-1", JSON: true}).Run(ctx); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var snap order.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("status --json output is not JSON: %v", err)
	}
	if snap.Condition != order.ConditionActive || snap.Stage != models.StagePreparing {
		t.Errorf("snapshot = %+v, want active/preparing", snap)
	}
	if snap.Candidate == nil || snap.Candidate.MealCategory != models.MealDinner || snap.Candidate.MinutesUntil != 60 {
		t.Errorf("candidate = %+v, want dinner in 60 minutes", snap.Candidate)
	}

	transitions, err := ctx.Store.GetTransitions("ord-1", 0)
	if err != nil {
		t.Fatalf("GetTransitions() error = %v", err)
	}
	if len(transitions) != 2 {
		t.Errorf("journal has %d entries, want status and stage", len(transitions))
	}
}

func TestStatusCmd_LoadFailure(t *testing.T) {
	ctx, svc, out := setupTestContext(t)
	svc.fetchErr = errors.New("connection refused")

	err := (&StatusCmd{ID: "ord-1"}).Run(ctx)
	if !errors.Is(err, order.ErrDataLoad) {
		t.Errorf("status error = %v, want ErrDataLoad", err)
	}
	if !strings.Contains(out.String(), "Order not found.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestCancelCmd(t *testing.T) {
	ctx, svc, out := setupTestContext(t)
	if err := (&TrackCmd{ID: "ord-1"}).Run(ctx); err != nil {
		t.Fatalf("track failed: %v", err)
	}

	old := confirmFunc
	defer func() { confirmFunc = old }()
	confirmFunc = func(string) (bool, error) { return false, nil }

	if err := (&CancelCmd{ID: "ord-1"}).Run(ctx); err != nil {
		t.Fatalf("cancel (declined) failed: %v", err)
	}
	if svc.cancels != 0 {
		t.Fatalf("declined confirmation still sent %d cancels", svc.cancels)
	}

	if err := (&CancelCmd{ID: "ord-1", Yes: true}).Run(ctx); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if svc.cancels != 1 {
		t.Errorf("cancels = %d, want 1", svc.cancels)
	}
	if !strings.Contains(out.String(), "Order ord-1 cancelled.") {
		t.Errorf("output = %q", out.String())
	}
	tracked, err := ctx.Store.GetTrackedOrder("ord-1")
	if err != nil {
		t.Fatalf("GetTrackedOrder() error = %v", err)
	}
	if tracked.LastStatus != models.StatusCancelled {
		t.Errorf("LastStatus = %q, want cancelled", tracked.LastStatus)
	}
}

func TestCancelCmd_SlowConfirmation(t *testing.T) {
	ctx, svc, out := setupTestContext(t)

	oldTimeout, oldConfirm := requestTimeout, confirmFunc
	defer func() { requestTimeout, confirmFunc = oldTimeout, oldConfirm }()
	requestTimeout = 50 * time.Millisecond
	confirmFunc = func(string) (bool, error) {
		time.Sleep(3 * requestTimeout)
		return true, nil
	}

	if err := (&CancelCmd{ID: "ord-1"}).Run(ctx); err != nil {
		t.Fatalf("cancel after a slow confirmation failed: %v", err)
	}
	if svc.cancels != 1 {
		t.Errorf("cancels = %d, want 1", svc.cancels)
	}
	if !strings.Contains(out.String(), "Order ord-1 cancelled.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestCancelCmd_Failure(t *testing.T) {
	ctx, svc, _ := setupTestContext(t)
	svc.cancelErr = errors.New("503")

	err := (&CancelCmd{ID: "ord-1", Yes: true}).Run(ctx)
	if !errors.Is(err, order.ErrCommand) {
		t.Errorf("cancel error = %v, want ErrCommand", err)
	}
}

func TestCancelCmd_AlreadyCancelled(t *testing.T) {
	ctx, svc, out := setupTestContext(t)
	svc.order.Status = models.StatusCancelled

	if err := (&CancelCmd{ID: "ord-1", Yes: true}).Run(ctx); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if svc.cancels != 0 {
		t.Errorf("cancels = %d, want 0", svc.cancels)
	}
	if !strings.Contains(out.String(), "already cancelled") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHistoryCmd(t *testing.T) {
	ctx, _, out := setupTestContext(t)
	if err := (&HistoryCmd{ID: "ord-1"}).Run(ctx); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out.String(), "No history") {
		t.Errorf("output = %q", out.String())
	}

	if err := (&StatusCmd{ID: "ord-1"}).Run(ctx); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	out.Reset()
	if err := (&HistoryCmd{ID: "ord-1", Limit: 10}).Run(ctx); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out.String(), "Preparing") {
		t.Errorf("history output = %q", out.String())
	}
}

func TestServeCmd_StopsOnContext(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	if err := (&TrackCmd{ID: "ord-1"}).Run(ctx); err != nil {
		t.Fatalf("track failed: %v", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- (&ServeCmd{Addr: "127.0.0.1:0"}).serve(runCtx, ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}
