package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize test store: %v", err)
	}
	cleanup := func() {
		store.Close()
	}
	return store, cleanup
}

var _ storage.Provider = (*Store)(nil)

func TestInitSeedsDefaultSettings(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	settings, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if settings != models.DefaultSettings() {
		t.Errorf("settings = %+v, want defaults %+v", settings, models.DefaultSettings())
	}

	st, err := store.MigrationStatus()
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if !st.UpToDate() {
		t.Errorf("MigrationStatus() = %+v, want up to date", st)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	want := models.Settings{
		APIBaseURL:           "https://shop.example/api",
		Timezone:             "UTC",
		StageIntervalSec:     15,
		CountdownIntervalSec: 2,
		NotificationsEnabled: false,
	}
	if err := store.SaveSettings(want); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	got, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if got != want {
		t.Errorf("GetSettings() = %+v, want %+v", got, want)
	}

	bad := want
	bad.StageIntervalSec = 0
	if err := store.SaveSettings(bad); err == nil {
		t.Error("SaveSettings() accepted a zero stage interval")
	}
}

func TestReopenKeepsSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store := NewStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	s := models.DefaultSettings()
	s.Timezone = "UTC"
	if err := store.SaveSettings(s); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	store.Close()

	// Re-running init must not clobber user settings.
	again := NewStore(path)
	if err := again.Init(); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	defer again.Close()
	got, err := again.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if got.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", got.Timezone)
	}
}

func TestLoadWithoutInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	if err := store.Load(); !errors.Is(err, storage.ErrNotInitialized) {
		t.Errorf("Load() error = %v, want ErrNotInitialized", err)
	}
}

func TestTrackedOrderCRUD(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	added := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	order := models.TrackedOrder{OrderID: "ord-1", Label: "office lunches", LastStatus: models.StatusActive, AddedAt: added}
	if err := store.AddTrackedOrder(order); err != nil {
		t.Fatalf("AddTrackedOrder() error = %v", err)
	}
	if err := store.AddTrackedOrder(order); !errors.Is(err, storage.ErrAlreadyTracked) {
		t.Errorf("duplicate AddTrackedOrder() error = %v, want ErrAlreadyTracked", err)
	}
	if err := store.AddTrackedOrder(models.TrackedOrder{}); err == nil {
		t.Error("AddTrackedOrder() accepted an empty id")
	}

	got, err := store.GetTrackedOrder("ord-1")
	if err != nil {
		t.Fatalf("GetTrackedOrder() error = %v", err)
	}
	if got.Label != "office lunches" || !got.AddedAt.Equal(added) {
		t.Errorf("GetTrackedOrder() = %+v", got)
	}

	got.LastStage = models.StageOutForDelivery
	if err := store.UpdateTrackedOrder(got); err != nil {
		t.Fatalf("UpdateTrackedOrder() error = %v", err)
	}
	updated, err := store.GetTrackedOrder("ord-1")
	if err != nil {
		t.Fatalf("GetTrackedOrder() error = %v", err)
	}
	if updated.LastStage != models.StageOutForDelivery {
		t.Errorf("LastStage = %q, want out_for_delivery", updated.LastStage)
	}

	if err := store.AddTrackedOrder(models.TrackedOrder{OrderID: "ord-2", AddedAt: added.Add(time.Hour)}); err != nil {
		t.Fatalf("AddTrackedOrder() error = %v", err)
	}
	all, err := store.GetAllTrackedOrders()
	if err != nil {
		t.Fatalf("GetAllTrackedOrders() error = %v", err)
	}
	if len(all) != 2 || all[0].OrderID != "ord-1" {
		t.Errorf("GetAllTrackedOrders() = %+v", all)
	}

	if err := store.RemoveTrackedOrder("ord-1"); err != nil {
		t.Fatalf("RemoveTrackedOrder() error = %v", err)
	}
	if _, err := store.GetTrackedOrder("ord-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetTrackedOrder() after remove error = %v, want ErrNotFound", err)
	}
	if err := store.RemoveTrackedOrder("ord-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second RemoveTrackedOrder() error = %v, want ErrNotFound", err)
	}
	if err := store.UpdateTrackedOrder(models.TrackedOrder{OrderID: "ghost"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateTrackedOrder(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestTransitions(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	base := time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)
	steps := []struct {
		kind     models.TransitionKind
		from, to string
		offset   time.Duration
	}{
		{models.TransitionStatus, "", "active", 0},
		{models.TransitionStage, "", "preparing", 0},
		{models.TransitionStage, "preparing", "out_for_delivery", 15*time.Minute + 500*time.Millisecond},
		{models.TransitionStage, "out_for_delivery", "delivered", 29*time.Minute + 30*time.Second},
	}
	for _, s := range steps {
		tr := models.NewTransition("ord-1", s.kind, s.from, s.to, "dinner", base.Add(s.offset))
		if err := store.RecordTransition(tr); err != nil {
			t.Fatalf("RecordTransition() error = %v", err)
		}
	}
	if err := store.RecordTransition(models.NewTransition("ord-2", models.TransitionStatus, "", "cancelled", "", base)); err != nil {
		t.Fatalf("RecordTransition() error = %v", err)
	}

	all, err := store.GetTransitions("ord-1", 0)
	if err != nil {
		t.Fatalf("GetTransitions() error = %v", err)
	}
	if len(all) != len(steps) {
		t.Fatalf("got %d transitions, want %d", len(all), len(steps))
	}
	for i, s := range steps {
		if all[i].To != s.to {
			t.Errorf("transition %d to = %q, want %q", i, all[i].To, s.to)
		}
	}
	if !all[2].At.Equal(base.Add(steps[2].offset)) {
		t.Errorf("At = %v, want sub-second precision kept", all[2].At)
	}

	recent, err := store.GetTransitions("ord-1", 2)
	if err != nil {
		t.Fatalf("GetTransitions(limit) error = %v", err)
	}
	if len(recent) != 2 || recent[0].To != "out_for_delivery" || recent[1].To != "delivered" {
		t.Errorf("GetTransitions(limit 2) = %+v", recent)
	}
}
