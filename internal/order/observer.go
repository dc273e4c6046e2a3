package order

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/storage"
)

// Event is published for every status transition and stage change.
type Event struct {
	Transition models.Transition
	Snapshot   Snapshot
}

type Observer interface {
	Observe(ctx context.Context, ev Event) error
}

type ObserverFunc func(ctx context.Context, ev Event) error

func (f ObserverFunc) Observe(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// JournalStore is the part of the store the journal writes to.
type JournalStore interface {
	RecordTransition(t models.Transition) error
	GetTrackedOrder(orderID string) (models.TrackedOrder, error)
	UpdateTrackedOrder(t models.TrackedOrder) error
}

// Journal records every transition and keeps the tracked order's last
// known status and stage current. Untracked orders are journaled only.
func Journal(store JournalStore) Observer {
	return ObserverFunc(func(ctx context.Context, ev Event) error {
		if err := store.RecordTransition(ev.Transition); err != nil {
			return err
		}
		tracked, err := store.GetTrackedOrder(ev.Transition.OrderID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		tracked.LastStatus = ev.Snapshot.Status
		tracked.LastStage = ev.Snapshot.Stage
		tracked.UpdatedAt = time.Now().UTC()
		return store.UpdateTrackedOrder(tracked)
	})
}
