package order

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/julianstephens/dietline/internal/logger"
)

var ErrUnknownOrder = errors.New("order is not being watched")

// Fleet runs one controller per watched order.
type Fleet struct {
	reload time.Duration

	mu          sync.RWMutex
	controllers map[string]*Controller
	ids         []string
}

type FleetOption func(*Fleet)

// WithReload refetches each order on the given cadence so that changes made
// elsewhere, such as a cancellation on the website, are picked up.
func WithReload(d time.Duration) FleetOption {
	return func(f *Fleet) { f.reload = d }
}

func NewFleet(opts ...FleetOption) *Fleet {
	f := &Fleet{controllers: make(map[string]*Controller)}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fleet) Add(c *Controller) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.controllers[c.OrderID()]; !ok {
		f.ids = append(f.ids, c.OrderID())
		slices.Sort(f.ids)
	}
	f.controllers[c.OrderID()] = c
}

func (f *Fleet) Get(id string) (*Controller, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.controllers[id]
	return c, ok
}

// Snapshot returns the latest snapshot of one order. An order that has not
// been evaluated yet reports the loading condition.
func (f *Fleet) Snapshot(id string) (Snapshot, bool) {
	c, ok := f.Get(id)
	if !ok {
		return Snapshot{}, false
	}
	snap := c.Last()
	if snap.OrderID == "" {
		snap = Snapshot{OrderID: id, Condition: ConditionLoading, Message: ConditionLoading.Message()}
	}
	return snap, true
}

// Snapshots returns the latest snapshot of every order, sorted by id.
func (f *Fleet) Snapshots() []Snapshot {
	f.mu.RLock()
	ids := slices.Clone(f.ids)
	f.mu.RUnlock()

	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := f.Snapshot(id); ok {
			out = append(out, snap)
		}
	}
	return out
}

func (f *Fleet) Cancel(ctx context.Context, id string) (Snapshot, error) {
	c, ok := f.Get(id)
	if !ok {
		return Snapshot{}, ErrUnknownOrder
	}
	if err := c.Cancel(ctx); err != nil {
		return c.Last(), err
	}
	return c.Last(), nil
}

// Run loads and runs every controller until ctx ends. Controllers that
// reach a terminal condition stop on their own; a load failure leaves the
// order in the not-found condition.
func (f *Fleet) Run(ctx context.Context) error {
	f.mu.RLock()
	controllers := make([]*Controller, 0, len(f.ids))
	for _, id := range f.ids {
		controllers = append(controllers, f.controllers[id])
	}
	f.mu.RUnlock()

	var wg sync.WaitGroup
	for _, c := range controllers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.runOne(ctx, c)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (f *Fleet) runOne(ctx context.Context, c *Controller) {
	if err := c.Load(ctx); err != nil {
		logger.Warn("Order could not be loaded", "order", c.OrderID(), "error", err)
	}

	if f.reload > 0 {
		runCtx, stop := context.WithCancel(ctx)
		defer stop()
		go f.reloadLoop(runCtx, c)
		ctx = runCtx
	}

	if err := c.Run(ctx, func(Snapshot) {}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Order controller stopped", "order", c.OrderID(), "error", err)
	}
	c.Close()
}

func (f *Fleet) reloadLoop(ctx context.Context, c *Controller) {
	ticker := time.NewTicker(f.reload)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Load(ctx); err != nil {
				logger.Debug("Reload failed", "order", c.OrderID(), "error", err)
			}
		}
	}
}

// Close stops every controller.
func (f *Fleet) Close() {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.controllers {
		c.Close()
	}
}
