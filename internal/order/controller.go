// Package order owns the live state of a single subscription order: it loads
// the order, evaluates its next delivery and stage, and carries out the
// cancel command.
package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/dietline/internal/constants"
	"github.com/julianstephens/dietline/internal/countdown"
	"github.com/julianstephens/dietline/internal/logger"
	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/scheduler"
)

const observerTimeout = 10 * time.Second

// Source fetches the current order document.
type Source interface {
	FetchOrder(ctx context.Context, orderID string) (models.Order, error)
}

// Sink accepts the cancel command. A nil error means the service
// acknowledged it.
type Sink interface {
	CancelOrder(ctx context.Context, orderID string) error
}

type Option func(*Controller)

// WithNow replaces the wall clock used by Run.
func WithNow(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithIntervals(stage, countdown time.Duration) Option {
	return func(c *Controller) {
		if stage > 0 {
			c.stageInterval = stage
		}
		if countdown > 0 {
			c.countdownInterval = countdown
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

// WithLastKnown seeds the state the order was last seen in, so that only
// genuine changes are published after a restart.
func WithLastKnown(status models.OrderStatus, stage models.DeliveryStage) Option {
	return func(c *Controller) {
		c.lastStatus = status
		c.lastStage = stage
	}
}

// WithResolver swaps the next-delivery resolver.
func WithResolver(fn func(models.Schedule, time.Time) (models.DeliveryCandidate, bool)) Option {
	return func(c *Controller) { c.resolve = fn }
}

// Controller is safe for concurrent use. Evaluate, Cancel and Run may be
// called from different goroutines.
type Controller struct {
	orderID           string
	source            Source
	sink              Sink
	now               func() time.Time
	resolve           func(models.Schedule, time.Time) (models.DeliveryCandidate, bool)
	stageInterval     time.Duration
	countdownInterval time.Duration
	observers         []Observer
	log               *log.Logger

	clock     *countdown.Clock
	done      chan struct{}
	closeOnce sync.Once

	mu             sync.Mutex
	order          models.Order
	loaded         bool
	condition      Condition
	status         models.OrderStatus
	lastStatus     models.OrderStatus
	lastStage      models.DeliveryStage
	cancelInFlight bool
	live           bool
	target         time.Time
	last           Snapshot
}

func New(orderID string, source Source, sink Sink, opts ...Option) *Controller {
	c := &Controller{
		orderID:           orderID,
		source:            source,
		sink:              sink,
		now:               time.Now,
		resolve:           scheduler.Resolve,
		stageInterval:     constants.DefaultStageInterval,
		countdownInterval: constants.DefaultCountdownInterval,
		log:               logger.ForOrder(orderID),
		done:              make(chan struct{}),
		condition:         ConditionLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.clock = countdown.NewClock(c.countdownInterval, countdown.WithNow(c.now))
	return c
}

func (c *Controller) OrderID() string {
	return c.orderID
}

// Order returns the last loaded order document.
func (c *Controller) Order() models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order
}

// Load fetches the order. A failure of the first load leaves the controller
// in the terminal not-found condition; a failed reload keeps the last good
// state. A terminal status reported by the service is adopted immediately,
// and a locally terminal order never reverts to active.
func (c *Controller) Load(ctx context.Context) error {
	ord, err := c.source.FetchOrder(ctx, c.orderID)
	now := c.now()

	c.mu.Lock()
	if err != nil {
		if !c.loaded && !c.status.IsTerminal() {
			c.condition = ConditionNotFound
		}
		c.mu.Unlock()
		c.log.Warn("Failed to load order", "error", err)
		return fmt.Errorf("%w: %w", ErrDataLoad, err)
	}

	c.order = ord
	c.loaded = true
	if !c.status.IsTerminal() {
		c.status = ord.Status
		if c.status == "" {
			c.status = models.StatusActive
		}
	}
	c.condition = conditionFor(c.status)
	var events []Event
	if c.status.IsTerminal() {
		c.stopClockLocked()
		c.last, _ = c.evaluateLocked(now)
		events = c.statusChangeLocked(now, "reported by order service")
	}
	c.mu.Unlock()

	c.log.Debug("Loaded order", "status", ord.Status, "items", len(ord.Items))
	c.publish(events)
	return nil
}

// Evaluate derives the order's state at now. For an active order the
// resolver, the stage and the countdown all see the same instant.
func (c *Controller) Evaluate(now time.Time) Snapshot {
	c.mu.Lock()
	snap, events := c.evaluateLocked(now)
	c.mu.Unlock()

	c.publish(events)
	return snap
}

func (c *Controller) evaluateLocked(now time.Time) (Snapshot, []Event) {
	snap := Snapshot{
		OrderID:        c.orderID,
		Condition:      c.condition,
		Status:         c.status,
		CancelInFlight: c.cancelInFlight,
		At:             now,
	}
	if c.condition != ConditionActive {
		if c.status == models.StatusDelivered {
			snap.Stage = models.StageCompleted
		}
		snap.Message = c.condition.Message()
		c.last = snap
		return snap, nil
	}

	var events []Event
	cand, ok := c.resolve(c.order.Schedule, now)
	if !ok {
		if c.cancelInFlight {
			snap.Stage = models.StageCompleted
			c.last = snap
			return snap, nil
		}
		c.status = models.StatusDelivered
		c.condition = ConditionCompleted
		c.lastStage = models.StageCompleted
		c.stopClockLocked()
		snap.Condition = c.condition
		snap.Status = c.status
		snap.Stage = models.StageCompleted
		snap.Message = c.condition.Message()
		c.last = snap
		return snap, c.statusChangeLocked(now, "no deliveries remaining")
	}

	snap.Stage = scheduler.DeriveStage(cand, ok, c.status)
	snap.Candidate = &cand
	remaining := countdown.Remaining(cand.ScheduledAt, now)
	snap.Countdown = &remaining
	snap.Framing = countdown.Framing(cand.ScheduledAt, now)
	c.last = snap

	if c.lastStage != snap.Stage {
		events = append(events, c.eventLocked(models.NewTransition(c.orderID, models.TransitionStage,
			string(c.lastStage), string(snap.Stage), string(cand.MealCategory), now), snap))
		c.lastStage = snap.Stage
	}
	if c.lastStatus != c.status {
		events = append(c.statusChangeLocked(now, "order active"), events...)
	}

	if c.live && !cand.ScheduledAt.Equal(c.target) {
		c.target = cand.ScheduledAt
		c.clock.Start(cand.ScheduledAt)
	}
	return snap, events
}

// Cancel sends the cancel command and flips the order to cancelled once the
// service acknowledges it. Cancelling an already cancelled order is a no-op.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.status == models.StatusCancelled:
		c.mu.Unlock()
		return nil
	case c.status == models.StatusDelivered:
		c.mu.Unlock()
		return ErrAlreadyCompleted
	case c.condition != ConditionActive:
		c.mu.Unlock()
		return ErrNotLoaded
	case c.cancelInFlight:
		c.mu.Unlock()
		return ErrCancelInFlight
	}
	c.cancelInFlight = true
	c.mu.Unlock()

	c.log.Info("Sending cancel command")
	err := c.sink.CancelOrder(ctx, c.orderID)

	c.mu.Lock()
	c.cancelInFlight = false
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("Cancel command failed", "error", err)
		return fmt.Errorf("%w: %w", ErrCommand, err)
	}
	now := c.now()
	c.status = models.StatusCancelled
	c.condition = ConditionCancelled
	c.stopClockLocked()
	c.last = Snapshot{
		OrderID:   c.orderID,
		Condition: c.condition,
		Status:    c.status,
		Message:   c.condition.Message(),
		At:        now,
	}
	events := c.statusChangeLocked(now, "cancelled by user")
	c.mu.Unlock()

	c.publish(events)
	return nil
}

// Last returns the most recent snapshot without re-evaluating.
func (c *Controller) Last() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Run evaluates the order on the stage cadence and forwards countdown
// updates in between, calling emit with each snapshot. It returns once the
// order reaches a terminal condition, ctx ends or Close is called.
func (c *Controller) Run(ctx context.Context, emit func(Snapshot)) error {
	c.mu.Lock()
	c.live = true
	c.target = time.Time{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.live = false
		c.stopClockLocked()
		c.mu.Unlock()
	}()

	ticker := time.NewTicker(c.stageInterval)
	defer ticker.Stop()

	snap := c.Evaluate(c.now())
	emit(snap)
	for !snap.Condition.IsTerminal() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-ticker.C:
			snap = c.Evaluate(c.now())
		case b := <-c.clock.Updates():
			if b.Done {
				snap = c.Evaluate(c.now())
				break
			}
			snap = c.withCountdown(b)
		}
		emit(snap)
	}
	return nil
}

// withCountdown refreshes the countdown of the last snapshot between stage
// evaluations.
func (c *Controller) withCountdown(b countdown.Breakdown) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.last
	if snap.Condition == ConditionActive && snap.Countdown != nil {
		snap.Countdown = &b
		snap.At = c.now()
		c.last = snap
	}
	return snap
}

// Close stops Run and releases the countdown clock.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.mu.Lock()
	c.stopClockLocked()
	c.mu.Unlock()
}

func (c *Controller) stopClockLocked() {
	c.clock.Stop()
	c.target = time.Time{}
}

func (c *Controller) statusChangeLocked(now time.Time, reason string) []Event {
	if c.lastStatus == c.status {
		return nil
	}
	tr := models.NewTransition(c.orderID, models.TransitionStatus, string(c.lastStatus), string(c.status), reason, now)
	c.lastStatus = c.status
	return []Event{c.eventLocked(tr, c.last)}
}

func (c *Controller) eventLocked(tr models.Transition, snap Snapshot) Event {
	snap.OrderID = c.orderID
	snap.Status = c.status
	snap.Condition = c.condition
	return Event{Transition: tr, Snapshot: snap}
}

func (c *Controller) publish(events []Event) {
	if len(events) == 0 || len(c.observers) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
	defer cancel()
	for _, ev := range events {
		for _, o := range c.observers {
			if err := o.Observe(ctx, ev); err != nil {
				c.log.Warn("Observer failed", "kind", ev.Transition.Kind, "to", ev.Transition.To, "error", err)
			}
		}
	}
}

func conditionFor(status models.OrderStatus) Condition {
	switch status {
	case models.StatusCancelled:
		return ConditionCancelled
	case models.StatusDelivered:
		return ConditionCompleted
	default:
		return ConditionActive
	}
}
