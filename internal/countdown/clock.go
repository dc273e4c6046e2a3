package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/dietline/internal/constants"
)

// Clock emits a Breakdown for its current target on a fixed interval. It
// sends a final all-zero value and goes idle once the target has passed.
// Consumers that fall behind only ever see the latest value.
type Clock struct {
	interval time.Duration
	now      func() time.Time
	updates  chan Breakdown

	mu      sync.Mutex
	gen     uint64
	target  time.Time
	running bool
	cancel  context.CancelFunc
}

type Option func(*Clock)

// WithNow replaces the wall clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) { c.now = now }
}

func NewClock(interval time.Duration, opts ...Option) *Clock {
	if interval <= 0 {
		interval = constants.DefaultCountdownInterval
	}
	c := &Clock{
		interval: interval,
		now:      time.Now,
		updates:  make(chan Breakdown, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Updates returns the channel breakdowns are delivered on. It is shared
// across restarts and never closed.
func (c *Clock) Updates() <-chan Breakdown {
	return c.updates
}

// Start begins counting down to target, replacing any previous target and
// discarding an undelivered value computed for it.
func (c *Clock) Start(target time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.target = target
	c.running = true
	// Values for the previous target are stale.
	select {
	case <-c.updates:
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.loop(ctx, c.gen, target)
}

// Stop halts the clock. Pending values are left on the channel.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.running = false
}

// Target returns the instant the clock is counting towards and whether it
// is still running.
func (c *Clock) Target() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target, c.running
}

func (c *Clock) loop(ctx context.Context, gen uint64, target time.Time) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		b := Remaining(target, c.now())
		if !c.publish(gen, b) {
			return
		}
		if b.Done {
			c.mu.Lock()
			if c.gen == gen {
				c.running = false
			}
			c.mu.Unlock()
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// publish delivers b unless this loop has been superseded.
func (c *Clock) publish(gen uint64, b Breakdown) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	select {
	case c.updates <- b:
	default:
		select {
		case <-c.updates:
		default:
		}
		c.updates <- b
	}
	return true
}
