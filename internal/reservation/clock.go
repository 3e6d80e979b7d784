package reservation

import (
	"sync"
	"time"

	"github.com/five82/feeder/internal/clock"
	"github.com/five82/feeder/internal/model"
)

const tickInterval = time.Second

// Clock schedules the expiry of the active reservation and reports the
// remaining time once per second while armed. Every Arm starts a new
// generation; callbacks from older generations are ignored.
type Clock struct {
	src    clock.Clock
	onTick func(time.Duration)

	mu     sync.Mutex
	gen    uint64
	expiry clock.Timer
	tick   clock.Timer
}

// NewClock returns a disarmed Clock driven by src. onTick receives the
// remaining time on arm, on each tick, and zero on expiry.
func NewClock(src clock.Clock, onTick func(time.Duration)) *Clock {
	if onTick == nil {
		onTick = func(time.Duration) {}
	}
	return &Clock{src: src, onTick: onTick}
}

// Remaining is max(0, window - (now - startedAt)).
func Remaining(startedAt time.Time, window time.Duration, now time.Time) time.Duration {
	return model.RemainingTime(startedAt, window, now)
}

// Arm replaces any armed reservation with one that started at startedAt.
// onExpire runs once when the window elapses unless Disarm or Arm is called
// first. An already elapsed window fires onExpire immediately.
func (c *Clock) Arm(startedAt time.Time, window time.Duration, onExpire func()) {
	c.mu.Lock()
	c.stopLocked()
	c.gen++
	gen := c.gen

	left := Remaining(startedAt, window, c.src.Now())
	if left <= 0 {
		c.gen++
		c.mu.Unlock()
		c.onTick(0)
		onExpire()
		return
	}

	c.expiry = c.src.AfterFunc(left, func() {
		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		c.stopLocked()
		c.gen++
		c.mu.Unlock()
		c.onTick(0)
		onExpire()
	})
	c.scheduleTickLocked(gen, startedAt, window)
	c.mu.Unlock()

	c.onTick(left)
}

// Disarm cancels the pending expiry and ticks. It is a no-op when disarmed.
func (c *Clock) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expiry == nil && c.tick == nil {
		return
	}
	c.stopLocked()
	c.gen++
}

// Armed reports whether an expiry is pending.
func (c *Clock) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiry != nil
}

func (c *Clock) scheduleTickLocked(gen uint64, startedAt time.Time, window time.Duration) {
	c.tick = c.src.AfterFunc(tickInterval, func() {
		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		left := Remaining(startedAt, window, c.src.Now())
		if left > 0 {
			c.scheduleTickLocked(gen, startedAt, window)
		} else {
			c.tick = nil
		}
		c.mu.Unlock()
		if left > 0 {
			c.onTick(left)
		}
	})
}

func (c *Clock) stopLocked() {
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
	if c.tick != nil {
		c.tick.Stop()
		c.tick = nil
	}
}
