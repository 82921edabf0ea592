package schedule

import (
	"sync"
	"time"
)

// Clock reports the current simulation time.
type Clock interface {
	Now() time.Time
}

// SimClock is a Clock advanced explicitly by the tick driver.
type SimClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewSimClock starts a clock at start.
func NewSimClock(start time.Time) *SimClock {
	return &SimClock{now: start}
}

// Now returns the current simulation time.
func (c *SimClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time. Negative d
// is ignored.
func (c *SimClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return c.now
}
