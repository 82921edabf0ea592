package world

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Driver runs registered tick callbacks at a fixed simulated step.
//
// Invariant: every callback receives the same dt and is invoked at most once
// per step, in name order.
type Driver struct {
	interval time.Duration
	realtime bool
	logger   *zap.Logger

	mu        sync.Mutex
	ticks     map[string]tickFunc
	steps     uint64
	simulated time.Duration
}

type tickFunc struct {
	fn    func(dt time.Duration) bool
	clock bool
}

// NewDriver returns a driver stepping by interval. A realtime driver paces
// steps with a wall-clock ticker; otherwise steps run back to back.
//
// Precondition: interval must be > 0.
func NewDriver(interval time.Duration, realtime bool, logger *zap.Logger) *Driver {
	if interval <= 0 {
		panic("world.NewDriver: interval must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		interval: interval,
		realtime: realtime,
		logger:   logger,
		ticks:    make(map[string]tickFunc),
	}
}

// RegisterTick registers fn under name. Replaces any existing callback.
func (d *Driver) RegisterTick(name string, fn func(dt time.Duration)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticks[name] = tickFunc{fn: func(dt time.Duration) bool { fn(dt); return true }}
}

// RegisterClock registers fn under name as a clock: it reports whether
// simulated time advanced in that step, as World.Tick does. Once any clock
// is registered, only steps in which a clock advanced count toward Run's
// duration.
func (d *Driver) RegisterClock(name string, fn func(dt time.Duration) bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticks[name] = tickFunc{fn: fn, clock: true}
}

// Unregister removes the callback registered under name.
func (d *Driver) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.ticks, name)
}

// Steps returns the number of completed steps.
func (d *Driver) Steps() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.steps
}

// Simulated returns the simulated time Run has counted so far.
func (d *Driver) Simulated() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.simulated
}

// Run steps until ctx is cancelled or, when duration > 0, until duration of
// simulated time has elapsed. Steps in which every registered clock stood
// still, such as while the world is paused, do not count toward duration;
// a world paused for good therefore runs until ctx is cancelled.
// Cancellation is a normal stop and returns nil.
func (d *Driver) Run(ctx context.Context, duration time.Duration) error {
	var ticker *time.Ticker
	if d.realtime {
		ticker = time.NewTicker(d.interval)
		defer ticker.Stop()
	}
	var elapsed time.Duration
	for duration <= 0 || elapsed < duration {
		if ticker != nil {
			select {
			case <-ctx.Done():
				d.logger.Info("driver stopped", zap.Duration("simulated", elapsed))
				return nil
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			d.logger.Info("driver stopped", zap.Duration("simulated", elapsed))
			return nil
		}
		if d.step() {
			elapsed += d.interval
		}
	}
	d.logger.Info("driver finished", zap.Duration("simulated", elapsed))
	return nil
}

// step runs every callback once and reports whether simulated time moved.
func (d *Driver) step() bool {
	d.mu.Lock()
	names := make([]string, 0, len(d.ticks))
	callbacks := make(map[string]tickFunc, len(d.ticks))
	clocks := false
	for k, v := range d.ticks {
		names = append(names, k)
		callbacks[k] = v
		clocks = clocks || v.clock
	}
	d.mu.Unlock()

	sort.Strings(names)
	advanced := !clocks
	for _, name := range names {
		cb := callbacks[name]
		if ran := cb.fn(d.interval); cb.clock && ran {
			advanced = true
		}
	}

	d.mu.Lock()
	d.steps++
	if advanced {
		d.simulated += d.interval
	}
	d.mu.Unlock()
	return advanced
}
