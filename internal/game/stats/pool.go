package stats

import (
	"math"
	"time"

	"github.com/marcaocj/R1/internal/game/damage"
)

// Pool is a bounded resource such as health or mana.
//
// Invariant: 0 <= Current() <= Max().
type Pool struct {
	current float64
	max     float64
}

// NewPool returns a full pool of capacity max. Negative max is treated as 0.
func NewPool(max float64) Pool {
	max = math.Max(0, max)
	return Pool{current: max, max: max}
}

func (p *Pool) Current() float64 { return p.current }
func (p *Pool) Max() float64     { return p.max }

// Fraction returns Current/Max, or 0 for an empty-capacity pool.
func (p *Pool) Fraction() float64 {
	if p.max <= 0 {
		return 0
	}
	return p.current / p.max
}

// Full reports whether the pool is at capacity.
func (p *Pool) Full() bool { return p.current >= p.max }

// Empty reports whether the pool is drained.
func (p *Pool) Empty() bool { return p.current <= 0 }

// Drain subtracts amount, flooring at 0, and returns what was removed.
func (p *Pool) Drain(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	before := p.current
	p.current = math.Max(0, p.current-amount)
	return before - p.current
}

// Restore adds amount, capping at Max, and returns what was added.
func (p *Pool) Restore(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	before := p.current
	p.current = math.Min(p.max, p.current+amount)
	return p.current - before
}

// Spend removes amount only if the pool holds at least that much.
//
// Postcondition: returns false and leaves the pool unchanged when
// Current() < amount.
func (p *Pool) Spend(amount float64) bool {
	if amount <= 0 {
		return true
	}
	if p.current < amount {
		return false
	}
	p.current -= amount
	return true
}

// Fill sets Current to Max.
func (p *Pool) Fill() { p.current = p.max }

// Zero sets Current to 0.
func (p *Pool) Zero() { p.current = 0 }

// SetMax changes capacity. When proportional is true the current value keeps
// its fraction of capacity; otherwise it is clamped into the new range.
func (p *Pool) SetMax(max float64, proportional bool) {
	max = math.Max(0, max)
	if proportional && p.max > 0 {
		p.current = max * (p.current / p.max)
	}
	p.max = max
	p.current = math.Min(p.current, p.max)
}

// HealthPool pairs the health and mana pools of one actor.
type HealthPool struct {
	Health Pool
	Mana   Pool
}

// NewHealthPool returns full pools with the given capacities.
func NewHealthPool(maxHealth, maxMana float64) *HealthPool {
	return &HealthPool{Health: NewPool(maxHealth), Mana: NewPool(maxMana)}
}

// Mitigate resolves raw damage against res and armor without mutating anything.
func (h *HealthPool) Mitigate(raw float64, t damage.Type, res damage.Resistances, armor float64) float64 {
	return damage.Resolve(raw, t, res, armor)
}

// Regenerate restores health and mana at the given per-second rates over dt
// and returns the amounts actually restored.
func (h *HealthPool) Regenerate(healthPerSec, manaPerSec float64, dt time.Duration) (health, mana float64) {
	secs := dt.Seconds()
	return h.Health.Restore(healthPerSec * secs), h.Mana.Restore(manaPerSec * secs)
}
