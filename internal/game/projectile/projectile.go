// Package projectile simulates skill projectiles: straight or homing flight,
// piercing, area splash and distance falloff.
package projectile

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/damage"
	"github.com/marcaocj/R1/internal/game/geom"
)

const (
	// splashFactor scales damage dealt to actors caught in the area radius.
	splashFactor = 0.7
	// hitRadius is how close to the flight path an actor must be to be struck.
	hitRadius = 0.5
)

// Config describes one projectile skill.
type Config struct {
	Speed      float64       `yaml:"speed"`
	Lifetime   time.Duration `yaml:"lifetime"`
	Damage     float64       `yaml:"damage"`
	DamageType damage.Type   `yaml:"damage_type"`

	Piercing         bool `yaml:"piercing"`
	MaxPierceTargets int  `yaml:"max_pierce_targets"`

	Homing         bool    `yaml:"homing"`
	HomingStrength float64 `yaml:"homing_strength"`
	HomingRange    float64 `yaml:"homing_range"`

	AOERadius float64 `yaml:"aoe_radius"`

	// Damage is full up to FalloffStart from the launch point and falls
	// linearly to 0 at FalloffEnd. Zero values take 10 and 30.
	FalloffStart float64 `yaml:"falloff_start"`
	FalloffEnd   float64 `yaml:"falloff_end"`
}

// Validate returns the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Speed <= 0:
		return fmt.Errorf("projectile: speed must be > 0")
	case c.Lifetime <= 0:
		return fmt.Errorf("projectile: lifetime must be > 0")
	case c.Damage < 0:
		return fmt.Errorf("projectile: damage must be >= 0")
	case c.Piercing && c.MaxPierceTargets < 1:
		return fmt.Errorf("projectile: max_pierce_targets must be >= 1 when piercing")
	case c.Homing && (c.HomingStrength <= 0 || c.HomingRange <= 0):
		return fmt.Errorf("projectile: homing needs positive strength and range")
	case c.AOERadius < 0:
		return fmt.Errorf("projectile: aoe_radius must be >= 0")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.FalloffStart == 0 {
		c.FalloffStart = 10
	}
	if c.FalloffEnd == 0 {
		c.FalloffEnd = 30
	}
	return c
}

// Falloff returns the damage multiplier at dist from the launch point.
func (c Config) Falloff(dist float64) float64 {
	c = c.withDefaults()
	switch {
	case dist <= c.FalloffStart:
		return 1
	case dist >= c.FalloffEnd:
		return 0
	default:
		return 1 - (dist-c.FalloffStart)/(c.FalloffEnd-c.FalloffStart)
	}
}

// Obstacles reports whether the straight segment from a to b is blocked.
type Obstacles interface {
	Blocked(from, to geom.Vec3) bool
}

// Impact is one damage application made by a projectile.
type Impact struct {
	TargetID string
	Amount   float64
	Splash   bool
	Landed   bool
}

// Projectile is one live shot.
//
// Not safe for concurrent use.
type Projectile struct {
	cfg       Config
	caster    actor.Actor
	world     actor.PerceptionQuery
	obstacles Obstacles
	logger    *zap.Logger

	origin geom.Vec3
	pos    geom.Vec3
	dir    geom.Vec3
	age    time.Duration
	target actor.Damageable
	struck map[string]struct{}
	pierce int
	done   bool
}

// Launch fires a projectile from origin along dir on behalf of caster.
//
// Precondition: cfg is valid and world is non-nil. obstacles may be nil.
func Launch(cfg Config, caster actor.Actor, origin, dir geom.Vec3, world actor.PerceptionQuery, obstacles Obstacles, logger *zap.Logger) *Projectile {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := dir.Flat().Normalize()
	if d == geom.Zero && caster != nil {
		d = geom.Forward(caster.Facing())
	}
	return &Projectile{
		cfg:       cfg.withDefaults(),
		caster:    caster,
		world:     world,
		obstacles: obstacles,
		logger:    logger,
		origin:    origin,
		pos:       origin,
		dir:       d,
		struck:    make(map[string]struct{}),
	}
}

// Position returns the current position.
func (p *Projectile) Position() geom.Vec3 { return p.pos }

// Direction returns the unit flight direction.
func (p *Projectile) Direction() geom.Vec3 { return p.dir }

// Done reports whether the projectile has expired, been stopped, or spent
// its last hit.
func (p *Projectile) Done() bool { return p.done }

// SetTarget locks a homing projectile onto t.
func (p *Projectile) SetTarget(t actor.Damageable) { p.target = t }

// Tick advances the projectile by dt and returns every impact it made.
func (p *Projectile) Tick(dt time.Duration) []Impact {
	if p.done {
		return nil
	}
	p.age += dt
	if p.age >= p.cfg.Lifetime {
		p.done = true
		return nil
	}
	if p.cfg.Homing {
		p.steer(dt)
	}

	next := p.pos.Add(p.dir.Scale(p.cfg.Speed * dt.Seconds()))
	if p.obstacles != nil && p.obstacles.Blocked(p.pos, next) {
		p.logger.Debug("projectile blocked", zap.Any("at", p.pos))
		p.done = true
		return nil
	}

	var impacts []Impact
	for _, t := range p.alongPath(p.pos, next) {
		if !p.eligible(t) {
			continue
		}
		impacts = append(impacts, p.strike(t)...)
		if p.done {
			return impacts
		}
	}
	p.pos = next
	return impacts
}

// steer turns towards the homing target, acquiring the nearest living actor
// in range when there is none.
func (p *Projectile) steer(dt time.Duration) {
	if p.target == nil || !p.target.IsAlive() {
		p.target = p.nearest()
	}
	if p.target == nil {
		return
	}
	want := p.target.Position().Sub(p.pos).Flat().Normalize()
	if want == geom.Zero {
		return
	}
	t := math.Min(1, p.cfg.HomingStrength*dt.Seconds())
	if d := geom.Lerp(p.dir, want, t).Normalize(); d != geom.Zero {
		p.dir = d
	}
}

func (p *Projectile) nearest() actor.Damageable {
	var best actor.Damageable
	bestDist := math.Inf(1)
	for _, a := range p.world.FindNearbyActors(p.pos, p.cfg.HomingRange, p.eligible) {
		t := a.(actor.Damageable)
		if d := p.pos.FlatDist(t.Position()); d < bestDist {
			best, bestDist = t, d
		}
	}
	return best
}

// eligible accepts living damageable actors other than the caster that have
// not been struck yet.
func (p *Projectile) eligible(a actor.Actor) bool {
	if p.caster != nil && a.ID() == p.caster.ID() {
		return false
	}
	if _, hit := p.struck[a.ID()]; hit {
		return false
	}
	t, ok := a.(actor.Damageable)
	return ok && t.IsAlive()
}

// alongPath returns eligible actors within hitRadius of segment a-b, ordered
// by distance along the flight.
func (p *Projectile) alongPath(a, b geom.Vec3) []actor.Damageable {
	mid := geom.Lerp(a, b, 0.5)
	reach := a.FlatDist(b)/2 + hitRadius
	type hit struct {
		t     actor.Damageable
		along float64
	}
	var hits []hit
	for _, c := range p.world.FindNearbyActors(mid, reach, p.eligible) {
		t := c.(actor.Damageable)
		along, dist := project(a, b, t.Position())
		if dist <= hitRadius {
			hits = append(hits, hit{t: t, along: along})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].along < hits[j].along })
	out := make([]actor.Damageable, len(hits))
	for i, h := range hits {
		out[i] = h.t
	}
	return out
}

// project returns how far along a-b the closest point to q lies, and q's
// distance from the segment, on the floor plane.
func project(a, b, q geom.Vec3) (along, dist float64) {
	a, b, q = a.Flat(), b.Flat(), q.Flat()
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return 0, q.Dist(a)
	}
	t := math.Max(0, math.Min(1, q.Sub(a).Dot(ab)/l2))
	closest := a.Add(ab.Scale(t))
	return t * math.Sqrt(l2), q.Dist(closest)
}

func (p *Projectile) strike(t actor.Damageable) []Impact {
	at := t.Position()
	amount := p.cfg.Damage * p.cfg.Falloff(p.origin.FlatDist(at))
	impacts := []Impact{p.apply(t, amount, false)}

	if p.cfg.AOERadius > 0 {
		for _, a := range p.world.FindNearbyActors(at, p.cfg.AOERadius, p.eligible) {
			impacts = append(impacts, p.apply(a.(actor.Damageable), amount*splashFactor, true))
		}
	}

	if !p.cfg.Piercing {
		p.done = true
		return impacts
	}
	p.pierce++
	if p.pierce >= p.cfg.MaxPierceTargets {
		p.done = true
	}
	return impacts
}

func (p *Projectile) apply(t actor.Damageable, amount float64, splash bool) Impact {
	p.struck[t.ID()] = struct{}{}
	landed := t.TakeDamage(actor.Hit{Amount: amount, Type: p.cfg.DamageType, Attacker: p.caster})
	return Impact{TargetID: t.ID(), Amount: amount, Splash: splash, Landed: landed}
}

// Set owns every live projectile in the arena.
type Set struct {
	live []*Projectile
}

// Add tracks p until it is done.
func (s *Set) Add(p *Projectile) { s.live = append(s.live, p) }

// Len returns the number of live projectiles.
func (s *Set) Len() int { return len(s.live) }

// Tick advances every projectile and drops the finished ones.
func (s *Set) Tick(dt time.Duration) []Impact {
	var impacts []Impact
	kept := s.live[:0]
	for _, p := range s.live {
		impacts = append(impacts, p.Tick(dt)...)
		if !p.Done() {
			kept = append(kept, p)
		}
	}
	clear(s.live[len(kept):])
	s.live = kept
	return impacts
}
