package combat

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/damage"
	"github.com/marcaocj/R1/internal/game/dice"
	"github.com/marcaocj/R1/internal/game/geom"
	"github.com/marcaocj/R1/internal/game/schedule"
	"github.com/marcaocj/R1/internal/game/stats"
)

const (
	comboDamageStep     = 0.1
	attributeDamageRate = 0.5
)

// Attacker is the actor performing attacks.
type Attacker interface {
	actor.Actor
	IsAlive() bool
	IsStunned() bool
	Block() *stats.Block
	// SpendMana removes cost all-or-nothing and reports success.
	SpendMana(cost float64) bool
}

// Config tunes combo chaining.
type Config struct {
	// ComboWindow is the longest gap between attacks that still chains.
	ComboWindow time.Duration
	// ComboReset is the idle time after which the combo counter drops to 0.
	ComboReset time.Duration
	MaxCombo   int
}

// DefaultConfig returns the stock combo tuning.
func DefaultConfig() Config {
	return Config{ComboWindow: 2 * time.Second, ComboReset: 3 * time.Second, MaxCombo: 3}
}

// Reason explains why PerformAttack did nothing.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonDead     Reason = "dead"
	ReasonStunned  Reason = "stunned"
	ReasonCooldown Reason = "cooldown"
	ReasonNoMana   Reason = "insufficient mana"
)

// HitReport is one target damaged by an attack.
type HitReport struct {
	TargetID string
	Amount   float64
	Critical bool
	Landed   bool
}

// Result is the outcome of one PerformAttack call.
type Result struct {
	Performed bool
	Reason    Reason
	Combo     int
	Hits      []HitReport
}

// Combat performs attacks on behalf of one Attacker.
//
// Not safe for concurrent use.
type Combat struct {
	self       Attacker
	perception actor.PerceptionQuery
	clock      schedule.Clock
	dice       *dice.Roller
	cfg        Config
	logger     *zap.Logger

	lastAttack time.Time
	combo      int
}

// New creates a Combat for self. Zero cfg fields take DefaultConfig values.
//
// Precondition: self, clock and roller are non-nil. perception may be nil, in
// which case attacks never find targets.
func New(self Attacker, perception actor.PerceptionQuery, clock schedule.Clock, roller *dice.Roller, cfg Config, logger *zap.Logger) *Combat {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := DefaultConfig()
	if cfg.ComboWindow <= 0 {
		cfg.ComboWindow = d.ComboWindow
	}
	if cfg.ComboReset <= 0 {
		cfg.ComboReset = d.ComboReset
	}
	if cfg.MaxCombo <= 0 {
		cfg.MaxCombo = d.MaxCombo
	}
	return &Combat{
		self:       self,
		perception: perception,
		clock:      clock,
		dice:       roller,
		cfg:        cfg,
		logger:     logger.With(zap.String("attacker", self.ID())),
	}
}

// Cooldown returns the minimum gap between attacks, 1/attackSpeed seconds.
// A non-positive attack speed counts as 1.
func (c *Combat) Cooldown() time.Duration {
	speed := c.self.Block().AttackSpeed(c.clock.Now())
	if speed <= 0 {
		speed = 1
	}
	return time.Duration(float64(time.Second) / speed)
}

// Ready reports whether the cooldown has elapsed.
func (c *Combat) Ready() bool {
	return c.lastAttack.IsZero() || c.clock.Now().Sub(c.lastAttack) >= c.Cooldown()
}

// Combo returns the current combo counter, 0 after ComboReset of idleness.
func (c *Combat) Combo() int {
	if c.lastAttack.IsZero() || c.clock.Now().Sub(c.lastAttack) > c.cfg.ComboReset {
		return 0
	}
	return c.combo
}

// PerformAttack validates, pays for and resolves one attack with p.
//
// Postcondition: when Performed is false nothing changed, including mana. When
// true, each candidate inside the cone was offered damage exactly once with
// the attacker forwarded.
func (c *Combat) PerformAttack(p Profile) Result {
	switch {
	case !c.self.IsAlive():
		return c.reject(p, ReasonDead)
	case c.self.IsStunned():
		return c.reject(p, ReasonStunned)
	case !c.Ready():
		return c.reject(p, ReasonCooldown)
	}
	if p.ManaCost > 0 && !c.self.SpendMana(p.ManaCost) {
		return c.reject(p, ReasonNoMana)
	}

	now := c.clock.Now()
	if !c.lastAttack.IsZero() && now.Sub(c.lastAttack) < c.cfg.ComboWindow {
		c.combo = min(c.combo+1, c.cfg.MaxCombo)
	} else {
		c.combo = 1
	}
	c.lastAttack = now

	res := Result{Performed: true, Combo: c.combo}
	for _, target := range c.targets(p) {
		res.Hits = append(res.Hits, c.strike(p, target, now))
	}
	c.logger.Debug("attack performed",
		zap.String("profile", p.Name),
		zap.Int("combo", res.Combo),
		zap.Int("hits", len(res.Hits)),
	)
	return res
}

func (c *Combat) reject(p Profile, reason Reason) Result {
	c.logger.Debug("attack rejected", zap.String("profile", p.Name), zap.String("reason", string(reason)))
	return Result{Reason: reason}
}

// targets returns the damageable actors inside p's cone, each once, nearest
// first.
func (c *Combat) targets(p Profile) []actor.Damageable {
	if c.perception == nil {
		return nil
	}
	origin := c.self.Position()
	forward := geom.Forward(c.self.Facing())
	seen := make(map[string]struct{})
	var out []actor.Damageable
	for _, a := range c.perception.FindNearbyActors(origin, p.Range, actor.Except(c.self.ID())) {
		target, ok := a.(actor.Damageable)
		if !ok || !target.IsAlive() {
			continue
		}
		if _, dup := seen[target.ID()]; dup {
			continue
		}
		if !InCone(origin, forward, target.Position(), p.Range, p.Angle) {
			continue
		}
		seen[target.ID()] = struct{}{}
		out = append(out, target)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return origin.FlatDist(out[i].Position()) < origin.FlatDist(out[j].Position())
	})
	return out
}

// InCone reports whether pos lies within reach of origin and within angle/2
// degrees of forward on the floor plane. A target on top of the origin is
// always inside.
func InCone(origin, forward, pos geom.Vec3, reach, angle float64) bool {
	if origin.FlatDist(pos) > reach {
		return false
	}
	return geom.AngleDeg(forward, pos.Sub(origin)) <= angle/2
}

func (c *Combat) strike(p Profile, target actor.Damageable, now time.Time) HitReport {
	block := c.self.Block()
	amount := block.Damage(now)*p.DamageMultiplier*(1+comboDamageStep*float64(c.combo)) +
		attributeBonus(block.Attributes(now), p.DamageType)

	critical := false
	if chance := block.CriticalChance(now); chance > 0 && c.dice.Percent("crit:"+target.ID()) < chance {
		critical = true
		amount *= block.CriticalDamage(now) / 100
	}

	landed := target.TakeDamage(actor.Hit{
		Amount:   amount,
		Type:     p.DamageType,
		Attacker: c.self,
		Critical: critical,
	})
	if landed {
		c.afterEffects(p, target)
	}
	return HitReport{TargetID: target.ID(), Amount: amount, Critical: critical, Landed: landed}
}

func (c *Combat) afterEffects(p Profile, target actor.Damageable) {
	if !target.IsAlive() {
		return
	}
	if p.KnockbackForce > 0 {
		if kb, ok := target.(actor.Knockbackable); ok {
			dir := target.Position().Sub(c.self.Position()).Flat().Normalize()
			kb.ApplyKnockback(dir.Scale(p.KnockbackForce))
		}
	}
	if p.StunDuration > 0 {
		if st, ok := target.(actor.Stunnable); ok {
			st.Stun(p.StunDuration)
		}
	}
}

// attributeBonus is the flat damage added by the governing attribute.
func attributeBonus(a stats.Attributes, t damage.Type) float64 {
	switch t {
	case damage.Physical:
		return float64(a.Strength) * attributeDamageRate
	case damage.Magic, damage.Fire, damage.Cold, damage.Lightning:
		return float64(a.Intelligence) * attributeDamageRate
	default:
		return 0
	}
}
