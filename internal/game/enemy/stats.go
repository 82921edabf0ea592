package enemy

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/dice"
	"github.com/marcaocj/R1/internal/game/event"
	"github.com/marcaocj/R1/internal/game/geom"
	"github.com/marcaocj/R1/internal/game/loot"
	"github.com/marcaocj/R1/internal/game/schedule"
	"github.com/marcaocj/R1/internal/game/stats"
)

// lootScatter is the radius around the corpse that drops are placed within.
const lootScatter = 2.0

// Lifecycle is the single source of truth for whether an enemy can be hurt.
type Lifecycle int

const (
	Alive Lifecycle = iota
	// Dying covers the death sequence itself; every mutator is already closed.
	Dying
	Dead
)

func (l Lifecycle) String() string {
	switch l {
	case Alive:
		return "alive"
	case Dying:
		return "dying"
	default:
		return "dead"
	}
}

// Listener receives the per-enemy notifications the behaviour controller
// consumes. *ai.Controller satisfies it.
type Listener interface {
	OnDamageTaken(amount float64, source geom.Vec3, attacker actor.Actor)
	OnDeath()
	Stun(d time.Duration)
}

// Presenter is the visual side of one enemy.
type Presenter interface {
	HealthChanged(current, max float64)
	PlayDeath()
	RemoveOverlay()
}

// CorpseBody hands the dead body over to physics.
type CorpseBody interface {
	Freeze()
	Ragdoll(impulse geom.Vec3)
}

// Despawner removes an actor from the world once its corpse has expired.
type Despawner interface {
	Despawn(id string)
}

// DeathReport is handed to death hooks after the sequence has torn the enemy
// down.
type DeathReport struct {
	EnemyID    string
	TemplateID string
	Name       string
	Level      int
	Position   geom.Vec3
	KillerID   string
	ByPlayer   bool
	Drops      []loot.Drop
}

// DeathHook observes a completed death, e.g. a scripted callback.
type DeathHook func(DeathReport)

// Deps are the shared services a Stats instance publishes to and schedules on.
type Deps struct {
	Bus     *event.Bus
	Queue   *schedule.Queue
	Clock   schedule.Clock
	Dice    *dice.Roller
	Loot    *loot.Roller
	Spawner loot.Spawner
	// CorpseLifetime is used when the template leaves corpse.lifetime unset.
	CorpseLifetime time.Duration
	DeathHook      DeathHook
	Logger         *zap.Logger
}

// Stats is the health and death authority of one enemy. It owns the health
// pool, resolves incoming hits, attributes the kill and runs the death
// sequence exactly once.
//
// Not safe for concurrent use; the tick driver serialises every call. Re-entrant
// calls from event handlers are safe.
type Stats struct {
	self   actor.Actor
	tmpl   *Template
	block  *stats.Block
	pool   *stats.HealthPool
	deps   Deps
	logger *zap.Logger

	life         Lifecycle
	invulnerable time.Duration
	lastAttacker actor.Actor

	move      actor.MovementController
	listener  Listener
	presenter Presenter
	corpse    CorpseBody
	despawner Despawner
}

// NewStats creates the stats of self from tmpl at full health.
//
// Precondition: self, tmpl, deps.Bus, deps.Queue, deps.Clock, deps.Dice and
// deps.Loot are non-nil.
// Postcondition: the enemy is Alive with health equal to its max health.
func NewStats(self actor.Actor, tmpl *Template, deps Deps) *Stats {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stats{
		self:   self,
		tmpl:   tmpl,
		block:  stats.NewBlock(tmpl.Stats, stats.FlatStats),
		deps:   deps,
		logger: logger.With(zap.String("enemy", self.ID()), zap.String("template", tmpl.ID)),
	}
	s.resetPool()
	return s
}

func (s *Stats) resetPool() {
	now := s.deps.Clock.Now()
	s.pool = stats.NewHealthPool(s.block.MaxHealth(now), s.block.MaxMana(now))
}

// SetMovement attaches the movement collaborator torn down on death.
func (s *Stats) SetMovement(m actor.MovementController) { s.move = m }

// SetListener attaches the behaviour controller.
func (s *Stats) SetListener(l Listener) { s.listener = l }

// SetPresenter attaches the visual side.
func (s *Stats) SetPresenter(p Presenter) { s.presenter = p }

// SetCorpse attaches the physics body used after death.
func (s *Stats) SetCorpse(c CorpseBody) { s.corpse = c }

// SetDespawner attaches the world that removes expired corpses.
func (s *Stats) SetDespawner(d Despawner) { s.despawner = d }

// Template returns the template this enemy was built from.
func (s *Stats) Template() *Template { return s.tmpl }

// Block returns the stat block.
func (s *Stats) Block() *stats.Block { return s.block }

// Level returns the enemy's level.
func (s *Stats) Level() int { return s.block.Base.Level }

// Lifecycle returns the current lifecycle stage.
func (s *Stats) Lifecycle() Lifecycle { return s.life }

// IsAlive reports whether the enemy still accepts damage.
func (s *Stats) IsAlive() bool { return s.life == Alive }

// Health returns the current health.
func (s *Stats) Health() float64 { return s.pool.Health.Current() }

// MaxHealth returns the health capacity.
func (s *Stats) MaxHealth() float64 { return s.pool.Health.Max() }

// HealthFraction returns health/max in [0, 1].
func (s *Stats) HealthFraction() float64 { return s.pool.Health.Fraction() }

// LastAttacker returns the actor credited with the most recent landed hit.
func (s *Stats) LastAttacker() actor.Actor { return s.lastAttacker }

// Invulnerable reports whether an invulnerability window is running.
func (s *Stats) Invulnerable() bool { return s.invulnerable > 0 }

// TakeDamage resolves hit against the enemy's resistances and armor and
// drains health.
//
// Postcondition: returns false and changes nothing when the enemy is not
// Alive, is invulnerable, or hit.Amount is not positive. Otherwise health is
// reduced by at least 1 and one damage-dealt event is published. A lethal hit
// runs the death sequence; any other hit notifies the listener.
func (s *Stats) TakeDamage(hit actor.Hit) bool {
	switch {
	case s.life != Alive:
		s.logger.Debug("damage ignored", zap.String("reason", s.life.String()))
		return false
	case s.invulnerable > 0:
		s.logger.Debug("damage ignored", zap.String("reason", "invulnerable"))
		return false
	case !(hit.Amount > 0):
		s.logger.Debug("damage ignored", zap.String("reason", "non-positive"), zap.Float64("amount", hit.Amount))
		return false
	}

	now := s.deps.Clock.Now()
	final := s.pool.Mitigate(hit.Amount, hit.Type, s.block.Resistances(now), s.block.Armor(now))
	s.pool.Health.Drain(final)
	if hit.Attacker != nil {
		s.lastAttacker = hit.Attacker
	}
	lethal := s.pool.Health.Empty()
	if lethal {
		s.life = Dying
	}

	pos := s.self.Position()
	s.notifyHealth()
	s.deps.Bus.Publish(event.DamageDealt, event.DamageDealtPayload{
		Amount:     final,
		Position:   pos,
		Type:       hit.Type,
		TargetID:   s.self.ID(),
		AttackerID: idOf(hit.Attacker),
		Critical:   hit.Critical,
	})
	if lethal {
		s.die()
		return true
	}
	if s.listener != nil && s.life == Alive {
		s.listener.OnDamageTaken(final, pos, hit.Attacker)
	}
	return true
}

// Heal restores up to amount health.
//
// Postcondition: no-op when not Alive or amount is not positive; health never
// exceeds max.
func (s *Stats) Heal(amount float64) float64 {
	if s.life != Alive || !(amount > 0) {
		return 0
	}
	healed := s.pool.Health.Restore(amount)
	s.notifyHealth()
	return healed
}

// SetInvulnerable opens an invulnerability window of d, replacing any
// running one. Ignored unless Alive.
func (s *Stats) SetInvulnerable(d time.Duration) {
	if s.life != Alive {
		return
	}
	s.invulnerable = max(0, d)
}

// Tick counts the invulnerability window down by dt and picks up modifiers
// that expired since the last tick.
func (s *Stats) Tick(dt time.Duration) {
	if s.invulnerable > 0 {
		s.invulnerable = max(0, s.invulnerable-dt)
	}
	if s.life == Alive {
		s.refreshMaximums()
	}
}

// AddModifier applies a temporary buff or debuff. A zero Start means now.
// Ignored unless Alive.
func (s *Stats) AddModifier(m stats.Modifier) {
	if s.life != Alive {
		return
	}
	if m.Start.IsZero() {
		m.Start = s.deps.Clock.Now()
	}
	s.block.Modifiers().Add(m)
	s.refreshMaximums()
}

// RemoveModifiersBySource drops every modifier tagged source and returns the
// count.
func (s *Stats) RemoveModifiersBySource(source string) int {
	n := s.block.Modifiers().RemoveBySource(source)
	if n > 0 && s.life == Alive {
		s.refreshMaximums()
	}
	return n
}

// refreshMaximums re-derives pool capacity from the stat block. Current
// values keep their fraction of capacity.
func (s *Stats) refreshMaximums() {
	now := s.deps.Clock.Now()
	if h := s.block.MaxHealth(now); h != s.pool.Health.Max() {
		s.pool.Health.SetMax(h, true)
		s.notifyHealth()
	}
	if m := s.block.MaxMana(now); m != s.pool.Mana.Max() {
		s.pool.Mana.SetMax(m, true)
	}
}

// ForceKill zeroes health and runs the death sequence, bypassing mitigation
// and invulnerability. Reports whether this call caused the death.
func (s *Stats) ForceKill() bool {
	if s.life != Alive {
		return false
	}
	s.life = Dying
	s.pool.Health.Zero()
	s.notifyHealth()
	s.die()
	return true
}

// Stun forwards to the behaviour controller while Alive.
func (s *Stats) Stun(d time.Duration) {
	if s.life != Alive || s.listener == nil {
		return
	}
	s.listener.Stun(d)
}

// ApplyKnockback forwards impulse to movement while Alive.
func (s *Stats) ApplyKnockback(impulse geom.Vec3) {
	if s.life != Alive || s.move == nil {
		return
	}
	s.move.ApplyKnockback(impulse)
}

// ResetStats restores a fresh Alive enemy at full health, e.g. when a pooled
// instance is reused. It refuses while the death sequence is running.
func (s *Stats) ResetStats() bool {
	if s.life == Dying {
		return false
	}
	s.life = Alive
	s.invulnerable = 0
	s.lastAttacker = nil
	s.block.Modifiers().Clear()
	s.resetPool()
	s.notifyHealth()
	return true
}

func (s *Stats) notifyHealth() {
	if s.presenter != nil {
		s.presenter.HealthChanged(s.pool.Health.Current(), s.pool.Health.Max())
	}
}

// die runs the death sequence.
//
// Precondition: the caller has already moved the enemy to Dying, which closes
// every mutator before any handler or collaborator runs.
func (s *Stats) die() {

	pos := s.self.Position()
	killer := s.lastAttacker
	byPlayer := actor.IsPlayer(killer)
	s.logger.Info("enemy died",
		zap.String("killer", idOf(killer)),
		zap.Bool("by_player", byPlayer),
	)

	s.dispatchRewards(byPlayer)
	s.deps.Bus.Publish(event.EnemyDeath, event.EnemyDeathPayload{
		EnemyID:  s.self.ID(),
		Name:     s.tmpl.Name,
		Position: pos,
		KillerID: idOf(killer),
		ByPlayer: byPlayer,
	})
	s.deps.Bus.Publish(event.EnemyKilled, event.NamePayload{Name: s.tmpl.Name})

	drops := s.dropLoot(pos, loot.KillerOf(killer))

	s.safely("movement", func() {
		if s.move != nil {
			s.move.StopMovement()
			s.move.SetMovementEnabled(false)
		}
	})
	s.safely("ai", func() {
		if s.listener != nil {
			s.listener.OnDeath()
		}
	})
	s.safely("death cue", func() {
		if s.presenter != nil {
			s.presenter.PlayDeath()
		}
	})
	s.safely("overlay", func() {
		if s.presenter != nil {
			s.presenter.RemoveOverlay()
		}
	})
	s.safely("corpse", s.handOffCorpse)

	if hook := s.deps.DeathHook; hook != nil {
		report := DeathReport{
			EnemyID:    s.self.ID(),
			TemplateID: s.tmpl.ID,
			Name:       s.tmpl.Name,
			Level:      s.Level(),
			Position:   pos,
			KillerID:   idOf(killer),
			ByPlayer:   byPlayer,
			Drops:      drops,
		}
		s.safely("death hook", func() { hook(report) })
	}

	s.scheduleDespawn()
	s.life = Dead
}

func (s *Stats) dispatchRewards(byPlayer bool) {
	if !byPlayer {
		return
	}
	if xp := s.tmpl.ExperienceReward; xp > 0 {
		s.deps.Bus.Publish(event.PlayerExperienceGained, event.AmountPayload{Amount: xp})
	}
	if gold := s.tmpl.GoldReward; gold > 0 {
		s.deps.Bus.Publish(event.GoldChanged, event.AmountPayload{Amount: gold})
	}
	s.logger.Info("rewards dispatched",
		zap.Int("experience", s.tmpl.ExperienceReward),
		zap.Int("gold", s.tmpl.GoldReward),
	)
}

func (s *Stats) dropLoot(pos geom.Vec3, k loot.Killer) []loot.Drop {
	if len(s.tmpl.Loot) == 0 {
		return nil
	}
	drops := s.deps.Loot.Roll(s.tmpl.Loot, k)
	if s.deps.Spawner == nil {
		return drops
	}
	for _, d := range drops {
		angle := s.deps.Dice.Range("loot scatter angle", 0, 2*math.Pi)
		radius := s.deps.Dice.Range("loot scatter radius", 0, lootScatter)
		at := pos.Add(geom.V(math.Cos(angle)*radius, 0, math.Sin(angle)*radius))
		s.safely("loot spawn", func() {
			loot.Spawn(s.deps.Spawner, []loot.Drop{d}, at)
		})
	}
	return drops
}

// handOffCorpse freezes the body or throws it as a ragdoll, never both.
func (s *Stats) handOffCorpse() {
	if s.corpse == nil {
		return
	}
	if s.tmpl.CorpseMode() == CorpseFreeze {
		s.corpse.Freeze()
		return
	}
	force := s.deps.Dice.Range("ragdoll force", 0, s.tmpl.Corpse.RagdollForce)
	angle := s.deps.Dice.Range("ragdoll angle", 0, 2*math.Pi)
	up := s.deps.Dice.Range("ragdoll lift", 0, 1)
	dir := geom.V(math.Cos(angle), up, math.Sin(angle)).Normalize()
	s.corpse.Ragdoll(dir.Scale(force))
}

func (s *Stats) scheduleDespawn() {
	lifetime := s.tmpl.Corpse.Lifetime
	if lifetime == 0 {
		lifetime = s.deps.CorpseLifetime
	}
	id := s.self.ID()
	s.deps.Queue.After(s.deps.Clock.Now(), lifetime, "enemy:"+id+":corpse", func(time.Time) {
		if s.despawner != nil {
			s.despawner.Despawn(id)
		}
	})
}

// safely runs one teardown step, logging and swallowing any panic so the
// death sequence always completes.
func (s *Stats) safely(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("death teardown step failed",
				zap.String("step", step),
				zap.Error(fmt.Errorf("panic: %v", r)),
			)
		}
	}()
	fn()
}

func idOf(a actor.Actor) string {
	if a == nil {
		return ""
	}
	return a.ID()
}
