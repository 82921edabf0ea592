// Package player holds the player's progression and vital stats and the
// player actor the rest of the arena interacts with.
package player

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/event"
	"github.com/marcaocj/R1/internal/game/schedule"
	"github.com/marcaocj/R1/internal/game/stats"
)

const (
	pointsPerLevel = 5
	xpBase         = 100
	xpGrowth       = 1.5
	regenInterval  = time.Second
)

// ExperienceFor returns the experience needed to advance from level to
// level+1: round(100 * 1.5^(level-1)).
func ExperienceFor(level int) int {
	level = max(1, level)
	return int(math.Round(xpBase * math.Pow(xpGrowth, float64(level-1))))
}

// Stats tracks the player's level, experience, gold, stat points and health
// and mana pools, and publishes every change on the bus.
//
// Not safe for concurrent use.
type Stats struct {
	block  *stats.Block
	pool   *stats.HealthPool
	bus    *event.Bus
	clock  schedule.Clock
	logger *zap.Logger
	subs   *event.Subscriptions

	experience   int
	gold         int
	statPoints   int
	dead         bool
	invulnerable time.Duration
	regenElapsed time.Duration
	lastAttacker actor.Actor
}

// NewStats creates full-health player stats from base.
//
// Precondition: bus and clock are non-nil.
func NewStats(base stats.Base, bus *event.Bus, clock schedule.Clock, logger *zap.Logger) *Stats {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stats{
		block:  stats.NewBlock(base, stats.ScaleWithAttributes),
		bus:    bus,
		clock:  clock,
		logger: logger,
		subs:   event.NewSubscriptions(bus),
	}
	now := clock.Now()
	s.pool = stats.NewHealthPool(s.block.MaxHealth(now), s.block.MaxMana(now))
	return s
}

// Subscribe starts consuming experience and gold events. Close releases them.
func (s *Stats) Subscribe() {
	s.subs.Add(event.On(s.bus, event.PlayerExperienceGained, func(p event.AmountPayload) {
		s.AddExperience(p.Amount)
	}))
	s.subs.Add(event.On(s.bus, event.GoldChanged, func(p event.AmountPayload) {
		s.AddGold(p.Amount)
	}))
}

// Close drops every bus subscription.
func (s *Stats) Close() { s.subs.Close() }

func (s *Stats) Block() *stats.Block       { return s.block }
func (s *Stats) Level() int                { return s.block.Base.Level }
func (s *Stats) Experience() int           { return s.experience }
func (s *Stats) ExperienceToNext() int     { return ExperienceFor(s.Level()) }
func (s *Stats) Gold() int                 { return s.gold }
func (s *Stats) StatPoints() int           { return s.statPoints }
func (s *Stats) Health() float64           { return s.pool.Health.Current() }
func (s *Stats) MaxHealth() float64        { return s.pool.Health.Max() }
func (s *Stats) Mana() float64             { return s.pool.Mana.Current() }
func (s *Stats) MaxMana() float64          { return s.pool.Mana.Max() }
func (s *Stats) IsAlive() bool             { return !s.dead }
func (s *Stats) Invulnerable() bool        { return s.invulnerable > 0 }
func (s *Stats) LastAttacker() actor.Actor { return s.lastAttacker }
func (s *Stats) HealthFraction() float64   { return s.pool.Health.Fraction() }

// AddExperience grants amount and applies every level-up it pays for.
func (s *Stats) AddExperience(amount int) {
	if s.dead || amount <= 0 {
		return
	}
	s.experience += amount
	for s.experience >= ExperienceFor(s.Level()) {
		s.experience -= ExperienceFor(s.Level())
		s.levelUp()
	}
}

func (s *Stats) levelUp() {
	s.block.Base.Level++
	s.statPoints += pointsPerLevel
	s.pool.Health.Fill()
	s.pool.Mana.Fill()
	s.logger.Info("player levelled up", zap.Int("level", s.Level()))
	s.bus.Publish(event.PlayerLevelUp, event.LevelPayload{Level: s.Level()})
	s.publishHealth()
	s.publishMana()
}

// AddGold applies a gold delta. Gold never goes below zero.
func (s *Stats) AddGold(amount int) {
	s.gold = max(0, s.gold+amount)
}

// SpendGold removes amount if the player can afford it.
func (s *Stats) SpendGold(amount int) bool {
	if amount < 0 || s.gold < amount {
		return false
	}
	s.gold -= amount
	return true
}

// AllocateStatPoint spends one point on attr.
//
// Postcondition: returns false and changes nothing when no points remain or
// attr is not a primary attribute.
func (s *Stats) AllocateStatPoint(attr stats.Stat) bool {
	if s.statPoints <= 0 || !s.block.AllocatePoints(attr, 1) {
		return false
	}
	s.statPoints--
	s.refreshMaximums()
	return true
}

// AddEquipmentBonus applies an equipment bonus and rescales the pools.
func (s *Stats) AddEquipmentBonus(stat stats.Stat, bonus float64) {
	s.block.AddEquipmentBonus(stat, bonus)
	s.refreshMaximums()
}

// RemoveEquipmentBonus undoes AddEquipmentBonus.
func (s *Stats) RemoveEquipmentBonus(stat stats.Stat, bonus float64) {
	s.block.RemoveEquipmentBonus(stat, bonus)
	s.refreshMaximums()
}

// AddModifier applies a temporary buff or debuff. A zero Start means now.
// Ignored once dead.
func (s *Stats) AddModifier(m stats.Modifier) {
	if s.dead {
		return
	}
	if m.Start.IsZero() {
		m.Start = s.clock.Now()
	}
	s.block.Modifiers().Add(m)
	s.refreshMaximums()
}

// RemoveModifiersBySource drops every modifier tagged source and returns the
// count.
func (s *Stats) RemoveModifiersBySource(source string) int {
	n := s.block.Modifiers().RemoveBySource(source)
	if n > 0 && !s.dead {
		s.refreshMaximums()
	}
	return n
}

// refreshMaximums keeps current health and mana at the same fraction of their
// new capacity.
func (s *Stats) refreshMaximums() {
	now := s.clock.Now()
	if h := s.block.MaxHealth(now); h != s.pool.Health.Max() {
		s.pool.Health.SetMax(h, true)
		s.publishHealth()
	}
	if m := s.block.MaxMana(now); m != s.pool.Mana.Max() {
		s.pool.Mana.SetMax(m, true)
		s.publishMana()
	}
}

// TakeDamage resolves hit against the player's resistances and armor.
//
// Postcondition: false and no change when dead, invulnerable or the amount is
// not positive. The player-death event is published exactly once.
func (s *Stats) TakeDamage(hit actor.Hit) bool {
	switch {
	case s.dead:
		return false
	case s.invulnerable > 0:
		s.logger.Debug("player damage ignored", zap.String("reason", "invulnerable"))
		return false
	case !(hit.Amount > 0):
		return false
	}
	now := s.clock.Now()
	final := s.pool.Mitigate(hit.Amount, hit.Type, s.block.Resistances(now), s.block.Armor(now))
	s.pool.Health.Drain(final)
	if hit.Attacker != nil {
		s.lastAttacker = hit.Attacker
	}
	lethal := s.pool.Health.Empty()
	if lethal {
		s.dead = true
	}
	s.publishHealth()
	if lethal {
		s.logger.Info("player died", zap.String("killer", idOf(s.lastAttacker)))
		s.bus.Publish(event.PlayerDeath, nil)
	}
	return true
}

// Heal restores up to amount health while alive.
func (s *Stats) Heal(amount float64) float64 {
	if s.dead || !(amount > 0) {
		return 0
	}
	healed := s.pool.Health.Restore(amount)
	s.publishHealth()
	return healed
}

// RestoreMana restores up to amount mana while alive.
func (s *Stats) RestoreMana(amount float64) float64 {
	if s.dead || !(amount > 0) {
		return 0
	}
	restored := s.pool.Mana.Restore(amount)
	s.publishMana()
	return restored
}

// SpendMana removes cost all-or-nothing.
func (s *Stats) SpendMana(cost float64) bool {
	if s.dead {
		return false
	}
	if cost <= 0 {
		return true
	}
	if !s.pool.Mana.Spend(cost) {
		return false
	}
	s.publishMana()
	return true
}

// SetInvulnerable opens an invulnerability window of d.
func (s *Stats) SetInvulnerable(d time.Duration) {
	if s.dead {
		return
	}
	s.invulnerable = max(0, d)
}

// Tick counts down invulnerability, picks up expired modifiers and applies
// regeneration once per elapsed second.
func (s *Stats) Tick(dt time.Duration) {
	if s.dead {
		return
	}
	if s.invulnerable > 0 {
		s.invulnerable = max(0, s.invulnerable-dt)
	}
	s.refreshMaximums()
	s.regenElapsed += dt
	for s.regenElapsed >= regenInterval {
		s.regenElapsed -= regenInterval
		s.regenerate()
	}
}

func (s *Stats) regenerate() {
	now := s.clock.Now()
	h, m := s.pool.Regenerate(s.block.HealthRegen(now), s.block.ManaRegen(now), regenInterval)
	if h > 0 {
		s.publishHealth()
	}
	if m > 0 {
		s.publishMana()
	}
}

func (s *Stats) publishHealth() {
	s.bus.Publish(event.PlayerHealthChanged, event.ResourcePayload{Current: s.pool.Health.Current(), Max: s.pool.Health.Max()})
}

func (s *Stats) publishMana() {
	s.bus.Publish(event.PlayerManaChanged, event.ResourcePayload{Current: s.pool.Mana.Current(), Max: s.pool.Mana.Max()})
}

func idOf(a actor.Actor) string {
	if a == nil {
		return ""
	}
	return a.ID()
}
