package stats

import (
	"math"
	"time"

	"github.com/marcaocj/R1/internal/game/damage"
)

const (
	healthPerVitality     = 5
	manaPerIntelligence   = 3
	regenPerAttributePt   = 0.1
	defaultCriticalDamage = 150
)

// Base is the unmodified stat line of an actor.
type Base struct {
	Level          int                `yaml:"level"`
	Attributes     Attributes         `yaml:"attributes"`
	MaxHealth      float64            `yaml:"max_health"`
	MaxMana        float64            `yaml:"max_mana"`
	HealthRegen    float64            `yaml:"health_regen"`
	ManaRegen      float64            `yaml:"mana_regen"`
	Damage         float64            `yaml:"damage"`
	Armor          float64            `yaml:"armor"`
	CriticalChance float64            `yaml:"critical_chance"`
	CriticalDamage float64            `yaml:"critical_damage"`
	AttackSpeed    float64            `yaml:"attack_speed"`
	MovementSpeed  float64            `yaml:"movement_speed"`
	Resistances    damage.Resistances `yaml:"resistances"`
}

// AttributeScaling selects whether primary attributes feed max health, max
// mana and regeneration. Players scale; enemies use their flat template values.
type AttributeScaling bool

const (
	ScaleWithAttributes AttributeScaling = true
	FlatStats           AttributeScaling = false
)

// Block computes derived stats on demand from base values, equipment bonuses
// and temporary modifiers. Nothing derived is cached.
//
// Not safe for concurrent use.
type Block struct {
	Base      Base
	scaling   AttributeScaling
	equipment map[Stat]float64
	mods      ModifierSet
}

// NewBlock wraps base. Zero CriticalDamage defaults to 150 and zero Level to 1.
func NewBlock(base Base, scaling AttributeScaling) *Block {
	if base.Level < 1 {
		base.Level = 1
	}
	if base.CriticalDamage == 0 {
		base.CriticalDamage = defaultCriticalDamage
	}
	return &Block{Base: base, scaling: scaling, equipment: make(map[Stat]float64)}
}

// AddEquipmentBonus adds bonus to stat. Negative bonuses are allowed.
func (b *Block) AddEquipmentBonus(stat Stat, bonus float64) {
	b.equipment[stat] += bonus
}

// RemoveEquipmentBonus reverses AddEquipmentBonus.
func (b *Block) RemoveEquipmentBonus(stat Stat, bonus float64) {
	b.AddEquipmentBonus(stat, -bonus)
}

// EquipmentBonus returns the summed equipment bonus for stat.
func (b *Block) EquipmentBonus(stat Stat) float64 { return b.equipment[stat] }

// Modifiers exposes the temporary modifier set.
func (b *Block) Modifiers() *ModifierSet { return &b.mods }

// AllocatePoints raises a primary attribute on the base line.
func (b *Block) AllocatePoints(stat Stat, points int) bool {
	next, ok := b.Base.Attributes.add(stat, points)
	if !ok {
		return false
	}
	b.Base.Attributes = next
	return true
}

// bonus returns the equipment + flat modifier total and modifier percentage
// for stat.
func (b *Block) bonus(stat Stat, now time.Time) (flat, percent float64) {
	flat, percent = b.mods.Sum(stat, now)
	return flat + b.equipment[stat], percent
}

func (b *Block) additive(stat Stat, base float64, now time.Time) float64 {
	flat, pct := b.bonus(stat, now)
	return (base + flat) * (1 + pct/100)
}

func (b *Block) attribute(stat Stat, now time.Time) int {
	v, _ := b.Base.Attributes.Get(stat)
	return int(math.Round(b.additive(stat, float64(v), now)))
}

// Attributes returns the final primary attributes at now.
func (b *Block) Attributes(now time.Time) Attributes {
	return Attributes{
		Strength:     b.attribute(Strength, now),
		Dexterity:    b.attribute(Dexterity, now),
		Intelligence: b.attribute(Intelligence, now),
		Vitality:     b.attribute(Vitality, now),
	}
}

// MaxHealth is never lower than Base.MaxHealth.
func (b *Block) MaxHealth(now time.Time) float64 {
	v := b.Base.MaxHealth
	if b.scaling {
		v += healthPerVitality * float64(b.attribute(Vitality, now))
	}
	return math.Max(b.Base.MaxHealth, b.additive(MaxHealth, v, now))
}

// MaxMana is never lower than Base.MaxMana.
func (b *Block) MaxMana(now time.Time) float64 {
	v := b.Base.MaxMana
	if b.scaling {
		v += manaPerIntelligence * float64(b.attribute(Intelligence, now))
	}
	return math.Max(b.Base.MaxMana, b.additive(MaxMana, v, now))
}

func (b *Block) HealthRegen(now time.Time) float64 {
	v := b.Base.HealthRegen
	if b.scaling {
		v += regenPerAttributePt * float64(b.attribute(Vitality, now))
	}
	return b.additive(HealthRegen, v, now)
}

func (b *Block) ManaRegen(now time.Time) float64 {
	v := b.Base.ManaRegen
	if b.scaling {
		v += regenPerAttributePt * float64(b.attribute(Intelligence, now))
	}
	return b.additive(ManaRegen, v, now)
}

func (b *Block) Damage(now time.Time) float64 {
	return math.Round(b.additive(Damage, b.Base.Damage, now))
}

func (b *Block) Armor(now time.Time) float64 {
	return math.Max(0, math.Round(b.additive(Armor, b.Base.Armor, now)))
}

func (b *Block) CriticalChance(now time.Time) float64 {
	return b.additive(CriticalChance, b.Base.CriticalChance, now)
}

func (b *Block) CriticalDamage(now time.Time) float64 {
	return b.additive(CriticalDamage, b.Base.CriticalDamage, now)
}

// AttackSpeed treats bonuses as percentage points on top of the base rate.
func (b *Block) AttackSpeed(now time.Time) float64 {
	flat, _ := b.bonus(AttackSpeed, now)
	return b.Base.AttackSpeed + flat/100
}

// MovementSpeed treats bonuses as a percentage multiplier on the base speed.
func (b *Block) MovementSpeed(now time.Time) float64 {
	flat, pct := b.bonus(MovementSpeed, now)
	return math.Max(0, b.Base.MovementSpeed*(1+(flat+pct)/100))
}

// Resistances returns per-type resistances at now, clamped to [0, 100].
func (b *Block) Resistances(now time.Time) damage.Resistances {
	r := b.Base.Resistances
	clamp := func(v float64) float64 { return math.Min(100, math.Max(0, v)) }
	return damage.Resistances{
		Physical:  clamp(b.additive(PhysicalResistance, r.Physical, now)),
		Fire:      clamp(b.additive(FireResistance, r.Fire, now)),
		Cold:      clamp(b.additive(ColdResistance, r.Cold, now)),
		Lightning: clamp(b.additive(LightningResistance, r.Lightning, now)),
		Poison:    clamp(b.additive(PoisonResistance, r.Poison, now)),
	}
}
