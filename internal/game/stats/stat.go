// Package stats models actor attributes, derived combat stats, temporary
// modifiers and the health/mana pools they feed.
package stats

import (
	"fmt"
	"strings"
)

// Stat names a value that equipment and modifiers can adjust.
type Stat string

const (
	Strength            Stat = "strength"
	Dexterity           Stat = "dexterity"
	Intelligence        Stat = "intelligence"
	Vitality            Stat = "vitality"
	Damage              Stat = "damage"
	Armor               Stat = "armor"
	CriticalChance      Stat = "critical_chance"
	CriticalDamage      Stat = "critical_damage"
	AttackSpeed         Stat = "attack_speed"
	MovementSpeed       Stat = "movement_speed"
	MaxHealth           Stat = "max_health"
	MaxMana             Stat = "max_mana"
	HealthRegen         Stat = "health_regen"
	ManaRegen           Stat = "mana_regen"
	PhysicalResistance  Stat = "physical_resistance"
	FireResistance      Stat = "fire_resistance"
	ColdResistance      Stat = "cold_resistance"
	LightningResistance Stat = "lightning_resistance"
	PoisonResistance    Stat = "poison_resistance"
)

var knownStats = map[Stat]bool{
	Strength: true, Dexterity: true, Intelligence: true, Vitality: true,
	Damage: true, Armor: true, CriticalChance: true, CriticalDamage: true,
	AttackSpeed: true, MovementSpeed: true, MaxHealth: true, MaxMana: true,
	HealthRegen: true, ManaRegen: true,
	PhysicalResistance: true, FireResistance: true, ColdResistance: true,
	LightningResistance: true, PoisonResistance: true,
}

// ParseStat validates a stat name coming from content or commands.
func ParseStat(s string) (Stat, error) {
	st := Stat(strings.ToLower(strings.TrimSpace(s)))
	if !knownStats[st] {
		return "", fmt.Errorf("unknown stat %q", s)
	}
	return st, nil
}

// Attributes are the four primary attributes.
type Attributes struct {
	Strength     int `yaml:"strength"`
	Dexterity    int `yaml:"dexterity"`
	Intelligence int `yaml:"intelligence"`
	Vitality     int `yaml:"vitality"`
}

// Get returns the attribute named by s, and false for non-attribute stats.
func (a Attributes) Get(s Stat) (int, bool) {
	switch s {
	case Strength:
		return a.Strength, true
	case Dexterity:
		return a.Dexterity, true
	case Intelligence:
		return a.Intelligence, true
	case Vitality:
		return a.Vitality, true
	}
	return 0, false
}

// add returns a copy with points added to the attribute s.
func (a Attributes) add(s Stat, points int) (Attributes, bool) {
	switch s {
	case Strength:
		a.Strength += points
	case Dexterity:
		a.Dexterity += points
	case Intelligence:
		a.Intelligence += points
	case Vitality:
		a.Vitality += points
	default:
		return a, false
	}
	return a, true
}
