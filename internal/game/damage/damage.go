// Package damage resolves raw damage against a target's resistances and armor.
package damage

import (
	"fmt"
	"math"
	"strings"
)

// Type enumerates the damage types an attack can carry.
type Type int

const (
	Physical Type = iota
	Magic
	Fire
	Cold
	Lightning
	Poison
	True
)

var typeNames = [...]string{"physical", "magic", "fire", "cold", "lightning", "poison", "true"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType converts a content name ("fire", "Physical") into a Type.
func ParseType(s string) (Type, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, n := range typeNames {
		if n == key {
			return Type(i), nil
		}
	}
	return Physical, fmt.Errorf("unknown damage type %q", s)
}

// UnmarshalText lets Type appear as a plain string in YAML and config.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText renders the canonical lower-case name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Resistances are percentages in [0, 100] per resistible damage type.
type Resistances struct {
	Physical  float64 `yaml:"physical"`
	Fire      float64 `yaml:"fire"`
	Cold      float64 `yaml:"cold"`
	Lightning float64 `yaml:"lightning"`
	Poison    float64 `yaml:"poison"`
}

// For returns the resistance applying to t. Magic and True have no resistance.
func (r Resistances) For(t Type) float64 {
	switch t {
	case Physical:
		return r.Physical
	case Fire:
		return r.Fire
	case Cold:
		return r.Cold
	case Lightning:
		return r.Lightning
	case Poison:
		return r.Poison
	default:
		return 0
	}
}

// Add returns the per-type sum of r and o.
func (r Resistances) Add(o Resistances) Resistances {
	return Resistances{
		Physical:  r.Physical + o.Physical,
		Fire:      r.Fire + o.Fire,
		Cold:      r.Cold + o.Cold,
		Lightning: r.Lightning + o.Lightning,
		Poison:    r.Poison + o.Poison,
	}
}

// ArmorReduction is the fraction of physical damage absorbed by armor.
//
// Postcondition: result in [0, 1).
func ArmorReduction(armor float64) float64 {
	if armor <= 0 {
		return 0
	}
	return armor / (armor + 100)
}

// Resolve computes the final damage of raw against the given defences.
//
// Precondition: none; negative raw is treated as 0.
// Postcondition: raw <= 0 yields 0; raw > 0 yields a value >= 1.
func Resolve(raw float64, t Type, res Resistances, armor float64) float64 {
	if raw <= 0 || math.IsNaN(raw) {
		return 0
	}
	final := raw
	if t != True {
		resist := math.Min(100, math.Max(0, res.For(t)))
		final = raw * (1 - resist/100)
		if t == Physical {
			final *= 1 - ArmorReduction(armor)
		}
	}
	return math.Max(1, final)
}
