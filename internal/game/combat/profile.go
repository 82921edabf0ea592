// Package combat resolves the player's melee attacks: cooldown, mana cost,
// combo chaining and cone hit detection.
package combat

import (
	"fmt"
	"time"

	"github.com/marcaocj/R1/internal/game/damage"
)

// Profile describes one attack the player can perform.
type Profile struct {
	Name             string
	DamageMultiplier float64
	Range            float64
	// Angle is the full cone width in degrees; targets within Angle/2 of the
	// attacker's facing are hit.
	Angle          float64
	ManaCost       float64
	KnockbackForce float64
	StunDuration   time.Duration
	DamageType     damage.Type
}

// Built-in profiles.
var (
	Basic = Profile{Name: "basic", DamageMultiplier: 1.0, Range: 2, Angle: 90, DamageType: damage.Physical}
	Heavy = Profile{Name: "heavy", DamageMultiplier: 2.0, Range: 2.5, Angle: 120, ManaCost: 10, KnockbackForce: 10, DamageType: damage.Physical}
	Quick = Profile{Name: "quick", DamageMultiplier: 0.7, Range: 1.5, Angle: 60, ManaCost: 5, KnockbackForce: 2, DamageType: damage.Physical}
)

// ProfileByName looks up a built-in profile.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case Basic.Name:
		return Basic, nil
	case Heavy.Name:
		return Heavy, nil
	case Quick.Name:
		return Quick, nil
	default:
		return Profile{}, fmt.Errorf("combat: unknown attack profile %q", name)
	}
}
