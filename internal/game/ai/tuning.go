package ai

import (
	"fmt"
	"time"

	"github.com/marcaocj/R1/internal/game/damage"
)

// Tuning is the per-template behaviour configuration of an enemy controller.
// Zero fields take the defaults from DefaultTuning when passed through
// WithDefaults, except the boolean switches which default to off.
type Tuning struct {
	DetectionRange   float64       `yaml:"detection_range"`
	AttackRange      float64       `yaml:"attack_range"`
	FollowRange      float64       `yaml:"follow_range"`
	StateChangeDelay time.Duration `yaml:"state_change_delay"`

	MoveSpeed        float64 `yaml:"move_speed"`
	RunSpeed         float64 `yaml:"run_speed"`
	RotationSpeed    float64 `yaml:"rotation_speed"`
	StoppingDistance float64 `yaml:"stopping_distance"`

	AttackDamage     float64       `yaml:"attack_damage"`
	AttackDamageType damage.Type   `yaml:"attack_damage_type"`
	AttackCooldown   time.Duration `yaml:"attack_cooldown"`
	AttackWindup     time.Duration `yaml:"attack_windup"`
	CombatTimeout    time.Duration `yaml:"combat_timeout"`

	ShouldFlee          bool    `yaml:"should_flee"`
	FleeHealthThreshold float64 `yaml:"flee_health_threshold"`

	PatrolWait   time.Duration `yaml:"patrol_wait"`
	RandomPatrol bool          `yaml:"random_patrol"`

	AlertReaction time.Duration `yaml:"alert_reaction"`

	SearchRotations   int           `yaml:"search_rotations"`
	SearchTurnDegrees float64       `yaml:"search_turn_degrees"`
	SearchTurnTime    time.Duration `yaml:"search_turn_time"`
	SearchPause       time.Duration `yaml:"search_pause"`

	ReturnArrival float64 `yaml:"return_arrival"`

	CanCallForHelp bool    `yaml:"can_call_for_help"`
	HelpRadius     float64 `yaml:"help_radius"`

	EyeHeight float64 `yaml:"eye_height"`
}

// DefaultTuning returns the stock melee grunt configuration.
func DefaultTuning() Tuning {
	return Tuning{
		DetectionRange:      10,
		AttackRange:         2,
		FollowRange:         15,
		StateChangeDelay:    500 * time.Millisecond,
		MoveSpeed:           3.5,
		RunSpeed:            6,
		RotationSpeed:       120,
		StoppingDistance:    1.5,
		AttackDamage:        25,
		AttackDamageType:    damage.Physical,
		AttackCooldown:      2 * time.Second,
		AttackWindup:        500 * time.Millisecond,
		CombatTimeout:       8 * time.Second,
		FleeHealthThreshold: 0.3,
		PatrolWait:          3 * time.Second,
		AlertReaction:       time.Second,
		SearchRotations:     4,
		SearchTurnDegrees:   90,
		SearchTurnTime:      time.Second,
		SearchPause:         500 * time.Millisecond,
		ReturnArrival:       2,
		HelpRadius:          20,
		EyeHeight:           0.5,
	}
}

// WithDefaults fills every zero numeric field from DefaultTuning. A zero
// HelpRadius becomes twice the detection range.
func (t Tuning) WithDefaults() Tuning {
	d := DefaultTuning()
	fill := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	fillDur := func(v *time.Duration, def time.Duration) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&t.DetectionRange, d.DetectionRange)
	fill(&t.AttackRange, d.AttackRange)
	fill(&t.FollowRange, d.FollowRange)
	fillDur(&t.StateChangeDelay, d.StateChangeDelay)
	fill(&t.MoveSpeed, d.MoveSpeed)
	fill(&t.RunSpeed, d.RunSpeed)
	fill(&t.RotationSpeed, d.RotationSpeed)
	fill(&t.StoppingDistance, d.StoppingDistance)
	fill(&t.AttackDamage, d.AttackDamage)
	fillDur(&t.AttackCooldown, d.AttackCooldown)
	fillDur(&t.AttackWindup, d.AttackWindup)
	fillDur(&t.CombatTimeout, d.CombatTimeout)
	fill(&t.FleeHealthThreshold, d.FleeHealthThreshold)
	fillDur(&t.PatrolWait, d.PatrolWait)
	fillDur(&t.AlertReaction, d.AlertReaction)
	if t.SearchRotations == 0 {
		t.SearchRotations = d.SearchRotations
	}
	fill(&t.SearchTurnDegrees, d.SearchTurnDegrees)
	fillDur(&t.SearchTurnTime, d.SearchTurnTime)
	fillDur(&t.SearchPause, d.SearchPause)
	fill(&t.ReturnArrival, d.ReturnArrival)
	fill(&t.HelpRadius, 2*t.DetectionRange)
	fill(&t.EyeHeight, d.EyeHeight)
	return t
}

// Validate returns the first violated constraint.
//
// Postcondition: nil iff every range is positive, the attack range does not
// exceed the follow range, and the flee threshold lies in [0, 1].
func (t Tuning) Validate() error {
	switch {
	case t.DetectionRange <= 0:
		return fmt.Errorf("ai tuning: detection_range must be > 0")
	case t.AttackRange <= 0:
		return fmt.Errorf("ai tuning: attack_range must be > 0")
	case t.FollowRange < t.AttackRange:
		return fmt.Errorf("ai tuning: follow_range (%g) must be >= attack_range (%g)", t.FollowRange, t.AttackRange)
	case t.StateChangeDelay < 0:
		return fmt.Errorf("ai tuning: state_change_delay must be >= 0")
	case t.FleeHealthThreshold < 0 || t.FleeHealthThreshold > 1:
		return fmt.Errorf("ai tuning: flee_health_threshold must be in [0, 1], got %g", t.FleeHealthThreshold)
	case t.SearchRotations < 0:
		return fmt.Errorf("ai tuning: search_rotations must be >= 0")
	}
	return nil
}
