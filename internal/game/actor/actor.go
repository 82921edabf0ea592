// Package actor defines the identity and capability contracts shared by
// enemies, the player and the world that hosts them.
package actor

import (
	"time"

	"github.com/marcaocj/R1/internal/game/damage"
	"github.com/marcaocj/R1/internal/game/geom"
)

// Tag classifies an actor for reward attribution and perception filters.
type Tag string

const (
	TagPlayer Tag = "player"
	TagEnemy  Tag = "enemy"
)

// Actor is anything with an identity and a pose in the arena.
type Actor interface {
	ID() string
	Tag() Tag
	Position() geom.Vec3
	// Facing is the yaw in degrees, 0 facing +Z.
	Facing() float64
}

// IsPlayer reports whether a is tagged as the player-controlled actor. A nil
// actor is never the player.
func IsPlayer(a Actor) bool {
	return a != nil && a.Tag() == TagPlayer
}

// Levelled is implemented by actors that expose a character level.
type Levelled interface {
	Level() int
}

// LevelOf returns a's level, or 1 when a is nil or not Levelled.
func LevelOf(a Actor) int {
	if l, ok := a.(Levelled); ok && l != nil {
		return l.Level()
	}
	return 1
}

// Hit is one damage application delivered to a Damageable.
type Hit struct {
	Amount   float64
	Type     damage.Type
	Attacker Actor
	Critical bool
}

// Damageable accepts damage from any source.
type Damageable interface {
	Actor
	// TakeDamage applies hit and reports whether it landed. Rejected hits
	// (dead, invulnerable, non-positive) return false and change nothing.
	TakeDamage(hit Hit) bool
	IsAlive() bool
}

// Stunnable can be stunned for a duration.
type Stunnable interface {
	Stun(d time.Duration)
}

// Knockbackable accepts a planar impulse.
type Knockbackable interface {
	ApplyKnockback(impulse geom.Vec3)
}

// Filter selects actors in a radius query.
type Filter func(Actor) bool

// ByTag returns a filter accepting actors with tag t.
func ByTag(t Tag) Filter {
	return func(a Actor) bool { return a.Tag() == t }
}

// Except returns a filter rejecting the actor whose ID is id.
func Except(id string) Filter {
	return func(a Actor) bool { return a.ID() != id }
}

// All combines filters with logical AND. A nil filter accepts everything.
func All(filters ...Filter) Filter {
	return func(a Actor) bool {
		for _, f := range filters {
			if f != nil && !f(a) {
				return false
			}
		}
		return true
	}
}
