package actor

import "github.com/marcaocj/R1/internal/game/geom"

// MovementController steers one actor's body. All calls are intents: the world
// applies them on its next physics step.
type MovementController interface {
	MoveTo(target geom.Vec3)
	StopMovement()
	SetRunning(running bool)
	LookAt(target geom.Vec3)
	SetMovementEnabled(enabled bool)
	ApplyKnockback(impulse geom.Vec3)
	// CurrentSpeed is the planar speed of the body in units per second.
	CurrentSpeed() float64
}

// PerceptionQuery answers sight and proximity questions about the arena.
type PerceptionQuery interface {
	// CanSeeTarget reports whether observer has an unobstructed sightline to
	// target from eye height.
	CanSeeTarget(observer, target Actor) bool
	FindNearbyActors(center geom.Vec3, radius float64, filter Filter) []Actor
}
