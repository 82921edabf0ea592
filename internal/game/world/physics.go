package world

import (
	"math"
	"time"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/geom"
)

const (
	bodyMass = 1.0
	// velocityRetention is the fraction of velocity a staggered or ragdolled
	// body keeps per second.
	velocityRetention = 0.05
	// knockbackStagger suspends steering after an impulse so it can play out.
	knockbackStagger = 300 * time.Millisecond
	// arriveRadius is how close a body must get to a waypoint to take the next.
	arriveRadius      = 0.15
	boundaryThickness = 0.5
)

// Physics simulates actor bodies on the arena floor with chipmunk. World X/Z
// maps to chipmunk X/Y; there is no gravity.
//
// Not safe for concurrent use.
type Physics struct {
	space  *cp.Space
	arena  *Arena
	nav    *NavGrid
	bodies map[string]*Body
	logger *zap.Logger
}

// NewPhysics builds static walls for the arena bounds and every obstacle.
func NewPhysics(a *Arena, nav *NavGrid, logger *zap.Logger) *Physics {
	if logger == nil {
		logger = zap.NewNop()
	}
	space := cp.NewSpace()
	space.SetGravity(cp.Vector{})

	walls := []struct{ a, b cp.Vector }{
		{cp.Vector{X: 0, Y: 0}, cp.Vector{X: a.Width, Y: 0}},
		{cp.Vector{X: 0, Y: a.Depth}, cp.Vector{X: a.Width, Y: a.Depth}},
		{cp.Vector{X: 0, Y: 0}, cp.Vector{X: 0, Y: a.Depth}},
		{cp.Vector{X: a.Width, Y: 0}, cp.Vector{X: a.Width, Y: a.Depth}},
	}
	for _, w := range walls {
		shape := cp.NewSegment(space.StaticBody, w.a, w.b, boundaryThickness)
		shape.SetFriction(0)
		space.AddShape(shape)
	}
	for _, o := range a.Obstacles {
		bb := cp.BB{L: o.X, B: o.Z, R: o.X + o.W, T: o.Z + o.D}
		shape := cp.NewBox2(space.StaticBody, bb, 0)
		shape.SetFriction(0)
		space.AddShape(shape)
	}
	return &Physics{
		space:  space,
		arena:  a,
		nav:    nav,
		bodies: make(map[string]*Body),
		logger: logger,
	}
}

// Spawn adds a circular dynamic body for actor id at pos.
func (p *Physics) Spawn(id string, pos geom.Vec3, walkSpeed, runSpeed float64) *Body {
	p.Remove(id)
	body := cp.NewBody(bodyMass, cp.MomentForCircle(bodyMass, 0, actorRadius, cp.Vector{}))
	body.SetPosition(cp.Vector{X: pos.X, Y: pos.Z})
	body.UserData = id
	shape := cp.NewCircle(body, actorRadius, cp.Vector{})
	shape.SetFriction(0)
	shape.SetElasticity(0)
	p.space.AddBody(body)
	p.space.AddShape(shape)

	b := &Body{
		id:        id,
		phys:      p,
		body:      body,
		shape:     shape,
		walkSpeed: walkSpeed,
		runSpeed:  runSpeed,
		enabled:   true,
	}
	p.bodies[id] = b
	return b
}

// Body returns the body of id, or nil.
func (p *Physics) Body(id string) *Body { return p.bodies[id] }

// Remove deletes the body of id from the simulation.
func (p *Physics) Remove(id string) {
	b, ok := p.bodies[id]
	if !ok {
		return
	}
	p.space.RemoveShape(b.shape)
	p.space.RemoveBody(b.body)
	delete(p.bodies, id)
}

// Step steers every body, advances the simulation by dt and returns any body
// that left the arena to the nearest in-bounds point.
func (p *Physics) Step(dt time.Duration) {
	if dt <= 0 {
		return
	}
	for _, b := range p.bodies {
		b.steer(dt)
	}
	p.space.Step(dt.Seconds())
	for _, b := range p.bodies {
		pos := b.Position()
		if p.arena.InBounds(pos) {
			continue
		}
		fixed := p.arena.Clamp(pos)
		b.body.SetPosition(cp.Vector{X: fixed.X, Y: fixed.Z})
		b.body.SetVelocity(0, 0)
		p.logger.Debug("body returned to bounds", zap.String("id", b.id), zap.Any("from", pos), zap.Any("to", fixed))
	}
}

// Body is one actor's physics presence. It implements
// actor.MovementController and enemy.CorpseBody.
type Body struct {
	id    string
	phys  *Physics
	body  *cp.Body
	shape *cp.Shape

	walkSpeed float64
	runSpeed  float64
	running   bool
	enabled   bool

	moving  bool
	dest    geom.Vec3
	path    []geom.Vec3
	yaw     float64
	stagger time.Duration

	frozen  bool
	ragdoll bool
}

// Position returns the body centre on the floor plane.
func (b *Body) Position() geom.Vec3 {
	v := b.body.Position()
	return geom.V(v.X, 0, v.Y)
}

// Yaw returns the facing in degrees.
func (b *Body) Yaw() float64 { return b.yaw }

// Teleport places the body at pos and cancels any movement.
func (b *Body) Teleport(pos geom.Vec3) {
	b.body.SetPosition(cp.Vector{X: pos.X, Y: pos.Z})
	b.body.SetVelocity(0, 0)
	b.moving, b.path = false, nil
}

// MoveTo routes the body towards target on the navigation grid. Repeated
// calls with the same destination keep the current route.
func (b *Body) MoveTo(target geom.Vec3) {
	if !b.enabled || b.frozen || b.ragdoll {
		return
	}
	if b.moving && len(b.path) > 0 && b.dest.FlatDist(target) < 0.5 {
		b.dest = target
		b.path[len(b.path)-1] = target
		return
	}
	path, ok := b.phys.nav.FindPath(b.Position(), target)
	if !ok {
		b.phys.logger.Debug("no route", zap.String("id", b.id), zap.Any("to", target))
		b.halt()
		return
	}
	b.dest, b.path, b.moving = target, path, true
}

// StopMovement cancels the current route.
func (b *Body) StopMovement() {
	b.halt()
}

func (b *Body) halt() {
	b.moving, b.path = false, nil
	if b.stagger <= 0 && !b.ragdoll && !b.frozen {
		b.body.SetVelocity(0, 0)
	}
}

// SetRunning selects the run speed for subsequent steering.
func (b *Body) SetRunning(running bool) { b.running = running }

// LookAt turns the body to face target.
func (b *Body) LookAt(target geom.Vec3) {
	if d := target.Sub(b.Position()).Flat(); d != geom.Zero {
		b.yaw = geom.YawOf(d)
	}
}

// SetFacing sets the yaw directly.
func (b *Body) SetFacing(yaw float64) { b.yaw = geom.NormalizeYaw(yaw) }

// SetMovementEnabled gates all steering; disabling also stops the body.
func (b *Body) SetMovementEnabled(enabled bool) {
	b.enabled = enabled
	if !enabled {
		b.halt()
	}
}

// ApplyKnockback applies a planar impulse and suspends steering briefly.
func (b *Body) ApplyKnockback(impulse geom.Vec3) {
	if b.frozen {
		return
	}
	b.body.ApplyImpulseAtWorldPoint(cp.Vector{X: impulse.X, Y: impulse.Z}, b.body.Position())
	b.stagger = knockbackStagger
}

// CurrentSpeed returns the planar speed.
func (b *Body) CurrentSpeed() float64 {
	return b.body.Velocity().Length()
}

// Freeze turns the body into an immovable kinematic corpse that no longer
// collides.
func (b *Body) Freeze() {
	b.frozen = true
	b.moving, b.path = false, nil
	b.body.SetVelocity(0, 0)
	b.body.SetType(cp.BODY_KINEMATIC)
	b.shape.SetSensor(true)
}

// Ragdoll hands the body to free simulation with impulse. The vertical
// component has no effect on the floor plane.
func (b *Body) Ragdoll(impulse geom.Vec3) {
	b.ragdoll = true
	b.moving, b.path = false, nil
	b.body.ApplyImpulseAtWorldPoint(cp.Vector{X: impulse.X, Y: impulse.Z}, b.body.Position())
}

// Frozen reports whether Freeze was called.
func (b *Body) Frozen() bool { return b.frozen }

func (b *Body) steer(dt time.Duration) {
	if b.frozen {
		return
	}
	if b.ragdoll || b.stagger > 0 {
		b.stagger -= dt
		v := b.body.Velocity()
		f := math.Pow(velocityRetention, dt.Seconds())
		b.body.SetVelocity(v.X*f, v.Y*f)
		return
	}
	if !b.enabled || !b.moving {
		b.body.SetVelocity(0, 0)
		return
	}
	speed := b.walkSpeed
	if b.running {
		speed = b.runSpeed
	}
	pos := b.Position()
	reach := max(arriveRadius, speed*dt.Seconds())
	for len(b.path) > 0 && pos.FlatDist(b.path[0]) <= reach {
		if len(b.path) == 1 {
			// Snap onto the final point instead of overshooting it.
			b.body.SetPosition(cp.Vector{X: b.path[0].X, Y: b.path[0].Z})
		}
		b.path = b.path[1:]
	}
	if len(b.path) == 0 {
		b.moving = false
		b.body.SetVelocity(0, 0)
		return
	}
	dir := b.path[0].Sub(pos).Flat().Normalize()
	b.yaw = geom.YawOf(dir)
	v := dir.Scale(speed)
	b.body.SetVelocity(v.X, v.Z)
}
