package world_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcaocj/R1/internal/game/geom"
	"github.com/marcaocj/R1/internal/game/world"
)

const step = 50 * time.Millisecond

func openArena() *world.Arena {
	return &world.Arena{Name: "open", Width: 20, Depth: 20, PatrolPaths: map[string][]geom.Vec3{}}
}

func newPhysics(a *world.Arena) *world.Physics {
	return world.NewPhysics(a, navFor(a), nil)
}

func run(p *world.Physics, d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		p.Step(step)
	}
}

func TestPhysics_MoveToArrives(t *testing.T) {
	p := newPhysics(openArena())
	b := p.Spawn("wolf", geom.V(2.5, 0, 2.5), 4, 8)

	b.MoveTo(geom.V(8, 0, 2.5))
	p.Step(step)
	assert.InDelta(t, 4, b.CurrentSpeed(), 0.01)
	assert.InDelta(t, 90, b.Yaw(), 1, "moving towards +X")

	run(p, 3*time.Second)
	assert.InDelta(t, 8, b.Position().X, 0.2)
	assert.InDelta(t, 2.5, b.Position().Z, 0.2)
	assert.InDelta(t, 0, b.CurrentSpeed(), 0.01)
}

func TestPhysics_RunningIsFaster(t *testing.T) {
	p := newPhysics(openArena())
	walker := p.Spawn("walker", geom.V(2, 0, 4), 2, 6)
	runner := p.Spawn("runner", geom.V(2, 0, 10), 2, 6)
	runner.SetRunning(true)
	walker.MoveTo(geom.V(18, 0, 4))
	runner.MoveTo(geom.V(18, 0, 10))
	run(p, time.Second)
	assert.Greater(t, runner.Position().X, walker.Position().X+2)
}

func TestPhysics_RoutesAroundWalls(t *testing.T) {
	p := newPhysics(walledArena(3))
	b := p.Spawn("wolf", geom.V(8, 0, 8), 5, 5)
	b.MoveTo(geom.V(13, 0, 8))
	run(p, 8*time.Second)
	assert.InDelta(t, 13, b.Position().X, 0.3)
	assert.InDelta(t, 8, b.Position().Z, 0.3)
}

func TestPhysics_StopAndDisable(t *testing.T) {
	p := newPhysics(openArena())
	b := p.Spawn("wolf", geom.V(2, 0, 2), 4, 8)
	b.MoveTo(geom.V(18, 0, 2))
	p.Step(step)
	b.StopMovement()
	p.Step(step)
	stopped := b.Position()
	run(p, time.Second)
	assert.Equal(t, stopped, b.Position())

	b.SetMovementEnabled(false)
	b.MoveTo(geom.V(18, 0, 2))
	run(p, time.Second)
	assert.Equal(t, stopped, b.Position())
}

func TestPhysics_KnockbackPushesThenSettles(t *testing.T) {
	p := newPhysics(openArena())
	b := p.Spawn("wolf", geom.V(5, 0, 5), 4, 8)
	b.ApplyKnockback(geom.V(6, 0, 0))
	p.Step(step)
	assert.Greater(t, b.Position().X, 5.0)
	run(p, 2*time.Second)
	assert.Less(t, b.CurrentSpeed(), 0.01)
}

func TestPhysics_FreezeHoldsCorpse(t *testing.T) {
	p := newPhysics(openArena())
	b := p.Spawn("wolf", geom.V(5, 0, 5), 4, 8)
	b.Freeze()
	require.True(t, b.Frozen())

	b.ApplyKnockback(geom.V(10, 0, 0))
	b.MoveTo(geom.V(10, 0, 5))
	run(p, time.Second)
	assert.Equal(t, geom.V(5, 0, 5), b.Position())
}

func TestPhysics_RagdollDrifts(t *testing.T) {
	p := newPhysics(openArena())
	b := p.Spawn("wolf", geom.V(5, 0, 5), 4, 8)
	b.Ragdoll(geom.V(0, 3, 4))
	b.MoveTo(geom.V(5, 0, 1))
	run(p, time.Second)
	assert.Greater(t, b.Position().Z, 5.0, "ragdolls ignore steering")
}

func TestPhysics_ReturnsBodiesToBounds(t *testing.T) {
	a := openArena()
	p := newPhysics(a)
	b := p.Spawn("wolf", geom.V(5, 0, 5), 4, 8)
	b.Teleport(geom.V(-4, 0, 25))
	p.Step(step)
	assert.True(t, a.InBounds(b.Position()))
	assert.Equal(t, geom.V(0, 0, 20), b.Position())
}

func TestPhysics_RemoveAndRespawn(t *testing.T) {
	p := newPhysics(openArena())
	p.Spawn("wolf", geom.V(5, 0, 5), 4, 8)
	require.NotNil(t, p.Body("wolf"))
	p.Remove("wolf")
	assert.Nil(t, p.Body("wolf"))
	p.Remove("wolf")

	b := p.Spawn("wolf", geom.V(6, 0, 6), 4, 8)
	assert.Equal(t, geom.V(6, 0, 6), b.Position())
}

func TestBody_LookAtAndFacing(t *testing.T) {
	p := newPhysics(openArena())
	b := p.Spawn("wolf", geom.V(5, 0, 5), 4, 8)
	b.LookAt(geom.V(5, 0, 9))
	assert.InDelta(t, 0, b.Yaw(), 1e-9)
	b.SetFacing(-90)
	assert.InDelta(t, 270, b.Yaw(), 1e-9)
}
