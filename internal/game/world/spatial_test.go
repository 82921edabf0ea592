package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/geom"
	"github.com/marcaocj/R1/internal/game/world"
)

type dummy struct {
	id  string
	tag actor.Tag
	pos geom.Vec3
	eye float64
}

func (d *dummy) ID() string          { return d.id }
func (d *dummy) Tag() actor.Tag      { return d.tag }
func (d *dummy) Position() geom.Vec3 { return d.pos }
func (d *dummy) Facing() float64     { return 0 }
func (d *dummy) EyeHeight() float64  { return d.eye }

// walledArena is 20x20 with a wall from (10,4) to (11,12).
func walledArena(height float64) *world.Arena {
	return &world.Arena{
		Name:        "walled",
		Width:       20,
		Depth:       20,
		Obstacles:   []world.Rect{{X: 10, Z: 4, W: 1, D: 8, Height: height}},
		PlayerSpawn: geom.V(2, 0, 8),
		PatrolPaths: map[string][]geom.Vec3{},
	}
}

func TestSpatial_CanSeeTarget(t *testing.T) {
	s := world.NewSpatial(walledArena(3))
	a := &dummy{id: "a", pos: geom.V(5, 0, 8), eye: 0.5}
	b := &dummy{id: "b", pos: geom.V(15, 0, 8), eye: 0.5}
	c := &dummy{id: "c", pos: geom.V(5, 0, 16), eye: 0.5}
	d := &dummy{id: "d", pos: geom.V(15, 0, 16), eye: 0.5}

	assert.False(t, s.CanSeeTarget(a, b), "wall between")
	assert.True(t, s.CanSeeTarget(a, c), "same side")
	assert.True(t, s.CanSeeTarget(c, d), "past the end of the wall")
	assert.False(t, s.CanSeeTarget(nil, b))
}

func TestSpatial_CanSeeOverLowWall(t *testing.T) {
	s := world.NewSpatial(walledArena(0.3))
	a := &dummy{id: "a", pos: geom.V(5, 0, 8), eye: 0.5}
	b := &dummy{id: "b", pos: geom.V(15, 0, 8), eye: 0.5}
	assert.True(t, s.CanSeeTarget(a, b))

	short := &dummy{id: "short", pos: geom.V(5, 0, 8), eye: 0.2}
	low := &dummy{id: "low", pos: geom.V(15, 0, 8), eye: 0.2}
	assert.False(t, s.CanSeeTarget(short, low))
}

// mortal is a dummy that can die.
type mortal struct {
	dummy
	dead bool
}

func (m *mortal) IsAlive() bool { return !m.dead }

func TestSpatial_ActorsOcclude(t *testing.T) {
	s := world.NewSpatial(walledArena(3))
	a := &dummy{id: "a", pos: geom.V(2, 0, 16)}
	blocker := &dummy{id: "blocker", pos: geom.V(4, 0, 16)}
	b := &dummy{id: "b", pos: geom.V(6, 0, 16)}
	for _, d := range []*dummy{a, blocker, b} {
		s.Track(d)
	}
	assert.False(t, s.CanSeeTarget(a, b))
	assert.False(t, s.CanSeeTarget(b, a))
	assert.True(t, s.CanSeeTarget(a, blocker), "the target itself never occludes")

	blocker.pos = geom.V(4, 0, 17)
	s.Sync()
	assert.True(t, s.CanSeeTarget(a, b), "a footprint beside the sightline does not block it")
}

func TestSpatial_CorpsesDoNotOcclude(t *testing.T) {
	s := world.NewSpatial(walledArena(3))
	a := &dummy{id: "a", pos: geom.V(2, 0, 16)}
	corpse := &mortal{dummy: dummy{id: "corpse", pos: geom.V(4, 0, 16)}}
	b := &dummy{id: "b", pos: geom.V(6, 0, 16)}
	s.Track(corpse)
	assert.False(t, s.CanSeeTarget(a, b))

	corpse.dead = true
	assert.True(t, s.CanSeeTarget(a, b))
}

func TestSpatial_FindNearbyActors(t *testing.T) {
	s := world.NewSpatial(walledArena(3))
	hero := &dummy{id: "hero", tag: actor.TagPlayer, pos: geom.V(5, 0, 15)}
	near := &dummy{id: "near", tag: actor.TagEnemy, pos: geom.V(6, 0, 15)}
	mid := &dummy{id: "mid", tag: actor.TagEnemy, pos: geom.V(5, 0, 18)}
	far := &dummy{id: "far", tag: actor.TagEnemy, pos: geom.V(15, 0, 15)}
	for _, a := range []*dummy{hero, near, mid, far} {
		s.Track(a)
	}
	require.Equal(t, 4, s.Tracked())

	got := s.FindNearbyActors(hero.pos, 4, nil)
	assert.Equal(t, []string{"hero", "near", "mid"}, ids(got))

	got = s.FindNearbyActors(hero.pos, 4, actor.All(actor.ByTag(actor.TagEnemy)))
	assert.Equal(t, []string{"near", "mid"}, ids(got))

	far.pos = geom.V(7, 0, 15)
	s.Sync()
	got = s.FindNearbyActors(hero.pos, 4, actor.Except("hero"))
	assert.Equal(t, []string{"near", "far", "mid"}, ids(got))

	s.Untrack("near")
	got = s.FindNearbyActors(hero.pos, 4, actor.Except("hero"))
	assert.Equal(t, []string{"far", "mid"}, ids(got))

	assert.Empty(t, s.FindNearbyActors(hero.pos, -1, nil))
}

func TestSpatial_Blocked(t *testing.T) {
	s := world.NewSpatial(walledArena(3))
	assert.True(t, s.Blocked(geom.V(5, 0, 8), geom.V(15, 0, 8)))
	assert.False(t, s.Blocked(geom.V(5, 0, 15), geom.V(15, 0, 15)))

	low := world.NewSpatial(walledArena(0.5))
	assert.False(t, low.Blocked(geom.V(5, 0, 8), geom.V(15, 0, 8)), "projectiles fly over low walls")
}

func TestSpatial_SolidAt(t *testing.T) {
	s := world.NewSpatial(walledArena(3))
	assert.True(t, s.SolidAt(10.2, 5, 0.5, 0.5))
	assert.False(t, s.SolidAt(2, 2, 1, 1))
	assert.False(t, s.SolidAt(11, 5, 1, 1), "touching the wall edge is not overlap")
}

func TestProperty_NearbyActorsWithinRadiusAndSorted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := world.NewSpatial(walledArena(3))
		n := rapid.IntRange(0, 12).Draw(t, "n")
		for i := 0; i < n; i++ {
			s.Track(&dummy{
				id:  string(rune('a' + i)),
				pos: geom.V(rapid.Float64Range(0, 20).Draw(t, "x"), 0, rapid.Float64Range(0, 20).Draw(t, "z")),
			})
		}
		center := geom.V(rapid.Float64Range(0, 20).Draw(t, "cx"), 0, rapid.Float64Range(0, 20).Draw(t, "cz"))
		radius := rapid.Float64Range(0, 15).Draw(t, "radius")

		got := s.FindNearbyActors(center, radius, nil)
		prev := -1.0
		for _, a := range got {
			d := center.FlatDist(a.Position())
			if d > radius {
				t.Fatalf("%s at %v outside radius %v", a.ID(), d, radius)
			}
			if d < prev {
				t.Fatalf("results not sorted by distance")
			}
			prev = d
		}
	})
}

func ids(as []actor.Actor) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID()
	}
	return out
}
