package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/marcaocj/R1/internal/game/geom"
	"github.com/marcaocj/R1/internal/game/world"
)

func navFor(a *world.Arena) *world.NavGrid {
	return world.NewNavGrid(a, world.NewSpatial(a))
}

func TestNavGrid_MarksObstacleCells(t *testing.T) {
	g := navFor(walledArena(3))
	assert.Equal(t, 20, g.Width)
	assert.Equal(t, 20, g.Depth)
	assert.False(t, g.Walkable(geom.V(10.5, 0, 6)))
	assert.True(t, g.Walkable(geom.V(9.5, 0, 6)), "cells touching the wall stay walkable")
	assert.True(t, g.Walkable(geom.V(11.5, 0, 6)))
	assert.True(t, g.Walkable(geom.V(10.5, 0, 12.5)))
}

func TestNavGrid_FindPathAroundWall(t *testing.T) {
	g := navFor(walledArena(3))
	from, to := geom.V(5, 0, 8), geom.V(15, 0, 8)

	path, ok := g.FindPath(from, to)
	require.True(t, ok)
	require.NotEmpty(t, path)
	assert.Equal(t, to, path[len(path)-1], "ends on the exact target")
	for _, p := range path {
		assert.True(t, g.Walkable(p), "waypoint %v is walkable", p)
	}
	// The route must detour past either end of the wall.
	detour := false
	for _, p := range path {
		if p.Z < 4 || p.Z > 12 {
			detour = true
		}
	}
	assert.True(t, detour)
}

func TestNavGrid_SameCell(t *testing.T) {
	g := navFor(walledArena(3))
	path, ok := g.FindPath(geom.V(2.2, 0, 2.2), geom.V(2.8, 0, 2.6))
	require.True(t, ok)
	assert.Equal(t, []geom.Vec3{geom.V(2.8, 0, 2.6)}, path)
}

func TestNavGrid_BlockedGoalUsesNearestCell(t *testing.T) {
	g := navFor(walledArena(3))
	path, ok := g.FindPath(geom.V(5, 0, 8), geom.V(10.5, 0, 8))
	require.True(t, ok)
	last := path[len(path)-1]
	assert.True(t, g.Walkable(last))
	assert.InDelta(t, 10.5, last.X, 1.5)
}

func TestNavGrid_Unreachable(t *testing.T) {
	a := walledArena(3)
	a.Obstacles = []world.Rect{{X: 10, Z: 0, W: 1, D: 20, Height: 3}}
	g := navFor(a)
	_, ok := g.FindPath(geom.V(5, 0, 8), geom.V(15, 0, 8))
	assert.False(t, ok)
}

func TestProperty_PathsStayWalkable(t *testing.T) {
	g := navFor(walledArena(3))
	rapid.Check(t, func(t *rapid.T) {
		from := geom.V(rapid.Float64Range(0, 9.9).Draw(t, "fx"), 0, rapid.Float64Range(0, 19.9).Draw(t, "fz"))
		to := geom.V(rapid.Float64Range(11, 19.9).Draw(t, "tx"), 0, rapid.Float64Range(0, 19.9).Draw(t, "tz"))
		path, ok := g.FindPath(from, to)
		if !ok {
			t.Fatalf("no path from %v to %v", from, to)
		}
		for i, p := range path {
			if !g.Walkable(p) {
				t.Fatalf("waypoint %d %v is blocked", i, p)
			}
		}
		if path[len(path)-1] != to {
			t.Fatalf("path ends at %v, want %v", path[len(path)-1], to)
		}
	})
}
