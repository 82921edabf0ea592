// Package world hosts a headless arena: map geometry, the spatial index used
// for sight and proximity, physics bodies, navigation and the tick loop that
// drives the player, enemies and projectiles.
package world

import (
	"fmt"

	"github.com/marcaocj/R1/internal/game/geom"
)

// Rect is an axis-aligned obstacle footprint on the floor plane with a wall
// height. X/Z is the minimum corner.
type Rect struct {
	X, Z   float64
	W, D   float64
	Height float64
}

// Contains reports whether the floor point p lies inside r.
func (r Rect) Contains(p geom.Vec3) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Z >= r.Z && p.Z <= r.Z+r.D
}

// EnemySpawn places one enemy template in the arena.
type EnemySpawn struct {
	TemplateID string
	// Level overrides the template level when > 0.
	Level      int
	Position   geom.Vec3
	PatrolPath string
}

// Arena is the static layout of one fight area.
//
// Invariant: Width > 0 and Depth > 0; every spawn lies inside the bounds.
type Arena struct {
	Name        string
	Width       float64
	Depth       float64
	Obstacles   []Rect
	PlayerSpawn geom.Vec3
	EnemySpawns []EnemySpawn
	PatrolPaths map[string][]geom.Vec3
}

// InBounds reports whether p lies on the arena floor.
func (a *Arena) InBounds(p geom.Vec3) bool {
	return p.X >= 0 && p.X <= a.Width && p.Z >= 0 && p.Z <= a.Depth
}

// Clamp returns the nearest in-bounds point to p, keeping its height.
func (a *Arena) Clamp(p geom.Vec3) geom.Vec3 {
	p.X = min(max(p.X, 0), a.Width)
	p.Z = min(max(p.Z, 0), a.Depth)
	return p
}

// Blocked reports whether p is inside any obstacle footprint.
func (a *Arena) Blocked(p geom.Vec3) bool {
	for _, o := range a.Obstacles {
		if o.Contains(p) {
			return true
		}
	}
	return false
}

// Waypoints returns the patrol route of spawn s, or nil.
func (a *Arena) Waypoints(s EnemySpawn) []geom.Vec3 {
	if s.PatrolPath == "" {
		return nil
	}
	return append([]geom.Vec3(nil), a.PatrolPaths[s.PatrolPath]...)
}

// Validate checks the arena invariants.
//
// Postcondition: Returns nil if valid, or the first violation.
func (a *Arena) Validate() error {
	if a.Width <= 0 || a.Depth <= 0 {
		return fmt.Errorf("arena %q: size must be positive, got %gx%g", a.Name, a.Width, a.Depth)
	}
	if !a.InBounds(a.PlayerSpawn) {
		return fmt.Errorf("arena %q: player spawn %v is out of bounds", a.Name, a.PlayerSpawn)
	}
	for i, s := range a.EnemySpawns {
		if s.TemplateID == "" {
			return fmt.Errorf("arena %q: enemy spawn %d has no template", a.Name, i)
		}
		if !a.InBounds(s.Position) {
			return fmt.Errorf("arena %q: enemy spawn %d (%s) is out of bounds", a.Name, i, s.TemplateID)
		}
		if s.PatrolPath != "" {
			if _, ok := a.PatrolPaths[s.PatrolPath]; !ok {
				return fmt.Errorf("arena %q: enemy spawn %d references unknown patrol path %q", a.Name, i, s.PatrolPath)
			}
		}
	}
	return nil
}
