package world

import (
	"math"

	astar "github.com/beefsack/go-astar"

	"github.com/marcaocj/R1/internal/game/geom"
)

// navInset shrinks each probed cell so touching walls do not block it.
const navInset = 0.05

// NavGrid is the walkable floor of an arena at one cell per world unit.
type NavGrid struct {
	Width, Depth int
	CellSize     float64
	Nodes        [][]*NavNode
}

// NavNode is one grid cell. It implements astar.Pather.
type NavNode struct {
	X, Z     int
	Walkable bool
	grid     *NavGrid
}

var navDirs = []struct{ dx, dz int }{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1},
}

// PathNeighbors returns the walkable 8-neighbours. Diagonals that would cut a
// blocked corner are skipped.
func (n *NavNode) PathNeighbors() []astar.Pather {
	var out []astar.Pather
	for _, d := range navDirs {
		next := n.grid.node(n.X+d.dx, n.Z+d.dz)
		if next == nil || !next.Walkable {
			continue
		}
		if d.dx != 0 && d.dz != 0 {
			a, b := n.grid.node(n.X+d.dx, n.Z), n.grid.node(n.X, n.Z+d.dz)
			if a == nil || !a.Walkable || b == nil || !b.Walkable {
				continue
			}
		}
		out = append(out, next)
	}
	return out
}

// PathNeighborCost is the Euclidean step length.
func (n *NavNode) PathNeighborCost(to astar.Pather) float64 {
	m := to.(*NavNode)
	return math.Hypot(float64(m.X-n.X), float64(m.Z-n.Z))
}

// PathEstimatedCost is the Euclidean distance heuristic.
func (n *NavNode) PathEstimatedCost(to astar.Pather) float64 {
	return n.PathNeighborCost(to)
}

// NewNavGrid probes every cell of a against the spatial index.
func NewNavGrid(a *Arena, s *Spatial) *NavGrid {
	g := &NavGrid{
		Width:    int(math.Ceil(a.Width)),
		Depth:    int(math.Ceil(a.Depth)),
		CellSize: 1,
	}
	g.Nodes = make([][]*NavNode, g.Depth)
	for z := 0; z < g.Depth; z++ {
		g.Nodes[z] = make([]*NavNode, g.Width)
		for x := 0; x < g.Width; x++ {
			wx, wz := float64(x)*g.CellSize, float64(z)*g.CellSize
			size := g.CellSize - 2*navInset
			g.Nodes[z][x] = &NavNode{
				X:        x,
				Z:        z,
				Walkable: !s.SolidAt(wx+navInset, wz+navInset, size, size),
				grid:     g,
			}
		}
	}
	return g
}

func (g *NavGrid) node(x, z int) *NavNode {
	if x < 0 || x >= g.Width || z < 0 || z >= g.Depth {
		return nil
	}
	return g.Nodes[z][x]
}

func (g *NavGrid) cellOf(p geom.Vec3) (int, int) {
	x := min(max(int(p.X/g.CellSize), 0), g.Width-1)
	z := min(max(int(p.Z/g.CellSize), 0), g.Depth-1)
	return x, z
}

// Center returns the world position of the middle of cell (x, z).
func (g *NavGrid) Center(x, z int) geom.Vec3 {
	return geom.V((float64(x)+0.5)*g.CellSize, 0, (float64(z)+0.5)*g.CellSize)
}

// Walkable reports whether the cell containing p is free.
func (g *NavGrid) Walkable(p geom.Vec3) bool {
	x, z := g.cellOf(p)
	return g.Nodes[z][x].Walkable
}

// nearestWalkable searches outward in squares for a free cell.
func (g *NavGrid) nearestWalkable(x, z int) *NavNode {
	for r := 1; r < max(g.Width, g.Depth); r++ {
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				if n := g.node(x+dx, z+dz); n != nil && n.Walkable {
					return n
				}
			}
		}
	}
	return nil
}

// FindPath returns the waypoints from from to to, excluding the start cell.
// The last waypoint is to itself when its cell is walkable, otherwise the
// centre of the nearest walkable cell.
//
// Postcondition: ok is false when no route exists.
func (g *NavGrid) FindPath(from, to geom.Vec3) (path []geom.Vec3, ok bool) {
	if g.Width == 0 || g.Depth == 0 {
		return nil, false
	}
	sx, sz := g.cellOf(from)
	gx, gz := g.cellOf(to)
	start, goal := g.Nodes[sz][sx], g.Nodes[gz][gx]
	exactGoal := goal.Walkable
	if !start.Walkable {
		start = g.nearestWalkable(sx, sz)
	}
	if !goal.Walkable {
		goal = g.nearestWalkable(gx, gz)
	}
	if start == nil || goal == nil {
		return nil, false
	}
	if start == goal {
		if exactGoal {
			return []geom.Vec3{to}, true
		}
		return []geom.Vec3{g.Center(goal.X, goal.Z)}, true
	}

	route, _, found := astar.Path(start, goal)
	if !found || len(route) == 0 {
		return nil, false
	}
	nodes := make([]*NavNode, len(route))
	for i, p := range route {
		nodes[i] = p.(*NavNode)
	}
	if nodes[0] == goal {
		for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
			nodes[i], nodes[j] = nodes[j], nodes[i]
		}
	}
	for _, n := range nodes[1:] {
		path = append(path, g.Center(n.X, n.Z))
	}
	if exactGoal {
		path[len(path)-1] = to
	}
	return path, true
}
