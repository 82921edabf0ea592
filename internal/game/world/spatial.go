package world

import (
	"math"
	"slices"
	"sort"

	"github.com/solarlune/resolv"

	"github.com/marcaocj/R1/internal/game/actor"
	"github.com/marcaocj/R1/internal/game/geom"
)

const (
	tagSolid = "solid"
	tagActor = "actor"
	tagProbe = "probe"

	// actorRadius is the footprint radius of every actor.
	actorRadius = 0.4
	// defaultEyeHeight is used for observers that do not report one.
	defaultEyeHeight = 0.5
	// projectileHeight is the flight height of projectiles above their origin.
	projectileHeight = 1.0
)

// eyeHeighted is implemented by actors with their own eye height.
type eyeHeighted interface {
	EyeHeight() float64
}

// Spatial indexes obstacles and actors in a resolv space and answers sight
// and proximity queries. One resolv unit is one world unit; world Z maps to
// resolv Y.
//
// Not safe for concurrent use.
type Spatial struct {
	space  *resolv.Space
	probe  *resolv.Object
	actors map[string]*resolv.Object
}

// NewSpatial indexes the obstacles of a.
//
// Precondition: a is valid.
func NewSpatial(a *Arena) *Spatial {
	w := int(math.Ceil(a.Width)) + 1
	d := int(math.Ceil(a.Depth)) + 1
	s := &Spatial{
		space:  resolv.NewSpace(w, d, 1, 1),
		actors: make(map[string]*resolv.Object),
	}
	for i := range a.Obstacles {
		o := a.Obstacles[i]
		obj := resolv.NewObject(o.X, o.Z, o.W, o.D, tagSolid)
		obj.Data = o
		s.space.Add(obj)
	}
	s.probe = resolv.NewObject(0, 0, 0.1, 0.1, tagProbe)
	s.space.Add(s.probe)
	return s
}

// Track starts indexing a.
func (s *Spatial) Track(a actor.Actor) {
	if _, ok := s.actors[a.ID()]; ok {
		return
	}
	obj := resolv.NewObject(0, 0, 2*actorRadius, 2*actorRadius, tagActor)
	obj.Data = a
	s.actors[a.ID()] = obj
	s.space.Add(obj)
	s.place(obj, a.Position())
}

// Untrack stops indexing the actor with id.
func (s *Spatial) Untrack(id string) {
	if obj, ok := s.actors[id]; ok {
		s.space.Remove(obj)
		delete(s.actors, id)
	}
}

// Tracked returns the number of indexed actors.
func (s *Spatial) Tracked() int { return len(s.actors) }

// Sync moves every indexed actor to its current position.
func (s *Spatial) Sync() {
	for _, obj := range s.actors {
		s.place(obj, obj.Data.(actor.Actor).Position())
	}
}

func (s *Spatial) place(obj *resolv.Object, p geom.Vec3) {
	obj.X = p.X - obj.W/2
	obj.Y = p.Z - obj.H/2
	obj.Update()
}

// query returns the objects with tag whose cells overlap the floor box.
func (s *Spatial) query(x, z, w, d float64, tag string) []*resolv.Object {
	s.probe.X, s.probe.Y = x, z
	s.probe.W, s.probe.H = math.Max(w, 0.01), math.Max(d, 0.01)
	s.probe.Update()
	check := s.probe.Check(0, 0, tag)
	if check == nil {
		return nil
	}
	return check.ObjectsByTags(tag)
}

// FindNearbyActors returns the indexed actors within radius of center that
// pass filter, nearest first.
func (s *Spatial) FindNearbyActors(center geom.Vec3, radius float64, filter actor.Filter) []actor.Actor {
	if radius < 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var out []actor.Actor
	for _, obj := range s.query(center.X-radius, center.Z-radius, 2*radius, 2*radius, tagActor) {
		a := obj.Data.(actor.Actor)
		if _, dup := seen[a.ID()]; dup {
			continue
		}
		seen[a.ID()] = struct{}{}
		if center.FlatDist(a.Position()) > radius {
			continue
		}
		if filter != nil && !filter(a) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := center.FlatDist(out[i].Position()), center.FlatDist(out[j].Position())
		if di != dj {
			return di < dj
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// CanSeeTarget reports whether the sightline from observer's eye to target's
// eye clears every wall and every other living actor.
func (s *Spatial) CanSeeTarget(observer, target actor.Actor) bool {
	if observer == nil || target == nil {
		return false
	}
	eye := defaultEyeHeight
	if e, ok := observer.(eyeHeighted); ok {
		eye = e.EyeHeight()
	}
	up := geom.V(0, eye, 0)
	from, to := observer.Position(), target.Position()
	if s.SegmentBlocked(from.Add(up), to.Add(up)) {
		return false
	}
	return !s.actorBetween(from, to, observer.ID(), target.ID())
}

// actorBetween reports whether a tracked living actor other than the two ends
// has its footprint on the floor segment a-b.
func (s *Spatial) actorBetween(a, b geom.Vec3, ends ...string) bool {
	x, z := math.Min(a.X, b.X)-actorRadius, math.Min(a.Z, b.Z)-actorRadius
	w, d := math.Abs(b.X-a.X)+2*actorRadius, math.Abs(b.Z-a.Z)+2*actorRadius
	for _, obj := range s.query(x, z, w, d, tagActor) {
		other := obj.Data.(actor.Actor)
		if slices.Contains(ends, other.ID()) {
			continue
		}
		if l, ok := other.(interface{ IsAlive() bool }); ok && !l.IsAlive() {
			continue
		}
		if segmentPointDist(a, b, other.Position()) < actorRadius {
			return true
		}
	}
	return false
}

// segmentPointDist is the floor-plane distance from p to the segment a-b.
func segmentPointDist(a, b, p geom.Vec3) float64 {
	ab, ap := b.Sub(a).Flat(), p.Sub(a).Flat()
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return ap.Len()
	}
	t := min(max(ap.Dot(ab)/l2, 0), 1)
	return ap.Sub(ab.Scale(t)).Len()
}

// Blocked reports whether a projectile flying from a to b hits a wall.
func (s *Spatial) Blocked(from, to geom.Vec3) bool {
	up := geom.V(0, projectileHeight, 0)
	return s.SegmentBlocked(from.Add(up), to.Add(up))
}

// SegmentBlocked reports whether the 3D segment a-b passes through any
// obstacle below its wall height.
func (s *Spatial) SegmentBlocked(a, b geom.Vec3) bool {
	x, z := math.Min(a.X, b.X), math.Min(a.Z, b.Z)
	w, d := math.Abs(b.X-a.X), math.Abs(b.Z-a.Z)
	for _, obj := range s.query(x, z, w, d, tagSolid) {
		if segmentHitsRect(a, b, obj.Data.(Rect)) {
			return true
		}
	}
	return false
}

// SolidAt reports whether the floor box overlaps an obstacle.
func (s *Spatial) SolidAt(x, z, w, d float64) bool {
	for _, obj := range s.query(x, z, w, d, tagSolid) {
		r := obj.Data.(Rect)
		if x < r.X+r.W && x+w > r.X && z < r.Z+r.D && z+d > r.Z {
			return true
		}
	}
	return false
}

// segmentHitsRect clips a-b against r's footprint (slab method) and checks
// the segment height over the clipped interval against the wall height.
func segmentHitsRect(a, b geom.Vec3, r Rect) bool {
	t0, t1 := 0.0, 1.0
	clip := func(p, dp, lo, hi float64) bool {
		if dp == 0 {
			return p >= lo && p <= hi
		}
		ta, tb := (lo-p)/dp, (hi-p)/dp
		if ta > tb {
			ta, tb = tb, ta
		}
		t0, t1 = math.Max(t0, ta), math.Min(t1, tb)
		return t0 <= t1
	}
	if !clip(a.X, b.X-a.X, r.X, r.X+r.W) || !clip(a.Z, b.Z-a.Z, r.Z, r.Z+r.D) {
		return false
	}
	y0 := a.Y + (b.Y-a.Y)*t0
	y1 := a.Y + (b.Y-a.Y)*t1
	return math.Min(y0, y1) <= r.Height
}
