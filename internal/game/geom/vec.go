// Package geom holds the small vector toolkit used across the arena.
//
// The arena is a top-down plane: X and Z span the floor, Y is height. Physics
// and spatial queries operate on the (X, Z) plane only.
package geom

import "math"

// Vec3 is a point or direction in arena space.
type Vec3 struct {
	X, Y, Z float64
}

// Zero is the origin.
var Zero = Vec3{}

// V constructs a Vec3.
func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3         { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3         { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3    { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64      { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Len() float64            { return math.Sqrt(v.Dot(v)) }
func (v Vec3) Dist(o Vec3) float64     { return v.Sub(o).Len() }
func (v Vec3) Flat() Vec3              { return Vec3{X: v.X, Z: v.Z} }
func (v Vec3) FlatDist(o Vec3) float64 { return v.Flat().Dist(o.Flat()) }

// Normalize returns the unit vector in v's direction, or Zero for a zero vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Zero
	}
	return v.Scale(1 / l)
}

// ClampLen returns v scaled down so its length does not exceed max.
func (v Vec3) ClampLen(max float64) Vec3 {
	l := v.Len()
	if l <= max || l == 0 {
		return v
	}
	return v.Scale(max / l)
}

// Lerp interpolates between a and b by t in [0, 1].
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Scale(t))
}

// AngleDeg returns the unsigned angle between a and b in degrees, measured on
// the floor plane. Either vector being zero yields 0.
func AngleDeg(a, b Vec3) float64 {
	fa, fb := a.Flat().Normalize(), b.Flat().Normalize()
	if fa == Zero || fb == Zero {
		return 0
	}
	d := math.Max(-1, math.Min(1, fa.Dot(fb)))
	return math.Acos(d) * 180 / math.Pi
}

// YawOf returns the heading in degrees of a flat direction. 0 faces +Z and the
// angle grows clockwise towards +X.
func YawOf(dir Vec3) float64 {
	return NormalizeYaw(math.Atan2(dir.X, dir.Z) * 180 / math.Pi)
}

// Forward returns the unit floor direction for yaw degrees.
func Forward(yaw float64) Vec3 {
	r := yaw * math.Pi / 180
	return Vec3{X: math.Sin(r), Z: math.Cos(r)}
}

// NormalizeYaw maps any angle to [0, 360).
func NormalizeYaw(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// ShortestTurn returns the signed delta in (-180, 180] that rotates from into to.
func ShortestTurn(from, to float64) float64 {
	d := NormalizeYaw(to - from)
	if d > 180 {
		d -= 360
	}
	return d
}
