package game

import "math"

// Vec2 is a point or direction in the battle plane.
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }
func (v Vec2) LengthSquared() float64 { return v.X*v.X + v.Y*v.Y }
func (v Vec2) Length() float64 { return math.Sqrt(v.LengthSquared()) }
func (v Vec2) DistanceSquared(o Vec2) float64 { return v.Sub(o).LengthSquared() }

// Normalize returns the unit vector and false for zero-length or
// non-finite input.
func (v Vec2) Normalize() (Vec2, bool) {
	l := v.Length()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Vec2{}, false
	}
	return Vec2{v.X / l, v.Y / l}, true
}

// Rotate turns v counter-clockwise by angle radians.
func (v Vec2) Rotate(angle float64) Vec2 {
	s, c := math.Sincos(angle)
	return Vec2{v.X*c - v.Y*s, v.X*s + v.Y*c}
}

// Heading returns the unit vector for a rotation in radians (0 = +X).
func Heading(rotation float64) Vec2 {
	s, c := math.Sincos(rotation)
	return Vec2{c, s}
}

// HeadingTo returns the rotation that faces from -> to.
func HeadingTo(from, to Vec2) float64 {
	d := to.Sub(from)
	return math.Atan2(d.Y, d.X)
}

// normalizeAngle wraps an angle to [-π, π] in constant time. Non-finite
// input yields NaN.
func normalizeAngle(angle float64) float64 {
	return math.Remainder(angle, 2*math.Pi)
}

func angleDifference(a, b float64) float64 {
	return normalizeAngle(a - b)
}
