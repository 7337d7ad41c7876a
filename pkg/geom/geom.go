// Package geom is the exact geometry layer of the kernel: parametric
// curves and surfaces, their evaluation, and the numeric intersection
// and projection routines the topology and Boolean layers build on.
// Geometry values are immutable once constructed and safe to share
// between goroutines.
package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Point is a position in model space.
type Point = v3.Vec

// Vector is a direction or derivative in model space.
type Vector = v3.Vec

// UV is a position in a surface's parameter space.
type UV = v2.Vec

// Box is an axis-aligned bounding box in model space.
type Box = sdf.Box3

// Matrix is a homogeneous transform; the kernel only applies rigid motions.
type Matrix = sdf.M44

// Vec is shorthand for building a Point or Vector.
func Vec(x, y, z float64) v3.Vec {
	return v3.Vec{X: x, Y: y, Z: z}
}

// Param is shorthand for building a UV.
func Param(u, v float64) UV {
	return v2.Vec{X: u, Y: v}
}

// Interval is a closed parameter range [Min, Max].
type Interval struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Unbounded is the parameter domain of lines and planes.
var Unbounded = Interval{Min: math.Inf(-1), Max: math.Inf(1)}

// Contains reports whether t lies in the interval, allowing a slack of eps
// on either end.
func (iv Interval) Contains(t, eps float64) bool {
	return t >= iv.Min-eps && t <= iv.Max+eps
}

// Length is Max-Min.
func (iv Interval) Length() float64 {
	return iv.Max - iv.Min
}

// Mid is the interval midpoint.
func (iv Interval) Mid() float64 {
	return 0.5 * (iv.Min + iv.Max)
}

// Lerp maps s in [0,1] onto the interval.
func (iv Interval) Lerp(s float64) float64 {
	return iv.Min + s*(iv.Max-iv.Min)
}

// Clamp limits t to the interval.
func (iv Interval) Clamp(t float64) float64 {
	return math.Max(iv.Min, math.Min(iv.Max, t))
}

// Bounded reports whether both ends are finite.
func (iv Interval) Bounded() bool {
	return !math.IsInf(iv.Min, 0) && !math.IsInf(iv.Max, 0)
}

// Expand widens the interval by d on both ends.
func (iv Interval) Expand(d float64) Interval {
	return Interval{Min: iv.Min - d, Max: iv.Max + d}
}

// Intersect returns the overlap of two intervals and whether it is non-empty.
func (iv Interval) Intersect(o Interval) (Interval, bool) {
	r := Interval{Min: math.Max(iv.Min, o.Min), Max: math.Min(iv.Max, o.Max)}
	return r, r.Min <= r.Max
}

// EmptyBox returns a box that any Extend call replaces.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{Min: Vec(inf, inf, inf), Max: Vec(-inf, -inf, -inf)}
}

// BoxOf returns the bounds of a set of points.
func BoxOf(pts ...Point) Box {
	b := EmptyBox()
	for _, p := range pts {
		b = Extend(b, p)
	}
	return b
}

// Extend grows b to include p.
func Extend(b Box, p Point) Box {
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Merge returns the union of two boxes.
func Merge(a, b Box) Box {
	return Box{Min: a.Min.Min(b.Min), Max: a.Max.Max(b.Max)}
}

// Grow pads a box by d in every direction.
func Grow(b Box, d float64) Box {
	pad := Vec(d, d, d)
	return Box{Min: b.Min.Sub(pad), Max: b.Max.Add(pad)}
}

// Overlaps reports whether two boxes intersect once each is padded by eps.
func Overlaps(a, b Box, eps float64) bool {
	return a.Min.X <= b.Max.X+eps && b.Min.X <= a.Max.X+eps &&
		a.Min.Y <= b.Max.Y+eps && b.Min.Y <= a.Max.Y+eps &&
		a.Min.Z <= b.Max.Z+eps && b.Min.Z <= a.Max.Z+eps
}

// BoxContains reports whether p lies inside b padded by eps.
func BoxContains(b Box, p Point, eps float64) bool {
	return p.X >= b.Min.X-eps && p.X <= b.Max.X+eps &&
		p.Y >= b.Min.Y-eps && p.Y <= b.Max.Y+eps &&
		p.Z >= b.Min.Z-eps && p.Z <= b.Max.Z+eps
}

// Diagonal is the length of the box diagonal, zero for an empty box.
func Diagonal(b Box) float64 {
	if b.Min.X > b.Max.X {
		return 0
	}
	return b.Max.Sub(b.Min).Length()
}

// Center is the box midpoint.
func Center(b Box) Point {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

// Magnitude is the largest absolute coordinate of p, used to scale the
// relative part of the tolerance.
func Magnitude(p Point) float64 {
	return math.Max(math.Abs(p.X), math.Max(math.Abs(p.Y), math.Abs(p.Z)))
}

// Unit normalizes v, returning the zero vector for a zero-length input.
func Unit(v Vector) Vector {
	l := v.Length()
	if l == 0 {
		return Vector{}
	}
	return v.MulScalar(1 / l)
}

// Dist is the distance between two points.
func Dist(a, b Point) float64 {
	return a.Sub(b).Length()
}

// Lerp interpolates between two points.
func Lerp(a, b Point, s float64) Point {
	return a.Add(b.Sub(a).MulScalar(s))
}

// Orthonormal returns two unit vectors perpendicular to n and to each other,
// forming a right-handed frame (x, y, n).
func Orthonormal(n Vector) (x, y Vector) {
	n = Unit(n)
	ref := Vec(1, 0, 0)
	if math.Abs(n.X) > 0.9 {
		ref = Vec(0, 1, 0)
	}
	x = Unit(ref.Sub(n.MulScalar(ref.Dot(n))))
	y = n.Cross(x)
	return x, y
}

// Cross2 is the z component of the cross product of two parameter-space vectors.
func Cross2(a, b UV) float64 {
	return a.X*b.Y - a.Y*b.X
}
