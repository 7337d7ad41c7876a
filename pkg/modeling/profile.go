// Package modeling builds closed solids: boxes, cylinders and spheres, and
// the sweeps they are made from.
package modeling

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/geom"
)

// ErrInvalidProfile is returned for profiles that are open, non-planar or
// degenerate.
var ErrInvalidProfile = errors.New("modeling: invalid profile")

// Segment is one piece of a profile.
type Segment struct {
	Curve geom.Curve
	Range geom.Interval
}

// Start is the point the segment leaves from.
func (s Segment) Start() geom.Point { return s.Curve.At(s.Range.Min) }

// End is the point the segment arrives at.
func (s Segment) End() geom.Point { return s.Curve.At(s.Range.Max) }

// Profile is a closed planar loop of segments, each ending where the next
// one starts.
type Profile struct {
	Segments []Segment
}

// Polygon returns the straight-sided profile through the given corners.
func Polygon(pts ...geom.Point) (Profile, error) {
	if len(pts) < 3 {
		return Profile{}, fmt.Errorf("%w: %d corners", ErrInvalidProfile, len(pts))
	}
	var p Profile
	for i, a := range pts {
		b := pts[(i+1)%len(pts)]
		l, err := geom.NewLine(a, b)
		if err != nil {
			return Profile{}, fmt.Errorf("%w: corner %d: %v", ErrInvalidProfile, i, err)
		}
		p.Segments = append(p.Segments, Segment{Curve: l, Range: geom.Interval{Min: 0, Max: geom.Dist(a, b)}})
	}
	return p, nil
}

// Rectangle is the axis-aligned rectangle [0,sx]×[0,sy] in the XY plane.
func Rectangle(sx, sy float64) (Profile, error) {
	return Polygon(geom.Vec(0, 0, 0), geom.Vec(sx, 0, 0), geom.Vec(sx, sy, 0), geom.Vec(0, sy, 0))
}

// Circle is a circle split into two half arcs, so that no face swept from
// it wraps all the way around.
func Circle(center geom.Point, normal geom.Vector, radius float64) (Profile, error) {
	n := geom.Unit(normal)
	x, _ := geom.Orthonormal(n)
	if math.Abs(n.X) < 0.9 {
		// Keep the seam towards +X where the plane allows it.
		x = geom.Unit(geom.Vec(1, 0, 0).Sub(n.MulScalar(n.X)))
	}
	c, err := geom.NewCircle(center, normal, x, radius)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return Profile{Segments: []Segment{
		{Curve: c, Range: geom.Interval{Min: 0, Max: math.Pi}},
		{Curve: c, Range: geom.Interval{Min: math.Pi, Max: 2 * math.Pi}},
	}}, nil
}

// samples returns points around the profile.
func (p Profile) samples() []geom.Point {
	var pts []geom.Point
	for _, s := range p.Segments {
		n := 1
		if _, ok := s.Curve.(*geom.Line); !ok {
			n = 16
		}
		for k := 0; k < n; k++ {
			pts = append(pts, s.Curve.At(s.Range.Lerp(float64(k)/float64(n))))
		}
	}
	return pts
}

// Normal is the unit normal the profile runs counter-clockwise about.
func (p Profile) Normal() geom.Vector {
	pts := p.samples()
	var a geom.Vector
	for i := range pts {
		a = a.Add(pts[i].Cross(pts[(i+1)%len(pts)]))
	}
	return geom.Unit(a)
}

// validate checks closure and planarity.
func (p Profile) validate(tol geom.Tolerance) error {
	if len(p.Segments) < 2 {
		return fmt.Errorf("%w: %d segments", ErrInvalidProfile, len(p.Segments))
	}
	for i, s := range p.Segments {
		if s.Curve == nil || !s.Range.Bounded() || s.Range.Min >= s.Range.Max {
			return fmt.Errorf("%w: segment %d has no extent", ErrInvalidProfile, i)
		}
		next := p.Segments[(i+1)%len(p.Segments)]
		if !tol.Coincident(s.End(), next.Start()) {
			return fmt.Errorf("%w: segment %d does not meet segment %d", ErrInvalidProfile, i, (i+1)%len(p.Segments))
		}
	}
	n := p.Normal()
	if n.Length() == 0 {
		return fmt.Errorf("%w: encloses no area", ErrInvalidProfile)
	}
	pts := p.samples()
	o := pts[0]
	for _, q := range pts {
		if math.Abs(q.Sub(o).Dot(n)) > 10*tol.EpsAt(q) {
			return fmt.Errorf("%w: not planar", ErrInvalidProfile)
		}
	}
	return nil
}
