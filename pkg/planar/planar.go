// Package planar holds the two-dimensional polygon routines used in
// surface parameter space: orientation, containment, segment tests and
// triangulation of polygons with holes.
package planar

import (
	"math"

	"github.com/chazu/kerf/pkg/geom"
)

// Point is a position in the plane.
type Point = geom.UV

// SignedArea is positive for counter-clockwise polygons.
func SignedArea(poly []Point) float64 {
	a := 0.0
	for i := range poly {
		j := (i + 1) % len(poly)
		a += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return 0.5 * a
}

// Orient is twice the signed area of triangle abc.
func Orient(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// Bounds returns the min and max corners of a point set.
func Bounds(pts []Point) (lo, hi Point) {
	lo = geom.Param(math.Inf(1), math.Inf(1))
	hi = geom.Param(math.Inf(-1), math.Inf(-1))
	for _, p := range pts {
		lo = geom.Param(math.Min(lo.X, p.X), math.Min(lo.Y, p.Y))
		hi = geom.Param(math.Max(hi.X, p.X), math.Max(hi.Y, p.Y))
	}
	return lo, hi
}

// Dist is the distance between two points.
func Dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// SegmentDistance is the distance from p to segment ab and the segment
// parameter of the nearest point.
func SegmentDistance(p, a, b Point) (float64, float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return Dist(p, a), 0
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return Dist(p, geom.Param(a.X+t*dx, a.Y+t*dy)), t
}

// Location classifies a point against a region.
type Location int

const (
	Outside  Location = -1
	Boundary Location = 0
	Inside   Location = 1
)

// Locate classifies p against the closed polygon using the winding number,
// reporting Boundary within eps of an edge.
func Locate(poly []Point, p Point, eps float64) Location {
	wn := 0
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		if d, _ := SegmentDistance(p, a, b); d <= eps {
			return Boundary
		}
		if a.Y <= p.Y {
			if b.Y > p.Y && Orient(a, b, p) > 0 {
				wn++
			}
		} else if b.Y <= p.Y && Orient(a, b, p) < 0 {
			wn--
		}
	}
	if wn != 0 {
		return Inside
	}
	return Outside
}

// LocateRegion classifies p against an outer polygon minus its holes.
func LocateRegion(outer []Point, holes [][]Point, p Point, eps float64) Location {
	loc := Locate(outer, p, eps)
	if loc != Inside {
		return loc
	}
	for _, h := range holes {
		switch Locate(h, p, eps) {
		case Boundary:
			return Boundary
		case Inside:
			return Outside
		}
	}
	return Inside
}

// Intersection is a crossing of two segments.
type Intersection struct {
	S, T float64 // parameters on the first and second segment
	P    Point
}

// SegmentIntersection intersects ab with cd. Collinear overlapping
// segments report the overlap end points closest to a.
func SegmentIntersection(a, b, c, d Point, eps float64) (Intersection, bool) {
	r := b.Sub(a)
	s := d.Sub(c)
	den := geom.Cross2(r, s)
	qp := c.Sub(a)
	lr, ls := r.Length(), s.Length()
	if lr == 0 || ls == 0 {
		return Intersection{}, false
	}
	if math.Abs(den) <= 1e-14*lr*ls {
		if math.Abs(geom.Cross2(qp, r))/lr > eps {
			return Intersection{}, false
		}
		t0 := qp.Dot(r) / (lr * lr)
		t1 := d.Sub(a).Dot(r) / (lr * lr)
		lo, hi := math.Min(t0, t1), math.Max(t0, t1)
		lo, hi = math.Max(lo, 0), math.Min(hi, 1)
		if lo > hi+eps/lr {
			return Intersection{}, false
		}
		p := geom.Param(a.X+lo*r.X, a.Y+lo*r.Y)
		_, u := SegmentDistance(p, c, d)
		return Intersection{S: lo, T: u, P: p}, true
	}
	t := geom.Cross2(qp, s) / den
	u := geom.Cross2(qp, r) / den
	et, eu := eps/lr, eps/ls
	if t < -et || t > 1+et || u < -eu || u > 1+eu {
		return Intersection{}, false
	}
	t = math.Max(0, math.Min(1, t))
	u = math.Max(0, math.Min(1, u))
	return Intersection{S: t, T: u, P: geom.Param(a.X+t*r.X, a.Y+t*r.Y)}, true
}

// PolygonsCross reports whether two closed polygons have crossing or
// touching edges.
func PolygonsCross(p, q []Point, eps float64) bool {
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		for j := range q {
			if _, ok := SegmentIntersection(a, b, q[j], q[(j+1)%len(q)], eps); ok {
				return true
			}
		}
	}
	return false
}

// InteriorPoint returns a point strictly inside the region: the centroid of
// the largest triangle of its triangulation.
func InteriorPoint(outer []Point, holes [][]Point) (Point, error) {
	pts, tris, err := Triangulate(outer, holes)
	if err != nil {
		return Point{}, err
	}
	best, bestA := -1, 0.0
	for i, t := range tris {
		if a := Orient(pts[t[0]], pts[t[1]], pts[t[2]]); a > bestA {
			best, bestA = i, a
		}
	}
	if best < 0 {
		return Point{}, ErrDegenerate
	}
	t := tris[best]
	return geom.Param((pts[t[0]].X+pts[t[1]].X+pts[t[2]].X)/3, (pts[t[0]].Y+pts[t[1]].Y+pts[t[2]].Y)/3), nil
}
