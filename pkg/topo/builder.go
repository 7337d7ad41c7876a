package topo

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/planar"
)

// Builder owns an arena while a model is under construction. Every Make
// call validates its input and either appends one entity or returns an
// error leaving the arena unchanged.
type Builder struct {
	arena
}

// NewBuilder returns an empty builder checking entities against tol.
func NewBuilder(tol geom.Tolerance) *Builder {
	return &Builder{arena: arena{tol: tol}}
}

// MakeVertex adds a vertex at p.
func (b *Builder) MakeVertex(p geom.Point) VertexID {
	b.vertices = append(b.vertices, Vertex{Point: p})
	return VertexID(len(b.vertices) - 1)
}

// MakeEdge adds the piece of c over r running from v1 to v2.
func (b *Builder) MakeEdge(v1, v2 VertexID, c geom.Curve, r geom.Interval) (EdgeID, error) {
	const op = "make edge"
	if !b.hasVertex(v1) || !b.hasVertex(v2) {
		return NoEdge, entityErr(op, KindVertex, ErrUnknownEntity, v1, v2)
	}
	if c == nil || !r.Bounded() || r.Min >= r.Max {
		return NoEdge, entityErr(op, KindVertex, fmt.Errorf("empty range [%g, %g]: %w", r.Min, r.Max, geom.ErrDegenerate), v1, v2)
	}
	dom := c.Domain()
	if !dom.Contains(r.Min, 1e-12) || !dom.Contains(r.Max, 1e-12) {
		return NoEdge, entityErr(op, KindVertex, fmt.Errorf("range [%g, %g]: %w", r.Min, r.Max, geom.ErrOutOfDomain), v1, v2)
	}
	p0, p1 := c.At(r.Min), c.At(r.Max)
	if !b.tol.Coincident(p0, b.Point(v1)) || !b.tol.Coincident(p1, b.Point(v2)) {
		return NoEdge, entityErr(op, KindVertex, ErrEndpointMismatch, v1, v2)
	}
	if geom.Length(c, r) <= b.tol.EpsAt(p0) {
		return NoEdge, entityErr(op, KindVertex, fmt.Errorf("zero length: %w", geom.ErrDegenerate), v1, v2)
	}
	b.edges = append(b.edges, Edge{Start: v1, End: v2, Curve: c, Range: r})
	return EdgeID(len(b.edges) - 1), nil
}

// MakeLine adds a straight edge between two vertices.
func (b *Builder) MakeLine(v1, v2 VertexID) (EdgeID, error) {
	if !b.hasVertex(v1) || !b.hasVertex(v2) {
		return NoEdge, entityErr("make edge", KindVertex, ErrUnknownEntity, v1, v2)
	}
	l, err := geom.NewLine(b.Point(v1), b.Point(v2))
	if err != nil {
		return NoEdge, entityErr("make edge", KindVertex, err, v1, v2)
	}
	return b.MakeEdge(v1, v2, l, geom.Interval{Min: 0, Max: geom.Dist(b.Point(v1), b.Point(v2))})
}

// MakeWire adds a closed loop of edge uses.
func (b *Builder) MakeWire(uses []Use) (WireID, error) {
	const op = "make wire"
	if len(uses) == 0 {
		return -1, entityErr[EdgeID](op, KindEdge, ErrOpenWire)
	}
	for _, u := range uses {
		if !b.hasEdge(u.Edge) {
			return -1, entityErr(op, KindEdge, ErrUnknownEntity, u.Edge)
		}
	}
	for i, u := range uses {
		next := uses[(i+1)%len(uses)]
		end, start := b.UseEnd(u), b.UseStart(next)
		if end != start && !b.tol.Coincident(b.Point(end), b.Point(start)) {
			return -1, entityErr(op, KindEdge, ErrOpenWire, u.Edge, next.Edge)
		}
	}
	segs := b.wireSegments(uses)
	if err := b.checkWireArea(segs); err != nil {
		return -1, entityErr(op, KindEdge, err, edgeIDs(uses)...)
	}
	if pair, bad := b.selfIntersection(uses, segs); bad {
		return -1, entityErr(op, KindEdge, ErrSelfIntersectingWire, pair[0], pair[1])
	}
	b.wires = append(b.wires, Wire{Uses: append([]Use(nil), uses...)})
	return WireID(len(b.wires) - 1), nil
}

func edgeIDs(uses []Use) []EdgeID {
	ids := make([]EdgeID, len(uses))
	for i, u := range uses {
		ids[i] = u.Edge
	}
	return ids
}

// Reverse returns the uses of a loop traversed the other way.
func Reverse(uses []Use) []Use {
	out := make([]Use, len(uses))
	for i, u := range uses {
		out[len(uses)-1-i] = Use{Edge: u.Edge, Reversed: !u.Reversed}
	}
	return out
}

type wireSegment struct {
	a, b  geom.Point
	index int
	use   int
	rect  rtreego.Rect
}

func (s *wireSegment) Bounds() rtreego.Rect { return s.rect }

// BoxRect converts a box, padded by pad, into an index rectangle.
func BoxRect(bx geom.Box, pad float64) rtreego.Rect {
	r, _ := rtreego.NewRectFromPoints(
		rtreego.Point{bx.Min.X - pad, bx.Min.Y - pad, bx.Min.Z - pad},
		rtreego.Point{bx.Max.X + pad, bx.Max.Y + pad, bx.Max.Z + pad},
	)
	return r
}

func (b *Builder) wireSegments(uses []Use) []*wireSegment {
	var segs []*wireSegment
	for ui, u := range uses {
		sm := b.SampleEdge(u.Edge, b.defaultFlatness(u.Edge))
		if u.Reversed {
			for i, j := 0, len(sm)-1; i < j; i, j = i+1, j-1 {
				sm[i], sm[j] = sm[j], sm[i]
			}
		}
		for k := 0; k+1 < len(sm); k++ {
			segs = append(segs, &wireSegment{a: sm[k].P, b: sm[k+1].P, index: len(segs), use: ui})
		}
	}
	return segs
}

func (b *Builder) checkWireArea(segs []*wireSegment) error {
	var area geom.Vector
	perimeter, scale := 0.0, 0.0
	for _, s := range segs {
		area = area.Add(s.a.Cross(s.b))
		perimeter += geom.Dist(s.a, s.b)
		scale = math.Max(scale, geom.Magnitude(s.a))
	}
	if 0.5*area.Length() <= b.tol.Eps(scale)*perimeter {
		return ErrDegenerateWire
	}
	return nil
}

// selfIntersection looks for two non-adjacent pieces of the loop within ε
// of each other. Pieces meeting at a shared vertex and the two sides of a
// seam edge are allowed to touch.
func (b *Builder) selfIntersection(uses []Use, segs []*wireSegment) ([2]EdgeID, bool) {
	scale := 0.0
	for _, s := range segs {
		scale = math.Max(scale, geom.Magnitude(s.a))
	}
	eps := b.tol.Eps(scale)
	tree := rtreego.NewTree(3, 4, 16)
	for _, s := range segs {
		s.rect = BoxRect(geom.BoxOf(s.a, s.b), eps)
		tree.Insert(s)
	}
	n := len(segs)
	for _, s := range segs {
		for _, hit := range tree.SearchIntersect(s.rect) {
			o := hit.(*wireSegment)
			if o.index <= s.index || o.index == s.index+1 || (s.index == 0 && o.index == n-1) {
				continue
			}
			if uses[s.use].Edge == uses[o.use].Edge && uses[s.use].Reversed != uses[o.use].Reversed {
				continue
			}
			ps, _, d := geom.SegmentApproach(s.a, s.b, o.a, o.b)
			if d > eps {
				continue
			}
			q := geom.Lerp(s.a, s.b, ps)
			touching := false
			for _, x := range [2]geom.Point{s.a, s.b} {
				for _, y := range [2]geom.Point{o.a, o.b} {
					if geom.Dist(x, y) <= eps && geom.Dist(q, x) <= eps {
						touching = true
					}
				}
			}
			if !touching {
				return [2]EdgeID{uses[s.use].Edge, uses[o.use].Edge}, true
			}
		}
	}
	return [2]EdgeID{}, false
}

// MakeFace bounds a surface by an outer wire and optional hole wires. The
// outer wire runs counter-clockwise about the face normal and holes run
// the other way.
func (b *Builder) MakeFace(outer WireID, inner []WireID, s geom.Surface, reversed bool) (FaceID, error) {
	const op = "make face"
	if !b.hasWire(outer) {
		return -1, entityErr(op, KindWire, ErrUnknownEntity, outer)
	}
	for _, w := range inner {
		if !b.hasWire(w) {
			return -1, entityErr(op, KindWire, ErrUnknownEntity, w)
		}
	}
	if s == nil {
		return -1, entityErr(op, KindWire, fmt.Errorf("nil surface: %w", geom.ErrDegenerate), outer)
	}
	face := Face{Surface: s, Outer: outer, Inner: append([]WireID(nil), inner...), Reversed: reversed}
	d := b.domainOf(face, nil)
	if err := b.checkDomain(d); err != nil {
		return -1, err
	}
	b.faces = append(b.faces, face)
	return FaceID(len(b.faces) - 1), nil
}

func (b *Builder) checkDomain(d *Domain) error {
	const op = "make face"
	du, dv := d.Surface.Domain()
	for _, l := range d.Loops {
		for _, p := range l.Points {
			eps := b.tol.EpsAt(p.P)
			if !du.Contains(p.UV.X, 1e-9) || !dv.Contains(p.UV.Y, 1e-9) ||
				geom.Dist(d.Surface.At(p.UV), p.P) > 100*eps {
				return entityErr(op, KindWire, ErrWireOutsideDomain, l.Wire)
			}
		}
	}
	eps := d.UVTolerance(b.tol)
	outer := d.Polygon(0)
	area := planar.SignedArea(outer)
	if math.Abs(area) <= eps*eps {
		return entityErr(op, KindWire, ErrDegenerateWire, d.Loops[0].Wire)
	}
	if (area > 0) == d.Reversed {
		return entityErr(op, KindWire, ErrWireOrientation, d.Loops[0].Wire)
	}
	holes := d.Holes()
	for i, h := range holes {
		w := d.Loops[i+1].Wire
		if ha := planar.SignedArea(h); ha == 0 || (ha > 0) == (area > 0) {
			return entityErr(op, KindWire, ErrWireOrientation, w)
		}
		if planar.PolygonsCross(outer, h, eps) {
			return entityErr(op, KindWire, ErrHoleCollision, d.Loops[0].Wire, w)
		}
		for _, p := range h {
			if planar.Locate(outer, p, eps) != planar.Inside {
				return entityErr(op, KindWire, ErrHoleCollision, d.Loops[0].Wire, w)
			}
		}
		for j := range i {
			o := holes[j]
			if planar.PolygonsCross(o, h, eps) ||
				planar.Locate(o, h[0], eps) != planar.Outside ||
				planar.Locate(h, o[0], eps) != planar.Outside {
				return entityErr(op, KindWire, ErrHoleCollision, d.Loops[j+1].Wire, w)
			}
		}
	}
	return nil
}
