package topo

import (
	"math"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/planar"
)

// LoopPoint is one vertex of a boundary polygon in parameter space.
type LoopPoint struct {
	UV geom.UV
	P  geom.Point
	// Edge is the edge of the segment leaving this point, NoEdge for the
	// collapsed segment across a pole.
	Edge EdgeID
	// Sample indexes the point in the edge's forward sample list.
	Sample int
	T      float64
	// Use is the position of the edge use within its wire.
	Use int
	// Vertex is set when the point is a topological vertex.
	Vertex VertexID
}

// Loop is the closed polygon of one wire; the last point connects back to
// the first.
type Loop struct {
	Wire   WireID
	Points []LoopPoint
}

// Domain is the region of a face in surface parameter space. Loops[0] is
// the outer boundary.
type Domain struct {
	Surface  geom.Surface
	Reversed bool
	Loops    []Loop
	U, V     geom.Interval
}

// FaceDomain maps the boundary of a face into parameter space. samples
// supplies the polyline of each edge; nil samples every edge at a
// relative chordal tolerance. Periodic parameters are unwrapped around the
// face and a boundary touching a pole is closed along the pole line.
func (a *arena) FaceDomain(f FaceID, samples func(EdgeID) []EdgeSample) *Domain {
	return a.domainOf(a.faces[f], samples)
}

func (a *arena) domainOf(face Face, samples func(EdgeID) []EdgeSample) *Domain {
	if samples == nil {
		samples = func(e EdgeID) []EdgeSample { return a.SampleEdge(e, a.defaultFlatness(e)) }
	}
	s := face.Surface
	d := &Domain{Surface: s, Reversed: face.Reversed}
	hint := geom.FullPatch(s).Center()
	for _, w := range append([]WireID{face.Outer}, face.Inner...) {
		var pts []LoopPoint
		for ui, u := range a.wires[w].Uses {
			sm := samples(u.Edge)
			n := len(sm)
			for k := 0; k+1 < n; k++ {
				idx := k
				if u.Reversed {
					idx = n - 1 - k
				}
				lp := LoopPoint{P: sm[idx].P, T: sm[idx].T, Edge: u.Edge, Sample: idx, Use: ui, Vertex: NoVertex}
				if k == 0 {
					lp.Vertex = a.UseStart(u)
				}
				lp.UV = s.Inverse(lp.P, hint)
				hint = lp.UV
				pts = append(pts, lp)
			}
		}
		d.Loops = append(d.Loops, Loop{Wire: w, Points: pts})
	}

	singular := make([][]bool, len(d.Loops))
	for i, l := range d.Loops {
		singular[i] = make([]bool, len(l.Points))
		for k, p := range l.Points {
			singular[i][k] = geom.Singular(s, p.UV, a.tol.EpsAt(p.P))
		}
	}
	if _, ok := geom.PeriodU(s); ok {
		sx, cx := 0.0, 0.0
		for i, l := range d.Loops {
			for k, p := range l.Points {
				if !singular[i][k] {
					sx += math.Sin(p.UV.X)
					cx += math.Cos(p.UV.X)
				}
			}
		}
		ref := math.Atan2(sx, cx)
		for _, l := range d.Loops {
			for k := range l.Points {
				l.Points[k].UV.X = geom.Unwrap(l.Points[k].UV.X, ref)
			}
		}
	}
	for i := range d.Loops {
		d.Loops[i].Points = closePoles(d.Loops[i].Points, singular[i])
	}

	d.U = geom.Interval{Min: math.Inf(1), Max: math.Inf(-1)}
	d.V = d.U
	for _, l := range d.Loops {
		for _, p := range l.Points {
			d.U = geom.Interval{Min: math.Min(d.U.Min, p.UV.X), Max: math.Max(d.U.Max, p.UV.X)}
			d.V = geom.Interval{Min: math.Min(d.V.Min, p.UV.Y), Max: math.Max(d.V.Max, p.UV.Y)}
		}
	}
	return d
}

// closePoles gives each singular point the u of its neighbours. Where the
// incoming and outgoing u differ the point is doubled, and the segment
// between the copies runs along the pole with no edge.
func closePoles(pts []LoopPoint, singular []bool) []LoopPoint {
	n := len(pts)
	out := make([]LoopPoint, 0, n+2)
	for k, p := range pts {
		if !singular[k] {
			out = append(out, p)
			continue
		}
		prev, next := pts[(k+n-1)%n], pts[(k+1)%n]
		in := p
		in.UV = geom.Param(prev.UV.X, p.UV.Y)
		p.UV = geom.Param(next.UV.X, p.UV.Y)
		if math.Abs(in.UV.X-p.UV.X) > 1e-12 {
			in.Edge = NoEdge
			out = append(out, in)
		}
		out = append(out, p)
	}
	return out
}

// Polygon returns loop i as a parameter-space polygon.
func (d *Domain) Polygon(i int) []geom.UV {
	pts := make([]geom.UV, len(d.Loops[i].Points))
	for k, p := range d.Loops[i].Points {
		pts[k] = p.UV
	}
	return pts
}

// Holes returns the inner loops as polygons.
func (d *Domain) Holes() [][]geom.UV {
	var out [][]geom.UV
	for i := 1; i < len(d.Loops); i++ {
		out = append(out, d.Polygon(i))
	}
	return out
}

// Unwrap brings a periodic u next to the face's parameter range.
func (d *Domain) Unwrap(uv geom.UV) geom.UV {
	if _, ok := geom.PeriodU(d.Surface); ok {
		uv.X = geom.Unwrap(uv.X, d.U.Mid())
	}
	return uv
}

// Locate classifies a parameter point against the face region.
func (d *Domain) Locate(uv geom.UV, eps float64) planar.Location {
	return planar.LocateRegion(d.Polygon(0), d.Holes(), d.Unwrap(uv), eps)
}

// Scale returns the mean lengths of the surface partials along the
// boundary: the 3-D distance covered per unit of u and of v.
func (d *Domain) Scale() (su, sv float64) {
	n := 0
	for _, l := range d.Loops {
		for _, p := range l.Points {
			su += d.Surface.Deriv(p.UV, 1, 0).Length()
			sv += d.Surface.Deriv(p.UV, 0, 1).Length()
			n++
		}
	}
	if n == 0 {
		return 1, 1
	}
	su, sv = su/float64(n), sv/float64(n)
	if su <= 1e-12 {
		su = sv
	}
	if sv <= 1e-12 {
		sv = su
	}
	return math.Max(su, 1e-12), math.Max(sv, 1e-12)
}

// UVTolerance converts ε at the face into a parameter-space distance.
func (d *Domain) UVTolerance(tol geom.Tolerance) float64 {
	su, sv := d.Scale()
	c := d.Surface.At(geom.Param(d.U.Mid(), d.V.Mid()))
	return tol.EpsAt(c) / math.Max(su, sv)
}

// Patch returns the parameter rectangle around the face, padded slightly
// and clamped to the surface domain.
func (d *Domain) Patch() geom.Patch {
	du, dv := d.Surface.Domain()
	pad := func(iv, dom geom.Interval) geom.Interval {
		m := 1e-3 * math.Max(iv.Length(), 1e-9)
		r := iv.Expand(m)
		if x, ok := r.Intersect(dom); ok {
			return x
		}
		return iv
	}
	return geom.Patch{Surface: d.Surface, U: pad(d.U, du), V: pad(d.V, dv)}
}

// Area is the signed parameter-space area of the region.
func (d *Domain) Area() float64 {
	a := 0.0
	for i := range d.Loops {
		a += planar.SignedArea(d.Polygon(i))
	}
	return a
}
