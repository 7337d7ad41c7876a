package modeling

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/topo"
)

// rotation turns points by angle radians about the axis through origin.
func rotation(origin geom.Point, axis geom.Vector, angle float64) geom.Matrix {
	return sdf.Translate3d(origin).Mul(sdf.Rotate3d(axis, angle)).Mul(sdf.Translate3d(origin.MulScalar(-1)))
}

// Revolve sweeps a closed profile about the axis through origin by angle
// radians, right-handed. The profile must lie in a plane containing the
// axis, on one side of it; points on the axis become poles. The sweep is
// cut into sectors of at most half a turn so that no face wraps around.
// Lines parallel to the axis give cylinders, lines across it planes, and
// other curves rational B-spline surfaces. A partial sweep is capped by
// the profile at both ends.
func Revolve(tol geom.Tolerance, p Profile, origin geom.Point, axis geom.Vector, angle float64) (*topo.Solid, error) {
	if err := p.validate(tol); err != nil {
		return nil, err
	}
	z := geom.Unit(axis)
	if z.Length() == 0 {
		return nil, fmt.Errorf("%w: zero axis", ErrInvalidProfile)
	}
	if !(angle > 0) || angle > 2*math.Pi+1e-9 {
		return nil, fmt.Errorf("%w: revolve angle %g", ErrInvalidProfile, angle)
	}
	n := p.Normal()
	if math.Abs(n.Dot(z)) > 1e-9 || math.Abs(p.Segments[0].Start().Sub(origin).Dot(n)) > 10*tol.EpsAt(origin) {
		return nil, fmt.Errorf("%w: axis does not lie in the profile plane", ErrInvalidProfile)
	}
	radial := n.Cross(z)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, q := range p.samples() {
		r := q.Sub(origin).Dot(radial)
		lo, hi = math.Min(lo, r), math.Max(hi, r)
	}
	eps := tol.EpsAt(origin)
	if lo < -eps && hi > eps {
		return nil, fmt.Errorf("%w: profile crosses the axis", ErrInvalidProfile)
	}
	// The sweep leaves the profile plane along n on the +radial side.
	sweep := n
	if hi <= eps {
		sweep = n.MulScalar(-1)
	}
	full := angle >= 2*math.Pi-1e-9
	sectors := int(math.Ceil(angle/math.Pi - 1e-9))
	if full {
		angle, sectors = 2*math.Pi, max(sectors, 2)
	}
	rv := &revolver{
		b: topo.NewBuilder(tol), tol: tol, origin: origin, axis: z,
		order: loop(p, sweep), sectors: sectors, full: full, step: angle / float64(sectors),
	}
	faces, err := rv.build()
	if err != nil {
		return nil, fmt.Errorf("modeling: revolve: %w", err)
	}
	return closeSolid(rv.b, faces)
}

type revolver struct {
	b       *topo.Builder
	tol     geom.Tolerance
	origin  geom.Point
	axis    geom.Vector
	order   []oriented
	sectors int
	full    bool
	step    float64

	pole   []bool
	verts  [][]topo.VertexID // [loop point][boundary]
	edges  [][]topo.EdgeID   // [segment][boundary]
	arcs   [][]topo.EdgeID   // [loop point][sector]
	onAxis []bool
}

func (r *revolver) boundaries() int {
	if r.full {
		return r.sectors
	}
	return r.sectors + 1
}

func (r *revolver) at(k int) geom.Matrix {
	return rotation(r.origin, r.axis, float64(k)*r.step)
}

// center is the foot of p on the axis.
func (r *revolver) center(p geom.Point) geom.Point {
	return r.origin.Add(r.axis.MulScalar(p.Sub(r.origin).Dot(r.axis)))
}

func (r *revolver) build() ([]topo.FaceID, error) {
	k := len(r.order)
	nb := r.boundaries()
	r.pole = make([]bool, k)
	r.verts = make([][]topo.VertexID, k)
	for j, o := range r.order {
		p := o.start()
		r.pole[j] = geom.Dist(p, r.center(p)) <= r.tol.EpsAt(p)
		r.verts[j] = make([]topo.VertexID, nb)
		for m := range nb {
			if r.pole[j] && m > 0 {
				r.verts[j][m] = r.verts[j][0]
				continue
			}
			r.verts[j][m] = r.b.MakeVertex(r.at(m).MulPosition(p))
		}
	}
	r.onAxis = make([]bool, k)
	r.edges = make([][]topo.EdgeID, k)
	for i, o := range r.order {
		j := (i + 1) % k
		_, isLine := o.seg.Curve.(*geom.Line)
		r.onAxis[i] = isLine && r.pole[i] && r.pole[j]
		r.edges[i] = make([]topo.EdgeID, nb)
		for m := range nb {
			if r.onAxis[i] && m > 0 {
				r.edges[i][m] = r.edges[i][0]
				continue
			}
			e, err := edgeAlong(r.b, o, o.seg.Curve.Transform(r.at(m)), r.verts[i][m], r.verts[j][m])
			if err != nil {
				return nil, err
			}
			r.edges[i][m] = e
		}
	}
	r.arcs = make([][]topo.EdgeID, k)
	for j, o := range r.order {
		if r.pole[j] {
			continue
		}
		p := o.start()
		c := r.center(p)
		circle, err := geom.NewCircle(c, r.axis, p.Sub(c), geom.Dist(p, c))
		if err != nil {
			return nil, err
		}
		r.arcs[j] = make([]topo.EdgeID, r.sectors)
		for m := range r.sectors {
			iv := geom.Interval{Min: float64(m) * r.step, Max: float64(m+1) * r.step}
			e, err := r.b.MakeEdge(r.verts[j][m], r.verts[j][(m+1)%nb], circle, iv)
			if err != nil {
				return nil, err
			}
			r.arcs[j][m] = e
		}
	}

	var faces []topo.FaceID
	for i, o := range r.order {
		if r.onAxis[i] {
			continue
		}
		j := (i + 1) % k
		for m := range r.sectors {
			next := (m + 1) % nb
			uses := []topo.Use{{Edge: r.edges[i][m], Reversed: o.rev}}
			if !r.pole[j] {
				uses = append(uses, topo.Use{Edge: r.arcs[j][m]})
			}
			uses = append(uses, topo.Use{Edge: r.edges[i][next], Reversed: !o.rev})
			if !r.pole[i] {
				uses = append(uses, topo.Use{Edge: r.arcs[i][m], Reversed: true})
			}
			f, err := r.sectorFace(o, m, uses)
			if err != nil {
				return nil, fmt.Errorf("segment %d sector %d: %w", i, m, err)
			}
			faces = append(faces, f)
		}
	}
	if !r.full {
		start := make([]topo.Use, k)
		end := make([]topo.Use, k)
		for i, o := range r.order {
			start[i] = topo.Use{Edge: r.edges[i][0], Reversed: o.rev}
			end[i] = topo.Use{Edge: r.edges[i][nb-1], Reversed: o.rev}
		}
		p0 := r.order[0].start()
		sweep0 := r.sweepAt(r.midPoint())
		last := r.at(nb - 1)
		sweep1 := last.MulPosition(r.origin.Add(sweep0)).Sub(last.MulPosition(r.origin))
		caps, err := capFaces(r.b, start, end, p0, last.MulPosition(p0), sweep0, sweep1)
		if err != nil {
			return nil, err
		}
		faces = append(faces, caps...)
	}
	return faces, nil
}

// midPoint is a profile point off the axis.
func (r *revolver) midPoint() geom.Point {
	best, bestD := r.order[0].start(), -1.0
	for _, o := range r.order {
		p, _ := o.tangent()
		if d := geom.Dist(p, r.center(p)); d > bestD {
			best, bestD = p, d
		}
	}
	return best
}

// sweepAt is the unit direction a point moves in as the sweep turns.
func (r *revolver) sweepAt(p geom.Point) geom.Vector {
	return geom.Unit(r.axis.Cross(p.Sub(r.center(p))))
}

func (r *revolver) sectorFace(o oriented, m int, uses []topo.Use) (topo.FaceID, error) {
	rot := r.at(m)
	seg := Segment{Curve: o.seg.Curve.Transform(rot), Range: o.seg.Range}
	surf, err := r.surface(seg)
	if err != nil {
		return -1, err
	}
	w, err := r.b.MakeWire(uses)
	if err != nil {
		return -1, err
	}
	pm, tan := o.tangent()
	half := rotation(r.origin, r.axis, (float64(m)+0.5)*r.step)
	q := half.MulPosition(pm)
	t := half.MulPosition(pm.Add(tan)).Sub(q)
	return r.b.MakeFace(w, nil, surf, faceReversed(surf, q, t.Cross(r.sweepAt(q))))
}

func (r *revolver) surface(s Segment) (geom.Surface, error) {
	if l, ok := s.Curve.(*geom.Line); ok {
		dir := geom.Unit(l.Dir)
		p := s.Start()
		c := r.center(p)
		switch {
		case dir.Cross(r.axis).Length() <= 1e-9:
			return geom.NewCylinder(r.origin, r.axis, p.Sub(c), geom.Dist(p, c))
		case math.Abs(dir.Dot(r.axis)) <= 1e-9:
			return geom.NewPlane(p, r.axis)
		}
	}
	bs, err := geom.ToBSpline(s.Curve, s.Range)
	if err != nil {
		return nil, err
	}
	return geom.NewRevolvedSurface(bs, r.origin, r.axis, r.step)
}
