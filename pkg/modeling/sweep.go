package modeling

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/topo"
)

// oriented is a profile segment in loop order; rev marks a segment walked
// against its curve direction.
type oriented struct {
	seg Segment
	rev bool
}

func (o oriented) start() geom.Point {
	if o.rev {
		return o.seg.End()
	}
	return o.seg.Start()
}

// tangent is the loop-direction tangent at the segment midpoint.
func (o oriented) tangent() (geom.Point, geom.Vector) {
	t := o.seg.Range.Mid()
	d := o.seg.Curve.Deriv(t, 1)
	if o.rev {
		d = d.MulScalar(-1)
	}
	return o.seg.Curve.At(t), d
}

// loop orders the profile so that it runs counter-clockwise about dir.
func loop(p Profile, dir geom.Vector) []oriented {
	k := len(p.Segments)
	out := make([]oriented, k)
	forward := p.Normal().Dot(dir) > 0
	for i := range out {
		if forward {
			out[i] = oriented{seg: p.Segments[i]}
		} else {
			out[i] = oriented{seg: p.Segments[k-1-i], rev: true}
		}
	}
	return out
}

// edgeAlong adds the edge for a segment whose loop ends are a and c.
func edgeAlong(b *topo.Builder, o oriented, c geom.Curve, a, z topo.VertexID) (topo.EdgeID, error) {
	if o.rev {
		a, z = z, a
	}
	return b.MakeEdge(a, z, c, o.seg.Range)
}

// faceReversed reports whether the surface normal at p points against the
// outward direction.
func faceReversed(s geom.Surface, p geom.Point, outward geom.Vector) bool {
	uv := s.Inverse(p, geom.FullPatch(s).Center())
	return geom.Normal(s, uv).Dot(outward) < 0
}

// Extrude sweeps a closed planar profile along vec. Straight segments give
// planes, circular arcs swept along their axis give cylinders, and other
// curves give ruled B-spline surfaces. The profile and its translate cap
// the solid.
func Extrude(tol geom.Tolerance, p Profile, vec geom.Vector) (*topo.Solid, error) {
	if err := p.validate(tol); err != nil {
		return nil, err
	}
	n := p.Normal()
	d := geom.Unit(vec)
	if vec.Length() <= tol.Abs || math.Abs(n.Dot(d)) < 1e-9 {
		return nil, fmt.Errorf("%w: extrusion does not leave the profile plane", ErrInvalidProfile)
	}
	if n.Dot(d) < 0 {
		n = n.MulScalar(-1)
	}
	order := loop(p, d)
	k := len(order)
	b := topo.NewBuilder(tol)
	move := sdf.Translate3d(vec)

	bv := make([]topo.VertexID, k)
	tv := make([]topo.VertexID, k)
	for i, o := range order {
		bv[i] = b.MakeVertex(o.start())
		tv[i] = b.MakeVertex(o.start().Add(vec))
	}
	be := make([]topo.EdgeID, k)
	te := make([]topo.EdgeID, k)
	ve := make([]topo.EdgeID, k)
	var err error
	for i, o := range order {
		j := (i + 1) % k
		if be[i], err = edgeAlong(b, o, o.seg.Curve, bv[i], bv[j]); err != nil {
			return nil, fmt.Errorf("modeling: extrude: %w", err)
		}
		if te[i], err = edgeAlong(b, o, o.seg.Curve.Transform(move), tv[i], tv[j]); err != nil {
			return nil, fmt.Errorf("modeling: extrude: %w", err)
		}
		if ve[i], err = b.MakeLine(bv[i], tv[i]); err != nil {
			return nil, fmt.Errorf("modeling: extrude: %w", err)
		}
	}

	var faces []topo.FaceID
	bottom := make([]topo.Use, k)
	top := make([]topo.Use, k)
	for i, o := range order {
		j := (i + 1) % k
		bottom[i] = topo.Use{Edge: be[i], Reversed: o.rev}
		top[i] = topo.Use{Edge: te[i], Reversed: o.rev}
		surf, err := extrusionSurface(o.seg, vec, tol)
		if err != nil {
			return nil, fmt.Errorf("modeling: extrude: segment %d: %w", i, err)
		}
		w, err := b.MakeWire([]topo.Use{
			{Edge: be[i], Reversed: o.rev},
			{Edge: ve[j]},
			{Edge: te[i], Reversed: !o.rev},
			{Edge: ve[i], Reversed: true},
		})
		if err != nil {
			return nil, fmt.Errorf("modeling: extrude: %w", err)
		}
		pm, tan := o.tangent()
		f, err := b.MakeFace(w, nil, surf, faceReversed(surf, pm.Add(vec.MulScalar(0.5)), tan.Cross(d)))
		if err != nil {
			return nil, fmt.Errorf("modeling: extrude: %w", err)
		}
		faces = append(faces, f)
	}
	caps, err := capFaces(b, bottom, top, order[0].start(), order[0].start().Add(vec), n, n)
	if err != nil {
		return nil, fmt.Errorf("modeling: extrude: %w", err)
	}
	return closeSolid(b, append(faces, caps...))
}

// capFaces closes a sweep with its start and end profiles. start runs
// counter-clockwise about the sweep direction, so it is walked backwards.
func capFaces(b *topo.Builder, start, end []topo.Use, p0, p1 geom.Point, n0, n1 geom.Vector) ([]topo.FaceID, error) {
	var out []topo.FaceID
	for _, c := range []struct {
		uses     []topo.Use
		origin   geom.Point
		normal   geom.Vector
		reversed bool
	}{
		{topo.Reverse(start), p0, n0, true},
		{end, p1, n1, false},
	} {
		pl, err := geom.NewPlane(c.origin, c.normal)
		if err != nil {
			return nil, err
		}
		w, err := b.MakeWire(c.uses)
		if err != nil {
			return nil, err
		}
		f, err := b.MakeFace(w, nil, pl, c.reversed)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func closeSolid(b *topo.Builder, faces []topo.FaceID) (*topo.Solid, error) {
	sh, err := b.Sew(faces)
	if err != nil {
		return nil, fmt.Errorf("modeling: %w", err)
	}
	s, err := b.Close(sh)
	if err != nil {
		return nil, fmt.Errorf("modeling: %w", err)
	}
	return s, nil
}

func extrusionSurface(s Segment, vec geom.Vector, tol geom.Tolerance) (geom.Surface, error) {
	d := geom.Unit(vec)
	switch c := s.Curve.(type) {
	case *geom.Line:
		return geom.NewPlaneAxes(s.Start(), c.Dir, vec)
	case *geom.Ellipse:
		if c.IsCircle(tol.Abs) && c.Normal().Cross(d).Length() <= 1e-9 {
			return geom.NewCylinder(c.Center, d, geom.Unit(c.Major), c.Major.Length())
		}
	}
	bs, err := geom.ToBSpline(s.Curve, s.Range)
	if err != nil {
		return nil, err
	}
	return geom.NewRuledSurface(bs, vec)
}
