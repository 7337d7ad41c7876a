package geom

import (
	"math"
	"slices"
)

// IntersectionCurve is one branch of a surface/surface intersection. Curve
// is an exact line or circle for the analytic pairs and a degree-1 B-spline
// through the marched trace otherwise. Params are the curve parameters of the trace
// points, and UVA/UVB their parameters on each surface.
type IntersectionCurve struct {
	Curve  Curve
	Params []float64
	Points []Point
	UVA    []UV
	UVB    []UV
	Closed bool
}

// Range is the curve parameter range covered by the trace.
func (c *IntersectionCurve) Range() Interval {
	return Interval{Min: c.Params[0], Max: c.Params[len(c.Params)-1]}
}

// IntersectSurfaces returns the intersection curves of two bounded
// patches. Plane pairs, and planes against spheres and axis-aligned
// cylinders, are solved analytically; other pairs are traced by
// marching from seeds found on coarse triangulations of both patches.
// Coincident surfaces yield a *DegenerateError.
func IntersectSurfaces(a, b Patch, tol Tolerance) ([]IntersectionCurve, error) {
	if !a.U.Bounded() || !a.V.Bounded() || !b.U.Bounded() || !b.V.Bounded() {
		return nil, degenerate("intersect surfaces", "unbounded patch")
	}
	if CoincidentPatches(a, b, tol) {
		return nil, degenerate("intersect surfaces", "coincident surfaces")
	}
	pa, okA := a.Surface.(*Plane)
	pb, okB := b.Surface.(*Plane)
	if okA && okB {
		return intersectPlanes(pa, a, pb, b, tol)
	}
	if curves, ok := intersectPlaneSection(a, b, tol); ok {
		return curves, nil
	}
	return march(a, b, tol)
}

// CoincidentPatches reports whether two patches lie on the same surface.
// Analytic pairs are compared by their defining parameters; others by
// sampling a on b.
func CoincidentPatches(a, b Patch, tol Tolerance) bool {
	switch sa := a.Surface.(type) {
	case *Plane:
		sb, ok := b.Surface.(*Plane)
		if !ok {
			break
		}
		na, nb := sa.Normal(), sb.Normal()
		eps := tol.EpsAt(sa.Origin)
		return na.Cross(nb).Length() <= 1e-9 && math.Abs(sb.Origin.Sub(sa.Origin).Dot(na)) <= eps
	case *Sphere:
		sb, ok := b.Surface.(*Sphere)
		if !ok {
			return false
		}
		eps := tol.EpsAt(sa.Center)
		return Dist(sa.Center, sb.Center) <= eps && math.Abs(sa.Radius-sb.Radius) <= eps
	case *Cylinder:
		sb, ok := b.Surface.(*Cylinder)
		if !ok {
			return false
		}
		eps := tol.EpsAt(sa.Origin)
		d := sb.Origin.Sub(sa.Origin)
		off := d.Sub(sa.Z.MulScalar(d.Dot(sa.Z))).Length()
		return sa.Z.Cross(sb.Z).Length() <= 1e-9 && off <= eps && math.Abs(sa.Radius-sb.Radius) <= eps
	}
	switch b.Surface.(type) {
	case *Plane, *Sphere, *Cylinder:
		if _, ok := a.Surface.(*BSplineSurface); !ok {
			return false
		}
	}
	if !a.U.Bounded() || !a.V.Bounded() {
		return false
	}
	const n = 4
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			p := a.Surface.At(Param(a.U.Lerp(float64(i)/n), a.V.Lerp(float64(j)/n)))
			if _, d := ClosestPointSurface(b.Surface, b.U, b.V, p, nil); d > tol.EpsAt(p) {
				return false
			}
		}
	}
	return true
}

func intersectPlanes(sa *Plane, a Patch, sb *Plane, b Patch, tol Tolerance) ([]IntersectionCurve, error) {
	na, nb := sa.Normal(), sb.Normal()
	dir := na.Cross(nb)
	if dir.Length() <= 1e-9 {
		return nil, nil
	}
	da, db := na.Dot(sa.Origin), nb.Dot(sb.Origin)
	ab := na.Dot(nb)
	det := 1 - ab*ab
	o := na.MulScalar((da - db*ab) / det).Add(nb.MulScalar((db - da*ab) / det))
	line := &Line{Origin: o, Dir: Unit(dir)}
	// Pull the origin to the middle of patch a to keep parameters small.
	mid := sa.At(a.Center())
	line.Origin = line.At(mid.Sub(o).Dot(line.Dir))

	span := Unbounded
	for _, p := range []struct {
		s *Plane
		p Patch
	}{{sa, a}, {sb, b}} {
		uv0 := p.s.Inverse(line.At(0), Param(0, 0))
		duv := p.s.Inverse(line.At(1), Param(0, 0)).Sub(uv0)
		iu, ok := slab(uv0.X, duv.X, p.p.U)
		if !ok {
			return nil, nil
		}
		iv, ok := slab(uv0.Y, duv.Y, p.p.V)
		if !ok {
			return nil, nil
		}
		if span, ok = span.Intersect(iu); !ok {
			return nil, nil
		}
		if span, ok = span.Intersect(iv); !ok {
			return nil, nil
		}
	}
	if span.Length() <= tol.EpsAt(line.Origin) {
		return nil, nil
	}
	p0, p1 := line.At(span.Min), line.At(span.Max)
	return []IntersectionCurve{{
		Curve:  line,
		Params: []float64{span.Min, span.Max},
		Points: []Point{p0, p1},
		UVA:    []UV{sa.Inverse(p0, Param(0, 0)), sa.Inverse(p1, Param(0, 0))},
		UVB:    []UV{sb.Inverse(p0, Param(0, 0)), sb.Inverse(p1, Param(0, 0))},
	}}, nil
}

// slab returns the t range where x0 + t*dx lies in iv.
func slab(x0, dx float64, iv Interval) (Interval, bool) {
	if math.Abs(dx) < 1e-15 {
		if iv.Contains(x0, 0) {
			return Unbounded, true
		}
		return Interval{}, false
	}
	t0, t1 := (iv.Min-x0)/dx, (iv.Max-x0)/dx
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	return Interval{Min: t0, Max: t1}, true
}

// marchPoint is one sample of a marched trace.
type marchPoint struct {
	p   Point
	uva UV
	uvb UV
	dir Vector
}

type marcher struct {
	a, b    Patch
	tol     Tolerance
	eps     float64
	target  float64
	maxStep float64
	minStep float64
}

func march(a, b Patch, tol Tolerance) ([]IntersectionCurve, error) {
	const grid = 12
	ma, mb := samplePatch(a, grid), samplePatch(b, grid)
	if !Overlaps(BoxOf(triPoints(ma)...), BoxOf(triPoints(mb)...), ma.slack+mb.slack) {
		return nil, nil
	}
	scale := math.Max(ma.diag, mb.diag)
	m := &marcher{
		a: a, b: b, tol: tol,
		eps:     tol.Eps(scale),
		target:  tol.converge(scale),
		maxStep: math.Min(ma.diag, mb.diag) / 16,
	}
	m.minStep = m.maxStep * 1e-5

	var curves []IntersectionCurve
	var traced [][]marchPoint
	for _, seed := range seeds(ma, mb) {
		if onTrace(traced, seed.p, 2*m.maxStep+ma.slack+mb.slack) {
			continue
		}
		sp, ok := m.project(seed)
		if !ok {
			continue
		}
		if onTrace(traced, sp.p, 2*m.maxStep) {
			continue
		}
		trace, closed, err := m.trace(sp)
		if err != nil {
			return nil, err
		}
		if len(trace) < 2 {
			continue
		}
		traced = append(traced, trace)
		if c, ok := toIntersectionCurve(trace, closed, m.eps); ok {
			curves = append(curves, c)
		}
	}
	return curves, nil
}

func triPoints(m patchMesh) []Point {
	pts := make([]Point, 0, 3*len(m.tris))
	for _, t := range m.tris {
		pts = append(pts, t.p[:]...)
	}
	return pts
}

// seeds intersects every pair of overlapping triangles and returns the
// crossing points with parameters interpolated on both patches, in a
// deterministic order.
func seeds(ma, mb patchMesh) []marchPoint {
	var out []marchPoint
	for _, ta := range ma.tris {
		for _, tb := range mb.tris {
			if !Overlaps(ta.box, tb.box, 0) {
				continue
			}
			for k := 0; k < 3; k++ {
				i, j := k, (k+1)%3
				if s, bary, ok := segmentTriangle(ta.p[i], ta.p[j], tb.p, 0); ok {
					var ba [3]float64
					ba[i], ba[j] = 1-s, s
					out = append(out, marchPoint{p: Lerp(ta.p[i], ta.p[j], s), uva: ta.uvAt(ba), uvb: tb.uvAt(bary)})
				}
				if s, bary, ok := segmentTriangle(tb.p[i], tb.p[j], ta.p, 0); ok {
					var bb [3]float64
					bb[i], bb[j] = 1-s, s
					out = append(out, marchPoint{p: Lerp(tb.p[i], tb.p[j], s), uva: ta.uvAt(bary), uvb: tb.uvAt(bb)})
				}
			}
		}
	}
	return out
}

func onTrace(traces [][]marchPoint, p Point, d float64) bool {
	for _, t := range traces {
		for i := 0; i+1 < len(t); i++ {
			if pointSegmentDistance(p, t[i].p, t[i+1].p) <= d {
				return true
			}
		}
	}
	return false
}

// project pulls a seed onto both surfaces with least-norm Gauss-Newton
// steps on A(uva) - B(uvb) = 0.
func (m *marcher) project(s marchPoint) (marchPoint, bool) {
	sa, sb := m.a.Surface, m.b.Surface
	uva, uvb := s.uva, s.uvb
	for it := 0; it < m.tol.iterations(); it++ {
		r := sa.At(uva).Sub(sb.At(uvb))
		if r.Length() <= m.target {
			p := marchPoint{p: sa.At(uva), uva: uva, uvb: uvb}
			if !m.inside(p) {
				return marchPoint{}, false
			}
			t, ok := m.tangent(uva, uvb)
			p.dir = t
			return p, ok
		}
		cols := [4]Vector{sa.Deriv(uva, 1, 0), sa.Deriv(uva, 0, 1), sb.Deriv(uvb, 1, 0).MulScalar(-1), sb.Deriv(uvb, 0, 1).MulScalar(-1)}
		// (J Jᵀ) y = -r, step = Jᵀ y.
		var jjt [9]float64
		comp := func(v Vector, i int) float64 { return [3]float64{v.X, v.Y, v.Z}[i] }
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				for _, c := range cols {
					jjt[3*i+j] += comp(c, i) * comp(c, j)
				}
			}
		}
		y, err := solve(3, jjt[:], []float64{-r.X, -r.Y, -r.Z})
		if err != nil {
			return marchPoint{}, false
		}
		yv := Vec(y[0], y[1], y[2])
		uva = Param(uva.X+cols[0].Dot(yv), uva.Y+cols[1].Dot(yv))
		uvb = Param(uvb.X+cols[2].Dot(yv), uvb.Y+cols[3].Dot(yv))
	}
	return marchPoint{}, false
}

func (m *marcher) inside(p marchPoint) bool {
	return m.a.U.Contains(p.uva.X, 1e-12) && m.a.V.Contains(p.uva.Y, 1e-12) &&
		m.b.U.Contains(p.uvb.X, 1e-12) && m.b.V.Contains(p.uvb.Y, 1e-12)
}

// tangent is the unit direction of the intersection curve; it fails where
// the surfaces touch tangentially.
func (m *marcher) tangent(uva, uvb UV) (Vector, bool) {
	t := Normal(m.a.Surface, uva).Cross(Normal(m.b.Surface, uvb))
	if t.Length() < 1e-7 {
		return Vector{}, false
	}
	return Unit(t), true
}

// trace marches from the seed in both directions and joins the halves.
func (m *marcher) trace(seed marchPoint) ([]marchPoint, bool, error) {
	fwd, closed, err := m.walk(seed, 1)
	if err != nil {
		return nil, false, err
	}
	if closed {
		return fwd, true, nil
	}
	back, _, err := m.walk(seed, -1)
	if err != nil {
		return nil, false, err
	}
	slices.Reverse(back)
	return append(back[:len(back)-1], fwd...), false, nil
}

func (m *marcher) walk(seed marchPoint, sign float64) ([]marchPoint, bool, error) {
	const maxPoints = 20000
	pts := []marchPoint{seed}
	cur := seed
	dir := seed.dir.MulScalar(sign)
	h := m.maxStep / 4
	travelled := 0.0
	for len(pts) < maxPoints {
		next, ok := m.step(cur, dir, h)
		if !ok {
			if h /= 2; h < m.minStep {
				// Tangential contact or a singular point ends the branch.
				return pts, false, nil
			}
			continue
		}
		nt, ok := m.tangent(next.uva, next.uvb)
		if !ok {
			return append(pts, next), false, nil
		}
		if nt.Dot(dir) < 0 {
			nt = nt.MulScalar(-1)
		}
		turn := math.Acos(math.Max(-1, math.Min(1, nt.Dot(dir))))
		if turn > 0.1 && h > m.minStep*4 {
			h /= 2
			continue
		}
		next.dir = nt
		if !m.inside(next) {
			if b, ok := m.clip(cur, next, dir); ok && Dist(b.p, cur.p) > m.eps {
				pts = append(pts, b)
			}
			return pts, false, nil
		}
		travelled += Dist(cur.p, next.p)
		if len(pts) > 2 && travelled > 2*h && Dist(next.p, seed.p) <= 1.5*h && seed.p.Sub(cur.p).Dot(dir) > 0 {
			closing := seed
			closing.dir = nt
			return append(pts, closing), true, nil
		}
		pts = append(pts, next)
		cur, dir = next, nt
		if turn < 0.03 {
			h = math.Min(1.5*h, m.maxStep)
		}
	}
	return nil, false, &ConvergenceError{Op: "intersect surfaces", Iterations: maxPoints, Residual: h}
}

// step advances by h along dir, correcting onto both surfaces with the
// step-plane constraint (A - cur)·dir = h.
func (m *marcher) step(cur marchPoint, dir Vector, h float64) (marchPoint, bool) {
	uva := predict(m.a.Surface, cur.uva, dir.MulScalar(h))
	uvb := predict(m.b.Surface, cur.uvb, dir.MulScalar(h))
	constraint := func(uva, uvb UV) (float64, [4]float64) {
		a := m.a.Surface
		return a.At(uva).Sub(cur.p).Dot(dir) - h,
			[4]float64{a.Deriv(uva, 1, 0).Dot(dir), a.Deriv(uva, 0, 1).Dot(dir), 0, 0}
	}
	return m.correct(uva, uvb, constraint)
}

// clip finds where the trace leaves the patches between cur and out by
// replacing the step constraint with the violated domain bound.
func (m *marcher) clip(cur, out marchPoint, dir Vector) (marchPoint, bool) {
	type bound struct {
		onA   bool
		index int
		value float64
		from  float64
		to    float64
	}
	var bounds []bound
	add := func(onA bool, idx int, iv Interval, from, to float64) {
		if to > iv.Max {
			bounds = append(bounds, bound{onA, idx, iv.Max, from, to})
		} else if to < iv.Min {
			bounds = append(bounds, bound{onA, idx, iv.Min, from, to})
		}
	}
	add(true, 0, m.a.U, cur.uva.X, out.uva.X)
	add(true, 1, m.a.V, cur.uva.Y, out.uva.Y)
	add(false, 2, m.b.U, cur.uvb.X, out.uvb.X)
	add(false, 3, m.b.V, cur.uvb.Y, out.uvb.Y)

	// The first bound crossed along the step wins.
	best, bestF := -1, math.Inf(1)
	for i, b := range bounds {
		f := (b.value - b.from) / (b.to - b.from)
		if f < bestF {
			best, bestF = i, f
		}
	}
	if best < 0 {
		return marchPoint{}, false
	}
	bd := bounds[best]
	bestF = clamp01(bestF)
	uva := Param(cur.uva.X+bestF*(out.uva.X-cur.uva.X), cur.uva.Y+bestF*(out.uva.Y-cur.uva.Y))
	uvb := Param(cur.uvb.X+bestF*(out.uvb.X-cur.uvb.X), cur.uvb.Y+bestF*(out.uvb.Y-cur.uvb.Y))
	constraint := func(uva, uvb UV) (float64, [4]float64) {
		vals := [4]float64{uva.X, uva.Y, uvb.X, uvb.Y}
		var row [4]float64
		row[bd.index] = 1
		return vals[bd.index] - bd.value, row
	}
	p, ok := m.correct(uva, uvb, constraint)
	if !ok {
		return marchPoint{}, false
	}
	// Snap the constrained parameter exactly onto the bound.
	switch bd.index {
	case 0:
		p.uva.X = bd.value
	case 1:
		p.uva.Y = bd.value
	case 2:
		p.uvb.X = bd.value
	case 3:
		p.uvb.Y = bd.value
	}
	p.dir = dir
	return p, true
}

// correct runs the 4x4 Newton iteration on A(uva) - B(uvb) = 0 plus one
// scalar constraint.
func (m *marcher) correct(uva, uvb UV, constraint func(UV, UV) (float64, [4]float64)) (marchPoint, bool) {
	sa, sb := m.a.Surface, m.b.Surface
	for it := 0; it < m.tol.iterations(); it++ {
		r := sa.At(uva).Sub(sb.At(uvb))
		c, row := constraint(uva, uvb)
		if r.Length() <= m.target && math.Abs(c) <= m.target {
			return marchPoint{p: sa.At(uva), uva: uva, uvb: uvb}, true
		}
		a1, a2 := sa.Deriv(uva, 1, 0), sa.Deriv(uva, 0, 1)
		b1, b2 := sb.Deriv(uvb, 1, 0), sb.Deriv(uvb, 0, 1)
		x, err := solve(4, []float64{
			a1.X, a2.X, -b1.X, -b2.X,
			a1.Y, a2.Y, -b1.Y, -b2.Y,
			a1.Z, a2.Z, -b1.Z, -b2.Z,
			row[0], row[1], row[2], row[3],
		}, []float64{-r.X, -r.Y, -r.Z, -c})
		if err != nil {
			return marchPoint{}, false
		}
		uva = Param(uva.X+x[0], uva.Y+x[1])
		uvb = Param(uvb.X+x[2], uvb.Y+x[3])
	}
	return marchPoint{}, false
}

// predict converts a model-space displacement into a parameter step by
// least squares on the tangent plane.
func predict(s Surface, uv UV, d Vector) UV {
	su, sv := s.Deriv(uv, 1, 0), s.Deriv(uv, 0, 1)
	a, b, c := su.Dot(su), su.Dot(sv), sv.Dot(sv)
	det := a*c - b*b
	if det <= 1e-300 {
		return uv
	}
	g0, g1 := su.Dot(d), sv.Dot(d)
	return Param(uv.X+(c*g0-b*g1)/det, uv.Y+(a*g1-b*g0)/det)
}

func toIntersectionCurve(trace []marchPoint, closed bool, eps float64) (IntersectionCurve, bool) {
	var c IntersectionCurve
	for i, p := range trace {
		last := i == len(trace)-1
		if len(c.Points) > 0 && Dist(c.Points[len(c.Points)-1], p.p) <= eps && !(last && closed) {
			if last {
				// Keep the exact end point in place of its near twin.
				c.Points[len(c.Points)-1], c.UVA[len(c.UVA)-1], c.UVB[len(c.UVB)-1] = p.p, p.uva, p.uvb
			}
			continue
		}
		c.Points = append(c.Points, p.p)
		c.UVA = append(c.UVA, p.uva)
		c.UVB = append(c.UVB, p.uvb)
	}
	if len(c.Points) < 2 || (closed && len(c.Points) < 4) {
		return IntersectionCurve{}, false
	}
	pl, err := NewPolyline(c.Points)
	if err != nil {
		return IntersectionCurve{}, false
	}
	c.Curve = pl
	c.Params = slices.Clone(pl.Knots[1 : len(pl.Knots)-1])
	c.Closed = closed
	return c, true
}
