package geom

import (
	"math"
	"slices"
)

// CurveSurfaceHit is an intersection of a curve with a surface.
type CurveSurfaceHit struct {
	T  float64
	UV UV
	P  Point
}

// Patch is a surface restricted to a parameter rectangle.
type Patch struct {
	Surface Surface
	U, V    Interval
}

// FullPatch returns the patch covering the whole surface domain.
func FullPatch(s Surface) Patch {
	u, v := s.Domain()
	return Patch{Surface: s, U: u, V: v}
}

// Center is the patch midpoint, with zero standing in for unbounded ranges.
func (p Patch) Center() UV {
	c := Param(0, 0)
	if p.U.Bounded() {
		c.X = p.U.Mid()
	}
	if p.V.Bounded() {
		c.Y = p.V.Mid()
	}
	return c
}

// Contains reports whether uv lies in the patch, unwrapping periodic u, and
// returns the unwrapped parameters.
func (p Patch) Contains(uv UV, eps float64) (UV, bool) {
	if _, ok := PeriodU(p.Surface); ok && p.U.Bounded() {
		uv.X = Unwrap(uv.X, p.U.Mid())
	}
	return uv, p.U.Contains(uv.X, eps) && p.V.Contains(uv.Y, eps)
}

// IntersectCurveSurface finds the points where c over ic meets the patch.
// Lines against planes, spheres and cylinders, and ellipses against planes,
// are solved analytically; other pairs are seeded from segment/triangle
// tests and refined with a bounded Newton iteration. A curve lying in the surface is degenerate.
func IntersectCurveSurface(c Curve, ic Interval, p Patch, tol Tolerance) ([]CurveSurfaceHit, error) {
	if l, ok := c.(*Line); ok {
		switch s := p.Surface.(type) {
		case *Plane:
			return linePlane(l, ic, s, p, tol)
		case *Sphere:
			return lineQuadric(l, ic, p, tol, sphereCoefficients(l, s))
		case *Cylinder:
			return lineCylinder(l, ic, s, p, tol)
		}
	}
	if e, ok := c.(*Ellipse); ok {
		if s, ok := p.Surface.(*Plane); ok {
			return ellipsePlane(e, ic, s, p, tol)
		}
	}
	if !ic.Bounded() || !p.U.Bounded() || !p.V.Bounded() {
		return nil, degenerate("intersect curve/surface", "unbounded range")
	}
	return curveSurfaceGeneric(c, ic, p, tol)
}

func linePlane(l *Line, ic Interval, s *Plane, p Patch, tol Tolerance) ([]CurveSurfaceHit, error) {
	n := s.Normal()
	den := l.Dir.Dot(n)
	dist := s.Origin.Sub(l.Origin).Dot(n)
	eps := tol.EpsAt(l.Origin)
	if math.Abs(den) <= 1e-12*l.Dir.Length() {
		if math.Abs(dist) <= eps {
			return nil, degenerate("intersect curve/surface", "line lies in plane")
		}
		return nil, nil
	}
	t := dist / den
	return keepHits(l, ic, p, tol, []float64{t}), nil
}

// sphereCoefficients returns a, b, c of |O + tD - C|^2 - r^2 = 0.
func sphereCoefficients(l *Line, s *Sphere) [3]float64 {
	w := l.Origin.Sub(s.Center)
	return [3]float64{l.Dir.Dot(l.Dir), 2 * l.Dir.Dot(w), w.Dot(w) - s.Radius*s.Radius}
}

func lineCylinder(l *Line, ic Interval, s *Cylinder, p Patch, tol Tolerance) ([]CurveSurfaceHit, error) {
	w := l.Origin.Sub(s.Origin)
	d := l.Dir.Sub(s.Z.MulScalar(l.Dir.Dot(s.Z)))
	w = w.Sub(s.Z.MulScalar(w.Dot(s.Z)))
	if d.Length() <= 1e-12*l.Dir.Length() {
		if math.Abs(w.Length()-s.Radius) <= tol.EpsAt(l.Origin) {
			return nil, degenerate("intersect curve/surface", "line lies on cylinder")
		}
		return nil, nil
	}
	return lineQuadric(l, ic, p, tol, [3]float64{d.Dot(d), 2 * d.Dot(w), w.Dot(w) - s.Radius*s.Radius})
}

func lineQuadric(l *Line, ic Interval, p Patch, tol Tolerance, k [3]float64) ([]CurveSurfaceHit, error) {
	a, b, c := k[0], k[1], k[2]
	disc := b*b - 4*a*c
	if disc < 0 {
		// A grazing line within ε of the surface still touches it.
		t := -b / (2 * a)
		if _, d := ClosestPointSurface(p.Surface, p.U, p.V, l.At(t), nil); d > tol.EpsAt(l.At(t)) {
			return nil, nil
		}
		return keepHits(l, ic, p, tol, []float64{t}), nil
	}
	sq := math.Sqrt(disc)
	q := -0.5 * (b + math.Copysign(sq, b))
	var ts []float64
	if q != 0 {
		ts = append(ts, q/a, c/q)
	} else {
		ts = append(ts, 0)
	}
	slices.Sort(ts)
	return keepHits(l, ic, p, tol, ts), nil
}

// keepHits converts line parameters to hits inside the curve range and the
// patch, merging duplicates.
func keepHits(l *Line, ic Interval, p Patch, tol Tolerance, ts []float64) []CurveSurfaceHit {
	var out []CurveSurfaceHit
	for _, t := range ts {
		pt := l.At(t)
		eps := tol.EpsAt(pt)
		if !ic.Contains(t, eps/l.Dir.Length()) {
			continue
		}
		uv := p.Surface.Inverse(pt, p.Center())
		uv, ok := p.Contains(uv, 1e-9)
		if !ok {
			continue
		}
		if len(out) > 0 && Dist(out[len(out)-1].P, pt) <= eps {
			continue
		}
		out = append(out, CurveSurfaceHit{T: ic.Clamp(t), UV: uv, P: pt})
	}
	return out
}

func curveSurfaceGeneric(c Curve, ic Interval, p Patch, tol Tolerance) ([]CurveSurfaceHit, error) {
	pl := sampleCurve(c, ic)
	mesh := samplePatch(p, 16)
	scale := math.Max(Diagonal(BoxOf(pl.pts...)), mesh.diag)
	eps := tol.Eps(scale)
	slack := pl.slack + mesh.slack + eps

	var hits []CurveSurfaceHit
	for i := 0; i+1 < len(pl.pts); i++ {
		segBox := Grow(BoxOf(pl.pts[i], pl.pts[i+1]), slack)
		for _, tri := range mesh.tris {
			if !Overlaps(segBox, tri.box, 0) {
				continue
			}
			s, bary, ok := segmentTriangle(pl.pts[i], pl.pts[i+1], tri.p, slack)
			if !ok {
				continue
			}
			t0 := pl.ts[i] + s*(pl.ts[i+1]-pl.ts[i])
			uv0 := tri.uvAt(bary)
			h, err := RefineCurveSurface(c, ic, p, t0, uv0, tol)
			if err != nil {
				return nil, err
			}
			if h == nil {
				continue
			}
			dup := false
			for _, o := range hits {
				if Dist(o.P, h.P) <= eps {
					dup = true
					break
				}
			}
			if !dup {
				hits = append(hits, *h)
			}
		}
	}
	slices.SortFunc(hits, func(a, b CurveSurfaceHit) int { return cmpFloat(a.T, b.T) })
	return hits, nil
}

// RefineCurveSurface polishes an approximate intersection of c with the
// patch by Newton iteration on C(t) - S(u,v) = 0, retrying with relaxed
// tolerances before reporting non-convergence. A nil hit means the seed
// converged to a point that is not an intersection.
func RefineCurveSurface(c Curve, ic Interval, p Patch, t float64, uv UV, tol Tolerance) (*CurveSurfaceHit, error) {
	return retry(tol, func(tol Tolerance) (*CurveSurfaceHit, error) {
		return refineCurveSurface(c, ic, p, t, uv, tol)
	})
}

func refineCurveSurface(c Curve, ic Interval, p Patch, t float64, uv UV, tol Tolerance) (*CurveSurfaceHit, error) {
	s := p.Surface
	scale := Magnitude(c.At(t))
	target := tol.converge(scale)
	eps := tol.Eps(scale)
	for it := 0; it < tol.iterations(); it++ {
		r := c.At(t).Sub(s.At(uv))
		if r.Length() <= target {
			break
		}
		ct, su, sv := c.Deriv(t, 1), s.Deriv(uv, 1, 0), s.Deriv(uv, 0, 1)
		x, err := solve(3, []float64{
			ct.X, -su.X, -sv.X,
			ct.Y, -su.Y, -sv.Y,
			ct.Z, -su.Z, -sv.Z,
		}, []float64{-r.X, -r.Y, -r.Z})
		if err != nil {
			break
		}
		t = ic.Clamp(t + x[0])
		uv = Param(p.U.Clamp(uv.X+x[1]), p.V.Clamp(uv.Y+x[2]))
	}
	pt := c.At(t)
	res := Dist(pt, s.At(uv))
	if res <= eps {
		return &CurveSurfaceHit{T: t, UV: uv, P: pt}, nil
	}
	if res <= 10*eps {
		return nil, &ConvergenceError{Op: "intersect curve/surface", Iterations: tol.iterations(), Residual: res}
	}
	return nil, nil
}

// patchMesh is a triangulated grid over a patch used to seed iterations.
type patchMesh struct {
	tris  []patchTri
	slack float64
	diag  float64
}

type patchTri struct {
	p   [3]Point
	uv  [3]UV
	box Box
}

func (t patchTri) uvAt(b [3]float64) UV {
	return Param(b[0]*t.uv[0].X+b[1]*t.uv[1].X+b[2]*t.uv[2].X, b[0]*t.uv[0].Y+b[1]*t.uv[1].Y+b[2]*t.uv[2].Y)
}

func samplePatch(p Patch, n int) patchMesh {
	pts := make([][]Point, n+1)
	uvs := make([][]UV, n+1)
	var m patchMesh
	b := EmptyBox()
	for i := 0; i <= n; i++ {
		pts[i] = make([]Point, n+1)
		uvs[i] = make([]UV, n+1)
		for j := 0; j <= n; j++ {
			uv := Param(p.U.Lerp(float64(i)/float64(n)), p.V.Lerp(float64(j)/float64(n)))
			uvs[i][j] = uv
			pts[i][j] = p.Surface.At(uv)
			b = Extend(b, pts[i][j])
		}
	}
	m.diag = Diagonal(b)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c := Param(p.U.Lerp((float64(i)+0.5)/float64(n)), p.V.Lerp((float64(j)+0.5)/float64(n)))
			q := [4]Point{pts[i][j], pts[i+1][j], pts[i+1][j+1], pts[i][j+1]}
			avg := q[0].Add(q[1]).Add(q[2]).Add(q[3]).MulScalar(0.25)
			m.slack = math.Max(m.slack, 2*Dist(p.Surface.At(c), avg))
			quv := [4]UV{uvs[i][j], uvs[i+1][j], uvs[i+1][j+1], uvs[i][j+1]}
			for _, k := range [2][3]int{{0, 1, 2}, {0, 2, 3}} {
				t := patchTri{
					p:  [3]Point{q[k[0]], q[k[1]], q[k[2]]},
					uv: [3]UV{quv[k[0]], quv[k[1]], quv[k[2]]},
				}
				t.box = BoxOf(t.p[:]...)
				m.tris = append(m.tris, t)
			}
		}
	}
	for i := range m.tris {
		m.tris[i].box = Grow(m.tris[i].box, m.slack)
	}
	return m
}

// segmentTriangle intersects segment ab with a triangle, accepting points
// within slack of the triangle edges. It returns the segment parameter and
// the barycentric coordinates of the hit.
func segmentTriangle(a, b Point, tri [3]Point, slack float64) (float64, [3]float64, bool) {
	e1, e2 := tri[1].Sub(tri[0]), tri[2].Sub(tri[0])
	n := e1.Cross(e2)
	area2 := n.Length()
	if area2 == 0 {
		return 0, [3]float64{}, false
	}
	nu := n.MulScalar(1 / area2)
	da, db := a.Sub(tri[0]).Dot(nu), b.Sub(tri[0]).Dot(nu)
	var s float64
	switch {
	case math.Abs(da-db) > 1e-300:
		s = da / (da - db)
	case math.Abs(da) <= slack:
		s = 0.5
	default:
		return 0, [3]float64{}, false
	}
	if s < -slack/math.Max(Dist(a, b), 1e-300) || s > 1+slack/math.Max(Dist(a, b), 1e-300) {
		return 0, [3]float64{}, false
	}
	s = clamp01(s)
	q := Lerp(a, b, s)
	v2 := q.Sub(tri[0])
	d00, d01, d11 := e1.Dot(e1), e1.Dot(e2), e2.Dot(e2)
	d20, d21 := v2.Dot(e1), v2.Dot(e2)
	den := d00*d11 - d01*d01
	bv := (d11*d20 - d01*d21) / den
	bw := (d00*d21 - d01*d20) / den
	bu := 1 - bv - bw
	// Barycentric slack measured against the triangle size.
	tol := slack / math.Sqrt(area2)
	if bu < -tol || bv < -tol || bw < -tol {
		return 0, [3]float64{}, false
	}
	bary := [3]float64{clamp01(bu), clamp01(bv), clamp01(bw)}
	sum := bary[0] + bary[1] + bary[2]
	return s, [3]float64{bary[0] / sum, bary[1] / sum, bary[2] / sum}, true
}
