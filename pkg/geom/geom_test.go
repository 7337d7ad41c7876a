package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tol = DefaultTolerance()

func circle(t *testing.T, r float64) *Ellipse {
	t.Helper()
	c, err := NewCircle(Vec(0, 0, 0), Vec(0, 0, 1), Vec(1, 0, 0), r)
	require.NoError(t, err)
	return c
}

// ---------------------------------------------------------------------------
// B-spline construction
// ---------------------------------------------------------------------------

func TestBSplineKnotLaw(t *testing.T) {
	ctrl := []Point{Vec(0, 0, 0), Vec(1, 1, 0), Vec(2, 0, 0), Vec(3, 1, 0)}
	tests := []struct {
		name    string
		degree  int
		knots   []float64
		weights []float64
		wantErr bool
	}{
		{"cubic bezier", 3, []float64{0, 0, 0, 0, 1, 1, 1, 1}, nil, false},
		{"quadratic with interior knot", 2, []float64{0, 0, 0, 0.5, 1, 1, 1}, nil, false},
		{"too few knots", 3, []float64{0, 0, 0, 1, 1, 1, 1}, nil, true},
		{"too many knots", 2, []float64{0, 0, 0, 0.3, 0.6, 1, 1, 1}, nil, true},
		{"decreasing", 2, []float64{0, 0, 0, 0.5, 0.4, 1, 1}, nil, true},
		{"unclamped", 2, []float64{0, 0, 0.1, 0.5, 1, 1, 1}, nil, true},
		{"zero degree", 0, []float64{0, 0.25, 0.5, 0.75, 1}, nil, true},
		{"bad weight", 3, []float64{0, 0, 0, 0, 1, 1, 1, 1}, []float64{1, 0, 1, 1}, true},
		{"weight count", 3, []float64{0, 0, 0, 0, 1, 1, 1, 1}, []float64{1, 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewBSplineCurve(tt.degree, tt.knots, ctrl, tt.weights)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidKnots)
				var ke *KnotError
				assert.ErrorAs(t, err, &ke)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(c.Ctrl)+c.Degree+1, len(c.Knots))
		})
	}
}

func TestBSplineSurfaceKnotLaw(t *testing.T) {
	ctrl := [][]Point{
		{Vec(0, 0, 0), Vec(0, 1, 0)},
		{Vec(1, 0, 0), Vec(1, 1, 1)},
	}
	_, err := NewBSplineSurface(1, 1, []float64{0, 0, 1, 1}, []float64{0, 0, 1, 1}, ctrl, nil)
	require.NoError(t, err)

	_, err = NewBSplineSurface(1, 1, []float64{0, 0, 1, 1}, []float64{0, 0, 0.5, 1, 1}, ctrl, nil)
	assert.ErrorIs(t, err, ErrInvalidKnots)

	_, err = NewBSplineSurface(2, 1, []float64{0, 0, 0, 1, 1}, []float64{0, 0, 1, 1}, ctrl, nil)
	assert.ErrorIs(t, err, ErrInvalidKnots)
}

func TestBSplineEndpointsAndDerivative(t *testing.T) {
	c, err := NewBSplineCurve(3, []float64{0, 0, 0, 0, 0.5, 1, 1, 1, 1},
		[]Point{Vec(0, 0, 0), Vec(1, 2, 0), Vec(2, -1, 1), Vec(3, 2, 0), Vec(4, 0, 0)}, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0, Dist(c.At(0), c.Ctrl[0]), 1e-12)
	assert.InDelta(t, 0, Dist(c.At(1), c.Ctrl[4]), 1e-12)

	// u=0.5 is a simple knot, where the second derivative jumps.
	for _, u := range []float64{0.1, 0.37, 0.55, 0.8} {
		h := 1e-6
		fd := c.At(u + h).Sub(c.At(u - h)).MulScalar(1 / (2 * h))
		assert.InDelta(t, 0, Dist(fd, c.Deriv(u, 1)), 1e-5, "first derivative at %g", u)
		fd2 := c.Deriv(u+h, 1).Sub(c.Deriv(u-h, 1)).MulScalar(1 / (2 * h))
		assert.InDelta(t, 0, Dist(fd2, c.Deriv(u, 2)), 1e-4, "second derivative at %g", u)
	}

	// C1 across the knot: one-sided differences agree with the derivative.
	h := 1e-7
	left := c.At(0.5).Sub(c.At(0.5 - h)).MulScalar(1 / h)
	right := c.At(0.5 + h).Sub(c.At(0.5)).MulScalar(1 / h)
	assert.InDelta(t, 0, Dist(left, c.Deriv(0.5, 1)), 1e-4)
	assert.InDelta(t, 0, Dist(right, c.Deriv(0.5, 1)), 1e-4)
}

func TestArcToBSplineLiesOnCircle(t *testing.T) {
	e := circle(t, 2)
	for _, iv := range []Interval{{0, math.Pi / 3}, {0, math.Pi}, {-1, 4}, {0, 2 * math.Pi}} {
		b, err := ArcToBSpline(e, iv)
		require.NoError(t, err)
		assert.Equal(t, len(b.Ctrl)+b.Degree+1, len(b.Knots))
		assert.InDelta(t, 0, Dist(b.At(iv.Min), e.At(iv.Min)), 1e-12)
		assert.InDelta(t, 0, Dist(b.At(iv.Max), e.At(iv.Max)), 1e-12)
		for i := 0; i <= 20; i++ {
			p := b.At(iv.Lerp(float64(i) / 20))
			assert.InDelta(t, 2, p.Length(), 1e-12)
		}
	}
}

func TestRationalDerivative(t *testing.T) {
	b, err := ArcToBSpline(circle(t, 1), Interval{Min: 0, Max: math.Pi})
	require.NoError(t, err)
	for _, u := range []float64{0.3, 1.2, 2.9} {
		h := 1e-6
		fd := b.At(u + h).Sub(b.At(u - h)).MulScalar(1 / (2 * h))
		assert.InDelta(t, 0, Dist(fd, b.Deriv(u, 1)), 1e-5)
		// The tangent of a circle is perpendicular to the radius.
		assert.InDelta(t, 0, b.Deriv(u, 1).Dot(b.At(u)), 1e-9)
	}
}

// ---------------------------------------------------------------------------
// Evaluation contract
// ---------------------------------------------------------------------------

func TestEvaluateOutOfDomain(t *testing.T) {
	c, err := NewPolyline([]Point{Vec(0, 0, 0), Vec(1, 0, 0), Vec(1, 1, 0)})
	require.NoError(t, err)

	_, err = Evaluate(c, 1.5)
	require.NoError(t, err)

	_, err = Evaluate(c, 2.5)
	assert.ErrorIs(t, err, ErrOutOfDomain)
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 2.5, de.Param)

	_, err = Derivative(c, -0.1, 1)
	assert.ErrorIs(t, err, ErrOutOfDomain)

	s, err := NewSphere(Vec(0, 0, 0), 1, Vec(0, 0, 1), Vec(1, 0, 0))
	require.NoError(t, err)
	_, err = EvaluateSurface(s, Param(10, 0.2))
	assert.NoError(t, err)
	_, err = EvaluateSurface(s, Param(0, 2))
	assert.ErrorIs(t, err, ErrOutOfDomain)
}

func TestSurfaceDerivativesMatchFiniteDifferences(t *testing.T) {
	sphere, _ := NewSphere(Vec(1, 2, 3), 2, Vec(0, 1, 1), Vec(1, 0, 0))
	cyl, _ := NewCylinder(Vec(0, 0, 0), Vec(1, 1, 0), Vec(0, 0, 1), 0.5)
	arc, _ := ArcToBSpline(circle(t, 1), Interval{Min: 0, Max: 2})
	rev, err := NewRevolvedSurface(arc, Vec(0, 0, 0), Vec(1, 0, 0), 1.5)
	require.NoError(t, err)

	for name, s := range map[string]Surface{"sphere": sphere, "cylinder": cyl, "revolved": rev} {
		uv := Param(0.7, 0.4)
		h := 1e-6
		fu := s.At(Param(uv.X+h, uv.Y)).Sub(s.At(Param(uv.X-h, uv.Y))).MulScalar(1 / (2 * h))
		fv := s.At(Param(uv.X, uv.Y+h)).Sub(s.At(Param(uv.X, uv.Y-h))).MulScalar(1 / (2 * h))
		assert.InDelta(t, 0, Dist(fu, s.Deriv(uv, 1, 0)), 1e-5, name)
		assert.InDelta(t, 0, Dist(fv, s.Deriv(uv, 0, 1)), 1e-5, name)
		fuv := s.Deriv(Param(uv.X, uv.Y+h), 1, 0).Sub(s.Deriv(Param(uv.X, uv.Y-h), 1, 0)).MulScalar(1 / (2 * h))
		assert.InDelta(t, 0, Dist(fuv, s.Deriv(uv, 1, 1)), 1e-4, name)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	plane, _ := NewPlaneAxes(Vec(1, 0, 0), Vec(1, 1, 0), Vec(0, 1, 1))
	sphere, _ := NewSphere(Vec(0, 0, 1), 3, Vec(0, 0, 1), Vec(1, 0, 0))
	cyl, _ := NewCylinder(Vec(0, 0, 0), Vec(0, 0, 1), Vec(1, 0, 0), 2)
	arc, _ := ArcToBSpline(circle(t, 1), Interval{Min: 0.2, Max: 1.4})
	ruled, err := NewRuledSurface(arc, Vec(0, 0, 2))
	require.NoError(t, err)

	for name, tc := range map[string]struct {
		s  Surface
		uv UV
	}{
		"plane":    {plane, Param(0.3, -2)},
		"sphere":   {sphere, Param(5.5, -0.4)},
		"cylinder": {cyl, Param(-2.5, 7)},
		"ruled":    {ruled, Param(0.8, 0.25)},
	} {
		p := tc.s.At(tc.uv)
		got := tc.s.Inverse(p, tc.uv)
		assert.InDelta(t, tc.uv.X, got.X, 1e-8, name)
		assert.InDelta(t, tc.uv.Y, got.Y, 1e-8, name)
	}
}

func TestSphereNormalPointsOutward(t *testing.T) {
	s, _ := NewSphere(Vec(0, 0, 0), 1, Vec(0, 0, 1), Vec(1, 0, 0))
	for _, uv := range []UV{Param(0, 0), Param(2, 0.5), Param(-1, -1.2)} {
		n := Normal(s, uv)
		assert.InDelta(t, 1, n.Dot(s.At(uv)), 1e-12)
	}
	// At the pole the fallback normal still points out of the sphere.
	assert.Greater(t, Normal(s, Param(0, math.Pi/2)).Z, 0.99)
}

// ---------------------------------------------------------------------------
// Intersections
// ---------------------------------------------------------------------------

func TestIntersectLines(t *testing.T) {
	a, _ := NewLine(Vec(0, 0, 0), Vec(1, 0, 0))
	b, _ := NewLine(Vec(0.5, -1, 0), Vec(0.5, 1, 0))
	hits, err := IntersectCurves(a, Interval{0, 1}, b, Interval{0, 2}, tol)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0.5, hits[0].TA, 1e-12)
	assert.InDelta(t, 1, hits[0].TB, 1e-12)

	// Skew lines never meet.
	c, _ := NewLine(Vec(0.5, -1, 1), Vec(0.5, 1, 1))
	hits, err = IntersectCurves(a, Interval{0, 1}, c, Interval{0, 2}, tol)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Collinear overlap is reported as an interval.
	d, _ := NewLine(Vec(0.25, 0, 0), Vec(2, 0, 0))
	_, err = IntersectCurves(a, Interval{0, 1}, d, Interval{0, 1}, tol)
	require.ErrorIs(t, err, ErrDegenerate)
	var de *DegenerateError
	require.ErrorAs(t, err, &de)
	assert.InDelta(t, 0.25, de.IntervalA.Min, 1e-12)
	assert.InDelta(t, 1, de.IntervalA.Max, 1e-12)
	assert.InDelta(t, 0, de.IntervalB.Min, 1e-12)
	assert.InDelta(t, 0.75, de.IntervalB.Max, 1e-12)
}

func TestIntersectCircleAndLine(t *testing.T) {
	c := circle(t, 1)
	l, _ := NewLine(Vec(-2, 0.5, 0), Vec(2, 0.5, 0))
	hits, err := IntersectCurves(c, Interval{0, 2 * math.Pi}, l, Interval{0, 4}, tol)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.InDelta(t, 0.5, h.P.Y, 1e-7)
		assert.InDelta(t, 1, h.P.Length(), 1e-7)
	}
	assert.Less(t, hits[0].TA, hits[1].TA)
}

func TestIntersectOverlappingArcs(t *testing.T) {
	c := circle(t, 1)
	_, err := IntersectCurves(c, Interval{0, 2}, c, Interval{1, 3}, tol)
	require.ErrorIs(t, err, ErrDegenerate)
	var de *DegenerateError
	require.ErrorAs(t, err, &de)
	assert.InDelta(t, 1, de.IntervalA.Min, 0.1)
	assert.InDelta(t, 2, de.IntervalA.Max, 0.1)
}

func TestIntersectCurveSurface(t *testing.T) {
	sphere, _ := NewSphere(Vec(0, 0, 0), 1, Vec(0, 0, 1), Vec(1, 0, 0))
	l, _ := NewLine(Vec(-3, 0, 0), Vec(3, 0, 0))
	hits, err := IntersectCurveSurface(l, Interval{0, 6}, FullPatch(sphere), tol)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.InDelta(t, 2, hits[0].T, 1e-9)
	assert.InDelta(t, 4, hits[1].T, 1e-9)

	plane, _ := NewPlane(Vec(0, 0, 0.5), Vec(0, 0, 1))
	up, _ := NewLine(Vec(0.1, 0.2, -1), Vec(0.1, 0.2, 1))
	hits, err = IntersectCurveSurface(up, Interval{0, 2}, FullPatch(plane), tol)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0.5, hits[0].P.Z, 1e-12)

	flat, _ := NewLine(Vec(0, 0, 0.5), Vec(1, 0, 0.5))
	_, err = IntersectCurveSurface(flat, Interval{0, 1}, FullPatch(plane), tol)
	assert.ErrorIs(t, err, ErrDegenerate)

	// Generic path: an arc through a bounded B-spline patch.
	patchCurve, _ := NewPolyline([]Point{Vec(-2, -2, 0), Vec(2, -2, 0)})
	ruled, err := NewRuledSurface(patchCurve, Vec(0, 4, 0))
	require.NoError(t, err)
	arc, _ := NewCircle(Vec(0, 0, 0), Vec(0, 1, 0), Vec(1, 0, 0), 1)
	hits, err = IntersectCurveSurface(arc, Interval{0, 2 * math.Pi}, FullPatch(ruled), tol)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.InDelta(t, 0, h.P.Z, 1e-7)
	}
}

func TestIntersectPlanes(t *testing.T) {
	a, _ := NewPlaneAxes(Vec(0, 0, 0), Vec(1, 0, 0), Vec(0, 1, 0))
	b, _ := NewPlaneAxes(Vec(0.5, 0, 0), Vec(0, 1, 0), Vec(0, 0, 1))
	pa := Patch{Surface: a, U: Interval{0, 1}, V: Interval{0, 1}}
	pb := Patch{Surface: b, U: Interval{-1, 0.5}, V: Interval{-1, 1}}
	curves, err := IntersectSurfaces(pa, pb, tol)
	require.NoError(t, err)
	require.Len(t, curves, 1)
	c := curves[0]
	ys := []float64{c.Points[0].Y, c.Points[1].Y}
	assert.InDelta(t, 0, math.Min(ys[0], ys[1]), 1e-12)
	assert.InDelta(t, 0.5, math.Max(ys[0], ys[1]), 1e-12)
	for _, p := range c.Points {
		assert.InDelta(t, 0.5, p.X, 1e-12)
		assert.InDelta(t, 0, p.Z, 1e-12)
	}

	coplanar := Patch{Surface: &Plane{Origin: Vec(3, 3, 0), U: Vec(0, 1, 0), V: Vec(-1, 0, 0)}, U: Interval{0, 1}, V: Interval{0, 1}}
	_, err = IntersectSurfaces(pa, coplanar, tol)
	assert.ErrorIs(t, err, ErrDegenerate)

	parallel := Patch{Surface: &Plane{Origin: Vec(0, 0, 1), U: Vec(1, 0, 0), V: Vec(0, 1, 0)}, U: Interval{0, 1}, V: Interval{0, 1}}
	curves, err = IntersectSurfaces(pa, parallel, tol)
	require.NoError(t, err)
	assert.Empty(t, curves)
}

func TestIntersectPlaneCylinder(t *testing.T) {
	cyl, _ := NewCylinder(Vec(0, 0, 0), Vec(0, 0, 1), Vec(1, 0, 0), 1)
	plane, _ := NewPlaneAxes(Vec(0, 0, 0.5), Vec(1, 0, 0), Vec(0, 1, 0))
	pc := Patch{Surface: cyl, U: Interval{0, math.Pi}, V: Interval{0, 1}}
	pp := Patch{Surface: plane, U: Interval{-2, 2}, V: Interval{-2, 2}}

	curves, err := IntersectSurfaces(pp, pc, tol)
	require.NoError(t, err)
	require.Len(t, curves, 1)
	c := curves[0]
	require.IsType(t, &Ellipse{}, c.Curve)
	require.GreaterOrEqual(t, len(c.Points), 8)
	for i, p := range c.Points {
		assert.InDelta(t, 0.5, p.Z, 1e-12)
		assert.InDelta(t, 1, math.Hypot(p.X, p.Y), 1e-12)
		assert.InDelta(t, 0, Dist(cyl.At(c.UVB[i]), p), 1e-9)
		assert.InDelta(t, 0, Dist(plane.At(c.UVA[i]), p), 1e-9)
	}
	// The half circle runs from one seam of the patch to the other.
	ends := []float64{c.UVB[0].X, c.UVB[len(c.UVB)-1].X}
	assert.InDelta(t, 0, math.Min(ends[0], ends[1]), 1e-8)
	assert.InDelta(t, math.Pi, math.Max(ends[0], ends[1]), 1e-8)
	assert.InDelta(t, 0, Dist(c.Curve.At(c.Params[0]), c.Points[0]), 1e-12)

	// Across the periodic seam: u in [π, 2π] wraps to the start of the circle.
	back := Patch{Surface: cyl, U: Interval{math.Pi, 2 * math.Pi}, V: Interval{0, 1}}
	curves, err = IntersectSurfaces(back, pp, tol)
	require.NoError(t, err)
	require.Len(t, curves, 1)
	for _, p := range curves[0].Points {
		assert.LessOrEqual(t, p.Y, 1e-8)
	}
	assert.InDelta(t, math.Pi, curves[0].Range().Length(), 1e-8)

	// A plane along the axis cuts two rulings.
	side, _ := NewPlaneAxes(Vec(0, 0.5, 0), Vec(1, 0, 0), Vec(0, 0, 1))
	full := Patch{Surface: cyl, U: Interval{0, 2 * math.Pi}, V: Interval{0, 1}}
	curves, err = IntersectSurfaces(full, Patch{Surface: side, U: Interval{-2, 2}, V: Interval{0.25, 2}}, tol)
	require.NoError(t, err)
	require.Len(t, curves, 2)
	for _, c := range curves {
		require.IsType(t, &Line{}, c.Curve)
		assert.InDelta(t, 0.75, Dist(c.Points[0], c.Points[1]), 1e-12)
		for i, p := range c.Points {
			assert.InDelta(t, 0.5, p.Y, 1e-12)
			assert.InDelta(t, 1, math.Hypot(p.X, p.Y), 1e-12)
			assert.InDelta(t, 0, Dist(cyl.At(c.UVA[i]), p), 1e-9)
			assert.InDelta(t, 0, Dist(side.At(c.UVB[i]), p), 1e-9)
		}
	}
}

func TestIntersectPlaneSphere(t *testing.T) {
	sphere, _ := NewSphere(Vec(1, 1, 1), 0.7, Vec(0, 0, 1), Vec(1, 0, 0))
	plane, _ := NewPlaneAxes(Vec(0, 0, 1.2), Vec(1, 0, 0), Vec(0, 1, 0))
	pp := Patch{Surface: plane, U: Interval{0, 2}, V: Interval{0, 2}}

	curves, err := IntersectSurfaces(FullPatch(sphere), pp, tol)
	require.NoError(t, err)
	require.Len(t, curves, 1)
	c := curves[0]
	assert.True(t, c.Closed)
	assert.InDelta(t, 2*math.Pi, c.Range().Length(), 1e-12)
	r := math.Sqrt(0.49 - 0.04)
	for i, p := range c.Points {
		assert.InDelta(t, 1.2, p.Z, 1e-12)
		assert.InDelta(t, r, math.Hypot(p.X-1, p.Y-1), 1e-12)
		assert.InDelta(t, 0, Dist(sphere.At(c.UVA[i]), p), 1e-9)
	}

	// The equator of one half of the sphere.
	upper := Patch{Surface: sphere, U: Interval{0, math.Pi}, V: Interval{0, math.Pi / 2}}
	equator, _ := NewPlaneAxes(Vec(0, 0, 1), Vec(1, 0, 0), Vec(0, 1, 0))
	curves, err = IntersectSurfaces(upper, Patch{Surface: equator, U: Interval{0, 2}, V: Interval{0, 2}}, tol)
	require.NoError(t, err)
	require.Len(t, curves, 1)
	first, last := curves[0].Points[0], curves[0].Points[len(curves[0].Points)-1]
	assert.InDelta(t, 1.4, distXY(first, last), 1e-7)

	far, _ := NewPlaneAxes(Vec(0, 0, 1.7), Vec(1, 0, 0), Vec(0, 1, 0))
	curves, err = IntersectSurfaces(FullPatch(sphere), Patch{Surface: far, U: Interval{0, 2}, V: Interval{0, 2}}, tol)
	require.NoError(t, err)
	assert.Empty(t, curves)
}

func distXY(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func TestIntersectPlaneObliqueCylinderMarches(t *testing.T) {
	cyl, _ := NewCylinder(Vec(0, 0, 0), Vec(0, 0, 1), Vec(1, 0, 0), 1)
	plane, _ := NewPlane(Vec(0, 0, 0.5), Vec(0, 0.3, 1))
	pc := Patch{Surface: cyl, U: Interval{0, math.Pi}, V: Interval{0, 1}}
	pp := Patch{Surface: plane, U: Interval{-2, 2}, V: Interval{-2, 2}}

	curves, err := IntersectSurfaces(pp, pc, tol)
	require.NoError(t, err)
	require.Len(t, curves, 1)
	c := curves[0]
	require.IsType(t, &BSplineCurve{}, c.Curve)
	for i, p := range c.Points {
		assert.InDelta(t, 1, math.Hypot(p.X, p.Y), 1e-7)
		assert.InDelta(t, 0, Dist(cyl.At(c.UVB[i]), p), 1e-7)
		assert.InDelta(t, 0, Dist(plane.At(c.UVA[i]), p), 1e-7)
	}
}

func TestIntersectCirclePlane(t *testing.T) {
	plane, _ := NewPlane(Vec(0, 0, 0), Vec(0, 0, 1))
	pp := Patch{Surface: plane, U: Interval{-2, 2}, V: Interval{-2, 2}}

	upright, _ := NewCircle(Vec(0, 0, 0.5), Vec(0, 1, 0), Vec(1, 0, 0), 1)
	hits, err := IntersectCurveSurface(upright, Interval{0, 2 * math.Pi}, pp, tol)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.InDelta(t, 0, h.P.Z, 1e-12)
		assert.InDelta(t, 0, Dist(upright.At(h.T), h.P), 1e-12)
	}
	assert.Less(t, hits[0].T, hits[1].T)

	// The upper half stays above the plane.
	hits, err = IntersectCurveSurface(upright, Interval{math.Pi, 2 * math.Pi}, pp, tol)
	require.NoError(t, err)
	assert.Empty(t, hits)

	lying, _ := NewCircle(Vec(0, 0, 0), Vec(0, 0, 1), Vec(1, 0, 0), 1)
	_, err = IntersectCurveSurface(lying, Interval{0, math.Pi}, pp, tol)
	assert.ErrorIs(t, err, ErrDegenerate)

	above, _ := NewCircle(Vec(0, 0, 1), Vec(0, 0, 1), Vec(1, 0, 0), 1)
	hits, err = IntersectCurveSurface(above, Interval{0, math.Pi}, pp, tol)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestCoincidentPatches(t *testing.T) {
	a, _ := NewCylinder(Vec(0, 0, 0), Vec(0, 0, 1), Vec(1, 0, 0), 1)
	b, _ := NewCylinder(Vec(0, 0, 5), Vec(0, 0, -1), Vec(0, 1, 0), 1)
	pa := Patch{Surface: a, U: Interval{0, 1}, V: Interval{0, 1}}
	pb := Patch{Surface: b, U: Interval{0, 1}, V: Interval{0, 1}}
	assert.True(t, CoincidentPatches(pa, pb, tol))
	_, err := IntersectSurfaces(pa, pb, tol)
	assert.ErrorIs(t, err, ErrDegenerate)

	c, _ := NewCylinder(Vec(0, 0, 0), Vec(0, 0, 1), Vec(1, 0, 0), 1.5)
	assert.False(t, CoincidentPatches(pa, Patch{Surface: c, U: pa.U, V: pa.V}, tol))
}

// ---------------------------------------------------------------------------
// Projection
// ---------------------------------------------------------------------------

func TestClosestPoint(t *testing.T) {
	c := circle(t, 2)
	tt, d := ClosestPoint(c, Interval{0, math.Pi}, Vec(0, 5, 0))
	assert.InDelta(t, math.Pi/2, tt, 1e-12)
	assert.InDelta(t, 3, d, 1e-12)

	// Outside the range the nearest end wins.
	tt, _ = ClosestPoint(c, Interval{0, math.Pi}, Vec(0, -5, 0))
	assert.True(t, tt == 0 || tt == math.Pi)

	b, _ := ArcToBSpline(c, Interval{0, math.Pi})
	tb, d := ClosestPoint(b, b.Domain(), Vec(0, 5, 0))
	assert.InDelta(t, 3, d, 1e-9)
	assert.InDelta(t, 0, Dist(b.At(tb), Vec(0, 2, 0)), 1e-7)

	s, _ := NewSphere(Vec(0, 0, 0), 1, Vec(0, 0, 1), Vec(1, 0, 0))
	uv, d := ClosestPointSurface(s, Interval{0, math.Pi}, Interval{0, math.Pi / 2}, Vec(0, 3, 3), nil)
	assert.InDelta(t, math.Sqrt(18)-1, d, 1e-9)
	assert.InDelta(t, math.Pi/2, uv.X, 1e-9)
	assert.InDelta(t, math.Pi/4, uv.Y, 1e-9)
}

func TestToleranceRelaxed(t *testing.T) {
	r := tol.Relaxed(2)
	assert.InDelta(t, tol.Abs*100, r.Abs, 1e-18)
	assert.Greater(t, tol.Eps(1e6), tol.Eps(1))
	assert.True(t, tol.Coincident(Vec(1, 1, 1), Vec(1, 1, 1+tol.Abs/2)))
}
