package geom

import (
	"math"
	"slices"
)

// CurveHit is a transversal intersection of two curves.
type CurveHit struct {
	TA, TB float64
	P      Point
}

// IntersectCurves finds the intersections of a over ia with b over ib.
// Seeds come from polyline subdivision and are refined with a bounded
// Gauss-Newton iteration. Overlapping curves yield a *DegenerateError
// carrying the shared parameter intervals.
func IntersectCurves(a Curve, ia Interval, b Curve, ib Interval, tol Tolerance) ([]CurveHit, error) {
	if la, ok := a.(*Line); ok {
		if lb, ok := b.(*Line); ok {
			return intersectLines(la, ia, lb, ib, tol)
		}
	}
	if !ia.Bounded() || !ib.Bounded() {
		return nil, degenerate("intersect curves", "unbounded range on a non-linear curve")
	}
	pa := sampleCurve(a, ia)
	pb := sampleCurve(b, ib)
	scale := math.Max(Diagonal(BoxOf(pa.pts...)), Diagonal(BoxOf(pb.pts...)))
	eps := tol.Eps(scale)

	if err := overlap(a, ia, b, ib, pa, eps); err != nil {
		return nil, err
	}

	var hits []CurveHit
	for i := 0; i+1 < len(pa.pts); i++ {
		for j := 0; j+1 < len(pb.pts); j++ {
			s, u, d := SegmentApproach(pa.pts[i], pa.pts[i+1], pb.pts[j], pb.pts[j+1])
			if d > pa.slack+pb.slack+eps {
				continue
			}
			ta := pa.ts[i] + s*(pa.ts[i+1]-pa.ts[i])
			tb := pb.ts[j] + u*(pb.ts[j+1]-pb.ts[j])
			hit, err := retry(tol, func(t Tolerance) (curveRefinement, error) {
				return refineCurveCurve(a, ia, b, ib, ta, tb, t, scale)
			})
			if err != nil {
				return nil, err
			}
			if !hit.ok {
				continue
			}
			hits = appendUniqueHit(hits, hit.hit, eps)
		}
	}
	slices.SortFunc(hits, func(x, y CurveHit) int { return cmpFloat(x.TA, y.TA) })
	return hits, nil
}

type curveRefinement struct {
	hit CurveHit
	ok  bool
}

// refineCurveCurve minimizes |a(ta)-b(tb)|. A stationary point with a
// residual above ε is a near miss, not an intersection.
func refineCurveCurve(a Curve, ia Interval, b Curve, ib Interval, ta, tb float64, tol Tolerance, scale float64) (curveRefinement, error) {
	eps := tol.Eps(scale)
	target := tol.converge(scale)
	var r Vector
	for it := 0; it < tol.iterations(); it++ {
		r = a.At(ta).Sub(b.At(tb))
		if r.Length() <= target {
			return curveRefinement{hit: CurveHit{TA: ta, TB: tb, P: a.At(ta)}, ok: true}, nil
		}
		da, db := a.Deriv(ta, 1), b.Deriv(tb, 1).MulScalar(-1)
		x, err := solve(2, []float64{da.Dot(da), da.Dot(db), db.Dot(da), db.Dot(db)},
			[]float64{-da.Dot(r), -db.Dot(r)})
		if err != nil {
			break
		}
		nta, ntb := ia.Clamp(ta+x[0]), ib.Clamp(tb+x[1])
		if math.Abs(nta-ta)+math.Abs(ntb-tb) <= 1e-15*(1+math.Abs(ta)+math.Abs(tb)) {
			ta, tb = nta, ntb
			break
		}
		ta, tb = nta, ntb
	}
	r = a.At(ta).Sub(b.At(tb))
	if r.Length() <= eps {
		return curveRefinement{hit: CurveHit{TA: ta, TB: tb, P: a.At(ta)}, ok: true}, nil
	}
	// Seeds are taken only where the polylines nearly touch, so a residual
	// that is small relative to the seed slack but still above ε means the
	// iteration stalled rather than found a clean miss.
	if r.Length() <= 10*eps {
		return curveRefinement{}, &ConvergenceError{Op: "intersect curves", Iterations: tol.iterations(), Residual: r.Length()}
	}
	return curveRefinement{}, nil
}

func intersectLines(a *Line, ia Interval, b *Line, ib Interval, tol Tolerance) ([]CurveHit, error) {
	w := a.Origin.Sub(b.Origin)
	aa, ab, bb := a.Dir.Dot(a.Dir), a.Dir.Dot(b.Dir), b.Dir.Dot(b.Dir)
	den := aa*bb - ab*ab
	scale := math.Max(Magnitude(a.Origin), Magnitude(b.Origin))
	eps := tol.Eps(scale)
	if den <= 1e-12*aa*bb {
		d := w.Sub(a.Dir.MulScalar(w.Dot(a.Dir) / aa)).Length()
		if d > eps {
			return nil, nil
		}
		// Collinear: map b's range onto a's parameter.
		t0 := b.At(ib.Min).Sub(a.Origin).Dot(a.Dir) / aa
		t1 := b.At(ib.Max).Sub(a.Origin).Dot(a.Dir) / aa
		ov, ok := ia.Intersect(Interval{Min: math.Min(t0, t1), Max: math.Max(t0, t1)})
		if !ok {
			return nil, nil
		}
		if ov.Length()*math.Sqrt(aa) <= eps {
			p := a.At(ov.Mid())
			tb, _ := ClosestPoint(b, ib, p)
			return []CurveHit{{TA: ov.Mid(), TB: tb, P: p}}, nil
		}
		sa, _ := ClosestPoint(b, ib, a.At(ov.Min))
		sb, _ := ClosestPoint(b, ib, a.At(ov.Max))
		return nil, &DegenerateError{Op: "intersect curves", Reason: "collinear overlap",
			IntervalA: ov, IntervalB: Interval{Min: math.Min(sa, sb), Max: math.Max(sa, sb)}}
	}
	wa, wb := a.Dir.Dot(w), b.Dir.Dot(w)
	ta := (ab*wb - bb*wa) / den
	tb := (aa*wb - ab*wa) / den
	pa, pb := a.At(ta), b.At(tb)
	if Dist(pa, pb) > eps {
		return nil, nil
	}
	ea, eb := eps/math.Sqrt(aa), eps/math.Sqrt(bb)
	if !ia.Contains(ta, ea) || !ib.Contains(tb, eb) {
		return nil, nil
	}
	return []CurveHit{{TA: ia.Clamp(ta), TB: ib.Clamp(tb), P: pa}}, nil
}

// overlap reports a *DegenerateError when a run of samples of a lies on b.
func overlap(a Curve, ia Interval, b Curve, ib Interval, pa polyline, eps float64) error {
	lo, hi := -1, -1
	bestRun := [2]int{-1, -1}
	for i, p := range pa.pts {
		if _, d := ClosestPoint(b, ib, p); d <= eps {
			if lo < 0 {
				lo = i
			}
			hi = i
			if hi-lo > bestRun[1]-bestRun[0] {
				bestRun = [2]int{lo, hi}
			}
			continue
		}
		lo, hi = -1, -1
	}
	if bestRun[0] < 0 || bestRun[1]-bestRun[0] < 2 {
		return nil
	}
	mid := pa.pts[(bestRun[0]+bestRun[1])/2]
	if _, d := ClosestPoint(b, ib, mid); d > eps {
		return nil
	}
	ta := Interval{Min: pa.ts[bestRun[0]], Max: pa.ts[bestRun[1]]}
	s0, _ := ClosestPoint(b, ib, a.At(ta.Min))
	s1, _ := ClosestPoint(b, ib, a.At(ta.Max))
	return &DegenerateError{Op: "intersect curves", Reason: "overlapping curves",
		IntervalA: ta, IntervalB: Interval{Min: math.Min(s0, s1), Max: math.Max(s0, s1)}}
}

// polyline is a sampled curve with a bound on its chordal deviation.
type polyline struct {
	ts    []float64
	pts   []Point
	slack float64
}

func sampleCurve(c Curve, iv Interval) polyline {
	n := 16
	switch c := c.(type) {
	case *Line:
		n = 1
	case *Ellipse:
		n = max(8, int(math.Ceil(iv.Length()/(math.Pi/32))))
	case *BSplineCurve:
		n = max(16, 4*len(c.Ctrl)*c.Degree)
	}
	pl := polyline{ts: make([]float64, n+1), pts: make([]Point, n+1)}
	for i := 0; i <= n; i++ {
		t := iv.Lerp(float64(i) / float64(n))
		pl.ts[i] = t
		pl.pts[i] = c.At(t)
	}
	for i := 0; i < n; i++ {
		mid := c.At(0.5 * (pl.ts[i] + pl.ts[i+1]))
		pl.slack = math.Max(pl.slack, 2*pointSegmentDistance(mid, pl.pts[i], pl.pts[i+1]))
	}
	return pl
}

// SegmentApproach returns the parameters of closest approach between
// segments p0p1 and q0q1 and the distance there.
func SegmentApproach(p0, p1, q0, q1 Point) (s, t, d float64) {
	d1, d2 := p1.Sub(p0), q1.Sub(q0)
	r := p0.Sub(q0)
	a, e, f := d1.Dot(d1), d2.Dot(d2), d2.Dot(r)
	switch {
	case a <= 1e-300 && e <= 1e-300:
		return 0, 0, r.Length()
	case a <= 1e-300:
		t = clamp01(f / e)
	default:
		c := d1.Dot(r)
		if e <= 1e-300 {
			s = clamp01(-c / a)
		} else {
			b := d1.Dot(d2)
			den := a*e - b*b
			if den > 0 {
				s = clamp01((b*f - c*e) / den)
			}
			t = (b*s + f) / e
			if t < 0 {
				t, s = 0, clamp01(-c/a)
			} else if t > 1 {
				t, s = 1, clamp01((b-c)/a)
			}
		}
	}
	return s, t, Dist(Lerp(p0, p1, s), Lerp(q0, q1, t))
}

func pointSegmentDistance(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return Dist(p, a)
	}
	return Dist(p, Lerp(a, b, clamp01(p.Sub(a).Dot(ab)/l2)))
}

func clamp01(x float64) float64 { return math.Max(0, math.Min(1, x)) }

func appendUniqueHit(hits []CurveHit, h CurveHit, eps float64) []CurveHit {
	for _, o := range hits {
		if Dist(o.P, h.P) <= eps {
			return hits
		}
	}
	return append(hits, h)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
