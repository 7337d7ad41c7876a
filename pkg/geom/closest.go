package geom

import "math"

// ClosestPoint returns the parameter in iv of the point on c nearest p and
// the distance to it. Unbounded ranges are only valid for lines; an
// ellipse with an unbounded range is searched over one period.
func ClosestPoint(c Curve, iv Interval, p Point) (float64, float64) {
	switch c := c.(type) {
	case *Line:
		t := p.Sub(c.Origin).Dot(c.Dir) / c.Dir.Dot(c.Dir)
		t = iv.Clamp(t)
		return t, Dist(c.At(t), p)
	case *Ellipse:
		if !iv.Bounded() {
			iv = Interval{Min: 0, Max: 2 * math.Pi}
		}
		if c.IsCircle(1e-12 * c.Major.Length()) {
			d := p.Sub(c.Center)
			a := math.Atan2(d.Dot(c.Minor), d.Dot(c.Major))
			best, bestD := iv.Min, math.Inf(1)
			for _, t := range []float64{Unwrap(a, iv.Mid()), iv.Min, iv.Max} {
				if !iv.Contains(t, 0) {
					continue
				}
				if dd := Dist(c.At(t), p); dd < bestD {
					best, bestD = t, dd
				}
			}
			return best, bestD
		}
	}
	return closestOnCurve(c, iv, p)
}

// closestOnCurve samples the range and polishes the best sample with
// Newton iterations on C'(t)·(C(t)-p) = 0.
func closestOnCurve(c Curve, iv Interval, p Point) (float64, float64) {
	const samples = 64
	best, bestD := iv.Min, math.Inf(1)
	for i := 0; i <= samples; i++ {
		t := iv.Lerp(float64(i) / samples)
		if d := Dist(c.At(t), p); d < bestD {
			best, bestD = t, d
		}
	}
	t := best
	for range 32 {
		r := c.At(t).Sub(p)
		d1 := c.Deriv(t, 1)
		d2 := c.Deriv(t, 2)
		f := d1.Dot(r)
		fp := d2.Dot(r) + d1.Dot(d1)
		if fp <= 0 {
			break
		}
		next := iv.Clamp(t - f/fp)
		if math.Abs(next-t) <= 1e-14*(1+math.Abs(t)) {
			t = next
			break
		}
		t = next
	}
	if d := Dist(c.At(t), p); d < bestD {
		best, bestD = t, d
	}
	return best, bestD
}

// ClosestPointSurface returns the parameters within the patch [du]x[dv] of
// the surface point nearest p, and the distance. A non-nil hint selects the
// periodic branch and seeds iterative variants.
func ClosestPointSurface(s Surface, du, dv Interval, p Point, hint *UV) (UV, float64) {
	switch s := s.(type) {
	case *Plane, *Sphere, *Cylinder:
		ref := Param(du.Mid(), dv.Mid())
		if !du.Bounded() {
			ref.X = 0
			if hint != nil {
				ref.X = hint.X
			}
		}
		if !dv.Bounded() {
			ref.Y = 0
		}
		uv := s.Inverse(p, ref)
		uv = Param(clampPeriodic(s, du, uv.X), dv.Clamp(uv.Y))
		return uv, Dist(s.At(uv), p)
	}
	return closestOnPatch(s, du, dv, p, hint)
}

// clampPeriodic limits a periodic u to the patch range, choosing the nearer
// end when u falls in the gap.
func clampPeriodic(s Surface, du Interval, u float64) float64 {
	if du.Contains(u, 0) || !du.Bounded() {
		return u
	}
	if period, ok := PeriodU(s); ok && du.Length() < period {
		u = Unwrap(u, du.Mid())
		if du.Contains(u, 0) {
			return u
		}
		gapLo := Unwrap(du.Min, u)
		gapHi := Unwrap(du.Max, u)
		if math.Abs(u-gapLo) < math.Abs(u-gapHi) {
			return du.Min
		}
		return du.Max
	}
	return du.Clamp(u)
}

// closestOnPatch runs a coarse grid search and Newton refinement on the
// squared distance.
func closestOnPatch(s Surface, du, dv Interval, p Point, hint *UV) (UV, float64) {
	const n = 12
	best := Param(du.Mid(), dv.Mid())
	bestD := math.Inf(1)
	starts := make([]UV, 0, 2)
	if du.Bounded() && dv.Bounded() {
		for i := 0; i <= n; i++ {
			for j := 0; j <= n; j++ {
				uv := Param(du.Lerp(float64(i)/n), dv.Lerp(float64(j)/n))
				if d := Dist(s.At(uv), p); d < bestD {
					best, bestD = uv, d
				}
			}
		}
		starts = append(starts, best)
	}
	if hint != nil {
		starts = append(starts, Param(du.Clamp(hint.X), dv.Clamp(hint.Y)))
	}
	for _, start := range starts {
		uv := refineClosest(s, du, dv, p, start)
		if d := Dist(s.At(uv), p); d < bestD {
			best, bestD = uv, d
		}
	}
	return best, bestD
}

func refineClosest(s Surface, du, dv Interval, p Point, uv UV) UV {
	for range 32 {
		r := s.At(uv).Sub(p)
		su, sv := s.Deriv(uv, 1, 0), s.Deriv(uv, 0, 1)
		suu, suv, svv := s.Deriv(uv, 2, 0), s.Deriv(uv, 1, 1), s.Deriv(uv, 0, 2)
		g0, g1 := su.Dot(r), sv.Dot(r)
		a := su.Dot(su) + suu.Dot(r)
		b := su.Dot(sv) + suv.Dot(r)
		c := sv.Dot(sv) + svv.Dot(r)
		det := a*c - b*b
		var dx, dy float64
		if det > 1e-30 && a > 0 {
			dx = (c*g0 - b*g1) / det
			dy = (a*g1 - b*g0) / det
		} else {
			// Gauss-Newton step when the Hessian is indefinite.
			a, b, c = su.Dot(su), su.Dot(sv), sv.Dot(sv)
			det = a*c - b*b
			if det <= 1e-30 {
				break
			}
			dx = (c*g0 - b*g1) / det
			dy = (a*g1 - b*g0) / det
		}
		next := Param(du.Clamp(uv.X-dx), dv.Clamp(uv.Y-dy))
		moved := math.Abs(next.X-uv.X) + math.Abs(next.Y-uv.Y)
		uv = next
		if moved <= 1e-15*(1+math.Abs(uv.X)+math.Abs(uv.Y)) {
			break
		}
	}
	return uv
}
