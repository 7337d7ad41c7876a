package geom

import (
	"math"
	"slices"
)

// sectionSamples is the number of points tested along a section circle
// when clipping it to the patches.
const sectionSamples = 256

// intersectPlaneSection solves a plane against a sphere or a cylinder in
// closed form. A sphere, or a cylinder whose axis is normal to the plane,
// is cut in a circle; a cylinder whose axis lies parallel to the plane is
// cut in up to two rulings. ok is false for the pairs left to the marcher.
func intersectPlaneSection(a, b Patch, tol Tolerance) (curves []IntersectionCurve, ok bool) {
	pl, onA := a.Surface.(*Plane)
	other := b.Surface
	if !onA {
		if pl, ok = b.Surface.(*Plane); !ok {
			return nil, false
		}
		other = a.Surface
	}
	n := pl.Normal()
	var circle *Ellipse
	switch s := other.(type) {
	case *Sphere:
		d := n.Dot(s.Center.Sub(pl.Origin))
		if math.Abs(d) >= s.Radius-tol.EpsAt(s.Center) {
			return nil, true
		}
		c, err := NewCircle(s.Center.Sub(n.MulScalar(d)), n, s.X, math.Sqrt(s.Radius*s.Radius-d*d))
		if err != nil {
			return nil, true
		}
		circle = c
	case *Cylinder:
		cos := n.Dot(s.Z)
		switch {
		case math.Abs(cos) >= 1-1e-12:
			v := n.Dot(pl.Origin.Sub(s.Origin)) / cos
			c, err := NewCircle(s.Origin.Add(s.Z.MulScalar(v)), s.Z, s.X, s.Radius)
			if err != nil {
				return nil, true
			}
			circle = c
		case math.Abs(cos) <= 1e-12:
			return cylinderRulings(pl, s, a, b, onA, tol), true
		default:
			return nil, false
		}
	default:
		return nil, false
	}
	return sectionRuns(circle, a, b, tol), true
}

// sectionRuns clips a section circle to both patches. Each maximal run of
// the circle inside both becomes one curve; a circle wholly inside is
// returned closed over [0, 2π].
func sectionRuns(c *Ellipse, a, b Patch, tol Tolerance) []IntersectionCurve {
	within := func(t float64) bool {
		p := c.At(t)
		_, okA := a.Contains(a.Surface.Inverse(p, a.Center()), 1e-9)
		_, okB := b.Contains(b.Surface.Inverse(p, b.Center()), 1e-9)
		return okA && okB
	}
	step := 2 * math.Pi / sectionSamples
	inside := make([]bool, sectionSamples)
	all, none := true, true
	for k := range inside {
		inside[k] = within(float64(k) * step)
		all = all && inside[k]
		none = none && !inside[k]
	}
	if none {
		return nil
	}
	if all {
		return []IntersectionCurve{sectionCurve(c, a, b, Interval{Min: 0, Max: 2 * math.Pi}, true)}
	}
	// boundary bisects between an outside and an inside parameter and
	// returns the inside end.
	boundary := func(out, in float64) float64 {
		for range 60 {
			mid := 0.5 * (out + in)
			if within(mid) {
				in = mid
			} else {
				out = mid
			}
		}
		return in
	}
	var curves []IntersectionCurve
	for k := range sectionSamples {
		if !inside[k] || inside[(k+sectionSamples-1)%sectionSamples] {
			continue
		}
		j := k
		for inside[(j+1)%sectionSamples] {
			j++
		}
		iv := Interval{
			Min: boundary(float64(k-1)*step, float64(k)*step),
			Max: boundary(float64(j+1)*step, float64(j)*step),
		}
		if Length(c, iv) <= tol.EpsAt(c.Center) {
			continue
		}
		curves = append(curves, sectionCurve(c, a, b, iv, false))
	}
	return curves
}

// sectionCurve samples the circle over iv into an intersection curve.
func sectionCurve(c *Ellipse, a, b Patch, iv Interval, closed bool) IntersectionCurve {
	m := max(8, int(math.Ceil(iv.Length()/(math.Pi/32))))
	ic := IntersectionCurve{Curve: c, Closed: closed}
	for i := 0; i <= m; i++ {
		t := iv.Lerp(float64(i) / float64(m))
		if i == m {
			t = iv.Max
		}
		p := c.At(t)
		uva, _ := a.Contains(a.Surface.Inverse(p, a.Center()), 0)
		uvb, _ := b.Contains(b.Surface.Inverse(p, b.Center()), 0)
		ic.Params = append(ic.Params, t)
		ic.Points = append(ic.Points, p)
		ic.UVA = append(ic.UVA, uva)
		ic.UVB = append(ic.UVB, uvb)
	}
	return ic
}

// cylinderRulings cuts a cylinder by a plane parallel to its axis. The
// rulings run along the axis with the cylinder's v as line parameter.
func cylinderRulings(pl *Plane, s *Cylinder, a, b Patch, plOnA bool, tol Tolerance) []IntersectionCurve {
	pp, cp := a, b
	if !plOnA {
		pp, cp = b, a
	}
	n := pl.Normal()
	us := cosSinRoots(s.Radius*n.Dot(s.X), s.Radius*n.Dot(s.Y), -n.Dot(s.Origin.Sub(pl.Origin)))
	var curves []IntersectionCurve
	for _, u := range us {
		foot := s.At(Param(u, 0))
		if _, ok := cp.Contains(Param(u, cp.V.Mid()), 1e-9); !ok {
			continue
		}
		line := &Line{Origin: foot, Dir: s.Z}
		span := cp.V
		uv0 := pl.Inverse(line.At(0), Param(0, 0))
		duv := pl.Inverse(line.At(1), Param(0, 0)).Sub(uv0)
		iu, ok := slab(uv0.X, duv.X, pp.U)
		if !ok {
			continue
		}
		if span, ok = span.Intersect(iu); !ok {
			continue
		}
		iv, ok := slab(uv0.Y, duv.Y, pp.V)
		if !ok {
			continue
		}
		if span, ok = span.Intersect(iv); !ok {
			continue
		}
		if span.Length() <= tol.EpsAt(foot) {
			continue
		}
		p0, p1 := line.At(span.Min), line.At(span.Max)
		uvp := []UV{pl.Inverse(p0, Param(0, 0)), pl.Inverse(p1, Param(0, 0))}
		uvc := []UV{Param(u, span.Min), Param(u, span.Max)}
		for i := range uvc {
			uvc[i], _ = cp.Contains(uvc[i], 0)
		}
		ic := IntersectionCurve{Curve: line, Params: []float64{span.Min, span.Max}, Points: []Point{p0, p1}}
		if plOnA {
			ic.UVA, ic.UVB = uvp, uvc
		} else {
			ic.UVA, ic.UVB = uvc, uvp
		}
		curves = append(curves, ic)
	}
	return curves
}

// cosSinRoots returns t in [0, 2π) with a·cos t + b·sin t = d. A tangent
// or missing solution yields nothing.
func cosSinRoots(a, b, d float64) []float64 {
	r := math.Hypot(a, b)
	if r == 0 {
		return nil
	}
	c := d / r
	if math.Abs(c) >= 1-1e-12 {
		return nil
	}
	phi := math.Atan2(b, a)
	off := math.Acos(c)
	ts := []float64{wrap2Pi(phi - off), wrap2Pi(phi + off)}
	slices.Sort(ts)
	return ts
}

func wrap2Pi(t float64) float64 {
	t = math.Mod(t, 2*math.Pi)
	if t < 0 {
		t += 2 * math.Pi
	}
	return t
}

// ellipsePlane intersects an ellipse with a plane. An ellipse lying in the
// plane is degenerate.
func ellipsePlane(e *Ellipse, ic Interval, s *Plane, p Patch, tol Tolerance) ([]CurveSurfaceHit, error) {
	n := s.Normal()
	a, b := n.Dot(e.Major), n.Dot(e.Minor)
	d := -n.Dot(e.Center.Sub(s.Origin))
	size := math.Max(e.Major.Length(), e.Minor.Length())
	eps := tol.EpsAt(e.Center)
	if math.Hypot(a, b) <= eps {
		if math.Abs(d) <= eps {
			return nil, degenerate("intersect curve/surface", "ellipse lies in plane")
		}
		return nil, nil
	}
	var out []CurveSurfaceHit
	for _, t := range cosSinRoots(a, b, d) {
		ts := []float64{t}
		if ic.Bounded() {
			// A root on the far seam of a full-turn range is also its near end.
			t = Unwrap(t, ic.Mid())
			ts = []float64{t, t - 2*math.Pi, t + 2*math.Pi}
		}
		for _, t := range ts {
			if !ic.Contains(t, eps/size) {
				continue
			}
			pt := e.At(t)
			uv, ok := p.Contains(s.Inverse(pt, p.Center()), 1e-9)
			if !ok {
				continue
			}
			out = append(out, CurveSurfaceHit{T: ic.Clamp(t), UV: uv, P: pt})
		}
	}
	slices.SortFunc(out, func(x, y CurveSurfaceHit) int { return cmpFloat(x.T, y.T) })
	return slices.CompactFunc(out, func(x, y CurveSurfaceHit) bool { return math.Abs(x.T-y.T) <= eps/size }), nil
}
