package geom

import (
	"fmt"
	"math"
	"slices"

	"github.com/deadsy/sdfx/sdf"
)

// BSplineCurve is a clamped, optionally rational B-spline curve.
type BSplineCurve struct {
	Degree  int
	Knots   []float64
	Ctrl    []Point
	Weights []float64 // nil for a non-rational curve
}

// NewBSplineCurve validates and copies its inputs. Knot count must equal
// len(ctrl)+degree+1, with clamped ends and interior multiplicity at most
// degree. Weights, when given, must be positive and match ctrl.
func NewBSplineCurve(degree int, knots []float64, ctrl []Point, weights []float64) (*BSplineCurve, error) {
	if err := validateKnots("curve", degree, len(ctrl), knots); err != nil {
		return nil, err
	}
	if weights != nil {
		if len(weights) != len(ctrl) {
			return nil, &KnotError{Direction: "curve", Reason: fmt.Sprintf("%d weights for %d control points", len(weights), len(ctrl))}
		}
		for _, w := range weights {
			if !(w > 0) {
				return nil, &KnotError{Direction: "curve", Reason: fmt.Sprintf("non-positive weight %g", w)}
			}
		}
	}
	return &BSplineCurve{
		Degree:  degree,
		Knots:   slices.Clone(knots),
		Ctrl:    slices.Clone(ctrl),
		Weights: slices.Clone(weights),
	}, nil
}

// NewPolyline returns the degree-1 B-spline through pts, parameterized by
// cumulative chord length starting at zero.
func NewPolyline(pts []Point) (*BSplineCurve, error) {
	if len(pts) < 2 {
		return nil, degenerate("new polyline", "%d points", len(pts))
	}
	knots := make([]float64, 0, len(pts)+2)
	knots = append(knots, 0)
	s := 0.0
	for i, p := range pts {
		if i > 0 {
			d := Dist(pts[i-1], p)
			if d == 0 {
				return nil, degenerate("new polyline", "repeated point %d", i)
			}
			s += d
		}
		knots = append(knots, s)
	}
	knots = append(knots, s)
	return NewBSplineCurve(1, knots, pts, nil)
}

func (*BSplineCurve) curve() {}

// Domain is [first knot, last knot].
func (c *BSplineCurve) Domain() Interval {
	return Interval{Min: c.Knots[0], Max: c.Knots[len(c.Knots)-1]}
}

// Rational reports whether the curve carries weights.
func (c *BSplineCurve) Rational() bool { return c.Weights != nil }

func (c *BSplineCurve) weight(i int) float64 {
	if c.Weights == nil {
		return 1
	}
	return c.Weights[i]
}

// At evaluates the curve.
func (c *BSplineCurve) At(t float64) Point { return c.derivs(t, 0)[0] }

// Deriv returns the order-th derivative.
func (c *BSplineCurve) Deriv(t float64, order int) Vector { return c.derivs(t, order)[order] }

// derivs returns the position and derivatives up to order d, applying the
// quotient rule to the homogeneous derivatives for rational curves.
func (c *BSplineCurve) derivs(t float64, d int) []Vector {
	p := c.Degree
	n := len(c.Ctrl) - 1
	t = c.Domain().Clamp(t)
	span := findSpan(n, p, t, c.Knots)
	du := min(d, p)
	nd := dersBasisFuns(span, t, p, du, c.Knots)

	aw := make([][4]float64, d+1)
	for k := 0; k <= du; k++ {
		for j := 0; j <= p; j++ {
			i := span - p + j
			w := c.weight(i)
			b := nd[k][j]
			aw[k][0] += b * c.Ctrl[i].X * w
			aw[k][1] += b * c.Ctrl[i].Y * w
			aw[k][2] += b * c.Ctrl[i].Z * w
			aw[k][3] += b * w
		}
	}
	out := make([]Vector, d+1)
	for k := 0; k <= d; k++ {
		v := Vec(aw[k][0], aw[k][1], aw[k][2])
		for i := 1; i <= k; i++ {
			v = v.Sub(out[k-i].MulScalar(binomial(k, i) * aw[i][3]))
		}
		out[k] = v.MulScalar(1 / aw[0][3])
	}
	return out
}

// Transform maps the control points through m.
func (c *BSplineCurve) Transform(m sdf.M44) Curve {
	out := *c
	out.Knots = slices.Clone(c.Knots)
	out.Weights = slices.Clone(c.Weights)
	out.Ctrl = make([]Point, len(c.Ctrl))
	for i, p := range c.Ctrl {
		out.Ctrl[i] = m.MulPosition(p)
	}
	return &out
}

// ArcToBSpline converts the ellipse arc over iv into an exact rational
// quadratic B-spline whose parameter range is iv (the parameterization
// itself differs from the angle).
func ArcToBSpline(e *Ellipse, iv Interval) (*BSplineCurve, error) {
	span := iv.Length()
	if span <= 0 || span > 2*math.Pi+1e-12 {
		return nil, degenerate("arc to b-spline", "angular span %g", span)
	}
	segs := int(math.Ceil(span/(math.Pi/2) - 1e-9))
	dt := span / float64(segs)
	w1 := math.Cos(dt / 2)

	ctrl := make([]Point, 0, 2*segs+1)
	weights := make([]float64, 0, 2*segs+1)
	knots := []float64{iv.Min, iv.Min, iv.Min}
	ctrl = append(ctrl, e.At(iv.Min))
	weights = append(weights, 1)
	for i := range segs {
		a0 := iv.Min + float64(i)*dt
		mid := a0 + dt/2
		s, c := math.Sincos(mid)
		ctrl = append(ctrl, e.Center.Add(e.Major.MulScalar(c/w1)).Add(e.Minor.MulScalar(s/w1)))
		weights = append(weights, w1)
		ctrl = append(ctrl, e.At(a0+dt))
		weights = append(weights, 1)
		k := iv.Min + float64(i+1)*dt
		if i == segs-1 {
			k = iv.Max
			knots = append(knots, k, k, k)
		} else {
			knots = append(knots, k, k)
		}
	}
	return NewBSplineCurve(2, knots, ctrl, weights)
}

// ToBSpline converts any curve range into a B-spline: lines become degree-1
// segments, ellipse arcs exact rational quadratics, and B-splines are
// returned unchanged when iv covers their domain.
func ToBSpline(c Curve, iv Interval) (*BSplineCurve, error) {
	switch c := c.(type) {
	case *Line:
		a, b := c.At(iv.Min), c.At(iv.Max)
		return NewBSplineCurve(1, []float64{iv.Min, iv.Min, iv.Max, iv.Max}, []Point{a, b}, nil)
	case *Ellipse:
		return ArcToBSpline(c, iv)
	case *BSplineCurve:
		d := c.Domain()
		if iv.Min <= d.Min && iv.Max >= d.Max {
			return c, nil
		}
		return nil, degenerate("to b-spline", "sub-range [%g, %g] of b-spline curve", iv.Min, iv.Max)
	}
	return nil, degenerate("to b-spline", "unsupported curve %T", c)
}
