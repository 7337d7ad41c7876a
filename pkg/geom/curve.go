package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// Curve is a parametric curve. The variant set is closed: *Line, *Ellipse
// and *BSplineCurve. At and Deriv do not check the domain; use Evaluate and
// Derivative for checked access.
type Curve interface {
	// Domain is the full parameter range of the curve.
	Domain() Interval
	// At evaluates the curve.
	At(t float64) Point
	// Deriv returns the order-th derivative (order 0 is the position).
	Deriv(t float64, order int) Vector
	// Transform applies a rigid or affine map and returns a new curve.
	Transform(m sdf.M44) Curve

	curve()
}

// Line is the infinite line Origin + t*Dir.
type Line struct {
	Origin Point
	Dir    Vector
}

// NewLine returns the line through a and b with t=0 at a and t=|b-a| at b.
func NewLine(a, b Point) (*Line, error) {
	d := b.Sub(a)
	if d.Length() == 0 {
		return nil, degenerate("new line", "coincident points")
	}
	return &Line{Origin: a, Dir: Unit(d)}, nil
}

func (*Line) curve() {}

// Domain is unbounded.
func (l *Line) Domain() Interval { return Unbounded }

// At evaluates the line.
func (l *Line) At(t float64) Point { return l.Origin.Add(l.Dir.MulScalar(t)) }

// Deriv returns Dir for order 1 and zero for higher orders.
func (l *Line) Deriv(t float64, order int) Vector {
	switch order {
	case 0:
		return l.At(t)
	case 1:
		return l.Dir
	}
	return Vector{}
}

// Transform maps the line through m.
func (l *Line) Transform(m sdf.M44) Curve {
	o := m.MulPosition(l.Origin)
	return &Line{Origin: o, Dir: m.MulPosition(l.Origin.Add(l.Dir)).Sub(o)}
}

// Ellipse is the closed conic Center + cos(t)*Major + sin(t)*Minor. A
// circle has perpendicular semi-axes of equal length. The parameter is
// periodic with period 2π.
type Ellipse struct {
	Center Point
	Major  Vector
	Minor  Vector
}

// NewCircle returns the circle of the given radius around normal, with t=0
// in the direction x (projected into the circle's plane).
func NewCircle(center Point, normal, x Vector, radius float64) (*Ellipse, error) {
	if radius <= 0 {
		return nil, degenerate("new circle", "radius %g", radius)
	}
	n := Unit(normal)
	if n.Length() == 0 {
		return nil, degenerate("new circle", "zero normal")
	}
	x = x.Sub(n.MulScalar(x.Dot(n)))
	if x.Length() == 0 {
		x, _ = Orthonormal(n)
	}
	x = Unit(x)
	y := n.Cross(x)
	return &Ellipse{Center: center, Major: x.MulScalar(radius), Minor: y.MulScalar(radius)}, nil
}

func (*Ellipse) curve() {}

// Domain is unbounded; the curve repeats every 2π.
func (e *Ellipse) Domain() Interval { return Unbounded }

// At evaluates the ellipse.
func (e *Ellipse) At(t float64) Point {
	s, c := math.Sincos(t)
	return e.Center.Add(e.Major.MulScalar(c)).Add(e.Minor.MulScalar(s))
}

// Deriv returns the order-th derivative.
func (e *Ellipse) Deriv(t float64, order int) Vector {
	if order == 0 {
		return e.At(t)
	}
	return e.Major.MulScalar(cosD(order, t)).Add(e.Minor.MulScalar(sinD(order, t)))
}

// Normal is the unit normal of the ellipse plane.
func (e *Ellipse) Normal() Vector { return Unit(e.Major.Cross(e.Minor)) }

// IsCircle reports whether the semi-axes are perpendicular and equal.
func (e *Ellipse) IsCircle(eps float64) bool {
	return math.Abs(e.Major.Length()-e.Minor.Length()) <= eps &&
		math.Abs(e.Major.Dot(e.Minor)) <= eps*e.Major.Length()
}

// Transform maps the ellipse through m.
func (e *Ellipse) Transform(m sdf.M44) Curve {
	c := m.MulPosition(e.Center)
	return &Ellipse{
		Center: c,
		Major:  m.MulPosition(e.Center.Add(e.Major)).Sub(c),
		Minor:  m.MulPosition(e.Center.Add(e.Minor)).Sub(c),
	}
}

// cosD is the k-th derivative of cos at t.
func cosD(k int, t float64) float64 {
	s, c := math.Sincos(t)
	switch k % 4 {
	case 0:
		return c
	case 1:
		return -s
	case 2:
		return -c
	}
	return s
}

// sinD is the k-th derivative of sin at t.
func sinD(k int, t float64) float64 {
	s, c := math.Sincos(t)
	switch k % 4 {
	case 0:
		return s
	case 1:
		return c
	case 2:
		return -s
	}
	return -c
}

// Period returns the parameter period of a closed curve.
func Period(c Curve) (float64, bool) {
	if _, ok := c.(*Ellipse); ok {
		return 2 * math.Pi, true
	}
	return 0, false
}

// Evaluate returns c(t), failing with ErrOutOfDomain outside c.Domain().
func Evaluate(c Curve, t float64) (Point, error) {
	if err := checkParam("evaluate", c.Domain(), t); err != nil {
		return Point{}, err
	}
	return c.At(t), nil
}

// Derivative returns the order-th derivative of c at t.
func Derivative(c Curve, t float64, order int) (Vector, error) {
	if order < 0 {
		return Vector{}, degenerate("derivative", "negative order %d", order)
	}
	if err := checkParam("derivative", c.Domain(), t); err != nil {
		return Vector{}, err
	}
	return c.Deriv(t, order), nil
}

func checkParam(op string, d Interval, t float64) error {
	if math.IsNaN(t) || !d.Contains(t, 1e-12*(1+math.Abs(t))) {
		return &DomainError{Op: op, Param: t, Domain: d}
	}
	return nil
}

// CurveBounds returns a box enclosing c over iv.
func CurveBounds(c Curve, iv Interval) Box {
	switch c := c.(type) {
	case *Line:
		return BoxOf(c.At(iv.Min), c.At(iv.Max))
	case *Ellipse:
		b := BoxOf(c.At(iv.Min), c.At(iv.Max))
		axes := [3]func(Vector) float64{
			func(v Vector) float64 { return v.X },
			func(v Vector) float64 { return v.Y },
			func(v Vector) float64 { return v.Z },
		}
		for _, f := range axes {
			t0 := math.Atan2(f(c.Minor), f(c.Major))
			for k := -4; k <= 4; k++ {
				t := t0 + float64(k)*math.Pi
				if iv.Contains(t, 0) {
					b = Extend(b, c.At(t))
				}
			}
		}
		return b
	}
	const n = 64
	b := EmptyBox()
	for i := 0; i <= n; i++ {
		b = Extend(b, c.At(iv.Lerp(float64(i)/n)))
	}
	return Grow(b, 0.01*Diagonal(b))
}

// Length approximates the arc length of c over iv with composite
// Gauss-Legendre quadrature.
func Length(c Curve, iv Interval) float64 {
	if l, ok := c.(*Line); ok {
		return l.Dir.Length() * iv.Length()
	}
	nodes := [...]float64{-0.7745966692414834, 0, 0.7745966692414834}
	weights := [...]float64{0.5555555555555556, 0.8888888888888888, 0.5555555555555556}
	const pieces = 32
	h := iv.Length() / pieces
	sum := 0.0
	for i := range pieces {
		mid := iv.Min + (float64(i)+0.5)*h
		for k, x := range nodes {
			sum += weights[k] * c.Deriv(mid+0.5*h*x, 1).Length()
		}
	}
	return 0.5 * h * sum
}
