package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// Surface is a parametric surface. The variant set is closed: *Plane,
// *Sphere, *Cylinder and *BSplineSurface.
type Surface interface {
	// Domain returns the parameter ranges in u and v.
	Domain() (u, v Interval)
	// At evaluates the surface.
	At(uv UV) Point
	// Deriv returns the mixed partial derivative ∂^(du+dv)S / ∂u^du ∂v^dv.
	Deriv(uv UV, du, dv int) Vector
	// Inverse returns the parameters of the surface point nearest p. The
	// hint seeds iterative variants and selects the branch for periodic
	// and singular parameters.
	Inverse(p Point, hint UV) UV
	// Transform applies a rigid map and returns a new surface.
	Transform(m sdf.M44) Surface

	surface()
}

// Plane is the affine surface Origin + u*U + v*V. U and V need not be
// orthogonal; the normal is U×V.
type Plane struct {
	Origin Point
	U, V   Vector
}

// NewPlane returns a plane through origin with unit orthogonal axes and the
// given normal.
func NewPlane(origin Point, normal Vector) (*Plane, error) {
	if normal.Length() == 0 {
		return nil, degenerate("new plane", "zero normal")
	}
	x, y := Orthonormal(normal)
	return &Plane{Origin: origin, U: x, V: y}, nil
}

// NewPlaneAxes returns a plane with explicit axes.
func NewPlaneAxes(origin Point, u, v Vector) (*Plane, error) {
	if u.Cross(v).Length() <= 1e-12*u.Length()*v.Length() {
		return nil, degenerate("new plane", "parallel axes")
	}
	return &Plane{Origin: origin, U: u, V: v}, nil
}

func (*Plane) surface() {}

// Domain is unbounded in both directions.
func (p *Plane) Domain() (Interval, Interval) { return Unbounded, Unbounded }

// At evaluates the plane.
func (p *Plane) At(uv UV) Point {
	return p.Origin.Add(p.U.MulScalar(uv.X)).Add(p.V.MulScalar(uv.Y))
}

// Deriv returns U, V or zero.
func (p *Plane) Deriv(uv UV, du, dv int) Vector {
	switch {
	case du == 0 && dv == 0:
		return p.At(uv)
	case du == 1 && dv == 0:
		return p.U
	case du == 0 && dv == 1:
		return p.V
	}
	return Vector{}
}

// Normal is the unit plane normal.
func (p *Plane) Normal() Vector { return Unit(p.U.Cross(p.V)) }

// Inverse projects p onto the plane.
func (p *Plane) Inverse(q Point, _ UV) UV {
	d := q.Sub(p.Origin)
	uu, uv, vv := p.U.Dot(p.U), p.U.Dot(p.V), p.V.Dot(p.V)
	du, dv := d.Dot(p.U), d.Dot(p.V)
	det := uu*vv - uv*uv
	return Param((du*vv-dv*uv)/det, (dv*uu-du*uv)/det)
}

// Transform maps the plane through m.
func (p *Plane) Transform(m sdf.M44) Surface {
	o := m.MulPosition(p.Origin)
	return &Plane{
		Origin: o,
		U:      m.MulPosition(p.Origin.Add(p.U)).Sub(o),
		V:      m.MulPosition(p.Origin.Add(p.V)).Sub(o),
	}
}

// frame is a right-handed orthonormal frame.
type frame struct {
	X, Y, Z Vector
}

func newFrame(axis, ref Vector) frame {
	z := Unit(axis)
	x := ref.Sub(z.MulScalar(ref.Dot(z)))
	if x.Length() < 1e-12 {
		x, _ = Orthonormal(z)
	}
	x = Unit(x)
	return frame{X: x, Y: z.Cross(x), Z: z}
}

func (f frame) transform(m sdf.M44, o Point) frame {
	mo := m.MulPosition(o)
	x := Unit(m.MulPosition(o.Add(f.X)).Sub(mo))
	z := Unit(m.MulPosition(o.Add(f.Z)).Sub(mo))
	return frame{X: x, Y: z.Cross(x), Z: z}
}

// Sphere is parameterized by longitude u around Z (from X) and latitude v
// in [-π/2, π/2]. The normal points outward.
type Sphere struct {
	Center Point
	Radius float64
	frame
}

// NewSphere returns a sphere with polar axis along axis and longitude zero
// along ref.
func NewSphere(center Point, radius float64, axis, ref Vector) (*Sphere, error) {
	if !(radius > 0) {
		return nil, degenerate("new sphere", "radius %g", radius)
	}
	if axis.Length() == 0 {
		return nil, degenerate("new sphere", "zero axis")
	}
	return &Sphere{Center: center, Radius: radius, frame: newFrame(axis, ref)}, nil
}

func (*Sphere) surface() {}

// Domain is periodic in u and [-π/2, π/2] in v.
func (s *Sphere) Domain() (Interval, Interval) {
	return Unbounded, Interval{Min: -math.Pi / 2, Max: math.Pi / 2}
}

// At evaluates the sphere.
func (s *Sphere) At(uv UV) Point { return s.Center.Add(s.partial(uv, 0, 0)) }

// Deriv returns partial derivatives.
func (s *Sphere) Deriv(uv UV, du, dv int) Vector {
	if du == 0 && dv == 0 {
		return s.At(uv)
	}
	return s.partial(uv, du, dv)
}

func (s *Sphere) partial(uv UV, du, dv int) Vector {
	cv, sv := cosD(dv, uv.Y), sinD(dv, uv.Y)
	v := s.X.MulScalar(cv * cosD(du, uv.X)).Add(s.Y.MulScalar(cv * sinD(du, uv.X)))
	if du == 0 {
		v = v.Add(s.Z.MulScalar(sv))
	}
	return v.MulScalar(s.Radius)
}

// Inverse returns longitude and latitude of p. At the poles the longitude
// of the hint is kept; elsewhere longitude is unwrapped towards the hint.
func (s *Sphere) Inverse(p Point, hint UV) UV {
	d := p.Sub(s.Center)
	x, y, z := d.Dot(s.X), d.Dot(s.Y), d.Dot(s.Z)
	r := math.Hypot(x, y)
	v := math.Atan2(z, r)
	if r <= 1e-12*s.Radius {
		return Param(hint.X, v)
	}
	return Param(Unwrap(math.Atan2(y, x), hint.X), v)
}

// Transform maps the sphere through a rigid m.
func (s *Sphere) Transform(m sdf.M44) Surface {
	return &Sphere{Center: m.MulPosition(s.Center), Radius: s.Radius, frame: s.frame.transform(m, s.Center)}
}

// Cylinder is Origin + Radius*(cos u X + sin u Y) + v Z. u is periodic
// and the normal points away from the axis.
type Cylinder struct {
	Origin Point
	Radius float64
	frame
}

// NewCylinder returns a cylinder around the axis through origin, with u=0
// along ref.
func NewCylinder(origin Point, axis, ref Vector, radius float64) (*Cylinder, error) {
	if !(radius > 0) {
		return nil, degenerate("new cylinder", "radius %g", radius)
	}
	if axis.Length() == 0 {
		return nil, degenerate("new cylinder", "zero axis")
	}
	return &Cylinder{Origin: origin, Radius: radius, frame: newFrame(axis, ref)}, nil
}

func (*Cylinder) surface() {}

// Domain is periodic in u and unbounded in v.
func (c *Cylinder) Domain() (Interval, Interval) { return Unbounded, Unbounded }

// At evaluates the cylinder.
func (c *Cylinder) At(uv UV) Point {
	s, co := math.Sincos(uv.X)
	return c.Origin.Add(c.X.MulScalar(c.Radius * co)).Add(c.Y.MulScalar(c.Radius * s)).Add(c.Z.MulScalar(uv.Y))
}

// Deriv returns partial derivatives.
func (c *Cylinder) Deriv(uv UV, du, dv int) Vector {
	switch {
	case du == 0 && dv == 0:
		return c.At(uv)
	case du == 0 && dv == 1:
		return c.Z
	case du > 0 && dv == 0:
		return c.X.MulScalar(c.Radius * cosD(du, uv.X)).Add(c.Y.MulScalar(c.Radius * sinD(du, uv.X)))
	}
	return Vector{}
}

// Inverse returns the angle (unwrapped towards the hint) and height of p.
func (c *Cylinder) Inverse(p Point, hint UV) UV {
	d := p.Sub(c.Origin)
	x, y := d.Dot(c.X), d.Dot(c.Y)
	u := hint.X
	if math.Hypot(x, y) > 1e-12*c.Radius {
		u = Unwrap(math.Atan2(y, x), hint.X)
	}
	return Param(u, d.Dot(c.Z))
}

// Transform maps the cylinder through a rigid m.
func (c *Cylinder) Transform(m sdf.M44) Surface {
	return &Cylinder{Origin: m.MulPosition(c.Origin), Radius: c.Radius, frame: c.frame.transform(m, c.Origin)}
}

// Unwrap shifts the angle a by multiples of 2π to lie within π of ref.
func Unwrap(a, ref float64) float64 {
	return a + 2*math.Pi*math.Round((ref-a)/(2*math.Pi))
}

// PeriodU returns the u period of a periodic surface.
func PeriodU(s Surface) (float64, bool) {
	switch s.(type) {
	case *Sphere, *Cylinder:
		return 2 * math.Pi, true
	}
	return 0, false
}

// Normal returns the unit normal Su×Sv at uv. At singular points it falls
// back to the normal at a nearby interior parameter.
func Normal(s Surface, uv UV) Vector {
	n := s.Deriv(uv, 1, 0).Cross(s.Deriv(uv, 0, 1))
	if n.Length() > 1e-14 {
		return Unit(n)
	}
	du, dv := s.Domain()
	c := Param(0, 0)
	if du.Bounded() {
		c.X = du.Mid()
	} else {
		c.X = uv.X
	}
	if dv.Bounded() {
		c.Y = dv.Mid()
	} else {
		c.Y = uv.Y
	}
	for _, f := range []float64{1e-6, 1e-4, 1e-2} {
		q := Param(uv.X+f*(c.X-uv.X), uv.Y+f*(c.Y-uv.Y))
		n = s.Deriv(q, 1, 0).Cross(s.Deriv(q, 0, 1))
		if n.Length() > 1e-14 {
			return Unit(n)
		}
	}
	return Vector{}
}

// Singular reports whether the surface parameterization degenerates at uv,
// as at the poles of a sphere.
func Singular(s Surface, uv UV, eps float64) bool {
	return s.Deriv(uv, 1, 0).Length() <= eps || s.Deriv(uv, 0, 1).Length() <= eps
}

// EvaluateSurface returns s(uv), failing with ErrOutOfDomain outside the
// surface domain.
func EvaluateSurface(s Surface, uv UV) (Point, error) {
	if err := checkUV("evaluate surface", s, uv); err != nil {
		return Point{}, err
	}
	return s.At(uv), nil
}

// SurfaceDerivative returns a checked partial derivative.
func SurfaceDerivative(s Surface, uv UV, du, dv int) (Vector, error) {
	if du < 0 || dv < 0 {
		return Vector{}, degenerate("surface derivative", "negative order (%d, %d)", du, dv)
	}
	if err := checkUV("surface derivative", s, uv); err != nil {
		return Vector{}, err
	}
	return s.Deriv(uv, du, dv), nil
}

func checkUV(op string, s Surface, uv UV) error {
	du, dv := s.Domain()
	if err := checkParam(op, du, uv.X); err != nil {
		return err
	}
	return checkParam(op, dv, uv.Y)
}
