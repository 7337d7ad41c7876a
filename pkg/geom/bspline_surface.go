package geom

import (
	"fmt"
	"math"
	"slices"

	"github.com/deadsy/sdfx/sdf"
)

// BSplineSurface is a clamped, optionally rational tensor-product surface.
// Ctrl[i][j] is indexed by u then v.
type BSplineSurface struct {
	DegreeU, DegreeV int
	KnotsU, KnotsV   []float64
	Ctrl             [][]Point
	Weights          [][]float64 // nil for a non-rational surface
}

// NewBSplineSurface validates and copies its inputs; each direction obeys
// the same knot law as a curve.
func NewBSplineSurface(degU, degV int, knotsU, knotsV []float64, ctrl [][]Point, weights [][]float64) (*BSplineSurface, error) {
	if len(ctrl) == 0 {
		return nil, &KnotError{Direction: "surface u", Reason: "empty control net"}
	}
	if err := validateKnots("surface u", degU, len(ctrl), knotsU); err != nil {
		return nil, err
	}
	rows := len(ctrl[0])
	for i, row := range ctrl {
		if len(row) != rows {
			return nil, &KnotError{Direction: "surface v", Reason: fmt.Sprintf("ragged control net at row %d", i)}
		}
	}
	if err := validateKnots("surface v", degV, rows, knotsV); err != nil {
		return nil, err
	}
	s := &BSplineSurface{
		DegreeU: degU, DegreeV: degV,
		KnotsU: slices.Clone(knotsU), KnotsV: slices.Clone(knotsV),
		Ctrl: make([][]Point, len(ctrl)),
	}
	for i := range ctrl {
		s.Ctrl[i] = slices.Clone(ctrl[i])
	}
	if weights != nil {
		if len(weights) != len(ctrl) {
			return nil, &KnotError{Direction: "surface", Reason: "weight net does not match control net"}
		}
		s.Weights = make([][]float64, len(weights))
		for i, row := range weights {
			if len(row) != rows {
				return nil, &KnotError{Direction: "surface", Reason: "weight net does not match control net"}
			}
			for _, w := range row {
				if !(w > 0) {
					return nil, &KnotError{Direction: "surface", Reason: fmt.Sprintf("non-positive weight %g", w)}
				}
			}
			s.Weights[i] = slices.Clone(row)
		}
	}
	return s, nil
}

func (*BSplineSurface) surface() {}

// Domain returns the knot ranges.
func (s *BSplineSurface) Domain() (Interval, Interval) {
	return Interval{Min: s.KnotsU[0], Max: s.KnotsU[len(s.KnotsU)-1]},
		Interval{Min: s.KnotsV[0], Max: s.KnotsV[len(s.KnotsV)-1]}
}

func (s *BSplineSurface) weight(i, j int) float64 {
	if s.Weights == nil {
		return 1
	}
	return s.Weights[i][j]
}

// At evaluates the surface.
func (s *BSplineSurface) At(uv UV) Point { return s.derivs(uv, 0)[0][0] }

// Deriv returns the mixed partial derivative.
func (s *BSplineSurface) Deriv(uv UV, du, dv int) Vector {
	return s.derivs(uv, du+dv)[du][dv]
}

// derivs returns S[k][l] for k+l <= d.
func (s *BSplineSurface) derivs(uv UV, d int) [][]Vector {
	pu, pv := s.DegreeU, s.DegreeV
	domU, domV := s.Domain()
	u, v := domU.Clamp(uv.X), domV.Clamp(uv.Y)
	su := findSpan(len(s.Ctrl)-1, pu, u, s.KnotsU)
	sv := findSpan(len(s.Ctrl[0])-1, pv, v, s.KnotsV)
	du, dv := min(d, pu), min(d, pv)
	nu := dersBasisFuns(su, u, pu, du, s.KnotsU)
	nv := dersBasisFuns(sv, v, pv, dv, s.KnotsV)

	aw := make([][][4]float64, d+1)
	for k := range aw {
		aw[k] = make([][4]float64, d+1)
	}
	for k := 0; k <= du; k++ {
		for l := 0; l <= dv && k+l <= d; l++ {
			var acc [4]float64
			for a := 0; a <= pu; a++ {
				for b := 0; b <= pv; b++ {
					i, j := su-pu+a, sv-pv+b
					w := s.weight(i, j)
					f := nu[k][a] * nv[l][b]
					p := s.Ctrl[i][j]
					acc[0] += f * p.X * w
					acc[1] += f * p.Y * w
					acc[2] += f * p.Z * w
					acc[3] += f * w
				}
			}
			aw[k][l] = acc
		}
	}

	out := make([][]Vector, d+1)
	for k := range out {
		out[k] = make([]Vector, d+1)
	}
	w00 := aw[0][0][3]
	for k := 0; k <= d; k++ {
		for l := 0; l <= d-k; l++ {
			v := Vec(aw[k][l][0], aw[k][l][1], aw[k][l][2])
			for j := 1; j <= l; j++ {
				v = v.Sub(out[k][l-j].MulScalar(binomial(l, j) * aw[0][j][3]))
			}
			for i := 1; i <= k; i++ {
				v = v.Sub(out[k-i][l].MulScalar(binomial(k, i) * aw[i][0][3]))
				var v2 Vector
				for j := 1; j <= l; j++ {
					v2 = v2.Add(out[k-i][l-j].MulScalar(binomial(l, j) * aw[i][j][3]))
				}
				v = v.Sub(v2.MulScalar(binomial(k, i)))
			}
			out[k][l] = v.MulScalar(1 / w00)
		}
	}
	return out
}

// Inverse finds the parameters of the nearest surface point by grid search
// and Newton refinement from the hint.
func (s *BSplineSurface) Inverse(p Point, hint UV) UV {
	du, dv := s.Domain()
	uv, _ := closestOnPatch(s, du, dv, p, &hint)
	return uv
}

// Transform maps the control net through m.
func (s *BSplineSurface) Transform(m sdf.M44) Surface {
	out := &BSplineSurface{
		DegreeU: s.DegreeU, DegreeV: s.DegreeV,
		KnotsU: slices.Clone(s.KnotsU), KnotsV: slices.Clone(s.KnotsV),
		Ctrl: make([][]Point, len(s.Ctrl)),
	}
	for i, row := range s.Ctrl {
		out.Ctrl[i] = make([]Point, len(row))
		for j, p := range row {
			out.Ctrl[i][j] = m.MulPosition(p)
		}
	}
	if s.Weights != nil {
		out.Weights = make([][]float64, len(s.Weights))
		for i := range s.Weights {
			out.Weights[i] = slices.Clone(s.Weights[i])
		}
	}
	return out
}

// NewRuledSurface sweeps the curve c along the vector dir. The result has
// the curve's parameterization in u and v in [0, 1].
func NewRuledSurface(c *BSplineCurve, dir Vector) (*BSplineSurface, error) {
	if dir.Length() == 0 {
		return nil, degenerate("ruled surface", "zero direction")
	}
	ctrl := make([][]Point, len(c.Ctrl))
	var weights [][]float64
	if c.Weights != nil {
		weights = make([][]float64, len(c.Ctrl))
	}
	for i, p := range c.Ctrl {
		ctrl[i] = []Point{p, p.Add(dir)}
		if weights != nil {
			weights[i] = []float64{c.Weights[i], c.Weights[i]}
		}
	}
	return NewBSplineSurface(c.Degree, 1, c.Knots, []float64{0, 0, 1, 1}, ctrl, weights)
}

// NewRevolvedSurface rotates the profile curve about the axis through
// origin by angle radians (right-handed). u runs along the rotation with
// range [0, angle], v along the profile's parameterization. The rotation
// is exact (rational quadratic in u).
func NewRevolvedSurface(profile *BSplineCurve, origin Point, axis Vector, angle float64) (*BSplineSurface, error) {
	if axis.Length() == 0 {
		return nil, degenerate("revolved surface", "zero axis")
	}
	if !(angle > 0) || angle > 2*math.Pi+1e-12 {
		return nil, degenerate("revolved surface", "angle %g", angle)
	}
	z := Unit(axis)
	unit := &Ellipse{Center: Vec(0, 0, 0), Major: Vec(1, 0, 0), Minor: Vec(0, 1, 0)}
	arc, err := ArcToBSpline(unit, Interval{Min: 0, Max: angle})
	if err != nil {
		return nil, err
	}
	ctrl := make([][]Point, len(arc.Ctrl))
	weights := make([][]float64, len(arc.Ctrl))
	for i := range arc.Ctrl {
		ctrl[i] = make([]Point, len(profile.Ctrl))
		weights[i] = make([]float64, len(profile.Ctrl))
	}
	for j, p := range profile.Ctrl {
		d := p.Sub(origin)
		o := origin.Add(z.MulScalar(d.Dot(z)))
		x := p.Sub(o)
		y := z.Cross(x)
		for i, a := range arc.Ctrl {
			ctrl[i][j] = o.Add(x.MulScalar(a.X)).Add(y.MulScalar(a.Y))
			weights[i][j] = arc.weight(i) * profile.weight(j)
		}
	}
	return NewBSplineSurface(2, profile.Degree, arc.Knots, profile.Knots, ctrl, weights)
}
