package modeling

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/topo"
)

// Box returns the box [0,sx]×[0,sy]×[0,sz], min corner at the origin so
// that placement translations move the corner.
func Box(tol geom.Tolerance, sx, sy, sz float64) (*topo.Solid, error) {
	if sx <= 0 || sy <= 0 || sz <= 0 {
		return nil, fmt.Errorf("modeling: box: dimensions must be positive, got %g x %g x %g", sx, sy, sz)
	}
	p, err := Rectangle(sx, sy)
	if err != nil {
		return nil, err
	}
	return Extrude(tol, p, geom.Vec(0, 0, sz))
}

// Cylinder returns a cylinder with its base centered on the origin and its
// axis along +Z. The side is two half-cylinder faces meeting along lines
// at +X and -X.
func Cylinder(tol geom.Tolerance, radius, height float64) (*topo.Solid, error) {
	if radius <= 0 || height <= 0 {
		return nil, fmt.Errorf("modeling: cylinder: radius and height must be positive, got %g, %g", radius, height)
	}
	p, err := Circle(geom.Vec(0, 0, 0), geom.Vec(0, 0, 1), radius)
	if err != nil {
		return nil, err
	}
	return Extrude(tol, p, geom.Vec(0, 0, height))
}

// Sphere returns a sphere of four faces: the upper and lower halves of the
// sphere, each split along the XZ plane. The equator carries two edges and
// four quarter meridians join it to the poles.
func Sphere(tol geom.Tolerance, center geom.Point, radius float64) (*topo.Solid, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("modeling: sphere: radius must be positive, got %g", radius)
	}
	x, y, z := geom.Vec(1, 0, 0), geom.Vec(0, 1, 0), geom.Vec(0, 0, 1)
	surf, err := geom.NewSphere(center, radius, z, x)
	if err != nil {
		return nil, err
	}
	b := topo.NewBuilder(tol)
	north := b.MakeVertex(center.Add(z.MulScalar(radius)))
	south := b.MakeVertex(center.Sub(z.MulScalar(radius)))
	q0 := b.MakeVertex(center.Add(x.MulScalar(radius)))
	qpi := b.MakeVertex(center.Sub(x.MulScalar(radius)))

	type arc struct {
		from, to  topo.VertexID
		normal, x geom.Vector
		iv        geom.Interval
	}
	quarter := geom.Interval{Min: 0, Max: math.Pi / 2}
	arcs := []arc{
		{q0, qpi, z, x, geom.Interval{Min: 0, Max: math.Pi}},           // equator, +Y half
		{qpi, q0, z, x, geom.Interval{Min: math.Pi, Max: 2 * math.Pi}}, // equator, -Y half
		{q0, north, y.MulScalar(-1), x, quarter},
		{qpi, north, y, x.MulScalar(-1), quarter},
		{q0, south, y, x, quarter},
		{qpi, south, y.MulScalar(-1), x.MulScalar(-1), quarter},
	}
	ids := make([]topo.EdgeID, len(arcs))
	for i, a := range arcs {
		c, err := geom.NewCircle(center, a.normal, a.x, radius)
		if err != nil {
			return nil, err
		}
		if ids[i], err = b.MakeEdge(a.from, a.to, c, a.iv); err != nil {
			return nil, fmt.Errorf("modeling: sphere: %w", err)
		}
	}
	e1, e2, n0, npi, s0, spi := ids[0], ids[1], ids[2], ids[3], ids[4], ids[5]
	loops := [][]topo.Use{
		{{Edge: e1}, {Edge: npi}, {Edge: n0, Reversed: true}},
		{{Edge: e2}, {Edge: n0}, {Edge: npi, Reversed: true}},
		{{Edge: s0}, {Edge: spi, Reversed: true}, {Edge: e1, Reversed: true}},
		{{Edge: spi}, {Edge: s0, Reversed: true}, {Edge: e2, Reversed: true}},
	}
	var faces []topo.FaceID
	for _, l := range loops {
		w, err := b.MakeWire(l)
		if err != nil {
			return nil, fmt.Errorf("modeling: sphere: %w", err)
		}
		f, err := b.MakeFace(w, nil, surf, false)
		if err != nil {
			return nil, fmt.Errorf("modeling: sphere: %w", err)
		}
		faces = append(faces, f)
	}
	return closeSolid(b, faces)
}

// Translate moves a solid by v.
func Translate(s *topo.Solid, v geom.Vector) *topo.Solid {
	return topo.Transform(s, sdf.Translate3d(v))
}

// Rotate turns a solid by Euler angles in degrees, applied about X, then
// Y, then Z.
func Rotate(s *topo.Solid, x, y, z float64) *topo.Solid {
	return topo.Transform(s, EulerRotation(x, y, z))
}

// EulerRotation is the matrix of Rotate.
func EulerRotation(x, y, z float64) geom.Matrix {
	const rad = math.Pi / 180
	return sdf.RotateZ(z * rad).Mul(sdf.RotateY(y * rad)).Mul(sdf.RotateX(x * rad))
}
