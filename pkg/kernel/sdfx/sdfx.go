// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. It is an approximate
// backend used to cross-check the exact B-rep kernel.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 200

// planarEps bounds how far a profile may stray from its sketch plane.
const planarEps = 1e-9

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel. cells <= 0 selects DefaultMeshCells.
func New(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

func unwrap(s kernel.Solid) (sdf.SDF3, error) {
	v, ok := s.(*sdfxSolid)
	if !ok {
		return nil, kernel.ErrForeignSolid
	}
	return v.s, nil
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box with its minimum corner at the origin. sdf.Box3D
// centers the box, so it is shifted by half its dimensions.
func (k *SdfxKernel) Box(x, y, z float64) (kernel.Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box: %w", err)
	}
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return wrap(sdf.Transform3D(s, m)), nil
}

// Cylinder creates a Z-axis cylinder whose base disc sits on z=0.
func (k *SdfxKernel) Cylinder(radius, height float64) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder: %w", err)
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: height / 2}))), nil
}

// Sphere creates a sphere centered on the origin.
func (k *SdfxKernel) Sphere(radius float64) (kernel.Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx: sphere: %w", err)
	}
	return wrap(s), nil
}

// Extrude sweeps a profile lying in a plane z=c along +Z. Other sketch
// planes and oblique directions are not supported by this backend.
func (k *SdfxKernel) Extrude(profile [][3]float64, dir [3]float64) (kernel.Solid, error) {
	if len(profile) < 3 {
		return nil, fmt.Errorf("sdfx: extrude: profile needs at least 3 points, got %d", len(profile))
	}
	if math.Abs(dir[0]) > planarEps || math.Abs(dir[1]) > planarEps || dir[2] <= 0 {
		return nil, fmt.Errorf("sdfx: extrude along %v: %w", dir, kernel.ErrUnsupported)
	}
	base := profile[0][2]
	pts := make([]v2.Vec, len(profile))
	for i, p := range profile {
		if math.Abs(p[2]-base) > planarEps {
			return nil, fmt.Errorf("sdfx: extrude: profile not in an XY plane: %w", kernel.ErrUnsupported)
		}
		pts[i] = v2.Vec{X: p[0], Y: p[1]}
	}
	s2, err := sdf.Polygon2D(pts)
	if err != nil {
		return nil, fmt.Errorf("sdfx: extrude: %w", err)
	}
	s3 := sdf.Extrude3D(s2, dir[2])
	return wrap(sdf.Transform3D(s3, sdf.Translate3d(v3.Vec{Z: base + dir[2]/2}))), nil
}

// Revolve turns a profile in the XZ half-plane (x >= 0) about the Z axis
// through the origin.
func (k *SdfxKernel) Revolve(profile [][3]float64, origin, axis [3]float64, degrees float64) (kernel.Solid, error) {
	if len(profile) < 3 {
		return nil, fmt.Errorf("sdfx: revolve: profile needs at least 3 points, got %d", len(profile))
	}
	if origin[0] != 0 || origin[1] != 0 || math.Abs(axis[0]) > planarEps || math.Abs(axis[1]) > planarEps || axis[2] <= 0 {
		return nil, fmt.Errorf("sdfx: revolve about %v: %w", axis, kernel.ErrUnsupported)
	}
	pts := make([]v2.Vec, len(profile))
	for i, p := range profile {
		if math.Abs(p[1]) > planarEps || p[0] < 0 {
			return nil, fmt.Errorf("sdfx: revolve: profile not in the XZ half-plane: %w", kernel.ErrUnsupported)
		}
		pts[i] = v2.Vec{X: p[0], Y: p[2]}
	}
	s2, err := sdf.Polygon2D(pts)
	if err != nil {
		return nil, fmt.Errorf("sdfx: revolve: %w", err)
	}
	var s3 sdf.SDF3
	if degrees >= 360 {
		s3, err = sdf.Revolve3D(s2)
	} else {
		s3, err = sdf.RevolveTheta3D(s2, sdf.DtoR(degrees))
	}
	if err != nil {
		return nil, fmt.Errorf("sdfx: revolve: %w", err)
	}
	return wrap(s3), nil
}

func (k *SdfxKernel) combine(name string, a, b kernel.Solid, fn func(a, b sdf.SDF3) sdf.SDF3) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, fmt.Errorf("sdfx: %s: %w", name, err)
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, fmt.Errorf("sdfx: %s: %w", name, err)
	}
	return wrap(fn(sa, sb)), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	return k.combine("union", a, b, func(a, b sdf.SDF3) sdf.SDF3 { return sdf.Union3D(a, b) })
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	return k.combine("difference", a, b, sdf.Difference3D)
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) (kernel.Solid, error) {
	return k.combine("intersection", a, b, sdf.Intersect3D)
}

// Translate moves a solid by (x, y, z). Foreign solids are returned as is.
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	s3, err := unwrap(s)
	if err != nil {
		return s
	}
	return wrap(sdf.Transform3D(s3, sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	s3, err := unwrap(s)
	if err != nil {
		return s
	}
	m := sdf.RotateZ(sdf.DtoR(z)).Mul(sdf.RotateY(sdf.DtoR(y))).Mul(sdf.RotateX(sdf.DtoR(x)))
	return wrap(sdf.Transform3D(s3, m))
}

// ToMesh converts a solid to a triangle soup using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	s3, err := unwrap(s)
	if err != nil {
		return nil, fmt.Errorf("sdfx: mesh: %w", err)
	}

	triangles := render.ToTriangles(s3, render.NewMarchingCubesUniform(k.cells))

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, float32(n.X), float32(n.Y), float32(n.Z))
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
