// Package kernel defines the abstract geometry kernel interface.
// Implementations (brep, sdfx) provide solid modeling and Boolean
// operations behind this interface, so the design graph evaluator can
// swap backends without changing the rest of the system.
package kernel

import "errors"

// ErrUnsupported reports an operation a backend cannot perform.
var ErrUnsupported = errors.New("kernel: unsupported operation")

// ErrForeignSolid reports a solid created by a different backend.
var ErrForeignSolid = errors.New("kernel: solid belongs to another kernel")

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface. Constructors and
// Boolean operations fail with an error rather than panicking; rigid
// transforms cannot fail.
type Kernel interface {
	// Primitives. Boxes have their minimum corner at the origin;
	// cylinders stand on the XY plane around +Z; spheres are centered.
	Box(x, y, z float64) (Solid, error)
	Cylinder(radius, height float64) (Solid, error)
	Sphere(radius float64) (Solid, error)

	// Sweeps of a closed planar polygon.
	Extrude(profile [][3]float64, dir [3]float64) (Solid, error)
	Revolve(profile [][3]float64, origin, axis [3]float64, degrees float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) (Solid, error)
	Difference(a, b Solid) (Solid, error)
	Intersection(a, b Solid) (Solid, error)

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
