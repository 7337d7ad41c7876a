// Package brep implements kernel.Kernel with exact boundary
// representation solids: primitives from modeling, set operations from
// boolean and meshes from tessellate.
package brep

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/chazu/kerf/pkg/boolean"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/modeling"
	"github.com/chazu/kerf/pkg/tessellate"
	"github.com/chazu/kerf/pkg/topo"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*Kernel)(nil)
var _ kernel.Solid = (*Solid)(nil)

// Solid wraps a topo.Solid.
type Solid struct {
	s *topo.Solid
}

// Wrap makes a kernel solid of s, as for a solid read from a document.
func Wrap(s *topo.Solid) *Solid { return &Solid{s: s} }

// Topology returns the wrapped boundary representation.
func (s *Solid) Topology() *topo.Solid { return s.s }

// BoundingBox returns the axis-aligned bounding box.
func (s *Solid) BoundingBox() (min, max [3]float64) {
	if s.s.Empty() {
		return min, max
	}
	bb := s.s.Bounds()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Options configures a Kernel. Zero values select the package defaults.
type Options struct {
	Tolerance    geom.Tolerance
	Tessellation tessellate.Options
	Boolean      boolean.Options
	Logger       *zap.Logger
}

// Kernel implements kernel.Kernel over exact B-rep solids.
type Kernel struct {
	tol  geom.Tolerance
	tess tessellate.Options
	ops  boolean.Options
	log  *zap.Logger
}

// New returns a Kernel. The logger, when set, is passed down to Boolean
// and tessellation calls that do not carry their own.
func New(opts Options) *Kernel {
	if opts.Tolerance == (geom.Tolerance{}) {
		opts.Tolerance = geom.DefaultTolerance()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Boolean.Logger == nil {
		opts.Boolean.Logger = opts.Logger
	}
	if opts.Tessellation.Logger == nil {
		opts.Tessellation.Logger = opts.Logger
	}
	return &Kernel{tol: opts.Tolerance, tess: opts.Tessellation, ops: opts.Boolean, log: opts.Logger}
}

// Tolerance is the tolerance every solid of this kernel is built with.
func (k *Kernel) Tolerance() geom.Tolerance { return k.tol }

func unwrap(s kernel.Solid) (*topo.Solid, error) {
	b, ok := s.(*Solid)
	if !ok || b == nil {
		return nil, fmt.Errorf("%w: %T", kernel.ErrForeignSolid, s)
	}
	return b.s, nil
}

func wrap(s *topo.Solid, err error) (kernel.Solid, error) {
	if err != nil {
		return nil, err
	}
	return &Solid{s: s}, nil
}

// Box creates a box with its minimum corner at the origin.
func (k *Kernel) Box(x, y, z float64) (kernel.Solid, error) {
	return wrap(modeling.Box(k.tol, x, y, z))
}

// Cylinder creates a cylinder standing on the XY plane around +Z.
func (k *Kernel) Cylinder(radius, height float64) (kernel.Solid, error) {
	return wrap(modeling.Cylinder(k.tol, radius, height))
}

// Sphere creates a sphere centered on the origin.
func (k *Kernel) Sphere(radius float64) (kernel.Solid, error) {
	return wrap(modeling.Sphere(k.tol, geom.Vec(0, 0, 0), radius))
}

func profile(pts [][3]float64) (modeling.Profile, error) {
	ps := make([]geom.Point, len(pts))
	for i, p := range pts {
		ps[i] = geom.Vec(p[0], p[1], p[2])
	}
	return modeling.Polygon(ps...)
}

// Extrude sweeps a closed polygon along dir.
func (k *Kernel) Extrude(pts [][3]float64, dir [3]float64) (kernel.Solid, error) {
	p, err := profile(pts)
	if err != nil {
		return nil, err
	}
	return wrap(modeling.Extrude(k.tol, p, geom.Vec(dir[0], dir[1], dir[2])))
}

// Revolve turns a closed polygon about the axis through origin.
func (k *Kernel) Revolve(pts [][3]float64, origin, axis [3]float64, degrees float64) (kernel.Solid, error) {
	p, err := profile(pts)
	if err != nil {
		return nil, err
	}
	return wrap(modeling.Revolve(k.tol, p,
		geom.Vec(origin[0], origin[1], origin[2]),
		geom.Vec(axis[0], axis[1], axis[2]),
		degrees*math.Pi/180))
}

func (k *Kernel) apply(op boolean.Op, a, b kernel.Solid) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, err
	}
	r, err := boolean.Apply(op, sa, sb, k.ops)
	if err != nil {
		return nil, err
	}
	return &Solid{s: r.Solid}, nil
}

// Union returns a ∪ b.
func (k *Kernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	return k.apply(boolean.OpUnion, a, b)
}

// Difference returns a − b.
func (k *Kernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	return k.apply(boolean.OpDifference, a, b)
}

// Intersection returns a ∩ b.
func (k *Kernel) Intersection(a, b kernel.Solid) (kernel.Solid, error) {
	return k.apply(boolean.OpIntersection, a, b)
}

// Translate moves a solid by (x, y, z). A foreign solid is returned as is.
func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	ts, err := unwrap(s)
	if err != nil {
		return s
	}
	return &Solid{s: modeling.Translate(ts, geom.Vec(x, y, z))}
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	ts, err := unwrap(s)
	if err != nil {
		return s
	}
	return &Solid{s: modeling.Rotate(ts, x, y, z)}
}

// ToMesh tessellates a solid.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ts, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	m, err := tessellate.Solid(ts, k.tess)
	if err != nil {
		return nil, err
	}
	return m.Buffer(""), nil
}
