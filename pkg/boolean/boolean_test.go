package boolean_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chazu/kerf/pkg/boolean"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/modeling"
	"github.com/chazu/kerf/pkg/tessellate"
	"github.com/chazu/kerf/pkg/topo"
)

var tol = geom.DefaultTolerance()

func cube(t *testing.T, size float64, at geom.Point) *topo.Solid {
	t.Helper()
	s, err := modeling.Box(tol, size, size, size)
	require.NoError(t, err)
	return modeling.Translate(s, at)
}

func volume(t *testing.T, s *topo.Solid) float64 {
	t.Helper()
	if s.Empty() {
		return 0
	}
	m, err := tessellate.Solid(s, tessellate.Options{Flatness: 0.002})
	require.NoError(t, err)
	require.Empty(t, m.BoundaryEdges(), "mesh is not closed")
	return m.Volume()
}

func requireManifold(t *testing.T, s *topo.Solid) {
	t.Helper()
	require.Empty(t, topo.Errors(topo.Validate(s)))
}

func opts(t *testing.T) boolean.Options {
	return boolean.Options{Logger: zaptest.NewLogger(t)}
}

func TestOverlappingCubes(t *testing.T) {
	a := cube(t, 1, geom.Vec(0, 0, 0))
	b := cube(t, 1, geom.Vec(0.5, 0.5, 0.5))

	tests := []struct {
		name   string
		op     boolean.Op
		a, b   *topo.Solid
		faces  int
		volume float64
	}{
		{"union", boolean.OpUnion, a, b, 12, 1.875},
		{"intersection", boolean.OpIntersection, a, b, 6, 0.125},
		{"a minus b", boolean.OpDifference, a, b, 9, 0.875},
		{"b minus a", boolean.OpDifference, b, a, 9, 0.875},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := boolean.Apply(tt.op, tt.a, tt.b, opts(t))
			require.NoError(t, err)
			requireManifold(t, r.Solid)
			assert.False(t, r.Stats.ShortCircuit)
			assert.Positive(t, r.Stats.PairsIntersected)
			assert.Equal(t, tt.faces, r.Solid.Counts().Faces)
			assert.Equal(t, 1, r.Solid.Counts().Shells)
			assert.InDelta(t, tt.volume, volume(t, r.Solid), 1e-9)
			for sh := range r.Solid.Shells() {
				assert.Equal(t, 2, r.Solid.ShellEuler(sh).Characteristic())
			}
		})
	}
}

func TestUnionAndIntersectionAreSymmetric(t *testing.T) {
	a := cube(t, 1, geom.Vec(0, 0, 0))
	b := cube(t, 1, geom.Vec(0.5, 0.5, 0.5))

	for _, op := range []boolean.Op{boolean.OpUnion, boolean.OpIntersection} {
		t.Run(op.String(), func(t *testing.T) {
			ab, err := boolean.Apply(op, a, b, opts(t))
			require.NoError(t, err)
			ba, err := boolean.Apply(op, b, a, opts(t))
			require.NoError(t, err)
			assert.Equal(t, ab.Solid.Counts(), ba.Solid.Counts())
			assert.InDelta(t, volume(t, ab.Solid), volume(t, ba.Solid), 1e-9)
			sameBounds(t, ab.Solid.Bounds(), ba.Solid.Bounds())
		})
	}
}

func TestUnionWithItself(t *testing.T) {
	a := cube(t, 1, geom.Vec(0, 0, 0))

	r, err := boolean.Union(a, a, opts(t))
	require.NoError(t, err)
	requireManifold(t, r.Solid)
	assert.Equal(t, a.Counts(), r.Solid.Counts())
	assert.InDelta(t, 1.0, volume(t, r.Solid), 1e-9)

	r, err = boolean.Intersect(a, a, opts(t))
	require.NoError(t, err)
	assert.Equal(t, a.Counts(), r.Solid.Counts())
	assert.InDelta(t, 1.0, volume(t, r.Solid), 1e-9)

	r, err = boolean.Subtract(a, a, opts(t))
	require.NoError(t, err)
	assert.True(t, r.Solid.Empty())
}

func TestDisjointOperandsShortCircuit(t *testing.T) {
	a := cube(t, 1, geom.Vec(0, 0, 0))
	b := cube(t, 1, geom.Vec(3, 0, 0))

	core, logs := observer.New(zapcore.InfoLevel)
	o := boolean.Options{Logger: zap.New(core)}

	u, err := boolean.Union(a, b, o)
	require.NoError(t, err)
	assert.True(t, u.Stats.ShortCircuit)
	assert.Zero(t, u.Stats.PairsTested)
	assert.Zero(t, u.Stats.PairsIntersected)
	assert.Equal(t, topo.Counts{Vertices: 16, Edges: 24, Wires: 12, Faces: 12, Shells: 2}, u.Solid.Counts())
	assert.InDelta(t, 2.0, volume(t, u.Solid), 1e-9)

	i, err := boolean.Intersect(a, b, o)
	require.NoError(t, err)
	assert.True(t, i.Stats.ShortCircuit)
	assert.True(t, i.Solid.Empty())

	d, err := boolean.Subtract(a, b, o)
	require.NoError(t, err)
	assert.True(t, d.Stats.ShortCircuit)
	assert.Equal(t, a.Counts(), d.Solid.Counts())
	assert.Equal(t, a.Bounds(), d.Solid.Bounds())

	assert.Equal(t, 3, logs.FilterMessage("disjoint operands, skipping intersection").Len())
}

func TestEmptyOperand(t *testing.T) {
	a := cube(t, 1, geom.Vec(0, 0, 0))
	empty := topo.EmptySolid(tol)

	u, err := boolean.Union(a, empty, opts(t))
	require.NoError(t, err)
	assert.True(t, u.Stats.ShortCircuit)
	assert.Equal(t, a.Counts(), u.Solid.Counts())

	d, err := boolean.Subtract(empty, a, opts(t))
	require.NoError(t, err)
	assert.True(t, d.Solid.Empty())
}

func TestOperandsAreNotModified(t *testing.T) {
	a := cube(t, 1, geom.Vec(0, 0, 0))
	b := cube(t, 1, geom.Vec(0.5, 0.5, 0.5))
	countsA, countsB := a.Counts(), b.Counts()
	boundsA, boundsB := a.Bounds(), b.Bounds()

	for _, op := range []boolean.Op{boolean.OpUnion, boolean.OpIntersection, boolean.OpDifference} {
		_, err := boolean.Apply(op, a, b, opts(t))
		require.NoError(t, err)
	}

	assert.Equal(t, countsA, a.Counts())
	assert.Equal(t, countsB, b.Counts())
	assert.Equal(t, boundsA, a.Bounds())
	assert.Equal(t, boundsB, b.Bounds())
	requireManifold(t, a)
	requireManifold(t, b)
	assert.InDelta(t, 1.0, volume(t, a), 1e-9)
}

func TestFaceTouchingCubes(t *testing.T) {
	a := cube(t, 1, geom.Vec(0, 0, 0))
	b := cube(t, 1, geom.Vec(1, 0, 0))

	u, err := boolean.Union(a, b, opts(t))
	require.NoError(t, err)
	requireManifold(t, u.Solid)
	assert.False(t, u.Stats.ShortCircuit)
	assert.Equal(t, 10, u.Solid.Counts().Faces)
	assert.Equal(t, 1, u.Solid.Counts().Shells)
	assert.InDelta(t, 2.0, volume(t, u.Solid), 1e-9)

	i, err := boolean.Intersect(a, b, opts(t))
	require.NoError(t, err)
	assert.True(t, i.Solid.Empty())

	d, err := boolean.Subtract(a, b, opts(t))
	require.NoError(t, err)
	requireManifold(t, d.Solid)
	assert.InDelta(t, 1.0, volume(t, d.Solid), 1e-9)
}

func TestContainedOperand(t *testing.T) {
	outer := cube(t, 4, geom.Vec(0, 0, 0))
	inner := cube(t, 1, geom.Vec(1.5, 1.5, 1.5))

	u, err := boolean.Union(outer, inner, opts(t))
	require.NoError(t, err)
	assert.Equal(t, outer.Counts(), u.Solid.Counts())
	assert.InDelta(t, 64.0, volume(t, u.Solid), 1e-9)

	i, err := boolean.Intersect(outer, inner, opts(t))
	require.NoError(t, err)
	assert.Equal(t, inner.Counts(), i.Solid.Counts())
	sameBounds(t, inner.Bounds(), i.Solid.Bounds())

	d, err := boolean.Subtract(outer, inner, opts(t))
	require.NoError(t, err)
	requireManifold(t, d.Solid)
	assert.Equal(t, 12, d.Solid.Counts().Faces)
	assert.Equal(t, 2, d.Solid.Counts().Shells)
	assert.InDelta(t, 63.0, volume(t, d.Solid), 1e-9)
}

func TestBoxMinusCylinder(t *testing.T) {
	box, err := modeling.Box(tol, 2, 2, 1)
	require.NoError(t, err)
	cyl, err := modeling.Cylinder(tol, 0.5, 3)
	require.NoError(t, err)
	cyl = modeling.Translate(cyl, geom.Vec(1, 1, -1))

	d, err := boolean.Subtract(box, cyl, opts(t))
	require.NoError(t, err)
	requireManifold(t, d.Solid)
	for sh := range d.Solid.Shells() {
		assert.Equal(t, 0, d.Solid.ShellEuler(sh).Characteristic(), "a through hole has genus one")
	}
	want := 4 - math.Pi*0.25
	assert.InDelta(t, want, volume(t, d.Solid), want*0.01)

	i, err := boolean.Intersect(box, cyl, opts(t))
	require.NoError(t, err)
	requireManifold(t, i.Solid)
	assert.InDelta(t, math.Pi*0.25, volume(t, i.Solid), 0.01)
}

func TestCoplanarOverlap(t *testing.T) {
	a := cube(t, 1, geom.Vec(0, 0, 0))

	tests := []struct {
		name    string
		b       *topo.Solid
		overlap float64
	}{
		{"half along x", cube(t, 1, geom.Vec(0.5, 0, 0)), 0.5},
		{"quarter in xy", cube(t, 1, geom.Vec(0.5, 0.5, 0)), 0.25},
		{"uneven in xy", cube(t, 1, geom.Vec(0.5, 0.2, 0)), 0.4},
		{"rotated about z", modeling.Rotate(a, 0, 0, 45), math.Sqrt2 - 1},
	}
	for _, tt := range tests {
		want := map[boolean.Op]float64{
			boolean.OpUnion:        2 - tt.overlap,
			boolean.OpIntersection: tt.overlap,
			boolean.OpDifference:   1 - tt.overlap,
		}
		for _, op := range []boolean.Op{boolean.OpUnion, boolean.OpIntersection, boolean.OpDifference} {
			t.Run(tt.name+"/"+op.String(), func(t *testing.T) {
				r, err := boolean.Apply(op, a, tt.b, opts(t))
				require.NoError(t, err)
				requireManifold(t, r.Solid)
				assert.Equal(t, 1, r.Solid.Counts().Shells)
				for sh := range r.Solid.Shells() {
					assert.Equal(t, 2, r.Solid.ShellEuler(sh).Characteristic())
				}
				assert.InDelta(t, want[op], volume(t, r.Solid), 1e-9)

				if op == boolean.OpDifference {
					return
				}
				ba, err := boolean.Apply(op, tt.b, a, opts(t))
				require.NoError(t, err)
				requireManifold(t, ba.Solid)
				assert.InDelta(t, want[op], volume(t, ba.Solid), 1e-9)
				sameBounds(t, r.Solid.Bounds(), ba.Solid.Bounds())
			})
		}
	}
}

func TestRotatedOperand(t *testing.T) {
	a := cube(t, 1, geom.Vec(0, 0, 0))
	b := modeling.Translate(modeling.Rotate(cube(t, 1, geom.Vec(-0.5, -0.5, -0.5)), 0, 0, 30), geom.Vec(1, 1, 1))

	r, err := boolean.Union(a, b, opts(t))
	require.NoError(t, err)
	requireManifold(t, r.Solid)
	assert.Equal(t, 1, r.Solid.Counts().Shells)
	u := volume(t, r.Solid)

	i, err := boolean.Intersect(a, b, opts(t))
	require.NoError(t, err)
	requireManifold(t, i.Solid)
	n := volume(t, i.Solid)
	assert.Positive(t, n)

	d, err := boolean.Subtract(a, b, opts(t))
	require.NoError(t, err)
	requireManifold(t, d.Solid)

	// Inclusion-exclusion ties the three results together.
	assert.InDelta(t, 2, u+n, 1e-9)
	assert.InDelta(t, 1, volume(t, d.Solid)+n, 1e-9)
}

func TestCurvedOperands(t *testing.T) {
	box, err := modeling.Box(tol, 2, 2, 1)
	require.NoError(t, err)
	cyl, err := modeling.Cylinder(tol, 0.5, 3)
	require.NoError(t, err)
	cyl = modeling.Translate(cyl, geom.Vec(1, 1, -1))
	sphere, err := modeling.Sphere(tol, geom.Vec(1, 1, 1), 0.7)
	require.NoError(t, err)
	disk := math.Pi * 0.25
	half := 2.0 / 3 * math.Pi * 0.7 * 0.7 * 0.7

	tests := []struct {
		name   string
		op     boolean.Op
		b      *topo.Solid
		volume float64
		euler  int
	}{
		{"box union cylinder", boolean.OpUnion, cyl, 4 + 2*disk, 2},
		{"box intersection cylinder", boolean.OpIntersection, cyl, disk, 2},
		{"box minus cylinder", boolean.OpDifference, cyl, 4 - disk, 0},
		{"box union sphere", boolean.OpUnion, sphere, 4 + half, 2},
		{"box intersection sphere", boolean.OpIntersection, sphere, half, 2},
		{"box minus sphere", boolean.OpDifference, sphere, 4 - half, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := boolean.Apply(tt.op, box, tt.b, opts(t))
			require.NoError(t, err)
			requireManifold(t, r.Solid)
			assert.Equal(t, 1, r.Solid.Counts().Shells)
			for sh := range r.Solid.Shells() {
				assert.Equal(t, tt.euler, r.Solid.ShellEuler(sh).Characteristic())
			}
			assert.InEpsilon(t, tt.volume, volume(t, r.Solid), 0.01)

			if tt.op == boolean.OpDifference {
				return
			}
			ba, err := boolean.Apply(tt.op, tt.b, box, opts(t))
			require.NoError(t, err)
			requireManifold(t, ba.Solid)
			assert.InEpsilon(t, tt.volume, volume(t, ba.Solid), 0.01)
		})
	}
}

func TestNilOperand(t *testing.T) {
	a := cube(t, 1, geom.Vec(0, 0, 0))
	_, err := boolean.Union(a, nil, boolean.Options{})
	var be *boolean.Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, boolean.OpUnion, be.Op)
	assert.Equal(t, "input", be.Phase)
}

func sameBounds(t *testing.T, want, got geom.Box) {
	t.Helper()
	assert.InDelta(t, 0, geom.Dist(want.Min, got.Min), 1e-9)
	assert.InDelta(t, 0, geom.Dist(want.Max, got.Max), 1e-9)
}
