package brep_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/brep"
	"github.com/chazu/kerf/pkg/tessellate"
	"github.com/chazu/kerf/pkg/topo"
)

func newKernel(t *testing.T) *brep.Kernel {
	return brep.New(brep.Options{
		Tessellation: tessellate.Options{Flatness: 0.002},
		Logger:       zaptest.NewLogger(t),
	})
}

func volume(t *testing.T, s kernel.Solid) float64 {
	t.Helper()
	b, ok := s.(*brep.Solid)
	require.True(t, ok)
	m, err := tessellate.Solid(b.Topology(), tessellate.Options{Flatness: 0.002})
	require.NoError(t, err)
	return m.Volume()
}

func TestPrimitiveBounds(t *testing.T) {
	k := newKernel(t)

	box, err := k.Box(10, 20, 30)
	require.NoError(t, err)
	min, max := box.BoundingBox()
	assert.Equal(t, [3]float64{0, 0, 0}, min)
	assert.Equal(t, [3]float64{10, 20, 30}, max)

	cyl, err := k.Cylinder(2, 5)
	require.NoError(t, err)
	min, max = cyl.BoundingBox()
	// Curved faces are bounded conservatively.
	assert.LessOrEqual(t, min[0], -2.0)
	assert.Greater(t, min[0], -2.1)
	assert.LessOrEqual(t, min[2], 0.0)
	assert.GreaterOrEqual(t, max[1], 2.0)
	assert.GreaterOrEqual(t, max[2], 5.0)
	assert.Less(t, max[2], 5.1)

	_, err = k.Sphere(-1)
	assert.Error(t, err)
}

func TestBooleanThroughKernel(t *testing.T) {
	k := newKernel(t)
	a, err := k.Box(1, 1, 1)
	require.NoError(t, err)
	b, err := k.Box(1, 1, 1)
	require.NoError(t, err)
	b = k.Translate(b, 0.5, 0.5, 0.5)

	u, err := k.Union(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.875, volume(t, u), 1e-9)

	i, err := k.Intersection(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.125, volume(t, i), 1e-9)

	d, err := k.Difference(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.875, volume(t, d), 1e-9)
}

func TestSweeps(t *testing.T) {
	k := newKernel(t)

	prism, err := k.Extrude([][3]float64{{0, 0, 0}, {2, 0, 0}, {0, 2, 0}}, [3]float64{0, 0, 3})
	require.NoError(t, err)
	assert.InDelta(t, 6, volume(t, prism), 1e-9)

	washer, err := k.Revolve([][3]float64{{1, 0, 0}, {2, 0, 0}, {2, 0, 1}, {1, 0, 1}}, [3]float64{}, [3]float64{0, 0, 1}, 360)
	require.NoError(t, err)
	assert.InEpsilon(t, 3*math.Pi, volume(t, washer), 0.02)

	_, err = k.Extrude([][3]float64{{0, 0, 0}, {1, 0, 0}}, [3]float64{0, 0, 1})
	assert.Error(t, err)
}

func TestTransforms(t *testing.T) {
	k := newKernel(t)
	box, err := k.Box(1, 2, 3)
	require.NoError(t, err)

	moved := k.Translate(box, 5, 0, 0)
	min, _ := moved.BoundingBox()
	assert.InDelta(t, 5, min[0], 1e-9)

	turned := k.Rotate(box, 0, 0, 90)
	min, max := turned.BoundingBox()
	assert.InDelta(t, -2, min[0], 1e-6)
	assert.InDelta(t, 1, max[1], 1e-6)

	orig, _ := box.BoundingBox()
	assert.Equal(t, [3]float64{0, 0, 0}, orig)
}

func TestToMesh(t *testing.T) {
	k := newKernel(t)
	box, err := k.Box(2, 3, 4)
	require.NoError(t, err)

	m, err := k.ToMesh(box)
	require.NoError(t, err)
	assert.Equal(t, 8, m.VertexCount())
	assert.Equal(t, 12, m.TriangleCount())

	empty, err := k.ToMesh(brep.Wrap(topo.EmptySolid(k.Tolerance())))
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

type foreign struct{}

func (foreign) BoundingBox() (min, max [3]float64) { return min, max }

func TestForeignSolid(t *testing.T) {
	k := newKernel(t)
	box, err := k.Box(1, 1, 1)
	require.NoError(t, err)

	_, err = k.Union(box, foreign{})
	assert.True(t, errors.Is(err, kernel.ErrForeignSolid))
	_, err = k.ToMesh(foreign{})
	assert.ErrorIs(t, err, kernel.ErrForeignSolid)
	assert.Equal(t, foreign{}, k.Translate(foreign{}, 1, 0, 0))
}
