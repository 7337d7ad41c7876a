package planar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/kerf/pkg/geom"
)

func square(x0, y0, x1, y1 float64) []Point {
	return []Point{geom.Param(x0, y0), geom.Param(x1, y0), geom.Param(x1, y1), geom.Param(x0, y1)}
}

func reversed(p []Point) []Point {
	out := make([]Point, len(p))
	for i := range p {
		out[i] = p[len(p)-1-i]
	}
	return out
}

func triArea(pts []Point, tris [][3]int) float64 {
	a := 0.0
	for _, t := range tris {
		a += 0.5 * Orient(pts[t[0]], pts[t[1]], pts[t[2]])
	}
	return a
}

func TestSignedArea(t *testing.T) {
	sq := square(0, 0, 2, 1)
	assert.InDelta(t, 2.0, SignedArea(sq), 1e-12)
	assert.InDelta(t, -2.0, SignedArea(reversed(sq)), 1e-12)
}

func TestLocate(t *testing.T) {
	sq := square(0, 0, 1, 1)
	assert.Equal(t, Inside, Locate(sq, geom.Param(0.5, 0.5), 1e-9))
	assert.Equal(t, Boundary, Locate(sq, geom.Param(1, 0.5), 1e-9))
	assert.Equal(t, Outside, Locate(sq, geom.Param(1.5, 0.5), 1e-9))
	// Clockwise loops classify the same way.
	assert.Equal(t, Inside, Locate(reversed(sq), geom.Param(0.5, 0.5), 1e-9))

	hole := square(0.25, 0.25, 0.75, 0.75)
	assert.Equal(t, Outside, LocateRegion(sq, [][]Point{hole}, geom.Param(0.5, 0.5), 1e-9))
	assert.Equal(t, Inside, LocateRegion(sq, [][]Point{hole}, geom.Param(0.1, 0.5), 1e-9))
	assert.Equal(t, Boundary, LocateRegion(sq, [][]Point{hole}, geom.Param(0.25, 0.5), 1e-9))
}

func TestSegmentIntersection(t *testing.T) {
	x, ok := SegmentIntersection(geom.Param(0, 0), geom.Param(2, 0), geom.Param(1, -1), geom.Param(1, 1), 1e-9)
	require.True(t, ok)
	assert.InDelta(t, 0.5, x.S, 1e-12)
	assert.InDelta(t, 0.5, x.T, 1e-12)

	_, ok = SegmentIntersection(geom.Param(0, 0), geom.Param(1, 0), geom.Param(0, 1), geom.Param(1, 1), 1e-9)
	assert.False(t, ok)

	x, ok = SegmentIntersection(geom.Param(0, 0), geom.Param(2, 0), geom.Param(1, 0), geom.Param(3, 0), 1e-9)
	require.True(t, ok)
	assert.InDelta(t, 0.5, x.S, 1e-12)
}

func TestTriangulateConvexAndConcave(t *testing.T) {
	l := []Point{
		geom.Param(0, 0), geom.Param(2, 0), geom.Param(2, 1),
		geom.Param(1, 1), geom.Param(1, 2), geom.Param(0, 2),
	}
	for _, poly := range [][]Point{square(0, 0, 1, 1), l, reversed(l)} {
		pts, tris, err := Triangulate(poly, nil)
		require.NoError(t, err)
		assert.Len(t, tris, len(poly)-2)
		assert.InDelta(t, math.Abs(SignedArea(poly)), triArea(pts, tris), 1e-12)
		for _, tr := range tris {
			assert.Greater(t, Orient(pts[tr[0]], pts[tr[1]], pts[tr[2]]), 0.0)
		}
	}
}

func TestTriangulateCollinearSamples(t *testing.T) {
	var poly []Point
	for i := 0; i < 4; i++ {
		poly = append(poly, geom.Param(float64(i)/4, 0))
	}
	for i := 0; i < 4; i++ {
		poly = append(poly, geom.Param(1, float64(i)/4))
	}
	for i := 0; i < 4; i++ {
		poly = append(poly, geom.Param(1-float64(i)/4, 1))
	}
	for i := 0; i < 4; i++ {
		poly = append(poly, geom.Param(0, 1-float64(i)/4))
	}
	pts, tris, err := Triangulate(poly, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, triArea(pts, tris), 1e-12)
}

func TestTriangulateKeepsFlatVertex(t *testing.T) {
	// A half disk whose centre sits on the diameter. Clipping from the
	// first corner fans across the diameter and leaves the centre out.
	poly := []Point{geom.Param(1, 0), geom.Param(0, 0), geom.Param(math.Cos(math.Pi), math.Sin(math.Pi))}
	for k := 3; k >= 1; k-- {
		a := math.Pi * float64(k) / 4
		poly = append(poly, geom.Param(math.Cos(a), math.Sin(a)))
	}
	for _, loop := range [][]Point{poly, reversed(poly)} {
		pts, tris, err := Triangulate(loop, nil)
		require.NoError(t, err)
		used := map[int]int{}
		for _, tr := range tris {
			assert.Positive(t, Orient(pts[tr[0]], pts[tr[1]], pts[tr[2]]))
			for k := range 3 {
				used[tr[k]]++
			}
		}
		for i := range pts {
			assert.Positive(t, used[i], "vertex %d is not in the triangulation", i)
		}
		assert.InDelta(t, math.Abs(SignedArea(loop)), triArea(pts, tris), 1e-12)
	}
}

func TestTriangulateWithHoles(t *testing.T) {
	outer := square(0, 0, 4, 4)
	holes := [][]Point{square(0.5, 0.5, 1.5, 1.5), reversed(square(2.5, 2.5, 3.5, 3.5))}
	pts, tris, err := Triangulate(outer, holes)
	require.NoError(t, err)
	assert.Len(t, pts, 12)
	assert.InDelta(t, 14.0, triArea(pts, tris), 1e-9)
	for _, tr := range tris {
		c := geom.Param((pts[tr[0]].X+pts[tr[1]].X+pts[tr[2]].X)/3, (pts[tr[0]].Y+pts[tr[1]].Y+pts[tr[2]].Y)/3)
		assert.Equal(t, Inside, LocateRegion(outer, holes, c, 1e-12))
	}
}

func TestInteriorPoint(t *testing.T) {
	outer := square(0, 0, 3, 3)
	hole := square(1, 1, 2, 2)
	p, err := InteriorPoint(outer, [][]Point{hole})
	require.NoError(t, err)
	assert.Equal(t, Inside, LocateRegion(outer, [][]Point{hole}, p, 1e-9))

	_, err = InteriorPoint([]Point{geom.Param(0, 0), geom.Param(1, 0), geom.Param(2, 0)}, nil)
	assert.Error(t, err)
}

func TestMeshInsertKeepsAreaAndDelaunay(t *testing.T) {
	outer := square(0, 0, 1, 1)
	pts, tris, err := Triangulate(outer, nil)
	require.NoError(t, err)
	m := NewMesh(pts, tris)

	assert.True(t, m.Insert(geom.Param(0.5, 0.5)))
	assert.False(t, m.Insert(geom.Param(0.5, 0.5)), "duplicate vertex")
	assert.False(t, m.Insert(geom.Param(0.5, 0)), "constrained edge")
	assert.False(t, m.Insert(geom.Param(2, 2)), "outside")
	for _, p := range []Point{geom.Param(0.25, 0.25), geom.Param(0.75, 0.25), geom.Param(0.25, 0.75), geom.Param(0.75, 0.75)} {
		assert.True(t, m.Insert(p))
	}
	assert.InDelta(t, 1.0, triArea(m.Points, m.Tris), 1e-12)
	assert.Len(t, m.Tris, 2+2*5)
	assert.Greater(t, m.MinAngle(), math.Pi/20)
}

func TestMeshLegalizeFlipsLongDiagonal(t *testing.T) {
	pts := []Point{geom.Param(0, 0), geom.Param(1, -0.1), geom.Param(2, 0), geom.Param(1, 0.1)}
	m := NewMesh(pts, [][3]int{{0, 1, 2}, {0, 2, 3}})
	m.Legalize()
	assert.InDelta(t, 0.2, triArea(m.Points, m.Tris), 1e-12)
	e := map[[2]int]bool{}
	for _, tr := range m.Tris {
		for k := 0; k < 3; k++ {
			e[undirected(tr[k], tr[(k+1)%3])] = true
		}
	}
	assert.True(t, e[[2]int{1, 3}])
	assert.False(t, e[[2]int{0, 2}])
}
