package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/planar"
	"github.com/chazu/kerf/pkg/topo"
)

// vertexKey names a mesh vertex so the faces around an edge share it.
type vertexKey struct {
	kind uint8
	a, b int
}

const (
	keyVertex uint8 = iota
	keySample
	keyInterior
)

// faceMesh is the mesh of one face before vertices are merged.
type faceMesh struct {
	keys      []vertexKey
	positions []geom.Point
	normals   []geom.Vector
	tris      [][3]int
}

func loopKey(lp topo.LoopPoint) vertexKey {
	if lp.Vertex != topo.NoVertex {
		return vertexKey{kind: keyVertex, a: int(lp.Vertex)}
	}
	return vertexKey{kind: keySample, a: int(lp.Edge), b: lp.Sample}
}

// meshFace triangulates a face in scaled parameter space: boundary points
// come from the edge polylines, interior points from an adaptive subdivision
// of the face's parameter rectangle.
func meshFace(s *topo.Solid, f topo.FaceID, cache *SampleCache, opts Options) (*faceMesh, error) {
	d := s.FaceDomain(f, cache.Samples)
	surf := d.Surface
	su, sv := d.Scale()
	scale := func(uv geom.UV) planar.Point { return geom.Param(uv.X*su, uv.Y*sv) }
	unscale := func(p planar.Point) geom.UV { return geom.Param(p.X/su, p.Y/sv) }

	var boundary []topo.LoopPoint
	var outer []planar.Point
	var holes [][]planar.Point
	for i, l := range d.Loops {
		poly := make([]planar.Point, len(l.Points))
		for k, lp := range l.Points {
			poly[k] = scale(lp.UV)
		}
		boundary = append(boundary, l.Points...)
		if i == 0 {
			outer = poly
		} else {
			holes = append(holes, poly)
		}
	}
	pts, tris, err := planar.Triangulate(outer, holes)
	if err != nil {
		return nil, fmt.Errorf("tessellate: face %d: %w", f, err)
	}
	m := planar.NewMesh(pts, tris)
	for _, p := range interiorPoints(d, outer, holes, scale, opts) {
		m.Insert(p)
	}
	m.Legalize()

	sign := 1.0
	if d.Reversed {
		sign = -1
	}
	fm := &faceMesh{
		keys:      make([]vertexKey, len(m.Points)),
		positions: make([]geom.Point, len(m.Points)),
		normals:   make([]geom.Vector, len(m.Points)),
	}
	for i, p := range m.Points {
		var uv geom.UV
		if i < len(boundary) {
			lp := boundary[i]
			uv = lp.UV
			fm.keys[i] = loopKey(lp)
			fm.positions[i] = lp.P
		} else {
			uv = unscale(p)
			fm.keys[i] = vertexKey{kind: keyInterior, a: int(f), b: i}
			fm.positions[i] = surf.At(uv)
		}
		fm.normals[i] = geom.Normal(surf, uv).MulScalar(sign)
	}
	for _, t := range m.Tris {
		if fm.keys[t[0]] == fm.keys[t[1]] || fm.keys[t[1]] == fm.keys[t[2]] || fm.keys[t[2]] == fm.keys[t[0]] {
			continue
		}
		if d.Reversed {
			t[1], t[2] = t[2], t[1]
		}
		fm.tris = append(fm.tris, t)
	}
	if len(fm.tris) == 0 {
		return nil, fmt.Errorf("tessellate: face %d: %w", f, planar.ErrDegenerate)
	}
	return fm, nil
}

type cell struct {
	u, v  geom.Interval
	depth int
}

// interiorPoints subdivides the face rectangle until the surface is within
// flatness of each cell's bilinear patch, and returns the centres of the
// leaves that lie well inside the region.
func interiorPoints(d *topo.Domain, outer []planar.Point, holes [][]planar.Point, scale func(geom.UV) planar.Point, opts Options) []planar.Point {
	var out []planar.Point
	stack := []cell{{u: d.U, v: d.V}}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c.depth < opts.MaxDepth && !flat(d.Surface, c, opts.Flatness) {
			um, vm := c.u.Mid(), c.v.Mid()
			// Pushed in reverse so cells pop in a fixed order.
			stack = append(stack,
				cell{u: geom.Interval{Min: um, Max: c.u.Max}, v: geom.Interval{Min: vm, Max: c.v.Max}, depth: c.depth + 1},
				cell{u: geom.Interval{Min: c.u.Min, Max: um}, v: geom.Interval{Min: vm, Max: c.v.Max}, depth: c.depth + 1},
				cell{u: geom.Interval{Min: um, Max: c.u.Max}, v: geom.Interval{Min: c.v.Min, Max: vm}, depth: c.depth + 1},
				cell{u: geom.Interval{Min: c.u.Min, Max: um}, v: geom.Interval{Min: c.v.Min, Max: vm}, depth: c.depth + 1},
			)
			continue
		}
		if c.depth == 0 {
			continue
		}
		lo := scale(geom.Param(c.u.Min, c.v.Min))
		hi := scale(geom.Param(c.u.Max, c.v.Max))
		p := scale(geom.Param(c.u.Mid(), c.v.Mid()))
		margin := 0.3 * math.Min(hi.X-lo.X, hi.Y-lo.Y)
		if planar.LocateRegion(outer, holes, p, margin) == planar.Inside {
			out = append(out, p)
		}
	}
	return out
}

// flat reports whether the surface stays within tol of the bilinear patch
// through the cell corners, probed at the centre and edge midpoints.
func flat(s geom.Surface, c cell, tol float64) bool {
	p00 := s.At(geom.Param(c.u.Min, c.v.Min))
	p10 := s.At(geom.Param(c.u.Max, c.v.Min))
	p01 := s.At(geom.Param(c.u.Min, c.v.Max))
	p11 := s.At(geom.Param(c.u.Max, c.v.Max))
	for _, st := range [][2]float64{{0.5, 0.5}, {0.5, 0}, {0.5, 1}, {0, 0.5}, {1, 0.5}} {
		a := geom.Lerp(p00, p10, st[0])
		b := geom.Lerp(p01, p11, st[0])
		want := geom.Lerp(a, b, st[1])
		got := s.At(geom.Param(c.u.Lerp(st[0]), c.v.Lerp(st[1])))
		if geom.Dist(got, want) > tol {
			return false
		}
	}
	return true
}
