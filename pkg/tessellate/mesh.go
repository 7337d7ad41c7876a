package tessellate

import (
	"cmp"
	"slices"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
)

// Mesh is an indexed triangle mesh. Triangles wind counter-clockwise seen
// from outside the solid.
type Mesh struct {
	Positions []geom.Point
	Normals   []geom.Vector
	Triangles [][3]uint32
}

// Append adds the triangles of o, with their own vertices.
func (m *Mesh) Append(o *Mesh) {
	off := uint32(len(m.Positions))
	m.Positions = append(m.Positions, o.Positions...)
	m.Normals = append(m.Normals, o.Normals...)
	for _, t := range o.Triangles {
		m.Triangles = append(m.Triangles, [3]uint32{t[0] + off, t[1] + off, t[2] + off})
	}
}

func (m *Mesh) corners(t [3]uint32) (a, b, c geom.Point) {
	return m.Positions[t[0]], m.Positions[t[1]], m.Positions[t[2]]
}

// Volume is the signed volume enclosed by the mesh, positive for outward
// winding. It is meaningful only for a closed mesh.
func (m *Mesh) Volume() float64 {
	v := 0.0
	for _, t := range m.Triangles {
		a, b, c := m.corners(t)
		v += a.Dot(b.Cross(c))
	}
	return v / 6
}

// Area is the total triangle area.
func (m *Mesh) Area() float64 {
	s := 0.0
	for _, t := range m.Triangles {
		a, b, c := m.corners(t)
		s += 0.5 * b.Sub(a).Cross(c.Sub(a)).Length()
	}
	return s
}

// BoundaryEdges returns the directed edges not matched by an opposite edge
// of another triangle, sorted. A closed, consistently wound mesh has none.
func (m *Mesh) BoundaryEdges() [][2]uint32 {
	count := map[[2]uint32]int{}
	for _, t := range m.Triangles {
		for k := 0; k < 3; k++ {
			count[[2]uint32{t[k], t[(k+1)%3]}]++
		}
	}
	var out [][2]uint32
	for e, n := range count {
		if back := count[[2]uint32{e[1], e[0]}]; n != 1 || back != 1 {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b [2]uint32) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})
	return out
}

// Bounds is the box around the mesh vertices.
func (m *Mesh) Bounds() geom.Box {
	return geom.BoxOf(m.Positions...)
}

// Buffer flattens the mesh into the renderer-facing buffer.
func (m *Mesh) Buffer(name string) *kernel.Mesh {
	out := &kernel.Mesh{
		Vertices: make([]float32, 0, 3*len(m.Positions)),
		Normals:  make([]float32, 0, 3*len(m.Normals)),
		Indices:  make([]uint32, 0, 3*len(m.Triangles)),
		PartName: name,
	}
	for _, p := range m.Positions {
		out.Vertices = append(out.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
	}
	for _, n := range m.Normals {
		out.Normals = append(out.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	}
	for _, t := range m.Triangles {
		out.Indices = append(out.Indices, t[0], t[1], t[2])
	}
	return out
}
