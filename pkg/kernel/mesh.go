package kernel

// Mesh is the flat triangle buffer a backend hands to exporters. Vertices
// and Normals hold x,y,z triples, one per vertex; Indices holds one
// vertex triple per triangle, counter-clockwise seen from outside.
type Mesh struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	// PartName is the design graph part the mesh was evaluated from.
	PartName string `json:"partName"`
}

func (m *Mesh) VertexCount() int   { return len(m.Vertices) / 3 }
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }
func (m *Mesh) IsEmpty() bool      { return len(m.Vertices) == 0 }

func (m *Mesh) vertex(i uint32) [3]float64 {
	v := m.Vertices[3*i : 3*i+3]
	return [3]float64{float64(v[0]), float64(v[1]), float64(v[2])}
}

// Bounds returns the corners of the box around all vertices; an empty
// mesh has zero bounds.
func (m *Mesh) Bounds() (min, max [3]float32) {
	for i := 0; i < m.VertexCount(); i++ {
		p := m.Vertices[3*i : 3*i+3]
		for k, v := range p {
			if i == 0 {
				min[k], max[k] = v, v
				continue
			}
			min[k] = minf(min[k], v)
			max[k] = maxf(max[k], v)
		}
	}
	return min, max
}

// Volume is the signed volume enclosed by the triangles, positive when
// they wind outward. Open meshes give a meaningless value.
func (m *Mesh) Volume() float64 {
	var six float64
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.vertex(m.Indices[t]), m.vertex(m.Indices[t+1]), m.vertex(m.Indices[t+2])
		six += a[0]*(b[1]*c[2]-b[2]*c[1]) -
			a[1]*(b[0]*c[2]-b[2]*c[0]) +
			a[2]*(b[0]*c[1]-b[1]*c[0])
	}
	return six / 6
}

func minf(a, b float32) float32 {
	if b < a {
		return b
	}
	return a
}

func maxf(a, b float32) float32 {
	if b > a {
		return b
	}
	return a
}
