package exchange

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/tessellate"
	"github.com/chazu/kerf/pkg/topo"
)

// ExportMesh tessellates a solid into a mesh buffer.
func ExportMesh(s *topo.Solid, opts tessellate.Options) (*kernel.Mesh, error) {
	m, err := tessellate.Solid(s, opts)
	if err != nil {
		return nil, fmt.Errorf("exchange: export mesh: %w", err)
	}
	return m.Buffer(""), nil
}

// ExportFaceMesh tessellates one face into a mesh buffer.
func ExportFaceMesh(s *topo.Solid, f topo.FaceID, opts tessellate.Options) (*kernel.Mesh, error) {
	m, err := tessellate.Face(s, f, opts)
	if err != nil {
		return nil, fmt.Errorf("exchange: export face %d: %w", f, err)
	}
	return m.Buffer(fmt.Sprintf("face-%d", f)), nil
}

// WriteMeshJSON writes mesh buffers as a JSON array.
func WriteMeshJSON(w io.Writer, meshes ...*kernel.Mesh) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if meshes == nil {
		meshes = []*kernel.Mesh{}
	}
	return enc.Encode(meshes)
}

// Triangles converts mesh buffers to sdfx triangles.
func Triangles(meshes ...*kernel.Mesh) []*sdf.Triangle3 {
	var out []*sdf.Triangle3
	for _, m := range meshes {
		at := func(i uint32) v3.Vec {
			return v3.Vec{X: float64(m.Vertices[3*i]), Y: float64(m.Vertices[3*i+1]), Z: float64(m.Vertices[3*i+2])}
		}
		for t := 0; t+2 < len(m.Indices); t += 3 {
			out = append(out, &sdf.Triangle3{at(m.Indices[t]), at(m.Indices[t+1]), at(m.Indices[t+2])})
		}
	}
	return out
}

// WriteSTL saves mesh buffers as one binary STL file.
func WriteSTL(path string, meshes ...*kernel.Mesh) error {
	if err := render.SaveSTL(path, Triangles(meshes...)); err != nil {
		return fmt.Errorf("exchange: write stl %s: %w", path, err)
	}
	return nil
}
