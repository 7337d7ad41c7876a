package tessellate

import (
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/topo"
)

// Face meshes a single face. Vertices on the face boundary are exactly the
// edge samples that Solid would produce for the same flatness.
func Face(s *topo.Solid, f topo.FaceID, opts Options) (*Mesh, error) {
	opts = opts.normalized()
	cache := &SampleCache{samples: make([][]topo.EdgeSample, s.Counts().Edges)}
	for u := range s.FaceEdges(f) {
		if cache.samples[u.Edge] == nil {
			cache.samples[u.Edge] = s.SampleEdge(u.Edge, opts.Flatness)
		}
	}
	fm, err := meshFace(s, f, cache, opts)
	if err != nil {
		return nil, err
	}
	return assemble([]*faceMesh{fm}), nil
}

// Solid meshes every face of s. Faces are meshed concurrently and stitched
// in face order, so the result does not depend on scheduling.
func Solid(s *topo.Solid, opts Options) (*Mesh, error) {
	opts = opts.normalized()
	if s.Empty() {
		return &Mesh{}, nil
	}
	cache := NewSampleCache(s, opts.Flatness)
	faces := slices.Collect(s.AllFaces())
	parts := make([]*faceMesh, len(faces))

	var g errgroup.Group
	g.SetLimit(opts.Parallelism)
	for i, f := range faces {
		g.Go(func() error {
			fm, err := meshFace(s, f, cache, opts)
			if err != nil {
				return err
			}
			parts[i] = fm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		opts.Logger.Warn("tessellation failed", zap.Error(err))
		return nil, err
	}
	m := assemble(parts)
	opts.Logger.Debug("tessellated solid",
		zap.Int("faces", len(faces)),
		zap.Int("vertices", len(m.Positions)),
		zap.Int("triangles", len(m.Triangles)))
	return m, nil
}

// Volume is the volume enclosed by the mesh of s.
func Volume(s *topo.Solid, opts Options) (float64, error) {
	m, err := Solid(s, opts)
	if err != nil {
		return 0, err
	}
	return m.Volume(), nil
}

// assemble merges face meshes on their shared vertex keys. Normals at
// shared vertices are averaged over the faces meeting there.
func assemble(parts []*faceMesh) *Mesh {
	m := &Mesh{}
	index := map[vertexKey]uint32{}
	for _, fm := range parts {
		local := make([]uint32, len(fm.keys))
		for i, k := range fm.keys {
			id, ok := index[k]
			if !ok {
				id = uint32(len(m.Positions))
				index[k] = id
				m.Positions = append(m.Positions, fm.positions[i])
				m.Normals = append(m.Normals, geom.Vector{})
			}
			m.Normals[id] = m.Normals[id].Add(fm.normals[i])
			local[i] = id
		}
		for _, t := range fm.tris {
			m.Triangles = append(m.Triangles, [3]uint32{local[t[0]], local[t[1]], local[t[2]]})
		}
	}
	for i, n := range m.Normals {
		m.Normals[i] = geom.Unit(n)
	}
	return m
}
