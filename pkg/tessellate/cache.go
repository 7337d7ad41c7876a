package tessellate

import (
	"github.com/chazu/kerf/pkg/topo"
)

// SampleCache holds one polyline per edge of a solid. It is filled before
// any face is meshed and only read afterwards, so faces on either side of
// an edge see identical points.
type SampleCache struct {
	samples [][]topo.EdgeSample
}

// NewSampleCache samples every edge of s at the given flatness.
func NewSampleCache(s *topo.Solid, flatness float64) *SampleCache {
	c := &SampleCache{samples: make([][]topo.EdgeSample, s.Counts().Edges)}
	for e := range s.AllEdges() {
		c.samples[e] = s.SampleEdge(e, flatness)
	}
	return c
}

// Samples returns the polyline of an edge from its start to its end.
func (c *SampleCache) Samples(e topo.EdgeID) []topo.EdgeSample {
	return c.samples[e]
}
