// Package tessellate turns the faces of a solid into triangles. Edge
// polylines are computed once and shared by the two faces on each edge, so
// the mesh of a closed solid is closed.
package tessellate

import (
	"runtime"

	"go.uber.org/zap"
)

// Options controls mesh density.
type Options struct {
	// Flatness bounds the distance between the mesh and the surface.
	Flatness float64
	// MaxDepth bounds the subdivision of a face's parameter rectangle.
	MaxDepth int
	// Parallelism is the number of faces meshed at once; zero means
	// GOMAXPROCS.
	Parallelism int
	Logger      *zap.Logger
}

// DefaultOptions returns the default mesh density.
func DefaultOptions() Options {
	return Options{Flatness: 0.01, MaxDepth: 8}
}

func (o Options) normalized() Options {
	if o.Flatness <= 0 {
		o.Flatness = 0.01
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = 8
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
