package geom

import "math"

// Tolerance is the numeric policy shared by every geometric and topological
// test. A single value is threaded through each call; nothing in the kernel
// reads a package-level tolerance.
type Tolerance struct {
	// Abs is the absolute distance below which two points coincide.
	Abs float64 `json:"absolute"`
	// Rel scales with coordinate magnitude for large models.
	Rel float64 `json:"relative"`
	// MaxIterations bounds every Newton-style refinement loop.
	MaxIterations int `json:"maxIterations"`
	// Retries is how many times refinement is re-attempted with a relaxed
	// tolerance before reporting non-convergence.
	Retries int `json:"retries"`
}

// DefaultTolerance is the tolerance used when none is configured.
func DefaultTolerance() Tolerance {
	return Tolerance{Abs: 1e-6, Rel: 1e-9, MaxIterations: 64, Retries: 2}
}

// Eps returns ε for quantities of the given magnitude.
func (t Tolerance) Eps(scale float64) float64 {
	return t.Abs + t.Rel*math.Abs(scale)
}

// EpsAt returns ε at a point.
func (t Tolerance) EpsAt(p Point) float64 {
	return t.Eps(Magnitude(p))
}

// Coincident reports whether two points are within ε of each other.
func (t Tolerance) Coincident(a, b Point) bool {
	return Dist(a, b) <= t.Eps(math.Max(Magnitude(a), Magnitude(b)))
}

// Relaxed returns the tolerance loosened by a factor of ten per attempt.
func (t Tolerance) Relaxed(attempt int) Tolerance {
	f := math.Pow(10, float64(attempt))
	r := t
	r.Abs *= f
	r.Rel *= f
	return r
}

func (t Tolerance) iterations() int {
	if t.MaxIterations <= 0 {
		return 64
	}
	return t.MaxIterations
}

// converge is the residual that Newton loops aim for, well below ε so that
// independently refined points agree to within ε.
func (t Tolerance) converge(scale float64) float64 {
	return 1e-3 * t.Eps(scale)
}
