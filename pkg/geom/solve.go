package geom

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var errSingular = errors.New("singular system")

// solve returns x with A x = b for a small dense row-major system.
func solve(n int, a, b []float64) ([]float64, error) {
	A := mat.NewDense(n, n, a)
	if mat.Cond(A, 1) > 1e14 {
		return nil, errSingular
	}
	var x mat.VecDense
	if err := x.SolveVec(A, mat.NewVecDense(n, b)); err != nil {
		return nil, errSingular
	}
	return x.RawVector().Data, nil
}

// retry runs f with the configured tolerance and then with progressively
// relaxed tolerances while it reports non-convergence.
func retry[T any](tol Tolerance, f func(Tolerance) (T, error)) (T, error) {
	v, err := f(tol)
	for attempt := 1; attempt <= tol.Retries && errors.Is(err, ErrNonConvergence); attempt++ {
		v, err = f(tol.Relaxed(attempt))
	}
	return v, err
}
