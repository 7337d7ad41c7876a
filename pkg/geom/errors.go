package geom

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfDomain is returned when a parameter lies outside an entity's domain.
	ErrOutOfDomain = errors.New("parameter out of domain")
	// ErrNonConvergence is returned when refinement exhausts its iteration budget.
	ErrNonConvergence = errors.New("refinement did not converge")
	// ErrDegenerate is returned for coincident or overlapping geometry and
	// for invalid constructor input.
	ErrDegenerate = errors.New("degenerate geometry")
)

// DomainError reports a parameter outside an entity's domain.
type DomainError struct {
	Op     string
	Param  float64
	Domain Interval
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("geom: %s: parameter %g outside [%g, %g]", e.Op, e.Param, e.Domain.Min, e.Domain.Max)
}

func (e *DomainError) Unwrap() error { return ErrOutOfDomain }

// ConvergenceError reports a refinement loop that ran out of iterations.
type ConvergenceError struct {
	Op         string
	Iterations int
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("geom: %s: no convergence after %d iterations (residual %g)", e.Op, e.Iterations, e.Residual)
}

func (e *ConvergenceError) Unwrap() error { return ErrNonConvergence }

// DegenerateError reports coincident or overlapping geometry. For
// overlapping curves IntervalA and IntervalB give the shared parameter
// ranges on each operand.
type DegenerateError struct {
	Op        string
	Reason    string
	IntervalA Interval
	IntervalB Interval
}

func (e *DegenerateError) Error() string {
	if e.IntervalA != (Interval{}) || e.IntervalB != (Interval{}) {
		return fmt.Sprintf("geom: %s: %s over [%g, %g] / [%g, %g]", e.Op, e.Reason,
			e.IntervalA.Min, e.IntervalA.Max, e.IntervalB.Min, e.IntervalB.Max)
	}
	return fmt.Sprintf("geom: %s: %s", e.Op, e.Reason)
}

func (e *DegenerateError) Unwrap() error { return ErrDegenerate }

func degenerate(op, format string, args ...any) error {
	return &DegenerateError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// ErrInvalidKnots is returned when a B-spline's knot vector is inconsistent
// with its degree and control points.
var ErrInvalidKnots = errors.New("invalid knot vector")

// KnotError describes a rejected B-spline construction.
type KnotError struct {
	Direction string
	Reason    string
}

func (e *KnotError) Error() string {
	if e.Direction != "" {
		return fmt.Sprintf("geom: b-spline %s: %s", e.Direction, e.Reason)
	}
	return "geom: b-spline: " + e.Reason
}

func (e *KnotError) Unwrap() error { return ErrInvalidKnots }
