// Package boolean computes union, intersection and difference of closed
// solids. Faces are cut along their mutual intersection curves, each
// fragment is classified against the other operand, and the kept fragments
// are sewn into a new solid. Operands are only read.
package boolean

import (
	"errors"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/topo"
)

// Op selects the set operation.
type Op int

const (
	OpUnion Op = iota
	OpIntersection
	OpDifference
)

func (o Op) String() string {
	switch o {
	case OpUnion:
		return "union"
	case OpIntersection:
		return "intersection"
	case OpDifference:
		return "difference"
	default:
		return "unknown"
	}
}

// Options tunes a Boolean.
type Options struct {
	// Parallelism bounds the face pairs intersected and the fragments
	// classified at once; zero means GOMAXPROCS.
	Parallelism int
	Logger      *zap.Logger
}

func (o Options) normalized() Options {
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Stats counts the work done by a Boolean.
type Stats struct {
	PairsTested      int
	PairsIntersected int
	Fragments        int
	Kept             int
	ShortCircuit     bool
}

// Result is the solid produced by a Boolean.
type Result struct {
	Solid *topo.Solid
	Stats Stats
}

// Union returns a ∪ b.
func Union(a, b *topo.Solid, opts Options) (*Result, error) { return Apply(OpUnion, a, b, opts) }

// Intersect returns a ∩ b.
func Intersect(a, b *topo.Solid, opts Options) (*Result, error) {
	return Apply(OpIntersection, a, b, opts)
}

// Subtract returns a − b.
func Subtract(a, b *topo.Solid, opts Options) (*Result, error) {
	return Apply(OpDifference, a, b, opts)
}

// Apply runs op on a and b. The tolerance of a governs the computation.
func Apply(op Op, a, b *topo.Solid, opts Options) (*Result, error) {
	if a == nil || b == nil {
		return nil, &Error{Op: op, Phase: "input", FaceA: -1, FaceB: -1, Err: errors.New("nil operand")}
	}
	opts = opts.normalized()
	log := opts.Logger.With(zap.Stringer("op", op))
	tol := a.Tolerance()

	if r, ok := shortCircuit(op, a, b, tol); ok {
		log.Info("disjoint operands, skipping intersection",
			zap.Int("facesA", a.Counts().Faces), zap.Int("facesB", b.Counts().Faces))
		return r, nil
	}

	start := time.Now()
	p := newPlanner(op, a, b, tol, opts, log)
	s, err := p.run()
	if err != nil {
		log.Warn("boolean failed", zap.Error(err))
		return nil, err
	}
	log.Debug("boolean done",
		zap.Int("pairs", p.stats.PairsTested),
		zap.Int("intersected", p.stats.PairsIntersected),
		zap.Int("fragments", p.stats.Fragments),
		zap.Int("kept", p.stats.Kept),
		zap.Duration("elapsed", time.Since(start)))
	return &Result{Solid: s, Stats: p.stats}, nil
}

// shortCircuit answers the operation without intersecting anything when
// an operand is empty or the operand boxes do not meet.
func shortCircuit(op Op, a, b *topo.Solid, tol geom.Tolerance) (*Result, bool) {
	disjoint := a.Empty() || b.Empty()
	if !disjoint {
		ba, bb := a.Bounds(), b.Bounds()
		disjoint = !geom.Overlaps(ba, bb, tol.Eps(geom.Magnitude(ba.Max)))
	}
	if !disjoint {
		return nil, false
	}
	var s *topo.Solid
	switch op {
	case OpUnion:
		s = topo.Merge(tol, a, b)
	case OpIntersection:
		s = topo.EmptySolid(tol)
	default:
		s = topo.Copy(a)
	}
	return &Result{Solid: s, Stats: Stats{ShortCircuit: true}}, true
}
