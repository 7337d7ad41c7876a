package boolean

import (
	"errors"
	"fmt"

	"github.com/chazu/kerf/pkg/topo"
)

// ErrNonManifoldResult is returned when the trimmed faces cannot be sewn
// into a closed 2-manifold, as when two operands touch along an edge.
var ErrNonManifoldResult = errors.New("non-manifold result")

// errUnclassified is returned when no probe ray gives a clean crossing
// count for a fragment.
var errUnclassified = errors.New("fragment could not be classified")

// Error reports a failed Boolean and the operand faces involved. FaceA or
// FaceB is -1 when the failure is not tied to that operand.
type Error struct {
	Op    Op
	Phase string
	FaceA topo.FaceID
	FaceB topo.FaceID
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("boolean: %s: %s: faces %d/%d: %v", e.Op, e.Phase, e.FaceA, e.FaceB, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
