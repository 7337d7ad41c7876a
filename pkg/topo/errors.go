package topo

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEndpointMismatch     = errors.New("edge endpoints do not match curve")
	ErrOpenWire             = errors.New("wire is not closed")
	ErrSelfIntersectingWire = errors.New("wire intersects itself")
	ErrDegenerateWire       = errors.New("wire encloses no area")
	ErrWireOutsideDomain    = errors.New("wire leaves the surface domain")
	ErrWireOrientation      = errors.New("wire orientation does not match face")
	ErrHoleCollision        = errors.New("hole touches the outer boundary or another hole")
	ErrNonManifold          = errors.New("edge is not shared by exactly two faces")
	ErrDisconnected         = errors.New("faces do not form a connected shell")
	ErrNotClosed            = errors.New("shell has boundary edges")
	ErrEmptyShell           = errors.New("shell has no faces")
	ErrUnknownEntity        = errors.New("unknown entity")
)

// Kind names an entity type in errors and findings.
type Kind string

const (
	KindVertex Kind = "vertex"
	KindEdge   Kind = "edge"
	KindWire   Kind = "wire"
	KindFace   Kind = "face"
	KindShell  Kind = "shell"
)

// EntityError reports a failed construction and the entities involved.
type EntityError struct {
	Op   string
	Kind Kind
	IDs  []int
	Err  error
}

func (e *EntityError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("topo: %s: %s %s: %v", e.Op, e.Kind, strings.Join(ids, ","), e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }

func entityErr[T ~int](op string, kind Kind, err error, ids ...T) error {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return &EntityError{Op: op, Kind: kind, IDs: out, Err: err}
}
