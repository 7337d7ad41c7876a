package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// NodeID is a stable identifier derived from the path of the expression
// that created a node. The same source yields the same IDs.
type NodeID string

// ZeroID is the absent node.
const ZeroID NodeID = ""

// NewNodeID hashes a creation path such as "defpart/bracket".
func NewNodeID(path string) NodeID {
	sum := sha256.Sum256([]byte(path))
	return NodeID(hex.EncodeToString(sum[:]))
}

// IsZero reports whether the ID is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

// Short returns the first six bytes in hex, for messages.
func (id NodeID) Short() string {
	if len(id) <= 12 {
		return string(id)
	}
	return string(id[:12])
}

// ContentHash is a hash of a node's data, used to spot unchanged subtrees
// between evaluations.
type ContentHash string

// SourceRef locates the expression that produced a node.
type SourceRef struct {
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
	Expr string `json:"expr,omitempty"`
}

// Vec3 is a point, offset or set of Euler angles in model units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Scale returns v * k.
func (v Vec3) Scale(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }

func (v Vec3) String() string { return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z) }

// IsZero reports whether every component is zero.
func (v Vec3) IsZero() bool { return v == Vec3{} }
