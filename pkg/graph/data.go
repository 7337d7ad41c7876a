package graph

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// BoxData is an axis-aligned box with its minimum corner at the origin.
type BoxData struct {
	Size Vec3 `json:"size"`
}

func (BoxData) nodeData() {}

// CylinderData is a cylinder on the XY plane around +Z.
type CylinderData struct {
	Radius float64 `json:"radius"`
	Height float64 `json:"height"`
}

func (CylinderData) nodeData() {}

// SphereData is a sphere around Center.
type SphereData struct {
	Center Vec3    `json:"center"`
	Radius float64 `json:"radius"`
}

func (SphereData) nodeData() {}

// ExtrudeData sweeps a closed planar polygon along Direction.
type ExtrudeData struct {
	Profile   []Vec3 `json:"profile"`
	Direction Vec3   `json:"direction"`
}

func (ExtrudeData) nodeData() {}

// RevolveData turns a closed planar polygon about an axis by Angle degrees.
type RevolveData struct {
	Profile []Vec3  `json:"profile"`
	Origin  Vec3    `json:"origin"`
	Axis    Vec3    `json:"axis"`
	Angle   float64 `json:"angle"`
}

func (RevolveData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData represents a spatial transformation applied to a child node.
// Created by the (place ...) and (rotate ...) Lisp forms.
type TransformData struct {
	Translation *Vec3 `json:"translation,omitempty"`
	Rotation    *Vec3 `json:"rotation,omitempty"` // Euler angles in degrees
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------------

// BooleanOp enumerates the set operations.
type BooleanOp int

const (
	OpUnion BooleanOp = iota
	OpDifference
	OpIntersection
)

func (op BooleanOp) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpDifference:
		return "difference"
	case OpIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// BooleanData combines exactly two children; for a difference the second
// child is removed from the first.
type BooleanData struct {
	Op BooleanOp `json:"op"`
}

func (BooleanData) nodeData() {}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData represents a logical grouping. Children are evaluated into
// separate meshes, not combined.
type GroupData struct {
	Description string `json:"description,omitempty"`
}

func (GroupData) nodeData() {}
