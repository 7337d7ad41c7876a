package graph

import "math"

// checkGeometry is the second validation tier: values that are structurally
// fine but describe no solid, plus placements that do nothing.
func checkGeometry(g *DesignGraph, ids []NodeID, f *findings) {
	for _, id := range ids {
		switch d := g.Nodes[id].Data.(type) {
		case BoxData:
			f.positive(id, "box dimension X", d.Size.X)
			f.positive(id, "box dimension Y", d.Size.Y)
			f.positive(id, "box dimension Z", d.Size.Z)
		case CylinderData:
			f.positive(id, "cylinder radius", d.Radius)
			f.positive(id, "cylinder height", d.Height)
		case SphereData:
			f.positive(id, "sphere radius", d.Radius)
		case ExtrudeData:
			f.positive(id, "extrusion length", length(d.Direction))
			checkProfile(id, d.Profile, f)
		case RevolveData:
			f.positive(id, "revolution axis length", length(d.Axis))
			if d.Angle <= 0 || d.Angle > 360 {
				f.errorf(id, "revolution angle is %.4f, must be in (0, 360]", d.Angle)
			}
			checkProfile(id, d.Profile, f)
		case TransformData:
			if isZero(d.Translation) && isZero(d.Rotation) {
				f.warnf(id, "transform has no translation or rotation")
			}
		}
	}
}

func (f *findings) positive(id NodeID, what string, v float64) {
	if v <= 0 {
		f.errorf(id, "%s is %.4f, must be positive", what, v)
	}
}

// checkProfile wants a polygon of at least three corners with no two
// neighbours equal.
func checkProfile(id NodeID, profile []Vec3, f *findings) {
	n := len(profile)
	if n < 3 {
		f.errorf(id, "profile has %d points, need at least 3", n)
		return
	}
	for i := range profile {
		if profile[i] == profile[(i+1)%n] {
			f.errorf(id, "profile points %d and %d coincide", i, (i+1)%n)
			return
		}
	}
}

func length(v Vec3) float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

func isZero(v *Vec3) bool { return v == nil || v.IsZero() }
