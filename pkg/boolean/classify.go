package boolean

import (
	"errors"
	"math"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/planar"
)

// class places a fragment relative to the other operand.
type class int

const (
	classOutside class = iota
	classInside
	// On the other operand's boundary with both normals agreeing.
	classOnSame
	// On the other operand's boundary with opposing normals.
	classOnOpposite
)

func (c class) String() string {
	return [...]string{"outside", "inside", "on-same", "on-opposite"}[c]
}

// Probe directions for ray parity, chosen to avoid axis-aligned features.
var probes = []geom.Vector{
	geom.Unit(geom.Vec(0.5773, 0.6123, 0.5402)),
	geom.Unit(geom.Vec(-0.3271, 0.8119, 0.4837)),
	geom.Unit(geom.Vec(0.7013, -0.2391, 0.6717)),
	geom.Unit(geom.Vec(-0.6127, -0.5581, -0.5596)),
	geom.Unit(geom.Vec(0.1234, 0.3921, -0.9116)),
	geom.Unit(geom.Vec(0.9172, 0.3129, -0.2467)),
}

// classify places fr against the other operand: on its boundary when the
// fragment's interior point lies on one of its faces, otherwise inside or
// outside by the parity of ray crossings.
func (p *planner) classify(fr *fragment) (class, error) {
	r := fr.face.region
	uv := r.uv(fr.point)
	q := r.surface().At(uv)
	n := r.normal(uv)
	other := p.ops[fr.side.other()]
	on := 10 * p.snap

	for _, g := range other.faces {
		if !geom.BoxContains(g.box, q, on) {
			continue
		}
		hint := g.region.hint
		guv, d := geom.ClosestPointSurface(g.region.surface(), g.patch.U, g.patch.V, q, &hint)
		if d > on || g.region.locateW(g.region.w(guv)) == planar.Outside {
			continue
		}
		if n.Dot(g.region.normal(guv)) > 0 {
			return classOnSame, nil
		}
		return classOnOpposite, nil
	}

	bx := other.solid.Bounds()
	if !geom.BoxContains(bx, q, on) {
		return classOutside, nil
	}
	length := geom.Diagonal(bx) + geom.Dist(q, geom.Center(bx)) + 1
	for _, dir := range probes {
		inside, ok, err := p.parity(other, q, dir, length, on)
		if err != nil {
			return 0, err
		}
		if ok {
			if inside {
				return classInside, nil
			}
			return classOutside, nil
		}
	}
	return 0, errUnclassified
}

// parity counts the crossings of the ray q + t·dir with the operand's
// faces. ok is false when the ray grazes a face or meets an edge.
func (p *planner) parity(o *operand, q geom.Point, dir geom.Vector, length, on float64) (inside, ok bool, err error) {
	ray := &geom.Line{Origin: q, Dir: dir}
	iv := geom.Interval{Min: 0, Max: length}
	rayBox := geom.BoxOf(q, ray.At(length))
	count := 0
	for _, g := range o.faces {
		if !rayHitsBox(q, dir, length, geom.Grow(g.box, on)) || !geom.Overlaps(rayBox, g.box, on) {
			continue
		}
		hs, err := geom.IntersectCurveSurface(ray, iv, g.patch, p.tol)
		if errors.Is(err, geom.ErrDegenerate) {
			return false, false, nil
		}
		if err != nil {
			return false, false, err
		}
		for _, h := range hs {
			switch g.region.locateW(g.region.w(h.UV)) {
			case planar.Boundary:
				return false, false, nil
			case planar.Outside:
				continue
			}
			if math.Abs(g.region.normal(h.UV).Dot(dir)) < 1e-6 {
				return false, false, nil
			}
			count++
		}
	}
	return count%2 == 1, true, nil
}

// rayHitsBox is the slab test for the segment q + t·dir, t in [0, length].
func rayHitsBox(q, dir geom.Vector, length float64, b geom.Box) bool {
	qs := [3]float64{q.X, q.Y, q.Z}
	ds := [3]float64{dir.X, dir.Y, dir.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	t0, t1 := 0.0, length
	for i := range 3 {
		if math.Abs(ds[i]) < 1e-15 {
			if qs[i] < lo[i] || qs[i] > hi[i] {
				return false
			}
			continue
		}
		a, c := (lo[i]-qs[i])/ds[i], (hi[i]-qs[i])/ds[i]
		if a > c {
			a, c = c, a
		}
		t0, t1 = math.Max(t0, a), math.Min(t1, c)
		if t0 > t1 {
			return false
		}
	}
	return true
}

// keep applies the inclusion rule of op to a classified fragment. flip
// reports that the fragment enters the result reversed.
func keep(op Op, sd side, c class) (ok, flip bool) {
	switch op {
	case OpUnion:
		if sd == sideA {
			return c == classOutside || c == classOnSame, false
		}
		return c == classOutside, false
	case OpIntersection:
		if sd == sideA {
			return c == classInside || c == classOnSame, false
		}
		return c == classInside, false
	default:
		if sd == sideA {
			return c == classOutside || c == classOnOpposite, false
		}
		return c == classInside, true
	}
}
