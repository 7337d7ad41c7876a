package planar

import (
	"errors"
	"math"
	"sort"
)

// ErrDegenerate is returned for polygons with no usable area.
var ErrDegenerate = errors.New("planar: degenerate polygon")

type node struct {
	i          int
	prev, next *node
}

func ring(idx []int) *node {
	var first, last *node
	for _, i := range idx {
		n := &node{i: i}
		if first == nil {
			first = n
		} else {
			last.next = n
			n.prev = last
		}
		last = n
	}
	last.next = first
	first.prev = last
	return first
}

func indexRange(off, n int, reverse bool) []int {
	idx := make([]int, n)
	for k := range idx {
		if reverse {
			idx[k] = off + n - 1 - k
		} else {
			idx[k] = off + k
		}
	}
	return idx
}

// Triangulate ear-clips the region bounded by outer minus holes. Either
// orientation is accepted for every loop. The returned points are outer
// followed by each hole in input order and triangles index into them,
// counter-clockwise.
func Triangulate(outer []Point, holes [][]Point) ([]Point, [][3]int, error) {
	if len(outer) < 3 {
		return nil, nil, ErrDegenerate
	}
	pts := append([]Point(nil), outer...)
	lo, hi := Bounds(outer)
	scale := Dist(lo, hi)
	if scale == 0 {
		return nil, nil, ErrDegenerate
	}
	head := ring(indexRange(0, len(outer), SignedArea(outer) < 0))
	count := len(outer)

	type hole struct {
		off, n int
		minX   float64
	}
	var hs []hole
	for _, h := range holes {
		if len(h) < 3 {
			return nil, nil, ErrDegenerate
		}
		hl, _ := Bounds(h)
		hs = append(hs, hole{off: len(pts), n: len(h), minX: hl.X})
		pts = append(pts, h...)
	}
	sort.SliceStable(hs, func(i, j int) bool { return hs[i].minX < hs[j].minX })

	pending := make([]bool, len(hs))
	for k := range pending {
		pending[k] = true
	}
	for k, h := range hs {
		loop := pts[h.off : h.off+h.n]
		hr := ring(indexRange(h.off, h.n, SignedArea(loop) > 0))
		m := hr
		for n := hr.next; n != hr; n = n.next {
			if pts[n.i].X < pts[m.i].X {
				m = n
			}
		}
		pending[k] = false
		var others [][]Point
		for j, o := range hs {
			if pending[j] {
				others = append(others, pts[o.off:o.off+o.n])
			}
		}
		p := findBridge(head, m, pts, outer, holes, others)
		if p == nil {
			return nil, nil, ErrDegenerate
		}
		splice(p, m)
		count += h.n + 2
	}
	return pts, restoreFlat(pts, clip(head, count, pts, scale), scale), nil
}

// restoreFlat splits triangles at the loop vertices that clipping passed
// over. Such a vertex sits flat on the boundary, so it lies on an edge of
// the triangle that replaced it; without the split the neighbouring face
// would see a T-junction there.
func restoreFlat(pts []Point, tris [][3]int, scale float64) [][3]int {
	used := make([]bool, len(pts))
	for _, t := range tris {
		for _, i := range t {
			used[i] = true
		}
	}
	eps := 1e-9 * scale
	for v, ok := range used {
		if ok {
			continue
		}
		best, bestK, bestD := -1, 0, eps
		for ti, t := range tris {
			for k := range 3 {
				d, s := SegmentDistance(pts[v], pts[t[k]], pts[t[(k+1)%3]])
				if s > 0 && s < 1 && d <= bestD {
					best, bestK, bestD = ti, k, d
				}
			}
		}
		if best < 0 {
			continue
		}
		t := tris[best]
		a, b, c := t[bestK], t[(bestK+1)%3], t[(bestK+2)%3]
		tris[best] = [3]int{a, v, c}
		tris = append(tris, [3]int{v, b, c})
	}
	return tris
}

// findBridge picks the nearest ring vertex that m can see without crossing
// any edge of the ring or of the holes not yet merged.
func findBridge(head, m *node, pts []Point, outer []Point, holes, others [][]Point) *node {
	type cand struct {
		n *node
		d float64
	}
	var cands []cand
	n := head
	for {
		cands = append(cands, cand{n, Dist(pts[n.i], pts[m.i])})
		n = n.next
		if n == head {
			break
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].d < cands[j].d })
	mp := pts[m.i]
	for _, c := range cands {
		pp := pts[c.n.i]
		if c.d == 0 {
			continue
		}
		mid := Point{X: 0.5 * (pp.X + mp.X), Y: 0.5 * (pp.Y + mp.Y)}
		if LocateRegion(outer, holes, mid, 0) != Inside {
			continue
		}
		if segmentBlocked(head, mp, pp, pts) || segmentBlocked(m, mp, pp, pts) {
			continue
		}
		blocked := false
		for _, o := range others {
			if crossesLoop(o, mp, pp) {
				blocked = true
				break
			}
		}
		if !blocked {
			return c.n
		}
	}
	return nil
}

func segmentBlocked(start *node, a, b Point, pts []Point) bool {
	n := start
	for {
		p, q := pts[n.i], pts[n.next.i]
		if p != a && p != b && q != a && q != b {
			if _, ok := SegmentIntersection(a, b, p, q, 0); ok {
				return true
			}
		}
		n = n.next
		if n == start {
			return false
		}
	}
}

func crossesLoop(loop []Point, a, b Point) bool {
	for i := range loop {
		if _, ok := SegmentIntersection(a, b, loop[i], loop[(i+1)%len(loop)], 0); ok {
			return true
		}
	}
	return false
}

func splice(p, m *node) {
	p2 := &node{i: p.i}
	m2 := &node{i: m.i}
	pn, mp := p.next, m.prev
	p.next, m.prev = m, p
	mp.next, m2.prev = m2, mp
	m2.next, p2.prev = p2, m2
	p2.next, pn.prev = pn, p2
}

func clip(ear *node, n int, pts []Point, scale float64) [][3]int {
	areaEps := 1e-12 * scale * scale
	var tris [][3]int
	stall := 0
	for n > 3 {
		a, b, c := ear.prev, ear, ear.next
		if isEar(a, b, c, pts, areaEps) {
			tris = append(tris, [3]int{a.i, b.i, c.i})
			a.next, c.prev = c, a
			n--
			ear, stall = c, 0
			continue
		}
		ear = ear.next
		stall++
		if stall < n {
			continue
		}
		// No clean ear in a full pass: drop a flat vertex, else clip the
		// most convex one.
		flat, best := ear, ear
		for k, x := 0, ear; k < n; k, x = k+1, x.next {
			if math.Abs(Orient(pts[x.prev.i], pts[x.i], pts[x.next.i])) < math.Abs(Orient(pts[flat.prev.i], pts[flat.i], pts[flat.next.i])) {
				flat = x
			}
			if Orient(pts[x.prev.i], pts[x.i], pts[x.next.i]) > Orient(pts[best.prev.i], pts[best.i], pts[best.next.i]) {
				best = x
			}
		}
		x := flat
		if math.Abs(Orient(pts[x.prev.i], pts[x.i], pts[x.next.i])) > areaEps {
			x = best
			if Orient(pts[x.prev.i], pts[x.i], pts[x.next.i]) > areaEps {
				tris = append(tris, [3]int{x.prev.i, x.i, x.next.i})
			}
		}
		x.prev.next, x.next.prev = x.next, x.prev
		n--
		ear, stall = x.next, 0
	}
	if n == 3 && Orient(pts[ear.prev.i], pts[ear.i], pts[ear.next.i]) > areaEps {
		tris = append(tris, [3]int{ear.prev.i, ear.i, ear.next.i})
	}
	return tris
}

func isEar(a, b, c *node, pts []Point, areaEps float64) bool {
	pa, pb, pc := pts[a.i], pts[b.i], pts[c.i]
	if Orient(pa, pb, pc) <= areaEps {
		return false
	}
	for p := c.next; p != a; p = p.next {
		q := pts[p.i]
		if q == pa || q == pb || q == pc {
			continue
		}
		if Orient(pa, pb, q) >= 0 && Orient(pb, pc, q) >= 0 && Orient(pc, pa, q) >= 0 {
			return false
		}
	}
	return true
}
