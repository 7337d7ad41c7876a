package boolean

import (
	"fmt"
	"math"
	"slices"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/planar"
	"github.com/chazu/kerf/pkg/topo"
)

// link is a segment placed in a face's parameter space, traversed from
// `from` to `to`.
type link struct {
	seg      segment
	rev      bool
	pole     bool
	boundary bool
	from, to int
	w        []planar.Point
}

// use is an oriented reference to a segment within a fragment loop.
type use struct {
	seg      segment
	reversed bool
}

// fragment is one region of a face after cutting.
type fragment struct {
	side  side
	face  *faceInfo
	outer []planar.Point
	holes [][]planar.Point
	loops [][]use
	point planar.Point
	class class
	flip  bool
}

// arrangement is the planar graph of a face's boundary and cut links.
type arrangement struct {
	p      *planner
	side   side
	face   *faceInfo
	links  []*link
	nodes  []planar.Point
	byVert map[int][]int
	ends   [][2]int
}

func (p *planner) arrange(sd side, f *faceInfo) ([]*fragment, error) {
	ar := &arrangement{p: p, side: sd, face: f, byVert: map[int][]int{}}
	ar.addBoundary()
	seen := map[edgeKey]bool{}
	for _, s := range p.cuts[faceRef{sd, f.id}] {
		if seen[s.key] {
			continue
		}
		seen[s.key] = true
		ar.links = append(ar.links, &link{seg: s, from: s.v0, to: s.v1, w: ar.polyline(s, false)})
	}
	ar.placeNodes()
	ar.prune()
	return ar.fragments()
}

// addBoundary walks each wire of the face, emitting one link per sub-edge
// and a pole link wherever consecutive links meet at different parameters
// of the same vertex.
func (ar *arrangement) addBoundary() {
	s := ar.p.ops[ar.side].solid
	wires := append([]topo.WireID{ar.face.face.Outer}, ar.face.face.Inner...)
	for _, w := range wires {
		var loop []*link
		for _, u := range s.Wire(w).Uses {
			subs := ar.p.subs[opEdge{ar.side, u.Edge}]
			for k := range subs {
				sg := subs[k]
				if u.Reversed {
					sg = subs[len(subs)-1-k]
				}
				l := &link{seg: sg, rev: u.Reversed, boundary: true, from: sg.v0, to: sg.v1}
				if u.Reversed {
					l.from, l.to = sg.v1, sg.v0
				}
				l.w = ar.polyline(sg, u.Reversed)
				loop = append(loop, l)
			}
		}
		for i, l := range loop {
			ar.links = append(ar.links, l)
			n := loop[(i+1)%len(loop)]
			a, b := l.w[len(l.w)-1], n.w[0]
			if planar.Dist(a, b) > ar.face.region.eps {
				ar.links = append(ar.links, &link{
					seg:      segment{key: edgeKey{kind: keyPole}},
					pole:     true,
					boundary: true,
					from:     l.to,
					to:       n.from,
					w:        []planar.Point{a, b},
				})
			}
		}
	}
}

// polyline maps a segment into the face's parameter space. A pole end
// takes the u of its neighbouring sample.
func (ar *arrangement) polyline(s segment, reversed bool) []planar.Point {
	r := ar.face.region
	surf := r.surface()
	ts := topo.SampleCurve(s.curve, s.iv, ar.p.flat)
	if reversed {
		slices.Reverse(ts)
	}
	pts := make([]geom.Point, len(ts))
	for i, t := range ts {
		pts[i] = s.curve.At(t)
	}
	first, last := s.v0, s.v1
	if reversed {
		first, last = last, first
	}
	pts[0], pts[len(pts)-1] = ar.p.table.point(first), ar.p.table.point(last)

	uvs := make([]geom.UV, len(pts))
	hint := r.hint
	for i, q := range pts {
		uvs[i] = r.dom.Unwrap(surf.Inverse(q, hint))
		hint = uvs[i]
	}
	if n := len(uvs); n > 1 {
		eps := ar.p.snap
		if geom.Singular(surf, uvs[0], eps) {
			uvs[0].X = uvs[1].X
		}
		if geom.Singular(surf, uvs[n-1], eps) {
			uvs[n-1].X = uvs[n-2].X
		}
	}
	out := make([]planar.Point, len(uvs))
	for i, uv := range uvs {
		out[i] = r.w(uv)
	}
	return out
}

// placeNodes gives each link end a node. Ends at the same vertex share a
// node unless they sit at different parameters, as on either side of a
// pole.
func (ar *arrangement) placeNodes() {
	node := func(v int, p planar.Point) int {
		for _, n := range ar.byVert[v] {
			if planar.Dist(ar.nodes[n], p) <= 10*ar.face.region.eps {
				return n
			}
		}
		ar.nodes = append(ar.nodes, p)
		ar.byVert[v] = append(ar.byVert[v], len(ar.nodes)-1)
		return len(ar.nodes) - 1
	}
	ar.ends = make([][2]int, len(ar.links))
	for i, l := range ar.links {
		ar.ends[i] = [2]int{node(l.from, l.w[0]), node(l.to, l.w[len(l.w)-1])}
	}
}

// prune drops cut links with a free end until none is left.
func (ar *arrangement) prune() {
	for {
		degree := make([]int, len(ar.nodes))
		for i := range ar.links {
			degree[ar.ends[i][0]]++
			degree[ar.ends[i][1]]++
		}
		keep := 0
		for i, l := range ar.links {
			if !l.boundary && (degree[ar.ends[i][0]] < 2 || degree[ar.ends[i][1]] < 2 || ar.ends[i][0] == ar.ends[i][1]) {
				continue
			}
			ar.links[keep], ar.ends[keep] = l, ar.ends[i]
			keep++
		}
		if keep == len(ar.links) {
			return
		}
		ar.links, ar.ends = ar.links[:keep], ar.ends[:keep]
	}
}

// Half-edge h runs along link h/2, forwards when h is even.
func (ar *arrangement) origin(h int) int { return ar.ends[h/2][h%2] }
func (ar *arrangement) dest(h int) int   { return ar.ends[h/2][1-h%2] }

func (ar *arrangement) points(h int) []planar.Point {
	w := ar.links[h/2].w
	if h%2 == 0 {
		return w
	}
	out := slices.Clone(w)
	slices.Reverse(out)
	return out
}

func (ar *arrangement) angle(h int) float64 {
	pts := ar.points(h)
	for _, q := range pts[1:] {
		if planar.Dist(q, pts[0]) > 0 {
			return math.Atan2(q.Y-pts[0].Y, q.X-pts[0].X)
		}
	}
	return 0
}

// cycles traces the faces of the arrangement, each with its interior on
// the left.
func (ar *arrangement) cycles() ([][]int, error) {
	n := 2 * len(ar.links)
	out := make([][]int, len(ar.nodes))
	angles := make([]float64, n)
	for h := 0; h < n; h++ {
		angles[h] = ar.angle(h)
		o := ar.origin(h)
		out[o] = append(out[o], h)
	}
	for _, hs := range out {
		slices.SortStableFunc(hs, func(x, y int) int {
			switch {
			case angles[x] < angles[y]:
				return -1
			case angles[x] > angles[y]:
				return 1
			}
			return 0
		})
	}
	visited := make([]bool, n)
	var cycles [][]int
	for h := 0; h < n; h++ {
		if visited[h] {
			continue
		}
		var cyc []int
		for cur := h; ; {
			visited[cur] = true
			cyc = append(cyc, cur)
			hs := out[ar.dest(cur)]
			k := slices.Index(hs, cur^1)
			nx := hs[(k-1+len(hs))%len(hs)]
			if nx == h {
				break
			}
			if visited[nx] || len(cyc) > n {
				return nil, fmt.Errorf("face %d: inconsistent arrangement", ar.face.id)
			}
			cur = nx
		}
		cycles = append(cycles, cyc)
	}
	return cycles, nil
}

func (ar *arrangement) polygon(cyc []int) []planar.Point {
	var poly []planar.Point
	for _, h := range cyc {
		pts := ar.points(h)
		poly = append(poly, pts[:len(pts)-1]...)
	}
	return poly
}

// fragments groups counter-clockwise cycles with the clockwise cycles they
// enclose and keeps those lying inside the face.
func (ar *arrangement) fragments() ([]*fragment, error) {
	cycles, err := ar.cycles()
	if err != nil {
		return nil, err
	}
	r := ar.face.region
	lo, hi := planar.Bounds(r.outer)
	minArea := 1e-10 * planar.Dist(lo, hi) * planar.Dist(lo, hi)

	type loop struct {
		cyc  []int
		poly []planar.Point
		area float64
	}
	var outers, inners []loop
	for _, c := range cycles {
		poly := ar.polygon(c)
		if len(poly) < 3 {
			continue
		}
		a := planar.SignedArea(poly)
		switch {
		case a > minArea:
			outers = append(outers, loop{c, poly, a})
		case a < -minArea:
			inners = append(inners, loop{c, poly, a})
		}
	}

	frags := make([]*fragment, len(outers))
	for i, o := range outers {
		frags[i] = &fragment{side: ar.side, face: ar.face, outer: o.poly, loops: [][]use{ar.uses(o.cyc)}}
	}
	for _, in := range inners {
		best := -1
		for i, o := range outers {
			if planar.Locate(o.poly, in.poly[0], 0) != planar.Inside {
				continue
			}
			if best < 0 || o.area < outers[best].area {
				best = i
			}
		}
		if best < 0 {
			continue
		}
		frags[best].holes = append(frags[best].holes, in.poly)
		frags[best].loops = append(frags[best].loops, ar.uses(in.cyc))
	}

	var out []*fragment
	for _, fr := range frags {
		pt, err := planar.InteriorPoint(fr.outer, fr.holes)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", ar.face.id, err)
		}
		if r.locateW(pt) != planar.Inside {
			continue
		}
		fr.point = pt
		out = append(out, fr)
	}
	return out, nil
}

func (ar *arrangement) uses(cyc []int) []use {
	var out []use
	for _, h := range cyc {
		l := ar.links[h/2]
		if l.pole {
			continue
		}
		out = append(out, use{seg: l.seg, reversed: l.rev != (h%2 == 1)})
	}
	return out
}
