package boolean

import (
	"cmp"
	"errors"
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/planar"
	"github.com/chazu/kerf/pkg/topo"
)

type pair struct {
	a, b topo.FaceID
}

// edgeHit is a point where an edge of one operand meets a face of the
// other.
type edgeHit struct {
	side side
	edge topo.EdgeID
	t    float64
	p    geom.Point
}

type pairResult struct {
	pair
	coincident bool
	curves     []geom.IntersectionCurve
	hits       []edgeHit
}

type faceEntry struct {
	id   topo.FaceID
	rect rtreego.Rect
}

func (e *faceEntry) Bounds() rtreego.Rect { return e.rect }

// broadPhase returns the face pairs whose boxes overlap, ordered by face.
func (p *planner) broadPhase() []pair {
	tree := rtreego.NewTree(3, 8, 32)
	for _, f := range p.ops[sideB].faces {
		tree.Insert(&faceEntry{id: f.id, rect: topo.BoxRect(f.box, p.snap)})
	}
	var out []pair
	for _, fa := range p.ops[sideA].faces {
		for _, s := range tree.SearchIntersect(topo.BoxRect(fa.box, p.snap)) {
			out = append(out, pair{fa.id, s.(*faceEntry).id})
		}
	}
	slices.SortFunc(out, func(x, y pair) int {
		if c := cmp.Compare(x.a, y.a); c != 0 {
			return c
		}
		return cmp.Compare(x.b, y.b)
	})
	return out
}

// intersectPairs runs the surface and edge intersections of every
// candidate pair concurrently. Results keep the order of pairs.
func (p *planner) intersectPairs(pairs []pair) ([]pairResult, error) {
	out := make([]pairResult, len(pairs))
	var g errgroup.Group
	g.SetLimit(p.opts.Parallelism)
	for i, pr := range pairs {
		g.Go(func() error {
			r, err := p.intersectPair(pr)
			if err != nil {
				return &Error{Op: p.op, Phase: "intersect", FaceA: pr.a, FaceB: pr.b, Err: err}
			}
			out[i] = r
			return nil
		})
	}
	return out, g.Wait()
}

func (p *planner) intersectPair(pr pair) (pairResult, error) {
	fa, fb := p.ops[sideA].faces[pr.a], p.ops[sideB].faces[pr.b]
	res := pairResult{pair: pr}
	res.coincident = geom.CoincidentPatches(fa.patch, fb.patch, p.tol)
	if !res.coincident {
		curves, err := geom.IntersectSurfaces(fa.patch, fb.patch, p.tol)
		switch {
		case errors.Is(err, geom.ErrDegenerate):
			res.coincident = true
		case err != nil:
			return res, err
		default:
			res.curves = curves
		}
	}
	ha, err := p.edgeHits(sideA, fa, fb)
	if err != nil {
		return res, err
	}
	hb, err := p.edgeHits(sideB, fb, fa)
	if err != nil {
		return res, err
	}
	res.hits = append(ha, hb...)
	return res, nil
}

// edgeHits intersects the edges of face sf (on side sd) with face df of the
// other operand. Edges lying in df's surface are split where they cross
// df's edges.
func (p *planner) edgeHits(sd side, sf, df *faceInfo) ([]edgeHit, error) {
	src, dst := p.ops[sd], p.ops[sd.other()]
	var out []edgeHit
	for _, e := range src.faceEdges(sf.id) {
		edge := src.solid.Edge(e)
		if !geom.Overlaps(geom.CurveBounds(edge.Curve, edge.Range), df.box, p.snap) {
			continue
		}
		hs, err := geom.IntersectCurveSurface(edge.Curve, edge.Range, df.patch, p.tol)
		if errors.Is(err, geom.ErrDegenerate) {
			in, err := p.edgeOnFace(sd, e, dst, df)
			if err != nil {
				return nil, err
			}
			out = append(out, in...)
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, h := range hs {
			if df.region.locateW(df.region.w(h.UV)) == planar.Outside {
				continue
			}
			out = append(out, edgeHit{side: sd, edge: e, t: h.T, p: h.P})
		}
	}
	return out, nil
}

func (p *planner) edgeOnFace(sd side, e topo.EdgeID, dst *operand, df *faceInfo) ([]edgeHit, error) {
	edge := p.ops[sd].solid.Edge(e)
	var out []edgeHit
	for _, o := range dst.faceEdges(df.id) {
		other := dst.solid.Edge(o)
		hs, err := geom.IntersectCurves(edge.Curve, edge.Range, other.Curve, other.Range, p.tol)
		if errors.Is(err, geom.ErrDegenerate) {
			// Overlapping edges: the other edge's ends split this one.
			for _, v := range []topo.VertexID{other.Start, other.End} {
				q := dst.solid.Point(v)
				if t, d := geom.ClosestPoint(edge.Curve, edge.Range, q); d <= p.snap {
					out = append(out, edgeHit{side: sd, edge: e, t: t, p: q})
				}
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, h := range hs {
			out = append(out, edgeHit{side: sd, edge: e, t: h.TA, p: h.P})
		}
	}
	return out, nil
}

type opEdge struct {
	side side
	edge topo.EdgeID
}

type faceRef struct {
	side side
	face topo.FaceID
}

type split struct {
	t float64
	v int
}

type keyKind uint8

const (
	keyBoundary keyKind = iota
	keyCut
	keyPole
)

// edgeKey identifies a result edge before it is built, so that every
// fragment bounded by it refers to the same edge.
type edgeKey struct {
	kind  keyKind
	side  side
	id    int
	piece int
}

// segment is a piece of a curve between two vertex table entries, v0 at
// iv.Min and v1 at iv.Max. flip marks a segment running against the
// canonical segment of its key.
type segment struct {
	key    edgeKey
	curve  geom.Curve
	iv     geom.Interval
	v0, v1 int
	flip   bool
}

// registerVertices enters every operand vertex into the table, A first.
func (p *planner) registerVertices() {
	for _, sd := range []side{sideA, sideB} {
		s := p.ops[sd].solid
		p.vids[sd] = make([]int, s.Counts().Vertices)
		for v := range s.AllVertices() {
			p.vids[sd][v] = p.table.add(s.Point(v))
		}
	}
}

// splitEdges turns edge hits and vertices of one operand lying on edges of
// the other into sub-edges shared by every face using the edge.
func (p *planner) splitEdges(results []pairResult) {
	splits := map[opEdge][]split{}
	for _, r := range results {
		for _, h := range r.hits {
			k := opEdge{h.side, h.edge}
			splits[k] = append(splits[k], split{t: h.t, v: p.table.add(h.p)})
		}
	}
	for _, sd := range []side{sideA, sideB} {
		src, other := p.ops[sd], p.ops[sd.other()]
		for _, e := range src.edges {
			edge := src.solid.Edge(e)
			box := geom.Grow(geom.CurveBounds(edge.Curve, edge.Range), p.snap)
			for v := range other.solid.AllVertices() {
				q := other.solid.Point(v)
				if !geom.BoxContains(box, q, 0) {
					continue
				}
				if t, d := geom.ClosestPoint(edge.Curve, edge.Range, q); d <= p.snap {
					k := opEdge{sd, e}
					splits[k] = append(splits[k], split{t: t, v: p.vids[sd.other()][v]})
				}
			}
		}
	}

	for _, sd := range []side{sideA, sideB} {
		src := p.ops[sd]
		for _, e := range src.edges {
			edge := src.solid.Edge(e)
			v0, v1 := p.vids[sd][edge.Start], p.vids[sd][edge.End]
			pts := []split{{edge.Range.Min, v0}}
			for _, s := range splits[opEdge{sd, e}] {
				if s.v == v0 || s.v == v1 {
					continue
				}
				t, _ := geom.ClosestPoint(edge.Curve, edge.Range, p.table.point(s.v))
				pts = append(pts, split{t, s.v})
			}
			pts = append(pts, split{edge.Range.Max, v1})
			slices.SortStableFunc(pts[1:len(pts)-1], func(x, y split) int { return cmp.Compare(x.t, y.t) })
			pts = slices.CompactFunc(pts, func(x, y split) bool { return x.v == y.v })

			subs := make([]segment, 0, len(pts)-1)
			for i := 0; i+1 < len(pts); i++ {
				subs = append(subs, segment{
					key:   edgeKey{kind: keyBoundary, side: sd, id: int(e), piece: i},
					curve: edge.Curve,
					iv:    geom.Interval{Min: pts[i].t, Max: pts[i+1].t},
					v0:    pts[i].v,
					v1:    pts[i+1].v,
				})
			}
			p.subs[opEdge{sd, e}] = subs
		}
	}
}

// faceVertices returns the table entries on the boundary of a face after
// edge splitting.
func (p *planner) faceVertices(sd side, f topo.FaceID) []int {
	var out []int
	for _, e := range p.ops[sd].faceEdges(f) {
		for _, s := range p.subs[opEdge{sd, e}] {
			out = append(out, s.v0, s.v1)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// buildCuts clips each intersection curve to both faces and records the
// pieces as extra boundaries of the faces they cross. Coincident faces
// imprint each other's edges instead.
func (p *planner) buildCuts(results []pairResult) {
	for _, r := range results {
		fa, fb := p.ops[sideA].faces[r.a], p.ops[sideB].faces[r.b]
		if r.coincident {
			p.imprint(sideA, fa, sideB, fb)
			p.imprint(sideB, fb, sideA, fa)
			p.stats.PairsIntersected++
			continue
		}
		var cands []int
		cands = append(cands, p.faceVertices(sideA, r.a)...)
		cands = append(cands, p.faceVertices(sideB, r.b)...)
		cut := false
		for _, c := range r.curves {
			id := len(p.cutPairs)
			p.cutPairs = append(p.cutPairs, r.pair)
			for _, s := range p.clip(c, fa, fb, cands, id) {
				cut = true
				if fa.region.locate(s.curve.At(s.iv.Mid())) == planar.Inside {
					p.cuts[faceRef{sideA, r.a}] = append(p.cuts[faceRef{sideA, r.a}], s)
				}
				if fb.region.locate(s.curve.At(s.iv.Mid())) == planar.Inside {
					p.cuts[faceRef{sideB, r.b}] = append(p.cuts[faceRef{sideB, r.b}], s)
				}
			}
		}
		if cut {
			p.stats.PairsIntersected++
		}
	}
}

// clip splits an intersection curve at the boundary vertices of both faces
// lying on it and keeps the pieces inside both faces and strictly inside
// at least one.
func (p *planner) clip(c geom.IntersectionCurve, fa, fb *faceInfo, cands []int, id int) []segment {
	iv := c.Range()
	ts := []split{{iv.Min, -1}, {iv.Max, -1}}
	if c.Closed {
		ts = append(ts, split{iv.Mid(), -1})
	}
	for _, v := range cands {
		t, d := geom.ClosestPoint(c.Curve, iv, p.table.point(v))
		if d <= p.snap {
			ts = append(ts, split{t, v})
		}
	}
	slices.SortStableFunc(ts, func(x, y split) int { return cmp.Compare(x.t, y.t) })

	var out []segment
	for i := 0; i+1 < len(ts); i++ {
		t0, t1 := ts[i], ts[i+1]
		if t0.v >= 0 && t0.v == t1.v {
			continue
		}
		a, b := c.Curve.At(t0.t), c.Curve.At(t1.t)
		if geom.Dist(a, b) <= p.snap || geom.Length(c.Curve, geom.Interval{Min: t0.t, Max: t1.t}) <= 2*p.snap {
			continue
		}
		mid := c.Curve.At(0.5 * (t0.t + t1.t))
		la, lb := fa.region.locate(mid), fb.region.locate(mid)
		if la == planar.Outside || lb == planar.Outside || (la != planar.Inside && lb != planar.Inside) {
			continue
		}
		if t0.v < 0 {
			t0.v = p.table.add(a)
		}
		if t1.v < 0 {
			t1.v = p.table.add(b)
		}
		out = append(out, segment{
			key:   edgeKey{kind: keyCut, id: id, piece: i},
			curve: c.Curve,
			iv:    geom.Interval{Min: t0.t, Max: t1.t},
			v0:    t0.v,
			v1:    t1.v,
		})
	}
	return out
}

// imprint adds the sub-edges of face src that lie inside the coincident
// face dst as cuts of dst.
func (p *planner) imprint(sd side, src *faceInfo, dd side, dst *faceInfo) {
	ref := faceRef{dd, dst.id}
	for _, e := range p.ops[sd].faceEdges(src.id) {
		for _, s := range p.subs[opEdge{sd, e}] {
			if dst.region.locate(s.curve.At(s.iv.Mid())) == planar.Inside {
				p.cuts[ref] = append(p.cuts[ref], s)
			}
		}
	}
}

// canonicalize gives each piece of geometry a single key. A sub-edge of B
// retracing a sub-edge of A, or a cut retracing either or an earlier cut,
// takes the key of the first copy seen. Each face then keeps one cut per
// key and drops cuts retracing its own boundary, so that a result edge is
// built once however many pairs produced it.
func (p *planner) canonicalize() {
	byEnds := map[[2]int][]segment{}
	canon := func(s segment) segment {
		ends := [2]int{min(s.v0, s.v1), max(s.v0, s.v1)}
		for _, c := range byEnds[ends] {
			if flip, ok := p.retraces(c, s); ok {
				s.key, s.flip = c.key, flip
				return s
			}
		}
		byEnds[ends] = append(byEnds[ends], s)
		p.canon[s.key] = s
		return s
	}
	for _, sd := range []side{sideA, sideB} {
		for _, e := range p.ops[sd].edges {
			subs := p.subs[opEdge{sd, e}]
			for i := range subs {
				subs[i] = canon(subs[i])
			}
		}
	}
	for _, sd := range []side{sideA, sideB} {
		for _, f := range p.ops[sd].faces {
			ref := faceRef{sd, f.id}
			cuts := p.cuts[ref]
			if len(cuts) == 0 {
				continue
			}
			seen := map[edgeKey]bool{}
			for _, e := range p.ops[sd].faceEdges(f.id) {
				for _, s := range p.subs[opEdge{sd, e}] {
					seen[s.key] = true
				}
			}
			kept := cuts[:0]
			for _, s := range cuts {
				s = canon(s)
				if seen[s.key] {
					continue
				}
				seen[s.key] = true
				kept = append(kept, s)
			}
			p.cuts[ref] = kept
		}
	}
}

// retraces reports whether s runs over the same geometry as c between the
// same ends, and whether it runs the other way.
func (p *planner) retraces(c, s segment) (flip, ok bool) {
	on := 10 * p.snap
	ts := s.iv.Mid()
	tc, d := geom.ClosestPoint(c.curve, c.iv, s.curve.At(ts))
	if d > on {
		return false, false
	}
	if s.v0 != s.v1 {
		return c.v0 != s.v0, true
	}
	return c.curve.Deriv(tc, 1).Dot(s.curve.Deriv(ts, 1)) < 0, true
}

// flatness is the chordal tolerance used for region polygons: fine enough
// that region tests near curved boundaries resolve well below feature size.
func flatness(a, b *topo.Solid, tol geom.Tolerance) float64 {
	bx := geom.Merge(a.Bounds(), b.Bounds())
	return math.Max(1e-5*geom.Diagonal(bx), tol.Eps(geom.Magnitude(bx.Max)))
}
