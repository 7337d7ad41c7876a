package boolean

import (
	"math"
	"slices"
	"sync"

	"github.com/dhconnelly/rtreego"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/planar"
	"github.com/chazu/kerf/pkg/topo"
)

type side int

const (
	sideA side = iota
	sideB
)

func (s side) other() side { return 1 - s }

// region is a face's parameter-space region, scaled so that distances
// approximate lengths on the surface and flipped so the material side of
// the outer loop is counter-clockwise.
type region struct {
	dom    *topo.Domain
	su, sv float64
	flip   float64
	outer  []planar.Point
	holes  [][]planar.Point
	eps    float64
	hint   geom.UV
}

func newRegion(d *topo.Domain, eps float64) *region {
	su, sv := d.Scale()
	r := &region{dom: d, su: su, sv: sv, flip: 1, eps: eps, hint: geom.Param(d.U.Mid(), d.V.Mid())}
	if d.Reversed {
		r.flip = -1
	}
	for i, l := range d.Loops {
		poly := make([]planar.Point, len(l.Points))
		for k, p := range l.Points {
			poly[k] = r.w(p.UV)
		}
		if i == 0 {
			r.outer = poly
		} else {
			r.holes = append(r.holes, poly)
		}
	}
	return r
}

func (r *region) surface() geom.Surface { return r.dom.Surface }

func (r *region) w(uv geom.UV) planar.Point {
	uv = r.dom.Unwrap(uv)
	return geom.Param(uv.X*r.su, r.flip*uv.Y*r.sv)
}

func (r *region) uv(p planar.Point) geom.UV {
	return geom.Param(p.X/r.su, r.flip*p.Y/r.sv)
}

func (r *region) project(q geom.Point) planar.Point {
	return r.w(r.dom.Surface.Inverse(q, r.hint))
}

func (r *region) locateW(p planar.Point) planar.Location {
	return planar.LocateRegion(r.outer, r.holes, p, r.eps)
}

// locate classifies a point on the surface against the face.
func (r *region) locate(q geom.Point) planar.Location {
	return r.locateW(r.project(q))
}

// normal is the outward normal of the face at uv.
func (r *region) normal(uv geom.UV) geom.Vector {
	return geom.Normal(r.dom.Surface, uv).MulScalar(r.flip)
}

type faceInfo struct {
	id     topo.FaceID
	face   topo.Face
	region *region
	patch  geom.Patch
	box    geom.Box
}

// operand is a read-only view of one input solid with its face regions
// precomputed.
type operand struct {
	side    side
	solid   *topo.Solid
	faces   []*faceInfo
	samples [][]topo.EdgeSample
	edges   []topo.EdgeID
}

func newOperand(sd side, s *topo.Solid, flat, eps float64, parallelism int) (*operand, error) {
	c := s.Counts()
	o := &operand{
		side:    sd,
		solid:   s,
		faces:   make([]*faceInfo, c.Faces),
		samples: make([][]topo.EdgeSample, c.Edges),
		edges:   slices.Collect(s.AllEdges()),
	}
	for _, e := range o.edges {
		o.samples[e] = s.SampleEdge(e, flat)
	}
	var g errgroup.Group
	g.SetLimit(parallelism)
	for f := range s.AllFaces() {
		g.Go(func() error {
			d := s.FaceDomain(f, func(e topo.EdgeID) []topo.EdgeSample { return o.samples[e] })
			o.faces[f] = &faceInfo{
				id:     f,
				face:   s.Face(f),
				region: newRegion(d, eps),
				patch:  d.Patch(),
				box:    s.FaceBounds(f),
			}
			return nil
		})
	}
	return o, g.Wait()
}

// faceEdges lists the distinct edges bounding a face, in wire order.
func (o *operand) faceEdges(f topo.FaceID) []topo.EdgeID {
	var out []topo.EdgeID
	seen := map[topo.EdgeID]bool{}
	for u := range o.solid.FaceEdges(f) {
		if !seen[u.Edge] {
			seen[u.Edge] = true
			out = append(out, u.Edge)
		}
	}
	return out
}

type tableEntry struct {
	id   int
	rect rtreego.Rect
}

func (e *tableEntry) Bounds() rtreego.Rect { return e.rect }

// vertexTable gives every point of the result one identity. Points within
// snap of an existing entry resolve to it.
type vertexTable struct {
	mu   sync.Mutex
	snap float64
	pts  []geom.Point
	tree *rtreego.Rtree
}

func newVertexTable(snap float64) *vertexTable {
	return &vertexTable{snap: snap, tree: rtreego.NewTree(3, 8, 32)}
}

func (t *vertexTable) rect(p geom.Point) rtreego.Rect {
	return topo.BoxRect(geom.BoxOf(p), t.snap)
}

func (t *vertexTable) lookup(p geom.Point) (int, bool) {
	best, bestD := -1, math.Inf(1)
	for _, s := range t.tree.SearchIntersect(t.rect(p)) {
		e := s.(*tableEntry)
		d := geom.Dist(t.pts[e.id], p)
		if d <= t.snap && (d < bestD || d == bestD && e.id < best) {
			best, bestD = e.id, d
		}
	}
	return best, best >= 0
}

// add returns the entry for p, creating one if none is within snap.
func (t *vertexTable) add(p geom.Point) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.lookup(p); ok {
		return id
	}
	id := len(t.pts)
	t.pts = append(t.pts, p)
	t.tree.Insert(&tableEntry{id: id, rect: t.rect(p)})
	return id
}

// find returns the entry within snap of p, if any.
func (t *vertexTable) find(p geom.Point) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookup(p)
}

func (t *vertexTable) point(id int) geom.Point {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pts[id]
}
