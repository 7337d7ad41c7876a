package boolean

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/topo"
)

// planner carries one Boolean through its phases. The operands are read
// concurrently; everything the planner writes is written between phases
// by a single goroutine.
type planner struct {
	op   Op
	tol  geom.Tolerance
	opts Options
	log  *zap.Logger

	a, b  *topo.Solid
	ops   [2]*operand
	snap  float64
	flat  float64
	table *vertexTable
	vids  [2][]int
	subs  map[opEdge][]segment
	cuts  map[faceRef][]segment
	canon map[edgeKey]segment
	// cutPairs holds the face pair behind each intersection curve, indexed
	// by the id of its cut keys.
	cutPairs []pair
	stats    Stats
}

func newPlanner(op Op, a, b *topo.Solid, tol geom.Tolerance, opts Options, log *zap.Logger) *planner {
	bx := geom.Merge(a.Bounds(), b.Bounds())
	snap := tol.Eps(geom.Magnitude(geom.Center(bx)) + geom.Diagonal(bx))
	return &planner{
		op: op, tol: tol, opts: opts, log: log,
		a: a, b: b,
		snap:  snap,
		flat:  flatness(a, b, tol),
		table: newVertexTable(snap),
		subs:  map[opEdge][]segment{},
		cuts:  map[faceRef][]segment{},
		canon: map[edgeKey]segment{},
	}
}

func (p *planner) run() (*topo.Solid, error) {
	var err error
	for i, s := range []*topo.Solid{p.a, p.b} {
		if p.ops[i], err = newOperand(side(i), s, p.flat, 4*p.flat, p.opts.Parallelism); err != nil {
			return nil, &Error{Op: p.op, Phase: "prepare", FaceA: -1, FaceB: -1, Err: err}
		}
	}
	p.registerVertices()

	pairs := p.broadPhase()
	p.stats.PairsTested = len(pairs)
	p.log.Debug("broad phase", zap.Int("pairs", len(pairs)))
	results, err := p.intersectPairs(pairs)
	if err != nil {
		return nil, err
	}
	p.splitEdges(results)
	p.buildCuts(results)
	p.canonicalize()
	p.log.Debug("intersected", zap.Int("pairs", p.stats.PairsIntersected), zap.Int("vertices", len(p.table.pts)))

	frags, err := p.fragmentFaces()
	if err != nil {
		return nil, err
	}
	p.stats.Fragments = len(frags)
	if err := p.classifyAll(frags); err != nil {
		return nil, err
	}
	var kept []*fragment
	for _, fr := range frags {
		ok, flip := keep(p.op, fr.side, fr.class)
		if ok {
			fr.flip = flip
			kept = append(kept, fr)
		}
	}
	p.stats.Kept = len(kept)
	p.log.Debug("trimmed", zap.Int("fragments", len(frags)), zap.Int("kept", len(kept)))
	return p.assemble(kept)
}

// faceError reports a failure of face f. The other operand's face is the
// one whose cut crosses f, if any.
func (p *planner) faceError(phase string, sd side, f topo.FaceID, err error) error {
	e := &Error{Op: p.op, Phase: phase, FaceA: -1, FaceB: -1, Err: err}
	if sd == sideA {
		e.FaceA = f
	} else {
		e.FaceB = f
	}
	for _, s := range p.cuts[faceRef{sd, f}] {
		if e.FaceA >= 0 && e.FaceB >= 0 {
			break
		}
		p.nameFaces(e, s.key)
	}
	return e
}

// nameFaces fills the faces of e still unset from the operand faces that
// produced segments keyed k.
func (p *planner) nameFaces(e *Error, k edgeKey) {
	set := func(sd side, f topo.FaceID) {
		switch {
		case sd == sideA && e.FaceA < 0:
			e.FaceA = f
		case sd == sideB && e.FaceB < 0:
			e.FaceB = f
		}
	}
	switch k.kind {
	case keyCut:
		if k.id < len(p.cutPairs) {
			pr := p.cutPairs[k.id]
			set(sideA, pr.a)
			set(sideB, pr.b)
		}
	case keyBoundary:
		o := p.ops[k.side]
		for _, f := range o.faces {
			if slices.Contains(o.faceEdges(f.id), topo.EdgeID(k.id)) {
				set(k.side, f.id)
				break
			}
		}
	}
}

// fragmentFaces cuts every face of both operands, concurrently, and lists
// the fragments of A's faces then B's, each in face order.
func (p *planner) fragmentFaces() ([]*fragment, error) {
	var all []*faceInfo
	var sides []side
	for _, sd := range []side{sideA, sideB} {
		for _, f := range p.ops[sd].faces {
			all = append(all, f)
			sides = append(sides, sd)
		}
	}
	parts := make([][]*fragment, len(all))
	var g errgroup.Group
	g.SetLimit(p.opts.Parallelism)
	for i, f := range all {
		g.Go(func() error {
			frs, err := p.arrange(sides[i], f)
			if err != nil {
				return p.faceError("arrange", sides[i], f.id, err)
			}
			parts[i] = frs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(parts...), nil
}

func (p *planner) classifyAll(frags []*fragment) error {
	var g errgroup.Group
	g.SetLimit(p.opts.Parallelism)
	for _, fr := range frags {
		g.Go(func() error {
			c, err := p.classify(fr)
			if err != nil {
				return p.faceError("classify", fr.side, fr.face.id, err)
			}
			fr.class = c
			return nil
		})
	}
	return g.Wait()
}

// assemble builds the kept fragments as faces of a new solid. Fragments
// sharing a segment share its edge; Sew joins what remains.
func (p *planner) assemble(frags []*fragment) (*topo.Solid, error) {
	if len(frags) == 0 {
		return topo.EmptySolid(p.tol), nil
	}
	rb := topo.NewBuilder(p.tol)
	verts := map[int]topo.VertexID{}
	vertex := func(id int) topo.VertexID {
		v, ok := verts[id]
		if !ok {
			v = rb.MakeVertex(p.table.point(id))
			verts[id] = v
		}
		return v
	}
	edges := map[edgeKey]topo.EdgeID{}
	keys := map[topo.EdgeID]edgeKey{}
	var faces []topo.FaceID
	source := map[topo.FaceID]*fragment{}

	for _, fr := range frags {
		var wires []topo.WireID
		for _, loop := range fr.loops {
			uses := make([]topo.Use, 0, len(loop))
			for _, u := range loop {
				e, ok := edges[u.seg.key]
				if !ok {
					c, ok := p.canon[u.seg.key]
					if !ok {
						c = u.seg
					}
					var err error
					e, err = rb.MakeEdge(vertex(c.v0), vertex(c.v1), c.curve, c.iv)
					if err != nil {
						return nil, p.faceError("reassemble", fr.side, fr.face.id, err)
					}
					edges[u.seg.key] = e
					keys[e] = u.seg.key
				}
				uses = append(uses, topo.Use{Edge: e, Reversed: u.reversed != u.seg.flip})
			}
			if fr.flip {
				uses = topo.Reverse(uses)
			}
			w, err := rb.MakeWire(uses)
			if err != nil {
				return nil, p.faceError("reassemble", fr.side, fr.face.id, err)
			}
			wires = append(wires, w)
		}
		f, err := rb.MakeFace(wires[0], wires[1:], fr.face.face.Surface, fr.face.face.Reversed != fr.flip)
		if err != nil {
			return nil, p.faceError("reassemble", fr.side, fr.face.id, err)
		}
		faces = append(faces, f)
		source[f] = fr
	}

	shells, err := rb.SewAll(faces)
	if err != nil {
		return nil, p.resultError(rb, source, keys, err)
	}
	s, err := rb.Close(shells...)
	if err != nil {
		return nil, p.resultError(rb, source, keys, err)
	}
	return s, nil
}

// resultError reports a failed sew, naming the operand faces around the
// offending edges. Where no kept fragment of an operand touches them, the
// face whose intersection produced the edge stands in.
func (p *planner) resultError(rb *topo.Builder, source map[topo.FaceID]*fragment, keys map[topo.EdgeID]edgeKey, err error) error {
	e := &Error{Op: p.op, Phase: "reassemble", FaceA: -1, FaceB: -1, Err: err}
	if !errors.Is(err, topo.ErrNonManifold) && !errors.Is(err, topo.ErrNotClosed) {
		return e
	}
	e.Err = fmt.Errorf("%w: %w", ErrNonManifoldResult, err)
	var ee *topo.EntityError
	if !errors.As(err, &ee) || ee.Kind != topo.KindEdge || len(ee.IDs) == 0 {
		return e
	}
	faces := make([]topo.FaceID, 0, len(source))
	for f := range source {
		faces = append(faces, f)
	}
	slices.Sort(faces)
	for _, id := range ee.IDs {
		bad := topo.EdgeID(id)
		for _, f := range faces {
			fr := source[f]
			for u := range rb.FaceEdges(f) {
				if u.Edge != bad {
					continue
				}
				switch {
				case fr.side == sideA && e.FaceA < 0:
					e.FaceA = fr.face.id
				case fr.side == sideB && e.FaceB < 0:
					e.FaceB = fr.face.id
				}
				break
			}
		}
		if e.FaceA >= 0 && e.FaceB >= 0 {
			return e
		}
	}
	for _, id := range ee.IDs {
		if k, ok := keys[topo.EdgeID(id)]; ok {
			p.nameFaces(e, k)
		}
	}
	return e
}
