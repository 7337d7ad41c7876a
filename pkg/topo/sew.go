package topo

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/samber/lo"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/planar"
)

// Sew joins faces into one connected shell. Vertices within ε are merged,
// then edges joining the same vertices along the same curve, so that each
// edge ends up used by at most two faces with opposite orientation.
func (b *Builder) Sew(faces []FaceID) (ShellID, error) {
	shells, err := b.SewAll(faces)
	if err != nil {
		return -1, err
	}
	if len(shells) != 1 {
		first := lo.Map(shells, func(s ShellID, _ int) FaceID { return b.shells[s].Faces[0] })
		b.shells = b.shells[:len(b.shells)-len(shells)]
		return -1, entityErr("sew", KindFace, ErrDisconnected, first...)
	}
	return shells[0], nil
}

// SewAll is Sew for faces that may fall into several connected groups; it
// adds one shell per group, ordered by lowest face ID.
func (b *Builder) SewAll(faces []FaceID) ([]ShellID, error) {
	const op = "sew"
	if len(faces) == 0 {
		return nil, entityErr[FaceID](op, KindFace, ErrEmptyShell)
	}
	for _, f := range faces {
		if !b.hasFace(f) {
			return nil, entityErr(op, KindFace, ErrUnknownEntity, f)
		}
	}
	faces = lo.Uniq(faces)
	slices.Sort(faces)

	var edges []EdgeID
	for _, f := range faces {
		for u := range b.FaceEdges(f) {
			edges = append(edges, u.Edge)
		}
	}
	edges = lo.Uniq(edges)
	slices.Sort(edges)

	b.mergeVertices(edges)
	replaced := b.mergeEdges(edges)
	if len(replaced) > 0 {
		for _, f := range faces {
			for w := range b.Wires(f) {
				for k, u := range b.wires[w].Uses {
					if r, ok := replaced[u.Edge]; ok {
						b.wires[w].Uses[k] = Use{Edge: r.Edge, Reversed: u.Reversed != r.Reversed}
					}
				}
			}
		}
	}

	type ref struct {
		face     FaceID
		reversed bool
	}
	uses := map[EdgeID][]ref{}
	for _, f := range faces {
		for u := range b.FaceEdges(f) {
			uses[u.Edge] = append(uses[u.Edge], ref{f, u.Reversed})
		}
	}
	parent := map[FaceID]FaceID{}
	var find func(FaceID) FaceID
	find = func(f FaceID) FaceID {
		p, ok := parent[f]
		if !ok || p == f {
			return f
		}
		r := find(p)
		parent[f] = r
		return r
	}
	keys := lo.Keys(uses)
	slices.Sort(keys)
	for _, e := range keys {
		rs := uses[e]
		if len(rs) > 2 || (len(rs) == 2 && rs[0].reversed == rs[1].reversed) {
			ids := lo.Map(rs, func(r ref, _ int) int { return int(r.face) })
			return nil, entityErr(op, KindEdge, fmt.Errorf("faces %v: %w", ids, ErrNonManifold), e)
		}
		if len(rs) == 2 {
			ra, rb := find(rs[0].face), find(rs[1].face)
			if ra != rb {
				parent[max(ra, rb)] = min(ra, rb)
			}
		}
	}
	groups := lo.GroupBy(faces, find)
	roots := lo.Keys(groups)
	slices.Sort(roots)
	var out []ShellID
	for _, r := range roots {
		b.shells = append(b.shells, Shell{Faces: groups[r]})
		out = append(out, ShellID(len(b.shells)-1))
	}
	return out, nil
}

// mergeVertices points every edge end at the lowest-numbered vertex within ε.
func (b *Builder) mergeVertices(edges []EdgeID) {
	var vs []VertexID
	for _, e := range edges {
		vs = append(vs, b.edges[e].Start, b.edges[e].End)
	}
	vs = lo.Uniq(vs)
	sort.Slice(vs, func(i, j int) bool {
		pi, pj := b.Point(vs[i]), b.Point(vs[j])
		if pi.X != pj.X {
			return pi.X < pj.X
		}
		return vs[i] < vs[j]
	})
	canon := map[VertexID]VertexID{}
	for i, v := range vs {
		if _, ok := canon[v]; ok {
			continue
		}
		canon[v] = v
		p := b.Point(v)
		eps := b.tol.EpsAt(p)
		for _, w := range vs[i+1:] {
			q := b.Point(w)
			if q.X-p.X > eps {
				break
			}
			if _, ok := canon[w]; !ok && geom.Dist(p, q) <= eps {
				canon[w] = v
			}
		}
	}
	// Prefer the lowest ID in each group as the survivor.
	low := map[VertexID]VertexID{}
	for v, c := range canon {
		if l, ok := low[c]; !ok || v < l {
			low[c] = v
		}
	}
	for _, e := range edges {
		ed := &b.edges[e]
		ed.Start = low[canon[ed.Start]]
		ed.End = low[canon[ed.End]]
	}
}

// mergeEdges finds edges that join the same vertices along the same curve
// and maps each duplicate to the edge it folds into.
func (b *Builder) mergeEdges(edges []EdgeID) map[EdgeID]Use {
	type key struct{ a, b VertexID }
	groups := map[key][]EdgeID{}
	for _, e := range edges {
		ed := b.edges[e]
		groups[key{min(ed.Start, ed.End), max(ed.Start, ed.End)}] = append(groups[key{min(ed.Start, ed.End), max(ed.Start, ed.End)}], e)
	}
	replaced := map[EdgeID]Use{}
	for _, g := range groups {
		if len(g) < 2 {
			continue
		}
		for i, e := range g {
			if _, gone := replaced[e]; gone {
				continue
			}
			for _, o := range g[i+1:] {
				if _, gone := replaced[o]; gone {
					continue
				}
				if flipped, same := b.sameEdge(e, o); same {
					replaced[o] = Use{Edge: e, Reversed: flipped}
				}
			}
		}
	}
	return replaced
}

// sameEdge reports whether o traces the same curve as e, and whether it
// runs the opposite way.
func (b *Builder) sameEdge(e, o EdgeID) (flipped, same bool) {
	ee, oe := b.edges[e], b.edges[o]
	eps := 10 * b.tol.EpsAt(b.Point(ee.Start))
	for _, s := range []float64{0.25, 0.5, 0.75} {
		p := oe.Curve.At(oe.Range.Lerp(s))
		if _, d := geom.ClosestPoint(ee.Curve, ee.Range, p); d > eps {
			return false, false
		}
	}
	if ee.Start != ee.End {
		return oe.Start != ee.Start, true
	}
	tm := oe.Range.Mid()
	te, _ := geom.ClosestPoint(ee.Curve, ee.Range, oe.Curve.At(tm))
	return ee.Curve.Deriv(te, 1).Dot(oe.Curve.Deriv(tm, 1)) < 0, true
}

// Close checks that every shell is closed and publishes the reachable
// entities as a Solid with compact IDs.
func (b *Builder) Close(shells ...ShellID) (*Solid, error) {
	const op = "close"
	if len(shells) == 0 {
		return nil, entityErr[ShellID](op, KindShell, ErrEmptyShell)
	}
	for _, sh := range shells {
		if !b.hasShell(sh) {
			return nil, entityErr(op, KindShell, ErrUnknownEntity, sh)
		}
		if len(b.shells[sh].Faces) == 0 {
			return nil, entityErr(op, KindShell, ErrEmptyShell, sh)
		}
		count := map[EdgeID]int{}
		for _, f := range b.shells[sh].Faces {
			for u := range b.FaceEdges(f) {
				count[u.Edge]++
			}
		}
		var open []EdgeID
		for e, n := range count {
			if n != 2 {
				open = append(open, e)
			}
		}
		if len(open) > 0 {
			slices.Sort(open)
			return nil, entityErr(op, KindEdge, fmt.Errorf("shell %d: %w", sh, ErrNotClosed), open...)
		}
	}
	return b.compact(shells), nil
}

func (b *Builder) compact(shells []ShellID) *Solid {
	s := &Solid{arena: arena{tol: b.tol}, adj: map[EdgeID][]FaceID{}}
	vmap := map[VertexID]VertexID{}
	emap := map[EdgeID]EdgeID{}
	vertex := func(v VertexID) VertexID {
		if id, ok := vmap[v]; ok {
			return id
		}
		s.vertices = append(s.vertices, b.vertices[v])
		vmap[v] = VertexID(len(s.vertices) - 1)
		return vmap[v]
	}
	edge := func(e EdgeID) EdgeID {
		if id, ok := emap[e]; ok {
			return id
		}
		ed := b.edges[e]
		ed.Start, ed.End = vertex(ed.Start), vertex(ed.End)
		s.edges = append(s.edges, ed)
		emap[e] = EdgeID(len(s.edges) - 1)
		return emap[e]
	}
	wire := func(w WireID) WireID {
		uses := make([]Use, len(b.wires[w].Uses))
		for k, u := range b.wires[w].Uses {
			uses[k] = Use{Edge: edge(u.Edge), Reversed: u.Reversed}
		}
		s.wires = append(s.wires, Wire{Uses: uses})
		return WireID(len(s.wires) - 1)
	}
	for _, sh := range shells {
		var fs []FaceID
		for _, f := range b.shells[sh].Faces {
			face := b.faces[f]
			nf := Face{Surface: face.Surface, Reversed: face.Reversed, Outer: wire(face.Outer)}
			for _, w := range face.Inner {
				nf.Inner = append(nf.Inner, wire(w))
			}
			s.faces = append(s.faces, nf)
			id := FaceID(len(s.faces) - 1)
			fs = append(fs, id)
			for u := range s.FaceEdges(id) {
				s.adj[u.Edge] = append(s.adj[u.Edge], id)
			}
		}
		s.shells = append(s.shells, Shell{Faces: fs})
		s.shellIDs = append(s.shellIDs, ShellID(len(s.shells)-1))
	}
	return s
}

// AddSolid copies every entity of s into the builder and returns the IDs
// of its shells there.
func (b *Builder) AddSolid(s *Solid) []ShellID {
	vo, eo, wo, fo, so := len(b.vertices), len(b.edges), len(b.wires), len(b.faces), len(b.shells)
	b.vertices = append(b.vertices, s.vertices...)
	for _, e := range s.edges {
		e.Start += VertexID(vo)
		e.End += VertexID(vo)
		b.edges = append(b.edges, e)
	}
	for _, w := range s.wires {
		uses := make([]Use, len(w.Uses))
		for k, u := range w.Uses {
			uses[k] = Use{Edge: u.Edge + EdgeID(eo), Reversed: u.Reversed}
		}
		b.wires = append(b.wires, Wire{Uses: uses})
	}
	for _, f := range s.faces {
		nf := Face{Surface: f.Surface, Reversed: f.Reversed, Outer: f.Outer + WireID(wo)}
		for _, w := range f.Inner {
			nf.Inner = append(nf.Inner, w+WireID(wo))
		}
		b.faces = append(b.faces, nf)
	}
	var out []ShellID
	for _, sh := range s.shells {
		b.shells = append(b.shells, Shell{Faces: lo.Map(sh.Faces, func(f FaceID, _ int) FaceID { return f + FaceID(fo) })})
	}
	for _, id := range s.shellIDs {
		out = append(out, id+ShellID(so))
	}
	return out
}

// Copy returns a solid with the same boundary and shared geometry.
func Copy(s *Solid) *Solid {
	b := NewBuilder(s.tol)
	return b.compact(b.AddSolid(s))
}

// Merge places the shells of several solids side by side in one solid.
// The solids are assumed not to touch.
func Merge(tol geom.Tolerance, solids ...*Solid) *Solid {
	b := NewBuilder(tol)
	var shells []ShellID
	for _, s := range solids {
		shells = append(shells, b.AddSolid(s)...)
	}
	if len(shells) == 0 {
		return EmptySolid(tol)
	}
	return b.compact(shells)
}

// Components groups the faces of a solid into edge-connected sets.
func (s *Solid) Components() [][]FaceID {
	seen := make([]bool, len(s.faces))
	var out [][]FaceID
	for f := range s.AllFaces() {
		if seen[f] {
			continue
		}
		var comp []FaceID
		stack := []FaceID{f}
		seen[f] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, cur)
			for u := range s.FaceEdges(cur) {
				for _, n := range s.adj[u.Edge] {
					if !seen[n] {
						seen[n] = true
						stack = append(stack, n)
					}
				}
			}
		}
		slices.Sort(comp)
		out = append(out, comp)
	}
	return out
}

// FaceBounds returns a box around a face: its edges plus a grid of
// interior surface samples, padded slightly.
func (s *Solid) FaceBounds(f FaceID) geom.Box {
	bx := geom.EmptyBox()
	for u := range s.FaceEdges(f) {
		e := s.edges[u.Edge]
		bx = geom.Merge(bx, geom.CurveBounds(e.Curve, e.Range))
	}
	if _, ok := s.faces[f].Surface.(*geom.Plane); !ok {
		d := s.FaceDomain(f, nil)
		const n = 8
		for i := 0; i <= n; i++ {
			for j := 0; j <= n; j++ {
				uv := geom.Param(d.U.Lerp(float64(i)/n), d.V.Lerp(float64(j)/n))
				if d.Locate(uv, 0) != planar.Outside {
					bx = geom.Extend(bx, d.Surface.At(uv))
				}
			}
		}
		bx = geom.Grow(bx, 0.01*geom.Diagonal(bx))
	}
	return bx
}

// Bounds returns a box around the whole solid.
func (s *Solid) Bounds() geom.Box {
	bx := geom.EmptyBox()
	for f := range s.AllFaces() {
		bx = geom.Merge(bx, s.FaceBounds(f))
	}
	return bx
}

// Transform returns the solid moved by a rigid motion. Geometry is
// transformed; topology is shared in structure but not in memory.
func Transform(s *Solid, m geom.Matrix) *Solid {
	out := Copy(s)
	for i := range out.vertices {
		out.vertices[i].Point = m.MulPosition(out.vertices[i].Point)
	}
	for i := range out.edges {
		out.edges[i].Curve = out.edges[i].Curve.Transform(m)
	}
	for i := range out.faces {
		out.faces[i].Surface = out.faces[i].Surface.Transform(m)
	}
	return out
}

// Scale is the magnitude used for the relative part of ε on this solid.
func (s *Solid) Scale() float64 {
	m := 0.0
	for _, v := range s.vertices {
		m = math.Max(m, geom.Magnitude(v.Point))
	}
	return m
}
