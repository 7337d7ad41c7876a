// Package topo is the boundary representation graph: vertices, edges,
// wires, faces and shells held in an arena and addressed by index.
//
// A Builder owns the arena while a model is constructed and checks every
// entity as it is made. Close compacts the reachable entities into a Solid,
// which is never modified afterwards; geometry is shared by reference.
package topo

import (
	"iter"

	"github.com/chazu/kerf/pkg/geom"
)

// VertexID indexes a vertex in its arena.
type VertexID int

// EdgeID indexes an edge in its arena.
type EdgeID int

// WireID indexes a wire in its arena.
type WireID int

// FaceID indexes a face in its arena.
type FaceID int

// ShellID indexes a shell in its arena.
type ShellID int

const (
	// NoVertex marks the absence of a vertex.
	NoVertex VertexID = -1
	// NoEdge marks the absence of an edge.
	NoEdge EdgeID = -1
)

// Vertex is a point in space.
type Vertex struct {
	Point geom.Point
}

// Edge is a bounded piece of a curve between two vertices, with
// Curve(Range.Min) at Start and Curve(Range.Max) at End.
type Edge struct {
	Start, End VertexID
	Curve      geom.Curve
	Range      geom.Interval
}

// Use is an oriented reference to an edge from a wire.
type Use struct {
	Edge     EdgeID
	Reversed bool
}

// Wire is a closed cyclic sequence of edge uses.
type Wire struct {
	Uses []Use
}

// Face is a bounded region of a surface. Reversed flips the surface normal;
// the face normal always points out of the material.
type Face struct {
	Surface  geom.Surface
	Outer    WireID
	Inner    []WireID
	Reversed bool
}

// Shell is a connected set of faces.
type Shell struct {
	Faces []FaceID
}

type arena struct {
	tol      geom.Tolerance
	vertices []Vertex
	edges    []Edge
	wires    []Wire
	faces    []Face
	shells   []Shell
}

// Tolerance is the tolerance the entities were checked against.
func (a *arena) Tolerance() geom.Tolerance { return a.tol }

// Vertex returns a vertex by ID.
func (a *arena) Vertex(id VertexID) Vertex { return a.vertices[id] }

// Edge returns an edge by ID.
func (a *arena) Edge(id EdgeID) Edge { return a.edges[id] }

// Wire returns a wire by ID.
func (a *arena) Wire(id WireID) Wire { return a.wires[id] }

// Face returns a face by ID.
func (a *arena) Face(id FaceID) Face { return a.faces[id] }

// Shell returns a shell by ID.
func (a *arena) Shell(id ShellID) Shell { return a.shells[id] }

// Point is the position of a vertex.
func (a *arena) Point(id VertexID) geom.Point { return a.vertices[id].Point }

// UseStart is the vertex a use leaves from.
func (a *arena) UseStart(u Use) VertexID {
	e := a.edges[u.Edge]
	if u.Reversed {
		return e.End
	}
	return e.Start
}

// UseEnd is the vertex a use arrives at.
func (a *arena) UseEnd(u Use) VertexID {
	e := a.edges[u.Edge]
	if u.Reversed {
		return e.Start
	}
	return e.End
}

func (a *arena) hasVertex(id VertexID) bool { return id >= 0 && int(id) < len(a.vertices) }
func (a *arena) hasEdge(id EdgeID) bool     { return id >= 0 && int(id) < len(a.edges) }
func (a *arena) hasWire(id WireID) bool     { return id >= 0 && int(id) < len(a.wires) }
func (a *arena) hasFace(id FaceID) bool     { return id >= 0 && int(id) < len(a.faces) }
func (a *arena) hasShell(id ShellID) bool   { return id >= 0 && int(id) < len(a.shells) }

// Wires yields the outer wire of a face followed by its holes.
func (a *arena) Wires(f FaceID) iter.Seq[WireID] {
	return func(yield func(WireID) bool) {
		face := a.faces[f]
		if !yield(face.Outer) {
			return
		}
		for _, w := range face.Inner {
			if !yield(w) {
				return
			}
		}
	}
}

// Uses yields the edge uses of a wire in order.
func (a *arena) Uses(w WireID) iter.Seq[Use] {
	return func(yield func(Use) bool) {
		for _, u := range a.wires[w].Uses {
			if !yield(u) {
				return
			}
		}
	}
}

// FaceEdges yields every edge use bounding a face, outer wire first.
func (a *arena) FaceEdges(f FaceID) iter.Seq[Use] {
	return func(yield func(Use) bool) {
		for w := range a.Wires(f) {
			for u := range a.Uses(w) {
				if !yield(u) {
					return
				}
			}
		}
	}
}

// EdgeVertices yields the start and end vertex of an edge.
func (a *arena) EdgeVertices(e EdgeID) iter.Seq[VertexID] {
	return func(yield func(VertexID) bool) {
		if yield(a.edges[e].Start) {
			yield(a.edges[e].End)
		}
	}
}

// Solid is an immutable closed boundary representation. The first shell
// bounds the material from outside; any further shells are voids or, for
// disjoint results, further outer boundaries.
type Solid struct {
	arena
	shellIDs []ShellID
	adj      map[EdgeID][]FaceID
}

// Shells yields the boundary shells.
func (s *Solid) Shells() iter.Seq[ShellID] {
	return func(yield func(ShellID) bool) {
		for _, id := range s.shellIDs {
			if !yield(id) {
				return
			}
		}
	}
}

// Faces yields the faces of one shell.
func (s *Solid) Faces(sh ShellID) iter.Seq[FaceID] {
	return func(yield func(FaceID) bool) {
		for _, f := range s.shells[sh].Faces {
			if !yield(f) {
				return
			}
		}
	}
}

// AllFaces yields every face of the solid.
func (s *Solid) AllFaces() iter.Seq[FaceID] {
	return func(yield func(FaceID) bool) {
		for i := range s.faces {
			if !yield(FaceID(i)) {
				return
			}
		}
	}
}

// AllEdges yields every edge of the solid.
func (s *Solid) AllEdges() iter.Seq[EdgeID] {
	return func(yield func(EdgeID) bool) {
		for i := range s.edges {
			if !yield(EdgeID(i)) {
				return
			}
		}
	}
}

// AllVertices yields every vertex of the solid.
func (s *Solid) AllVertices() iter.Seq[VertexID] {
	return func(yield func(VertexID) bool) {
		for i := range s.vertices {
			if !yield(VertexID(i)) {
				return
			}
		}
	}
}

// EdgeFaces returns the faces using an edge: two for every edge of a
// closed solid.
func (s *Solid) EdgeFaces(e EdgeID) []FaceID { return s.adj[e] }

// Empty reports whether the solid has no boundary, as for the intersection
// of disjoint operands.
func (s *Solid) Empty() bool { return len(s.shellIDs) == 0 }

// Counts is the number of entities of each kind.
type Counts struct {
	Vertices, Edges, Wires, Faces, Shells int
}

// Counts returns the entity counts of the solid.
func (s *Solid) Counts() Counts {
	return Counts{
		Vertices: len(s.vertices),
		Edges:    len(s.edges),
		Wires:    len(s.wires),
		Faces:    len(s.faces),
		Shells:   len(s.shellIDs),
	}
}

// EmptySolid is the solid with no boundary.
func EmptySolid(tol geom.Tolerance) *Solid {
	return &Solid{arena: arena{tol: tol}, adj: map[EdgeID][]FaceID{}}
}
