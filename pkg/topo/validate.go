package topo

import "fmt"

// Severity indicates whether a finding makes the solid unusable.
type Severity int

const (
	SeverityError   Severity = iota // solid is not a valid manifold
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Entity names the subject of a finding.
type Entity struct {
	Kind Kind
	ID   int
}

// Finding is one result of Validate.
type Finding struct {
	Severity Severity
	Message  string
	Entity   Entity
}

func (f Finding) Error() string {
	return fmt.Sprintf("[%s] %s %d: %s", f.Severity, f.Entity.Kind, f.Entity.ID, f.Message)
}

// Euler holds the Euler characteristic of one shell.
type Euler struct {
	Shell                         ShellID
	Vertices, Edges, Faces, Holes int
	Genus                         int
}

// Characteristic is V - E + F - H.
func (e Euler) Characteristic() int { return e.Vertices - e.Edges + e.Faces - e.Holes }

// ShellEuler counts the entities of a shell. For a closed orientable shell
// the characteristic is 2 - 2·genus.
func (s *Solid) ShellEuler(sh ShellID) Euler {
	vs := map[VertexID]bool{}
	es := map[EdgeID]bool{}
	e := Euler{Shell: sh, Faces: len(s.shells[sh].Faces)}
	for _, f := range s.shells[sh].Faces {
		e.Holes += len(s.faces[f].Inner)
		for u := range s.FaceEdges(f) {
			es[u.Edge] = true
			vs[s.edges[u.Edge].Start] = true
			vs[s.edges[u.Edge].End] = true
		}
	}
	e.Vertices, e.Edges = len(vs), len(es)
	e.Genus = (2 - e.Characteristic()) / 2
	return e
}

// Validate checks the manifold invariants of a solid: every edge used by
// exactly two faces in opposite directions, wires that close, edge curves
// that meet their vertices, and an even Euler characteristic per shell.
// An empty result means the solid is valid. The solid is not modified.
func Validate(s *Solid) []Finding {
	var out []Finding
	out = append(out, validateEdges(s)...)
	out = append(out, validateWires(s)...)
	out = append(out, validateShells(s)...)
	return out
}

func validateEdges(s *Solid) []Finding {
	var out []Finding
	type tally struct{ fwd, rev int }
	uses := make([]tally, len(s.edges))
	for f := range s.AllFaces() {
		for u := range s.FaceEdges(f) {
			if u.Reversed {
				uses[u.Edge].rev++
			} else {
				uses[u.Edge].fwd++
			}
		}
	}
	for e := range s.AllEdges() {
		ed := s.edges[e]
		if t := uses[e]; t.fwd != 1 || t.rev != 1 {
			out = append(out, Finding{
				Severity: SeverityError,
				Message:  fmt.Sprintf("edge used %d times forward and %d reversed, want one of each", t.fwd, t.rev),
				Entity:   Entity{KindEdge, int(e)},
			})
		}
		p0, p1 := ed.Curve.At(ed.Range.Min), ed.Curve.At(ed.Range.Max)
		if !s.tol.Coincident(p0, s.Point(ed.Start)) || !s.tol.Coincident(p1, s.Point(ed.End)) {
			out = append(out, Finding{
				Severity: SeverityError,
				Message:  "curve end points do not meet the edge vertices",
				Entity:   Entity{KindEdge, int(e)},
			})
		}
	}
	return out
}

func validateWires(s *Solid) []Finding {
	var out []Finding
	for w := range s.wires {
		uses := s.wires[w].Uses
		for i, u := range uses {
			next := uses[(i+1)%len(uses)]
			if s.UseEnd(u) != s.UseStart(next) {
				out = append(out, Finding{
					Severity: SeverityError,
					Message:  fmt.Sprintf("use %d ends at vertex %d but use %d starts at %d", i, s.UseEnd(u), (i+1)%len(uses), s.UseStart(next)),
					Entity:   Entity{KindWire, w},
				})
			}
		}
	}
	return out
}

func validateShells(s *Solid) []Finding {
	var out []Finding
	for sh := range s.Shells() {
		if len(s.shells[sh].Faces) == 0 {
			out = append(out, Finding{Severity: SeverityError, Message: "shell has no faces", Entity: Entity{KindShell, int(sh)}})
			continue
		}
		e := s.ShellEuler(sh)
		if c := e.Characteristic(); c%2 != 0 || c > 2 {
			out = append(out, Finding{
				Severity: SeverityError,
				Message:  fmt.Sprintf("Euler characteristic V-E+F-H = %d-%d+%d-%d = %d is not 2-2g", e.Vertices, e.Edges, e.Faces, e.Holes, c),
				Entity:   Entity{KindShell, int(sh)},
			})
		} else if e.Genus > 0 {
			out = append(out, Finding{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("shell has genus %d", e.Genus),
				Entity:   Entity{KindShell, int(sh)},
			})
		}
	}
	return out
}

// Errors returns only the blocking findings.
func Errors(fs []Finding) []Finding {
	var out []Finding
	for _, f := range fs {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}
