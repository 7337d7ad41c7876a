package graph

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationSeverity indicates whether a validation finding blocks evaluation
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks evaluation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	NodeID  NodeID
	Message string
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// findings collects validation output in a deterministic order.
type findings []ValidationError

func (f *findings) errorf(id NodeID, format string, args ...any) {
	*f = append(*f, ValidationError{NodeID: id, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

func (f *findings) warnf(id NodeID, format string, args ...any) {
	*f = append(*f, ValidationError{NodeID: id, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// sortedIDs returns the node IDs of g in lexical order, so findings do not
// depend on map iteration.
func sortedIDs(g *DesignGraph) []NodeID {
	ids := make([]NodeID, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// label names a node for messages: its user name if it has one.
func label(g *DesignGraph, id NodeID) string {
	if n := g.Nodes[id]; n != nil && n.Name != "" {
		return n.Name
	}
	return id.Short()
}

// Validate runs the structural checks on the design graph. An empty slice
// means the graph is valid. The graph is not modified.
func Validate(g *DesignGraph) []ValidationError {
	var f findings
	ids := sortedIDs(g)
	checkAcyclic(g, ids, &f)
	checkReferences(g, ids, &f)
	checkNames(g, ids, &f)
	checkRoots(g, ids, &f)
	checkKinds(g, ids, &f)
	checkBooleans(g, ids, &f)
	return f
}

// ValidateAll runs the structural and geometric tiers and returns a
// ValidationResult with separated errors and warnings.
func ValidateAll(g *DesignGraph) ValidationResult {
	f := findings(Validate(g))
	checkGeometry(g, sortedIDs(g), &f)

	var result ValidationResult
	for _, e := range f {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{NodeID: e.NodeID, Message: e.Message})
			continue
		}
		result.Errors = append(result.Errors, e)
	}
	return result
}

// checkAcyclic reports the first cycle found, naming the nodes along it.
func checkAcyclic(g *DesignGraph, ids []NodeID, f *findings) {
	done := make(map[NodeID]bool, len(ids))
	var path []NodeID

	var visit func(id NodeID) []NodeID
	visit = func(id NodeID) []NodeID {
		if i := slices.Index(path, id); i >= 0 {
			return append(slices.Clone(path[i:]), id)
		}
		n := g.Nodes[id]
		if done[id] || n == nil {
			return nil
		}
		path = append(path, id)
		for _, c := range n.Children {
			if cyc := visit(c); cyc != nil {
				return cyc
			}
		}
		path = path[:len(path)-1]
		done[id] = true
		return nil
	}

	for _, id := range ids {
		cyc := visit(id)
		if cyc == nil {
			continue
		}
		names := make([]string, len(cyc))
		for i, c := range cyc {
			names[i] = label(g, c)
		}
		f.errorf(cyc[0], "cycle detected: %s", strings.Join(names, " -> "))
		return
	}
}

// checkReferences reports children that are not in the graph.
func checkReferences(g *DesignGraph, ids []NodeID, f *findings) {
	for _, id := range ids {
		for _, c := range g.Nodes[id].Children {
			if g.Nodes[c] == nil {
				f.errorf(id, "child reference %s does not exist", c.Short())
			}
		}
	}
}

// checkNames reports name index entries pointing nowhere and names shared
// by several nodes.
func checkNames(g *DesignGraph, ids []NodeID, f *findings) {
	names := make([]string, 0, len(g.NameIndex))
	for name := range g.NameIndex {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if id := g.NameIndex[name]; g.Nodes[id] == nil {
			f.errorf(ZeroID, "name index entry %q references non-existent node %s", name, id.Short())
		}
	}

	owners := make(map[string]int)
	for _, id := range ids {
		if name := g.Nodes[id].Name; name != "" {
			owners[name]++
			if owners[name] == 2 {
				f.errorf(ZeroID, "duplicate name %q", name)
			}
		}
	}
}

// reachable returns the set of nodes reachable from the roots.
func reachable(g *DesignGraph) map[NodeID]bool {
	seen := make(map[NodeID]bool)
	stack := slices.Clone(g.Roots)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := g.Nodes[id]
		if n == nil || seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, n.Children...)
	}
	return seen
}

// checkRoots reports missing roots and warns about nodes no root reaches.
func checkRoots(g *DesignGraph, ids []NodeID, f *findings) {
	for _, r := range g.Roots {
		if g.Nodes[r] == nil {
			f.errorf(ZeroID, "root reference %s does not exist", r.Short())
		}
	}
	live := reachable(g)
	for _, id := range ids {
		if !live[id] {
			f.warnf(id, "node %q is not reachable from any root (orphan)", label(g, id))
		}
	}
}

// checkKinds checks that each node's data matches its kind and that the
// kind has the right number of children.
func checkKinds(g *DesignGraph, ids []NodeID, f *findings) {
	for _, id := range ids {
		n := g.Nodes[id]
		var want NodeKind
		switch n.Data.(type) {
		case BoxData, CylinderData, SphereData, ExtrudeData, RevolveData:
			want = NodePrimitive
		case TransformData:
			want = NodeTransform
		case BooleanData:
			want = NodeBoolean
		case GroupData:
			want = NodeGroup
		default:
			want = -1
		}
		if want != n.Kind {
			f.errorf(id, "%s node carries %T data", n.Kind, n.Data)
			continue
		}
		switch {
		case n.Kind == NodePrimitive && len(n.Children) > 0:
			f.errorf(id, "primitive has %d children, want none", len(n.Children))
		case n.Kind == NodeTransform && len(n.Children) != 1:
			f.errorf(id, "transform has %d children, want 1", len(n.Children))
		}
	}
}

// checkBooleans checks that every Boolean node has exactly two operands
// and that neither is a group: a group evaluates to several independent
// solids, which a set operation cannot take as one operand.
func checkBooleans(g *DesignGraph, ids []NodeID, f *findings) {
	for _, id := range ids {
		n := g.Nodes[id]
		bd, ok := n.Data.(BooleanData)
		if !ok {
			continue
		}
		if len(n.Children) != 2 {
			f.errorf(id, "%s has %d operands, want 2", bd.Op, len(n.Children))
		} else if bd.Op == OpDifference && n.Children[0] == n.Children[1] {
			f.warnf(id, "difference of a node with itself is always empty")
		}
		for _, c := range n.Children {
			if child := g.Nodes[c]; child != nil && child.Kind == NodeGroup {
				f.errorf(id, "%s operand %s is a group", bd.Op, label(g, c))
			}
		}
	}
}
