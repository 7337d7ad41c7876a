// Package evaluate walks a design graph and builds solids with a geometry
// kernel. Boolean nodes are combined into a single solid; every other
// subtree yields one part, and each part is tessellated into one mesh.
package evaluate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/kerf/pkg/graph"
	"github.com/chazu/kerf/pkg/kernel"
)

// Part is one evaluated solid together with the node that produced it.
type Part struct {
	Name  string
	Node  graph.NodeID
	Solid kernel.Solid
}

// Evaluator builds solids for a design graph. The graph is never mutated.
type Evaluator struct {
	kernel kernel.Kernel
	log    *zap.Logger
	memo   map[graph.NodeID][]Part
}

// New returns an Evaluator using k. A nil logger disables logging.
func New(k kernel.Kernel, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{kernel: k, log: log}
}

// Evaluate walks g and produces one triangle mesh per part.
func Evaluate(g *graph.DesignGraph, k kernel.Kernel) ([]*kernel.Mesh, error) {
	return New(k, nil).Meshes(g)
}

// Parts evaluates every root of g in order.
func (e *Evaluator) Parts(g *graph.DesignGraph) ([]Part, error) {
	if g == nil {
		return nil, nil
	}
	e.memo = make(map[graph.NodeID][]Part)
	defer func() { e.memo = nil }()

	var parts []Part
	for _, rootID := range g.Roots {
		root := g.Get(rootID)
		if root == nil {
			continue
		}
		collected, err := e.walk(g, root)
		if err != nil {
			return nil, fmt.Errorf("evaluate: root %s: %w", rootID.Short(), err)
		}
		parts = append(parts, collected...)
	}
	return parts, nil
}

// Meshes evaluates g and tessellates each part.
func (e *Evaluator) Meshes(g *graph.DesignGraph) ([]*kernel.Mesh, error) {
	parts, err := e.Parts(g)
	if err != nil {
		return nil, err
	}
	return e.Tessellate(parts)
}

// Tessellate produces one mesh per part, named after the part.
func (e *Evaluator) Tessellate(parts []Part) ([]*kernel.Mesh, error) {
	meshes := make([]*kernel.Mesh, 0, len(parts))
	for _, p := range parts {
		mesh, err := e.kernel.ToMesh(p.Solid)
		if err != nil {
			return nil, fmt.Errorf("evaluate: mesh for %s: %w", p.Name, err)
		}
		mesh.PartName = p.Name
		e.log.Debug("tessellated part",
			zap.String("part", p.Name),
			zap.Int("triangles", mesh.TriangleCount()))
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// walk returns the parts produced by n. Results are memoized per node:
// transforms are applied by the parent, so a node's parts do not depend
// on where it is referenced from.
func (e *Evaluator) walk(g *graph.DesignGraph, n *graph.Node) ([]Part, error) {
	if parts, ok := e.memo[n.ID]; ok {
		return parts, nil
	}

	var (
		parts []Part
		err   error
	)
	switch n.Kind {
	case graph.NodePrimitive:
		parts, err = e.primitive(n)
	case graph.NodeTransform:
		parts, err = e.transform(g, n)
	case graph.NodeBoolean:
		parts, err = e.boolean(g, n)
	case graph.NodeGroup:
		parts, err = e.group(g, n)
	default:
		err = fmt.Errorf("unknown node kind: %v", n.Kind)
	}
	if err != nil {
		return nil, err
	}
	e.memo[n.ID] = parts
	return parts, nil
}

func partName(n *graph.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID.Short()
}

func vec(v graph.Vec3) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func profile(pts []graph.Vec3) [][3]float64 {
	out := make([][3]float64, len(pts))
	for i, p := range pts {
		out[i] = vec(p)
	}
	return out
}

// primitive creates geometry for a primitive node.
func (e *Evaluator) primitive(n *graph.Node) ([]Part, error) {
	var (
		solid kernel.Solid
		err   error
	)
	switch data := n.Data.(type) {
	case graph.BoxData:
		solid, err = e.kernel.Box(data.Size.X, data.Size.Y, data.Size.Z)
	case graph.CylinderData:
		solid, err = e.kernel.Cylinder(data.Radius, data.Height)
	case graph.SphereData:
		solid, err = e.kernel.Sphere(data.Radius)
		if err == nil && !data.Center.IsZero() {
			solid = e.kernel.Translate(solid, data.Center.X, data.Center.Y, data.Center.Z)
		}
	case graph.ExtrudeData:
		solid, err = e.kernel.Extrude(profile(data.Profile), vec(data.Direction))
	case graph.RevolveData:
		solid, err = e.kernel.Revolve(profile(data.Profile), vec(data.Origin), vec(data.Axis), data.Angle)
	default:
		return nil, fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}
	if err != nil {
		return nil, fmt.Errorf("primitive %s: %w", partName(n), err)
	}
	return []Part{{Name: partName(n), Node: n.ID, Solid: solid}}, nil
}

// transform applies rotation first, then translation, to every part of
// its children. Part names are inherited from the children.
func (e *Evaluator) transform(g *graph.DesignGraph, n *graph.Node) ([]Part, error) {
	td, ok := n.Data.(graph.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}

	var parts []Part
	for _, child := range g.Children(n) {
		collected, err := e.walk(g, child)
		if err != nil {
			return nil, err
		}
		for _, p := range collected {
			s := p.Solid
			if td.Rotation != nil && !td.Rotation.IsZero() {
				r := *td.Rotation
				s = e.kernel.Rotate(s, r.X, r.Y, r.Z)
			}
			if td.Translation != nil && !td.Translation.IsZero() {
				t := *td.Translation
				s = e.kernel.Translate(s, t.X, t.Y, t.Z)
			}
			parts = append(parts, Part{Name: p.Name, Node: p.Node, Solid: s})
		}
	}
	return parts, nil
}

// operand evaluates one boolean operand, which must yield exactly one solid.
func (e *Evaluator) operand(g *graph.DesignGraph, n *graph.Node, id graph.NodeID) (kernel.Solid, error) {
	child := g.Get(id)
	if child == nil {
		return nil, fmt.Errorf("boolean %s: operand %s not found", partName(n), id.Short())
	}
	parts, err := e.walk(g, child)
	if err != nil {
		return nil, err
	}
	if len(parts) != 1 {
		return nil, fmt.Errorf("boolean %s: operand %s yields %d solids, want 1", partName(n), partName(child), len(parts))
	}
	return parts[0].Solid, nil
}

// boolean combines its two children into one part.
func (e *Evaluator) boolean(g *graph.DesignGraph, n *graph.Node) ([]Part, error) {
	bd, ok := n.Data.(graph.BooleanData)
	if !ok {
		return nil, fmt.Errorf("boolean node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	if len(n.Children) != 2 {
		return nil, fmt.Errorf("boolean %s has %d operands, want 2", partName(n), len(n.Children))
	}
	a, err := e.operand(g, n, n.Children[0])
	if err != nil {
		return nil, err
	}
	b, err := e.operand(g, n, n.Children[1])
	if err != nil {
		return nil, err
	}

	var solid kernel.Solid
	switch bd.Op {
	case graph.OpUnion:
		solid, err = e.kernel.Union(a, b)
	case graph.OpDifference:
		solid, err = e.kernel.Difference(a, b)
	case graph.OpIntersection:
		solid, err = e.kernel.Intersection(a, b)
	default:
		return nil, fmt.Errorf("boolean %s: unknown op %v", partName(n), bd.Op)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", bd.Op, partName(n), err)
	}
	e.log.Debug("evaluated boolean", zap.String("node", partName(n)), zap.Stringer("op", bd.Op))
	return []Part{{Name: partName(n), Node: n.ID, Solid: solid}}, nil
}

// group recurses into children transparently.
func (e *Evaluator) group(g *graph.DesignGraph, n *graph.Node) ([]Part, error) {
	var parts []Part
	for _, child := range g.Children(n) {
		collected, err := e.walk(g, child)
		if err != nil {
			return nil, err
		}
		parts = append(parts, collected...)
	}
	return parts, nil
}
