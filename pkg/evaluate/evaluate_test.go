package evaluate_test

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/kerf/pkg/evaluate"
	"github.com/chazu/kerf/pkg/graph"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/brep"
)

// newKernel returns a fresh B-rep kernel for testing.
func newKernel() kernel.Kernel {
	return brep.New(brep.Options{})
}

func makeBox(name string, x, y, z float64) *graph.Node {
	return &graph.Node{
		ID:   graph.NewNodeID(name),
		Kind: graph.NodePrimitive,
		Name: name,
		Data: graph.BoxData{Size: graph.Vec3{X: x, Y: y, Z: z}},
	}
}

func makeCylinder(name string, r, h float64) *graph.Node {
	return &graph.Node{
		ID:   graph.NewNodeID(name),
		Kind: graph.NodePrimitive,
		Name: name,
		Data: graph.CylinderData{Radius: r, Height: h},
	}
}

// makePlaceTransform creates a transform node with a translation.
func makePlaceTransform(name string, tx, ty, tz float64, children ...graph.NodeID) *graph.Node {
	t := graph.Vec3{X: tx, Y: ty, Z: tz}
	return &graph.Node{
		ID:       graph.NewNodeID(name),
		Kind:     graph.NodeTransform,
		Name:     name,
		Children: children,
		Data:     graph.TransformData{Translation: &t},
	}
}

func makeBoolean(name string, op graph.BooleanOp, a, b graph.NodeID) *graph.Node {
	return &graph.Node{
		ID:       graph.NewNodeID(name),
		Kind:     graph.NodeBoolean,
		Name:     name,
		Children: []graph.NodeID{a, b},
		Data:     graph.BooleanData{Op: op},
	}
}

// makeGroup creates a group node with children.
func makeGroup(name string, children ...graph.NodeID) *graph.Node {
	return &graph.Node{
		ID:       graph.NewNodeID(name),
		Kind:     graph.NodeGroup,
		Name:     name,
		Children: children,
		Data:     graph.GroupData{Description: name},
	}
}

func centroid(m *kernel.Mesh) (cx, cy, cz float64) {
	n := m.VertexCount()
	for i := 0; i < n; i++ {
		cx += float64(m.Vertices[i*3])
		cy += float64(m.Vertices[i*3+1])
		cz += float64(m.Vertices[i*3+2])
	}
	return cx / float64(n), cy / float64(n), cz / float64(n)
}

func TestSingleBox(t *testing.T) {
	g := graph.New()
	box := makeBox("shelf", 600, 300, 18)
	g.AddNode(box)
	g.AddRoot(box.ID)

	meshes, err := evaluate.Evaluate(g, newKernel())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.PartName != "shelf" {
		t.Errorf("expected PartName %q, got %q", "shelf", m.PartName)
	}
	if m.VertexCount() != 8 || m.TriangleCount() != 12 {
		t.Errorf("box mesh has %d vertices and %d triangles, want 8 and 12", m.VertexCount(), m.TriangleCount())
	}
}

func TestTwoParts(t *testing.T) {
	g := graph.New()
	side := makeBox("side-panel", 400, 300, 18)
	top := makeBox("top-panel", 600, 300, 18)
	g.AddNode(side)
	g.AddNode(top)
	g.AddRoot(side.ID)
	g.AddRoot(top.ID)

	meshes, err := evaluate.Evaluate(g, newKernel())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	if meshes[0].PartName != "side-panel" || meshes[1].PartName != "top-panel" {
		t.Errorf("meshes out of root order: %q, %q", meshes[0].PartName, meshes[1].PartName)
	}
}

func TestPartWithTransform(t *testing.T) {
	g := graph.New()
	box := makeBox("shelf", 100, 50, 10)
	g.AddNode(box)
	place := makePlaceTransform("place-shelf", 200, 100, 50, box.ID)
	g.AddNode(place)
	g.AddRoot(place.ID)

	meshes, err := evaluate.Evaluate(g, newKernel())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	if meshes[0].PartName != "shelf" {
		t.Errorf("expected PartName %q, got %q", "shelf", meshes[0].PartName)
	}

	// The box spans (200,100,50)-(300,150,60).
	cx, cy, cz := centroid(meshes[0])
	const tol = 1e-3
	if math.Abs(cx-250) > tol || math.Abs(cy-125) > tol || math.Abs(cz-55) > tol {
		t.Errorf("centroid = (%.3f, %.3f, %.3f), expected (250, 125, 55)", cx, cy, cz)
	}
}

func TestNestedTransforms(t *testing.T) {
	g := graph.New()
	box := makeBox("block", 10, 10, 10)
	inner := makePlaceTransform("inner", 5, 0, 0, box.ID)
	outer := makePlaceTransform("outer", 0, 7, 0, inner.ID)
	for _, n := range []*graph.Node{box, inner, outer} {
		g.AddNode(n)
	}
	g.AddRoot(outer.ID)

	meshes, err := evaluate.Evaluate(g, newKernel())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	min, max := meshes[0].Bounds()
	if min != [3]float32{5, 7, 0} || max != [3]float32{15, 17, 10} {
		t.Errorf("bounds = %v..%v, expected (5,7,0)..(15,17,10)", min, max)
	}
}

func TestBooleanDifference(t *testing.T) {
	g := graph.New()
	plate := makeBox("plate", 40, 40, 5)
	hole := makeCylinder("hole", 5, 15)
	placed := makePlaceTransform("place-hole", 20, 20, -5, hole.ID)
	drilled := makeBoolean("drilled", graph.OpDifference, plate.ID, placed.ID)
	for _, n := range []*graph.Node{plate, hole, placed, drilled} {
		g.AddNode(n)
	}
	g.AddRoot(drilled.ID)

	parts, err := evaluate.New(newKernel(), nil).Parts(g)
	if err != nil {
		t.Fatalf("Parts failed: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if parts[0].Name != "drilled" || parts[0].Node != drilled.ID {
		t.Errorf("part = %q/%s, expected drilled", parts[0].Name, parts[0].Node.Short())
	}

	solid, ok := parts[0].Solid.(*brep.Solid)
	if !ok {
		t.Fatalf("part solid is %T", parts[0].Solid)
	}
	topology := solid.Topology()
	for sh := range topology.Shells() {
		if chi := topology.ShellEuler(sh).Characteristic(); chi != 0 {
			t.Errorf("drilled plate has Euler characteristic %d, want 0", chi)
		}
	}
}

func TestBooleanUnionMesh(t *testing.T) {
	g := graph.New()
	a := makeBox("a", 1, 1, 1)
	b := makeBox("b", 1, 1, 1)
	moved := makePlaceTransform("move-b", 0.5, 0.5, 0.5, b.ID)
	u := makeBoolean("both", graph.OpUnion, a.ID, moved.ID)
	for _, n := range []*graph.Node{a, b, moved, u} {
		g.AddNode(n)
	}
	g.AddRoot(u.ID)

	meshes, err := evaluate.Evaluate(g, newKernel())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	min, max := meshes[0].Bounds()
	if min != [3]float32{0, 0, 0} || max != [3]float32{1.5, 1.5, 1.5} {
		t.Errorf("bounds = %v..%v", min, max)
	}
}

func TestSharedNode(t *testing.T) {
	g := graph.New()
	box := makeBox("peg", 1, 1, 1)
	left := makePlaceTransform("left", 0, 0, 0, box.ID)
	right := makePlaceTransform("right", 5, 0, 0, box.ID)
	group := makeGroup("pegs", left.ID, right.ID)
	for _, n := range []*graph.Node{box, left, right, group} {
		g.AddNode(n)
	}
	g.AddRoot(group.ID)

	meshes, err := evaluate.Evaluate(g, newKernel())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	c0, _, _ := centroid(meshes[0])
	c1, _, _ := centroid(meshes[1])
	if math.Abs(c0-0.5) > 1e-6 || math.Abs(c1-5.5) > 1e-6 {
		t.Errorf("peg centroids x = %.3f, %.3f, expected 0.5 and 5.5", c0, c1)
	}
}

func TestBooleanOperandMustBeSingle(t *testing.T) {
	g := graph.New()
	a := makeBox("a", 1, 1, 1)
	b := makeBox("b", 1, 1, 1)
	c := makeBox("c", 1, 1, 1)
	group := makeGroup("pair", b.ID, c.ID)
	u := makeBoolean("bad", graph.OpUnion, a.ID, group.ID)
	for _, n := range []*graph.Node{a, b, c, group, u} {
		g.AddNode(n)
	}
	g.AddRoot(u.ID)

	_, err := evaluate.Evaluate(g, newKernel())
	if err == nil {
		t.Fatal("expected error for group operand")
	}
	if !strings.Contains(err.Error(), "yields 2 solids") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPrimitiveError(t *testing.T) {
	g := graph.New()
	box := makeBox("flat", 1, 0, 1)
	g.AddNode(box)
	g.AddRoot(box.ID)

	if _, err := evaluate.Evaluate(g, newKernel()); err == nil {
		t.Fatal("expected error for zero-thickness box")
	}
}

func TestEmptyGraph(t *testing.T) {
	meshes, err := evaluate.Evaluate(graph.New(), newKernel())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(meshes) != 0 {
		t.Fatalf("expected 0 meshes, got %d", len(meshes))
	}

	meshes, err = evaluate.Evaluate(nil, newKernel())
	if err != nil || meshes != nil {
		t.Fatalf("nil graph: got %v, %v", meshes, err)
	}
}
