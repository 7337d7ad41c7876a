package graph

import "testing"

func TestNewDesignGraph(t *testing.T) {
	g := New()
	if g.Nodes == nil {
		t.Fatal("Nodes map should be initialized")
	}
	if g.NameIndex == nil {
		t.Fatal("NameIndex map should be initialized")
	}
	if g.Defaults.Units != "mm" {
		t.Errorf("default units = %q, want %q", g.Defaults.Units, "mm")
	}
	if g.NodeCount() != 0 {
		t.Errorf("empty graph should have 0 nodes, got %d", g.NodeCount())
	}
}

func TestAddNodeAndLookup(t *testing.T) {
	g := New()

	id := NewNodeID("defpart/bracket")
	node := &Node{
		ID:   id,
		Kind: NodePrimitive,
		Name: "bracket",
		Data: BoxData{Size: Vec3{40, 20, 5}},
	}
	g.AddNode(node)
	g.AddRoot(id)
	g.AddRoot(id)

	if g.NodeCount() != 1 {
		t.Errorf("node count = %d, want 1", g.NodeCount())
	}

	found := g.Lookup("bracket")
	if found == nil {
		t.Fatal("Lookup('bracket') returned nil")
	}
	if found.ID != id {
		t.Errorf("lookup returned wrong node")
	}

	must := g.MustLookup("bracket")
	if must.ID != id {
		t.Errorf("MustLookup returned wrong node")
	}

	if g.Lookup("nonexistent") != nil {
		t.Error("Lookup should return nil for missing name")
	}

	got := g.Get(id)
	if got == nil || got.Name != "bracket" {
		t.Errorf("Get by ID failed")
	}

	if len(g.Roots) != 1 || g.Roots[0] != id {
		t.Errorf("roots = %v, want [%s]", g.Roots, id.Short())
	}

	g.RemoveRoot(id)
	if len(g.Roots) != 0 {
		t.Errorf("roots after RemoveRoot = %v, want none", g.Roots)
	}
}

func TestMustLookupPanics(t *testing.T) {
	g := New()
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustLookup should panic on missing name")
		}
	}()
	g.MustLookup("missing")
}

func TestPrimitivesAndBooleans(t *testing.T) {
	g := New()

	plateID := NewNodeID("defpart/plate")
	holeID := NewNodeID("defpart/hole")
	cutID := NewNodeID("difference/plate-hole")

	g.AddNode(&Node{
		ID: plateID, Kind: NodePrimitive, Name: "plate",
		Data: BoxData{Size: Vec3{100, 60, 8}},
	})
	g.AddNode(&Node{
		ID: holeID, Kind: NodePrimitive, Name: "hole",
		Data: CylinderData{Radius: 5, Height: 20},
	})
	g.AddNode(&Node{
		ID: cutID, Kind: NodeBoolean,
		Children: []NodeID{plateID, holeID},
		Data:     BooleanData{Op: OpDifference},
	})

	if n := len(g.Primitives()); n != 2 {
		t.Errorf("Primitives() count = %d, want 2", n)
	}
	if n := len(g.Booleans()); n != 1 {
		t.Errorf("Booleans() count = %d, want 1", n)
	}
}

func TestChildren(t *testing.T) {
	g := New()

	childID := NewNodeID("defpart/shaft")
	parentID := NewNodeID("group/spindle")

	g.AddNode(&Node{
		ID: childID, Kind: NodePrimitive, Name: "shaft",
		Data: CylinderData{Radius: 4, Height: 120},
	})
	g.AddNode(&Node{
		ID: parentID, Kind: NodeGroup, Name: "spindle",
		Children: []NodeID{childID, NewNodeID("missing")},
		Data:     GroupData{},
	})

	parent := g.Get(parentID)
	children := g.Children(parent)
	if len(children) != 1 {
		t.Fatalf("Children count = %d, want 1", len(children))
	}
	if children[0].Name != "shaft" {
		t.Errorf("child name = %q, want %q", children[0].Name, "shaft")
	}
}

func TestNodeIDDeterministic(t *testing.T) {
	a := NewNodeID("defpart/front")
	b := NewNodeID("defpart/front")
	if a != b {
		t.Error("same path should produce same NodeID")
	}

	c := NewNodeID("defpart/back")
	if a == c {
		t.Error("different paths should produce different NodeIDs")
	}
}

func TestNodeIDZero(t *testing.T) {
	var id NodeID
	if !id.IsZero() {
		t.Error("zero-value NodeID should be zero")
	}
	id = NewNodeID("something")
	if id.IsZero() {
		t.Error("non-zero NodeID should not be zero")
	}
}

func TestVec3(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}

	sum := a.Add(b)
	if sum != (Vec3{5, 7, 9}) {
		t.Errorf("Add = %v, want (5, 7, 9)", sum)
	}

	scaled := a.Scale(2)
	if scaled != (Vec3{2, 4, 6}) {
		t.Errorf("Scale = %v, want (2, 4, 6)", scaled)
	}

	if !(Vec3{}).IsZero() || a.IsZero() {
		t.Error("IsZero is wrong")
	}
}

func TestNodeDataInterface(t *testing.T) {
	var _ NodeData = BoxData{}
	var _ NodeData = CylinderData{}
	var _ NodeData = SphereData{}
	var _ NodeData = ExtrudeData{}
	var _ NodeData = RevolveData{}
	var _ NodeData = TransformData{}
	var _ NodeData = BooleanData{}
	var _ NodeData = GroupData{}
}

func TestStringers(t *testing.T) {
	if NodePrimitive.String() != "primitive" {
		t.Errorf("NodePrimitive.String() = %q", NodePrimitive.String())
	}
	if NodeBoolean.String() != "boolean" {
		t.Errorf("NodeBoolean.String() = %q", NodeBoolean.String())
	}
	if OpIntersection.String() != "intersection" {
		t.Errorf("OpIntersection.String() = %q", OpIntersection.String())
	}

	id := NewNodeID("test")
	if len(id.Short()) != 12 {
		t.Errorf("Short() len = %d, want 12", len(id.Short()))
	}

	v := Vec3{1.5, 2.5, 3.5}
	if v.String() != "(1.5, 2.5, 3.5)" {
		t.Errorf("Vec3.String() = %q", v.String())
	}
}
