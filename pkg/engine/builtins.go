package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/kerf/pkg/graph"
)

// Values passed between builtins. zygomys only needs SexpString and Type.

// sexpShape is primitive data that has not become a node yet. defpart
// names it; place, the Booleans and group turn it into an anonymous node.
type sexpShape struct {
	kind string
	data graph.NodeData
}

func (s *sexpShape) SexpString(*zygo.PrintState) string { return "(" + s.kind + " ...)" }
func (s *sexpShape) Type() *zygo.RegisteredType         { return nil }

// sexpNodeRef points at a node already in the graph.
type sexpNodeRef struct {
	id   graph.NodeID
	name string
}

func (r *sexpNodeRef) SexpString(*zygo.PrintState) string {
	if r.name == "" {
		return "(node " + r.id.Short() + ")"
	}
	return fmt.Sprintf("(part %q)", r.name)
}
func (r *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

type sexpVec3 struct{ vec graph.Vec3 }

func (v *sexpVec3) SexpString(*zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// kwArgs is an argument list split into keyword and positional values.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func keyword(s zygo.Sexp) (string, bool) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return strings.CutPrefix(str.S, kwPrefix)
	}
	return "", false
}

// parseArgs splits args on the keyword strings preprocessSource produced.
// A trailing keyword with no value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	out := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := keyword(args[i])
		switch {
		case !ok:
			out.positional = append(out.positional, args[i])
		case i+1 < len(args):
			out.kw[name] = args[i+1]
			i++
		default:
			out.kw[name] = zygo.SexpNull
		}
	}
	return out
}

// float reads a numeric keyword argument, returning def when it is absent.
func (a kwArgs) float(key string, def float64) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	return toFloat64(v)
}

func (a kwArgs) requiredFloat(key string) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return 0, fmt.Errorf(":%s is required", key)
	}
	return toFloat64(v)
}

// vec reads a vec3 keyword argument, returning def when it is absent.
func (a kwArgs) vec(key string, def graph.Vec3) (graph.Vec3, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	return toVec3(v)
}

func describe(s zygo.Sexp) string {
	return fmt.Sprintf("%T (%s)", s, s.SexpString(nil))
}

func toFloat64(s zygo.Sexp) (float64, error) {
	if i, ok := s.(*zygo.SexpInt); ok {
		return float64(i.Val), nil
	}
	if f, ok := s.(*zygo.SexpFloat); ok {
		return f.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %s", describe(s))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %s", describe(s))
}

func toVec3(s zygo.Sexp) (graph.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return graph.Vec3{}, fmt.Errorf("expected vec3, got %s", describe(s))
}

// toProfile extracts a list of vec3 points.
func toProfile(s zygo.Sexp) ([]graph.Vec3, error) {
	items, err := toSlice(s)
	if err != nil {
		return nil, err
	}
	pts := make([]graph.Vec3, 0, len(items))
	for i, item := range items {
		v, err := toVec3(item)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		pts = append(pts, v)
	}
	return pts, nil
}

// toSlice accepts a list, an array or the empty list.
func toSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	}
	if s == zygo.SexpNull {
		return nil, nil
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// builder owns the graph being populated by one evaluation. Every node a
// form creates starts as a root; a node consumed by place, a Boolean or a
// group stops being one.
type builder struct {
	g   *graph.DesignGraph
	seq int
}

func newBuilder(g *graph.DesignGraph) *builder {
	return &builder{g: g}
}

// anonID returns a deterministic ID for an unnamed node. The sequence is
// local to one evaluation, so the same source always yields the same IDs.
func (b *builder) anonID(kind string) graph.NodeID {
	b.seq++
	return graph.NewNodeID(fmt.Sprintf("%s/#%d", kind, b.seq))
}

// claimName fails if name is already taken.
func (b *builder) claimName(form, name string) error {
	if name == "" {
		return fmt.Errorf("%s: name must not be empty", form)
	}
	if b.g.Lookup(name) != nil {
		return fmt.Errorf("%s: duplicate name %q", form, name)
	}
	return nil
}

func (b *builder) add(n *graph.Node, root bool) *sexpNodeRef {
	b.g.AddNode(n)
	for _, c := range n.Children {
		b.g.RemoveRoot(c)
	}
	if root {
		b.g.AddRoot(n.ID)
	}
	return &sexpNodeRef{id: n.ID, name: n.Name}
}

// operand resolves s to a node ID, turning a bare shape into an anonymous
// primitive node.
func (b *builder) operand(s zygo.Sexp) (graph.NodeID, error) {
	switch v := s.(type) {
	case *sexpNodeRef:
		if b.g.Get(v.id) == nil {
			return graph.ZeroID, fmt.Errorf("unknown node %s", v.id.Short())
		}
		return v.id, nil
	case *sexpShape:
		n := &graph.Node{
			ID:   b.anonID(v.kind),
			Kind: graph.NodePrimitive,
			Data: v.data,
		}
		b.g.AddNode(n)
		return n.ID, nil
	}
	return graph.ZeroID, fmt.Errorf("expected shape or node reference, got %T (%s)", s, s.SexpString(nil))
}

// boolean folds operands left to right into binary Boolean nodes. Only the
// outermost node carries the name.
func (b *builder) boolean(form string, op graph.BooleanOp, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) < 2 {
		return zygo.SexpNull, fmt.Errorf("%s requires at least 2 operands, got %d", form, len(pa.positional))
	}
	var name string
	if v, ok := pa.kw["name"]; ok {
		s, err := toString(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: name: %w", form, err)
		}
		if err := b.claimName(form, s); err != nil {
			return zygo.SexpNull, err
		}
		name = s
	}

	ids := make([]graph.NodeID, len(pa.positional))
	for i, arg := range pa.positional {
		id, err := b.operand(arg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: operand %d: %w", form, i+1, err)
		}
		ids[i] = id
	}

	acc := ids[0]
	var ref *sexpNodeRef
	for i, id := range ids[1:] {
		n := &graph.Node{
			Kind:     graph.NodeBoolean,
			Children: []graph.NodeID{acc, id},
			Data:     graph.BooleanData{Op: op},
		}
		if i == len(ids)-2 && name != "" {
			n.ID = graph.NewNodeID(name)
			n.Name = name
		} else {
			n.ID = b.anonID(form)
		}
		ref = b.add(n, true)
		acc = n.ID
	}
	return ref, nil
}

// transform wraps target in a transform node.
func (b *builder) transform(form string, target zygo.Sexp, td graph.TransformData) (zygo.Sexp, error) {
	child, err := b.operand(target)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", form, err)
	}
	return b.add(&graph.Node{
		ID:       b.anonID(form),
		Kind:     graph.NodeTransform,
		Children: []graph.NodeID{child},
		Data:     td,
	}, true), nil
}

// registerBuiltins installs the modeling forms into env. Each form adds
// nodes to g as the script runs; keyword arguments only work on source
// that went through preprocessSource.
func registerBuiltins(env *zygo.Zlisp, g *graph.DesignGraph) {
	b := newBuilder(g)

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: graph.Vec3{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// (box :size (vec3 10 20 30)) or (box 10 20 30)
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var size graph.Vec3
		switch {
		case len(pa.positional) == 3:
			var c [3]float64
			for i, p := range pa.positional {
				f, err := toFloat64(p)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
				}
				c[i] = f
			}
			size = graph.Vec3{X: c[0], Y: c[1], Z: c[2]}
		case pa.kw["size"] != nil:
			v, err := toVec3(pa.kw["size"])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
			}
			size = v
		default:
			return zygo.SexpNull, fmt.Errorf("box requires :size or three dimensions")
		}
		return &sexpShape{kind: "box", data: graph.BoxData{Size: size}}, nil
	})

	// (cylinder :radius 5 :height 20)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		r, err := pa.requiredFloat("radius")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
		}
		h, err := pa.requiredFloat("height")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
		}
		return &sexpShape{kind: "cylinder", data: graph.CylinderData{Radius: r, Height: h}}, nil
	})

	// (sphere :radius 5 :center (vec3 0 0 5))
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		r, err := pa.requiredFloat("radius")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
		}
		c, err := pa.vec("center", graph.Vec3{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: center: %w", err)
		}
		return &sexpShape{kind: "sphere", data: graph.SphereData{Center: c, Radius: r}}, nil
	})

	// (extrude :profile (list (vec3 0 0 0) ...) :direction (vec3 0 0 5))
	// (extrude :profile (list ...) :height 5)
	env.AddFunction("extrude", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, ok := pa.kw["profile"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("extrude: :profile is required")
		}
		profile, err := toProfile(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: profile: %w", err)
		}
		var dir graph.Vec3
		switch {
		case pa.kw["direction"] != nil:
			if dir, err = toVec3(pa.kw["direction"]); err != nil {
				return zygo.SexpNull, fmt.Errorf("extrude: direction: %w", err)
			}
		case pa.kw["height"] != nil:
			h, err := toFloat64(pa.kw["height"])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("extrude: height: %w", err)
			}
			dir = graph.Vec3{Z: h}
		default:
			return zygo.SexpNull, fmt.Errorf("extrude requires :direction or :height")
		}
		return &sexpShape{kind: "extrude", data: graph.ExtrudeData{Profile: profile, Direction: dir}}, nil
	})

	// (revolve :profile (list ...) :origin (vec3 0 0 0) :axis (vec3 0 0 1) :angle 360)
	env.AddFunction("revolve", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, ok := pa.kw["profile"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("revolve: :profile is required")
		}
		profile, err := toProfile(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("revolve: profile: %w", err)
		}
		origin, err := pa.vec("origin", graph.Vec3{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("revolve: origin: %w", err)
		}
		axis, err := pa.vec("axis", graph.Vec3{Z: 1})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("revolve: axis: %w", err)
		}
		angle, err := pa.float("angle", 360)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("revolve: angle: %w", err)
		}
		return &sexpShape{kind: "revolve", data: graph.RevolveData{
			Profile: profile,
			Origin:  origin,
			Axis:    axis,
			Angle:   angle,
		}}, nil
	})

	// (defpart "name" (box ...)) or (defpart "name" (union ...))
	env.AddFunction("defpart", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("defpart requires a name and a body expression")
		}
		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defpart: name: %w", err)
		}
		if err := b.claimName("defpart", partName); err != nil {
			return zygo.SexpNull, err
		}

		switch body := args[1].(type) {
		case *sexpShape:
			return b.add(&graph.Node{
				ID:   graph.NewNodeID(partName),
				Kind: graph.NodePrimitive,
				Name: partName,
				Data: body.data,
			}, true), nil
		case *sexpNodeRef:
			n := g.Get(body.id)
			if n == nil {
				return zygo.SexpNull, fmt.Errorf("defpart: unknown node %s", body.id.Short())
			}
			if n.Name != "" {
				return zygo.SexpNull, fmt.Errorf("defpart: %q is already named %q", partName, n.Name)
			}
			n.Name = partName
			g.NameIndex[partName] = n.ID
			return &sexpNodeRef{id: n.ID, name: partName}, nil
		}
		return zygo.SexpNull, fmt.Errorf("defpart: expected shape expression, got %T", args[1])
	})

	// (part "name")
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("part requires a name argument")
		}
		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}
		n := g.Lookup(partName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("part: no part named %q", partName)
		}
		return &sexpNodeRef{id: n.ID, name: partName}, nil
	})

	// (place (part "pin") :at (vec3 0 0 19) :rotate (vec3 0 0 90))
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a part reference as first argument")
		}
		td := graph.TransformData{}
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
			td.Translation = &vec
		}
		if v, ok := pa.kw["rotate"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: rotate: %w", err)
			}
			td.Rotation = &vec
		}
		return b.transform("place", pa.positional[0], td)
	})

	// (rotate (part "pin") (vec3 90 0 0))
	env.AddFunction("rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("rotate requires a part and a vec3 of angles")
		}
		vec, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: angles: %w", err)
		}
		return b.transform("rotate", args[0], graph.TransformData{Rotation: &vec})
	})

	// (union a b ...), (difference a b ...), (intersection a b ...)
	env.AddFunction("union", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return b.boolean("union", graph.OpUnion, args)
	})
	env.AddFunction("difference", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return b.boolean("difference", graph.OpDifference, args)
	})
	env.AddFunction("intersection", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return b.boolean("intersection", graph.OpIntersection, args)
	})

	// (group "name" (place ...) (part ...) ...)
	env.AddFunction("group", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("group requires a name argument")
		}
		groupName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group: name: %w", err)
		}
		if err := b.claimName("group", groupName); err != nil {
			return zygo.SexpNull, err
		}

		var children []graph.NodeID
		for i := 1; i < len(args); i++ {
			id, err := b.operand(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("group: child %d: %w", i, err)
			}
			children = append(children, id)
		}

		return b.add(&graph.Node{
			ID:       graph.NewNodeID(groupName),
			Kind:     graph.NodeGroup,
			Name:     groupName,
			Children: children,
			Data:     graph.GroupData{Description: groupName},
		}, true), nil
	})
}
