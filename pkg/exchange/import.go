package exchange

import (
	"fmt"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/topo"
)

// Import decodes a document and rebuilds its solid under tol.
func Import(data []byte, tol geom.Tolerance) (*topo.Solid, error) {
	d, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return Build(d, tol)
}

// Build rebuilds the solid a document describes. Every entity passes
// through the topology constructors, so a document that breaks an
// invariant fails with the constructor's error.
func Build(d *Document, tol geom.Tolerance) (*topo.Solid, error) {
	if len(d.Shells) == 0 {
		return topo.EmptySolid(tol), nil
	}
	b := topo.NewBuilder(tol)
	for _, v := range d.Vertices {
		b.MakeVertex(v.point())
	}
	for i, rec := range d.Edges {
		c, err := rec.Curve.curve()
		if err != nil {
			return nil, &ImportError{Record: "edge", Index: i, Err: err}
		}
		if _, err := b.MakeEdge(topo.VertexID(rec.Start), topo.VertexID(rec.End), c, rec.Range); err != nil {
			return nil, &ImportError{Record: "edge", Index: i, Err: err}
		}
	}
	for i, rec := range d.Wires {
		uses := make([]topo.Use, len(rec.Uses))
		for k, u := range rec.Uses {
			uses[k] = topo.Use{Edge: topo.EdgeID(u.Edge), Reversed: u.Reversed}
		}
		if _, err := b.MakeWire(uses); err != nil {
			return nil, &ImportError{Record: "wire", Index: i, Err: err}
		}
	}
	for i, rec := range d.Faces {
		s, err := rec.Surface.surface()
		if err != nil {
			return nil, &ImportError{Record: "face", Index: i, Err: err}
		}
		inner := make([]topo.WireID, len(rec.Inner))
		for k, w := range rec.Inner {
			inner[k] = topo.WireID(w)
		}
		if _, err := b.MakeFace(topo.WireID(rec.Outer), inner, s, rec.Reversed); err != nil {
			return nil, &ImportError{Record: "face", Index: i, Err: err}
		}
	}
	shells := make([]topo.ShellID, 0, len(d.Shells))
	for i, rec := range d.Shells {
		faces := make([]topo.FaceID, len(rec.Faces))
		for k, f := range rec.Faces {
			if f < 0 || f >= len(d.Faces) {
				return nil, &ImportError{Record: "shell", Index: i, Err: fmt.Errorf("%w: face %d out of range", ErrParseFailure, f)}
			}
			faces[k] = topo.FaceID(f)
		}
		sh, err := b.Sew(faces)
		if err != nil {
			return nil, &ImportError{Record: "shell", Index: i, Err: err}
		}
		shells = append(shells, sh)
	}
	s, err := b.Close(shells...)
	if err != nil {
		return nil, &ImportError{Record: "solid", Err: err}
	}
	return s, nil
}

func need(field string, v *Vec3) (geom.Point, error) {
	if v == nil {
		return geom.Point{}, fmt.Errorf("%w: missing %s", ErrParseFailure, field)
	}
	return v.point(), nil
}

func (r CurveRecord) curve() (geom.Curve, error) {
	switch r.Type {
	case "line":
		o, err := need("origin", r.Origin)
		if err != nil {
			return nil, err
		}
		d, err := need("dir", r.Dir)
		if err != nil {
			return nil, err
		}
		if d.Length() == 0 {
			return nil, fmt.Errorf("%w: zero line direction", geom.ErrDegenerate)
		}
		return &geom.Line{Origin: o, Dir: d}, nil
	case "ellipse":
		c, err := need("center", r.Center)
		if err != nil {
			return nil, err
		}
		ma, err := need("major", r.Major)
		if err != nil {
			return nil, err
		}
		mi, err := need("minor", r.Minor)
		if err != nil {
			return nil, err
		}
		if ma.Cross(mi).Length() == 0 {
			return nil, fmt.Errorf("%w: flat ellipse", geom.ErrDegenerate)
		}
		return &geom.Ellipse{Center: c, Major: ma, Minor: mi}, nil
	case "bspline":
		ctrl := make([]geom.Point, len(r.Ctrl))
		for i, p := range r.Ctrl {
			ctrl[i] = p.point()
		}
		return geom.NewBSplineCurve(r.Degree, r.Knots, ctrl, r.Weights)
	}
	return nil, fmt.Errorf("%w: curve type %q", ErrUnsupportedEntity, r.Type)
}

func (r SurfaceRecord) surface() (geom.Surface, error) {
	switch r.Type {
	case "plane":
		o, err := need("origin", r.Origin)
		if err != nil {
			return nil, err
		}
		u, err := need("u", r.U)
		if err != nil {
			return nil, err
		}
		v, err := need("v", r.V)
		if err != nil {
			return nil, err
		}
		return geom.NewPlaneAxes(o, u, v)
	case "sphere", "cylinder":
		o, err := need("origin", r.Origin)
		if err != nil {
			return nil, err
		}
		axis, err := need("axis", r.Axis)
		if err != nil {
			return nil, err
		}
		ref, err := need("ref", r.Ref)
		if err != nil {
			return nil, err
		}
		if r.Type == "sphere" {
			return geom.NewSphere(o, r.Radius, axis, ref)
		}
		return geom.NewCylinder(o, axis, ref, r.Radius)
	case "bspline":
		ctrl := make([][]geom.Point, len(r.Ctrl))
		for i, row := range r.Ctrl {
			ctrl[i] = make([]geom.Point, len(row))
			for j, p := range row {
				ctrl[i][j] = p.point()
			}
		}
		return geom.NewBSplineSurface(r.DegreeU, r.DegreeV, r.KnotsU, r.KnotsV, ctrl, r.Weights)
	}
	return nil, fmt.Errorf("%w: surface type %q", ErrUnsupportedEntity, r.Type)
}
