// Package exchange reads and writes solids as JSON documents and writes
// tessellated solids as mesh buffers and STL files.
package exchange

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/topo"
)

// FormatName identifies kerf documents.
const FormatName = "kerf-brep"

// FormatVersion is the document version written by Export.
const FormatVersion = 1

// Vec3 is a point or vector as [x, y, z].
type Vec3 [3]float64

func vec(p geom.Point) Vec3      { return Vec3{p.X, p.Y, p.Z} }
func (v Vec3) point() geom.Point { return geom.Vec(v[0], v[1], v[2]) }

// Document is the serialized form of a solid: flat tables of entities
// that reference each other by index, with curve and surface parameters
// stored inline.
type Document struct {
	ID        string         `json:"id"`
	Format    string         `json:"format"`
	Version   int            `json:"version"`
	Tolerance geom.Tolerance `json:"tolerance"`
	Vertices  []Vec3         `json:"vertices"`
	Edges     []EdgeRecord   `json:"edges"`
	Wires     []WireRecord   `json:"wires"`
	Faces     []FaceRecord   `json:"faces"`
	Shells    []ShellRecord  `json:"shells"`
}

type EdgeRecord struct {
	Start int           `json:"start"`
	End   int           `json:"end"`
	Curve CurveRecord   `json:"curve"`
	Range geom.Interval `json:"range"`
}

type UseRecord struct {
	Edge     int  `json:"edge"`
	Reversed bool `json:"reversed,omitempty"`
}

type WireRecord struct {
	Uses []UseRecord `json:"uses"`
}

type FaceRecord struct {
	Surface  SurfaceRecord `json:"surface"`
	Outer    int           `json:"outer"`
	Inner    []int         `json:"inner,omitempty"`
	Reversed bool          `json:"reversed,omitempty"`
}

type ShellRecord struct {
	Faces []int `json:"faces"`
}

// CurveRecord holds the parameters of one curve. Type selects which
// fields are meaningful: "line" (Origin, Dir), "ellipse" (Center, Major,
// Minor) or "bspline" (Degree, Knots, Ctrl, Weights).
type CurveRecord struct {
	Type    string    `json:"type"`
	Origin  *Vec3     `json:"origin,omitempty"`
	Dir     *Vec3     `json:"dir,omitempty"`
	Center  *Vec3     `json:"center,omitempty"`
	Major   *Vec3     `json:"major,omitempty"`
	Minor   *Vec3     `json:"minor,omitempty"`
	Degree  int       `json:"degree,omitempty"`
	Knots   []float64 `json:"knots,omitempty"`
	Ctrl    []Vec3    `json:"ctrl,omitempty"`
	Weights []float64 `json:"weights,omitempty"`
}

// SurfaceRecord holds the parameters of one surface: "plane" (Origin, U,
// V), "sphere" (Origin as center, Radius, Axis, Ref), "cylinder" (Origin,
// Radius, Axis, Ref) or "bspline" (degrees, knots, Ctrl, Weights).
type SurfaceRecord struct {
	Type    string      `json:"type"`
	Origin  *Vec3       `json:"origin,omitempty"`
	U       *Vec3       `json:"u,omitempty"`
	V       *Vec3       `json:"v,omitempty"`
	Axis    *Vec3       `json:"axis,omitempty"`
	Ref     *Vec3       `json:"ref,omitempty"`
	Radius  float64     `json:"radius,omitempty"`
	DegreeU int         `json:"degreeU,omitempty"`
	DegreeV int         `json:"degreeV,omitempty"`
	KnotsU  []float64   `json:"knotsU,omitempty"`
	KnotsV  []float64   `json:"knotsV,omitempty"`
	Ctrl    [][]Vec3    `json:"ctrl,omitempty"`
	Weights [][]float64 `json:"weights,omitempty"`
}

func ref(p geom.Point) *Vec3 {
	v := vec(p)
	return &v
}

// Export describes s as a document with a fresh ID.
func Export(s *topo.Solid) *Document {
	d := &Document{
		ID:        uuid.NewString(),
		Format:    FormatName,
		Version:   FormatVersion,
		Tolerance: s.Tolerance(),
	}
	for v := range s.AllVertices() {
		d.Vertices = append(d.Vertices, vec(s.Point(v)))
	}
	for e := range s.AllEdges() {
		edge := s.Edge(e)
		d.Edges = append(d.Edges, EdgeRecord{
			Start: int(edge.Start),
			End:   int(edge.End),
			Curve: curveRecord(edge.Curve),
			Range: edge.Range,
		})
	}
	for w := 0; w < s.Counts().Wires; w++ {
		var rec WireRecord
		for u := range s.Uses(topo.WireID(w)) {
			rec.Uses = append(rec.Uses, UseRecord{Edge: int(u.Edge), Reversed: u.Reversed})
		}
		d.Wires = append(d.Wires, rec)
	}
	for f := range s.AllFaces() {
		face := s.Face(f)
		rec := FaceRecord{Surface: surfaceRecord(face.Surface), Outer: int(face.Outer), Reversed: face.Reversed}
		for _, w := range face.Inner {
			rec.Inner = append(rec.Inner, int(w))
		}
		d.Faces = append(d.Faces, rec)
	}
	for sh := range s.Shells() {
		var rec ShellRecord
		for f := range s.Faces(sh) {
			rec.Faces = append(rec.Faces, int(f))
		}
		d.Shells = append(d.Shells, rec)
	}
	return d
}

func curveRecord(c geom.Curve) CurveRecord {
	switch c := c.(type) {
	case *geom.Line:
		return CurveRecord{Type: "line", Origin: ref(c.Origin), Dir: ref(c.Dir)}
	case *geom.Ellipse:
		return CurveRecord{Type: "ellipse", Center: ref(c.Center), Major: ref(c.Major), Minor: ref(c.Minor)}
	case *geom.BSplineCurve:
		rec := CurveRecord{Type: "bspline", Degree: c.Degree, Knots: c.Knots, Weights: c.Weights}
		for _, p := range c.Ctrl {
			rec.Ctrl = append(rec.Ctrl, vec(p))
		}
		return rec
	}
	panic(fmt.Sprintf("exchange: unknown curve %T", c))
}

func surfaceRecord(s geom.Surface) SurfaceRecord {
	switch s := s.(type) {
	case *geom.Plane:
		return SurfaceRecord{Type: "plane", Origin: ref(s.Origin), U: ref(s.U), V: ref(s.V)}
	case *geom.Sphere:
		return SurfaceRecord{Type: "sphere", Origin: ref(s.Center), Radius: s.Radius, Axis: ref(s.Z), Ref: ref(s.X)}
	case *geom.Cylinder:
		return SurfaceRecord{Type: "cylinder", Origin: ref(s.Origin), Radius: s.Radius, Axis: ref(s.Z), Ref: ref(s.X)}
	case *geom.BSplineSurface:
		rec := SurfaceRecord{
			Type: "bspline", DegreeU: s.DegreeU, DegreeV: s.DegreeV,
			KnotsU: s.KnotsU, KnotsV: s.KnotsV, Weights: s.Weights,
		}
		for _, row := range s.Ctrl {
			r := make([]Vec3, len(row))
			for j, p := range row {
				r[j] = vec(p)
			}
			rec.Ctrl = append(rec.Ctrl, r)
		}
		return rec
	}
	panic(fmt.Sprintf("exchange: unknown surface %T", s))
}

// Marshal encodes a document as indented JSON.
func Marshal(d *Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Unmarshal decodes a document, rejecting unknown formats.
func Unmarshal(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &ImportError{Err: fmt.Errorf("%w: %w", ErrParseFailure, err)}
	}
	if d.Format != FormatName {
		return nil, &ImportError{Err: fmt.Errorf("%w: format %q", ErrParseFailure, d.Format)}
	}
	if d.Version < 1 || d.Version > FormatVersion {
		return nil, &ImportError{Err: fmt.Errorf("%w: version %d", ErrUnsupportedEntity, d.Version)}
	}
	return &d, nil
}
