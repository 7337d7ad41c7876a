package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/kerf/pkg/engine"
	"github.com/chazu/kerf/pkg/exchange"
	"github.com/chazu/kerf/pkg/kernel"
)

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// MeshData is one colored part of a scene.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// Message is an evaluation diagnostic.
type Message struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Scene is the JSON document written by `kerf eval -o scene.json`, ready
// for a web viewer.
type Scene struct {
	Meshes   []MeshData `json:"meshes"`
	Warnings []Message  `json:"warnings"`
}

func newScene(meshes []*kernel.Mesh, warnings []engine.EvalWarning) Scene {
	s := Scene{Meshes: []MeshData{}, Warnings: []Message{}}
	for i, m := range meshes {
		s.Meshes = append(s.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	for _, w := range warnings {
		s.Warnings = append(s.Warnings, Message{Line: w.Line, Col: w.Col, Message: w.Message})
	}
	return s
}

func writeScene(w io.Writer, s Scene) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// writeMeshes writes meshes by output extension: .stl for binary STL,
// anything else for the plain mesh JSON array.
func writeMeshes(path string, meshes []*kernel.Mesh) error {
	if strings.EqualFold(filepath.Ext(path), ".stl") {
		return exchange.WriteSTL(path, meshes...)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exchange.WriteMeshJSON(f, meshes...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func summarize(w io.Writer, meshes []*kernel.Mesh) {
	for _, m := range meshes {
		name := m.PartName
		if name == "" {
			name = "solid"
		}
		min, max := m.Bounds()
		fmt.Fprintf(w, "%-20s %6d vertices %6d triangles  volume %.4g  bounds %v .. %v\n",
			name, m.VertexCount(), m.TriangleCount(), m.Volume(), min, max)
	}
}
