package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/kerf/pkg/boolean"
	"github.com/chazu/kerf/pkg/exchange"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/modeling"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeCube(t *testing.T, dir, name string, at geom.Point) string {
	t.Helper()
	s, err := modeling.Box(geom.DefaultTolerance(), 1, 1, 1)
	require.NoError(t, err)
	data, err := exchange.Marshal(exchange.Export(modeling.Translate(s, at)))
	require.NoError(t, err)
	return writeFile(t, dir, name, string(data))
}

const drilledPlate = `
; a plate with one through hole
(defpart "plate" (box 40 40 5))
(defpart "hole" (cylinder :radius 5 :height 15))
(difference (part "plate") (place (part "hole") :at (vec3 20 20 -5)) :name "drilled")
`

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "kerf "+Version)
	assert.Contains(t, out, exchange.FormatName)
}

func TestEvalWritesSceneAndSolid(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "plate.lisp", drilledPlate)
	scenePath := filepath.Join(dir, "scene.json")
	solidPath := filepath.Join(dir, "plate.json")

	out, _, err := run(t, "eval", script, "-o", scenePath, "--solid", solidPath)
	require.NoError(t, err)
	assert.Contains(t, out, "drilled")

	data, err := os.ReadFile(scenePath)
	require.NoError(t, err)
	var scene Scene
	require.NoError(t, json.Unmarshal(data, &scene))
	require.Len(t, scene.Meshes, 1)
	assert.Equal(t, "drilled", scene.Meshes[0].PartName)
	assert.Equal(t, colorPalette[0], scene.Meshes[0].Color)
	assert.NotEmpty(t, scene.Meshes[0].Indices)

	out, _, err = run(t, "validate", solidPath)
	require.NoError(t, err)
	assert.Contains(t, out, "genus 1")
	assert.Contains(t, out, "ok")

	stl := filepath.Join(dir, "plate.stl")
	_, _, err = run(t, "mesh", solidPath, "-o", stl)
	require.NoError(t, err)
	info, err := os.Stat(stl)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(84))
}

func TestEvalReportsScriptErrors(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "bad.lisp", `(defpart "a" (box 1 1))`)

	_, errOut, err := run(t, "eval", script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluation errors")
	assert.Contains(t, errOut, "bad.lisp")
}

func TestEvalWithSdfxBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "kerf.yaml", "kernel:\n  backend: sdfx\n  mesh_cells: 40\n")
	script := writeFile(t, dir, "box.lisp", `(defpart "block" (box 10 10 10))`)
	stl := filepath.Join(dir, "block.stl")

	_, _, err := run(t, "--config", cfg, "eval", script, "-o", stl)
	require.NoError(t, err)
	_, err = os.Stat(stl)
	require.NoError(t, err)

	_, _, err = run(t, "--config", cfg, "eval", script, "--solid", filepath.Join(dir, "block.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brep")
}

func TestBooleanCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeCube(t, dir, "a.json", geom.Vec(0, 0, 0))
	b := writeCube(t, dir, "b.json", geom.Vec(0.5, 0.5, 0.5))
	out := filepath.Join(dir, "union.json")

	_, _, err := run(t, "boolean", "union", a, b, "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	s, err := exchange.Import(data, geom.DefaultTolerance())
	require.NoError(t, err)
	assert.Equal(t, 12, s.Counts().Faces)
	assert.Equal(t, 1, s.Counts().Shells)

	stdout, _, err := run(t, "boolean", "difference", a, b)
	require.NoError(t, err)
	d, err := exchange.Unmarshal([]byte(stdout))
	require.NoError(t, err)
	assert.Len(t, d.Faces, 9)

	_, _, err = run(t, "boolean", "xor", a, b)
	assert.ErrorContains(t, err, "unknown operation")
}

func TestParseOp(t *testing.T) {
	tests := []struct {
		in   string
		want boolean.Op
	}{
		{"union", boolean.OpUnion},
		{"intersection", boolean.OpIntersection},
		{"intersect", boolean.OpIntersection},
		{"difference", boolean.OpDifference},
		{"subtract", boolean.OpDifference},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			op, err := parseOp(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, op)
		})
	}
}

func TestValidateScript(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.lisp", drilledPlate)
	out, _, err := run(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "1 roots")

	bad := writeFile(t, dir, "bad.lisp", `(defpart "flat" (box 1 0 1))`)
	out, _, err = run(t, "validate", bad)
	require.Error(t, err)
	assert.Contains(t, out, "error:")
}

func TestValidateRejectsOpenShell(t *testing.T) {
	dir := t.TempDir()
	path := writeCube(t, dir, "cube.json", geom.Vec(0, 0, 0))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	d, err := exchange.Unmarshal(data)
	require.NoError(t, err)
	d.Shells[0].Faces = d.Shells[0].Faces[1:]
	broken, err := exchange.Marshal(d)
	require.NoError(t, err)
	writeFile(t, dir, "cube.json", string(broken))

	_, _, err = run(t, "validate", path)
	assert.Error(t, err)
}

func TestExampleScriptsValidate(t *testing.T) {
	scripts, err := filepath.Glob(filepath.Join("..", "..", "examples", "*.lisp"))
	require.NoError(t, err)
	require.NotEmpty(t, scripts)
	for _, script := range scripts {
		t.Run(filepath.Base(script), func(t *testing.T) {
			out, _, err := run(t, "validate", script)
			require.NoError(t, err, out)
		})
	}
}
