package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chazu/kerf/pkg/geom"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, geom.DefaultTolerance(), cfg.GeomTolerance())
	assert.Equal(t, 0.01, cfg.Tessellation.Flatness)
	assert.Equal(t, 8, cfg.Tessellation.MaxDepth)
	assert.Equal(t, "brep", cfg.Kernel.Backend)
	assert.Equal(t, 5*time.Second, cfg.Engine.Timeout)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "kerf", cfg.Logger.ServiceName)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kerf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tolerance:
  absolute: 1.0e-5
tessellation:
  flatness: 0.05
kernel:
  backend: sdfx
  mesh_cells: 80
engine:
  timeout: 250ms
logger:
  format: json
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1e-5, cfg.Tolerance.Absolute)
	assert.Equal(t, 1e-9, cfg.Tolerance.Relative, "unset keys keep defaults")
	assert.Equal(t, 0.05, cfg.Tessellation.Flatness)
	assert.Equal(t, "sdfx", cfg.Kernel.Backend)
	assert.Equal(t, 80, cfg.Kernel.MeshCells)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.Timeout)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("KERF_TESSELLATION_FLATNESS", "0.2")
	t.Setenv("KERF_TOLERANCE_RETRIES", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Tessellation.Flatness)
	assert.Equal(t, 5, cfg.GeomTolerance().Retries)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero absolute tolerance", func(c *Config) { c.Tolerance.Absolute = 0 }, "tolerance.absolute"},
		{"negative retries", func(c *Config) { c.Tolerance.Retries = -1 }, "tolerance.retries"},
		{"zero flatness", func(c *Config) { c.Tessellation.Flatness = 0 }, "tessellation.flatness"},
		{"negative parallelism", func(c *Config) { c.Boolean.Parallelism = -2 }, "parallelism"},
		{"unknown backend", func(c *Config) { c.Kernel.Backend = "voxels" }, "kernel.backend"},
		{"zero timeout", func(c *Config) { c.Engine.Timeout = 0 }, "engine.timeout"},
		{"unknown log format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOptionConversion(t *testing.T) {
	cfg := Default()
	cfg.Tessellation.Parallelism = 3
	cfg.Boolean.Parallelism = 4
	log := zap.NewNop()

	tess := cfg.TessellationOptions(log)
	assert.Equal(t, 0.01, tess.Flatness)
	assert.Equal(t, 3, tess.Parallelism)
	assert.Same(t, log, tess.Logger)

	ops := cfg.BooleanOptions(log)
	assert.Equal(t, 4, ops.Parallelism)
	assert.Same(t, log, ops.Logger)
}
