// Package config loads kerf settings from a file, the environment and
// built-in defaults using viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/chazu/kerf/pkg/boolean"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/tessellate"
)

// EnvPrefix prefixes every environment override, e.g. KERF_TOLERANCE_ABSOLUTE.
const EnvPrefix = "KERF"

// Config is the complete kerf configuration.
type Config struct {
	Tolerance    ToleranceConfig    `mapstructure:"tolerance" yaml:"tolerance"`
	Tessellation TessellationConfig `mapstructure:"tessellation" yaml:"tessellation"`
	Boolean      BooleanConfig      `mapstructure:"boolean" yaml:"boolean"`
	Kernel       KernelConfig       `mapstructure:"kernel" yaml:"kernel"`
	Engine       EngineConfig       `mapstructure:"engine" yaml:"engine"`
	Logger       LoggerConfig       `mapstructure:"logger" yaml:"logger"`
}

// ToleranceConfig mirrors geom.Tolerance.
type ToleranceConfig struct {
	Absolute      float64 `mapstructure:"absolute" yaml:"absolute"`
	Relative      float64 `mapstructure:"relative" yaml:"relative"`
	MaxIterations int     `mapstructure:"max_iterations" yaml:"max_iterations"`
	Retries       int     `mapstructure:"retries" yaml:"retries"`
}

// TessellationConfig controls mesh density.
type TessellationConfig struct {
	Flatness    float64 `mapstructure:"flatness" yaml:"flatness"`
	MaxDepth    int     `mapstructure:"max_depth" yaml:"max_depth"`
	Parallelism int     `mapstructure:"parallelism" yaml:"parallelism"`
}

// BooleanConfig controls the set-operation pipeline.
type BooleanConfig struct {
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism"`
}

// KernelConfig selects the geometry backend used to evaluate scripts.
type KernelConfig struct {
	// Backend is "brep" or "sdfx".
	Backend string `mapstructure:"backend" yaml:"backend"`
	// MeshCells is the marching cubes resolution of the sdfx backend.
	MeshCells int `mapstructure:"mesh_cells" yaml:"mesh_cells"`
}

// EngineConfig controls script evaluation.
type EngineConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LoggerConfig defines all settings related to logging.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	tol := geom.DefaultTolerance()
	v.SetDefault("tolerance.absolute", tol.Abs)
	v.SetDefault("tolerance.relative", tol.Rel)
	v.SetDefault("tolerance.max_iterations", tol.MaxIterations)
	v.SetDefault("tolerance.retries", tol.Retries)

	tess := tessellate.DefaultOptions()
	v.SetDefault("tessellation.flatness", tess.Flatness)
	v.SetDefault("tessellation.max_depth", tess.MaxDepth)
	v.SetDefault("tessellation.parallelism", 0)

	v.SetDefault("boolean.parallelism", 0)

	v.SetDefault("kernel.backend", "brep")
	v.SetDefault("kernel.mesh_cells", 200)

	v.SetDefault("engine.timeout", "5s")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "kerf")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
}

// Configure prepares v with defaults, environment overrides and, when path
// is not empty, the given config file. Without a path, ./kerf.yaml is read
// if it exists.
func Configure(v *viper.Viper, path string) error {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("kerf")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("config: read: %w", err)
		}
	}
	return nil
}

// Load reads the configuration into a fresh viper instance and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	if err := Configure(v, path); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every key at its default.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks the configuration for values the kernel cannot use.
func (c *Config) Validate() error {
	var errs []error
	if c.Tolerance.Absolute <= 0 {
		errs = append(errs, fmt.Errorf("tolerance.absolute must be positive, got %g", c.Tolerance.Absolute))
	}
	if c.Tolerance.Relative < 0 {
		errs = append(errs, fmt.Errorf("tolerance.relative must not be negative, got %g", c.Tolerance.Relative))
	}
	if c.Tolerance.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("tolerance.max_iterations must be positive, got %d", c.Tolerance.MaxIterations))
	}
	if c.Tolerance.Retries < 0 {
		errs = append(errs, fmt.Errorf("tolerance.retries must not be negative, got %d", c.Tolerance.Retries))
	}
	if c.Tessellation.Flatness <= 0 {
		errs = append(errs, fmt.Errorf("tessellation.flatness must be positive, got %g", c.Tessellation.Flatness))
	}
	if c.Tessellation.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("tessellation.max_depth must be positive, got %d", c.Tessellation.MaxDepth))
	}
	if c.Tessellation.Parallelism < 0 || c.Boolean.Parallelism < 0 {
		errs = append(errs, errors.New("parallelism must not be negative"))
	}
	switch c.Kernel.Backend {
	case "brep", "sdfx":
	default:
		errs = append(errs, fmt.Errorf("kernel.backend must be brep or sdfx, got %q", c.Kernel.Backend))
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("engine.timeout must be positive, got %s", c.Engine.Timeout))
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

// GeomTolerance converts the tolerance section to the value threaded
// through every geometry and topology call.
func (c *Config) GeomTolerance() geom.Tolerance {
	return geom.Tolerance{
		Abs:           c.Tolerance.Absolute,
		Rel:           c.Tolerance.Relative,
		MaxIterations: c.Tolerance.MaxIterations,
		Retries:       c.Tolerance.Retries,
	}
}

// TessellationOptions converts the tessellation section.
func (c *Config) TessellationOptions(log *zap.Logger) tessellate.Options {
	return tessellate.Options{
		Flatness:    c.Tessellation.Flatness,
		MaxDepth:    c.Tessellation.MaxDepth,
		Parallelism: c.Tessellation.Parallelism,
		Logger:      log,
	}
}

// BooleanOptions converts the boolean section.
func (c *Config) BooleanOptions(log *zap.Logger) boolean.Options {
	return boolean.Options{
		Parallelism: c.Boolean.Parallelism,
		Logger:      log,
	}
}
