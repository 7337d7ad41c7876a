package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/engine"
	"github.com/chazu/kerf/pkg/exchange"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/brep"
	"github.com/chazu/kerf/pkg/kernel/sdfx"
	"github.com/chazu/kerf/pkg/observability"
	"github.com/chazu/kerf/pkg/topo"
)

// Version is overridden at link time.
var Version = "0.1.0-dev"

// cli carries the state shared by every subcommand once the root command
// has loaded the configuration.
type cli struct {
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "kerf",
		Short:         "kerf is a boundary-representation solid modeling kernel.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.cfgFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			observability.InitializeLogger(cfg.Logger)
			c.log = observability.GetLogger()
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file (default is ./kerf.yaml)")

	root.AddCommand(
		c.newEvalCmd(),
		c.newMeshCmd(),
		c.newBooleanCmd(),
		c.newValidateCmd(),
		newVersionCmd(),
	)
	return root
}

// kernel builds the configured geometry backend.
func (c *cli) kernel() kernel.Kernel {
	if c.cfg.Kernel.Backend == "sdfx" {
		return sdfx.New(c.cfg.Kernel.MeshCells)
	}
	return brep.New(brep.Options{
		Tolerance:    c.cfg.GeomTolerance(),
		Tessellation: c.cfg.TessellationOptions(c.log),
		Boolean:      c.cfg.BooleanOptions(c.log),
		Logger:       c.log,
	})
}

// engine builds a script evaluator with the configured time limit.
func (c *cli) engine() *engine.Engine {
	return engine.NewEngine(engine.WithTimeout(c.cfg.Engine.Timeout), engine.WithLogger(c.log))
}

// readSolid imports an exchange document.
func (c *cli) readSolid(path string) (*topo.Solid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := exchange.Import(data, c.cfg.GeomTolerance())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// writeSolid exports s as an exchange document to path, or to stdout when
// path is empty.
func writeSolid(cmd *cobra.Command, path string, s *topo.Solid) error {
	data, err := exchange.Marshal(exchange.Export(s))
	if err != nil {
		return err
	}
	if path == "" {
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kerf version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "kerf %s (exchange format %s v%d)\n",
				Version, exchange.FormatName, exchange.FormatVersion)
			return nil
		},
	}
}
