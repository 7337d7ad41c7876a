package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/kerf/pkg/evaluate"
	"github.com/chazu/kerf/pkg/kernel/brep"
	"github.com/chazu/kerf/pkg/topo"
)

func (c *cli) newEvalCmd() *cobra.Command {
	var out, solidOut string
	cmd := &cobra.Command{
		Use:   "eval script.lisp",
		Short: "Evaluate a modeling script and write its meshes",
		Long: `Evaluate a modeling script. With -o ending in .stl the parts are
written as one STL file; any other extension writes a JSON scene with one
colored mesh per part. --solid writes every part as one exchange document
(brep backend only).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			res, err := c.engine().Analyze(string(src))
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				c.log.Warn("script warning", zap.String("script", args[0]), zap.String("node", w.NodeID.Short()), zap.String("message", w.Message))
			}
			if len(res.Errors) > 0 {
				for _, e := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[0], e.Error())
				}
				return fmt.Errorf("%s: %d evaluation errors", args[0], len(res.Errors))
			}

			ev := evaluate.New(c.kernel(), c.log)
			parts, err := ev.Parts(res.Graph)
			if err != nil {
				return err
			}
			meshes, err := ev.Tessellate(parts)
			if err != nil {
				return err
			}
			summarize(cmd.OutOrStdout(), meshes)

			if solidOut != "" {
				if err := c.writeParts(cmd, solidOut, parts); err != nil {
					return err
				}
			}
			switch {
			case out == "":
				return nil
			case strings.EqualFold(filepath.Ext(out), ".stl"):
				return writeMeshes(out, meshes)
			default:
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := writeScene(f, newScene(meshes, res.Warnings)); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			}
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (.stl or .json)")
	cmd.Flags().StringVar(&solidOut, "solid", "", "write the parts as an exchange document")
	return cmd
}

// writeParts merges the B-rep parts into one multi-shell solid.
func (c *cli) writeParts(cmd *cobra.Command, path string, parts []evaluate.Part) error {
	solids := make([]*topo.Solid, 0, len(parts))
	for _, p := range parts {
		b, ok := p.Solid.(*brep.Solid)
		if !ok {
			return errors.New("--solid requires the brep kernel backend")
		}
		solids = append(solids, b.Topology())
	}
	return writeSolid(cmd, path, topo.Merge(c.cfg.GeomTolerance(), solids...))
}
