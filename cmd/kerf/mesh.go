package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/kerf/pkg/exchange"
	"github.com/chazu/kerf/pkg/kernel"
)

func (c *cli) newMeshCmd() *cobra.Command {
	var out string
	var perFace bool
	cmd := &cobra.Command{
		Use:   "mesh solid.json",
		Short: "Tessellate an exchange document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.readSolid(args[0])
			if err != nil {
				return err
			}
			opts := c.cfg.TessellationOptions(c.log)

			var meshes []*kernel.Mesh
			if perFace {
				for f := range s.AllFaces() {
					m, err := exchange.ExportFaceMesh(s, f, opts)
					if err != nil {
						return fmt.Errorf("face %d: %w", f, err)
					}
					meshes = append(meshes, m)
				}
			} else {
				m, err := exchange.ExportMesh(s, opts)
				if err != nil {
					return err
				}
				meshes = append(meshes, m)
			}

			summarize(cmd.OutOrStdout(), meshes)
			if out == "" {
				return nil
			}
			return writeMeshes(out, meshes)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (.stl or .json)")
	cmd.Flags().BoolVar(&perFace, "faces", false, "emit one mesh per face")
	return cmd
}
