package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/kerf/pkg/boolean"
)

func parseOp(s string) (boolean.Op, error) {
	switch s {
	case "union":
		return boolean.OpUnion, nil
	case "intersection", "intersect":
		return boolean.OpIntersection, nil
	case "difference", "subtract":
		return boolean.OpDifference, nil
	}
	return 0, fmt.Errorf("unknown operation %q, expected union, intersection or difference", s)
}

func (c *cli) newBooleanCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "boolean union|intersection|difference a.json b.json",
		Short: "Combine two exchange documents with a set operation",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := parseOp(args[0])
			if err != nil {
				return err
			}
			a, err := c.readSolid(args[1])
			if err != nil {
				return err
			}
			b, err := c.readSolid(args[2])
			if err != nil {
				return err
			}

			res, err := boolean.Apply(op, a, b, c.cfg.BooleanOptions(c.log))
			if err != nil {
				return err
			}
			counts := res.Solid.Counts()
			c.log.Info("boolean complete",
				zap.Stringer("op", op),
				zap.Int("pairs_tested", res.Stats.PairsTested),
				zap.Int("pairs_intersected", res.Stats.PairsIntersected),
				zap.Int("fragments", res.Stats.Fragments),
				zap.Int("kept", res.Stats.Kept),
				zap.Bool("short_circuit", res.Stats.ShortCircuit),
				zap.Int("faces", counts.Faces),
				zap.Int("shells", counts.Shells))
			return writeSolid(cmd, out, res.Solid)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output exchange document (default stdout)")
	return cmd
}
