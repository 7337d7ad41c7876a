package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/kerf/pkg/topo"
)

func (c *cli) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate solid.json|script.lisp",
		Short: "Check a solid's manifold invariants or a script's design graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.EqualFold(filepath.Ext(args[0]), ".lisp") {
				return c.validateScript(cmd, args[0])
			}
			return c.validateSolid(cmd, args[0])
		},
	}
}

func (c *cli) validateSolid(cmd *cobra.Command, path string) error {
	w := cmd.OutOrStdout()
	s, err := c.readSolid(path)
	if err != nil {
		return err
	}

	n := s.Counts()
	fmt.Fprintf(w, "%s: %d vertices, %d edges, %d wires, %d faces, %d shells\n",
		path, n.Vertices, n.Edges, n.Wires, n.Faces, n.Shells)
	for sh := range s.Shells() {
		e := s.ShellEuler(sh)
		fmt.Fprintf(w, "  shell %d: V-E+F-H = %d, genus %d\n", sh, e.Characteristic(), e.Genus)
	}

	findings := topo.Validate(s)
	for _, f := range findings {
		fmt.Fprintln(w, " ", f.Error())
	}
	if errs := topo.Errors(findings); len(errs) > 0 {
		return fmt.Errorf("%s: %d manifold violations", path, len(errs))
	}
	fmt.Fprintln(w, "ok")
	return nil
}

func (c *cli) validateScript(cmd *cobra.Command, path string) error {
	w := cmd.OutOrStdout()
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	res, err := c.engine().Analyze(string(src))
	if err != nil {
		return err
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  error: %s\n", e.Error())
	}
	for _, wr := range res.Warnings {
		fmt.Fprintf(w, "  warning: node %s: %s\n", wr.NodeID.Short(), wr.Message)
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("%s: %d errors", path, len(res.Errors))
	}
	fmt.Fprintf(w, "%s: %d nodes, %d roots\nok\n", path, res.Graph.NodeCount(), len(res.Graph.Roots))
	return nil
}
