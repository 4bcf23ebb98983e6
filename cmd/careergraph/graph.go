package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smallnest/careergraph/graph"
)

func graphCmd(a *app) *cobra.Command {
	var phase, format string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the structure of a workflow phase",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := a.pipeline()
			var build func() (*graph.StateGraph, error)
			switch strings.ToLower(phase) {
			case "one", "1":
				build = p.PhaseOneGraph
			case "two", "2":
				build = p.PhaseTwoGraph
			case "legacy":
				build = p.LegacyGraph
			default:
				return fmt.Errorf("unknown phase %q: use one, two or legacy", phase)
			}
			g, err := build()
			if err != nil {
				return err
			}

			e := graph.NewExporter(g)
			out := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "mermaid", "":
				fmt.Fprint(out, e.DrawMermaid())
			case "dot":
				dot, err := e.DrawDOT()
				if err != nil {
					return err
				}
				fmt.Fprint(out, dot)
			case "ascii", "text":
				fmt.Fprint(out, e.DrawASCII())
			default:
				return fmt.Errorf("unknown format %q: use mermaid, dot or ascii", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&phase, "phase", "two", "phase to print: one, two or legacy")
	cmd.Flags().StringVar(&format, "format", "mermaid", "output format: mermaid, dot or ascii")
	return cmd
}
