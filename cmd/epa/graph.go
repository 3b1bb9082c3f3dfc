package main

import (
	"fmt"

	"github.com/aretw0/epa/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <automaton>",
	Short: "Export the automaton as a Mermaid diagram",
	Long: `Outputs a Mermaid state diagram of the automaton. With --trace, observed
transitions are overlaid and transitions the automaton does not declare are
marked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := describe(cmd, args[0])
		if err != nil {
			return err
		}

		location, _ := cmd.Flags().GetString("trace")
		if location == "" {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(desc.Automaton, nil))
			return nil
		}

		store, closer, err := openTrace(cmd.Context(), location)
		if err != nil {
			return err
		}
		defer closer.Close()

		subject, _ := cmd.Flags().GetInt64("subject")
		traces, err := readTraces(cmd.Context(), store, subject)
		if err != nil {
			return err
		}

		overlay := &graph.GraphOverlay{}
		for _, tr := range traces {
			overlay.Observed = append(overlay.Observed, tr.Transitions...)
		}
		if subject > 0 && len(traces) == 1 && len(traces[0].Transitions) > 0 {
			ts := traces[0].Transitions
			overlay.Current = ts[len(ts)-1].To
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(desc.Automaton, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("trace", "", "Trace store to overlay (directory, sqlite file or redis URL)")
	graphCmd.Flags().Int64("subject", 0, "Only overlay this subject")
}
