package main

import (
	"fmt"
	"os"

	"github.com/aretw0/epa/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var traceCmd = &cobra.Command{
	Use:   "trace <automaton> <store>",
	Short: "Print a recorded trace",
	Long: `Reads the transitions recorded in a trace store (directory, sqlite file or
redis URL) and prints them per subject with the coverage of the declared
transitions. Output is styled when stdout is a terminal.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := describe(cmd, args[0])
		if err != nil {
			return err
		}

		store, closer, err := openTrace(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		defer closer.Close()

		subject, _ := cmd.Flags().GetInt64("subject")
		traces, err := readTraces(cmd.Context(), store, subject)
		if err != nil {
			return err
		}

		plain, _ := cmd.Flags().GetBool("plain")
		styled := !plain && term.IsTerminal(int(os.Stdout.Fd()))
		out, err := tui.NewRenderer(styled)(tui.TraceReport(desc.Automaton, traces))
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().Int64("subject", 0, "Only print this subject")
	traceCmd.Flags().Bool("plain", false, "Print raw markdown even on a terminal")
}
