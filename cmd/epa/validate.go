package main

import (
	"fmt"

	"github.com/aretw0/epa/internal/presentation/tui"
	"github.com/aretw0/epa/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <automaton>",
	Short: "Check an automaton description for consistency",
	Long: `Compiles the automaton description (a YAML/JSON file or a Loam directory)
and reports unreachable states, unused actions and bindings that do not
match the automaton.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		desc, err := describe(cmd, args[0])
		if err != nil {
			tui.Failure(out, "%v", err)
			return fmt.Errorf("validation failed")
		}

		report := validator.Validate(desc)
		for _, w := range report.Warnings {
			tui.Warning(out, "%s", w)
		}
		for _, e := range report.Errors {
			tui.Failure(out, "%s", e)
		}
		if err := report.Err(); err != nil {
			return fmt.Errorf("validation failed: %d errors", len(report.Errors))
		}

		a := desc.Automaton
		tui.Success(out, "automaton %s is valid: %d states, %d actions", a.Name(), len(a.States()), len(a.Actions()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
