package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/epa/internal/logging"
	"github.com/spf13/cobra"
)

var logger = logging.NewNop()

var rootCmd = &cobra.Command{
	Use:   "epa",
	Short: "epa checks recorded object traces against protocol automata",
	Long: `epa works with Enabledness-Preserving Abstractions: automata describing
which operations an object accepts in each abstract state. It validates
automaton descriptions and inspects, visualizes and serves the traces a
runtime monitor recorded.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levelFlag, _ := cmd.Flags().GetString("log-level")
		formatFlag, _ := cmd.Flags().GetString("log-format")

		level, err := logging.ParseLevel(levelFlag)
		if err != nil {
			return err
		}
		format, err := logging.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		logger = logging.New(level, logging.WithFormat(format))
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().String("id", "automaton", "Document ID when the automaton argument is a Loam directory")
}
