package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/epa"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of epa",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "epa version %s\n", strings.TrimSpace(epa.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
