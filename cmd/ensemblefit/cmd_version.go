package main

import (
	"fmt"

	"github.com/carbocation/ensemblefit/compileinfo"
	"github.com/carbocation/ensemblefit/dispatch"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information and the tool versions the scripts target",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, compileinfo.Get())
		for _, t := range dispatch.AssignmentTools {
			fmt.Fprintf(out, "  %s\n", t.Describe())
		}
	},
}
