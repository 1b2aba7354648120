// ensemblefit runs several mutational signature assignment tools over one
// mutation catalogue and combines their results into consensus tables.
//
// Usage:
//
//	ensemblefit run <job.json|job.yaml>
//	ensemblefit validate <sample_path> [reference_path]
//	ensemblefit assign <sample_path> <reference_path> <output_path> <strategy> [tool...]
//	ensemblefit aggregate <sample_path> <reference_path> <output_path> <strategy> [tool...]
//	ensemblefit postprocess <sample_path> <reference_path> <output_path> <strategy> [tool...]
//	ensemblefit metadata <sample_path> <reference_path> <output_path> <strategy> [tool...]
//	ensemblefit serve <checkpoint.db> [output_path]
//	ensemblefit version
package main

import (
	"fmt"
	"os"

	"github.com/carbocation/ensemblefit/compileinfo"
	"github.com/carbocation/ensemblefit/logging"
	"github.com/spf13/cobra"
)

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "ensemblefit",
	Short: "Consensus mutational signature assignment across several tools",
	Long: `ensemblefit runs several signature assignment tools over one SBS96
mutation catalogue, waits for all of them, and combines their results into
majority, unanimous and bootstrap-mean consensus tables along with quality
metrics for every tool.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, err := logging.ParseLevel(rootFlags.logLevel)
		if err != nil {
			return err
		}
		logging.Init(level, rootFlags.logFormat)
		logging.New("main").Debug("starting", "build", compileinfo.Get())
		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.logLevel, "log-level", "info", "debug, info, warn or error")
	f.StringVar(&rootFlags.logFormat, "log-format", "text", "text or json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(postprocessCmd)
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = compileinfo.Get().Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
