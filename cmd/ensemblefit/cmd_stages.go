package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/ensemblefit/catalogue"
	"github.com/carbocation/ensemblefit/ensemble"
	"github.com/carbocation/ensemblefit/metrics"
	"github.com/carbocation/ensemblefit/pipeline"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <sample_path> [reference_path]",
	Short: "Check a mutation catalogue and rewrite it in canonical SBS96 order",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cat, err := catalogue.Format(args[0])
		if err != nil {
			return &pipeline.StageError{Stage: pipeline.StagePrepare, Err: err}
		}
		fmt.Fprintf(out, "%s: %d samples, valid\n", args[0], cat.NumSamples())

		if len(args) > 1 {
			ref, err := catalogue.LoadReference(args[1])
			if err != nil {
				return &pipeline.StageError{Stage: pipeline.StagePrepare, Err: err}
			}
			fmt.Fprintf(out, "%s: %d signatures\n", args[1], len(ref.Signatures()))
		}

		return nil
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign " + stageUse,
	Short: "Run the assignment tools concurrently and wait for all of them",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := stageJob(args)
		if err != nil {
			return err
		}

		d, closer, err := stageDispatcher(job)
		if err != nil {
			return err
		}
		defer closer()

		fmt.Fprintf(cmd.OutOrStdout(), "Running %d tool(s) with strategy %s...\n", len(job.Tools), job.Strategy)
		c := &pipeline.Coordinator{Dispatcher: d, Parallelism: job.Parallelism}
		outcomes, err := pipeline.Assign(cmd.Context(), c, job)
		for _, o := range outcomes {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s (cached=%t, attempts=%d)\n", o.Task.ID(), o.Task.State(), o.Cached, o.Attempts)
		}
		if err != nil {
			return &pipeline.StageError{Stage: pipeline.StageAssign, Err: err}
		}

		return nil
	},
}

// loadInputs validates the catalogue and reference for the stages that
// run after the fan-out.
func loadInputs(job pipeline.Job, stage pipeline.Stage) (*catalogue.Catalogue, *catalogue.Reference, error) {
	cat, ref, err := pipeline.Validate(job)
	if err != nil {
		return nil, nil, &pipeline.StageError{Stage: stage, Err: err}
	}

	return cat, ref, nil
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate " + stageUse,
	Short: "Build the consensus tables from finished tool results",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := stageJob(args)
		if err != nil {
			return err
		}
		cat, ref, err := loadInputs(job, pipeline.StageAggregate)
		if err != nil {
			return err
		}

		results, err := pipeline.Aggregate(job, cat, ref)
		if err != nil {
			return &pipeline.StageError{Stage: pipeline.StageAggregate, Err: err}
		}
		for _, s := range job.Strategy.Expand() {
			for _, t := range results[s].Tables() {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", ensemble.Path(job.Output, t.Name, s))
			}
		}

		return nil
	},
}

var postprocessCmd = &cobra.Command{
	Use:   "postprocess " + stageUse,
	Short: "Score every tool and consensus table and write the result tree",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := stageJob(args)
		if err != nil {
			return err
		}
		cat, ref, err := loadInputs(job, pipeline.StagePostprocess)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "POST-PROCESSING")
		rows, err := pipeline.Postprocess(job, cat, ref)
		if err != nil {
			return &pipeline.StageError{Stage: pipeline.StagePostprocess, Err: err}
		}

		var cosines []float64
		for _, row := range rows {
			fmt.Fprintf(out, "%-22s %-8s signatures=%-3d cosine=%s\n", row.Tool, row.Strategy, row.Signatures, formatValue(row.MeanCosine))
			if row.MeanCosine.Valid {
				cosines = append(cosines, row.MeanCosine.Float64)
			}
		}
		printHistogram(cmd, cosines)

		fmt.Fprintf(out, "Wrote %s\n", filepath.Join(job.Output, metrics.FileName))
		return nil
	},
}

var metadataCmd = &cobra.Command{
	Use:   "metadata " + stageUse,
	Short: "Write the job metadata document",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := stageJob(args)
		if err != nil {
			return err
		}
		cat, _, err := loadInputs(job, pipeline.StagePostprocess)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(job.Output, 0o755); err != nil {
			return err
		}

		return pipeline.WriteMetadata(job, cat.NumSamples(), time.Now())
	},
}

func formatValue(v metrics.Value) string {
	s, _ := v.MarshalCSV()
	return s
}

// printHistogram draws the distribution of mean reconstruction cosines. A
// histogram needs a spread of values, so identical values are reported on
// one line.
func printHistogram(cmd *cobra.Command, values []float64) {
	if len(values) == 0 {
		return
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Mean reconstruction cosine similarity:")
	if lo == hi {
		fmt.Fprintf(out, "  all %d tables: %g\n", len(values), lo)
		return
	}

	hist := histogram.Hist(10, values)
	if err := histogram.Fprint(out, hist, histogram.Linear(40)); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}
}

func init() {
	for _, cmd := range []*cobra.Command{assignCmd, aggregateCmd, postprocessCmd, metadataCmd} {
		addStageFlags(cmd)
	}
}
