// Package ensemble combines per-tool signature assignments into consensus
// tables: a majority vote, a unanimous vote and a bootstrap-resampled mean.
package ensemble

import (
	"fmt"
	"path/filepath"

	"github.com/carbocation/ensemblefit/assignment"
	"github.com/carbocation/ensemblefit/logging"
)

// Dir is the directory, beneath the output directory, that holds consensus
// tables.
const Dir = "EnsembleFit"

// Consensus table names.
const (
	Majority  = "Ensemble-Majority"
	Unanimous = "Ensemble-Unanimous"
	Mean      = "Ensemble-Mean"
)

// Names lists the consensus tables in the order they are reported.
var Names = []string{Majority, Unanimous, Mean}

// Options controls the bootstrap mean.
type Options struct {
	Iterations int
	Seed       int64
}

// DefaultOptions are the bootstrap settings used when none are configured.
func DefaultOptions() Options {
	return Options{Iterations: DefaultIterations, Seed: DefaultSeed}
}

// Result holds the three consensus tables for one strategy.
type Result struct {
	Majority  *assignment.Table
	Unanimous *assignment.Table
	Mean      *assignment.Table
}

// Tables returns the consensus tables in reporting order.
func (r *Result) Tables() []*assignment.Table {
	return []*assignment.Table{r.Majority, r.Unanimous, r.Mean}
}

// Aggregate builds the consensus tables for one strategy. Every table must
// have one row per sample, in sample order; their own row labels are
// replaced. Signatures missing from a tool count as zero for that tool, and
// signatures missing from every tool still appear as all-zero columns. The
// unassigned column never takes part.
func Aggregate(tables []*assignment.Table, samples, signatures []string, strategy assignment.Strategy, opts Options) (*Result, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tool results to aggregate for strategy %s", strategy)
	}
	if opts.Iterations < 1 {
		return nil, fmt.Errorf("bootstrap needs at least one iteration, got %d", opts.Iterations)
	}

	relative := make([]*assignment.Table, len(tables))
	for k, t := range tables {
		labelled, err := t.WithSamples(samples)
		if err != nil {
			return nil, err
		}
		relative[k] = labelled.Align(signatures).Relative()
	}

	out := &Result{
		Majority:  assignment.NewTable(Majority, strategy, assignment.Indicator, samples, signatures),
		Unanimous: assignment.NewTable(Unanimous, strategy, assignment.Indicator, samples, signatures),
		Mean:      assignment.NewTable(Mean, strategy, assignment.Relative, samples, signatures),
	}

	n := len(relative)
	values := make([]float64, n)
	for i := range samples {
		for j := range signatures {
			positive := 0
			for k, t := range relative {
				// Aligned tables put the reference signatures first, in order.
				values[k] = t.Values[i][j]
				if values[k] > 0 {
					positive++
				}
			}

			if majority(positive, n) {
				out.Majority.Values[i][j] = 1
			}
			if positive == n {
				out.Unanimous.Values[i][j] = 1
			}
			out.Mean.Values[i][j] = bootstrapMean(values, opts.Iterations, opts.Seed)
		}
	}

	logging.New("ensemble").Debug("aggregated",
		"strategy", strategy,
		"tools", n,
		"samples", len(samples),
		"signatures", len(signatures))

	return out, nil
}

// majority reports whether more than ceil(n/2) of n tools assigned a
// signature. For 4 tools a tie of 2 does not count; for 5 tools it takes 4.
func majority(positive, n int) bool {
	return positive > (n+1)/2
}

// Path is where a consensus table is written for a strategy.
func Path(outdir, name string, strategy assignment.Strategy) string {
	return filepath.Join(outdir, Dir, assignment.FileName(name, strategy))
}

// WriteFiles writes the three consensus tables beneath outdir.
func (r *Result) WriteFiles(outdir string) error {
	for _, t := range r.Tables() {
		if err := t.WriteFile(Path(outdir, t.Name, t.Strategy)); err != nil {
			return err
		}
	}

	return nil
}

// Load reads back the consensus tables written by WriteFiles.
func Load(outdir string, strategy assignment.Strategy) (*Result, error) {
	scales := map[string]assignment.Scale{
		Majority:  assignment.Indicator,
		Unanimous: assignment.Indicator,
		Mean:      assignment.Relative,
	}

	loaded := make(map[string]*assignment.Table, len(scales))
	for _, name := range Names {
		t, err := assignment.Read(Path(outdir, name, strategy), name, strategy, scales[name])
		if err != nil {
			return nil, err
		}
		loaded[name] = t
	}

	return &Result{
		Majority:  loaded[Majority],
		Unanimous: loaded[Unanimous],
		Mean:      loaded[Mean],
	}, nil
}
