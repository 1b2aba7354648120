package main

import (
	"fmt"
	"time"

	"github.com/carbocation/ensemblefit/assignment"
	"github.com/carbocation/ensemblefit/checkpoint"
	"github.com/carbocation/ensemblefit/dispatch"
	"github.com/carbocation/ensemblefit/ensemble"
	"github.com/carbocation/ensemblefit/jobconfig"
	"github.com/carbocation/ensemblefit/pipeline"
	"github.com/spf13/cobra"
)

// stageFlags are shared by the commands that take the positional
// sample/reference/output/strategy arguments.
var stageFlags struct {
	result      string
	logDir      string
	scriptsDir  string
	parallelism int
	retries     int
	retryDelay  time.Duration
	cacheKey    string
	checkpoint  string
	iterations  int
	seed        int64
	genomeBuild string
	reference   string
}

const stageUse = "<sample_path> <reference_path> <output_path> <strategy> [tool...]"

func addStageFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&stageFlags.result, "result", "", "Delivered result tree (default <output_path>/result)")
	f.StringVar(&stageFlags.logDir, "log-dir", "", "Per-task stdout/stderr logs (default <output_path>/logs)")
	f.StringVar(&stageFlags.scriptsDir, "scripts-dir", "", "Directory holding the tool scripts (default: scripts/ next to this binary)")
	f.IntVar(&stageFlags.parallelism, "parallelism", jobconfig.DefaultParallelism, "Tools run at once")
	f.IntVar(&stageFlags.retries, "retries", dispatch.DefaultRetries, "Attempts per tool")
	f.DurationVar(&stageFlags.retryDelay, "retry-delay", 0, "Pause between attempts")
	f.StringVar(&stageFlags.cacheKey, "cache-key", dispatch.KeyPathSize.String(), "Memo key strategy: path-size or content")
	f.StringVar(&stageFlags.checkpoint, "checkpoint", "", "SQLite checkpoint database; empty keeps the memo in memory")
	f.IntVar(&stageFlags.iterations, "iterations", ensemble.DefaultIterations, "Bootstrap iterations for the mean consensus")
	f.Int64Var(&stageFlags.seed, "seed", ensemble.DefaultSeed, "Bootstrap seed")
	f.StringVar(&stageFlags.genomeBuild, "genome-build", "", "Genome build reported in the job metadata")
	f.StringVar(&stageFlags.reference, "signature-reference", "", "Signature database reported in the job metadata (default: reference file name)")
}

// stageJob resolves the positional arguments and the stage flags.
func stageJob(args []string) (pipeline.Job, error) {
	strategy, err := assignment.ParseStrategy(args[3])
	if err != nil {
		return pipeline.Job{}, err
	}

	var tools []dispatch.Tool
	for _, name := range args[4:] {
		t, err := dispatch.ParseTool(name)
		if err != nil {
			return pipeline.Job{}, err
		}
		if t == dispatch.GenerateMatrix {
			return pipeline.Job{}, fmt.Errorf("%s is not an assignment tool", name)
		}
		tools = append(tools, t)
	}

	job := pipeline.NewJob(args[0], args[1], args[2], strategy, tools)
	if stageFlags.result != "" {
		job.Result = stageFlags.result
	}
	if stageFlags.logDir != "" {
		job.LogDir = stageFlags.logDir
	}
	job.Parallelism = stageFlags.parallelism
	job.Ensemble = ensemble.Options{Iterations: stageFlags.iterations, Seed: stageFlags.seed}
	job.GenomeBuild = stageFlags.genomeBuild
	job.SignatureReference = stageFlags.reference

	return job, nil
}

// dispatcherSettings are what it takes to build a dispatcher.
type dispatcherSettings struct {
	scriptsDir string
	logDir     string
	retries    int
	retryDelay time.Duration
	cacheKey   string
	checkpoint string
}

// newDispatcher builds the dispatcher for a run. The returned function closes
// the checkpoint database, if one was opened.
func newDispatcher(s dispatcherSettings) (*dispatch.Dispatcher, func() error, error) {
	scripts := s.scriptsDir
	if scripts == "" {
		var err error
		if scripts, err = dispatch.DefaultScriptsDir(); err != nil {
			return nil, nil, err
		}
	}

	key, err := dispatch.ParseKeyStrategy(s.cacheKey)
	if err != nil {
		return nil, nil, err
	}

	d := &dispatch.Dispatcher{
		Registry:   dispatch.NewRegistry(scripts),
		LogDir:     s.logDir,
		Retries:    s.retries,
		RetryDelay: s.retryDelay,
	}

	closer := func() error { return nil }
	if s.checkpoint == "" {
		d.Cache = dispatch.NewCache(key, nil)
		return d, closer, nil
	}

	store, err := checkpoint.Open(s.checkpoint)
	if err != nil {
		return nil, nil, err
	}
	d.Cache = dispatch.NewCache(key, store)
	d.States = store

	return d, store.Close, nil
}

func stageDispatcher(job pipeline.Job) (*dispatch.Dispatcher, func() error, error) {
	return newDispatcher(dispatcherSettings{
		scriptsDir: stageFlags.scriptsDir,
		logDir:     job.LogDir,
		retries:    stageFlags.retries,
		retryDelay: stageFlags.retryDelay,
		cacheKey:   stageFlags.cacheKey,
		checkpoint: stageFlags.checkpoint,
	})
}
