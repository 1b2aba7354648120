package main

import (
	"fmt"
	"os"

	"github.com/carbocation/ensemblefit/cloud"
	"github.com/carbocation/ensemblefit/jobconfig"
	"github.com/carbocation/ensemblefit/logging"
	"github.com/carbocation/ensemblefit/pipeline"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <job.json|job.yaml>",
	Short: "Run a whole job described by a job document",
	Args:  cobra.ExactArgs(1),
	RunE:  runJob,
}

func runJob(cmd *cobra.Command, args []string) error {
	cfg, err := jobconfig.Load(args[0])
	if err != nil {
		return err
	}

	job, err := pipeline.FromConfig(cfg)
	if err != nil {
		return err
	}
	for _, dir := range []string{job.Output, job.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	ctx := cmd.Context()

	useStorage := job.Upload != "" || cloud.IsGS(job.Samples) || cloud.IsGS(job.Reference)
	workflow := cloud.WorkflowAssignment
	if job.VCFDir != "" {
		workflow = cloud.WorkflowMatrix
	}
	clients, err := cloud.Connect(ctx, useStorage, cloud.StatusConfig{
		Project:  cfg.StatusTable.Project,
		Dataset:  cfg.StatusTable.Dataset,
		Table:    cfg.StatusTable.Table,
		UserID:   cfg.UserID,
		JobID:    cfg.JobID,
		Workflow: workflow,
	})
	if err != nil {
		return err
	}
	defer clients.Close()

	d, closer, err := newDispatcher(dispatcherSettings{
		scriptsDir: cfg.ScriptsDir,
		logDir:     job.LogDir,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay.Duration,
		cacheKey:   cfg.Cache.Key,
		checkpoint: cfg.Cache.Checkpoint,
	})
	if err != nil {
		return err
	}
	defer closer()

	logging.New("main").Info("starting job",
		"job_id", job.JobID,
		"strategy", job.Strategy,
		"tools", job.ToolNames(),
		"parallelism", job.Parallelism)

	r := &pipeline.Runner{
		Dispatcher: d,
		Clients:    clients,
		Progress:   cmd.OutOrStdout(),
	}
	if err := r.Run(ctx, job); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Results in %s\n", job.Result)
	return nil
}
