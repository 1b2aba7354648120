package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/carbocation/ensemblefit/cloud"
	"github.com/carbocation/ensemblefit/dispatch"
	"github.com/carbocation/ensemblefit/logging"
)

// Runner drives a whole job.
type Runner struct {
	Dispatcher *dispatch.Dispatcher
	Clients    *cloud.Clients

	// Progress receives one human-readable line per stage. Nil discards.
	Progress io.Writer

	Now func() time.Time
}

func (r *Runner) progress(format string, args ...interface{}) {
	if r.Progress == nil {
		return
	}
	fmt.Fprintf(r.Progress, format+"\n", args...)
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}

	return time.Now()
}

// Run executes every stage in order. Validation and terminal tool failures
// stop the run before any consensus is written. The error, if any, is a
// *StageError. Job status is recorded when a status table is configured.
func (r *Runner) Run(ctx context.Context, job Job) (err error) {
	log := logging.New("pipeline").With("job_id", job.JobID)
	status := r.Clients.StatusTable()

	if serr := status.Record(ctx, cloud.Running, ""); serr != nil {
		log.Warn("could not record job status", "error", serr)
	}
	defer func() {
		final, msg := cloud.Completed, ""
		if err != nil {
			final, msg = cloud.Failed, err.Error()
		}
		if serr := status.Record(ctx, final, msg); serr != nil {
			log.Warn("could not record job status", "error", serr)
		}
	}()

	r.progress("Preparing inputs...")
	if err := FetchInputs(ctx, r.Clients.StorageClient(), &job); err != nil {
		return stageErr(StagePrepare, err)
	}

	if job.VCFDir != "" {
		r.progress("Generating the mutation catalogue from %s (%s)...", job.VCFDir, job.GenomeBuild)
		if err := GenerateMatrix(ctx, r.Dispatcher, job); err != nil {
			return stageErr(StageMatrix, err)
		}
	}

	r.progress("Validating %s...", job.Samples)
	cat, ref, err := Validate(job)
	if err != nil {
		return stageErr(StagePrepare, err)
	}
	log.Info("catalogue validated", "samples", cat.NumSamples(), "signatures", len(ref.Signatures()))

	r.progress("Running %d tool(s) with strategy %s...", len(job.Tools), job.Strategy)
	c := &Coordinator{Dispatcher: r.Dispatcher, Parallelism: job.Parallelism}
	outcomes, err := Assign(ctx, c, job)
	if err != nil {
		return stageErr(StageAssign, err)
	}
	for _, o := range outcomes {
		r.progress("  %s: done (cached=%t)", o.Task.ID(), o.Cached)
	}

	r.progress("Aggregating consensus tables...")
	if _, err := Aggregate(job, cat, ref); err != nil {
		return stageErr(StageAggregate, err)
	}

	r.progress("Post-processing...")
	if _, err := Postprocess(job, cat, ref); err != nil {
		return stageErr(StagePostprocess, err)
	}
	if err := WriteMetadata(job, cat.NumSamples(), r.now()); err != nil {
		return stageErr(StagePostprocess, err)
	}

	r.progress("Archiving...")
	archives, err := Archive(job)
	if err != nil {
		return stageErr(StageArchive, err)
	}

	if job.Upload != "" {
		r.progress("Uploading to %s...", job.Upload)
		uploaded, err := Publish(ctx, r.Clients.StorageClient(), job, archives)
		if err != nil {
			return stageErr(StageUpload, err)
		}
		log.Info("published", "objects", len(uploaded))
	}

	r.progress("Completed")

	return nil
}
