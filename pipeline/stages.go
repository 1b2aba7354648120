package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/carbocation/ensemblefit/assignment"
	"github.com/carbocation/ensemblefit/catalogue"
	"github.com/carbocation/ensemblefit/cloud"
	"github.com/carbocation/ensemblefit/compileinfo"
	"github.com/carbocation/ensemblefit/dispatch"
	"github.com/carbocation/ensemblefit/ensemble"
	"github.com/carbocation/ensemblefit/logging"
	"github.com/carbocation/ensemblefit/materialize"
	"github.com/carbocation/ensemblefit/metrics"
	"github.com/carbocation/ensemblefit/vcfcheck"
)

// inputDir holds inputs fetched from Google Storage.
const inputDir = "input"

// FetchInputs replaces gs:// sample and reference paths with local copies
// under <output>/input.
func FetchInputs(ctx context.Context, storage *cloud.Storage, job *Job) error {
	dir := filepath.Join(job.Output, inputDir)
	for _, p := range []*string{&job.Samples, &job.Reference} {
		local, err := storage.Fetch(ctx, *p, dir)
		if err != nil {
			return err
		}
		*p = local
	}

	return nil
}

// GenerateMatrix builds the catalogue from the job's VCF directory through the
// dispatcher, after checking that the directory holds readable VCFs. It is a
// no-op when the job has no VCF directory.
func GenerateMatrix(ctx context.Context, d *dispatch.Dispatcher, job Job) error {
	if job.VCFDir == "" {
		return nil
	}

	files, err := vcfcheck.Inventory(job.VCFDir)
	if err != nil {
		return err
	}
	logging.New("pipeline").Info("vcf inventory",
		"dir", job.VCFDir,
		"files", len(files),
		"samples", len(vcfcheck.Samples(files)))

	task, err := dispatch.NewMatrixTask(job.VCFDir, job.GenomeBuild, vcfcheck.Paths(files))
	if err != nil {
		return err
	}
	if _, err := d.Run(ctx, task); err != nil {
		return err
	}

	return nil
}

// Validate rewrites the catalogue in canonical form and loads the reference.
// An invalid catalogue is a *catalogue.ValidationError.
func Validate(job Job) (*catalogue.Catalogue, *catalogue.Reference, error) {
	cat, err := catalogue.Format(job.Samples)
	if err != nil {
		return nil, nil, err
	}

	ref, err := catalogue.LoadReference(job.Reference)
	if err != nil {
		return nil, nil, err
	}

	return cat, ref, nil
}

// AssignmentTasks are the fan-out tasks for a job, in tool order.
func AssignmentTasks(job Job) []*dispatch.Task {
	tasks := make([]*dispatch.Task, len(job.Tools))
	for i, tool := range job.Tools {
		tasks[i] = dispatch.NewAssignmentTask(tool, job.Samples, job.Reference, job.Output, job.Strategy)
	}

	return tasks
}

// Assign runs every enabled tool.
func Assign(ctx context.Context, c *Coordinator, job Job) ([]dispatch.Outcome, error) {
	return c.FanOut(ctx, AssignmentTasks(job))
}

// ToolTables reads every enabled tool's table for one strategy, labelled with
// the catalogue's samples.
func ToolTables(job Job, strategy assignment.Strategy, samples []string) ([]*assignment.Table, error) {
	tables := make([]*assignment.Table, 0, len(job.Tools))
	for _, tool := range job.Tools {
		name := tool.String()
		t, err := assignment.Read(assignment.Path(job.Output, name, strategy), name, strategy, assignment.Absolute)
		if err != nil {
			return nil, err
		}
		if t, err = t.WithSamples(samples); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	return tables, nil
}

// Aggregate writes the consensus tables for every strategy the job expands
// to.
func Aggregate(job Job, cat *catalogue.Catalogue, ref *catalogue.Reference) (map[assignment.Strategy]*ensemble.Result, error) {
	out := make(map[assignment.Strategy]*ensemble.Result)
	for _, s := range job.Strategy.Expand() {
		tables, err := ToolTables(job, s, cat.Samples())
		if err != nil {
			return nil, err
		}

		res, err := ensemble.Aggregate(tables, cat.Samples(), ref.Signatures(), s, job.Ensemble)
		if err != nil {
			return nil, err
		}
		if err := res.WriteFiles(job.Output); err != nil {
			return nil, err
		}
		out[s] = res
	}

	return out, nil
}

// Postprocess scores every tool and consensus table, writes the metrics,
// the assignment summary and the catalogue profiles to the output directory,
// and delivers the absolute and relative result tree. It reads everything
// back from disk so that it can run on its own.
func Postprocess(job Job, cat *catalogue.Catalogue, ref *catalogue.Reference) ([]metrics.Row, error) {
	if err := materialize.WriteProfiles(filepath.Join(job.Output, materialize.ProfilesFileName), cat); err != nil {
		return nil, err
	}

	var rows []metrics.Row
	for _, s := range job.Strategy.Expand() {
		tables, err := ToolTables(job, s, cat.Samples())
		if err != nil {
			return nil, err
		}

		consensus, err := ensemble.Load(job.Output, s)
		if err != nil {
			return nil, err
		}
		tables = append(tables, consensus.Tables()...)

		for _, t := range tables {
			row, err := metrics.Compute(t, cat, ref)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}

		if err := materialize.WriteTables(job.Result, tables, cat.Totals()); err != nil {
			return nil, err
		}
	}

	if err := metrics.WriteRows(filepath.Join(job.Output, metrics.FileName), rows); err != nil {
		return nil, err
	}

	summaryTables, err := ToolTables(job, job.Strategy.Summary(), cat.Samples())
	if err != nil {
		return nil, err
	}
	summary, err := metrics.Summarize(summaryTables, cat.Samples(), ref.Signatures())
	if err != nil {
		return nil, err
	}
	if err := summary.WriteFile(filepath.Join(job.Output, metrics.SummaryFileName)); err != nil {
		return nil, err
	}
	if err := summary.WriteJSON(filepath.Join(job.Output, metrics.SummaryJSONFileName)); err != nil {
		return nil, err
	}

	return rows, nil
}

// NewMetadata describes a job for the metadata document.
func NewMetadata(job Job, samples int, now time.Time) materialize.Metadata {
	m := materialize.Metadata{
		Date:               now,
		Samples:            samples,
		GenomeBuild:        job.GenomeBuild,
		SignatureReference: job.SignatureReference,
		Strategy:           string(job.Strategy),
		Build:              compileinfo.Get(),
	}
	if m.GenomeBuild == "" {
		m.GenomeBuild = "NA"
	}
	if m.SignatureReference == "" {
		m.SignatureReference = filepath.Base(job.Reference)
	}
	for _, t := range job.Tools {
		m.Tools = append(m.Tools, t.Describe())
	}

	return m
}

// WriteMetadata writes the job metadata document to the output directory.
func WriteMetadata(job Job, samples int, now time.Time) error {
	return materialize.WriteMetadata(filepath.Join(job.Output, materialize.MetadataFileName), NewMetadata(job, samples, now))
}

// Documents are the files delivered alongside the archives.
var Documents = []string{
	metrics.FileName,
	metrics.SummaryJSONFileName,
	metrics.SummaryFileName,
	materialize.MetadataFileName,
	materialize.ProfilesFileName,
}

// Publish uploads the documents, the archives and the result tree to
// <upload>/<user_id>/<job_id>/. It is a no-op when the job has no upload
// prefix.
func Publish(ctx context.Context, storage *cloud.Storage, job Job, archives []string) ([]string, error) {
	if job.Upload == "" {
		return nil, nil
	}
	if storage == nil {
		return nil, fmt.Errorf("upload to %s requested without a storage client", job.Upload)
	}

	prefix := cloud.Join(job.Upload, job.UserID, job.JobID)

	var uploaded []string
	for _, name := range Documents {
		dest := cloud.Join(prefix, name)
		if err := storage.Upload(ctx, filepath.Join(job.Output, name), dest); err != nil {
			return uploaded, err
		}
		uploaded = append(uploaded, dest)
	}
	for _, archive := range archives {
		dest := cloud.Join(prefix, filepath.Base(archive))
		if err := storage.Upload(ctx, archive, dest); err != nil {
			return uploaded, err
		}
		uploaded = append(uploaded, dest)
	}

	tree, err := storage.UploadTree(ctx, job.Result, cloud.Join(prefix, filepath.Base(job.Result)))
	if err != nil {
		return uploaded, err
	}

	return append(uploaded, tree...), nil
}
