package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/carbocation/ensemblefit/assignment"
	"github.com/carbocation/ensemblefit/dispatch"
	"github.com/carbocation/ensemblefit/ensemble"
	"github.com/carbocation/ensemblefit/jobconfig"
)

// Stage names a step of a run.
type Stage string

const (
	StagePrepare     Stage = "prepare"
	StageMatrix      Stage = "generate-matrix"
	StageAssign      Stage = "assign"
	StageAggregate   Stage = "aggregate"
	StagePostprocess Stage = "postprocess"
	StageArchive     Stage = "archive"
	StageUpload      Stage = "upload"
)

// StageError names the stage a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}

	return &StageError{Stage: stage, Err: err}
}

// Job is a resolved run: every path local and every default filled.
type Job struct {
	Samples   string
	Reference string

	// Output receives the per-tool directories, the consensus tables and the
	// metrics documents. Result receives the delivered absolute and relative
	// tree.
	Output string
	Result string
	LogDir string

	Strategy assignment.Strategy
	Tools    []dispatch.Tool

	// VCFDir and GenomeBuild, when set, generate Samples from VCFs first.
	VCFDir      string
	GenomeBuild string

	SignatureReference string
	JobID              string
	UserID             string

	Parallelism int
	Ensemble    ensemble.Options

	// Upload is a gs:// prefix; empty disables publishing.
	Upload string
}

// NewJob is a job with the defaults used by the standalone stage commands.
func NewJob(samples, reference, output string, strategy assignment.Strategy, tools []dispatch.Tool) Job {
	if len(tools) == 0 {
		tools = append([]dispatch.Tool(nil), dispatch.AssignmentTools...)
	}

	return Job{
		Samples:     samples,
		Reference:   reference,
		Output:      output,
		Result:      filepath.Join(output, "result"),
		LogDir:      filepath.Join(output, "logs"),
		Strategy:    strategy,
		Tools:       tools,
		Parallelism: jobconfig.DefaultParallelism,
		Ensemble:    ensemble.DefaultOptions(),
	}
}

// FromConfig resolves a normalized job document.
func FromConfig(cfg *jobconfig.Config) (Job, error) {
	tools, err := cfg.EnabledTools()
	if err != nil {
		return Job{}, err
	}

	return Job{
		Samples:            cfg.Required.Samples,
		Reference:          cfg.Required.Reference,
		Output:             cfg.Required.Output,
		Result:             cfg.Result,
		LogDir:             cfg.LogDir,
		Strategy:           cfg.Strategy(),
		Tools:              tools,
		VCFDir:             cfg.VCFDir,
		GenomeBuild:        cfg.GenomeBuild,
		SignatureReference: cfg.SignatureReference,
		JobID:              cfg.JobID,
		UserID:             cfg.UserID,
		Parallelism:        cfg.Parallelism,
		Ensemble:           cfg.Ensemble(),
		Upload:             cfg.Upload,
	}, nil
}

// ToolNames are the enabled tools' names, in order.
func (j Job) ToolNames() []string {
	out := make([]string, len(j.Tools))
	for i, t := range j.Tools {
		out[i] = t.String()
	}

	return out
}
