package dispatch

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/carbocation/ensemblefit/assignment"
)

// State is where a task is in its lifecycle.
type State int

const (
	Pending State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Task is one external invocation: a tool, its positional arguments, the
// files whose identity decides whether a previous run can be reused, and the
// files it must produce.
type Task struct {
	Tool    Tool
	Label   string
	Args    []string
	Inputs  []string
	Outputs []string

	mu    sync.Mutex
	state State
}

// ID names the task in logs, log files and checkpoints.
func (t *Task) ID() string {
	if t.Label == "" {
		return t.Tool.String()
	}

	return t.Tool.String() + "_" + t.Label
}

// State returns the task's current state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// NewAssignmentTask describes one assignment tool run. The tool writes into
// <outdir>/<Tool>/ and produces one table per strategy that strategy expands
// to.
func NewAssignmentTask(tool Tool, samplePath, referencePath, outdir string, strategy assignment.Strategy) *Task {
	t := &Task{
		Tool:   tool,
		Label:  string(strategy),
		Args:   []string{samplePath, referencePath, filepath.Join(outdir, tool.String()), string(strategy)},
		Inputs: []string{samplePath, referencePath},
	}
	for _, s := range strategy.Expand() {
		t.Outputs = append(t.Outputs, assignment.Path(outdir, tool.String(), s))
	}

	return t
}

// Genome builds accepted by matrix generation.
var GenomeBuilds = []string{"GRCh37", "GRCh38", "mm39", "mm10", "mm9"}

// ParseGenomeBuild validates a genome build name.
func ParseGenomeBuild(s string) (string, error) {
	for _, g := range GenomeBuilds {
		if s == g {
			return g, nil
		}
	}

	return "", fmt.Errorf("unknown genome build %q: must be one of %s", s, strings.Join(GenomeBuilds, ", "))
}

// MatrixPath is where matrix generation leaves the catalogue for a VCF
// directory.
func MatrixPath(vcfDir string) string {
	return filepath.Join(vcfDir, "output", "SBS", "mutsig.SBS96.all")
}

// NewMatrixTask describes generating a catalogue from the VCFs in vcfDir.
// vcfs are the files whose identity keys the memo.
func NewMatrixTask(vcfDir, genome string, vcfs []string) (*Task, error) {
	g, err := ParseGenomeBuild(genome)
	if err != nil {
		return nil, err
	}

	return &Task{
		Tool:    GenerateMatrix,
		Label:   g,
		Args:    []string{vcfDir, g},
		Inputs:  append([]string(nil), vcfs...),
		Outputs: []string{MatrixPath(vcfDir)},
	}, nil
}
