package dispatch

import (
	"fmt"
	"path/filepath"

	"github.com/kardianos/osext"
)

// Tool is one of the external programs the pipeline knows how to run.
type Tool int

const (
	SigProfilerAssignment Tool = iota + 1
	Sigminer
	SignatureToolsLib
	MutationalPatterns
	MutSignatures

	// GenerateMatrix turns a directory of VCFs into an SBS96 catalogue. It
	// runs before any assignment tool.
	GenerateMatrix
)

type toolSpec struct {
	name        string
	script      string
	interpreter string
	version     string
}

var tools = map[Tool]toolSpec{
	SigProfilerAssignment: {"SigProfilerAssignment", "SigProfiler.py", "python", "0.0.13"},
	Sigminer:              {"Sigminer", "Sigminer.r", "Rscript", "2.1.7"},
	SignatureToolsLib:     {"SignatureToolsLib", "SignatureToolsLib.r", "Rscript", "2.1.2"},
	MutationalPatterns:    {"MutationalPatterns", "MutationalPatterns.r", "Rscript", "3.4.1"},
	MutSignatures:         {"MutSignatures", "MutSignatures.r", "Rscript", "2.1.1"},
	GenerateMatrix:        {"generate_matrix", "generate_matrix.py", "python", ""},
}

// AssignmentTools lists the signature assignment tools in their default run
// order.
var AssignmentTools = []Tool{SigProfilerAssignment, Sigminer, SignatureToolsLib, MutationalPatterns, MutSignatures}

func (t Tool) String() string {
	if s, ok := tools[t]; ok {
		return s.name
	}

	return fmt.Sprintf("Tool(%d)", int(t))
}

// Version is the release of the tool that the bundled scripts target.
func (t Tool) Version() string {
	return tools[t].version
}

// Describe is the tool's name with its version, as cited in job metadata.
func (t Tool) Describe() string {
	if v := t.Version(); v != "" {
		return fmt.Sprintf("%s (%s)", t, v)
	}

	return t.String()
}

// ParseTool looks a tool up by its name.
func ParseTool(name string) (Tool, error) {
	for t, s := range tools {
		if s.name == name {
			return t, nil
		}
	}

	return 0, fmt.Errorf("unknown tool %q", name)
}

// DefaultScriptsDir is the scripts directory installed next to the running
// binary.
func DefaultScriptsDir() (string, error) {
	folder, err := osext.ExecutableFolder()
	if err != nil {
		return "", err
	}

	return filepath.Join(folder, "scripts"), nil
}
