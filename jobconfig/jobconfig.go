// Package jobconfig reads the job document that drives a run: where the
// inputs are, which strategy and tools to use, and how to execute them.
package jobconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/carbocation/ensemblefit"
	"github.com/carbocation/ensemblefit/assignment"
	"github.com/carbocation/ensemblefit/dispatch"
	"github.com/carbocation/ensemblefit/ensemble"
	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v3"
)

// DefaultParallelism is how many tools run at once when unset.
const DefaultParallelism = 4

// Required holds the settings every job must provide.
type Required struct {
	Samples   string `json:"samples" yaml:"samples"`
	Reference string `json:"reference" yaml:"reference"`
	Output    string `json:"output" yaml:"output"`
	Strategy  string `json:"strategy" yaml:"strategy"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("durations are strings such as \"30s\": %w", err)
	}

	return d.parse(s)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		d.Duration = 0
		return nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v

	return nil
}

type Cache struct {
	// Key is path-size (the default) or content.
	Key string `json:"key,omitempty" yaml:"key"`

	// Checkpoint is the SQLite database that persists memoized runs. Empty
	// disables persistence.
	Checkpoint string `json:"checkpoint,omitempty" yaml:"checkpoint"`
}

type Bootstrap struct {
	Iterations int    `json:"iterations,omitempty" yaml:"iterations"`
	Seed       *int64 `json:"seed,omitempty" yaml:"seed"`
}

type StatusTable struct {
	Project string `json:"project" yaml:"project"`
	Dataset string `json:"dataset" yaml:"dataset"`
	Table   string `json:"table" yaml:"table"`
}

// Configured reports whether status records should be written.
func (s StatusTable) Configured() bool {
	return s.Project != "" && s.Dataset != "" && s.Table != ""
}

// Config is a job document.
type Config struct {
	Required Required `json:"required" yaml:"required"`

	// Result is where the delivered tree is written. It defaults to
	// <output>/result.
	Result string `json:"result,omitempty" yaml:"result"`

	// LogDir receives per-task stdout and stderr. It defaults to
	// <output>/logs.
	LogDir string `json:"log_dir,omitempty" yaml:"log_dir"`

	// GenomeBuild and VCFDir request matrix generation before assignment.
	GenomeBuild string `json:"genome_build,omitempty" yaml:"genome_build"`
	VCFDir      string `json:"vcf_dir,omitempty" yaml:"vcf_dir"`

	SignatureReference string `json:"signature_reference,omitempty" yaml:"signature_reference"`
	JobID              string `json:"job_id,omitempty" yaml:"job_id"`
	UserID             string `json:"user_id,omitempty" yaml:"user_id"`

	Tools ToolSet `json:"tools" yaml:"tools"`

	ScriptsDir  string   `json:"scripts_dir,omitempty" yaml:"scripts_dir"`
	Parallelism int      `json:"parallelism,omitempty" yaml:"parallelism"`
	Retries     int      `json:"retries,omitempty" yaml:"retries"`
	RetryDelay  Duration `json:"retry_delay" yaml:"retry_delay"`

	Cache     Cache     `json:"cache" yaml:"cache"`
	Bootstrap Bootstrap `json:"bootstrap" yaml:"bootstrap"`

	// Upload is a gs:// prefix that receives the outputs and archives.
	Upload      string      `json:"upload,omitempty" yaml:"upload"`
	StatusTable StatusTable `json:"status_table" yaml:"status_table"`
}

// Load reads a job document. Files ending in .yaml or .yml are YAML; anything
// else is JSON. The result is normalized.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, cfg)
	default:
		err = json.Unmarshal(b, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Normalize fills defaults, expands ~ in local paths and validates the
// document.
func (c *Config) Normalize() error {
	var missing []string
	for name, v := range map[string]string{
		"required.reference": c.Required.Reference,
		"required.output":    c.Required.Output,
		"required.strategy":  c.Required.Strategy,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if c.Required.Samples == "" && c.VCFDir == "" {
		missing = append(missing, "required.samples (or vcf_dir)")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	for _, p := range []*string{&c.Required.Samples, &c.Required.Reference, &c.Required.Output, &c.Result, &c.LogDir, &c.VCFDir, &c.ScriptsDir, &c.Cache.Checkpoint} {
		expanded, err := ensemblefit.ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}

	strategy, err := assignment.ParseStrategy(c.Required.Strategy)
	if err != nil {
		return err
	}
	c.Required.Strategy = string(strategy)

	if c.Required.Samples == "" {
		c.Required.Samples = dispatch.MatrixPath(c.VCFDir)
	}
	if c.Result == "" {
		c.Result = filepath.Join(c.Required.Output, "result")
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.Required.Output, "logs")
	}
	if c.Parallelism < 1 {
		c.Parallelism = DefaultParallelism
	}
	if c.Retries < 1 {
		c.Retries = dispatch.DefaultRetries
	}
	if c.RetryDelay.Duration < 0 {
		return errors.New("retry_delay must not be negative")
	}
	if _, err := dispatch.ParseKeyStrategy(c.Cache.Key); err != nil {
		return err
	}
	if c.Cache.Key == "" {
		c.Cache.Key = dispatch.KeyPathSize.String()
	}
	if c.Bootstrap.Iterations < 1 {
		c.Bootstrap.Iterations = ensemble.DefaultIterations
	}
	if c.Bootstrap.Seed == nil {
		seed := ensemble.DefaultSeed
		c.Bootstrap.Seed = &seed
	}

	if c.VCFDir != "" {
		if _, err := dispatch.ParseGenomeBuild(c.GenomeBuild); err != nil {
			return err
		}
	}

	if len(c.Tools) == 0 {
		for _, t := range dispatch.AssignmentTools {
			c.Tools = append(c.Tools, ToolToggle{Name: t.String(), Enabled: true})
		}
	}
	if _, err := c.EnabledTools(); err != nil {
		return err
	}

	if c.Upload != "" && !strings.HasPrefix(c.Upload, "gs://") {
		return fmt.Errorf("upload must be a gs:// prefix, got %q", c.Upload)
	}

	return nil
}

// Strategy is the normalized strategy.
func (c *Config) Strategy() assignment.Strategy {
	return assignment.Strategy(c.Required.Strategy)
}

// EnabledTools resolves the enabled assignment tools, in document order.
func (c *Config) EnabledTools() ([]dispatch.Tool, error) {
	var out []dispatch.Tool
	for _, name := range c.Tools.Enabled() {
		t, err := dispatch.ParseTool(name)
		if err != nil {
			return nil, err
		}
		if t == dispatch.GenerateMatrix {
			return nil, fmt.Errorf("%s is not an assignment tool", name)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, errors.New("no tools are enabled")
	}

	return out, nil
}

// Ensemble returns the bootstrap settings.
func (c *Config) Ensemble() ensemble.Options {
	opts := ensemble.Options{Iterations: c.Bootstrap.Iterations, Seed: ensemble.DefaultSeed}
	if c.Bootstrap.Seed != nil {
		opts.Seed = *c.Bootstrap.Seed
	}

	return opts
}
