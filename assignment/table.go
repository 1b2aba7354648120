// Package assignment holds per-tool signature assignment tables: samples by
// signatures, in absolute counts, relative frequencies, or 0/1 indicators.
package assignment

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carbocation/ensemblefit"
	"github.com/carbocation/pfx"
)

// Unassigned is the optional column holding mutations that were not
// attributed to any signature.
const Unassigned = "unassigned"

// SampleColumn is the key column name used when writing tables.
const SampleColumn = "Samples"

// Scale describes the units of a table's values.
type Scale int

const (
	// Absolute values are in the same units as the mutation catalogue.
	Absolute Scale = iota

	// Relative values are per-sample frequencies.
	Relative

	// Indicator values are 0 or 1, as produced by the qualitative consensus
	// rules. They are never renormalized.
	Indicator
)

func (s Scale) String() string {
	switch s {
	case Absolute:
		return "absolute"
	case Relative:
		return "relative"
	case Indicator:
		return "indicator"
	}

	return fmt.Sprintf("Scale(%d)", int(s))
}

// Table is one tool's (or one consensus rule's) assignment for one strategy.
type Table struct {
	Name       string
	Strategy   Strategy
	Scale      Scale
	Samples    []string
	Signatures []string
	Values     [][]float64 // Values[sample][signature]
}

// NewTable allocates a zero-valued table.
func NewTable(name string, strategy Strategy, scale Scale, samples, signatures []string) *Table {
	t := &Table{
		Name:       name,
		Strategy:   strategy,
		Scale:      scale,
		Samples:    append([]string(nil), samples...),
		Signatures: append([]string(nil), signatures...),
		Values:     make([][]float64, len(samples)),
	}
	for i := range t.Values {
		t.Values[i] = make([]float64, len(signatures))
	}

	return t
}

// Path is the deterministic location of a tool's result for one strategy:
// <dir>/<name>/<name>_<strategy>.txt
func Path(dir, name string, strategy Strategy) string {
	return filepath.Join(dir, name, FileName(name, strategy))
}

// FileName is the base name of a result file.
func FileName(name string, strategy Strategy) string {
	return fmt.Sprintf("%s_%s.txt", name, strategy)
}

// Read loads a delimited assignment table. Empty and NA cells are read as 0.
func Read(path, name string, strategy Strategy, scale Scale) (*Table, error) {
	header, rows, err := ensemblefit.ReadDelimited(path)
	if err != nil {
		return nil, err
	}
	if len(header) < 1 {
		return nil, fmt.Errorf("%s: empty header", path)
	}

	t := NewTable(name, strategy, scale, nil, header[1:])
	for _, row := range rows {
		values := make([]float64, len(t.Signatures))
		for j := 1; j < len(row); j++ {
			v, err := parseCell(row[j])
			if err != nil {
				return nil, fmt.Errorf("%s: sample %s, column %s: %w", path, row[0], header[j], err)
			}
			values[j-1] = v
		}
		t.Samples = append(t.Samples, row[0])
		t.Values = append(t.Values, values)
	}

	return t, nil
}

func parseCell(cell string) (float64, error) {
	switch strings.ToUpper(cell) {
	case "", "NA", "NAN":
		return 0, nil
	}

	return strconv.ParseFloat(cell, 64)
}

// Column returns the index of a column, or -1.
func (t *Table) Column(signature string) int {
	for j, s := range t.Signatures {
		if s == signature {
			return j
		}
	}

	return -1
}

// Value returns the value for a sample row and a named column. Missing
// columns read as 0.
func (t *Table) Value(sample int, signature string) float64 {
	j := t.Column(signature)
	if j < 0 {
		return 0
	}

	return t.Values[sample][j]
}

// HasUnassigned reports whether the table carries an unassigned column.
func (t *Table) HasUnassigned() bool {
	return t.Column(Unassigned) >= 0
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := NewTable(t.Name, t.Strategy, t.Scale, t.Samples, t.Signatures)
	for i := range t.Values {
		copy(out.Values[i], t.Values[i])
	}

	return out
}

// WithSamples replaces the sample labels. Tools may emit their own row
// labels, so results are keyed by the catalogue's sample order instead.
func (t *Table) WithSamples(samples []string) (*Table, error) {
	if len(samples) != len(t.Samples) {
		return nil, fmt.Errorf("%s (%s): table has %d samples, catalogue has %d", t.Name, t.Strategy, len(t.Samples), len(samples))
	}

	out := t.Clone()
	out.Samples = append([]string(nil), samples...)

	return out, nil
}

// Align returns a copy whose columns are exactly universe, in order, followed
// by the unassigned column when t has one. Signatures missing from t are
// zero-filled; columns outside universe are dropped.
func (t *Table) Align(universe []string) *Table {
	columns := append([]string(nil), universe...)
	if t.HasUnassigned() {
		columns = append(columns, Unassigned)
	}

	out := NewTable(t.Name, t.Strategy, t.Scale, t.Samples, columns)
	for j, sig := range columns {
		src := t.Column(sig)
		if src < 0 {
			continue
		}
		for i := range t.Values {
			out.Values[i][j] = t.Values[i][src]
		}
	}

	return out
}

// RowSum is the sum of every column, including unassigned, for one sample.
func (t *Table) RowSum(sample int) float64 {
	var sum float64
	for _, v := range t.Values[sample] {
		sum += v
	}

	return sum
}

// ColumnSum is the total of one column across samples.
func (t *Table) ColumnSum(j int) float64 {
	var sum float64
	for i := range t.Values {
		sum += t.Values[i][j]
	}

	return sum
}

// Relative returns the relative-frequency counterpart of t: each row divided
// by its own total. Rows that sum to zero stay zero. Indicator tables are
// returned unchanged (as a copy), since dividing a 0/1 row by its sum would
// destroy its meaning.
func (t *Table) Relative() *Table {
	out := t.Clone()
	if t.Scale == Indicator {
		return out
	}

	out.Scale = Relative
	for i := range out.Values {
		sum := t.RowSum(i)
		if sum == 0 {
			continue
		}
		for j := range out.Values[i] {
			out.Values[i][j] /= sum
		}
	}

	return out
}

// Scaled multiplies each sample row by the corresponding factor. It is used to
// express relative tables in absolute units.
func (t *Table) Scaled(factors []float64) (*Table, error) {
	if len(factors) != len(t.Values) {
		return nil, fmt.Errorf("%s: %d factors for %d samples", t.Name, len(factors), len(t.Values))
	}

	out := t.Clone()
	out.Scale = Absolute
	for i := range out.Values {
		for j := range out.Values[i] {
			out.Values[i][j] *= factors[i]
		}
	}

	return out, nil
}

// WriteFile writes the table as a tab-delimited file, creating parent
// directories as needed.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pfx.Err(err)
	}

	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s\t%s\n", SampleColumn, strings.Join(t.Signatures, "\t"))
	for i, sample := range t.Samples {
		w.WriteString(sample)
		for _, v := range t.Values[i] {
			w.WriteByte('\t')
			w.WriteString(FormatValue(v))
		}
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return pfx.Err(f.Close())
}

// FormatValue renders a value with the shortest representation that round
// trips.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
