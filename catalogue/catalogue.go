// Package catalogue reads, validates and formats SBS96 mutation catalogues and
// signature reference catalogues.
package catalogue

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/ensemblefit"
	"github.com/carbocation/pfx"
)

// Matrix is a catalogue as it was read from disk, before validation. Cells are
// kept as text so that validation can distinguish integers from reals.
type Matrix struct {
	Path    string
	Header  []string
	Keys    []string
	Columns [][]string // Columns[sample][row]
}

// Samples returns the sample names from the header.
func (m *Matrix) Samples() []string {
	if len(m.Header) < 2 {
		return nil
	}

	return m.Header[1:]
}

// ReadMatrix loads a delimited, possibly compressed, catalogue file.
func ReadMatrix(path string) (*Matrix, error) {
	header, rows, err := ensemblefit.ReadDelimited(path)
	if err != nil {
		return nil, &ValidationError{Path: path, Reason: err.Error()}
	}

	m := &Matrix{
		Path:    path,
		Header:  header,
		Keys:    make([]string, 0, len(rows)),
		Columns: make([][]string, max(len(header)-1, 0)),
	}
	for _, row := range rows {
		m.Keys = append(m.Keys, row[0])
		for j := 1; j < len(row); j++ {
			m.Columns[j-1] = append(m.Columns[j-1], row[j])
		}
	}

	return m, nil
}

// Catalogue is a validated SBS96 mutation catalogue. Counts are stored in
// canonical category order regardless of the order in the source file.
type Catalogue struct {
	samples []string
	counts  [][]int64 // counts[sample][category]
}

// Samples returns the sample names in file order.
func (c *Catalogue) Samples() []string {
	return append([]string(nil), c.samples...)
}

// NumSamples is the number of sample columns.
func (c *Catalogue) NumSamples() int {
	return len(c.samples)
}

// Count returns the count for one sample and canonical category index.
func (c *Catalogue) Count(sample, category int) int64 {
	return c.counts[sample][category]
}

// Vector returns the sample's 96-category profile as floats.
func (c *Catalogue) Vector(sample int) []float64 {
	out := make([]float64, Size)
	for i, v := range c.counts[sample] {
		out[i] = float64(v)
	}

	return out
}

// Total is the sample's total mutation count.
func (c *Catalogue) Total(sample int) int64 {
	var sum int64
	for _, v := range c.counts[sample] {
		sum += v
	}

	return sum
}

// Totals returns every sample's total mutation count, in sample order.
func (c *Catalogue) Totals() []float64 {
	out := make([]float64, len(c.samples))
	for i := range c.samples {
		out[i] = float64(c.Total(i))
	}

	return out
}

// New builds a catalogue directly from counts given in canonical category
// order. It enforces the same invariants as Parse.
func New(samples []string, counts [][]int64) (*Catalogue, error) {
	if len(samples) != len(counts) {
		return nil, fmt.Errorf("%d sample names but %d count columns", len(samples), len(counts))
	}

	var invalid []string
	for i, col := range counts {
		if len(col) != Size {
			return nil, &ValidationError{Reason: fmt.Sprintf("sample %s has %d categories, want %d", samples[i], len(col), Size)}
		}
		var sum int64
		bad := false
		for _, v := range col {
			if v < 0 {
				bad = true
			}
			sum += v
		}
		if bad || sum == 0 {
			invalid = append(invalid, samples[i])
		}
	}
	if len(invalid) > 0 {
		return nil, invalidSamplesError("", invalid)
	}

	c := &Catalogue{
		samples: append([]string(nil), samples...),
		counts:  make([][]int64, len(counts)),
	}
	for i := range counts {
		c.counts[i] = append([]int64(nil), counts[i]...)
	}

	return c, nil
}

// Load reads and validates a mutation catalogue.
func Load(path string) (*Catalogue, error) {
	m, err := ReadMatrix(path)
	if err != nil {
		return nil, err
	}

	return Parse(m)
}

// Parse validates a raw matrix and converts it into a Catalogue.
func Parse(m *Matrix) (*Catalogue, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}

	c := &Catalogue{
		samples: append([]string(nil), m.Samples()...),
		counts:  make([][]int64, len(m.Columns)),
	}
	for j, column := range m.Columns {
		c.counts[j] = make([]int64, Size)
		for row, cell := range column {
			idx, _ := IndexOf(m.Keys[row])
			// Validate has already checked that every cell parses.
			v, _ := strconv.ParseInt(cell, 10, 64)
			c.counts[j][idx] = v
		}
	}

	return c, nil
}

// WriteFile writes the catalogue as a tab-delimited file in canonical category
// order, with the first column named MutationType.
func (c *Catalogue) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s\t%s\n", KeyColumn, strings.Join(c.samples, "\t"))
	for i, label := range sbs96Labels {
		w.WriteString(label)
		for j := range c.samples {
			w.WriteByte('\t')
			w.WriteString(strconv.FormatInt(c.counts[j][i], 10))
		}
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return pfx.Err(f.Close())
}

// Format validates the catalogue at path and rewrites it in place in canonical
// form.
func Format(path string) (*Catalogue, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	return c, c.WriteFile(path)
}
