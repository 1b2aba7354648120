package metrics

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/carbocation/ensemblefit/assignment"
	"github.com/carbocation/pfx"
)

// Summary file names.
const (
	SummaryFileName     = "assignment_summary.txt"
	SummaryJSONFileName = "assignment_summary.json"
)

// SummaryRow is one tool's relative contribution of one signature across
// every sample.
type SummaryRow struct {
	Tool      string
	Signature string
	Values    []float64
}

// Key is the row label used in the tabular summary.
func (r SummaryRow) Key() string {
	return r.Tool + ":" + r.Signature
}

// Summary pivots several tools' relative assignments into one long table with
// a row per (tool, signature) and a column per sample.
type Summary struct {
	Samples []string
	Rows    []SummaryRow
}

// Summarize builds the cross-tool summary over the reference signatures.
// Tables are relativized first. A signature is dropped when it is zero for
// every tool and every sample.
func Summarize(tables []*assignment.Table, samples, signatures []string) (*Summary, error) {
	aligned := make([]*assignment.Table, len(tables))
	for k, t := range tables {
		labelled, err := t.WithSamples(samples)
		if err != nil {
			return nil, err
		}
		aligned[k] = labelled.Align(signatures).Relative()
	}

	keep := make([]bool, len(signatures))
	for _, t := range aligned {
		for j := range signatures {
			if t.ColumnSum(j) > 0 {
				keep[j] = true
			}
		}
	}

	s := &Summary{Samples: append([]string(nil), samples...)}
	for _, t := range aligned {
		for j, sig := range signatures {
			if !keep[j] {
				continue
			}
			values := make([]float64, len(samples))
			for i := range samples {
				values[i] = t.Values[i][j]
			}
			s.Rows = append(s.Rows, SummaryRow{Tool: t.Name, Signature: sig, Values: values})
		}
	}

	return s, nil
}

// WriteFile writes the tab-delimited form of the summary.
func (s *Summary) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "Signatures\t%s\n", strings.Join(s.Samples, "\t"))
	for _, row := range s.Rows {
		w.WriteString(row.Key())
		for _, v := range row.Values {
			w.WriteByte('\t')
			w.WriteString(assignment.FormatValue(v))
		}
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return pfx.Err(f.Close())
}

// summaryRecord is the JSON form of a row. Keys are written in column order:
// tool, signature, then one key per sample.
type summaryRecord struct {
	samples []string
	row     SummaryRow
}

func (r summaryRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, value interface{}) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := write("tool", r.row.Tool); err != nil {
		return nil, err
	}
	if err := write("signature", r.row.Signature); err != nil {
		return nil, err
	}
	for i, sample := range r.samples {
		if err := write(sample, r.row.Values[i]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// MarshalJSON renders the summary as an array of records.
func (s *Summary) MarshalJSON() ([]byte, error) {
	records := make([]summaryRecord, len(s.Rows))
	for k, row := range s.Rows {
		records[k] = summaryRecord{samples: s.Samples, row: row}
	}

	return json.Marshal(records)
}

// WriteJSON writes the summary as a pretty-printed JSON array.
func (s *Summary) WriteJSON(path string) error {
	return writeJSON(path, s)
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return pfx.Err(f.Close())
}
