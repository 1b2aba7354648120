// Package materialize writes the delivered result tree: every tool's and
// consensus table's absolute and relative forms, the catalogue as JSON
// records, and the job metadata document.
package materialize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/carbocation/ensemblefit/assignment"
	"github.com/carbocation/ensemblefit/catalogue"
	"github.com/carbocation/pfx"
)

const (
	absoluteDir = "absolute"
	relativeDir = "relative"

	// ProfilesFileName holds the catalogue as per-sample JSON records.
	ProfilesFileName = "sbs96_profiles.json"
)

// TablePath is where a table of the given form is delivered:
// <result>/<name>/<absolute|relative>/<name>_<strategy>.txt
func TablePath(result string, t *assignment.Table, relative bool) string {
	form := absoluteDir
	if relative {
		form = relativeDir
	}

	return filepath.Join(result, t.Name, form, assignment.FileName(t.Name, t.Strategy))
}

// WriteTable delivers both forms of t. Relative tables are expressed in
// counts for the absolute form using the per-sample totals. Indicator tables
// are written unchanged in both places.
func WriteTable(result string, t *assignment.Table, totals []float64) error {
	abs := t
	if t.Scale == assignment.Relative {
		scaled, err := t.Scaled(totals)
		if err != nil {
			return err
		}
		abs = scaled
	}

	if err := abs.WriteFile(TablePath(result, t, false)); err != nil {
		return err
	}

	return t.Relative().WriteFile(TablePath(result, t, true))
}

// WriteTables delivers every table.
func WriteTables(result string, tables []*assignment.Table, totals []float64) error {
	for _, t := range tables {
		if err := WriteTable(result, t, totals); err != nil {
			return fmt.Errorf("%s (%s): %w", t.Name, t.Strategy, err)
		}
	}

	return nil
}

// profileRecord is one sample of the catalogue: its name and a count per
// category, in canonical category order.
type profileRecord struct {
	sample string
	counts []int64
}

func (p profileRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"sample":`)
	name, err := json.Marshal(p.sample)
	if err != nil {
		return nil, err
	}
	buf.Write(name)

	for i, label := range catalogue.Labels() {
		fmt.Fprintf(&buf, `,%q:%d`, label, p.counts[i])
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// WriteProfiles writes the catalogue as a pretty-printed array of
// {sample, <category>: count, ...} records.
func WriteProfiles(path string, cat *catalogue.Catalogue) error {
	records := make([]profileRecord, cat.NumSamples())
	for j, sample := range cat.Samples() {
		counts := make([]int64, catalogue.Size)
		for i := range counts {
			counts[i] = cat.Count(j, i)
		}
		records[j] = profileRecord{sample: sample, counts: counts}
	}

	return writeJSON(path, records)
}

// writeJSON writes v pretty-printed. Category labels contain '>', which is
// left unescaped.
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
