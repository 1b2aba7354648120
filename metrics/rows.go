package metrics

import (
	"encoding/csv"
	"os"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// WriteRows writes the metrics table as tab-delimited text.
func WriteRows(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(w)); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return pfx.Err(f.Close())
}

// ReadRows reads a metrics table written by WriteRows.
func ReadRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true

	var rows []Row
	if err := gocsv.UnmarshalCSV(r, &rows); err != nil {
		return nil, pfx.Err(err)
	}

	return rows, nil
}
