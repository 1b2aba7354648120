package ensemblefit

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/carbocation/pfx"
)

// Input is a fully-buffered tabular input along with the delimiter that was
// detected for it.
type Input struct {
	Path      string
	Delimiter rune
	Data      []byte
}

// Reader returns a fresh reader over the buffered contents.
func (in Input) Reader() io.Reader {
	return bytes.NewReader(in.Data)
}

// OpenInput reads a local, possibly-compressed delimited text file into memory
// and detects its delimiter. Inputs here are small (96 rows, or one row per
// sample), so buffering keeps delimiter sniffing and parsing independent.
func OpenInput(path string) (Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return Input{}, pfx.Err(err)
	}

	rc, err := MaybeDecompressReadCloserFromFile(f)
	if err != nil {
		f.Close()
		return Input{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Input{}, pfx.Err(err)
	}

	return Input{
		Path:      path,
		Delimiter: DetermineDelimiter(bytes.NewReader(data)),
		Data:      data,
	}, nil
}

// ReadDelimited reads a delimited text file with a header row. Every record
// must have as many fields as the header.
func ReadDelimited(path string) (header []string, rows [][]string, err error) {
	in, err := OpenInput(path)
	if err != nil {
		return nil, nil, err
	}

	r := csv.NewReader(in.Reader())
	r.Comma = in.Delimiter
	r.Comment = '#'
	r.TrimLeadingSpace = in.Delimiter != '\t'

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: no header row", path)
	}

	for _, record := range records {
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
	}

	return records[0], records[1:], nil
}
