package ensemblefit

import (
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// Mutation labels such as A[C>A]A carry one '[', ']' and '>' per line, which
// the detector happily reports as consistent delimiters. Only these runes are
// ever accepted.
var acceptedDelimiters = []rune{'\t', ',', ';', '|', ' '}

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader. Catalogues and assignment tables are tab-delimited by
// convention, so a tab is returned when nothing else can be detected.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	found := make(map[rune]struct{}, len(delimiters))
	for _, candidate := range delimiters {
		if len(candidate) > 0 {
			found[rune(candidate[0])] = struct{}{}
		}
	}

	for _, accepted := range acceptedDelimiters {
		if _, exists := found[accepted]; exists {
			return accepted
		}
	}

	return '\t'
}
