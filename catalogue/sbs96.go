package catalogue

import "fmt"

// Size is the number of single base substitution categories in an SBS96
// catalogue.
const Size = 96

// KeyColumn is the name given to the first column of a formatted catalogue.
const KeyColumn = "MutationType"

var (
	bases         = []byte("ACGT")
	substitutions = []string{"C>A", "C>G", "C>T", "T>A", "T>C", "T>G"}
)

var (
	sbs96Labels = buildLabels()
	sbs96Index  = buildIndex(sbs96Labels)
)

func buildLabels() []string {
	out := make([]string, 0, Size)
	for _, five := range bases {
		for _, sub := range substitutions {
			for _, three := range bases {
				out = append(out, fmt.Sprintf("%c[%s]%c", five, sub, three))
			}
		}
	}

	return out
}

func buildIndex(labels []string) map[string]int {
	out := make(map[string]int, len(labels))
	for i, label := range labels {
		out[label] = i
	}

	return out
}

// Labels returns the 96 canonical category labels in canonical order. The
// returned slice is a copy.
func Labels() []string {
	return append([]string(nil), sbs96Labels...)
}

// IndexOf returns the canonical position of a category label.
func IndexOf(label string) (int, bool) {
	i, ok := sbs96Index[label]
	return i, ok
}
