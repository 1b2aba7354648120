package catalogue

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError reports a malformed mutation catalogue. It is always fatal
// and is never retried.
type ValidationError struct {
	Path    string
	Reason  string
	Samples []string // every offending sample, when the problem is per-sample
}

func (e *ValidationError) Error() string {
	b := strings.Builder{}
	b.WriteString("invalid mutation catalogue")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)

	return b.String()
}

func invalidSamplesError(path string, samples []string) *ValidationError {
	return &ValidationError{
		Path:    path,
		Samples: samples,
		Reason: fmt.Sprintf("invalid sample(s): %s. All samples must have non-negative integers and sum to greater than 0",
			strings.Join(samples, ", ")),
	}
}

// IsValid reports whether m is a valid SBS96 catalogue: 96 rows, exactly the
// canonical label set, non-negative integer cells, and a positive total for
// every sample.
func IsValid(m *Matrix) bool {
	return Validate(m) == nil
}

// Validate returns a *ValidationError describing the first structural problem
// with m or, for per-sample problems, naming every offending sample.
func Validate(m *Matrix) error {
	if m == nil {
		return &ValidationError{Reason: "no matrix"}
	}

	if len(m.Keys) != Size || len(m.Header) < 2 {
		return &ValidationError{
			Path:   m.Path,
			Reason: fmt.Sprintf("matrix shape (%d, %d) is invalid. Must be (%d, N+1) where N is the number of samples", len(m.Keys), len(m.Header), Size),
		}
	}

	seen := make(map[string]struct{}, Size)
	for _, key := range m.Keys {
		if _, ok := IndexOf(key); !ok {
			return &ValidationError{Path: m.Path, Reason: fmt.Sprintf("unknown mutation type %q; matrix does not contain all %d SBS96 features", key, Size)}
		}
		if _, dup := seen[key]; dup {
			return &ValidationError{Path: m.Path, Reason: fmt.Sprintf("mutation type %q appears more than once; matrix does not contain all %d SBS96 features", key, Size)}
		}
		seen[key] = struct{}{}
	}

	var invalid []string
	for j, column := range m.Columns {
		if !validColumn(column) {
			invalid = append(invalid, m.Header[j+1])
		}
	}
	if len(invalid) > 0 {
		return invalidSamplesError(m.Path, invalid)
	}

	return nil
}

func validColumn(column []string) bool {
	var sum int64
	for _, cell := range column {
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil || v < 0 {
			return false
		}
		sum += v
	}

	return sum > 0
}
