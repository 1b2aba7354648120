package catalogue

import (
	"fmt"
	"strconv"

	"github.com/carbocation/ensemblefit"
)

// Reference is a signature reference catalogue: one 96-category profile per
// named signature.
type Reference struct {
	signatures []string
	index      map[string]int
	profiles   [][]float64 // profiles[signature][category]
}

// NewReference builds a reference from profiles given in canonical category
// order.
func NewReference(signatures []string, profiles [][]float64) (*Reference, error) {
	if len(signatures) != len(profiles) {
		return nil, fmt.Errorf("%d signature names but %d profiles", len(signatures), len(profiles))
	}

	r := &Reference{
		signatures: append([]string(nil), signatures...),
		index:      make(map[string]int, len(signatures)),
		profiles:   make([][]float64, len(profiles)),
	}
	for i, sig := range signatures {
		if _, dup := r.index[sig]; dup {
			return nil, fmt.Errorf("signature %s appears more than once", sig)
		}
		if len(profiles[i]) != Size {
			return nil, fmt.Errorf("signature %s has %d categories, want %d", sig, len(profiles[i]), Size)
		}
		for _, v := range profiles[i] {
			if v < 0 {
				return nil, fmt.Errorf("signature %s has a negative weight", sig)
			}
		}
		r.index[sig] = i
		r.profiles[i] = append([]float64(nil), profiles[i]...)
	}

	return r, nil
}

// LoadReference reads a delimited reference catalogue. Rows may be in any
// order but every canonical category must be present exactly once.
func LoadReference(path string) (*Reference, error) {
	header, rows, err := ensemblefit.ReadDelimited(path)
	if err != nil {
		return nil, err
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%s: reference has no signature columns", path)
	}
	if len(rows) != Size {
		return nil, fmt.Errorf("%s: reference has %d rows, want %d", path, len(rows), Size)
	}

	signatures := header[1:]
	profiles := make([][]float64, len(signatures))
	for i := range profiles {
		profiles[i] = make([]float64, Size)
	}

	seen := make(map[int]struct{}, Size)
	for _, row := range rows {
		idx, ok := IndexOf(row[0])
		if !ok {
			return nil, fmt.Errorf("%s: unknown mutation type %q", path, row[0])
		}
		if _, dup := seen[idx]; dup {
			return nil, fmt.Errorf("%s: mutation type %q appears more than once", path, row[0])
		}
		seen[idx] = struct{}{}

		for j := 1; j < len(row); j++ {
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: signature %s, mutation type %s: %w", path, signatures[j-1], row[0], err)
			}
			profiles[j-1][idx] = v
		}
	}

	ref, err := NewReference(signatures, profiles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ref, nil
}

// Signatures returns the signature names in file order.
func (r *Reference) Signatures() []string {
	return append([]string(nil), r.signatures...)
}

// Has reports whether the reference defines the named signature.
func (r *Reference) Has(signature string) bool {
	_, ok := r.index[signature]
	return ok
}

// Profile returns the signature's 96-category weights in canonical order. The
// returned slice must not be modified.
func (r *Reference) Profile(signature string) ([]float64, bool) {
	i, ok := r.index[signature]
	if !ok {
		return nil, false
	}

	return r.profiles[i], true
}
