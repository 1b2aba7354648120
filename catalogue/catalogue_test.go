package catalogue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeMatrix writes a catalogue whose cell for (row i, sample j) is
// cell(i, j). Rows are written in the order given by labels.
func writeMatrix(t *testing.T, labels, samples []string, delim string, cell func(i, j int) string) string {
	t.Helper()

	b := strings.Builder{}
	b.WriteString("Type" + delim + strings.Join(samples, delim) + "\n")
	for i, label := range labels {
		b.WriteString(label)
		for j := range samples {
			b.WriteString(delim + cell(i, j))
		}
		b.WriteString("\n")
	}

	path := filepath.Join(t.TempDir(), "matrix.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func ones(i, j int) string { return "1" }

func TestLabels(t *testing.T) {
	labels := Labels()
	if len(labels) != Size {
		t.Fatalf("got %d labels, want %d", len(labels), Size)
	}
	if labels[0] != "A[C>A]A" || labels[1] != "A[C>A]C" || labels[Size-1] != "T[T>G]T" {
		t.Errorf("unexpected ordering: %s %s ... %s", labels[0], labels[1], labels[Size-1])
	}

	seen := make(map[string]struct{})
	for i, l := range labels {
		if _, dup := seen[l]; dup {
			t.Fatalf("duplicate label %s", l)
		}
		seen[l] = struct{}{}
		if idx, ok := IndexOf(l); !ok || idx != i {
			t.Errorf("IndexOf(%s) = %d, %v; want %d", l, idx, ok, i)
		}
	}
}

func TestIsValid(t *testing.T) {
	labels := Labels()
	samples := []string{"S1", "S2"}

	dupLabels := Labels()
	dupLabels[5] = dupLabels[4]

	for _, tc := range []struct {
		name   string
		labels []string
		cell   func(i, j int) string
		want   bool
	}{
		{"valid", labels, ones, true},
		{"too few rows", labels[:95], ones, false},
		{"duplicate category", dupLabels, ones, false},
		{"non-integer", labels, func(i, j int) string {
			if i == 3 && j == 1 {
				return "1.5"
			}
			return "1"
		}, false},
		{"negative", labels, func(i, j int) string {
			if i == 0 && j == 0 {
				return "-1"
			}
			return "2"
		}, false},
		{"zero sample", labels, func(i, j int) string {
			if j == 1 {
				return "0"
			}
			return "1"
		}, false},
		{"sparse but positive", labels, func(i, j int) string {
			if i == 10 {
				return "7"
			}
			return "0"
		}, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m, err := ReadMatrix(writeMatrix(t, tc.labels, samples, "\t", tc.cell))
			if err != nil {
				t.Fatal(err)
			}
			if got := IsValid(m); got != tc.want {
				t.Errorf("IsValid = %v, want %v (%v)", got, tc.want, Validate(m))
			}
		})
	}
}

func TestValidateNamesEveryOffendingSample(t *testing.T) {
	path := writeMatrix(t, Labels(), []string{"good", "neg", "zero"}, "\t", func(i, j int) string {
		switch j {
		case 1:
			if i == 0 {
				return "-3"
			}
			return "1"
		case 2:
			return "0"
		}
		return "4"
	})

	_, err := Load(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if diff := cmp.Diff([]string{"neg", "zero"}, verr.Samples); diff != "" {
		t.Errorf("offending samples mismatch:\n%s", diff)
	}
	if !strings.Contains(verr.Error(), "neg, zero") {
		t.Errorf("message %q does not name the samples", verr.Error())
	}
}

func TestParseReordersCategories(t *testing.T) {
	labels := Labels()
	reversed := make([]string, len(labels))
	for i, l := range labels {
		reversed[len(labels)-1-i] = l
	}

	// The cell value encodes the canonical index of the row's label.
	path := writeMatrix(t, reversed, []string{"S1"}, "\t", func(i, j int) string {
		return fmt.Sprint(Size - i)
	})

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < Size; i++ {
		if got := c.Count(0, i); got != int64(i+1) {
			t.Fatalf("Count(0, %d) = %d, want %d", i, got, i+1)
		}
	}
	if got, want := c.Total(0), int64(Size*(Size+1)/2); got != want {
		t.Errorf("Total = %d, want %d", got, want)
	}
}

func TestFormatRewritesCanonically(t *testing.T) {
	labels := Labels()
	labels[0], labels[1] = labels[1], labels[0]
	path := writeMatrix(t, labels, []string{"S1", "S2"}, ",", func(i, j int) string {
		return fmt.Sprint(i + j + 1)
	})

	before, err := Load(path)
	if err != nil {
		t.Fatalf("comma-delimited catalogue: %v", err)
	}
	if _, err := Format(path); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if lines[0] != "MutationType\tS1\tS2" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "A[C>A]A\t") {
		t.Errorf("first row = %q", lines[1])
	}

	after, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	for j := 0; j < 2; j++ {
		if diff := cmp.Diff(before.Vector(j), after.Vector(j)); diff != "" {
			t.Errorf("sample %d changed after formatting:\n%s", j, diff)
		}
	}
}

func TestLoadReference(t *testing.T) {
	path := writeMatrix(t, Labels(), []string{"SBS1", "SBS5"}, "\t", func(i, j int) string {
		if j == 0 {
			return fmt.Sprintf("%g", float64(i)/100)
		}
		return "0.0104166"
	})

	ref, err := LoadReference(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"SBS1", "SBS5"}, ref.Signatures()); diff != "" {
		t.Error(diff)
	}
	p, ok := ref.Profile("SBS1")
	if !ok || p[10] != 0.1 {
		t.Errorf("Profile(SBS1)[10] = %v, %v", p, ok)
	}
	if ref.Has("SBS2") {
		t.Error("unexpected signature SBS2")
	}
}
