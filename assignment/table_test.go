package assignment

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRelativeRowsSumToOne(t *testing.T) {
	tbl := NewTable("ToolA", Regular, Absolute, []string{"s1", "s2", "s3"}, []string{"SBS1", "SBS5", Unassigned})
	tbl.Values[0] = []float64{10, 30, 0}
	tbl.Values[1] = []float64{0, 0, 0}
	tbl.Values[2] = []float64{1e-9, 3, 7}

	rel := tbl.Relative()
	if rel.Scale != Relative {
		t.Errorf("Scale = %v, want relative", rel.Scale)
	}

	for i, want := range []float64{1, 0, 1} {
		if got := rel.RowSum(i); math.Abs(got-want) > 1e-12 {
			t.Errorf("row %d sums to %v, want %v", i, got, want)
		}
	}
	if diff := cmp.Diff([]float64{0.25, 0.75, 0}, rel.Values[0]); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff([]float64{0, 0, 0}, rel.Values[1]); diff != "" {
		t.Errorf("zero row was not left alone:\n%s", diff)
	}

	// The source table is untouched.
	if tbl.Values[0][0] != 10 {
		t.Errorf("Relative mutated its receiver")
	}
}

func TestRelativeLeavesIndicatorTables(t *testing.T) {
	tbl := NewTable("Ensemble-Majority", Refit, Indicator, []string{"s1"}, []string{"SBS1", "SBS2", "SBS3"})
	tbl.Values[0] = []float64{1, 1, 0}

	rel := tbl.Relative()
	if rel.Scale != Indicator {
		t.Errorf("Scale = %v, want indicator", rel.Scale)
	}
	if diff := cmp.Diff([]float64{1, 1, 0}, rel.Values[0]); diff != "" {
		t.Error(diff)
	}
}

func TestAlignZeroFillsAndDrops(t *testing.T) {
	tbl := NewTable("ToolB", Remove, Absolute, []string{"s1", "s2"}, []string{"SBS5", "extra", Unassigned})
	tbl.Values[0] = []float64{4, 9, 1}
	tbl.Values[1] = []float64{2, 9, 0}

	aligned := tbl.Align([]string{"SBS1", "SBS5", "SBS40"})
	if diff := cmp.Diff([]string{"SBS1", "SBS5", "SBS40", Unassigned}, aligned.Signatures); diff != "" {
		t.Error(diff)
	}
	want := [][]float64{{0, 4, 0, 1}, {0, 2, 0, 0}}
	if diff := cmp.Diff(want, aligned.Values); diff != "" {
		t.Error(diff)
	}
}

func TestReadTreatsNAAsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ToolC_refit.txt")
	content := "Samples\tSBS1\tSBS2\n" +
		"PD1\t3.5\tNA\n" +
		"PD2\t\t2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tbl, err := Read(path, "ToolC", Refit, Absolute)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]float64{{3.5, 0}, {0, 2}}, tbl.Values); diff != "" {
		t.Error(diff)
	}

	renamed, err := tbl.WithSamples([]string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if renamed.Samples[1] != "b" || tbl.Samples[1] != "PD2" {
		t.Errorf("WithSamples: got %v, source now %v", renamed.Samples, tbl.Samples)
	}
	if _, err := tbl.WithSamples([]string{"a"}); err == nil {
		t.Error("expected a sample count mismatch error")
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	tbl := NewTable("ToolD", Regular, Absolute, []string{"s1", "s2"}, []string{"SBS1", "SBS13"})
	tbl.Values[0] = []float64{0.1, 12}
	tbl.Values[1] = []float64{1.0 / 3, 0}

	path := Path(t.TempDir(), "ToolD", Regular)
	if filepath.Base(path) != "ToolD_regular.txt" || filepath.Base(filepath.Dir(path)) != "ToolD" {
		t.Fatalf("unexpected path %s", path)
	}
	if err := tbl.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	got, err := Read(path, "ToolD", Regular, Absolute)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tbl, got); diff != "" {
		t.Errorf("round trip mismatch:\n%s", diff)
	}
}

func TestScaled(t *testing.T) {
	tbl := NewTable("Ensemble-Mean", Refit, Relative, []string{"s1", "s2"}, []string{"SBS1"})
	tbl.Values[0][0] = 0.5
	tbl.Values[1][0] = 0.25

	abs, err := tbl.Scaled([]float64{10, 4})
	if err != nil {
		t.Fatal(err)
	}
	if abs.Scale != Absolute || abs.Values[0][0] != 5 || abs.Values[1][0] != 1 {
		t.Errorf("Scaled = %+v", abs)
	}
	if _, err := tbl.Scaled([]float64{1}); err == nil {
		t.Error("expected a length mismatch error")
	}
}

func TestStrategy(t *testing.T) {
	s, err := ParseStrategy(" Refit ")
	if err != nil || s != Refit {
		t.Fatalf("ParseStrategy = %q, %v", s, err)
	}
	if _, err := ParseStrategy("refit_general"); err == nil {
		t.Error("expected an error for an unknown strategy")
	}

	if diff := cmp.Diff([]Strategy{Regular, Remove, Refit}, All.Expand()); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff([]Strategy{Remove}, Remove.Expand()); diff != "" {
		t.Error(diff)
	}
	if All.Summary() != Refit || Regular.Summary() != Regular {
		t.Error("unexpected summary strategy")
	}
	if Remove.Title() != "Remove" {
		t.Errorf("Title = %q", Remove.Title())
	}
}
