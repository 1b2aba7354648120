package ensemble

import (
	"math"
	"testing"

	"github.com/carbocation/ensemblefit/assignment"
	"github.com/google/go-cmp/cmp"
)

func table(name string, signatures []string, rows ...[]float64) *assignment.Table {
	samples := make([]string, len(rows))
	for i := range rows {
		samples[i] = "row" + string(rune('0'+i))
	}

	t := assignment.NewTable(name, assignment.Regular, assignment.Absolute, samples, signatures)
	for i, row := range rows {
		copy(t.Values[i], row)
	}

	return t
}

func TestAggregateTwoToolScenario(t *testing.T) {
	sigs := []string{"S1", "S2", "S3"}
	toolA := table("ToolA", sigs, []float64{10, 0, 0}, []float64{0, 5, 0})
	toolB := table("ToolB", sigs, []float64{8, 2, 0}, []float64{0, 0, 5})

	res, err := Aggregate([]*assignment.Table{toolA, toolB}, []string{"sample1", "sample2"}, sigs, assignment.Regular, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	want := [][]float64{{1, 0, 0}, {0, 0, 0}}
	if diff := cmp.Diff(want, res.Majority.Values); diff != "" {
		t.Errorf("majority mismatch:\n%s", diff)
	}
	if diff := cmp.Diff(want, res.Unanimous.Values); diff != "" {
		t.Errorf("unanimous mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"sample1", "sample2"}, res.Mean.Samples); diff != "" {
		t.Errorf("samples were not relabelled:\n%s", diff)
	}

	if res.Majority.Scale != assignment.Indicator || res.Mean.Scale != assignment.Relative {
		t.Errorf("unexpected scales %v, %v", res.Majority.Scale, res.Mean.Scale)
	}
	if got := res.Mean.Values[0][2]; got != 0 {
		t.Errorf("S3 was never assigned in sample1, mean = %v", got)
	}
	// Both tools give S1 a relative share in (0.8, 1].
	if got := res.Mean.Values[0][0]; got < 0.8 || got > 1 {
		t.Errorf("sample1 S1 mean = %v, want within [0.8, 1]", got)
	}
}

func TestMajorityThresholds(t *testing.T) {
	for _, tc := range []struct {
		positive, n int
		want        bool
	}{
		{0, 1, false},
		{1, 1, false},
		{1, 2, false},
		{2, 2, true},
		{2, 3, false},
		{3, 3, true},
		{2, 4, false},
		{3, 4, true},
		{3, 5, false},
		{4, 5, true},
		{3, 6, false},
		{4, 6, true},
		{4, 7, false},
		{5, 7, true},
	} {
		if got := majority(tc.positive, tc.n); got != tc.want {
			t.Errorf("majority(%d, %d) = %v, want %v", tc.positive, tc.n, got, tc.want)
		}
	}
}

func TestAggregateFourTools(t *testing.T) {
	sigs := []string{"SBS1", "SBS2"}
	tables := []*assignment.Table{
		table("A", sigs, []float64{1, 1}),
		table("B", sigs, []float64{1, 1}),
		table("C", sigs, []float64{1, 0}),
		table("D", sigs, []float64{0, 0}),
	}

	res, err := Aggregate(tables, []string{"s"}, sigs, assignment.Refit, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	// SBS1 has 3 of 4 positive, SBS2 has 2 of 4.
	if diff := cmp.Diff([]float64{1, 0}, res.Majority.Values[0]); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff([]float64{0, 0}, res.Unanimous.Values[0]); diff != "" {
		t.Error(diff)
	}
}

func TestAggregateFiveTools(t *testing.T) {
	sigs := []string{"SBS1", "SBS2", "SBS3"}
	tables := []*assignment.Table{
		table("A", sigs, []float64{1, 1, 1}),
		table("B", sigs, []float64{1, 1, 1}),
		table("C", sigs, []float64{1, 1, 0}),
		table("D", sigs, []float64{1, 0, 0}),
		table("E", sigs, []float64{0, 0, 0}),
	}

	res, err := Aggregate(tables, []string{"s"}, sigs, assignment.Refit, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	// SBS1 has 4 of 5 positive, SBS2 has 3 of 5, SBS3 has 2 of 5.
	if diff := cmp.Diff([]float64{1, 0, 0}, res.Majority.Values[0]); diff != "" {
		t.Error(diff)
	}
}

func TestAggregateThreeToolsOneZero(t *testing.T) {
	sigs := []string{"SBS1", "SBS5"}
	tables := []*assignment.Table{
		table("A", sigs, []float64{0.2, 0.8}),
		table("B", sigs, []float64{0.3, 0.7}),
		table("C", sigs, []float64{0.0, 1.0}),
	}

	res, err := Aggregate(tables, []string{"s"}, sigs, assignment.Remove, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Majority.Values[0][0] != 0 {
		t.Error("2 of 3 tools should not exceed ceil(3/2)")
	}
	if res.Majority.Values[0][1] != 1 {
		t.Error("3 of 3 tools should be a majority")
	}
	if res.Unanimous.Values[0][0] != 0 {
		t.Error("2 of 3 tools should not be unanimous")
	}
	if res.Unanimous.Values[0][1] != 1 {
		t.Error("3 of 3 tools should be unanimous")
	}
}

func TestAggregateZeroFillsMissingSignatures(t *testing.T) {
	universe := []string{"SBS1", "SBS2", "SBS3"}
	a := table("A", []string{"SBS1", assignment.Unassigned}, []float64{4, 1})
	b := table("B", []string{"SBS2", "SBS1"}, []float64{2, 2})

	res, err := Aggregate([]*assignment.Table{a, b}, []string{"s"}, universe, assignment.Regular, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	for _, tbl := range res.Tables() {
		if diff := cmp.Diff(universe, tbl.Signatures); diff != "" {
			t.Errorf("%s columns:\n%s", tbl.Name, diff)
		}
	}
	if diff := cmp.Diff([]float64{1, 0, 0}, res.Majority.Values[0]); diff != "" {
		t.Error(diff)
	}
	if got := res.Mean.Values[0][2]; got != 0 {
		t.Errorf("SBS3 mean = %v, want exactly 0", got)
	}
}

func TestAggregateRejectsSampleMismatch(t *testing.T) {
	sigs := []string{"SBS1"}
	a := table("A", sigs, []float64{1}, []float64{2})

	if _, err := Aggregate([]*assignment.Table{a}, []string{"only"}, sigs, assignment.Regular, DefaultOptions()); err == nil {
		t.Error("expected an error when a tool has a different number of samples")
	}
	if _, err := Aggregate(nil, []string{"s"}, sigs, assignment.Regular, DefaultOptions()); err == nil {
		t.Error("expected an error without any tool results")
	}
}

func TestBootstrapMeanIsDeterministic(t *testing.T) {
	values := []float64{0.1, 0.45, 0, 0.9, 0.3}

	first := bootstrapMean(values, DefaultIterations, DefaultSeed)
	for i := 0; i < 5; i++ {
		if got := bootstrapMean(values, DefaultIterations, DefaultSeed); got != first {
			t.Fatalf("run %d: %v != %v", i, got, first)
		}
	}

	// Same inputs through a fresh, unmemoized plan.
	plan := resamplePlan(len(values), DefaultIterations, DefaultSeed)
	var sum float64
	for _, indices := range plan {
		var s float64
		for _, idx := range indices {
			s += values[idx]
		}
		sum += s / float64(len(indices))
	}
	if want := sum / float64(len(plan)); math.Abs(first-want) > 1e-12 {
		t.Errorf("bootstrapMean = %v, want %v", first, want)
	}

	// The plain mean is 0.35 and the bootstrap estimate should sit close to it.
	if math.Abs(first-0.35) > 0.05 {
		t.Errorf("bootstrapMean = %v, expected near 0.35", first)
	}
}

func TestBootstrapMeanOfZerosIsZero(t *testing.T) {
	if got := bootstrapMean([]float64{0, 0, 0}, DefaultIterations, DefaultSeed); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
	if got := bootstrapMean([]float64{2, 2}, 10, 7); got != 2 {
		t.Errorf("constant vector: got %v, want 2", got)
	}
}

func TestWriteFilesAndLoad(t *testing.T) {
	sigs := []string{"S1", "S2"}
	res, err := Aggregate([]*assignment.Table{
		table("A", sigs, []float64{3, 1}),
		table("B", sigs, []float64{1, 0}),
	}, []string{"x"}, sigs, assignment.Refit, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	if err := res.WriteFiles(dir); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(dir, assignment.Refit)
	if err != nil {
		t.Fatal(err)
	}
	for i, tbl := range loaded.Tables() {
		if diff := cmp.Diff(res.Tables()[i], tbl); diff != "" {
			t.Errorf("%s:\n%s", tbl.Name, diff)
		}
	}
}
