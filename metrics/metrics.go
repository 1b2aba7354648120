// Package metrics scores signature assignments: how many signatures each tool
// used, how much of each sample it explained, and how well the assigned
// signatures reconstruct the observed mutation profile.
package metrics

import (
	"fmt"
	"math"
	"strconv"

	"github.com/carbocation/ensemblefit/assignment"
	"github.com/carbocation/ensemblefit/catalogue"
	"github.com/carbocation/ensemblefit/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/guregu/null.v3"
)

// FileName is the base name of the metrics table.
const FileName = "assignment_metrics.txt"

// clampTolerance is how far above 1 the mean assigned fraction may drift
// before the clamp is reported.
const clampTolerance = 1e-6

// Value is a metric that may be undefined for a table, such as the assigned
// fraction of a 0/1 consensus table. Undefined values are written as NA in
// text and null in JSON.
type Value struct {
	null.Float
}

// Defined wraps a float as a defined metric.
func Defined(f float64) Value {
	return Value{null.FloatFrom(f)}
}

func (v Value) MarshalCSV() (string, error) {
	if !v.Valid {
		return "NA", nil
	}

	return strconv.FormatFloat(v.Float64, 'g', -1, 64), nil
}

func (v *Value) UnmarshalCSV(s string) error {
	if s == "NA" || s == "" {
		*v = Value{}
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*v = Defined(f)

	return nil
}

// Row is one line of the metrics table, for one tool and strategy.
type Row struct {
	Tool                    string  `csv:"Tool" json:"tool"`
	Strategy                string  `csv:"Strategy" json:"strategy"`
	Signatures              int     `csv:"Num. COSMIC" json:"num_signatures"`
	MeanSignaturesPerSample float64 `csv:"Mean Num. COSMIC per Sample" json:"mean_signatures_per_sample"`
	MeanAssigned            Value   `csv:"Mean Prop. Assigned" json:"mean_assigned"`
	MeanCosine              Value   `csv:"Mean Reconstruct Cossim" json:"mean_reconstruct_cosine"`
}

// Compute scores one table against the catalogue it was fitted to. Rows of t
// are matched to catalogue samples by position. Relative tables are first
// put back into mutation counts using each sample's total. For indicator
// tables only the signature counts are defined.
func Compute(t *assignment.Table, cat *catalogue.Catalogue, ref *catalogue.Reference) (Row, error) {
	if len(t.Values) != cat.NumSamples() {
		return Row{}, fmt.Errorf("%s (%s): %d samples, catalogue has %d", t.Name, t.Strategy, len(t.Values), cat.NumSamples())
	}

	if t.Scale == assignment.Relative {
		scaled, err := t.Scaled(cat.Totals())
		if err != nil {
			return Row{}, err
		}
		t = scaled
	}

	// Signature columns with anything assigned to them anywhere.
	var used []int
	for j, sig := range t.Signatures {
		if sig == assignment.Unassigned {
			continue
		}
		if t.ColumnSum(j) > 0 {
			used = append(used, j)
		}
	}

	row := Row{
		Tool:       t.Name,
		Strategy:   t.Strategy.Title(),
		Signatures: len(used),
	}

	perSample := make([]float64, len(t.Values))
	for i := range t.Values {
		for _, j := range used {
			if t.Values[i][j] > 0 {
				perSample[i]++
			}
		}
	}
	row.MeanSignaturesPerSample = mean(perSample)

	if t.Scale == assignment.Indicator {
		return row, nil
	}

	fractions := make([]float64, len(t.Values))
	cosines := make([]float64, len(t.Values))
	for i := range t.Values {
		var assigned float64
		for _, j := range used {
			assigned += t.Values[i][j]
		}
		fractions[i] = assigned / float64(cat.Total(i))

		cosines[i] = CosineSimilarity(cat.Vector(i), Reconstruct(t, i, ref))
	}

	row.MeanAssigned = Defined(clampFraction(mean(fractions), t))
	row.MeanCosine = Defined(mean(cosines))

	return row, nil
}

// clampFraction caps the mean assigned fraction at 1. Small excursions are
// floating point noise; larger ones are logged because they mean a tool
// assigned more mutations than the sample has.
func clampFraction(f float64, t *assignment.Table) float64 {
	if f <= 1 {
		return f
	}

	if f > 1+clampTolerance {
		logging.New("metrics").Warn("mean assigned fraction exceeds 1, clamping",
			"tool", t.Name,
			"strategy", t.Strategy,
			"value", f)
	}

	return 1
}

// Reconstruct synthesizes the 96-category profile of one sample from its
// assigned signatures: the sum of each contribution times the signature's
// reference profile. The unassigned column and signatures unknown to the
// reference contribute nothing.
func Reconstruct(t *assignment.Table, sample int, ref *catalogue.Reference) []float64 {
	out := make([]float64, catalogue.Size)
	for j, sig := range t.Signatures {
		v := t.Values[sample][j]
		if v == 0 || sig == assignment.Unassigned {
			continue
		}
		profile, ok := ref.Profile(sig)
		if !ok {
			continue
		}
		floats.AddScaled(out, v, profile)
	}

	return out
}

// CosineSimilarity of a and b. It is 0 when either vector has no magnitude.
func CosineSimilarity(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}

	cos := floats.Dot(a, b) / (na * nb)

	return math.Min(cos, 1)
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	return stat.Mean(x, nil)
}
