package ensemble

import (
	"math/rand"

	"github.com/BenLubar/memoize"
	"github.com/montanaflynn/stats"
)

const (
	// DefaultIterations is the number of bootstrap resamples per cell.
	DefaultIterations = 500

	// DefaultSeed seeds the resampling so consensus tables are reproducible.
	DefaultSeed int64 = 1
)

// Every cell with the same tool count draws the same resample indices, so a
// cell's mean depends only on its own values. The plan is shared between
// callers and must not be modified.
var memoizedResamplePlan = memoize.Memoize(resamplePlan)

// resamplePlan draws iterations resamples, with replacement, of n indices in
// [0, n).
func resamplePlan(n, iterations int, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed))

	plan := make([][]int, iterations)
	for r := range plan {
		plan[r] = make([]int, n)
		for k := range plan[r] {
			plan[r][k] = rng.Intn(n)
		}
	}

	return plan
}

// bootstrapMean is the mean of the resample means of values. A vector of
// zeros is returned as exactly 0 without resampling.
func bootstrapMean(values []float64, iterations int, seed int64) float64 {
	if allZero(values) {
		return 0
	}

	plan := memoizedResamplePlan.(func(int, int, int64) [][]int)(len(values), iterations, seed)

	means := make([]float64, len(plan))
	draw := make([]float64, len(values))
	for r, indices := range plan {
		for k, idx := range indices {
			draw[k] = values[idx]
		}
		means[r], _ = stats.Mean(draw)
	}

	// stats.Mean only fails on empty input, which allZero rules out.
	mean, _ := stats.Mean(means)

	return mean
}

func allZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}

	return true
}
