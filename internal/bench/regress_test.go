package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrixWith(records int, totalP95, fuseP95, overlapAvg float64) *MatrixReport {
	return &MatrixReport{
		Results: []ScaleResult{{
			Records:    records,
			TotalP95Ms: totalP95,
			FuseP95Ms:  fuseP95,
			OverlapAvg: overlapAvg,
		}},
	}
}

func TestCompareMatrices_WithinLimitsPasses(t *testing.T) {
	baseline := matrixWith(10_000, 100, 10, 0.75)
	current := matrixWith(10_000, 110, 11, 0.73)

	report := CompareMatrices(baseline, current, DefaultRegressionConfig(), "base.json", "cur.json")

	assert.True(t, report.Passed)
	require.Len(t, report.Checks, 3)
	for _, c := range report.Checks {
		assert.True(t, c.Passed, c.Metric)
	}
	assert.Equal(t, "base.json", report.BaselinePath)
	assert.Equal(t, "cur.json", report.CurrentPath)
}

func TestCompareMatrices_TotalLatencyRegression(t *testing.T) {
	baseline := matrixWith(10_000, 100, 10, 0.75)
	current := matrixWith(10_000, 130, 10, 0.75) // 30% over, limit 25%

	report := CompareMatrices(baseline, current, DefaultRegressionConfig(), "b", "c")

	assert.False(t, report.Passed)
	var failed []string
	for _, c := range report.Checks {
		if !c.Passed {
			failed = append(failed, c.Metric)
		}
	}
	assert.Equal(t, []string{"total_p95_ms"}, failed)

	lines := report.FailureSummary()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "total_p95_ms")
}

func TestCompareMatrices_OverlapDropIsAbsolute(t *testing.T) {
	baseline := matrixWith(10_000, 100, 10, 0.75)

	// 0.71 is a 0.04 drop, inside the 0.05 allowance.
	report := CompareMatrices(baseline, matrixWith(10_000, 100, 10, 0.71),
		DefaultRegressionConfig(), "b", "c")
	assert.True(t, report.Passed)

	// 0.69 is a 0.06 drop.
	report = CompareMatrices(baseline, matrixWith(10_000, 100, 10, 0.69),
		DefaultRegressionConfig(), "b", "c")
	assert.False(t, report.Passed)
}

func TestCompareMatrices_ZeroBaselinePasses(t *testing.T) {
	baseline := matrixWith(10_000, 0, 0, 0.75)
	current := matrixWith(10_000, 50, 5, 0.75)

	report := CompareMatrices(baseline, current, DefaultRegressionConfig(), "b", "c")
	assert.True(t, report.Passed)
}

func TestCompareMatrices_UnmatchedScalesSkipped(t *testing.T) {
	baseline := matrixWith(10_000, 100, 10, 0.75)
	current := matrixWith(20_000, 500, 50, 0.10)

	report := CompareMatrices(baseline, current, DefaultRegressionConfig(), "b", "c")
	assert.True(t, report.Passed)
	assert.Empty(t, report.Checks)
}
