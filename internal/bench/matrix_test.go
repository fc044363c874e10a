package bench

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func permissiveThreshold() Threshold {
	return Threshold{
		P95TotalMsMax:  10_000,
		P95FuseMsMax:   10_000,
		OverlapRateMin: 0.0,
	}
}

func TestRunMatrix_AllScalesPass(t *testing.T) {
	cfg := MatrixConfig{
		RecordsList: []int{1_000, 5_000},
		Queries:     5,
		TopK:        20,
		Threshold:   permissiveThreshold(),
		Seed:        42,
	}

	report, err := RunMatrix(context.Background(), cfg)
	require.NoError(t, err)

	assert.True(t, report.Passed)
	assert.Empty(t, report.FailedRecords)
	require.Len(t, report.Results, 2)

	for _, r := range report.Results {
		assert.True(t, r.Passed)
		assert.True(t, r.PassTotalMs)
		assert.True(t, r.PassFuseMs)
		assert.True(t, r.PassOverlap)
		assert.Equal(t, 5, r.Queries)
		assert.Equal(t, 20, r.TopK)
		assert.GreaterOrEqual(t, r.TotalP95Ms, r.TotalP50Ms)
	}
	assert.Equal(t, 1_000, report.Results[0].Records)
	assert.Equal(t, 5_000, report.Results[1].Records)
}

func TestRunMatrix_OverlapInExpectedBand(t *testing.T) {
	cfg := MatrixConfig{
		RecordsList: []int{10_000},
		Queries:     10,
		TopK:        40,
		Threshold:   permissiveThreshold(),
		Seed:        7,
	}

	report, err := RunMatrix(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	// The synthetic semantic source replaces every fourth rank, so the
	// sources share well over half their keys but never all of them.
	overlap := report.Results[0].OverlapAvg
	assert.Greater(t, overlap, 0.5)
	assert.Less(t, overlap, 1.0)
}

func TestRunMatrix_FailingScaleMarked(t *testing.T) {
	cfg := MatrixConfig{
		RecordsList: []int{1_000},
		Queries:     5,
		TopK:        20,
		Threshold: Threshold{
			P95TotalMsMax:  10_000,
			P95FuseMsMax:   10_000,
			OverlapRateMin: 1.1, // impossible
		},
		Seed: 42,
	}

	report, err := RunMatrix(context.Background(), cfg)
	require.NoError(t, err)

	assert.False(t, report.Passed)
	assert.Equal(t, []int{1_000}, report.FailedRecords)
	require.Len(t, report.Results, 1)
	assert.False(t, report.Results[0].Passed)
	assert.False(t, report.Results[0].PassOverlap)
	assert.True(t, report.Results[0].PassTotalMs)
}

func TestRunMatrix_StopOnFailHaltsRemainingScales(t *testing.T) {
	cfg := MatrixConfig{
		RecordsList: []int{1_000, 5_000, 10_000},
		Queries:     5,
		TopK:        20,
		Threshold: Threshold{
			P95TotalMsMax:  10_000,
			P95FuseMsMax:   10_000,
			OverlapRateMin: 1.1,
		},
		StopOnFail: true,
		Seed:       42,
	}

	report, err := RunMatrix(context.Background(), cfg)
	require.NoError(t, err)

	assert.False(t, report.Passed)
	require.Len(t, report.Results, 1)
	assert.Equal(t, []int{1_000}, report.FailedRecords)
}

func TestRunMatrix_Deterministic(t *testing.T) {
	cfg := MatrixConfig{
		RecordsList: []int{2_000},
		Queries:     5,
		TopK:        20,
		Threshold:   permissiveThreshold(),
		Seed:        99,
	}

	first, err := RunMatrix(context.Background(), cfg)
	require.NoError(t, err)
	second, err := RunMatrix(context.Background(), cfg)
	require.NoError(t, err)

	// Overlap statistics depend only on the seed; timings do not.
	assert.Equal(t, first.Results[0].OverlapAvg, second.Results[0].OverlapAvg)
	assert.Equal(t, first.Results[0].OverlapP50, second.Results[0].OverlapP50)
}

func TestRunMatrix_EmptyRecordsListErrors(t *testing.T) {
	_, err := RunMatrix(context.Background(), MatrixConfig{Queries: 5})
	require.Error(t, err)
}

func TestOverlapRate(t *testing.T) {
	assert.Equal(t, 1.0, overlapRate([]string{"a", "b"}, []string{"b", "a"}))
	assert.Equal(t, 0.5, overlapRate([]string{"a", "b"}, []string{"b", "c"}))
	assert.Equal(t, 0.0, overlapRate([]string{"a"}, []string{"b"}))
	assert.Equal(t, 0.0, overlapRate(nil, []string{"a"}))

	// Relative to the smaller list.
	assert.Equal(t, 1.0, overlapRate([]string{"a"}, []string{"a", "b", "c"}))
}

func TestPercentile(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}
	assert.Equal(t, 3.0, percentile(values, 50))
	assert.Equal(t, 5.0, percentile(values, 95))
	assert.Equal(t, 1.0, percentile(values, 0))
	assert.Equal(t, 0.0, percentile(nil, 95))
}
