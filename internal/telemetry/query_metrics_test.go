package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyToBucket(t *testing.T) {
	assert.Equal(t, BucketP10, LatencyToBucket(5*time.Millisecond))
	assert.Equal(t, BucketP50, LatencyToBucket(10*time.Millisecond))
	assert.Equal(t, BucketP100, LatencyToBucket(75*time.Millisecond))
	assert.Equal(t, BucketP500, LatencyToBucket(200*time.Millisecond))
	assert.Equal(t, BucketP1000, LatencyToBucket(2*time.Second))
}

func TestExtractTerms(t *testing.T) {
	assert.Equal(t, []string{"metal", "impact"}, ExtractTerms("Metal Impact"))
	// Short words are dropped.
	assert.Equal(t, []string{"rain"}, ExtractTerms("a of rain"))
	assert.Nil(t, ExtractTerms("  "))
}

func TestCircularBuffer_EvictsOldest(t *testing.T) {
	b := NewCircularBuffer[int](3)
	for i := 1; i <= 5; i++ {
		b.Add(i)
	}
	assert.Equal(t, 3, b.Size())
	assert.Equal(t, []int{3, 4, 5}, b.Items())
}

func TestCircularBuffer_PartiallyFilled(t *testing.T) {
	b := NewCircularBuffer[string](10)
	b.Add("x")
	b.Add("y")
	assert.Equal(t, []string{"x", "y"}, b.Items())
}

func TestQueryMetrics_RecordAndSnapshot(t *testing.T) {
	m := NewQueryMetrics()

	m.Record(QueryEvent{Query: "metal impact", Mode: "hybrid", ResultCount: 12, Latency: 8 * time.Millisecond})
	m.Record(QueryEvent{Query: "metal clang", Mode: "hybrid", ResultCount: 3, Latency: 60 * time.Millisecond})
	m.Record(QueryEvent{Query: "xyzzy", Mode: "lexical", ResultCount: 0, Latency: 4 * time.Millisecond})

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.ModeCounts["hybrid"])
	assert.Equal(t, int64(1), snap.ModeCounts["lexical"])
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, []string{"xyzzy"}, snap.ZeroResultQueries)
	assert.Equal(t, int64(2), snap.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP100])

	require.NotEmpty(t, snap.TopTerms)
	assert.Equal(t, "metal", snap.TopTerms[0].Term)
	assert.Equal(t, int64(2), snap.TopTerms[0].Count)
}

func TestQueryMetrics_TopTermsBounded(t *testing.T) {
	m := NewQueryMetricsWithConfig(Config{TopTermsCapacity: 5, ZeroResultsCapacity: 5})
	for i := 0; i < 20; i++ {
		m.Record(QueryEvent{Query: fmt.Sprintf("uniqueterm%02d", i), Mode: "hybrid", ResultCount: 1})
	}
	snap := m.Snapshot()
	assert.LessOrEqual(t, len(snap.TopTerms), 5)
}

func TestSnapshot_ZeroResultPercentage(t *testing.T) {
	snap := &Snapshot{TotalQueries: 4, ZeroResultCount: 1}
	assert.Equal(t, 25.0, snap.ZeroResultPercentage())

	empty := &Snapshot{}
	assert.Equal(t, 0.0, empty.ZeroResultPercentage())
}
