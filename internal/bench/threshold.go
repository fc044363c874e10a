// Package bench is the benchmark and regression harness for the search
// orchestrator. It drives synthetic workloads at multiple dataset scales,
// measures latency percentiles and lexical/semantic overlap, and gates
// releases by comparing current results against a promoted baseline.
package bench

import "sort"

// Threshold is the absolute acceptance envelope for one benchmark scale.
// A scale passes only when all three limits hold.
type Threshold struct {
	P95TotalMsMax  float64 `json:"p95_total_ms_max"`
	P95FuseMsMax   float64 `json:"p95_fuse_ms_max"`
	OverlapRateMin float64 `json:"overlap_rate_min"`
}

// DefaultThreshold is the envelope used when a profile does not override it.
func DefaultThreshold() Threshold {
	return Threshold{
		P95TotalMsMax:  150.0,
		P95FuseMsMax:   25.0,
		OverlapRateMin: 0.30,
	}
}

// percentile returns the p-th percentile (0..100) of values using
// nearest-rank on a sorted copy. An empty input yields 0.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := int(float64(len(sorted))*p/100.0+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
