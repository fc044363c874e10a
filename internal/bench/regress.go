package bench

import (
	"fmt"
)

// RegressionConfig bounds how much the current run may degrade relative to
// the baseline. Latency limits are relative (fractional increase over
// baseline); the overlap limit is an absolute drop in average overlap.
type RegressionConfig struct {
	MaxTotalP95Increase float64 `json:"max_total_p95_increase"`
	MaxFuseP95Increase  float64 `json:"max_fuse_p95_increase"`
	MaxOverlapDrop      float64 `json:"max_overlap_drop"`
}

// DefaultRegressionConfig allows 25% latency growth and a 5-point overlap
// drop before flagging a regression.
func DefaultRegressionConfig() RegressionConfig {
	return RegressionConfig{
		MaxTotalP95Increase: 0.25,
		MaxFuseP95Increase:  0.25,
		MaxOverlapDrop:      0.05,
	}
}

// RegressionCheck is one baseline-vs-current comparison for one scale.
type RegressionCheck struct {
	Records  int     `json:"records"`
	Metric   string  `json:"metric"`
	Baseline float64 `json:"baseline"`
	Current  float64 `json:"current"`
	Limit    float64 `json:"limit"`
	Passed   bool    `json:"passed"`
}

// RegressionReport aggregates all per-scale checks.
type RegressionReport struct {
	BaselinePath string            `json:"baseline_path"`
	CurrentPath  string            `json:"current_path"`
	Config       RegressionConfig  `json:"config"`
	Checks       []RegressionCheck `json:"checks"`
	Passed       bool              `json:"passed"`
}

// CompareMatrices checks the current matrix report against the baseline.
// Scales present only in one report are skipped; the comparison is
// relative, so absolute threshold failures are the matrix runner's job.
func CompareMatrices(baseline, current *MatrixReport, cfg RegressionConfig, baselinePath, currentPath string) *RegressionReport {
	report := &RegressionReport{
		BaselinePath: baselinePath,
		CurrentPath:  currentPath,
		Config:       cfg,
		Checks:       []RegressionCheck{},
		Passed:       true,
	}

	baseByRecords := make(map[int]ScaleResult, len(baseline.Results))
	for _, r := range baseline.Results {
		baseByRecords[r.Records] = r
	}

	for _, cur := range current.Results {
		base, ok := baseByRecords[cur.Records]
		if !ok {
			continue
		}

		checks := []RegressionCheck{
			latencyCheck(cur.Records, "total_p95_ms", base.TotalP95Ms, cur.TotalP95Ms, cfg.MaxTotalP95Increase),
			latencyCheck(cur.Records, "fuse_p95_ms", base.FuseP95Ms, cur.FuseP95Ms, cfg.MaxFuseP95Increase),
			{
				Records:  cur.Records,
				Metric:   "overlap_avg",
				Baseline: base.OverlapAvg,
				Current:  cur.OverlapAvg,
				Limit:    cfg.MaxOverlapDrop,
				Passed:   base.OverlapAvg-cur.OverlapAvg <= cfg.MaxOverlapDrop,
			},
		}

		for _, c := range checks {
			if !c.Passed {
				report.Passed = false
			}
			report.Checks = append(report.Checks, c)
		}
	}

	return report
}

// latencyCheck passes when current <= baseline * (1 + maxIncrease). A zero
// baseline passes any current value, since a ratio against zero is
// meaningless for sub-millisecond timings.
func latencyCheck(records int, metric string, baseline, current, maxIncrease float64) RegressionCheck {
	limit := baseline * (1 + maxIncrease)
	passed := baseline == 0 || current <= limit
	return RegressionCheck{
		Records:  records,
		Metric:   metric,
		Baseline: baseline,
		Current:  current,
		Limit:    limit,
		Passed:   passed,
	}
}

// FailureSummary names the failing checks, one line each.
func (r *RegressionReport) FailureSummary() []string {
	var lines []string
	for _, c := range r.Checks {
		if c.Passed {
			continue
		}
		lines = append(lines, fmt.Sprintf("records=%d %s: baseline=%.4f current=%.4f limit=%.4f",
			c.Records, c.Metric, c.Baseline, c.Current, c.Limit))
	}
	return lines
}
