package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sfxvault/sfxvault/internal/search"
)

// MatrixConfig configures one matrix run across dataset scales.
type MatrixConfig struct {
	RecordsList []int     `json:"records_list"`
	Queries     int       `json:"queries"`
	TopK        int       `json:"top_k"`
	Threshold   Threshold `json:"threshold"`
	StopOnFail  bool      `json:"stop_on_fail"`
	Seed        int64     `json:"seed"`
}

// ScaleResult holds the measured statistics and threshold verdicts for one
// dataset scale.
type ScaleResult struct {
	Records       int     `json:"records"`
	Queries       int     `json:"queries"`
	TopK          int     `json:"top_k"`
	LexicalP95Ms  float64 `json:"lexical_p95_ms"`
	SemanticP95Ms float64 `json:"semantic_p95_ms"`
	FuseP95Ms     float64 `json:"fuse_p95_ms"`
	TotalP95Ms    float64 `json:"total_p95_ms"`
	TotalP50Ms    float64 `json:"total_p50_ms"`
	OverlapAvg    float64 `json:"overlap_avg"`
	OverlapP50    float64 `json:"overlap_p50"`
	OverlapP95    float64 `json:"overlap_p95"`
	PassTotalMs   bool    `json:"pass_total_ms"`
	PassFuseMs    bool    `json:"pass_fuse_ms"`
	PassOverlap   bool    `json:"pass_overlap"`
	Passed        bool    `json:"passed"`
	ElapsedMs     float64 `json:"elapsed_ms"`
}

// MatrixReport is the full output of a matrix run, written as JSON for
// downstream tooling.
type MatrixReport struct {
	Threshold     Threshold     `json:"threshold"`
	RecordsList   []int         `json:"records_list"`
	Queries       int           `json:"queries"`
	TopK          int           `json:"top_k"`
	Results       []ScaleResult `json:"results"`
	FailedRecords []int         `json:"failed_records"`
	Passed        bool          `json:"passed"`
	GeneratedAt   int64         `json:"generated_at_unix"`
}

// recordingRetriever captures the hit keys of the most recent call so the
// runner can compute lexical/semantic overlap. The matrix runner issues
// queries sequentially, so one slot per source is enough.
type recordingRetriever struct {
	inner search.Retriever
	last  []string
}

func (r *recordingRetriever) Retrieve(ctx context.Context, query string, topK int) ([]search.Hit, error) {
	hits, err := r.inner.Retrieve(ctx, query, topK)
	if err != nil {
		r.last = nil
		return nil, err
	}
	keys := make([]string, len(hits))
	for i, h := range hits {
		keys[i] = h.Key
	}
	r.last = keys
	return hits, nil
}

// overlapRate is the fraction of keys common to both lists, relative to
// the smaller list. Empty lists overlap by zero.
func overlapRate(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(a))
	for _, k := range a {
		seen[k] = true
	}
	common := 0
	counted := make(map[string]bool, len(b))
	for _, k := range b {
		if seen[k] && !counted[k] {
			common++
			counted[k] = true
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(common) / float64(smaller)
}

// RunMatrix executes the benchmark matrix and returns the aggregated
// report. Scales run in the configured order; under StopOnFail a failing
// scale halts the remainder.
func RunMatrix(ctx context.Context, cfg MatrixConfig) (*MatrixReport, error) {
	if len(cfg.RecordsList) == 0 {
		return nil, fmt.Errorf("records list is empty")
	}
	if cfg.Queries <= 0 {
		return nil, fmt.Errorf("queries must be positive, got %d", cfg.Queries)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = search.DefaultTopK
	}

	report := &MatrixReport{
		Threshold:   cfg.Threshold,
		RecordsList: cfg.RecordsList,
		Queries:     cfg.Queries,
		TopK:        cfg.TopK,
		Results:     []ScaleResult{},
		Passed:      true,
		GeneratedAt: time.Now().Unix(),
	}

	for _, records := range cfg.RecordsList {
		result, err := runScale(ctx, cfg, records)
		if err != nil {
			return nil, fmt.Errorf("scale %d: %w", records, err)
		}
		report.Results = append(report.Results, *result)

		if !result.Passed {
			report.Passed = false
			report.FailedRecords = append(report.FailedRecords, records)
			if cfg.StopOnFail {
				slog.Warn("benchmark scale failed, stopping matrix",
					"records", records,
					"total_p95_ms", result.TotalP95Ms,
					"fuse_p95_ms", result.FuseP95Ms,
					"overlap_avg", result.OverlapAvg)
				break
			}
		}
	}

	if report.FailedRecords == nil {
		report.FailedRecords = []int{}
	}
	return report, nil
}

func runScale(ctx context.Context, cfg MatrixConfig, records int) (*ScaleResult, error) {
	dataset := NewSyntheticDataset(records, cfg.Seed)
	lexical := &recordingRetriever{inner: dataset.LexicalRetriever()}
	semantic := &recordingRetriever{inner: dataset.SemanticRetriever()}

	orch := search.NewOrchestrator()
	plan := search.DefaultPlan()
	plan.TopK = cfg.TopK

	queries := dataset.Queries(cfg.Queries)

	var lexicalMs, semanticMs, fuseMs, totalMs, overlaps []float64

	start := time.Now()
	for _, q := range queries {
		res, err := orch.Execute(ctx, q, plan, lexical, semantic)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", q, err)
		}

		obs := res.Observation
		lexicalMs = append(lexicalMs, obs.LexicalMillis)
		semanticMs = append(semanticMs, obs.SemanticMillis)
		fuseMs = append(fuseMs, obs.FuseMillis)
		totalMs = append(totalMs, obs.TotalMillis)
		overlaps = append(overlaps, overlapRate(lexical.last, semantic.last))
	}
	elapsed := time.Since(start)

	result := &ScaleResult{
		Records:       records,
		Queries:       cfg.Queries,
		TopK:          cfg.TopK,
		LexicalP95Ms:  percentile(lexicalMs, 95),
		SemanticP95Ms: percentile(semanticMs, 95),
		FuseP95Ms:     percentile(fuseMs, 95),
		TotalP95Ms:    percentile(totalMs, 95),
		TotalP50Ms:    percentile(totalMs, 50),
		OverlapAvg:    mean(overlaps),
		OverlapP50:    percentile(overlaps, 50),
		OverlapP95:    percentile(overlaps, 95),
		ElapsedMs:     float64(elapsed.Microseconds()) / 1000.0,
	}

	t := cfg.Threshold
	result.PassTotalMs = result.TotalP95Ms <= t.P95TotalMsMax
	result.PassFuseMs = result.FuseP95Ms <= t.P95FuseMsMax
	result.PassOverlap = result.OverlapAvg >= t.OverlapRateMin
	result.Passed = result.PassTotalMs && result.PassFuseMs && result.PassOverlap

	return result, nil
}
