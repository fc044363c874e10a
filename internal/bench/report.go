package bench

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// writeJSON atomically-ish writes v as indented JSON: full write to a temp
// file in the same directory, then rename. A failing stage never leaves a
// truncated report behind.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// WriteMatrixReport writes the matrix report as JSON, plus a CSV mirror of
// the per-scale rows next to it (same path with a .csv extension).
func WriteMatrixReport(path string, report *MatrixReport) error {
	if err := writeJSON(path, report); err != nil {
		return err
	}
	csvPath := path[:len(path)-len(filepath.Ext(path))] + ".csv"
	return writeMatrixCSV(csvPath, report)
}

var matrixCSVHeader = []string{
	"records", "queries", "top_k",
	"lexical_p95_ms", "semantic_p95_ms", "fuse_p95_ms", "total_p95_ms", "total_p50_ms",
	"overlap_avg", "overlap_p50", "overlap_p95",
	"pass_total_ms", "pass_fuse_ms", "pass_overlap", "passed", "elapsed_ms",
}

func writeMatrixCSV(path string, report *MatrixReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(matrixCSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range report.Results {
		row := []string{
			strconv.Itoa(r.Records),
			strconv.Itoa(r.Queries),
			strconv.Itoa(r.TopK),
			formatMs(r.LexicalP95Ms),
			formatMs(r.SemanticP95Ms),
			formatMs(r.FuseP95Ms),
			formatMs(r.TotalP95Ms),
			formatMs(r.TotalP50Ms),
			formatMs(r.OverlapAvg),
			formatMs(r.OverlapP50),
			formatMs(r.OverlapP95),
			strconv.FormatBool(r.PassTotalMs),
			strconv.FormatBool(r.PassFuseMs),
			strconv.FormatBool(r.PassOverlap),
			strconv.FormatBool(r.Passed),
			formatMs(r.ElapsedMs),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func formatMs(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// LoadMatrixReport reads a matrix report JSON file.
func LoadMatrixReport(path string) (*MatrixReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read matrix report: %w", err)
	}
	var report MatrixReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse matrix report %s: %w", path, err)
	}
	return &report, nil
}

// WriteRegressionReport writes the regression report as JSON.
func WriteRegressionReport(path string, report *RegressionReport) error {
	return writeJSON(path, report)
}

// LoadRegressionReport reads a regression report JSON file.
func LoadRegressionReport(path string) (*RegressionReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regression report: %w", err)
	}
	var report RegressionReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse regression report %s: %w", path, err)
	}
	return &report, nil
}
