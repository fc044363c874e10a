package bench

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileByName(t *testing.T) {
	ci, err := ProfileByName("ci")
	require.NoError(t, err)
	assert.Equal(t, []int{10_000, 20_000}, ci.RecordsList)
	assert.Equal(t, 10, ci.Queries)
	assert.True(t, ci.StopOnFail)

	std, err := ProfileByName("standard")
	require.NoError(t, err)
	assert.Equal(t, []int{100_000, 500_000, 1_000_000}, std.RecordsList)
	assert.Equal(t, 50, std.Queries)

	_, err = ProfileByName("nightly")
	require.Error(t, err)
}

func TestMatrixReportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matrix.json")

	report, err := RunMatrix(context.Background(), MatrixConfig{
		RecordsList: []int{1_000},
		Queries:     3,
		TopK:        10,
		Threshold:   permissiveThreshold(),
		Seed:        1,
	})
	require.NoError(t, err)

	require.NoError(t, WriteMatrixReport(path, report))

	loaded, err := LoadMatrixReport(path)
	require.NoError(t, err)
	assert.Equal(t, report.Passed, loaded.Passed)
	require.Len(t, loaded.Results, 1)
	assert.Equal(t, report.Results[0].OverlapAvg, loaded.Results[0].OverlapAvg)

	// CSV mirror exists with a header and one row per scale.
	csvData, err := os.ReadFile(filepath.Join(dir, "matrix.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "total_p95_ms")
	assert.Contains(t, string(csvData), "1000")
}

func TestLoadManifest_MissingFileIsEmpty(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), "manifest.json"))
	require.NoError(t, err)
	assert.Empty(t, m.Profiles)
}

func TestPromote_RecordsBaseline(t *testing.T) {
	dir := t.TempDir()
	matrixPath := filepath.Join(dir, "matrix.json")
	manifestPath := filepath.Join(dir, "manifest.json")

	report, err := RunMatrix(context.Background(), MatrixConfig{
		RecordsList: []int{1_000},
		Queries:     3,
		TopK:        10,
		Threshold:   permissiveThreshold(),
		Seed:        1,
	})
	require.NoError(t, err)
	require.True(t, report.Passed)
	require.NoError(t, WriteMatrixReport(matrixPath, report))

	entry, err := Promote(manifestPath, "ci", matrixPath, "v1.2.0")
	require.NoError(t, err)
	assert.Equal(t, matrixPath, entry.SourceMatrixJSON)
	assert.Equal(t, "v1.2.0", entry.SourceTag)
	assert.NotZero(t, entry.UpdatedAtUnix)

	// Baseline copy is loadable and matches the source matrix.
	baseline, err := LoadMatrixReport(entry.BaselineJSON)
	require.NoError(t, err)
	assert.Equal(t, report.Results[0].OverlapAvg, baseline.Results[0].OverlapAvg)

	manifest, err := LoadManifest(manifestPath)
	require.NoError(t, err)
	got, ok := manifest.Profiles["ci"]
	require.True(t, ok)
	assert.Equal(t, entry.BaselineJSON, got.BaselineJSON)
}

func TestPromote_RefusesFailingMatrix(t *testing.T) {
	dir := t.TempDir()
	matrixPath := filepath.Join(dir, "matrix.json")

	report, err := RunMatrix(context.Background(), MatrixConfig{
		RecordsList: []int{1_000},
		Queries:     3,
		TopK:        10,
		Threshold:   Threshold{OverlapRateMin: 1.1, P95TotalMsMax: 10_000, P95FuseMsMax: 10_000},
		Seed:        1,
	})
	require.NoError(t, err)
	require.False(t, report.Passed)
	require.NoError(t, WriteMatrixReport(matrixPath, report))

	_, err = Promote(filepath.Join(dir, "manifest.json"), "ci", matrixPath, "v1.2.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to promote")
}

func TestGate_PreconditionFailureOnMissingExecutable(t *testing.T) {
	dir := t.TempDir()
	gate := &Gate{
		Profile:      CIProfile(),
		OutDir:       dir,
		ManifestPath: filepath.Join(dir, "manifest.json"),
		Executable:   filepath.Join(dir, "does-not-exist"),
	}

	summary, err := gate.Run(context.Background())
	require.Error(t, err)
	assert.True(t, summary.PreconditionFailed)
	assert.Equal(t, ExitFail, summary.ExitCode)

	// The summary file is still written for CI to inspect.
	data, readErr := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, readErr)
	assert.Contains(t, string(data), `"precondition_failed": true`)
}

func TestRegressionReportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regress.json")

	baseline := matrixWith(10_000, 100, 10, 0.75)
	current := matrixWith(10_000, 140, 10, 0.75)
	report := CompareMatrices(baseline, current, DefaultRegressionConfig(), "b.json", "c.json")
	require.False(t, report.Passed)

	require.NoError(t, WriteRegressionReport(path, report))
	loaded, err := LoadRegressionReport(path)
	require.NoError(t, err)
	assert.False(t, loaded.Passed)
	assert.Len(t, loaded.Checks, 3)
}
