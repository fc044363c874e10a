package bench

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Exit codes shared by the bench CLI stages. Code 2 covers thresholds,
// regressions, and missing preconditions alike; the pipeline summary's
// precondition_failed flag is what distinguishes "did not run" from "ran
// but regressed".
const (
	ExitPass = 0
	ExitFail = 2
)

// Profile names a preconfigured matrix + regression pipeline.
type Profile struct {
	Name        string           `json:"name"`
	RecordsList []int            `json:"records_list"`
	Queries     int              `json:"queries"`
	TopK        int              `json:"top_k"`
	Threshold   Threshold        `json:"threshold"`
	Regression  RegressionConfig `json:"regression"`
	StopOnFail  bool             `json:"stop_on_fail"`
}

// CIProfile is the small fast profile for pull-request checks.
func CIProfile() Profile {
	return Profile{
		Name:        "ci",
		RecordsList: []int{10_000, 20_000},
		Queries:     10,
		TopK:        50,
		Threshold:   DefaultThreshold(),
		Regression:  DefaultRegressionConfig(),
		StopOnFail:  true,
	}
}

// StandardProfile is the full release profile.
func StandardProfile() Profile {
	return Profile{
		Name:        "standard",
		RecordsList: []int{100_000, 500_000, 1_000_000},
		Queries:     50,
		TopK:        100,
		Threshold:   DefaultThreshold(),
		Regression:  DefaultRegressionConfig(),
	}
}

// ProfileByName resolves a profile name.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case "ci":
		return CIProfile(), nil
	case "standard":
		return StandardProfile(), nil
	default:
		return Profile{}, fmt.Errorf("unknown profile %q (want ci or standard)", name)
	}
}

// MatrixConfig builds the matrix configuration for this profile.
func (p Profile) MatrixConfig(seed int64) MatrixConfig {
	return MatrixConfig{
		RecordsList: p.RecordsList,
		Queries:     p.Queries,
		TopK:        p.TopK,
		Threshold:   p.Threshold,
		StopOnFail:  p.StopOnFail,
		Seed:        seed,
	}
}

// ManifestEntry records the promoted baseline for one profile.
type ManifestEntry struct {
	BaselineJSON     string `json:"baseline_json"`
	SourceMatrixJSON string `json:"source_matrix_json"`
	SourceTag        string `json:"source_tag"`
	UpdatedAtUnix    int64  `json:"updated_at_unix"`
}

// Manifest maps profile names to their promoted baselines.
type Manifest struct {
	Profiles map[string]ManifestEntry `json:"profiles"`
}

// LoadManifest reads a baseline manifest. A missing file yields an empty
// manifest, since promotion creates it lazily.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{Profiles: map[string]ManifestEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Profiles == nil {
		m.Profiles = map[string]ManifestEntry{}
	}
	return &m, nil
}

// SaveManifest writes the manifest back to disk.
func SaveManifest(path string, m *Manifest) error {
	return writeJSON(path, m)
}

// Promote copies a passing matrix result into the baseline store next to
// the manifest and records it under the profile name. Promoting a failing
// matrix is refused.
func Promote(manifestPath, profileName, matrixPath, tag string) (*ManifestEntry, error) {
	report, err := LoadMatrixReport(matrixPath)
	if err != nil {
		return nil, err
	}
	if !report.Passed {
		return nil, fmt.Errorf("matrix %s did not pass, refusing to promote", matrixPath)
	}

	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	baselineDir := filepath.Join(filepath.Dir(manifestPath), "baselines")
	baselinePath := filepath.Join(baselineDir, profileName+".json")
	if err := writeJSON(baselinePath, report); err != nil {
		return nil, fmt.Errorf("write baseline: %w", err)
	}

	entry := ManifestEntry{
		BaselineJSON:     baselinePath,
		SourceMatrixJSON: matrixPath,
		SourceTag:        tag,
		UpdatedAtUnix:    time.Now().Unix(),
	}
	manifest.Profiles[profileName] = entry

	if err := SaveManifest(manifestPath, manifest); err != nil {
		return nil, err
	}
	return &entry, nil
}

// PipelineSummary is the gate's final verdict, written as JSON alongside
// the stage reports.
type PipelineSummary struct {
	Profile            string `json:"profile"`
	MatrixJSON         string `json:"matrix_json"`
	RegressionJSON     string `json:"regression_json,omitempty"`
	MatrixPassed       bool   `json:"matrix_passed"`
	BaselineFound      bool   `json:"baseline_found"`
	RegressionPassed   bool   `json:"regression_passed"`
	PreconditionFailed bool   `json:"precondition_failed"`
	Passed             bool   `json:"passed"`
	ExitCode           int    `json:"exit_code"`
}

// Gate runs the matrix and regression stages as separate child processes
// of the same binary, so each stage stays independently runnable in CI.
type Gate struct {
	Profile      Profile
	OutDir       string
	ManifestPath string

	// Executable is the binary to spawn for stages. Empty means the
	// current binary.
	Executable string
}

// Run executes the pipeline and writes OutDir/summary.json. The returned
// summary carries the process exit code the caller should exit with.
func (g *Gate) Run(ctx context.Context) (*PipelineSummary, error) {
	summary := &PipelineSummary{
		Profile:          g.Profile.Name,
		MatrixJSON:       filepath.Join(g.OutDir, "matrix.json"),
		RegressionPassed: true,
	}

	exe := g.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			summary.PreconditionFailed = true
			summary.ExitCode = ExitFail
			g.writeSummary(summary)
			return summary, fmt.Errorf("resolve executable: %w", err)
		}
		exe = self
	}

	if err := os.MkdirAll(g.OutDir, 0o755); err != nil {
		summary.PreconditionFailed = true
		summary.ExitCode = ExitFail
		return summary, fmt.Errorf("create output dir: %w", err)
	}

	// Stage 1: matrix.
	matrixCode, err := runStage(ctx, exe,
		"bench", "matrix",
		"--profile", g.Profile.Name,
		"--out", summary.MatrixJSON)
	if err != nil {
		summary.PreconditionFailed = true
		summary.ExitCode = ExitFail
		g.writeSummary(summary)
		return summary, fmt.Errorf("matrix stage: %w", err)
	}
	summary.MatrixPassed = matrixCode == ExitPass
	if matrixCode != ExitPass && matrixCode != ExitFail {
		summary.PreconditionFailed = true
	}

	// Stage 2: regression against the promoted baseline, skipped when no
	// baseline has been promoted yet.
	manifest, err := LoadManifest(g.ManifestPath)
	if err != nil {
		summary.PreconditionFailed = true
		summary.ExitCode = ExitFail
		g.writeSummary(summary)
		return summary, err
	}

	if entry, ok := manifest.Profiles[g.Profile.Name]; ok {
		summary.BaselineFound = true
		summary.RegressionJSON = filepath.Join(g.OutDir, "regress.json")

		regressCode, err := runStage(ctx, exe,
			"bench", "regress",
			"--profile", g.Profile.Name,
			"--baseline", entry.BaselineJSON,
			"--current", summary.MatrixJSON,
			"--out", summary.RegressionJSON)
		if err != nil {
			summary.PreconditionFailed = true
			summary.ExitCode = ExitFail
			g.writeSummary(summary)
			return summary, fmt.Errorf("regression stage: %w", err)
		}
		summary.RegressionPassed = regressCode == ExitPass
		if regressCode != ExitPass && regressCode != ExitFail {
			summary.PreconditionFailed = true
		}
	} else {
		slog.Info("no baseline promoted for profile, skipping regression stage",
			"profile", g.Profile.Name)
	}

	summary.Passed = summary.MatrixPassed && summary.RegressionPassed && !summary.PreconditionFailed
	if summary.Passed {
		summary.ExitCode = ExitPass
	} else {
		summary.ExitCode = ExitFail
	}

	if err := g.writeSummary(summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func (g *Gate) writeSummary(summary *PipelineSummary) error {
	return writeJSON(filepath.Join(g.OutDir, "summary.json"), summary)
}

// runStage spawns one pipeline stage and returns its exit code. Only a
// failure to start or an abnormal termination is an error; a nonzero exit
// is a stage verdict, not a pipeline error.
func runStage(ctx context.Context, exe string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	slog.Info("running pipeline stage", "args", args)
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
