package cmd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sfxvault/sfxvault/internal/bench"
	"github.com/sfxvault/sfxvault/internal/config"
	sferrors "github.com/sfxvault/sfxvault/internal/errors"
	"github.com/sfxvault/sfxvault/internal/output"
)

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark and regression harness",
		Long: `Benchmark the search orchestrator against synthetic datasets and
gate releases on latency and ranking-quality thresholds.

Stages are separate subcommands communicating through JSON reports
and exit codes (0 = pass, 2 = failure), so CI can run and cache
them independently:

  sfxvault bench matrix --profile ci --out bench/matrix.json
  sfxvault bench regress --baseline base.json --current bench/matrix.json --out bench/regress.json
  sfxvault bench gate --profile ci --out bench/
  sfxvault bench promote --profile ci --matrix bench/matrix.json --tag v1.2.0`,
	}

	cmd.AddCommand(newBenchMatrixCmd())
	cmd.AddCommand(newBenchRegressCmd())
	cmd.AddCommand(newBenchGateCmd())
	cmd.AddCommand(newBenchPromoteCmd())

	return cmd
}

type benchMatrixOptions struct {
	profile    string
	out        string
	records    []int
	queries    int
	topK       int
	stopOnFail bool
	seed       int64
}

func newBenchMatrixCmd() *cobra.Command {
	var opts benchMatrixOptions

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Run the benchmark matrix across dataset scales",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchMatrix(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "ci", "Profile: ci or standard")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Matrix report path (default from config)")
	cmd.Flags().IntSliceVar(&opts.records, "records", nil, "Override dataset sizes (repeatable)")
	cmd.Flags().IntVar(&opts.queries, "queries", 0, "Override query count per scale")
	cmd.Flags().IntVar(&opts.topK, "top-k", 0, "Override per-source top-k")
	cmd.Flags().BoolVar(&opts.stopOnFail, "stop-on-fail", false, "Halt remaining scales on first failure")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Override dataset seed")

	return cmd
}

func runBenchMatrix(ctx context.Context, cmd *cobra.Command, opts benchMatrixOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}

	profile, err := bench.ProfileByName(opts.profile)
	if err != nil {
		return err
	}

	seed := cfg.Bench.Seed
	if opts.seed != 0 {
		seed = opts.seed
	}
	matrixCfg := profile.MatrixConfig(seed)
	if len(opts.records) > 0 {
		matrixCfg.RecordsList = opts.records
	}
	if opts.queries > 0 {
		matrixCfg.Queries = opts.queries
	}
	if opts.topK > 0 {
		matrixCfg.TopK = opts.topK
	}
	if opts.stopOnFail {
		matrixCfg.StopOnFail = true
	}

	reportPath := opts.out
	if reportPath == "" {
		reportPath = filepath.Join(cfg.Bench.OutDir, "matrix.json")
	}

	report, err := bench.RunMatrix(ctx, matrixCfg)
	if err != nil {
		return exitWithCode(bench.ExitFail, sferrors.BenchPreconditionError("matrix did not run", err))
	}
	if err := bench.WriteMatrixReport(reportPath, report); err != nil {
		return exitWithCode(bench.ExitFail, err)
	}

	for _, r := range report.Results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		out.Statusf("", "%-6s records=%-8d total_p95=%.2fms fuse_p95=%.2fms overlap=%.2f",
			status, r.Records, r.TotalP95Ms, r.FuseP95Ms, r.OverlapAvg)
	}

	if !report.Passed {
		out.Errorf("matrix failed at scales %v (report: %s)", report.FailedRecords, reportPath)
		return exitWithCode(bench.ExitFail, nil)
	}
	out.Successf("matrix passed (report: %s)", reportPath)
	return nil
}

type benchRegressOptions struct {
	profile  string
	baseline string
	current  string
	out      string
}

func newBenchRegressCmd() *cobra.Command {
	var opts benchRegressOptions

	cmd := &cobra.Command{
		Use:   "regress",
		Short: "Compare a matrix result against a baseline",
		Long: `Compare a current matrix report against a baseline report.

The comparison is relative: latency may grow up to the configured
fraction over baseline, and average overlap may drop by at most the
configured allowance. Missing input files are a precondition
failure, distinct from a detected regression in the summary JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchRegress(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "ci", "Profile supplying regression limits")
	cmd.Flags().StringVar(&opts.baseline, "baseline", "", "Baseline matrix JSON (required)")
	cmd.Flags().StringVar(&opts.current, "current", "", "Current matrix JSON (required)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Regression report path")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("current")

	return cmd
}

func runBenchRegress(cmd *cobra.Command, opts benchRegressOptions) error {
	out := output.New(cmd.OutOrStdout())

	profile, err := bench.ProfileByName(opts.profile)
	if err != nil {
		return err
	}

	baseline, err := bench.LoadMatrixReport(opts.baseline)
	if err != nil {
		return exitWithCode(bench.ExitFail, sferrors.BenchPreconditionError("baseline matrix report not readable", err))
	}
	current, err := bench.LoadMatrixReport(opts.current)
	if err != nil {
		return exitWithCode(bench.ExitFail, sferrors.BenchPreconditionError("current matrix report not readable", err))
	}

	report := bench.CompareMatrices(baseline, current, profile.Regression, opts.baseline, opts.current)

	if opts.out != "" {
		if err := bench.WriteRegressionReport(opts.out, report); err != nil {
			return exitWithCode(bench.ExitFail, err)
		}
	}

	if !report.Passed {
		for _, line := range report.FailureSummary() {
			out.Error(line)
		}
		slog.Warn("regression detected", "baseline", opts.baseline, "current", opts.current)
		return exitWithCode(bench.ExitFail, nil)
	}
	out.Success("no regression against baseline")
	return nil
}

type benchGateOptions struct {
	profile  string
	out      string
	manifest string
}

func newBenchGateCmd() *cobra.Command {
	var opts benchGateOptions

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Run the full release-gate pipeline",
		Long: `Run the matrix and regression stages as child processes and write
a pipeline summary. The regression stage is skipped when no baseline
has been promoted for the profile.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchGate(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "ci", "Profile: ci or standard")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output directory for reports")
	cmd.Flags().StringVar(&opts.manifest, "manifest", "", "Baseline manifest path")

	return cmd
}

func runBenchGate(ctx context.Context, cmd *cobra.Command, opts benchGateOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	profile, err := bench.ProfileByName(opts.profile)
	if err != nil {
		return err
	}

	outDir := opts.out
	if outDir == "" {
		outDir = cfg.Bench.OutDir
	}
	manifestPath := opts.manifest
	if manifestPath == "" {
		manifestPath = cfg.Bench.ManifestPath
	}

	gate := &bench.Gate{
		Profile:      profile,
		OutDir:       outDir,
		ManifestPath: manifestPath,
	}

	summary, err := gate.Run(ctx)
	if err != nil {
		return exitWithCode(bench.ExitFail, err)
	}

	if summary.Passed {
		out.Successf("release gate passed (summary: %s)", filepath.Join(outDir, "summary.json"))
		return nil
	}
	if summary.PreconditionFailed {
		out.Error("release gate could not run: precondition failed")
	} else {
		out.Error("release gate failed")
	}
	return exitWithCode(summary.ExitCode, nil)
}

type benchPromoteOptions struct {
	profile  string
	matrix   string
	tag      string
	manifest string
}

func newBenchPromoteCmd() *cobra.Command {
	var opts benchPromoteOptions

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote a passing matrix result to the baseline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchPromote(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "ci", "Profile to promote for")
	cmd.Flags().StringVar(&opts.matrix, "matrix", "", "Matrix JSON to promote (required)")
	cmd.Flags().StringVar(&opts.tag, "tag", "", "Source tag recorded with the baseline (e.g. release version)")
	cmd.Flags().StringVar(&opts.manifest, "manifest", "", "Baseline manifest path")
	_ = cmd.MarkFlagRequired("matrix")

	return cmd
}

func runBenchPromote(cmd *cobra.Command, opts benchPromoteOptions) error {
	out := output.New(cmd.OutOrStdout())

	manifestPath := opts.manifest
	if manifestPath == "" {
		cfg, err := config.Load(".")
		if err != nil {
			return err
		}
		manifestPath = cfg.Bench.ManifestPath
	}

	entry, err := bench.Promote(manifestPath, opts.profile, opts.matrix, opts.tag)
	if err != nil {
		return exitWithCode(bench.ExitFail, err)
	}

	out.Successf("promoted %s as %s baseline (-> %s)", opts.matrix, opts.profile, entry.BaselineJSON)
	return nil
}
