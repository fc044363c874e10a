// Package cmd provides the CLI commands for sfxvault.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sferrors "github.com/sfxvault/sfxvault/internal/errors"
	"github.com/sfxvault/sfxvault/internal/logging"
	"github.com/sfxvault/sfxvault/pkg/version"
)

// exitCodeError carries a specific process exit code through cobra's error
// path. The bench stages use code 2 for threshold, regression, and
// precondition failures.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

func exitWithCode(code int, err error) error {
	return &exitCodeError{code: code, err: err}
}

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the sfxvault CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sfxvault",
		Short: "Sound-effects library manager with hybrid search",
		Long: `sfxvault manages a sound-effects library with hybrid retrieval:
lexical (BM25) and semantic (embedding) search fused with
Rank-Reciprocal Fusion.

Its query language supports boolean operators, field predicates,
quoted phrases, and duration comparisons:

  sfxvault search "metal impact AND duration:<3s"
  sfxvault search '(rain OR wind) AND category:ambience'`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("sfxvault version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		setupLogging()
	}
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging() {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg.Level = "debug"
		cfg.WriteToStderr = true
	}
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		// Fall back to stderr-only logging rather than failing the command.
		return
	}
	slog.SetDefault(logger)
	loggingCleanup = cleanup
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			if exitErr.err != nil {
				printError(exitErr.err)
			}
			return exitErr.code
		}
		printError(err)
		return 1
	}
	return 0
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	var verr *sferrors.VaultError
	if errors.As(err, &verr) && verr.Suggestion != "" {
		fmt.Fprintln(os.Stderr, "Suggestion:", verr.Suggestion)
	}
}
