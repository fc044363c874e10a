// Package errors provides structured error handling for sfxvault.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk, index)
//   - 3XX: Validation errors
//   - 4XX: Benchmark/regression errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, disk, and index I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryBench indicates benchmark and regression-gate errors.
	CategoryBench Category = "BENCH"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates an unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound = "ERR_201_FILE_NOT_FOUND"
	ErrCodeDatabase     = "ERR_202_DATABASE"
	ErrCodeCorruptIndex = "ERR_203_CORRUPT_INDEX"
	ErrCodeReportWrite  = "ERR_204_REPORT_WRITE"

	// Validation errors (300-399)
	ErrCodeInvalidFilter = "ERR_301_INVALID_FILTER"
	ErrCodeInvalidInput  = "ERR_302_INVALID_INPUT"

	// Benchmark errors (400-499)
	ErrCodeBenchThreshold    = "ERR_401_BENCH_THRESHOLD"
	ErrCodeBenchRegression   = "ERR_402_BENCH_REGRESSION"
	ErrCodeBenchPrecondition = "ERR_403_BENCH_PRECONDITION"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode derives the category from the code's number band.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryValidation
	case '4':
		return CategoryBench
	default:
		return CategoryInternal
	}
}

// severityFromCode maps codes to severities. Benchmark verdicts are
// warnings at the process level since they are expected CI outcomes.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeBenchThreshold, ErrCodeBenchRegression:
		return SeverityWarning
	case ErrCodeInternal:
		return SeverityFatal
	default:
		return SeverityError
	}
}
