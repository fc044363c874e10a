package errors

import "fmt"

// VaultError is the structured error type for sfxvault. It carries a
// stable code for logging and CI, plus optional detail pairs and an
// actionable suggestion for the user.
type VaultError struct {
	// Code is the unique error code (e.g., "ERR_202_DATABASE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *VaultError) Unwrap() error {
	return e.Cause
}

// Is matches by code, enabling errors.Is against sentinel VaultErrors.
func (e *VaultError) Is(target error) bool {
	if t, ok := target.(*VaultError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail. Returns the error for chaining.
func (e *VaultError) WithDetail(key, value string) *VaultError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *VaultError) WithSuggestion(suggestion string) *VaultError {
	e.Suggestion = suggestion
	return e
}

// New creates a VaultError with the given code and message. Category and
// severity are derived from the code.
func New(code string, message string, cause error) *VaultError {
	return &VaultError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a VaultError from an existing error; the error's message
// becomes the VaultError message. Wrapping nil returns nil.
func Wrap(code string, err error) *VaultError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *VaultError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// DatabaseError creates a catalog database error.
func DatabaseError(message string, cause error) *VaultError {
	return New(ErrCodeDatabase, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *VaultError {
	return New(ErrCodeInvalidInput, message, cause)
}

// BenchPreconditionError marks a benchmark stage that could not run at
// all, as opposed to one that ran and failed its thresholds.
func BenchPreconditionError(message string, cause error) *VaultError {
	return New(ErrCodeBenchPrecondition, message, cause)
}
