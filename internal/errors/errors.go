package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig = "CONFIG"
	ErrSource = "SOURCE" // metric source cannot be reached at startup (fatal)
	ErrMetric = "METRIC" // a named metric is not exported by the source
	ErrFetch  = "FETCH"  // one refresh cycle could not sample the source
	ErrField  = "FIELD"  // a single instance field has no value this cycle
	ErrSSH    = "SSH"
	ErrExec   = "EXEC"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrSource code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrSource,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// SourceUnavailable reports that no connection to the metric source could be
// established. Callers at startup treat it as fatal.
func SourceUnavailable(cause error, source string) *Error {
	return &Error{
		Code:       ErrSource,
		Message:    fmt.Sprintf("Cannot set up metric source %s", source),
		Suggestion: "Check that pmcd/pmproxy is running and reachable, or pass --archive to replay a recording",
		Cause:      cause,
	}
}

// MetricUnresolved reports a metric name the source does not export.
func MetricUnresolved(name string) *Error {
	return &Error{
		Code:       ErrMetric,
		Message:    fmt.Sprintf("Metric %s is not available from this source", name),
		Suggestion: "The treetop server may not be running, or this PMDA is not installed",
	}
}

// FetchFailed reports a refresh cycle that could not sample the source.
func FetchFailed(cause error) *Error {
	return &Error{
		Code:    ErrFetch,
		Message: "Fetching metric values failed",
		Cause:   cause,
	}
}

// InstanceMissingField reports a companion metric with no value for one instance.
func InstanceMissingField(metric string, inst int) *Error {
	return &Error{
		Code:    ErrField,
		Message: fmt.Sprintf("No value for %s instance %d", metric, inst),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	// First line: failure symbol + main message
	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var ttErr *Error
	if errors.As(err, &ttErr) {
		return ttErr.Code == code
	}
	return false
}
