package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/roach88/quadquery/internal/adapter"
	"github.com/roach88/quadquery/internal/compiler"
	"github.com/roach88/quadquery/internal/executor"
	"github.com/roach88/quadquery/internal/querybuilder"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query ran but found nothing where something was required
	ExitCommandError = 2 // Command error (bad spec, bad configuration, backend failure)
)

// Error codes reported in CLI responses.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Invalid configuration
	ErrCodeSpec        = "E003" // Malformed find-spec document
	ErrCodeCompilation = "E004" // Find-spec cannot be compiled to a query
	ErrCodeNotFound    = "E005" // No entity matched
	ErrCodeExecution   = "E006" // Backend rejected or failed the request
	ErrCodeIO          = "E007" // File read error
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ErrorCode classifies err for CLI responses.
func ErrorCode(err error) string {
	var (
		specErr   *compiler.CompileError
		compErr   *querybuilder.CompilationError
		exitErr   *ExitError
		configErr = errors.As(err, &exitErr) && exitErr.Message == "invalid configuration"
	)
	switch {
	case configErr:
		return ErrCodeConfig
	case errors.As(err, &specErr):
		return ErrCodeSpec
	case errors.As(err, &compErr):
		return ErrCodeCompilation
	case adapter.IsNotFound(err):
		return ErrCodeNotFound
	case executor.IsExecutionError(err):
		return ErrCodeExecution
	case exitErr != nil && exitErr.Message == "reading input":
		return ErrCodeIO
	default:
		return ErrCodeGeneric
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// JSON reports whether output is JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	errorColor.Fprintf(f.Writer, "Error [%s]: ", code)
	fmt.Fprintln(f.Writer, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns it with an exit code attached. Errors
// that already carry an exit code keep it.
func (f *OutputFormatter) Fail(err error) error {
	var details any
	var specErr *compiler.CompileError
	if errors.As(err, &specErr) && specErr.Pos.IsValid() {
		details = map[string]any{
			"file":   specErr.Pos.Filename(),
			"line":   specErr.Pos.Line(),
			"column": specErr.Pos.Column(),
		}
	}
	_ = f.Error(ErrorCode(err), err.Error(), details)

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	code := ExitCommandError
	if adapter.IsNotFound(err) {
		code = ExitFailure
	}
	return WrapExitError(code, "command failed", err)
}

// Heading writes a text-mode section heading.
func (f *OutputFormatter) Heading(format string, args ...any) {
	headingColor.Fprintf(f.Writer, format, args...)
	fmt.Fprintln(f.Writer)
}

// Done writes a text-mode success line.
func (f *OutputFormatter) Done(format string, args ...any) {
	successColor.Fprint(f.Writer, "✓ ")
	fmt.Fprintf(f.Writer, format+"\n", args...)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
