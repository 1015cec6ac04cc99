package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quadquery/internal/adapter"
	"github.com/roach88/quadquery/internal/compiler"
	"github.com/roach88/quadquery/internal/executor"
	"github.com/roach88/quadquery/internal/querybuilder"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]any{"file": "people.cue", "line": 42}
	err := formatter.Error(ErrCodeSpec, "limit: must not be negative", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSpec, resp.Error.Code)
	assert.Equal(t, "limit: must not be negative", resp.Error.Message)
	assert.Equal(t, map[string]any{"file": "people.cue", "line": float64(42)}, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("3 entities")
	require.NoError(t, err)
	assert.Equal(t, "3 entities\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	testCases := []struct {
		name    string
		verbose bool
		want    string
	}{
		{name: "quiet", verbose: false, want: "Error [E004]: compilation failed\n"},
		{name: "verbose", verbose: true, want: "Error [E004]: compilation failed\nDetails: map[field:order]\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tc.verbose}

			require.NoError(t, formatter.Error(ErrCodeCompilation, "compilation failed", map[string]string{"field": "order"}))
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Compiled %s", "people.cue")

			assert.Empty(t, buf.String(), "verbose output never reaches the result stream")
			if tt.wantLog {
				assert.Equal(t, "Compiled people.cue\n", errBuf.String())
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestOutputFormatter_DoneAndHeading(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	formatter.Heading("# %s", "select")
	formatter.Done("Loaded %d file(s)", 2)
	assert.Equal(t, "# select\n✓ Loaded 2 file(s)\n", buf.String())
}

func TestErrorCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{name: "generic", err: errors.New("boom"), want: ErrCodeGeneric},
		{name: "config", err: WrapExitError(ExitCommandError, "invalid configuration", errors.New("backend")), want: ErrCodeConfig},
		{name: "spec", err: &compiler.CompileError{Field: "limit", Message: "must not be negative"}, want: ErrCodeSpec},
		{name: "wrapped spec", err: fmt.Errorf("people.cue: %w", &compiler.CompileError{Field: "order"}), want: ErrCodeSpec},
		{name: "compilation", err: &querybuilder.CompilationError{Code: querybuilder.ErrCodeInvalidPath, Field: "a~", Message: "empty step"}, want: ErrCodeCompilation},
		{name: "not found", err: &adapter.NotFoundError{}, want: ErrCodeNotFound},
		{name: "execution", err: &executor.ExecutionError{Backend: executor.BackendRemote, Operation: "select", StatusCode: 503}, want: ErrCodeExecution},
		{name: "io", err: WrapExitError(ExitCommandError, "reading input", errors.New("no such file")), want: ErrCodeIO},
		{name: "other exit error", err: WrapExitError(ExitCommandError, "opening backend", errors.New("locked")), want: ErrCodeGeneric},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ErrorCode(tc.err))
		})
	}
}

func TestOutputFormatter_Fail(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		exitCode int
		output   string
	}{
		{
			name:     "not found exits with failure",
			err:      &adapter.NotFoundError{},
			exitCode: ExitFailure,
			output:   "Error [E005]",
		},
		{
			name:     "execution error is a command error",
			err:      &executor.ExecutionError{Backend: executor.BackendMemory, Operation: "select", Message: "budget exceeded"},
			exitCode: ExitCommandError,
			output:   "Error [E006]",
		},
		{
			name:     "exit code is kept",
			err:      NewExitError(ExitFailure, "no entity matched"),
			exitCode: ExitFailure,
			output:   "Error [E001]: no entity matched",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf}

			err := formatter.Fail(tc.err)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.exitCode, GetExitCode(err))
			assert.Contains(t, buf.String(), tc.output)
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "x"))))
}
