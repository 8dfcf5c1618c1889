package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/busscope/internal/sequence"
	"github.com/roach88/busscope/internal/servicecontrol"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Inconsistent conversation data, failed scenarios, unreachable service
	ExitCommandError = 2 // Command error (bad flags, unreadable files, missing database)
)

// Error codes carried in the JSON envelope.
const (
	CodeUpstream   = "E_UPSTREAM"
	CodeNotFound   = "E_NOT_FOUND"
	CodeStructural = "E_STRUCTURAL"
	CodeInput      = "E_INPUT"
	CodeStore      = "E_STORE"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	reported bool // already written by the formatter
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
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Reported reports whether err has already been written to the user in
// the selected output format.
func Reported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.reported
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// newFormatter binds a formatter to the command's writers.
func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // E_UPSTREAM, E_STRUCTURAL, ...
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// JSON writes data in the success envelope.
func (f *OutputFormatter) JSON(data any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResponse{Status: "ok", Data: data})
}

// Emit writes data as JSON in json mode and calls text otherwise.
func (f *OutputFormatter) Emit(data any, text func(w io.Writer) error) error {
	if f.Format == "json" {
		return f.JSON(data)
	}
	return text(f.Writer)
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.GetErrWriter(), "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns the ExitError the
// command should return.
func (f *OutputFormatter) Fail(err error) error {
	code, exit, details := describe(err)
	_ = f.Error(code, err.Error(), details)
	return &ExitError{Code: exit, Message: "command failed", Err: err, reported: true}
}

// FailWith reports err under an explicit envelope code and exit code.
func (f *OutputFormatter) FailWith(code string, exit int, err error) error {
	_ = f.Error(code, err.Error(), nil)
	return &ExitError{Code: exit, Message: "command failed", Err: err, reported: true}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
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

// describe maps an error onto an envelope code, an exit code and details.
func describe(err error) (string, int, any) {
	var (
		me   *sequence.ModelError
		se   *servicecontrol.StatusError
		exit *ExitError
	)
	switch {
	case errors.As(err, &me):
		details := map[string]string{
			"code":       string(me.Code),
			"handler":    me.HandlerID + "@" + me.Endpoint,
			"message_id": me.MessageID,
		}
		for k, v := range me.Details {
			details[k] = v
		}
		return CodeStructural, ExitFailure, details
	case errors.As(err, &se) && se.StatusCode == 404:
		return CodeNotFound, ExitFailure, map[string]string{"url": se.URL}
	case errors.As(err, &se):
		return CodeUpstream, ExitFailure, map[string]any{"status": se.StatusCode, "kind": servicecontrol.Classify(err)}
	case errors.As(err, &exit) && exit.Code == ExitCommandError,
		errors.Is(err, servicecontrol.ErrForeignURL):
		return CodeInput, ExitCommandError, nil
	case errors.Is(err, context.Canceled):
		return CodeUpstream, ExitFailure, nil
	}
	if kind := servicecontrol.Classify(err); kind != "" && isNetwork(err) {
		return CodeUpstream, ExitFailure, map[string]any{"kind": kind}
	}
	return CodeInput, ExitFailure, nil
}

// isNetwork reports whether err came from talking to the service.
func isNetwork(err error) bool {
	var ue interface{ Timeout() bool }
	return errors.As(err, &ue)
}
