package main

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/dgenies/batchdsl/pkgs/errors"
)

// cliError is an error the command line reports itself, with its exit code
type cliError struct {
	Code    int
	Message string
	Hint    string // How to fix it
}

func (e *cliError) Error() string {
	return e.Message
}

// errDiagnostics signals a batch with error diagnostics; the report has
// already been written
var errDiagnostics = &cliError{Code: ExitDiagnostics, Message: "batch file has errors"}

// exitCode maps an error to the process exit code. Anything unrecognised
// comes from argument parsing.
func exitCode(err error) int {
	var ce *cliError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	var be *errors.BatchError
	if !stderrors.As(err, &be) {
		return ExitInvalidArguments
	}
	switch {
	case errors.IsErrorType(err, errors.ErrSubmission):
		return ExitDiagnostics
	default:
		return ExitIOError
	}
}

// formatError prints an error and its hint, if any
func formatError(w io.Writer, err error, useColor bool) {
	profile := termenv.Ascii
	if useColor {
		profile = termenv.ANSI256
	}
	r := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	r.SetColorProfile(profile)
	red := r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	yellow := r.NewStyle().Foreground(lipgloss.Color("11"))

	_, _ = fmt.Fprintf(w, "%s%s\n", red.Render("Error: "), err.Error())

	var ce *cliError
	if stderrors.As(err, &ce) && ce.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", yellow.Render("Hint: "), ce.Hint)
	}
}

// useColor respects --no-color, NO_COLOR and whether w is a terminal
func (a *app) useColor(w io.Writer) bool {
	if a.noColor {
		return false
	}
	return termenv.NewOutput(w).EnvColorProfile() != termenv.Ascii
}
