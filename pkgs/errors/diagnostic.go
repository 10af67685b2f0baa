package errors

import (
	"fmt"
	"sort"

	"github.com/dgenies/batchdsl/pkgs/lexer"
)

// Severity of a diagnostic. Only errors block submission.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Code identifies the kind of problem a diagnostic reports
type Code string

const (
	// Syntax
	CodeLexError   Code = "LexError"
	CodeParseError Code = "ParseError"

	// Semantic errors
	CodeDuplicateKey        Code = "DuplicateKey"
	CodeMissingKey          Code = "MissingKey"
	CodeUnknownKey          Code = "UnknownKey"
	CodeUnknownType         Code = "UnknownType"
	CodeUnknownTool         Code = "UnknownTool"
	CodeUnknownOption       Code = "UnknownOption"
	CodeIncompatibleOptions Code = "IncompatibleOptions"
	CodeExclusiveKeys       Code = "ExclusiveKeys"
	CodeBadFileReference    Code = "BadFileReference"

	// Semantic warnings
	CodeDefaultOptions Code = "DefaultOptions"
	CodeMissingFile    Code = "MissingFile"
	CodeJobIgnored     Code = "JobIgnored"
)

// Range is a source range: 1-based lines and columns, exclusive end column
type Range = lexer.SourceSpan

// Diagnostic is a positioned message about the batch file. It is plain
// data: diagnostics are collected, never returned as errors.
type Diagnostic struct {
	Code       Code     `json:"code" cbor:"code"`
	Severity   Severity `json:"severity" cbor:"severity"`
	Message    string   `json:"message" cbor:"message"`
	Range      Range    `json:"range" cbor:"range"`
	Suggestion string   `json:"suggestion,omitempty" cbor:"suggestion,omitempty"`
}

// NewError creates an error-severity diagnostic
func NewError(code Code, rng Range, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityError, Message: fmt.Sprintf(format, args...), Range: rng}
}

// NewWarning creates a warning-severity diagnostic
func NewWarning(code Code, rng Range, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...), Range: rng}
}

// WithSuggestion returns a copy carrying a "did you mean" hint
func (d Diagnostic) WithSuggestion(suggestion string) Diagnostic {
	d.Suggestion = suggestion
	return d
}

// IsError reports whether the diagnostic blocks submission
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s: %s [%s]", d.Range, d.Severity, d.Message, d.Code)
	if d.Suggestion != "" {
		s += " (" + d.Suggestion + ")"
	}
	return s
}

// Sort orders diagnostics by start position. The sort is stable so
// diagnostics at the same position keep the order they were produced in.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		return diags[i].Range.Start.Before(diags[j].Range.Start)
	})
}

// HasErrors reports whether any diagnostic has error severity
func HasErrors(diags []Diagnostic) bool {
	return Count(diags, SeverityError) > 0
}

// Count returns the number of diagnostics with the given severity
func Count(diags []Diagnostic, severity Severity) int {
	n := 0
	for _, d := range diags {
		if d.Severity == severity {
			n++
		}
	}
	return n
}

// Filter returns the diagnostics with the given code
func Filter(diags []Diagnostic, code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}
