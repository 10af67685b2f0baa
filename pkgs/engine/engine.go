// Package engine runs the whole batch pipeline: lexing, parsing, projection
// and validation. It is pure: the same text, environment and uploaded files
// always give the same Result.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/dgenies/batchdsl/pkgs/ast"
	"github.com/dgenies/batchdsl/pkgs/config"
	"github.com/dgenies/batchdsl/pkgs/errors"
	"github.com/dgenies/batchdsl/pkgs/invariant"
	"github.com/dgenies/batchdsl/pkgs/parser"
	"github.com/dgenies/batchdsl/pkgs/validator"
)

// Result is everything a pass produces for one batch text
type Result struct {
	Source      string                    `json:"-" cbor:"-"`
	Diagnostics []errors.Diagnostic       `json:"diagnostics" cbor:"diagnostics"`
	Jobs        []validator.NormalizedJob `json:"jobs" cbor:"jobs"`
	Digest      string                    `json:"digest" cbor:"digest"`
}

// HasErrors reports whether any diagnostic has error severity
func (r Result) HasErrors() bool {
	return errors.HasErrors(r.Diagnostics)
}

// Errors counts error diagnostics
func (r Result) Errors() int {
	return errors.Count(r.Diagnostics, errors.SeverityError)
}

// Warnings counts warning diagnostics
func (r Result) Warnings() int {
	return errors.Count(r.Diagnostics, errors.SeverityWarning)
}

// Option configures a pipeline pass
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger receiving one debug record per pass
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate runs the full pipeline over text. Syntax problems become
// diagnostics alongside the semantic ones; jobs broken by a syntax error
// still get validated with whatever parameters survived.
func Validate(text string, env *config.Environment, uploaded []string, opts ...Option) Result {
	invariant.NotNil(env, "env")
	o := newOptions(opts)
	started := time.Now()

	tree := parser.Parse(text, parser.WithLogger(o.logger))
	jobs := ast.Project(tree)
	checked := validator.New(env, uploaded).Validate(jobs)

	diags := syntaxDiagnostics(tree)
	diags = append(diags, checked.Diagnostics...)
	errors.Sort(diags)

	res := Result{
		Source:      text,
		Diagnostics: diags,
		Jobs:        checked.Jobs,
	}
	res.Digest = digest(res)

	o.logger.Debug("batch validated",
		"source", env.Source,
		"jobs", len(res.Jobs),
		"errors", res.Errors(),
		"warnings", res.Warnings(),
		"digest", res.Digest,
		"duration", time.Since(started))
	return res
}

// syntaxDiagnostics converts lexer and parser errors to diagnostics
func syntaxDiagnostics(tree *parser.ParseTree) []errors.Diagnostic {
	diags := make([]errors.Diagnostic, 0, len(tree.LexErrors)+len(tree.Errors))
	for _, e := range tree.LexErrors {
		diags = append(diags, errors.NewError(errors.CodeLexError, e.Span, "%s", e.Message).
			WithSuggestion(e.Suggestion))
	}
	for _, e := range tree.Errors {
		msg := e.Message
		if e.Context != "" {
			msg = fmt.Sprintf("%s in %s", msg, e.Context)
		}
		diags = append(diags, errors.NewError(errors.CodeParseError, e.Span, "%s", msg).
			WithSuggestion(e.Suggestion))
	}
	return diags
}

var canonical = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	invariant.Invariant(err == nil, "canonical cbor options rejected: %v", err)
	return mode
}()

// digest hashes the canonical CBOR encoding of the diagnostics and jobs
func digest(res Result) string {
	data, err := canonical.Marshal(struct {
		Diagnostics []errors.Diagnostic       `cbor:"diagnostics"`
		Jobs        []validator.NormalizedJob `cbor:"jobs"`
	}{res.Diagnostics, res.Jobs})
	invariant.Invariant(err == nil, "result is not encodable: %v", err)
	sum := blake2b.Sum256(data)
	return fmt.Sprintf("blake2b:%x", sum)
}
