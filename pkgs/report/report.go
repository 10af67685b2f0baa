// Package report writes validation results for people (annotated source
// snippets) and for programs (JSON or CBOR).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/fxamacker/cbor/v2"
	"github.com/muesli/termenv"

	"github.com/dgenies/batchdsl/pkgs/engine"
	"github.com/dgenies/batchdsl/pkgs/errors"
)

// Options controls the text renderer
type Options struct {
	Filename string // shown in locations, "<stdin>" when empty
	Color    bool
}

// Write renders res to w in the given format
func Write(w io.Writer, res engine.Result, format Format, opts Options) error {
	var err error
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(res)
	case FormatCBOR:
		// Canonical mode sorts map keys so equal results encode to equal bytes
		var mode cbor.EncMode
		if mode, err = cbor.CanonicalEncOptions().EncMode(); err == nil {
			err = mode.NewEncoder(w).Encode(res)
		}
	case FormatText, "":
		err = NewRenderer(w, opts).Render(res)
	default:
		return errors.New(errors.ErrEncode, fmt.Sprintf("unknown output format %q", format))
	}
	if err != nil {
		return errors.Wrap(errors.ErrEncode, fmt.Sprintf("failed to write %s report", format), err)
	}
	return nil
}

type styles struct {
	error    lipgloss.Style
	warning  lipgloss.Style
	gutter   lipgloss.Style
	location lipgloss.Style
	help     lipgloss.Style
	bold     lipgloss.Style
}

// Renderer writes diagnostics as annotated source snippets
type Renderer struct {
	w        io.Writer
	filename string
	styles   styles
}

// NewRenderer creates a text renderer. Without Color the output carries no
// escape sequences.
func NewRenderer(w io.Writer, opts Options) *Renderer {
	profile := termenv.Ascii
	if opts.Color {
		profile = termenv.ANSI256
	}
	lr := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	lr.SetColorProfile(profile)

	filename := opts.Filename
	if filename == "" {
		filename = "<stdin>"
	}
	return &Renderer{
		w:        w,
		filename: filename,
		styles: styles{
			error:    lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			warning:  lr.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
			gutter:   lr.NewStyle().Foreground(lipgloss.Color("12")),
			location: lr.NewStyle().Foreground(lipgloss.Color("12")),
			help:     lr.NewStyle().Foreground(lipgloss.Color("10")),
			bold:     lr.NewStyle().Bold(true),
		},
	}
}

// Render writes every diagnostic followed by a one-line summary
func (r *Renderer) Render(res engine.Result) error {
	var b strings.Builder
	lines := splitLines(res.Source)
	for _, d := range res.Diagnostics {
		r.diagnostic(&b, d, lines)
		b.WriteString("\n")
	}
	r.summary(&b, res)
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *Renderer) diagnostic(b *strings.Builder, d errors.Diagnostic, lines []string) {
	severity := r.styles.error
	if d.Severity == errors.SeverityWarning {
		severity = r.styles.warning
	}
	start := d.Range.Start

	fmt.Fprintf(b, "%s%s\n",
		severity.Render(fmt.Sprintf("%s[%s]", d.Severity, d.Code)),
		r.styles.bold.Render(": "+d.Message))

	width := len(strconv.Itoa(start.Line))
	pad := strings.Repeat(" ", width)
	fmt.Fprintf(b, "%s%s %s:%d:%d\n", pad, r.styles.gutter.Render("-->"), r.filename, start.Line, start.Column)
	fmt.Fprintf(b, "%s %s\n", pad, r.styles.gutter.Render("|"))

	line := ""
	if start.Line >= 1 && start.Line <= len(lines) {
		line = lines[start.Line-1]
	}
	fmt.Fprintf(b, "%s %s %s\n", r.styles.gutter.Render(fmt.Sprintf("%*d", width, start.Line)), r.styles.gutter.Render("|"), line)

	indent, carets := underline(line, d)
	fmt.Fprintf(b, "%s %s %s%s\n", pad, r.styles.gutter.Render("|"), indent, severity.Render(carets))

	if d.Suggestion != "" {
		fmt.Fprintf(b, "%s %s %s\n", pad, r.styles.gutter.Render("="), r.styles.help.Render("help: "+d.Suggestion))
	}
}

// underline returns the text before the range, with tabs kept so the carets
// line up, and one caret per rune of the range on its first line
func underline(line string, d errors.Diagnostic) (string, string) {
	start, end := d.Range.Start, d.Range.End
	runes := []rune(line)

	var indent strings.Builder
	for i := 0; i < start.Column-1 && i < len(runes); i++ {
		if runes[i] == '\t' {
			indent.WriteRune('\t')
		} else {
			indent.WriteRune(' ')
		}
	}

	n := end.Column - start.Column
	if end.Line > start.Line {
		n = utf8.RuneCountInString(line) - start.Column + 1
	}
	if n < 1 {
		n = 1
	}
	return indent.String(), strings.Repeat("^", n)
}

func (r *Renderer) summary(b *strings.Builder, res engine.Result) {
	errs, warns := res.Errors(), res.Warnings()
	text := fmt.Sprintf("%s: %d job(s), %d error(s), %d warning(s)", r.filename, len(res.Jobs), errs, warns)
	switch {
	case errs > 0:
		text = r.styles.error.Render(text)
	case warns > 0:
		text = r.styles.warning.Render(text)
	default:
		text = r.styles.help.Render(text)
	}
	b.WriteString(text)
	b.WriteString("\n")
}

func splitLines(source string) []string {
	lines := strings.Split(source, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
