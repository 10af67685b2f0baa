package parser

import (
	"fmt"
	"strings"

	"github.com/dgenies/batchdsl/pkgs/lexer"
)

// ParseError represents a parse error with context for user-friendly messages
type ParseError struct {
	Span lexer.SourceSpan

	Message string // "missing '=' after key 'tool'"
	Context string // What we were parsing: "parameter"

	Expected []lexer.TokenType // What tokens would be valid
	Got      lexer.TokenType   // What we found instead

	Suggestion string // Actionable fix
	Example    string // Valid syntax
}

func (e ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Span.Start, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " in %s", e.Context)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (%s)", e.Suggestion)
	}
	return b.String()
}

// describeExpected joins expected token descriptions: "key or newline"
func describeExpected(types []lexer.TokenType) string {
	seen := make(map[string]bool, len(types))
	var names []string
	for _, t := range types {
		d := t.Describe()
		if !seen[d] {
			seen[d] = true
			names = append(names, d)
		}
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
	}
}
