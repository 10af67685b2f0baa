package lexer

import (
	"fmt"
	"strings"
)

// TokenType represents the type of token in a batch file
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Skipped unless the lexer is asked to keep them
	COMMENT // # to end of line

	// Key position
	KEY         // type, align, query, target, backup, tool, options, id_job
	AFFECTATION // = (pushes value mode)

	// Value position (each pops back to key mode)
	VALUE         // bare value: no whitespace, quotes or '#'
	SQUOTED_VALUE // 'quoted value'
	DQUOTED_VALUE // "quoted value"

	// Layout
	SPACES   // run of spaces and tabs
	NEWLINES // run of \n and \r
)

// Pre-computed token name lookup for fast debugging
var tokenNames = [...]string{
	EOF:           "EOF",
	ILLEGAL:       "ILLEGAL",
	COMMENT:       "COMMENT",
	KEY:           "KEY",
	AFFECTATION:   "AFFECTATION",
	VALUE:         "VALUE",
	SQUOTED_VALUE: "SQUOTED_VALUE",
	DQUOTED_VALUE: "DQUOTED_VALUE",
	SPACES:        "SPACES",
	NEWLINES:      "NEWLINES",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) && int(t) >= 0 {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Describe returns a user-facing description used in parse error messages
func (t TokenType) Describe() string {
	switch t {
	case EOF:
		return "end of file"
	case ILLEGAL:
		return "invalid text"
	case COMMENT:
		return "comment"
	case KEY:
		return "key"
	case AFFECTATION:
		return "'='"
	case VALUE, SQUOTED_VALUE, DQUOTED_VALUE:
		return "value"
	case SPACES:
		return "spaces"
	case NEWLINES:
		return "newline"
	default:
		return t.String()
	}
}

// Keys is the closed vocabulary of recognized keys, in documentation order
var Keys = []string{"type", "align", "query", "target", "backup", "tool", "options", "id_job"}

var keySet = func() map[string]bool {
	m := make(map[string]bool, len(Keys))
	for _, k := range Keys {
		m[k] = true
	}
	return m
}()

// IsKey reports whether word belongs to the key vocabulary
func IsKey(word string) bool {
	return keySet[word]
}

// SourcePosition represents a position in source code
type SourcePosition struct {
	Line   int `json:"line" cbor:"line"`     // 1-based
	Column int `json:"column" cbor:"column"` // 1-based, counted in runes
	Offset int `json:"offset" cbor:"offset"` // 0-based byte offset
}

// Before reports whether p sorts strictly before o
func (p SourcePosition) Before(o SourcePosition) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

func (p SourcePosition) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// SourceSpan represents a precise location in source code.
// End is exclusive: a one-character token at column 3 ends at column 4.
type SourceSpan struct {
	Start SourcePosition `json:"start" cbor:"start"`
	End   SourcePosition `json:"end" cbor:"end"`
}

// Cover returns the smallest span containing both s and o
func (s SourceSpan) Cover(o SourceSpan) SourceSpan {
	out := s
	if o.Start.Before(out.Start) {
		out.Start = o.Start
	}
	if out.End.Before(o.End) {
		out.End = o.End
	}
	return out
}

func (s SourceSpan) String() string {
	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("%d:%d-%d", s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("%d:%d-%d:%d", s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// Token represents a single token with source position information.
//
// Value holds the semantic text: quoted values have their delimiters
// stripped. Raw holds the lexeme exactly as written, and Span covers Raw.
type Token struct {
	Type  TokenType
	Value string
	Raw   string
	Span  SourceSpan
}

// Position returns a formatted position string for error reporting
func (t Token) Position() string {
	return t.Span.String()
}

// IsValue reports whether the token is one of the three value alternatives
func (t Token) IsValue() bool {
	return IsValueToken(t.Type)
}

func (t Token) String() string {
	if t.Raw == "" {
		return fmt.Sprintf("%s@%s", t.Type, t.Span.Start)
	}
	return fmt.Sprintf("%s(%q)@%s", t.Type, t.Raw, t.Span.Start)
}

// IsValueToken reports whether the type is a value alternative
func IsValueToken(tokenType TokenType) bool {
	switch tokenType {
	case VALUE, SQUOTED_VALUE, DQUOTED_VALUE:
		return true
	}
	return false
}

// IsLayoutToken reports whether the type only carries whitespace
func IsLayoutToken(tokenType TokenType) bool {
	return tokenType == SPACES || tokenType == NEWLINES
}

// LexError is an unrecognized character sequence in the active mode
type LexError struct {
	Span       SourceSpan
	Message    string
	Suggestion string // optional "did you mean" hint
}

func (e LexError) Error() string {
	var b strings.Builder
	b.WriteString(e.Span.Start.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Suggestion != "" {
		b.WriteString(" (")
		b.WriteString(e.Suggestion)
		b.WriteString(")")
	}
	return b.String()
}
