package lexer

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgenies/batchdsl/pkgs/invariant"
	"github.com/dgenies/batchdsl/pkgs/suggest"
)

// LexerOpt represents a lexer configuration option
type LexerOpt func(*LexerConfig)

// LexerConfig holds lexer configuration
type LexerConfig struct {
	keepComments bool
	logger       *slog.Logger
}

// WithComments keeps COMMENT tokens in the stream (for highlighting)
func WithComments() LexerOpt {
	return func(c *LexerConfig) {
		c.keepComments = true
	}
}

// WithLogger traces mode transitions at debug level
func WithLogger(logger *slog.Logger) LexerOpt {
	return func(c *LexerConfig) {
		c.logger = logger
	}
}

// Lexer tokenizes batch files with a key mode and a value mode
type Lexer struct {
	input  string
	pos    int // byte offset of the next unread rune
	line   int
	column int

	modes  *ModeStack
	errors []LexError

	keepComments bool
	logger       *slog.Logger
}

// New creates a new Lexer over input
func New(input string, opts ...LexerOpt) *Lexer {
	config := &LexerConfig{}
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Lexer{
		input:        input,
		line:         1,
		column:       1,
		modes:        NewModeStack(),
		keepComments: config.keepComments,
		logger:       logger,
	}
}

// Tokenize lexes the whole input and returns the tokens (ending with EOF)
// together with the lexical errors found along the way.
func Tokenize(input string, opts ...LexerOpt) ([]Token, []LexError) {
	l := New(input, opts...)
	tokens := l.TokenizeToSlice()
	return tokens, l.Errors()
}

// TokenizeToSlice tokenizes the entire input and returns a slice of tokens
func (l *Lexer) TokenizeToSlice() []Token {
	var tokens []Token
	for {
		token := l.NextToken()
		tokens = append(tokens, token)
		if token.Type == EOF {
			break
		}
	}
	invariant.Postcondition(l.Mode() == ModeKey, "lexer ended in %s mode", l.Mode())
	return tokens
}

// Errors returns the lexical errors collected so far
func (l *Lexer) Errors() []LexError {
	return l.errors
}

// Mode returns the active lexer mode
func (l *Lexer) Mode() LexerMode {
	return l.modes.Current()
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	for {
		prevPos := l.pos
		var tok Token
		if l.modes.Current() == ModeValue {
			tok = l.lexValueMode()
		} else {
			tok = l.lexKeyMode()
		}

		invariant.Invariant(l.pos > prevPos || tok.Type == EOF || tok.Type == ILLEGAL,
			"lexer stuck at offset %d in %s mode", l.pos, l.modes.Current())

		if tok.Type == COMMENT && !l.keepComments {
			continue
		}
		return tok
	}
}

// lexKeyMode recognizes keys, '=', comments, spaces and newlines
func (l *Lexer) lexKeyMode() Token {
	start := l.position()
	if l.pos >= len(l.input) {
		return Token{Type: EOF, Span: SourceSpan{Start: start, End: start}}
	}

	switch ch := l.input[l.pos]; {
	case ch == '#':
		return l.lexComment(start)
	case ch == ' ' || ch == '\t':
		return l.lexSpaces(start)
	case ch == '\n' || ch == '\r':
		return l.lexNewlines(start)
	case ch == '=':
		l.advance()
		tok := l.makeToken(AFFECTATION, "=", start)
		l.transition(tok.Type)
		return tok
	}

	word := l.readWhile(func(r rune) bool {
		return r != ' ' && r != '\t' && r != '\n' && r != '\r' && r != '=' && r != '#'
	})
	tok := l.makeToken(KEY, word, start)
	if IsKey(word) {
		return tok
	}

	tok.Type = ILLEGAL
	if isIdentifier(word) {
		l.addError(tok.Span, fmt.Sprintf("unknown key '%s'", word), suggest.DidYouMean(word, Keys))
	} else {
		l.addError(tok.Span, fmt.Sprintf("unexpected '%s' where a key was expected", word), "")
	}
	return tok
}

// lexValueMode recognizes a single value; layout other than spaces ends
// the value position with an error.
func (l *Lexer) lexValueMode() Token {
	start := l.position()
	if l.pos >= len(l.input) {
		return l.missingValue(start)
	}

	switch ch := l.input[l.pos]; ch {
	case ' ', '\t':
		return l.lexSpaces(start)
	case '\n', '\r', '#':
		return l.missingValue(start)
	case '"':
		return l.lexQuoted(start, '"', DQUOTED_VALUE)
	case '\'':
		return l.lexQuoted(start, '\'', SQUOTED_VALUE)
	}

	value := l.readWhile(func(r rune) bool {
		return !unicode.IsSpace(r) && r != '\'' && r != '"' && r != '#'
	})
	if value == "" {
		// Unicode whitespace that is neither a space, a tab nor a newline
		r := l.advance()
		tok := l.makeToken(ILLEGAL, string(r), start)
		l.addError(tok.Span, fmt.Sprintf("unexpected character %q in value", r), "")
		l.popValueMode()
		return tok
	}

	tok := l.makeToken(VALUE, value, start)
	l.transition(tok.Type)
	return tok
}

// lexQuoted reads a quoted value. Quotes cannot span lines, contain '#'
// or be empty.
func (l *Lexer) lexQuoted(start SourcePosition, quote byte, tokenType TokenType) Token {
	l.advance() // opening quote
	body := l.readWhile(func(r rune) bool {
		return r != rune(quote) && r != '#' && r != '\n' && r != '\r'
	})

	if l.pos < len(l.input) && l.input[l.pos] == quote {
		l.advance() // closing quote
		if body == "" {
			tok := l.makeToken(ILLEGAL, l.input[start.Offset:l.pos], start)
			l.addError(tok.Span, "empty quoted value", "remove the quotes or put a value between them")
			l.popValueMode()
			return tok
		}
		tok := l.makeToken(tokenType, l.input[start.Offset:l.pos], start)
		tok.Value = body
		l.transition(tok.Type)
		return tok
	}

	tok := l.makeToken(ILLEGAL, l.input[start.Offset:l.pos], start)
	msg := fmt.Sprintf("unterminated quoted value, missing closing %c", quote)
	if l.pos < len(l.input) && l.input[l.pos] == '#' {
		msg = "quoted values cannot contain '#'"
	}
	l.addError(tok.Span, msg, "")
	l.popValueMode()
	return tok
}

// missingValue reports '=' not followed by a value. The offending
// character is left for key mode; a zero-width ILLEGAL token marks the gap.
func (l *Lexer) missingValue(start SourcePosition) Token {
	span := SourceSpan{Start: start, End: start}
	errSpan := span
	errSpan.End.Column++
	l.addError(errSpan, "missing value after '='", "")
	l.popValueMode()
	return Token{Type: ILLEGAL, Span: span}
}

func (l *Lexer) lexComment(start SourcePosition) Token {
	text := l.readWhile(func(r rune) bool { return r != '\n' && r != '\r' })
	return l.makeToken(COMMENT, text, start)
}

func (l *Lexer) lexSpaces(start SourcePosition) Token {
	text := l.readWhile(func(r rune) bool { return r == ' ' || r == '\t' })
	return l.makeToken(SPACES, text, start)
}

func (l *Lexer) lexNewlines(start SourcePosition) Token {
	text := l.readWhile(func(r rune) bool { return r == '\n' || r == '\r' })
	return l.makeToken(NEWLINES, text, start)
}

// transition applies the mode change attached to a token type
func (l *Lexer) transition(tokenType TokenType) {
	from := l.modes.Current()
	to, err := l.modes.HandleToken(tokenType)
	invariant.Invariant(err == nil, "mode transition on %s: %v", tokenType, err)
	if from != to {
		l.logger.Debug("lexer mode", "from", from.String(), "to", to.String(), "token", tokenType.String(), "line", l.line)
	}
}

// popValueMode leaves value mode after an error so the rest of the line is
// lexed in key position again.
func (l *Lexer) popValueMode() {
	_, err := l.modes.Pop()
	invariant.Invariant(err == nil, "value mode error recovery: %v", err)
}

func (l *Lexer) addError(span SourceSpan, message, suggestion string) {
	l.errors = append(l.errors, LexError{Span: span, Message: message, Suggestion: suggestion})
}

func (l *Lexer) makeToken(tokenType TokenType, raw string, start SourcePosition) Token {
	return Token{
		Type:  tokenType,
		Value: raw,
		Raw:   raw,
		Span:  SourceSpan{Start: start, End: l.position()},
	}
}

func (l *Lexer) position() SourcePosition {
	return SourcePosition{Line: l.line, Column: l.column, Offset: l.pos}
}

// readWhile consumes runes while keep returns true and returns them
func (l *Lexer) readWhile(keep func(rune) bool) string {
	start := l.pos
	for l.pos < len(l.input) {
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		if !keep(r) {
			break
		}
		l.advance()
	}
	return l.input[start:l.pos]
}

// advance consumes one rune and tracks line/column.
// "\r\n" counts as a single line break, as does a lone '\r'.
func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	switch {
	case r == '\n':
		l.line++
		l.column = 1
	case r == '\r' && !strings.HasPrefix(l.input[l.pos:], "\n"):
		l.line++
		l.column = 1
	default:
		l.column++
	}
	return r
}

func isIdentifier(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return false
		}
	}
	return word != ""
}
