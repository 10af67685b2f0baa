package parser

import (
	"fmt"
	"time"

	"github.com/dgenies/batchdsl/pkgs/invariant"
	"github.com/dgenies/batchdsl/pkgs/lexer"
)

// Parse lexes and parses a batch file and returns its parse tree.
// It never fails: problems are collected in tree.Errors and tree.LexErrors.
func Parse(source string, opts ...ParserOpt) *ParseTree {
	config := newConfig(opts)

	var startTotal, startLex time.Time
	if config.telemetry >= TelemetryTiming {
		startTotal = time.Now()
		startLex = startTotal
	}

	var lexOpts []lexer.LexerOpt
	if config.logger != nil {
		lexOpts = append(lexOpts, lexer.WithLogger(config.logger))
	}
	tokens, lexErrors := lexer.Tokenize(source, lexOpts...)

	var lexTime time.Duration
	if config.telemetry >= TelemetryTiming {
		lexTime = time.Since(startLex)
	}

	tree := parseTokens(source, tokens, config)
	tree.LexErrors = lexErrors

	if tree.Telemetry != nil {
		tree.Telemetry.ErrorCount += len(lexErrors)
		if config.telemetry >= TelemetryTiming {
			tree.Telemetry.LexTime = lexTime
			tree.Telemetry.TotalTime = time.Since(startTotal)
		}
	}
	return tree
}

// ParseTokens parses pre-lexed tokens. The slice must end with EOF and
// must not contain comments.
func ParseTokens(source string, tokens []lexer.Token, opts ...ParserOpt) *ParseTree {
	return parseTokens(source, tokens, newConfig(opts))
}

func newConfig(opts []ParserOpt) *ParserConfig {
	config := &ParserConfig{}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

func parseTokens(source string, tokens []lexer.Token, config *ParserConfig) *ParseTree {
	invariant.Precondition(len(tokens) > 0 && tokens[len(tokens)-1].Type == lexer.EOF,
		"token stream must end with EOF")

	// Heuristic: ~2 events per token (params open/close around 3 tokens)
	eventCap := len(tokens) * 2
	if eventCap < 16 {
		eventCap = 16
	}

	p := &parser{
		tokens: tokens,
		events: make([]Event, 0, eventCap),
		errors: make([]ParseError, 0, 4),
		config: config,
	}
	if config.debug > DebugOff {
		p.debugEvents = make([]DebugEvent, 0, 64)
	}

	var startParse time.Time
	if config.telemetry >= TelemetryTiming {
		startParse = time.Now()
	}

	p.jobs()

	var telemetry *ParseTelemetry
	if config.telemetry >= TelemetryBasic {
		telemetry = &ParseTelemetry{
			TokenCount: len(tokens),
			EventCount: len(p.events),
			ErrorCount: len(p.errors),
		}
		if config.telemetry >= TelemetryTiming {
			telemetry.ParseTime = time.Since(startParse)
			telemetry.TotalTime = telemetry.ParseTime
		}
	}

	return &ParseTree{
		Source:      source,
		Tokens:      tokens,
		Events:      p.events,
		Errors:      p.errors,
		Telemetry:   telemetry,
		DebugEvents: p.debugEvents,
	}
}

// parser is the internal parser state
type parser struct {
	tokens      []lexer.Token
	pos         int
	events      []Event
	errors      []ParseError
	config      *ParserConfig
	debugEvents []DebugEvent
}

func (p *parser) recordDebugEvent(event, context string) {
	if p.config.debug == DebugOff {
		return
	}
	p.debugEvents = append(p.debugEvents, DebugEvent{
		Timestamp: time.Now(),
		Event:     event,
		TokenPos:  p.pos,
		Context:   context,
	})
}

// jobs parses: whiteSpace job ( sep job )* whiteSpace
//
// A separator is any layout run containing at least one newline, so blank
// lines and indentation between jobs are accepted.
func (p *parser) jobs() {
	p.recordDebugEvent("enter_jobs", "parsing batch file")
	kind := p.start(NodeJobs)

	p.layout()
	if p.at(lexer.EOF) {
		p.errors = append(p.errors, ParseError{
			Span:       p.current().Span,
			Message:    "expected at least one job",
			Context:    "batch file",
			Expected:   []lexer.TokenType{lexer.KEY},
			Got:        lexer.EOF,
			Suggestion: "describe one job per line",
			Example:    "type=align tool=minimap2 target=target.fa query=query.fa",
		})
	}

	for !p.at(lexer.EOF) {
		prevPos := p.pos

		p.job()

		switch {
		case p.at(lexer.NEWLINES):
			p.layout()
		case p.at(lexer.EOF):
		default:
			p.errorUnexpected("job", lexer.SPACES, lexer.NEWLINES)
			p.recover()
			p.layout()
		}

		invariant.Invariant(p.pos > prevPos || p.at(lexer.EOF),
			"parser stuck in jobs() at pos %d - no progress made", p.pos)
	}

	p.finish(kind)
	p.recordDebugEvent("exit_jobs", fmt.Sprintf("%d errors", len(p.errors)))
}

// job parses: param ( Spaces param )* Spaces?
func (p *parser) job() {
	p.recordDebugEvent("enter_job", "parsing job")
	kind := p.start(NodeJob)

	p.param()
	for {
		prevPos := p.pos
		if p.at(lexer.SPACES) {
			p.token()
		} else if !p.at(lexer.ILLEGAL) {
			// Text glued to the previous value is ILLEGAL and was already
			// reported by the lexer; anything else ends the job.
			break
		}
		if !p.atParamStart() {
			break
		}
		p.param()

		invariant.Invariant(p.pos > prevPos, "parser stuck in job() at pos %d - no progress made", p.pos)
	}

	p.finish(kind)
	p.recordDebugEvent("exit_job", "")
}

// param parses: Key Affectation value
func (p *parser) param() {
	switch {
	case p.at(lexer.ILLEGAL):
		// Unknown key: the lexer already reported it. Swallow its "=value"
		// so it does not cascade into more errors.
		p.skipInvalidParam()
		return
	case p.at(lexer.AFFECTATION):
		p.errors = append(p.errors, ParseError{
			Span:       p.current().Span,
			Message:    "missing key before '='",
			Context:    "parameter",
			Expected:   []lexer.TokenType{lexer.KEY},
			Got:        lexer.AFFECTATION,
			Suggestion: "add a key such as 'type' before '='",
			Example:    "type=plot",
		})
		p.skipInvalidParam()
		return
	case !p.at(lexer.KEY):
		p.errorUnexpected("job", lexer.KEY)
		p.recover()
		return
	}

	kind := p.start(NodeParam)
	key := p.current()
	p.token()

	if !p.at(lexer.AFFECTATION) {
		got := p.current()
		p.errors = append(p.errors, ParseError{
			Span:       got.Span,
			Message:    fmt.Sprintf("missing '=' after key '%s'", key.Value),
			Context:    "parameter",
			Expected:   []lexer.TokenType{lexer.AFFECTATION},
			Got:        got.Type,
			Suggestion: fmt.Sprintf("write %s=<value>", key.Value),
		})
		p.finish(kind)
		p.recover()
		return
	}
	p.token()
	p.value(key)

	p.finish(kind)
}

// value parses: DoubleQuotedValue | SingleQuotedValue | Value
func (p *parser) value(key lexer.Token) {
	if p.at(lexer.SPACES) {
		spaces := p.current()
		p.token()
		if p.current().IsValue() {
			p.errors = append(p.errors, ParseError{
				Span:       spaces.Span,
				Message:    "spaces are not allowed between '=' and the value",
				Context:    "parameter",
				Expected:   []lexer.TokenType{lexer.VALUE},
				Got:        lexer.SPACES,
				Suggestion: fmt.Sprintf("write %s=%s", key.Value, p.current().Raw),
			})
		}
	}

	switch {
	case p.current().IsValue():
		kind := p.start(NodeValue)
		p.token()
		p.finish(kind)
	case p.at(lexer.ILLEGAL):
		// Missing or malformed value, reported by the lexer
		p.token()
	default:
		p.errorExpected(lexer.VALUE, "parameter")
	}
}

// skipInvalidParam consumes an invalid key (or a bare '=') together with
// the '=value' that follows it.
func (p *parser) skipInvalidParam() {
	kind := p.start(NodeError)
	if !p.at(lexer.AFFECTATION) {
		p.token()
	}
	if p.at(lexer.AFFECTATION) {
		p.token()
		if p.at(lexer.SPACES) {
			p.token()
		}
		if p.current().IsValue() || p.at(lexer.ILLEGAL) {
			p.token()
		}
	}
	p.finish(kind)
}

// layout consumes spaces and newlines
func (p *parser) layout() {
	for lexer.IsLayoutToken(p.current().Type) {
		p.token()
	}
}

func (p *parser) atParamStart() bool {
	switch p.current().Type {
	case lexer.KEY, lexer.ILLEGAL, lexer.AFFECTATION:
		return true
	}
	return false
}

// at checks if current token is of given type
func (p *parser) at(typ lexer.TokenType) bool {
	return p.current().Type == typ
}

// current returns the current token
func (p *parser) current() lexer.Token {
	return p.peek(0)
}

func (p *parser) peek(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

// advance moves to the next token
func (p *parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

// start emits an Open event with the given node kind and returns it for matching close
func (p *parser) start(kind NodeKind) NodeKind {
	p.events = append(p.events, Event{Kind: EventOpen, Data: uint32(kind)})
	return kind
}

// finish emits a Close event with the given node kind
func (p *parser) finish(kind NodeKind) {
	p.events = append(p.events, Event{Kind: EventClose, Data: uint32(kind)})
}

// token emits a Token event and advances
func (p *parser) token() {
	if p.config.debug >= DebugDetailed {
		p.recordDebugEvent("token", p.current().String())
	}
	p.events = append(p.events, Event{Kind: EventToken, Data: uint32(p.pos)})
	p.advance()
}

// errorExpected reports an error for a missing expected token
func (p *parser) errorExpected(expected lexer.TokenType, context string) {
	current := p.current()
	p.errors = append(p.errors, ParseError{
		Span:     current.Span,
		Message:  fmt.Sprintf("missing %s, got %s", expected.Describe(), current.Type.Describe()),
		Context:  context,
		Expected: []lexer.TokenType{expected},
		Got:      current.Type,
	})
}

// errorUnexpected reports an error for an unexpected token
func (p *parser) errorUnexpected(context string, expected ...lexer.TokenType) {
	current := p.current()
	err := ParseError{
		Span:     current.Span,
		Message:  "unexpected " + current.Type.Describe(),
		Context:  context,
		Expected: expected,
		Got:      current.Type,
	}
	if len(expected) > 0 {
		err.Message += ", expected " + describeExpected(expected)
	}
	p.errors = append(p.errors, err)
}

// isSyncToken checks if current token is a job boundary
func (p *parser) isSyncToken() bool {
	switch p.current().Type {
	case lexer.NEWLINES, lexer.EOF:
		return true
	}
	return false
}

// recover skips tokens until the next job boundary so one malformed job
// does not hide errors in the following ones
func (p *parser) recover() {
	if p.isSyncToken() {
		return
	}
	kind := p.start(NodeError)
	for !p.isSyncToken() {
		p.token()
	}
	p.finish(kind)
}
