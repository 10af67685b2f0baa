package parser

import (
	"log/slog"
	"time"
)

// ParserOpt represents a parser configuration option
type ParserOpt func(*ParserConfig)

// TelemetryMode controls telemetry collection
type TelemetryMode int

const (
	TelemetryOff    TelemetryMode = iota // Zero overhead (default)
	TelemetryBasic                       // Parse counts only
	TelemetryTiming                      // Parse counts + timing per phase
)

// DebugLevel controls debug tracing (development only)
type DebugLevel int

const (
	DebugOff      DebugLevel = iota // No debug info (default)
	DebugPaths                      // Rule enter/exit tracing
	DebugDetailed                   // Token-level tracing
)

// ParserConfig holds parser configuration
type ParserConfig struct {
	telemetry TelemetryMode
	debug     DebugLevel
	logger    *slog.Logger
}

// WithTelemetryBasic enables basic telemetry (parse counts only)
func WithTelemetryBasic() ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = TelemetryBasic
	}
}

// WithTelemetryTiming enables timing telemetry (counts + timing per phase)
func WithTelemetryTiming() ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = TelemetryTiming
	}
}

// WithDebugPaths enables rule tracing
func WithDebugPaths() ParserOpt {
	return func(c *ParserConfig) {
		c.debug = DebugPaths
	}
}

// WithDebugDetailed enables token-level tracing
func WithDebugDetailed() ParserOpt {
	return func(c *ParserConfig) {
		c.debug = DebugDetailed
	}
}

// WithLogger passes a logger down to the lexer
func WithLogger(logger *slog.Logger) ParserOpt {
	return func(c *ParserConfig) {
		c.logger = logger
	}
}

// ParseTelemetry holds parser performance metrics
type ParseTelemetry struct {
	LexTime    time.Duration
	ParseTime  time.Duration
	TotalTime  time.Duration
	TokenCount int
	EventCount int
	ErrorCount int // lexical + syntax errors
}

// DebugEvent holds debug tracing information
type DebugEvent struct {
	Timestamp time.Time
	Event     string // "enter_job", "exit_job", ...
	TokenPos  int
	Context   string
}
