package parser

import (
	"github.com/dgenies/batchdsl/pkgs/lexer"
)

// ParseTree represents the result of parsing
type ParseTree struct {
	Source      string           // Original source (for snippets)
	Tokens      []lexer.Token    // Tokens from lexer (comments removed)
	Events      []Event          // Parse events
	Errors      []ParseError     // Parse errors
	LexErrors   []lexer.LexError // Lexical errors, reported by the lexer
	Telemetry   *ParseTelemetry  // Performance metrics (nil if disabled)
	DebugEvents []DebugEvent     // Debug events (nil if disabled)
}

// Event represents a parse tree construction event
type Event struct {
	Kind EventKind
	Data uint32
}

// EventKind represents the type of parse event
type EventKind uint8

const (
	EventOpen  EventKind = iota // Open syntax node (Data = NodeKind)
	EventClose                  // Close syntax node (Data = NodeKind)
	EventToken                  // Consume token (Data = token index)
)

// NodeKind represents syntax node types
type NodeKind uint32

const (
	NodeJobs  NodeKind = iota // Whole batch file
	NodeJob                   // One line of params
	NodeParam                 // key=value
	NodeValue                 // One of the three value alternatives
	NodeError                 // Tokens skipped during recovery
)

var nodeNames = [...]string{
	NodeJobs:  "Jobs",
	NodeJob:   "Job",
	NodeParam: "Param",
	NodeValue: "Value",
	NodeError: "Error",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeNames) {
		return nodeNames[k]
	}
	return "Unknown"
}

// HasErrors reports whether lexing or parsing produced any error
func (tree *ParseTree) HasErrors() bool {
	return len(tree.Errors) > 0 || len(tree.LexErrors) > 0
}

// CountNodes returns how many nodes of the given kind were opened
func (tree *ParseTree) CountNodes(kind NodeKind) int {
	n := 0
	for _, ev := range tree.Events {
		if ev.Kind == EventOpen && NodeKind(ev.Data) == kind {
			n++
		}
	}
	return n
}

// Token returns the token referenced by a token event
func (tree *ParseTree) Token(ev Event) lexer.Token {
	return tree.Tokens[ev.Data]
}
