package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgenies/batchdsl/pkgs/lexer"
)

func opened(kind NodeKind) Event { return Event{Kind: EventOpen, Data: uint32(kind)} }
func closed(kind NodeKind) Event { return Event{Kind: EventClose, Data: uint32(kind)} }
func consumed(index uint32) Event { return Event{Kind: EventToken, Data: index} }

func TestSingleParamEvents(t *testing.T) {
	tree := Parse("type=plot")

	want := []Event{
		opened(NodeJobs),
		opened(NodeJob),
		opened(NodeParam),
		consumed(0), // type
		consumed(1), // =
		opened(NodeValue),
		consumed(2), // plot
		closed(NodeValue),
		closed(NodeParam),
		closed(NodeJob),
		closed(NodeJobs),
	}
	if diff := cmp.Diff(want, tree.Events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, tree.HasErrors())
}

func TestTwoJobsEvents(t *testing.T) {
	tree := Parse("type=plot\nbackup=b.tar")

	want := []Event{
		opened(NodeJobs),
		opened(NodeJob),
		opened(NodeParam), consumed(0), consumed(1), opened(NodeValue), consumed(2), closed(NodeValue), closed(NodeParam),
		closed(NodeJob),
		consumed(3), // newline
		opened(NodeJob),
		opened(NodeParam), consumed(4), consumed(5), opened(NodeValue), consumed(6), closed(NodeValue), closed(NodeParam),
		closed(NodeJob),
		closed(NodeJobs),
	}
	if diff := cmp.Diff(want, tree.Events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestJobCounts(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		jobs     int
		params   int
		hasError bool
	}{
		{"one job", "type=align tool=minimap2 target=t.fa query=q.fa", 1, 4, false},
		{"trailing spaces", "type=plot backup=b.tar   ", 1, 2, false},
		{"blank lines between jobs", "type=plot backup=a.tar\n\n\ntype=plot backup=b.tar\n", 2, 4, false},
		{"leading layout and comments", "# jobs\n\n  \ntype=plot backup=a.tar", 1, 2, false},
		{"indented job", "type=plot backup=a.tar\n   type=plot backup=b.tar", 2, 4, false},
		{"trailing spaces before newline", "type=plot  \ntype=plot", 2, 2, false},
		{"multiple spaces between params", "type=plot   backup=b.tar", 1, 2, false},
		{"crlf line endings", "type=plot\r\ntype=plot\r\n", 2, 2, false},
		{"empty input", "", 0, 0, true},
		{"only comments", "# nothing here\n# still nothing\n", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Parse(tt.input)
			assert.Equal(t, tt.jobs, tree.CountNodes(NodeJob), "jobs")
			assert.Equal(t, tt.params, tree.CountNodes(NodeParam), "params")
			assert.Equal(t, tt.hasError, tree.HasErrors(), "errors: %v %v", tree.Errors, tree.LexErrors)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		errContains string
		line        int
		column      int
	}{
		{
			name:        "empty input",
			input:       "",
			errContains: "expected at least one job",
			line:        1,
			column:      1,
		},
		{
			name:        "missing affectation",
			input:       "type align target=x",
			errContains: "missing '=' after key 'type'",
			line:        1,
			column:      5,
		},
		{
			name:        "spaces between affectation and value",
			input:       "type=plot backup= b.tar",
			errContains: "spaces are not allowed between '=' and the value",
			line:        1,
			column:      18,
		},
		{
			name:        "affectation without key",
			input:       "=plot",
			errContains: "missing key before '='",
			line:        1,
			column:      1,
		},
		{
			name:        "affectation without key mid-line",
			input:       "type=plot =x backup=b.tar",
			errContains: "missing key before '='",
			line:        1,
			column:      11,
		},
		{
			name:        "missing affectation at end of line",
			input:       "type=plot backup\n",
			errContains: "missing '=' after key 'backup'",
			line:        1,
			column:      17,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Parse(tt.input)
			require.Len(t, tree.Errors, 1, "errors: %v", tree.Errors)
			err := tree.Errors[0]
			assert.Contains(t, err.Message, tt.errContains)
			assert.Equal(t, tt.line, err.Span.Start.Line)
			assert.Equal(t, tt.column, err.Span.Start.Column)
		})
	}
}

func TestLexErrorsDoNotCascade(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown key", "qurey=q.fa type=plot"},
		{"missing value", "type= \ntype=plot"},
		{"missing value at end", "type=plot backup="},
		{"unterminated quote", "type=plot backup=\"b.tar"},
		{"glued quoted text", "type=plot\"x\" backup=b.tar"},
		{"unknown key with spaced value", "qurey= q.fa type=plot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Parse(tt.input)
			assert.NotEmpty(t, tree.LexErrors)
			assert.Empty(t, tree.Errors, "parse errors should not repeat lexical errors")
		})
	}
}

func TestRecoveryAtJobBoundary(t *testing.T) {
	input := strings.Join([]string{
		"type align",
		"type=plot backup=b.tar",
		"tool minimap2 type=align",
		"type=plot backup=c.tar",
	}, "\n")
	tree := Parse(input)

	require.Len(t, tree.Errors, 2)
	assert.Equal(t, 1, tree.Errors[0].Span.Start.Line)
	assert.Equal(t, 3, tree.Errors[1].Span.Start.Line)
	assert.Equal(t, 4, tree.CountNodes(NodeJob))
	// Only the two well-formed jobs contribute values
	assert.Equal(t, 4, tree.CountNodes(NodeValue))
}

func TestEveryTokenConsumed(t *testing.T) {
	inputs := []string{
		"type=plot",
		"type=align tool=minimap2 target=t.fa query=q.fa options=asm5\n\n",
		"type align target=x\ntype=plot",
		"qurey=q.fa =x tool= y\n  \n type=\"plot\"",
		"type=plot\"x\" backup='a#b'\n",
		"",
	}

	for _, input := range inputs {
		tree := Parse(input)
		seen := make(map[uint32]bool)
		depth := 0
		for _, ev := range tree.Events {
			switch ev.Kind {
			case EventOpen:
				depth++
			case EventClose:
				depth--
				assert.GreaterOrEqual(t, depth, 0, "unbalanced close in %q", input)
			case EventToken:
				assert.False(t, seen[ev.Data], "token %d consumed twice in %q", ev.Data, input)
				seen[ev.Data] = true
			}
		}
		assert.Equal(t, 0, depth, "unbalanced events in %q", input)
		// Every token except EOF is attached to the tree
		assert.Len(t, seen, len(tree.Tokens)-1, "consumed tokens in %q", input)
	}
}

func TestTelemetry(t *testing.T) {
	tree := Parse("type=plot backup=b.tar\nqurey=x", WithTelemetryTiming())
	require.NotNil(t, tree.Telemetry)
	assert.Equal(t, len(tree.Tokens), tree.Telemetry.TokenCount)
	assert.Equal(t, len(tree.Events), tree.Telemetry.EventCount)
	assert.Equal(t, 1, tree.Telemetry.ErrorCount)

	assert.Nil(t, Parse("type=plot").Telemetry)
}

func TestDebugEvents(t *testing.T) {
	tree := Parse("type=plot", WithDebugPaths())
	require.NotEmpty(t, tree.DebugEvents)
	assert.Equal(t, "enter_jobs", tree.DebugEvents[0].Event)
	assert.Equal(t, "exit_jobs", tree.DebugEvents[len(tree.DebugEvents)-1].Event)

	detailed := Parse("type=plot", WithDebugDetailed())
	var tokens int
	for _, ev := range detailed.DebugEvents {
		if ev.Event == "token" {
			tokens++
		}
	}
	assert.Equal(t, 3, tokens)
}

func TestParseTokensRequiresEOF(t *testing.T) {
	assert.Panics(t, func() {
		ParseTokens("type", []lexer.Token{{Type: lexer.KEY, Value: "type"}})
	})
}

func TestParseErrorString(t *testing.T) {
	tree := Parse("type align")
	require.Len(t, tree.Errors, 1)
	assert.Equal(t, "1:5: missing '=' after key 'type' in parameter (write type=<value>)", tree.Errors[0].Error())
}

func TestDescribeExpected(t *testing.T) {
	assert.Equal(t, "", describeExpected(nil))
	assert.Equal(t, "key", describeExpected([]lexer.TokenType{lexer.KEY}))
	assert.Equal(t, "spaces or newline", describeExpected([]lexer.TokenType{lexer.SPACES, lexer.NEWLINES}))
	assert.Equal(t, "value", describeExpected([]lexer.TokenType{lexer.VALUE, lexer.DQUOTED_VALUE}))
}
