package lexer

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// tokenExpectation represents an expected token for testing
type tokenExpectation struct {
	Type      TokenType
	Value     string
	Line      int
	Column    int
	EndColumn int
}

// assertTokens compares actual tokens with expected, providing clear error messages
func assertTokens(t *testing.T, name string, input string, expected []tokenExpectation, opts ...LexerOpt) []LexError {
	t.Helper()

	tokens, errs := Tokenize(input, opts...)
	var actual []tokenExpectation
	for _, token := range tokens {
		actual = append(actual, tokenExpectation{
			Type:      token.Type,
			Value:     token.Value,
			Line:      token.Span.Start.Line,
			Column:    token.Span.Start.Column,
			EndColumn: token.Span.End.Column,
		})
	}

	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Errorf("%s: token mismatch (-expected +actual):\n%s", name, diff)
	}
	return errs
}

func TestEmptyInput(t *testing.T) {
	errs := assertTokens(t, "empty input", "", []tokenExpectation{
		{EOF, "", 1, 1, 1},
	})
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestSingleJob(t *testing.T) {
	input := "type=align tool=minimap2"
	errs := assertTokens(t, "single job", input, []tokenExpectation{
		{KEY, "type", 1, 1, 5},
		{AFFECTATION, "=", 1, 5, 6},
		{VALUE, "align", 1, 6, 11},
		{SPACES, " ", 1, 11, 12},
		{KEY, "tool", 1, 12, 16},
		{AFFECTATION, "=", 1, 16, 17},
		{VALUE, "minimap2", 1, 17, 25},
		{EOF, "", 1, 25, 25},
	})
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestQuotedValues(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tokenExpectation
	}{
		{
			name:  "double quoted value keeps spaces and strips quotes",
			input: `query="a b"`,
			expected: []tokenExpectation{
				{KEY, "query", 1, 1, 6},
				{AFFECTATION, "=", 1, 6, 7},
				{DQUOTED_VALUE, "a b", 1, 7, 12},
				{EOF, "", 1, 12, 12},
			},
		},
		{
			name:  "single quoted value",
			input: `query='a b'`,
			expected: []tokenExpectation{
				{KEY, "query", 1, 1, 6},
				{AFFECTATION, "=", 1, 6, 7},
				{SQUOTED_VALUE, "a b", 1, 7, 12},
				{EOF, "", 1, 12, 12},
			},
		},
		{
			name:  "double quotes may hold single quotes",
			input: `id_job="it's"`,
			expected: []tokenExpectation{
				{KEY, "id_job", 1, 1, 7},
				{AFFECTATION, "=", 1, 7, 8},
				{DQUOTED_VALUE, "it's", 1, 8, 14},
				{EOF, "", 1, 14, 14},
			},
		},
		{
			name:  "bare value may contain '='",
			input: "options=a=b",
			expected: []tokenExpectation{
				{KEY, "options", 1, 1, 8},
				{AFFECTATION, "=", 1, 8, 9},
				{VALUE, "a=b", 1, 9, 12},
				{EOF, "", 1, 12, 12},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := assertTokens(t, tt.name, tt.input, tt.expected)
			if len(errs) != 0 {
				t.Errorf("expected no errors, got %v", errs)
			}
		})
	}
}

func TestQuotedRawCoversDelimiters(t *testing.T) {
	tokens, _ := Tokenize(`target="genome.fa"`)
	if diff := cmp.Diff(`"genome.fa"`, tokens[2].Raw); diff != "" {
		t.Errorf("raw mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("genome.fa", tokens[2].Value); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestCommentsAndNewlines(t *testing.T) {
	input := "# header\ntype=plot # trailing\n\n\nbackup=b.tar"
	assertTokens(t, "comments skipped", input, []tokenExpectation{
		{NEWLINES, "\n", 1, 9, 1},
		{KEY, "type", 2, 1, 5},
		{AFFECTATION, "=", 2, 5, 6},
		{VALUE, "plot", 2, 6, 10},
		{SPACES, " ", 2, 10, 11},
		{NEWLINES, "\n\n\n", 2, 21, 1},
		{KEY, "backup", 5, 1, 7},
		{AFFECTATION, "=", 5, 7, 8},
		{VALUE, "b.tar", 5, 8, 13},
		{EOF, "", 5, 13, 13},
	})
}

func TestCommentsKept(t *testing.T) {
	tokens, _ := Tokenize("# note\n", WithComments())
	if tokens[0].Type != COMMENT || tokens[0].Value != "# note" {
		t.Errorf("expected COMMENT '# note', got %v", tokens[0])
	}
}

func TestValueEndsAtComment(t *testing.T) {
	assertTokens(t, "comment after value", "tool=minimap2#fast", []tokenExpectation{
		{KEY, "tool", 1, 1, 5},
		{AFFECTATION, "=", 1, 5, 6},
		{VALUE, "minimap2", 1, 6, 14},
		{EOF, "", 1, 19, 19},
	})
}

func TestCarriageReturns(t *testing.T) {
	assertTokens(t, "crlf", "type=plot\r\nbackup=x.tar", []tokenExpectation{
		{KEY, "type", 1, 1, 5},
		{AFFECTATION, "=", 1, 5, 6},
		{VALUE, "plot", 1, 6, 10},
		{NEWLINES, "\r\n", 1, 10, 1},
		{KEY, "backup", 2, 1, 7},
		{AFFECTATION, "=", 2, 7, 8},
		{VALUE, "x.tar", 2, 8, 13},
		{EOF, "", 2, 13, 13},
	})
}

func TestColumnsCountRunes(t *testing.T) {
	tokens, _ := Tokenize("query=génome.fa tool=x")
	// "génome.fa" is 9 runes but 10 bytes
	if got := tokens[2].Span.End.Column; got != 16 {
		t.Errorf("expected value to end at column 16, got %d", got)
	}
	if got := tokens[4].Span.Start.Column; got != 17 {
		t.Errorf("expected tool key at column 17, got %d", got)
	}
	if got := tokens[4].Span.Start.Offset; got != 17 {
		t.Errorf("expected tool key at byte offset 17, got %d", got)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantMessage string
		wantSuggest string
		wantStart   int
		wantEnd     int
	}{
		{"unknown key", "qurey=a.fa", "unknown key 'qurey'", "did you mean 'query'?", 1, 6},
		{"unknown symbol in key position", "@@=x", "unexpected '@@' where a key was expected", "", 1, 3},
		{"missing value at end of line", "type=\n", "missing value after '='", "", 6, 7},
		{"missing value at end of input", "type=", "missing value after '='", "", 6, 7},
		{"missing value before comment", "type=# x", "missing value after '='", "", 6, 7},
		{"unterminated quote", `query="a.fa`, "unterminated quoted value, missing closing \"", "", 7, 12},
		{"hash inside quotes", `query='a#b'`, "quoted values cannot contain '#'", "", 7, 9},
		{"empty quotes", `query=""`, "empty quoted value", "remove the quotes or put a value between them", 7, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := Tokenize(tt.input)
			if len(errs) != 1 {
				t.Fatalf("expected exactly one error, got %v", errs)
			}
			got := errs[0]
			if diff := cmp.Diff(tt.wantMessage, got.Message); diff != "" {
				t.Errorf("message mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantSuggest, got.Suggestion); diff != "" {
				t.Errorf("suggestion mismatch (-want +got):\n%s", diff)
			}
			if got.Span.Start.Column != tt.wantStart || got.Span.End.Column != tt.wantEnd {
				t.Errorf("span = %s, want columns %d-%d", got.Span, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestRecoveryContinuesLexing(t *testing.T) {
	input := "type=\ntarget=t.fa qurey=q.fa tool=minimap2"
	tokens, errs := Tokenize(input)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}

	var keys []string
	for _, tok := range tokens {
		if tok.Type == KEY {
			keys = append(keys, tok.Value)
		}
	}
	if diff := cmp.Diff([]string{"type", "target", "tool"}, keys); diff != "" {
		t.Errorf("keys after recovery (-want +got):\n%s", diff)
	}
}

func TestSpacesAfterAffectationStayInValueMode(t *testing.T) {
	assertTokens(t, "space before value", "tool= x", []tokenExpectation{
		{KEY, "tool", 1, 1, 5},
		{AFFECTATION, "=", 1, 5, 6},
		{SPACES, " ", 1, 6, 7},
		{VALUE, "x", 1, 7, 8},
		{EOF, "", 1, 8, 8},
	})
}

func TestModeAfterEachToken(t *testing.T) {
	l := New("tool=x ")
	var modes []LexerMode
	for {
		tok := l.NextToken()
		modes = append(modes, l.Mode())
		if tok.Type == EOF {
			break
		}
	}
	want := []LexerMode{ModeKey, ModeValue, ModeKey, ModeKey, ModeKey}
	if diff := cmp.Diff(want, modes); diff != "" {
		t.Errorf("modes (-want +got):\n%s", diff)
	}
}

func TestLargeInput(t *testing.T) {
	line := "type=align tool=minimap2 target=t.fa query=q.fa options=asm5"
	input := strings.Repeat(line+"\n", 500)
	tokens, errs := Tokenize(input)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs[0])
	}
	// 5 params * 3 tokens + 4 spaces + 1 newline per line, plus EOF
	if got, want := len(tokens), 500*20+1; got != want {
		t.Errorf("token count = %d, want %d", got, want)
	}
}
