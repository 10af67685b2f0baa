package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgenies/batchdsl/pkgs/config"
	"github.com/dgenies/batchdsl/pkgs/engine"
	"github.com/dgenies/batchdsl/pkgs/errors"
)

func validate(input string, uploaded ...string) engine.Result {
	return engine.Validate(input, config.Default(), uploaded)
}

func render(t *testing.T, res engine.Result, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, FormatText, opts))
	return buf.String()
}

func TestRenderText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		filename string
		want     string
	}{
		{
			name:     "error with carets",
			input:    "type=plot backup=b.txt",
			filename: "batch.txt",
			want: `error[BadFileReference]: file 'b.txt' has an unsupported extension for backup: expected a backup archive (tar, tar.gz)
 --> batch.txt:1:18
  |
1 | type=plot backup=b.txt
  |                  ^^^^^

batch.txt: 1 job(s), 1 error(s), 0 warning(s)
`,
		},
		{
			name:  "suggestion as help line",
			input: "type=algin backup=b.tar",
			want: `error[UnknownType]: unknown job type 'algin', expected align or plot
 --> <stdin>:1:6
  |
1 | type=algin backup=b.tar
  |      ^^^^^
  = help: did you mean 'align'?

<stdin>: 1 job(s), 1 error(s), 0 warning(s)
`,
		},
		{
			name:  "clean batch",
			input: "type=plot backup=b.tar",
			want:  "<stdin>: 1 job(s), 0 error(s), 0 warning(s)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validate(tt.input, "b.tar", "b.txt")
			got := render(t, res, Options{Filename: tt.filename})
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("report mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderGutterWidth(t *testing.T) {
	input := strings.Repeat("type=plot backup=b.tar\n", 9) + "type=plot backup=x.txt\n"
	got := render(t, validate(input, "b.tar"), Options{})

	assert.Contains(t, got, "  --> <stdin>:10:18\n")
	assert.Contains(t, got, "10 | type=plot backup=x.txt\n")
	assert.Contains(t, got, "   | "+strings.Repeat(" ", 17)+"^^^^^\n")
}

func TestRenderKeepsTabsInIndent(t *testing.T) {
	got := render(t, validate("type=plot\tbackup=x.txt"), Options{})
	indent := strings.Repeat(" ", 9) + "\t" + strings.Repeat(" ", 7)
	assert.Contains(t, got, "  | "+indent+"^^^^^\n")
}

func TestRenderJobSpanUnderlinesWholeLine(t *testing.T) {
	got := render(t, validate("type=plot align=a.paf"), Options{})
	assert.Contains(t, got, "error[MissingKey]")
	assert.Contains(t, got, "  | "+strings.Repeat("^", len("type=plot align=a.paf"))+"\n")
}

func TestRenderWarningSummary(t *testing.T) {
	got := render(t, validate("type=plot backup=b.tar"), Options{})
	assert.Contains(t, got, "warning[MissingFile]: file 'b.tar' has not been uploaded yet")
	assert.Contains(t, got, "0 error(s), 1 warning(s)")
}

func TestRenderPlainHasNoEscapes(t *testing.T) {
	got := render(t, validate("type=algin"), Options{})
	assert.NotContains(t, got, "\x1b[")
}

func TestRenderColor(t *testing.T) {
	got := render(t, validate("type=algin"), Options{Color: true})
	assert.Contains(t, got, "\x1b[")
	assert.Contains(t, got, "UnknownType")
}

func TestWriteJSON(t *testing.T) {
	res := validate("type=plot backup=b.tar")
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, FormatJSON, Options{}))

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "diagnostics")
	assert.Contains(t, decoded, "jobs")
	assert.Contains(t, decoded, "digest")
	assert.NotContains(t, decoded, "Source")

	var diags []errors.Diagnostic
	require.NoError(t, json.Unmarshal(decoded["diagnostics"], &diags))
	if diff := cmp.Diff(res.Diagnostics, diags); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCBOR(t *testing.T) {
	res := validate("type=plot backup=b.tar\ntype=algin")
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, FormatCBOR, Options{}))

	var decoded engine.Result
	require.NoError(t, cbor.Unmarshal(buf.Bytes(), &decoded))
	assert.Empty(t, decoded.Source)
	assert.Equal(t, res.Digest, decoded.Digest)
	if diff := cmp.Diff(res.Diagnostics, decoded.Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(res.Jobs, decoded.Jobs); diff != "" {
		t.Errorf("jobs mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCBORIsStable(t *testing.T) {
	res := validate("type=align tool=minimap2 target=t.fa query=q.fa options=asm10", "t.fa", "q.fa")
	require.Len(t, res.Jobs, 1)

	var first bytes.Buffer
	require.NoError(t, Write(&first, res, FormatCBOR, Options{}))
	for i := 0; i < 20; i++ {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, res, FormatCBOR, Options{}))
		require.Equal(t, first.Bytes(), buf.Bytes(), "encoding %d differs", i)
	}

	mode, err := cbor.CanonicalEncOptions().EncMode()
	require.NoError(t, err)
	want, err := mode.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t, want, first.Bytes())
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, validate("type=plot backup=b.tar"), Format("xml"), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrEncode))
}

func TestFormatFlag(t *testing.T) {
	var f Format
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Var(&f, "format", "output format")

	assert.Equal(t, "text", f.String())
	require.NoError(t, flags.Parse([]string{"--format", "JSON"}))
	assert.Equal(t, FormatJSON, f)
	assert.Equal(t, "format", f.Type())

	err := f.Set("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text, json, cbor")
	assert.Equal(t, FormatJSON, f)
}
