package validator

import (
	"strings"

	"github.com/dgenies/batchdsl/pkgs/ast"
	"github.com/dgenies/batchdsl/pkgs/config"
	"github.com/dgenies/batchdsl/pkgs/errors"
)

// ExampleScheme prefixes references to the server's example files
const ExampleScheme = "example://"

// remoteSchemes are fetched by the server instead of being uploaded
var remoteSchemes = []string{"http://", "https://", "ftp://"}

// File reference kinds, stored in the <key>_type field of a normalized job
const (
	FileLocal = "local"
	FileURL   = "url"
)

// IsRemote reports whether value is a URL the server downloads itself
func IsRemote(value string) bool {
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(value, scheme) {
			return true
		}
	}
	return false
}

// FileKind classifies a file reference: example references count as urls
func FileKind(value string) string {
	if IsRemote(value) || strings.HasPrefix(value, ExampleScheme) {
		return FileURL
	}
	return FileLocal
}

// checkFiles validates every file reference of a job whose kind is known
func (c *jobCheck) checkFiles() {
	for _, key := range c.order {
		if !c.v.env.IsFileKey(c.kind, key) {
			continue
		}
		c.checkFile(key, c.params[key])
	}
}

func (c *jobCheck) checkFile(key string, p ast.Param) {
	value := p.Text()
	span := p.Value.Span

	switch {
	case IsRemote(value):
		return

	case strings.HasPrefix(value, ExampleScheme):
		expected, ok := c.v.env.Example(c.kind, key)
		if !ok {
			c.add(errors.NewError(errors.CodeBadFileReference, span,
				"no example file is available for %s in %s jobs", key, c.kind))
			return
		}
		if value != ExampleScheme+expected {
			c.add(errors.NewError(errors.CodeBadFileReference, span,
				"unknown example file '%s' for %s, expected %s%s", value, key, ExampleScheme, expected).
				WithSuggestion("use " + ExampleScheme + expected))
		}

	default:
		formats := c.v.env.Formats(c.kind, key)
		if !matchesAny(formats, value) {
			c.add(errors.NewError(errors.CodeBadFileReference, span,
				"file '%s' has an unsupported extension for %s: expected %s (%s)",
				value, key, describeFormats(formats), strings.Join(c.v.env.Extensions(c.kind, key), ", ")))
			return
		}
		if !c.v.uploaded[value] {
			c.add(errors.NewWarning(errors.CodeMissingFile, span,
				"file '%s' has not been uploaded yet", value))
		}
	}
}

func matchesAny(formats []config.FileFormat, filename string) bool {
	for _, f := range formats {
		if f.Matches(filename) {
			return true
		}
	}
	return false
}

// describeFormats names the accepted formats: "a FASTA file or an index file"
func describeFormats(formats []config.FileFormat) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.Description
		if names[i] == "" {
			names[i] = "a " + f.Name + " file"
		}
	}
	return orList(names)
}
