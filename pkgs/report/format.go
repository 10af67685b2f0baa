package report

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// Format selects how a result is written
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// Formats lists the accepted values of a Format flag
var Formats = []Format{FormatText, FormatJSON, FormatCBOR}

var _ pflag.Value = (*Format)(nil)

// String implements pflag.Value
func (f *Format) String() string {
	if *f == "" {
		return string(FormatText)
	}
	return string(*f)
}

// Set implements pflag.Value, rejecting unknown formats
func (f *Format) Set(value string) error {
	for _, known := range Formats {
		if strings.EqualFold(value, string(known)) {
			*f = known
			return nil
		}
	}
	names := make([]string, len(Formats))
	for i, known := range Formats {
		names[i] = string(known)
	}
	return fmt.Errorf("unknown format %q, expected one of %s", value, strings.Join(names, ", "))
}

// Type implements pflag.Value
func (f *Format) Type() string {
	return "format"
}
