package ast

import (
	"strings"

	"github.com/dgenies/batchdsl/pkgs/lexer"
)

// Param is one key=value pair. Value is the single value token that
// matched (quotes already stripped from Value.Value by the lexer).
type Param struct {
	Key   lexer.Token
	Value lexer.Token
}

// Name returns the key text
func (p Param) Name() string {
	return p.Key.Value
}

// Text returns the value text
func (p Param) Text() string {
	return p.Value.Value
}

// Span covers the key through the end of the value
func (p Param) Span() lexer.SourceSpan {
	return p.Key.Span.Cover(p.Value.Span)
}

func (p Param) String() string {
	return p.Key.Raw + "=" + p.Value.Raw
}

// Job is an ordered list of params, in the order they were written
type Job struct {
	Params []Param
}

// Span covers the first param through the last one
func (j Job) Span() lexer.SourceSpan {
	if len(j.Params) == 0 {
		return lexer.SourceSpan{}
	}
	return j.Params[0].Span().Cover(j.Params[len(j.Params)-1].Span())
}

// Lookup returns the first param with the given key
func (j Job) Lookup(key string) (Param, bool) {
	for _, p := range j.Params {
		if p.Name() == key {
			return p, true
		}
	}
	return Param{}, false
}

// Keys returns the keys in source order, duplicates included
func (j Job) Keys() []string {
	keys := make([]string, len(j.Params))
	for i, p := range j.Params {
		keys[i] = p.Name()
	}
	return keys
}

func (j Job) String() string {
	parts := make([]string, len(j.Params))
	for i, p := range j.Params {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}
