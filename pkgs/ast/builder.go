package ast

import (
	"github.com/dgenies/batchdsl/pkgs/lexer"
)

// NewJob creates a job from params
func NewJob(params ...Param) Job {
	return Job{Params: params}
}

// KV creates a param with a bare value: key=value
func KV(key, value string) Param {
	return Param{
		Key:   lexer.Token{Type: lexer.KEY, Value: key, Raw: key},
		Value: lexer.Token{Type: lexer.VALUE, Value: value, Raw: value},
	}
}

// DQ creates a param with a double quoted value: key="value"
func DQ(key, value string) Param {
	return Param{
		Key:   lexer.Token{Type: lexer.KEY, Value: key, Raw: key},
		Value: lexer.Token{Type: lexer.DQUOTED_VALUE, Value: value, Raw: `"` + value + `"`},
	}
}

// SQ creates a param with a single quoted value: key='value'
func SQ(key, value string) Param {
	return Param{
		Key:   lexer.Token{Type: lexer.KEY, Value: key, Raw: key},
		Value: lexer.Token{Type: lexer.SQUOTED_VALUE, Value: value, Raw: "'" + value + "'"},
	}
}
