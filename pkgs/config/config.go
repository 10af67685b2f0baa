package config

import (
	"sort"
	"strings"

	"github.com/dgenies/batchdsl/pkgs/tools"
)

// Job kinds
const (
	KindAlign = "align"
	KindPlot  = "plot"
)

// FileFormat is a named set of file extensions (fasta, idx, map, backup)
type FileFormat struct {
	Name        string
	Description string
	Extensions  []string // without leading dot, compared case-insensitively
}

// Matches reports whether filename ends with one of the format extensions
func (f FileFormat) Matches(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range f.Extensions {
		if strings.HasSuffix(lower, "."+strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// Environment holds the external tables the validator checks jobs against:
// tools, file formats per job role, example paths and the job limit.
type Environment struct {
	Source  string // file the environment was loaded from, "builtin" for the default
	Version string
	MaxJobs int // 0 means unlimited
	Tools   *tools.Registry

	roles    map[string]map[string][]FileFormat
	examples map[string]map[string]string
}

// NewEnvironment creates an empty environment around a tool registry
func NewEnvironment(registry *tools.Registry, maxJobs int) *Environment {
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return &Environment{
		Source:   "memory",
		Version:  "v1.0.0",
		MaxJobs:  maxJobs,
		Tools:    registry,
		roles:    make(map[string]map[string][]FileFormat),
		examples: make(map[string]map[string]string),
	}
}

// SetRole declares the formats accepted for a file key of a job kind
func (e *Environment) SetRole(kind, key string, formats ...FileFormat) {
	if e.roles[kind] == nil {
		e.roles[kind] = make(map[string][]FileFormat)
	}
	e.roles[kind][key] = formats
}

// SetExample declares the example file expected after "example://"
func (e *Environment) SetExample(kind, key, path string) {
	if e.examples[kind] == nil {
		e.examples[kind] = make(map[string]string)
	}
	e.examples[kind][key] = path
}

// Formats returns the formats accepted for a file key of a job kind
func (e *Environment) Formats(kind, key string) []FileFormat {
	return e.roles[kind][key]
}

// IsFileKey reports whether key holds a file reference for the job kind
func (e *Environment) IsFileKey(kind, key string) bool {
	_, ok := e.roles[kind][key]
	return ok
}

// FileKeys returns the file keys of a job kind, sorted
func (e *Environment) FileKeys(kind string) []string {
	keys := make([]string, 0, len(e.roles[kind]))
	for k := range e.roles[kind] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Extensions returns every extension accepted for a file key, in
// declaration order
func (e *Environment) Extensions(kind, key string) []string {
	var exts []string
	for _, f := range e.Formats(kind, key) {
		exts = append(exts, f.Extensions...)
	}
	return exts
}

// Example returns the example path for a file key, if one is configured
func (e *Environment) Example(kind, key string) (string, bool) {
	path, ok := e.examples[kind][key]
	return path, ok
}
