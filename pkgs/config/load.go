package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/dgenies/batchdsl/pkgs/errors"
	"github.com/dgenies/batchdsl/pkgs/invariant"
	"github.com/dgenies/batchdsl/pkgs/tools"
)

//go:embed default.yaml
var defaultYAML []byte

//go:embed schema.json
var schemaJSON []byte

// EnvVar names the environment variable pointing at an environment file
const EnvVar = "DGBATCH_CONFIG"

// SupportedMajor is the environment file major version this build reads
const SupportedMajor = "v1"

// defaultOrder is the order of tools that do not declare one
const defaultOrder = 1000

// Format is the encoding of an environment file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the encoding from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported environment file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

type fileSpec struct {
	Version  string                         `json:"version"`
	MaxJobs  int                            `json:"max_jobs"`
	Tools    map[string]toolSpec            `json:"tools"`
	Formats  map[string]formatSpec          `json:"formats"`
	Roles    map[string]map[string][]string `json:"roles"`
	Examples map[string]map[string]string   `json:"examples"`
}

type toolSpec struct {
	Label    string      `json:"label"`
	AllVsAll bool        `json:"all_vs_all"`
	Order    *int        `json:"order"`
	Options  []groupSpec `json:"options"`
}

type groupSpec struct {
	Group     string      `json:"group"`
	Exclusive bool        `json:"exclusive"`
	Entries   []entrySpec `json:"entries"`
}

type entrySpec struct {
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

type formatSpec struct {
	Description string   `json:"description"`
	Extensions  []string `json:"extensions"`
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	url := "schema://environment.json"
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
})

// decodeInstance turns a JSON document into the generic value the schema
// validator walks. Numbers stay json.Number so integers are not widened.
func decodeInstance(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var instance interface{}
	if err := dec.Decode(&instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// Default returns the built-in environment
func Default() *Environment {
	env, err := Parse(defaultYAML, FormatYAML, "builtin")
	invariant.Invariant(err == nil, "built-in environment is invalid: %v", err)
	return env
}

// SearchPaths lists the files Resolve looks at, in order
func SearchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".dgbatch", "environment.yaml"))
	}
	return append(paths, filepath.Join(string(filepath.Separator), "etc", "dgbatch", "environment.yaml"))
}

// Resolve loads the environment named by explicit, or by $DGBATCH_CONFIG,
// or the first file of SearchPaths that exists, or the built-in default.
func Resolve(explicit string) (*Environment, error) {
	if explicit != "" {
		return Load(explicit)
	}
	if fromEnv := os.Getenv(EnvVar); fromEnv != "" {
		return Load(fromEnv)
	}
	for _, path := range SearchPaths() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return Load(path)
		}
	}
	return Default(), nil
}

// Load reads an environment file; the encoding follows the extension
func Load(path string) (*Environment, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrConfigRead, path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewConfigError(errors.ErrFileNotFound, path, err)
		}
		return nil, errors.NewConfigError(errors.ErrConfigRead, path, err)
	}
	return Parse(data, format, path)
}

// Parse decodes, schema-checks and assembles an environment
func Parse(data []byte, format Format, source string) (*Environment, error) {
	var doc map[string]interface{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.NewConfigError(errors.ErrConfigParse, source, err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, errors.NewConfigError(errors.ErrConfigParse, source, err)
		}
	default:
		return nil, errors.NewConfigError(errors.ErrConfigParse, source, fmt.Errorf("decode: unsupported format %q", format))
	}
	if doc == nil {
		return nil, errors.NewConfigError(errors.ErrConfigParse, source, fmt.Errorf("environment is empty"))
	}

	// Both decoders are normalized to JSON so one schema and one set of
	// struct tags serve every format.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrConfigParse, source, err)
	}

	schema, err := compiledSchema()
	invariant.Invariant(err == nil, "environment schema does not compile: %v", err)

	instance, err := decodeInstance(raw)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrConfigParse, source, err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, errors.NewConfigError(errors.ErrConfigSchema, source, err)
	}

	var spec fileSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, errors.NewConfigError(errors.ErrConfigParse, source, err)
	}

	if err := checkVersion(spec.Version); err != nil {
		return nil, errors.NewConfigError(errors.ErrConfigVersion, source, err)
	}

	env, err := assemble(spec)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrConfigInvalid, source, err)
	}
	env.Source = source
	return env, nil
}

func checkVersion(version string) error {
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("version %q is not a semantic version", version)
	}
	if major := semver.Major(v); major != SupportedMajor {
		return fmt.Errorf("version %s is not supported (want %s.x.y)", version, SupportedMajor)
	}
	return nil
}

func assemble(spec fileSpec) (*Environment, error) {
	registry := tools.NewRegistry()
	for _, name := range sortedKeys(spec.Tools) {
		ts := spec.Tools[name]
		order := defaultOrder
		if ts.Order != nil {
			order = *ts.Order
		}
		var groups []tools.OptionGroup
		for _, g := range ts.Options {
			group := tools.OptionGroup{Name: g.Group, Exclusive: g.Exclusive}
			for _, e := range g.Entries {
				group.Entries = append(group.Entries, tools.Entry{Name: e.Name, Default: e.Default})
			}
			groups = append(groups, group)
		}
		label := ts.Label
		if label == "" {
			label = name
		}
		tool, err := tools.NewTool(name, label, ts.AllVsAll, order, groups...)
		if err != nil {
			return nil, err
		}
		registry.Register(tool)
	}

	env := NewEnvironment(registry, spec.MaxJobs)
	env.Version = spec.Version

	for _, kind := range sortedKeys(spec.Roles) {
		for _, key := range sortedKeys(spec.Roles[kind]) {
			var formats []FileFormat
			for _, name := range spec.Roles[kind][key] {
				fs, ok := spec.Formats[name]
				if !ok {
					return nil, fmt.Errorf("role %s.%s references unknown format %q", kind, key, name)
				}
				formats = append(formats, FileFormat{Name: name, Description: fs.Description, Extensions: fs.Extensions})
			}
			env.SetRole(kind, key, formats...)
		}
	}

	for kind, byKey := range spec.Examples {
		for key, path := range byKey {
			if !env.IsFileKey(kind, key) {
				return nil, fmt.Errorf("example for %s.%s but %s jobs have no %s file", kind, key, kind, key)
			}
			env.SetExample(kind, key, path)
		}
	}

	return env, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
