package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dgenies/batchdsl/pkgs/ast"
	"github.com/dgenies/batchdsl/pkgs/config"
	"github.com/dgenies/batchdsl/pkgs/errors"
	"github.com/dgenies/batchdsl/pkgs/invariant"
	"github.com/dgenies/batchdsl/pkgs/suggest"
	"github.com/dgenies/batchdsl/pkgs/tools"
)

// Keys understood by the validator
const (
	KeyType    = "type"
	KeyTool    = "tool"
	KeyOptions = "options"
	KeyQuery   = "query"
	KeyTarget  = "target"
	KeyAlign   = "align"
	KeyBackup  = "backup"
	KeyIDJob   = "id_job"
)

var (
	kinds = []string{config.KindAlign, config.KindPlot}

	alignKeys = keySet(KeyType, KeyTarget, KeyQuery, KeyTool, KeyOptions, KeyIDJob)
	plotKeys  = keySet(KeyType, KeyBackup, KeyAlign, KeyQuery, KeyTarget, KeyIDJob)

	// Plot jobs take either a backup archive or these three files
	plotFileShape = []string{KeyAlign, KeyQuery, KeyTarget}
)

func keySet(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// NormalizedJob is the flat, submission-ready form of a job
type NormalizedJob map[string]string

// Result is the outcome of validating every job of a batch
type Result struct {
	Diagnostics []errors.Diagnostic
	Jobs        []NormalizedJob
}

// Validator checks jobs against an environment and a set of uploaded files.
// It never mutates either.
type Validator struct {
	env      *config.Environment
	uploaded map[string]bool
}

// New creates a validator. uploaded lists the file names currently
// available on the server.
func New(env *config.Environment, uploaded []string) *Validator {
	invariant.NotNil(env, "env")
	set := make(map[string]bool, len(uploaded))
	for _, name := range uploaded {
		set[name] = true
	}
	return &Validator{env: env, uploaded: set}
}

// Validate checks every job, applies the job limit and returns the sorted
// diagnostics together with the normalized jobs.
func (v *Validator) Validate(jobs []ast.Job) Result {
	var res Result
	for i, job := range jobs {
		diags, normalized := v.ValidateJob(job)
		res.Diagnostics = append(res.Diagnostics, diags...)
		if v.env.MaxJobs > 0 && i >= v.env.MaxJobs {
			res.Diagnostics = append(res.Diagnostics, errors.NewWarning(errors.CodeJobIgnored, job.Span(),
				"job %d ignored: a batch holds at most %d jobs", i+1, v.env.MaxJobs))
			continue
		}
		res.Jobs = append(res.Jobs, normalized)
	}
	errors.Sort(res.Diagnostics)
	return res
}

// jobCheck holds the state of one job's validation pass
type jobCheck struct {
	v      *Validator
	job    ast.Job
	params map[string]ast.Param // first occurrence of each key
	order  []string             // keys in order of first occurrence
	kind   string               // "" when unresolved
	tool   *tools.Tool          // nil when unresolved
	diags  []errors.Diagnostic
}

// ValidateJob runs every check on a single job. It always produces a
// normalized job, whatever diagnostics were found.
func (v *Validator) ValidateJob(job ast.Job) ([]errors.Diagnostic, NormalizedJob) {
	c := &jobCheck{v: v, job: job, params: make(map[string]ast.Param, len(job.Params))}

	c.scanDuplicates()
	c.resolveKind()
	switch c.kind {
	case config.KindAlign:
		c.checkAlign()
	case config.KindPlot:
		c.checkPlot()
	default:
		c.checkKeys(union(alignKeys, plotKeys), "")
	}
	if c.kind != "" {
		c.checkFiles()
	}

	return c.diags, c.normalize()
}

func (c *jobCheck) add(d errors.Diagnostic) {
	c.diags = append(c.diags, d)
}

// scanDuplicates keeps the first occurrence of each key
func (c *jobCheck) scanDuplicates() {
	for _, p := range c.job.Params {
		first, dup := c.params[p.Name()]
		if dup {
			c.add(errors.NewError(errors.CodeDuplicateKey, p.Span(),
				"duplicate key '%s', first set at %s", p.Name(), first.Key.Span.Start))
			continue
		}
		c.params[p.Name()] = p
		c.order = append(c.order, p.Name())
	}
}

func (c *jobCheck) resolveKind() {
	p, ok := c.params[KeyType]
	if !ok {
		c.add(errors.NewError(errors.CodeMissingKey, c.job.Span(),
			"missing key 'type' (%s)", orList(kinds)))
		return
	}
	for _, k := range kinds {
		if p.Text() == k {
			c.kind = k
			return
		}
	}
	c.add(errors.NewError(errors.CodeUnknownType, p.Value.Span,
		"unknown job type '%s', expected %s", p.Text(), orList(kinds)).
		WithSuggestion(suggest.DidYouMean(p.Text(), kinds)))
}

func (c *jobCheck) checkAlign() {
	if p, ok := c.params[KeyTool]; ok {
		registry := c.v.env.Tools
		if tool, found := registry.Get(p.Text()); found {
			c.tool = tool
		} else {
			names := registry.Names()
			c.add(errors.NewError(errors.CodeUnknownTool, p.Value.Span,
				"unknown tool '%s', valid tools: %s", p.Text(), strings.Join(names, ", ")).
				WithSuggestion(suggest.DidYouMean(p.Text(), names)))
		}
	}

	c.requireKey(KeyTarget)
	if c.tool == nil || !c.tool.AllVsAll {
		c.requireKey(KeyQuery)
	}
	c.requireKey(KeyTool)

	c.checkOptions()
	c.checkKeys(alignKeys, config.KindAlign)
}

func (c *jobCheck) requireKey(key string) {
	if _, ok := c.params[key]; ok {
		return
	}
	c.add(errors.NewError(errors.CodeMissingKey, c.job.Span(),
		"missing key '%s' for %s job", key, c.kind))
}

func (c *jobCheck) checkOptions() {
	p, ok := c.params[KeyOptions]
	if !ok {
		if c.tool != nil {
			defaults := c.tool.DefaultOptions()
			described := "none"
			if len(defaults) > 0 {
				described = strings.Join(defaults, ", ")
			}
			c.add(errors.NewWarning(errors.CodeDefaultOptions, c.job.Span(),
				"no options given, %s defaults assumed: %s", c.tool.Name, described))
		}
		return
	}
	if c.tool == nil {
		return
	}

	allowed := c.tool.OptionNames()
	byGroup := make(map[string][]string)
	var groups []string
	for _, name := range SplitOptions(p.Text()) {
		opt, known := c.tool.Option(name)
		if !known {
			c.add(errors.NewError(errors.CodeUnknownOption, p.Value.Span,
				"unknown option '%s' for tool %s, allowed options: %s", name, c.tool.Name, strings.Join(allowed, ", ")).
				WithSuggestion(suggest.DidYouMean(name, allowed)))
			continue
		}
		if !opt.Exclusive || contains(byGroup[opt.Group], name) {
			continue
		}
		if _, seen := byGroup[opt.Group]; !seen {
			groups = append(groups, opt.Group)
		}
		byGroup[opt.Group] = append(byGroup[opt.Group], name)
	}

	for _, g := range groups {
		if selected := byGroup[g]; len(selected) > 1 {
			c.add(errors.NewError(errors.CodeIncompatibleOptions, p.Value.Span,
				"options %s are incompatible: only one option of group '%s' can be selected", quotedAndList(selected), g))
		}
	}
}

func (c *jobCheck) checkPlot() {
	backup, hasBackup := c.params[KeyBackup]

	var conflicting []string
	for _, key := range plotFileShape {
		if _, ok := c.params[key]; ok {
			conflicting = append(conflicting, key)
		}
	}

	switch {
	case hasBackup && len(conflicting) > 0:
		c.add(errors.NewError(errors.CodeExclusiveKeys, backup.Key.Span,
			"'backup' cannot be combined with %s", quotedAndList(conflicting)))
		for _, key := range conflicting {
			c.add(errors.NewError(errors.CodeExclusiveKeys, c.params[key].Key.Span,
				"'%s' cannot be combined with 'backup'", key))
		}
	case !hasBackup:
		for _, key := range plotFileShape {
			if _, ok := c.params[key]; !ok {
				c.add(errors.NewError(errors.CodeMissingKey, c.job.Span(),
					"missing key '%s' for plot job (give align, query and target, or a backup)", key))
			}
		}
	}

	c.checkKeys(plotKeys, config.KindPlot)
}

// checkKeys reports keys outside allowed, at the first occurrence of each
func (c *jobCheck) checkKeys(allowed map[string]bool, kind string) {
	for _, key := range c.order {
		if allowed[key] {
			continue
		}
		c.add(errors.NewError(errors.CodeUnknownKey, c.params[key].Key.Span,
			"key '%s' is not allowed in %s jobs, allowed keys: %s", key, kind, strings.Join(sortedKeys(allowed), ", ")))
	}
}

// SplitOptions splits a comma-separated options value. Blank items are
// dropped.
func SplitOptions(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func union(sets ...map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for _, s := range sets {
		for k := range s {
			out[k] = true
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// orList formats ["a", "b", "c"] as "a, b or c"
func orList(items []string) string {
	return joinLast(items, " or ")
}

// quotedAndList formats ["a", "b", "c"] as "'a', 'b' and 'c'"
func quotedAndList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("'%s'", s)
	}
	return joinLast(quoted, " and ")
}

func joinLast(items []string, last string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + last + items[len(items)-1]
}
