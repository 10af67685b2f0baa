package tools

import (
	"fmt"
	"sort"
	"sync"
)

// Entry is one selectable option of a tool
type Entry struct {
	Name    string
	Default bool // part of the default option set
}

// OptionGroup groups related options. At most one option of an exclusive
// group may be selected for a job.
type OptionGroup struct {
	Name      string
	Exclusive bool
	Entries   []Entry
}

// Option is an entry resolved together with its group
type Option struct {
	Name      string
	Group     string
	Exclusive bool
	Default   bool
}

// Tool describes an alignment tool available to align jobs
type Tool struct {
	Name     string
	Label    string
	AllVsAll bool // can run without a query file
	Order    int  // lowest order is the default tool
	Groups   []OptionGroup

	options map[string]Option
}

// NewTool creates a tool and indexes its options. Option names must be
// unique across groups.
func NewTool(name, label string, allVsAll bool, order int, groups ...OptionGroup) (*Tool, error) {
	if name == "" {
		return nil, fmt.Errorf("tool name cannot be empty")
	}
	t := &Tool{
		Name:     name,
		Label:    label,
		AllVsAll: allVsAll,
		Order:    order,
		Groups:   groups,
		options:  make(map[string]Option),
	}
	for _, g := range groups {
		for _, e := range g.Entries {
			if e.Name == "" {
				return nil, fmt.Errorf("tool %s: empty option name in group %s", name, g.Name)
			}
			if prev, dup := t.options[e.Name]; dup {
				return nil, fmt.Errorf("tool %s: option %s declared in groups %s and %s", name, e.Name, prev.Group, g.Name)
			}
			t.options[e.Name] = Option{Name: e.Name, Group: g.Name, Exclusive: g.Exclusive, Default: e.Default}
		}
	}
	return t, nil
}

// Option looks up an option by name
func (t *Tool) Option(name string) (Option, bool) {
	opt, ok := t.options[name]
	return opt, ok
}

// OptionNames returns all option names in declaration order
func (t *Tool) OptionNames() []string {
	var names []string
	for _, g := range t.Groups {
		for _, e := range g.Entries {
			names = append(names, e.Name)
		}
	}
	return names
}

// DefaultOptions returns the options assumed when a job gives none
func (t *Tool) DefaultOptions() []string {
	var names []string
	for _, g := range t.Groups {
		for _, e := range g.Entries {
			if e.Default {
				names = append(names, e.Name)
			}
		}
	}
	return names
}

// Registry holds the available tools
type Registry struct {
	tools map[string]*Tool
	mu    sync.RWMutex
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool, replacing any tool with the same name
func (r *Registry) Register(tool *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// Names returns the registered tool names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the tools sorted by order, then name
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Order != list[j].Order {
			return list[i].Order < list[j].Order
		}
		return list[i].Name < list[j].Name
	})
	return list
}

// Default returns the tool with the lowest order
func (r *Registry) Default() (*Tool, bool) {
	list := r.List()
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
