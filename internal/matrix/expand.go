// SPDX-License-Identifier: MPL-2.0

package matrix

import (
	"strings"

	"github.com/envrun/envrun/internal/formatter"
	"github.com/envrun/envrun/pkg/platform"
)

type (
	// Assignment binds one matrix variable to a value.
	Assignment struct {
		Variable string
		Value    string
	}

	// Instance is one concrete environment derived from a Config and a matrix
	// assignment. It is rebuilt on every invocation and never persisted.
	Instance struct {
		// Base is the name of the declared environment.
		Base string
		// Name is Base alone, or Base.value1-value2 for matrix instances.
		Name string
		// Assignment lists the variable values in declaration order.
		Assignment []Assignment
		// Settings are the options after inheritance and overrides.
		Settings Settings
	}

	// Expander expands configurations against a fixed host description.
	Expander struct {
		Host Host
	}
)

// NewExpander returns an Expander for the current process.
func NewExpander() *Expander {
	return &Expander{Host: Host{Platform: platform.Current(), Environ: formatter.EnvironFromOS()}}
}

// Expand produces the ordered instances of the environment name. Without a
// matrix the single instance is named after the environment. With a matrix,
// blocks expand in declaration order and each block is the Cartesian product
// of its variables with the first variable outermost.
func (e *Expander) Expand(name string, cfg Config) ([]Instance, error) {
	if !cfg.HasMatrix {
		inst, err := e.instance(name, cfg, nil)
		if err != nil {
			return nil, err
		}
		return []Instance{inst}, nil
	}

	assignments := Assignments(cfg.Matrix)
	if len(assignments) == 0 {
		return nil, &NoVariablesError{Env: name}
	}

	instances := make([]Instance, 0, len(assignments))
	seen := make(map[string]bool, len(assignments))
	for _, assignment := range assignments {
		inst, err := e.instance(name, cfg, assignment)
		if err != nil {
			return nil, err
		}
		if seen[inst.Name] {
			return nil, &DuplicateInstanceError{Name: inst.Name}
		}
		seen[inst.Name] = true
		instances = append(instances, inst)
	}
	return instances, nil
}

// Assignments returns every variable assignment of the matrix in expansion
// order. Empty blocks contribute nothing.
func Assignments(blocks []Block) [][]Assignment {
	var out [][]Assignment
	for _, block := range blocks {
		if len(block) == 0 {
			continue
		}
		product := [][]Assignment{nil}
		for _, variable := range block {
			next := make([][]Assignment, 0, len(product)*len(variable.Values))
			for _, prefix := range product {
				for _, value := range variable.Values {
					combo := make([]Assignment, len(prefix), len(prefix)+1)
					copy(combo, prefix)
					next = append(next, append(combo, Assignment{Variable: variable.Name, Value: value}))
				}
			}
			product = next
		}
		out = append(out, product...)
	}
	return out
}

func (e *Expander) instance(name string, cfg Config, assignment []Assignment) (Instance, error) {
	options := cfg.Options.Map()
	if options == nil {
		options = map[string]any{}
	}
	for _, a := range assignment {
		if IsPythonVariable(a.Variable) {
			options["python"] = a.Value
		}
	}
	applyOverrides(options, cfg.Overrides, assignment, e.Host)

	settings, err := DecodeSettings(name, options)
	if err != nil {
		return Instance{}, err
	}
	return Instance{
		Base:       name,
		Name:       InstanceName(name, assignment),
		Assignment: assignment,
		Settings:   settings,
	}, nil
}

// InstanceName derives the display and storage name of an instance. Values
// of the python variable are prefixed with py in the name only.
func InstanceName(base string, assignment []Assignment) string {
	if len(assignment) == 0 {
		return base
	}
	parts := make([]string, len(assignment))
	for i, a := range assignment {
		value := a.Value
		if IsPythonVariable(a.Variable) && !strings.HasPrefix(value, "py") {
			value = "py" + value
		}
		parts[i] = value
	}
	return base + "." + strings.Join(parts, "-")
}

// IsPythonVariable reports whether a matrix variable selects the interpreter.
func IsPythonVariable(name string) bool {
	return name == "python" || name == "py"
}

// CanonicalVariable resolves the py alias to python.
func CanonicalVariable(name string) string {
	if IsPythonVariable(name) {
		return "python"
	}
	return name
}

// Lookup returns the value assigned to variable, honoring the py alias.
func (i Instance) Lookup(variable string) (string, bool) {
	want := CanonicalVariable(variable)
	for _, a := range i.Assignment {
		if CanonicalVariable(a.Variable) == want {
			return a.Value, true
		}
	}
	return "", false
}

// Variables returns the assignment as a map keyed by declared variable name.
func (i Instance) Variables() map[string]string {
	out := make(map[string]string, len(i.Assignment))
	for _, a := range i.Assignment {
		out[a.Variable] = a.Value
	}
	return out
}
