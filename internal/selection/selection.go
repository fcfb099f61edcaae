// SPDX-License-Identifier: MPL-2.0

package selection

import (
	"slices"
	"strings"

	"github.com/envrun/envrun/internal/matrix"
)

const (
	// KindIncluded marks +name filters.
	KindIncluded Kind = "included"
	// KindExcluded marks -name filters.
	KindExcluded Kind = "excluded"
)

type (
	// Kind distinguishes inclusion from exclusion filters.
	Kind string

	// Filter constrains one matrix variable. Empty Values matches any value.
	Filter struct {
		Name   string
		Values []string
	}

	// Selection is the set of filters given on one invocation.
	Selection struct {
		Include []Filter
		Exclude []Filter
	}
)

// Parse consumes the leading selection tokens of args and returns the parsed
// selection together with the remaining arguments. Parsing stops at the first
// token that starts with neither + nor -.
func Parse(args []string) (Selection, []string, error) {
	var sel Selection
	seen := map[Kind]map[string]bool{KindIncluded: {}, KindExcluded: {}}

	i := 0
	for ; i < len(args); i++ {
		token := args[i]
		var kind Kind
		switch {
		case strings.HasPrefix(token, "+"):
			kind = KindIncluded
		case strings.HasPrefix(token, "-"):
			kind = KindExcluded
		default:
			return sel, args[i:], nil
		}

		name, values, hasValues := strings.Cut(token[1:], "=")
		if name == "" || (hasValues && values == "") {
			return Selection{}, nil, &MalformedTokenError{Token: token}
		}
		name = matrix.CanonicalVariable(name)
		if seen[kind][name] {
			return Selection{}, nil, &DuplicateVariableError{Kind: kind, Name: name}
		}
		seen[kind][name] = true

		f := Filter{Name: name}
		if hasValues {
			f.Values = strings.Split(values, ",")
		}
		if kind == KindIncluded {
			sel.Include = append(sel.Include, f)
		} else {
			sel.Exclude = append(sel.Exclude, f)
		}
	}
	return sel, args[i:], nil
}

// IsEmpty reports whether the selection has no filters.
func (s Selection) IsEmpty() bool {
	return len(s.Include) == 0 && len(s.Exclude) == 0
}

// Apply prunes instances of the environment envName. An empty selection
// returns instances unchanged. A non-empty selection on an environment
// without a matrix fails, as does a selection that keeps nothing.
func Apply(envName string, hasMatrix bool, instances []matrix.Instance, sel Selection) ([]matrix.Instance, error) {
	if sel.IsEmpty() {
		return instances, nil
	}
	if !hasMatrix {
		return nil, &UnsupportedSelectionError{Env: envName}
	}

	kept := make([]matrix.Instance, 0, len(instances))
	for _, inst := range instances {
		if sel.Matches(inst) {
			kept = append(kept, inst)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoEnvironmentsSelected
	}
	return kept, nil
}

// Matches reports whether inst survives every filter: each inclusion must
// hold and no exclusion may.
func (s Selection) Matches(inst matrix.Instance) bool {
	for _, f := range s.Include {
		if !f.matches(inst) {
			return false
		}
	}
	for _, f := range s.Exclude {
		if f.matches(inst) {
			return false
		}
	}
	return true
}

func (f Filter) matches(inst matrix.Instance) bool {
	value, ok := inst.Lookup(f.Name)
	if !ok {
		return false
	}
	return len(f.Values) == 0 || slices.Contains(f.Values, value)
}
