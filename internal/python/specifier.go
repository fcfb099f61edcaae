// SPDX-License-Identifier: MPL-2.0

package python

import (
	"fmt"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

var specifierOperators = []string{"===", "~=", "==", "!=", "<=", ">=", "<", ">"}

type (
	// Specifier is one version clause such as >=3.9 or ==3.12.*.
	Specifier struct {
		Op  string
		Raw string

		check pep440.Specifiers
	}

	// SpecifierSet is a comma separated list of specifiers that must all hold.
	// The empty set admits every version.
	SpecifierSet []Specifier
)

// ParseSpecifierSet parses a PEP 440 version specifier list.
func ParseSpecifierSet(s string) (SpecifierSet, error) {
	var set SpecifierSet
	for clause := range strings.SplitSeq(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		spec, err := parseSpecifier(clause)
		if err != nil {
			return nil, err
		}
		set = append(set, spec)
	}
	return set, nil
}

// parseSpecifier parses one clause. Interpreter and package versions may be
// pre-releases, so they are admitted unless the clause itself excludes them.
func parseSpecifier(clause string) (Specifier, error) {
	for _, op := range specifierOperators {
		raw, ok := strings.CutPrefix(clause, op)
		if !ok {
			continue
		}
		spec := Specifier{Op: op, Raw: strings.TrimSpace(raw)}
		if spec.Raw == "" {
			return Specifier{}, fmt.Errorf("invalid specifier %q: missing version", clause)
		}
		check, err := pep440.NewSpecifiers(spec.String(), pep440.WithPreRelease(true))
		if err != nil {
			return Specifier{}, fmt.Errorf("invalid specifier %q: %w", clause, err)
		}
		spec.check = check
		return spec, nil
	}
	return Specifier{}, fmt.Errorf("invalid specifier %q: missing operator", clause)
}

// String renders the set without whitespace.
func (s SpecifierSet) String() string {
	parts := make([]string, len(s))
	for i, spec := range s {
		parts[i] = spec.String()
	}
	return strings.Join(parts, ",")
}

// String renders the specifier.
func (s Specifier) String() string {
	return s.Op + s.Raw
}

// Contains reports whether v satisfies every specifier of the set.
func (s SpecifierSet) Contains(v Version) bool {
	for _, spec := range s {
		if !spec.Contains(v) {
			return false
		}
	}
	return true
}

// Contains reports whether v satisfies the specifier. An unknown version
// satisfies nothing.
func (s Specifier) Contains(v Version) bool {
	if !v.known() {
		return false
	}
	return s.check.Check(v.pep)
}
