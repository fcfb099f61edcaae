// SPDX-License-Identifier: MPL-2.0

package python

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/envrun/envrun/pkg/project"
)

var requirementName = regexp.MustCompile(`^\s*([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*`)

// Requirement is a parsed PEP 508 dependency specifier.
type Requirement struct {
	Raw string
	// Name is normalized per PEP 503.
	Name       string
	Extras     []string
	Specifiers SpecifierSet
	URL        string
	Marker     *Marker
}

// ParseRequirement parses one dependency string such as
// "requests[socks]>=2.31; python_version >= '3.8'".
func ParseRequirement(s string) (Requirement, error) {
	req := Requirement{Raw: s}

	body, marker, hasMarker := cutMarker(s)
	if hasMarker {
		m, err := ParseMarker(marker)
		if err != nil {
			return Requirement{}, fmt.Errorf("requirement %q: %w", s, err)
		}
		req.Marker = m
	}

	loc := requirementName.FindStringSubmatchIndex(body)
	if loc == nil {
		return Requirement{}, fmt.Errorf("requirement %q: missing project name", s)
	}
	req.Name = project.NormalizeName(body[loc[2]:loc[3]])
	rest := body[loc[1]:]

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return Requirement{}, fmt.Errorf("requirement %q: unterminated extras", s)
		}
		for extra := range strings.SplitSeq(rest[1:end], ",") {
			if extra = strings.TrimSpace(extra); extra != "" {
				req.Extras = append(req.Extras, project.NormalizeName(extra))
			}
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	if url, ok := strings.CutPrefix(rest, "@"); ok {
		req.URL = strings.TrimSpace(url)
		return req, nil
	}

	rest = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")"))
	if rest != "" {
		specs, err := ParseSpecifierSet(rest)
		if err != nil {
			return Requirement{}, fmt.Errorf("requirement %q: %w", s, err)
		}
		req.Specifiers = specs
	}
	return req, nil
}

// cutMarker splits off the environment marker. URL requirements need a space
// before the semicolon, everything else may omit it.
func cutMarker(s string) (body, marker string, ok bool) {
	if strings.Contains(s, "@") {
		if i := strings.Index(s, " ;"); i >= 0 {
			return s[:i], strings.TrimSpace(s[i+2:]), true
		}
		return s, "", false
	}
	if i := strings.IndexByte(s, ';'); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:]), true
	}
	return s, "", false
}

// Applies reports whether the requirement's marker holds in env. A
// requirement without a marker always applies.
func (r Requirement) Applies(env MarkerEnv) bool {
	return r.Marker == nil || r.Marker.Evaluate(env)
}

// SatisfiedBy reports whether an installed version meets the requirement.
// URL requirements are satisfied by any installed version.
func (r Requirement) SatisfiedBy(installed Version) bool {
	if r.URL != "" {
		return true
	}
	return r.Specifiers.Contains(installed)
}
