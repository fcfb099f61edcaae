// SPDX-License-Identifier: MPL-2.0

package python

import (
	"path/filepath"
	"strings"
)

const (
	// ImplCPython is the reference interpreter.
	ImplCPython = "cpython"
	// ImplPyPy is the PyPy interpreter.
	ImplPyPy = "pypy"
)

// Request is a parsed `python` option value: a version such as 3.12 or 312,
// an implementation-qualified version such as pypy3.10, or a path.
type Request struct {
	Raw            string
	Implementation string
	// Version holds the requested release prefix, e.g. 3.12. Empty means any.
	Version string
	// Path is set when the request names an interpreter executable.
	Path string
}

// ParseRequest interprets a `python` option value.
func ParseRequest(raw string) Request {
	r := Request{Raw: raw, Implementation: ImplCPython}
	if raw == "" {
		return r
	}
	if filepath.IsAbs(raw) || strings.ContainsAny(raw, `/\`) {
		r.Path = raw
		return r
	}

	version := raw
	if rest, ok := strings.CutPrefix(strings.ToLower(raw), ImplPyPy); ok {
		r.Implementation, version = ImplPyPy, rest
	}
	if !strings.Contains(version, ".") && len(version) > 1 && isDigits(version) {
		version = version[:1] + "." + version[1:]
	}
	r.Version = version
	return r
}

// IsAny reports whether the request accepts any interpreter.
func (r Request) IsAny() bool {
	return r.Path == "" && r.Version == ""
}

// Matches reports whether an interpreter satisfies the request.
func (r Request) Matches(interp Interpreter) bool {
	if r.Path != "" {
		return true
	}
	if interp.Implementation != "" && interp.Implementation != r.Implementation {
		return false
	}
	if r.Version == "" {
		return true
	}
	prefix, err := ParseVersion(r.Version)
	if err != nil {
		return false
	}
	for i, n := range prefix.Release {
		if interp.Version.segment(i) != n {
			return false
		}
	}
	return true
}

// executableNames lists PATH names to probe for the request, most specific first.
func (r Request) executableNames() []string {
	base := "python"
	if r.Implementation == ImplPyPy {
		base = ImplPyPy
	}
	var names []string
	if r.Version != "" {
		names = append(names, base+r.Version)
	}
	if r.Version == "" || strings.HasPrefix(r.Version, "3") {
		names = append(names, base+"3")
	}
	return append(names, base)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
