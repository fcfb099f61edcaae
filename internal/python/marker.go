// SPDX-License-Identifier: MPL-2.0

package python

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"unicode"
)

// versionMarkers are compared as versions rather than strings.
var versionMarkers = map[string]bool{
	"python_version":         true,
	"python_full_version":    true,
	"implementation_version": true,
}

type (
	// MarkerEnv maps marker variable names to their values.
	MarkerEnv map[string]string

	// Marker is a parsed PEP 508 environment marker expression.
	Marker struct {
		root markerNode
	}

	markerNode interface {
		eval(env MarkerEnv) bool
	}

	markerAnd struct{ left, right markerNode }
	markerOr  struct{ left, right markerNode }

	markerCompare struct {
		left, right markerValue
		op          string
	}

	markerValue struct {
		variable string
		literal  string
	}

	markerParser struct {
		tokens []string
		pos    int
	}
)

// DefaultMarkerEnv describes the current host for an interpreter of version v.
func DefaultMarkerEnv(v Version) MarkerEnv {
	sysPlatform := runtime.GOOS
	platformSystem := map[string]string{"linux": "Linux", "darwin": "Darwin", "windows": "Windows"}[runtime.GOOS]
	osName := "posix"
	switch runtime.GOOS {
	case "windows":
		sysPlatform, osName = "win32", "nt"
	}
	machine := map[string]string{"amd64": "x86_64", "arm64": "aarch64"}[runtime.GOARCH]
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		machine = "arm64"
	}
	return MarkerEnv{
		"python_version":                 v.Minor(),
		"python_full_version":            v.String(),
		"implementation_name":            "cpython",
		"implementation_version":         v.String(),
		"platform_python_implementation": "CPython",
		"sys_platform":                   sysPlatform,
		"platform_system":                platformSystem,
		"platform_machine":               machine,
		"os_name":                        osName,
	}
}

// ParseMarker parses a marker expression.
func ParseMarker(s string) (*Marker, error) {
	tokens, err := tokenizeMarker(s)
	if err != nil {
		return nil, err
	}
	p := &markerParser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("unexpected %q in marker", p.tokens[p.pos])
	}
	return &Marker{root: root}, nil
}

// Evaluate reports whether the marker holds in env.
func (m *Marker) Evaluate(env MarkerEnv) bool {
	return m.root.eval(env)
}

func (n markerAnd) eval(env MarkerEnv) bool { return n.left.eval(env) && n.right.eval(env) }
func (n markerOr) eval(env MarkerEnv) bool  { return n.left.eval(env) || n.right.eval(env) }

func (n markerCompare) eval(env MarkerEnv) bool {
	left, right := n.left.resolve(env), n.right.resolve(env)
	switch n.op {
	case "in":
		return strings.Contains(right, left)
	case "not in":
		return !strings.Contains(right, left)
	}

	if versionMarkers[n.left.variable] || versionMarkers[n.right.variable] {
		if spec, err := parseSpecifier(n.op + right); err == nil {
			if v, err := ParseVersion(left); err == nil {
				return spec.Contains(v)
			}
		}
	}
	switch n.op {
	case "==", "===":
		return left == right
	case "!=":
		return left != right
	case "<":
		return left < right
	case "<=":
		return left <= right
	case ">":
		return left > right
	case ">=":
		return left >= right
	}
	return false
}

func (v markerValue) resolve(env MarkerEnv) string {
	if v.variable != "" {
		return env[v.variable]
	}
	return v.literal
}

func (p *markerParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *markerParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *markerParser) parseOr() (markerNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = markerOr{left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAnd() (markerNode, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.peek() == "and" {
		p.next()
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = markerAnd{left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAtom() (markerNode, error) {
	if p.peek() == "(" {
		p.next()
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, errors.New("unbalanced parenthesis in marker")
		}
		return node, nil
	}

	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	op := p.next()
	if op == "not" {
		if p.next() != "in" {
			return nil, errors.New("expected `in` after `not` in marker")
		}
		op = "not in"
	}
	switch op {
	case "==", "!=", "<", "<=", ">", ">=", "~=", "===", "in", "not in":
	default:
		return nil, fmt.Errorf("invalid marker operator %q", op)
	}
	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return markerCompare{left: left, right: right, op: op}, nil
}

func (p *markerParser) parseValue() (markerValue, error) {
	tok := p.next()
	switch {
	case tok == "":
		return markerValue{}, errors.New("unexpected end of marker")
	case tok[0] == '"' || tok[0] == '\'':
		return markerValue{literal: tok[1 : len(tok)-1]}, nil
	case isIdentifier(tok):
		return markerValue{variable: tok}, nil
	}
	return markerValue{}, fmt.Errorf("unexpected %q in marker", tok)
}

func isIdentifier(s string) bool {
	for _, r := range s {
		if r != '_' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func tokenizeMarker(s string) ([]string, error) {
	var tokens []string
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(' || c == ')':
			tokens = append(tokens, string(c))
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, errors.New("unterminated string in marker")
			}
			tokens = append(tokens, s[i:i+end+2])
			i += end + 2
		case strings.ContainsRune("<>=!~", rune(c)):
			j := i
			for j < len(s) && strings.ContainsRune("<>=!~", rune(s[j])) {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		default:
			j := i
			for j < len(s) && !strings.ContainsRune(" \t()<>=!~\"'", rune(s[j])) {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		}
	}
	return tokens, nil
}
