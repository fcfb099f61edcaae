// SPDX-License-Identifier: MPL-2.0

package formatter

import (
	"os"
	"slices"
	"strconv"
	"strings"
)

const (
	fieldEnv       = "env"
	fieldMatrix    = "matrix"
	fieldVerbosity = "verbosity"
)

type (
	// Context is an immutable snapshot of everything a template may reference.
	Context struct {
		// Environ is the process environment.
		Environ map[string]string
		// EnvVars are declared environment variables. They take precedence
		// over Environ and their values are templates expanded on lookup.
		// A declared variable referring to itself reads Environ instead.
		EnvVars map[string]string
		// Fields holds plain replacement fields such as args, root and home.
		Fields map[string]string
		// Matrix holds the matrix variable assignment of the current instance.
		Matrix map[string]string
		// Verbosity is the invocation verbosity; negative values mean quiet.
		Verbosity int
	}

	// expander carries the per-call expansion stack used for cycle detection.
	expander struct {
		ctx   Context
		stack []string
	}
)

// Format expands every replacement field in template using ctx.
func Format(template string, ctx Context) (string, error) {
	e := &expander{ctx: ctx}
	return e.expand(template)
}

// FormatEnvVar returns the value of the declared variable name, expanding
// its template against ctx.
func FormatEnvVar(name string, ctx Context) (string, error) {
	e := &expander{ctx: ctx}
	return e.env(name)
}

// EnvironFromOS snapshots os.Environ into a map.
func EnvironFromOS() map[string]string {
	return EnvironFromList(os.Environ())
}

// EnvironFromList converts KEY=VALUE entries into a map. Later entries win.
func EnvironFromList(entries []string) map[string]string {
	env := make(map[string]string, len(entries))
	for _, entry := range entries {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || name == "" {
			continue
		}
		env[name] = value
	}
	return env
}

func (e *expander) expand(template string) (string, error) {
	if !strings.ContainsAny(template, "{}") {
		return template, nil
	}

	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		switch template[i] {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			end := closingBrace(template, i)
			if end < 0 {
				return "", &SyntaxError{Template: template, Offset: i, Reason: "unclosed replacement field"}
			}
			value, err := e.field(template[i+1 : end])
			if err != nil {
				return "", err
			}
			b.WriteString(value)
			i = end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i += 2
				continue
			}
			return "", &SyntaxError{Template: template, Offset: i, Reason: "single '}' encountered"}
		default:
			b.WriteByte(template[i])
			i++
		}
	}

	return b.String(), nil
}

// closingBrace returns the index of the brace closing the field opened at
// start, honoring nested fields inside defaults, or -1.
func closingBrace(s string, start int) int {
	depth := 0
	for j := start; j < len(s); j++ {
		switch s[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func (e *expander) field(spec string) (string, error) {
	name, data, hasData := strings.Cut(spec, ":")

	switch name {
	case fieldEnv:
		return e.env(data)
	case fieldMatrix:
		return e.matrix(data)
	case fieldVerbosity:
		return e.verbosity(data, hasData)
	case "/":
		return string(os.PathSeparator), nil
	case ";":
		return string(os.PathListSeparator), nil
	}

	value, ok := e.ctx.Fields[name]
	if ok && value != "" {
		return value, nil
	}
	if hasData {
		return e.nested("field:"+name, data)
	}
	if ok {
		return "", nil
	}
	return "", &UnknownFieldError{Field: name}
}

func (e *expander) env(data string) (string, error) {
	name, def, hasDefault := strings.Cut(data, ":")
	if name == "" {
		return "", &UnknownFieldError{Field: fieldEnv}
	}

	key := fieldEnv + ":" + name
	tmpl, declared := e.ctx.EnvVars[name]
	// A declared variable referring to itself reads the inherited value.
	inherited := declared && len(e.stack) > 0 && e.stack[len(e.stack)-1] == key
	if declared && !inherited {
		return e.nested(key, tmpl)
	}
	if value, ok := e.ctx.Environ[name]; ok {
		return value, nil
	}
	if hasDefault {
		if inherited {
			return e.expand(def)
		}
		return e.nested(key, def)
	}
	return "", &MissingEnvVarError{Name: name}
}

func (e *expander) matrix(data string) (string, error) {
	name, def, hasDefault := strings.Cut(data, ":")
	if value, ok := e.ctx.Matrix[name]; ok {
		return value, nil
	}
	if hasDefault {
		return e.nested(fieldMatrix+":"+name, def)
	}
	return "", &UnknownFieldError{Field: fieldMatrix + ":" + name}
}

func (e *expander) verbosity(data string, hasData bool) (string, error) {
	v := e.ctx.Verbosity
	if !hasData {
		return strconv.Itoa(v), nil
	}
	if data != "flag" {
		return "", &UnknownFieldError{Field: fieldVerbosity + ":" + data}
	}
	switch {
	case v > 0:
		return "-" + strings.Repeat("v", v), nil
	case v < 0:
		return "-" + strings.Repeat("q", -v), nil
	default:
		return "", nil
	}
}

// nested expands a template on behalf of key, refusing to re-enter a key
// that is already being expanded.
func (e *expander) nested(key, template string) (string, error) {
	if slices.Contains(e.stack, key) {
		chain := append(slices.Clone(e.stack), key)
		return "", &RecursionError{Chain: chain}
	}
	e.stack = append(e.stack, key)
	defer func() { e.stack = e.stack[:len(e.stack)-1] }()
	return e.expand(template)
}
