// SPDX-License-Identifier: MPL-2.0

package matrix

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/envrun/envrun/pkg/platform"
	"github.com/envrun/envrun/pkg/project"
)

const (
	// SourceMatrix rules fire on the value of a matrix variable.
	SourceMatrix Source = "matrix"
	// SourcePlatform rules fire on the host platform.
	SourcePlatform Source = "platform"
	// SourceEnv rules fire on the value of a process environment variable.
	SourceEnv Source = "env"

	setPrefix = "set-"
)

type (
	// Source names what an override rule is keyed by.
	Source string

	// Rule patches one option when its source condition holds. Rules are
	// evaluated in declaration order; later rules win on conflict.
	Rule struct {
		Source   Source
		Selector string
		Option   string
		// Set replaces the option instead of appending or merging.
		Set     bool
		Entries []Entry
	}

	// Entry is one candidate value of a rule with its own conditions.
	Entry struct {
		// Value is a []string for list options, a map[string]any for map
		// options and the raw scalar otherwise.
		Value any
		// If lists the selector values for which the entry applies.
		If []string
		// Platforms further restricts the entry to these platforms.
		Platforms []string
		// Env further restricts the entry to these environment variables,
		// written NAME or NAME=VALUE.
		Env []string
	}

	// Host describes the machine overrides are evaluated on.
	Host struct {
		Platform platform.Name
		Environ  map[string]string
	}
)

func parseOverrides(env string, overrides *project.Table) ([]Rule, error) {
	var rules []Rule
	for _, src := range []Source{SourceMatrix, SourcePlatform, SourceEnv} {
		selectors := overrides.Table(string(src))
		if selectors == nil {
			if overrides.Has(string(src)) {
				return nil, &ConfigError{Env: env, Field: "overrides." + string(src), Err: errors.New("must be a table")}
			}
			continue
		}
		for _, selector := range selectors.Keys() {
			options := selectors.Table(selector)
			if options == nil {
				return nil, &ConfigError{Env: env, Field: fmt.Sprintf("overrides.%s.%s", src, selector), Err: errors.New("must be a table")}
			}
			for _, key := range options.Keys() {
				field := fmt.Sprintf("overrides.%s.%s.%s", src, selector, key)
				raw, _ := options.Get(key)
				rule := Rule{Source: src, Selector: selector, Option: key}
				if name, ok := strings.CutPrefix(key, setPrefix); ok {
					rule.Option, rule.Set = name, true
				}
				entries, err := parseEntries(rule.Option, raw)
				if err != nil {
					return nil, &ConfigError{Env: env, Field: field, Err: err}
				}
				rule.Entries = entries
				rules = append(rules, rule)
			}
		}
	}
	for _, key := range overrides.Keys() {
		switch Source(key) {
		case SourceMatrix, SourcePlatform, SourceEnv:
		default:
			return nil, &ConfigError{Env: env, Field: "overrides." + key, Err: errors.New("is not a known override source (matrix, platform, env)")}
		}
	}
	return rules, nil
}

func parseEntries(option string, raw any) ([]Entry, error) {
	kind := optionKind(option)
	switch val := raw.(type) {
	case *project.Table:
		if val.Has("value") || (kind == "map" && val.Has("key")) {
			entry, err := parseConditional(kind, val)
			if err != nil {
				return nil, err
			}
			return []Entry{entry}, nil
		}
		if kind != "map" {
			return nil, errors.New("must define a `value`")
		}
		return []Entry{{Value: plainMap(val)}}, nil
	case []any:
		entries := make([]Entry, 0, len(val))
		for i, item := range val {
			if tbl, ok := item.(*project.Table); ok {
				entry, err := parseConditional(kind, tbl)
				if err != nil {
					return nil, fmt.Errorf("entry #%d: %w", i+1, err)
				}
				entries = append(entries, entry)
				continue
			}
			entry, err := plainEntry(kind, item)
			if err != nil {
				return nil, fmt.Errorf("entry #%d: %w", i+1, err)
			}
			entries = append(entries, entry)
		}
		return entries, nil
	default:
		entry, err := plainEntry(kind, raw)
		if err != nil {
			return nil, err
		}
		return []Entry{entry}, nil
	}
}

func parseConditional(kind string, tbl *project.Table) (Entry, error) {
	entry := Entry{}
	if v, ok := tbl.Get("if"); ok {
		entry.If = project.Strings(v)
	}
	if v, ok := tbl.Get("platform"); ok {
		entry.Platforms = project.Strings(v)
	}
	if v, ok := tbl.Get("env"); ok {
		entry.Env = project.Strings(v)
	}

	value, hasValue := tbl.Get("value")
	switch kind {
	case "map":
		key, hasKey := tbl.Get("key")
		switch {
		case hasKey:
			entry.Value = map[string]any{project.Scalar(key): mapValue(value)}
		case hasValue:
			plain, err := plainEntry(kind, value)
			if err != nil {
				return Entry{}, err
			}
			entry.Value = plain.Value
		default:
			return Entry{}, errors.New("must define a `key` or a `value`")
		}
	case "list":
		if !hasValue {
			return Entry{}, errors.New("must define a `value`")
		}
		entry.Value = project.Strings(value)
	default:
		if !hasValue {
			return Entry{}, errors.New("must define a `value`")
		}
		entry.Value = value
	}
	return entry, nil
}

func plainEntry(kind string, v any) (Entry, error) {
	switch kind {
	case "list":
		return Entry{Value: project.Strings(v)}, nil
	case "map":
		switch val := v.(type) {
		case string:
			name, value, ok := strings.Cut(val, "=")
			if !ok {
				return Entry{}, fmt.Errorf("`%s` must be written as KEY=VALUE", val)
			}
			return Entry{Value: map[string]any{name: value}}, nil
		case *project.Table:
			return Entry{Value: plainMap(val)}, nil
		default:
			return Entry{}, fmt.Errorf("unsupported value %v", v)
		}
	default:
		return Entry{Value: v}, nil
	}
}

func plainMap(tbl *project.Table) map[string]any {
	out := make(map[string]any, tbl.Len())
	for _, k := range tbl.Keys() {
		v, _ := tbl.Get(k)
		out[k] = mapValue(v)
	}
	return out
}

// mapValue keeps string lists (script commands) and formats scalars.
func mapValue(v any) any {
	if list, ok := v.([]any); ok {
		out := make([]any, 0, len(list))
		for _, s := range project.Strings(list) {
			out = append(out, s)
		}
		return out
	}
	return project.Scalar(v)
}

// applyOverrides patches options in place for one instance.
func applyOverrides(options map[string]any, rules []Rule, assignment []Assignment, host Host) {
	for _, rule := range rules {
		selectorValue, applies := rule.selectorValue(assignment, host)
		if !applies {
			continue
		}
		var matched []Entry
		for _, entry := range rule.Entries {
			if entry.matches(rule.Source, selectorValue, host) {
				matched = append(matched, entry)
			}
		}
		if len(matched) == 0 {
			continue
		}
		switch optionKind(rule.Option) {
		case "list":
			applyList(options, rule, matched)
		case "map":
			applyMap(options, rule, matched)
		default:
			options[rule.Option] = matched[len(matched)-1].Value
		}
	}
}

func (r Rule) selectorValue(assignment []Assignment, host Host) (string, bool) {
	switch r.Source {
	case SourceMatrix:
		for _, a := range assignment {
			if CanonicalVariable(a.Variable) == CanonicalVariable(r.Selector) {
				return a.Value, true
			}
		}
		return "", false
	case SourcePlatform:
		return string(host.Platform), platform.Matches([]string{r.Selector}, host.Platform)
	case SourceEnv:
		v, ok := host.Environ[r.Selector]
		return v, ok
	}
	return "", false
}

func (e Entry) matches(src Source, selectorValue string, host Host) bool {
	if len(e.If) > 0 && src != SourcePlatform && !slices.Contains(e.If, selectorValue) {
		return false
	}
	if len(e.Platforms) > 0 && !platform.Matches(e.Platforms, host.Platform) {
		return false
	}
	for _, cond := range e.Env {
		name, want, hasValue := strings.Cut(cond, "=")
		got, ok := host.Environ[name]
		if !ok || (hasValue && got != want) {
			return false
		}
	}
	return true
}

func applyList(options map[string]any, rule Rule, matched []Entry) {
	var values []any
	for _, entry := range matched {
		for _, s := range project.Strings(entry.Value) {
			values = append(values, s)
		}
	}
	if rule.Set {
		options[rule.Option] = values
		return
	}
	existing, _ := options[rule.Option].([]any)
	if s, ok := options[rule.Option].(string); ok {
		existing = []any{s}
	}
	options[rule.Option] = append(slices.Clone(existing), values...)
}

func applyMap(options map[string]any, rule Rule, matched []Entry) {
	merged := map[string]any{}
	if !rule.Set {
		if existing, ok := options[rule.Option].(map[string]any); ok {
			merged = maps.Clone(existing)
		}
	}
	for _, entry := range matched {
		m, _ := entry.Value.(map[string]any)
		maps.Copy(merged, m)
	}
	options[rule.Option] = merged
}
