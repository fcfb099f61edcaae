// SPDX-License-Identifier: MPL-2.0

package project

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2/unstable"
)

// pathSep joins path segments in the key order index. TOML keys may contain
// dots when quoted, so a control character is used instead.
const pathSep = "\x1f"

type (
	// Table is a TOML table that remembers the declaration order of its keys.
	// Values are scalars, []any (whose elements may be *Table) or *Table.
	Table struct {
		keys   []string
		values map[string]any
	}

	// keyOrder maps a joined table path to its keys in declaration order.
	keyOrder map[string][]string
)

// NewTable builds a Table from a plain map, ordering keys lexically.
// It is mostly useful for tests and for tables assembled in code.
func NewTable(values map[string]any) *Table {
	return buildTable(values, nil, nil)
}

// Keys returns the table keys in declaration order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.keys)
}

// Len returns the number of keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Has reports whether key is present.
func (t *Table) Has(key string) bool {
	if t == nil {
		return false
	}
	_, ok := t.values[key]
	return ok
}

// Get returns the raw value stored under key.
func (t *Table) Get(key string) (any, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.values[key]
	return v, ok
}

// Table returns the sub-table stored under key, or nil.
func (t *Table) Table(key string) *Table {
	v, _ := t.Get(key)
	sub, _ := v.(*Table)
	return sub
}

// Without returns a shallow copy of the table without the given keys.
func (t *Table) Without(keys ...string) *Table {
	out := &Table{values: make(map[string]any)}
	if t == nil {
		return out
	}
	for _, k := range t.keys {
		if slices.Contains(keys, k) {
			continue
		}
		out.keys = append(out.keys, k)
		out.values[k] = t.values[k]
	}
	return out
}

// Set stores value under key, appending the key when it is new.
func (t *Table) Set(key string, value any) {
	if t.values == nil {
		t.values = make(map[string]any)
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// Map converts the table into plain nested maps and slices.
func (t *Table) Map() map[string]any {
	if t == nil {
		return nil
	}
	out := make(map[string]any, len(t.keys))
	for _, k := range t.keys {
		out[k] = plain(t.values[k])
	}
	return out
}

func plain(v any) any {
	switch val := v.(type) {
	case *Table:
		return val.Map()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// buildTable converts a decoded map into an ordered Table. Keys known to the
// order index come first in declaration order, the rest follow sorted.
func buildTable(values map[string]any, path []string, order keyOrder) *Table {
	t := &Table{values: make(map[string]any, len(values))}

	declared := order[strings.Join(path, pathSep)]
	for _, k := range declared {
		if _, ok := values[k]; ok && !slices.Contains(t.keys, k) {
			t.keys = append(t.keys, k)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(values)) {
		if !slices.Contains(t.keys, k) {
			t.keys = append(t.keys, k)
		}
	}

	for _, k := range t.keys {
		t.values[k] = buildValue(values[k], append(slices.Clone(path), k), order)
	}
	return t
}

func buildValue(v any, path []string, order keyOrder) any {
	switch val := v.(type) {
	case map[string]any:
		return buildTable(val, path, order)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = buildValue(item, append(slices.Clone(path), strconv.Itoa(i)), order)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = buildTable(item, append(slices.Clone(path), strconv.Itoa(i)), order)
		}
		return out
	default:
		return v
	}
}

// scanKeyOrder walks the document expressions and records, for every table
// path, the order in which its keys were declared. Array tables and arrays
// of inline tables get one path segment per element index.
func scanKeyOrder(data []byte) (keyOrder, error) {
	order := make(keyOrder)
	arrayCounts := make(map[string]int)

	var p unstable.Parser
	p.Reset(data)

	var prefix []string
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			prefix = prefix[:0]
			parts := keyParts(expr.Key())
			for i, part := range parts {
				order.add(prefix, part)
				prefix = append(prefix, part)
				joined := strings.Join(prefix, pathSep)
				if expr.Kind == unstable.ArrayTable && i == len(parts)-1 {
					arrayCounts[joined]++
				}
				if n, ok := arrayCounts[joined]; ok {
					prefix = append(prefix, strconv.Itoa(n-1))
				}
			}
		case unstable.KeyValue:
			order.keyValue(prefix, expr)
		}
	}
	if err := p.Error(); err != nil {
		return nil, fmt.Errorf("scan key order: %w", err)
	}
	return order, nil
}

func (o keyOrder) keyValue(prefix []string, kv *unstable.Node) {
	path := slices.Clone(prefix)
	for _, part := range keyParts(kv.Key()) {
		o.add(path, part)
		path = append(path, part)
	}
	o.value(path, kv.Value())
}

func (o keyOrder) value(path []string, v *unstable.Node) {
	switch v.Kind {
	case unstable.InlineTable:
		it := v.Children()
		for it.Next() {
			o.keyValue(path, it.Node())
		}
	case unstable.Array:
		it := v.Children()
		for i := 0; it.Next(); i++ {
			o.value(append(slices.Clone(path), strconv.Itoa(i)), it.Node())
		}
	}
}

func (o keyOrder) add(path []string, key string) {
	joined := strings.Join(path, pathSep)
	if !slices.Contains(o[joined], key) {
		o[joined] = append(o[joined], key)
	}
}

func keyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}
