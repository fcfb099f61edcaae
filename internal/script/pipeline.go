// SPDX-License-Identifier: MPL-2.0

package script

import (
	"errors"
	"strings"

	"github.com/envrun/envrun/internal/dag"
	"github.com/envrun/envrun/internal/shell"
)

const (
	ignoreMarker = "- "
	argsField    = "{args"
)

type (
	// Entry is one command of a pipeline, before expansion.
	Entry struct {
		// Index is the 1-based position in the pipeline.
		Index int
		// Template is the command text without the ignore marker.
		Template string
		// IgnoreError is set by a leading "- " marker.
		IgnoreError bool
	}

	// Pipeline is an ordered list of entries and the arguments they share.
	Pipeline struct {
		Entries []Entry
		// Args is the shell-quoted extra arguments, exposed as {args}.
		Args string
	}
)

// Display returns the text echoed for the entry once expanded, keeping the
// ignore marker.
func (e Entry) Display(expanded string) string {
	if e.IgnoreError {
		return ignoreMarker + expanded
	}
	return expanded
}

// Resolve builds the pipeline for command. A declared script expands to its
// entries, following references to other scripts; anything else is run
// literally with {args} appended. When no entry mentions {args} and
// arguments were given, they are appended to the last entry.
func Resolve(scripts map[string][]string, command string, args []string) (Pipeline, error) {
	quoted, err := shell.QuoteArgs(args)
	if err != nil {
		return Pipeline{}, err
	}

	var templates []step
	if _, ok := scripts[command]; ok {
		if err := checkCycles(scripts, command); err != nil {
			return Pipeline{}, err
		}
		templates = expandScript(scripts, command)
	} else {
		templates = []step{{text: command}}
	}

	if quoted != "" && len(templates) > 0 && !mentionsArgs(templates) {
		last := &templates[len(templates)-1]
		last.text += " " + argsField + "}"
	}

	p := Pipeline{Args: quoted, Entries: make([]Entry, len(templates))}
	for i, s := range templates {
		p.Entries[i] = Entry{Index: i + 1, Template: s.text, IgnoreError: s.ignore}
	}
	return p, nil
}

type step struct {
	text   string
	ignore bool
}

func expandScript(scripts map[string][]string, name string) []step {
	var out []step
	for _, raw := range scripts[name] {
		ignore, body := cutIgnoreMarker(raw)
		word, rest := splitReference(body)
		if _, ok := scripts[word]; !ok {
			out = append(out, step{text: body, ignore: ignore})
			continue
		}
		for _, s := range expandScript(scripts, word) {
			if rest != "" {
				s.text += " " + rest
			}
			s.ignore = s.ignore || ignore
			out = append(out, s)
		}
	}
	return out
}

func checkCycles(scripts map[string][]string, root string) error {
	g := dag.New()
	for name, entries := range scripts {
		g.AddNode(name)
		for _, raw := range entries {
			_, body := cutIgnoreMarker(raw)
			if word, _ := splitReference(body); word != "" {
				if _, ok := scripts[word]; ok {
					g.AddEdge(name, word)
				}
			}
		}
	}

	err := g.FindCycle(root)
	var cycleErr *dag.CycleError
	if errors.As(err, &cycleErr) {
		return &CycleError{Path: cycleErr.Path}
	}
	return err
}

func cutIgnoreMarker(raw string) (bool, string) {
	if body, ok := strings.CutPrefix(raw, ignoreMarker); ok {
		return true, strings.TrimSpace(body)
	}
	return false, strings.TrimSpace(raw)
}

// splitReference splits an entry into its first word and the rest.
func splitReference(body string) (string, string) {
	word, rest, _ := strings.Cut(body, " ")
	return word, strings.TrimSpace(rest)
}

func mentionsArgs(steps []step) bool {
	for _, s := range steps {
		if strings.Contains(s.text, argsField) {
			return true
		}
	}
	return false
}
