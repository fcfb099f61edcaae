// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the project metadata file name.
const FileName = "pyproject.toml"

var (
	// ErrNotFound is returned when no pyproject.toml exists in the directory tree.
	ErrNotFound = errors.New("project not found")
	// ErrInvalidMetadata is the sentinel error wrapped by MetadataError.
	ErrInvalidMetadata = errors.New("invalid project metadata")

	nameNormalizer = regexp.MustCompile(`[-_.]+`)
)

type (
	// Project is the loaded metadata of a Python project.
	Project struct {
		// Root is the directory containing pyproject.toml.
		Root string
		// Path is the absolute path to pyproject.toml.
		Path string
		// Name is the declared project name, or the root directory name.
		Name string
		// Version is the static project version, empty when dynamic.
		Version string
		// Dependencies are the declared runtime requirements.
		Dependencies []string
		// OptionalDependencies maps feature names to their requirements.
		OptionalDependencies map[string][]string
		// RequiresPython is the declared interpreter constraint.
		RequiresPython string
		// Tool is the [tool.envrun] table; never nil.
		Tool *Table
	}

	// MetadataError reports a malformed field in pyproject.toml.
	MetadataError struct {
		Path  string
		Field string
		Err   error
	}

	pyproject struct {
		Project struct {
			Name                 string              `toml:"name"`
			Version              string              `toml:"version"`
			Dependencies         []string            `toml:"dependencies"`
			OptionalDependencies map[string][]string `toml:"optional-dependencies"`
			RequiresPython       string              `toml:"requires-python"`
		} `toml:"project"`
	}
)

// Error implements the error interface.
func (e *MetadataError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: field `%s`: %v", e.Path, e.Field, e.Err)
}

// Unwrap returns ErrInvalidMetadata for errors.Is() compatibility.
func (e *MetadataError) Unwrap() error { return ErrInvalidMetadata }

// Find walks from dir towards the filesystem root and returns the first
// directory holding a pyproject.toml.
func Find(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	for {
		if info, statErr := os.Stat(filepath.Join(abs, FileName)); statErr == nil && !info.IsDir() {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNotFound
		}
		abs = parent
	}
}

// Load reads and parses the pyproject.toml located in root.
func Load(root string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	path := filepath.Join(abs, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project metadata: %w", err)
	}
	return Parse(abs, path, data)
}

// Parse builds a Project from pyproject.toml content.
func Parse(root, path string, data []byte) (*Project, error) {
	var meta pyproject
	if err := toml.Unmarshal(data, &meta); err != nil {
		return nil, &MetadataError{Path: path, Err: describeDecodeError(err)}
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, &MetadataError{Path: path, Err: describeDecodeError(err)}
	}
	order, err := scanKeyOrder(data)
	if err != nil {
		return nil, &MetadataError{Path: path, Err: err}
	}

	p := &Project{
		Root:                 root,
		Path:                 path,
		Name:                 meta.Project.Name,
		Version:              meta.Project.Version,
		Dependencies:         meta.Project.Dependencies,
		OptionalDependencies: meta.Project.OptionalDependencies,
		RequiresPython:       meta.Project.RequiresPython,
		Tool:                 &Table{values: map[string]any{}},
	}
	if p.Name == "" {
		p.Name = filepath.Base(root)
	}

	if tool, ok := raw["tool"].(map[string]any); ok {
		if section, present := tool["envrun"]; present {
			table, isTable := section.(map[string]any)
			if !isTable {
				return nil, &MetadataError{Path: path, Field: "tool.envrun", Err: errors.New("must be a table")}
			}
			p.Tool = buildTable(table, []string{"tool", "envrun"}, order)
		}
	}
	return p, nil
}

// NormalizedName returns the PEP 503 normalized project name.
func (p *Project) NormalizedName() string {
	return NormalizeName(p.Name)
}

// Features returns the requirements of the given optional features.
func (p *Project) Features(names []string) ([]string, error) {
	var deps []string
	for _, name := range names {
		feature, ok := p.OptionalDependencies[name]
		if !ok {
			for declared, reqs := range p.OptionalDependencies {
				if NormalizeName(declared) == NormalizeName(name) {
					feature, ok = reqs, true
					break
				}
			}
		}
		if !ok {
			return nil, &MetadataError{Path: p.Path, Field: "project.optional-dependencies", Err: fmt.Errorf("feature `%s` is not defined", name)}
		}
		deps = append(deps, feature...)
	}
	return deps, nil
}

// EnvRequires returns the environment plugin requirements declared under
// [tool.envrun.env] requires.
func (p *Project) EnvRequires() []string {
	v, ok := p.Tool.Table("env").Get("requires")
	if !ok {
		return nil
	}
	return Strings(v)
}

// NormalizeName applies PEP 503 normalization to a distribution name.
func NormalizeName(name string) string {
	return strings.ToLower(nameNormalizer.ReplaceAllString(name, "-"))
}

// Strings converts a decoded TOML value into a string list. A single string
// becomes a one-element list; non-string elements are formatted.
func Strings(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []string{val}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, Scalar(item))
		}
		return out
	default:
		return []string{Scalar(val)}
	}
}

// Scalar formats a decoded TOML scalar as a string.
func Scalar(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func describeDecodeError(err error) error {
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, col := decodeErr.Position()
		return fmt.Errorf("line %d, column %d: %s", row, col, decodeErr.Error())
	}
	return err
}
