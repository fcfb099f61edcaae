// SPDX-License-Identifier: MPL-2.0

package inline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/envrun/envrun/internal/environment"
	"github.com/envrun/envrun/internal/matrix"
	"github.com/envrun/envrun/internal/python"
	"github.com/envrun/envrun/internal/shell"
)

const blockType = "script"

var (
	// ErrMultipleBlocks is returned when a script declares more than one metadata block.
	ErrMultipleBlocks = errors.New("multiple script metadata blocks")

	blockPattern = regexp.MustCompile(`(?m)^# /// (?P<type>[a-zA-Z0-9-]+)[ \t]*\r?\n(?P<content>(?:^#(?:| .*)\r?\n)*?)^# ///[ \t]*$`)
)

type (
	// Metadata is the content of a script metadata block.
	Metadata struct {
		Dependencies   []string `toml:"dependencies"`
		RequiresPython string   `toml:"requires-python"`
		Tool           struct {
			Envrun map[string]any `toml:"envrun"`
		} `toml:"tool"`
	}

	// Script is a Python file with inline metadata.
	Script struct {
		// Path is absolute.
		Path string
		// ID names the script's environment.
		ID       string
		Metadata Metadata
	}

	// PythonResolver picks the newest interpreter satisfying a constraint.
	PythonResolver interface {
		MaxCompatible(ctx context.Context, constraint python.SpecifierSet) (string, error)
	}
)

// Parse extracts the script metadata block from src. It reports false when
// there is none.
func Parse(src []byte) (Metadata, bool, error) {
	var (
		meta  Metadata
		found bool
	)
	for _, m := range blockPattern.FindAllSubmatch(src, -1) {
		if string(m[1]) != blockType {
			continue
		}
		if found {
			return Metadata{}, false, ErrMultipleBlocks
		}
		found = true
		if err := toml.Unmarshal([]byte(uncomment(string(m[2]))), &meta); err != nil {
			return Metadata{}, false, fmt.Errorf("script metadata: %w", err)
		}
	}
	return meta, found, nil
}

// uncomment strips the leading "#" or "# " from every content line.
func uncomment(content string) string {
	var b strings.Builder
	for line := range strings.Lines(content) {
		line = strings.TrimPrefix(line, "#")
		line = strings.TrimPrefix(line, " ")
		b.WriteString(line)
	}
	return b.String()
}

// Load reads path and returns its script metadata. It reports false when
// path is not a regular .py file with a metadata block.
func Load(path string) (*Script, bool, error) {
	if filepath.Ext(path) != ".py" {
		return nil, false, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false, nil
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, false, fmt.Errorf("read script: %w", err)
	}
	meta, found, err := Parse(src)
	if err != nil || !found {
		return nil, false, err
	}
	return &Script{Path: abs, ID: environment.PathID(abs), Metadata: meta}, true, nil
}

// Spec returns the environment of the script. The python option of
// [tool.envrun] wins over requires-python; otherwise the newest interpreter
// satisfying requires-python is chosen, failing before anything is created.
func (s *Script) Spec(ctx context.Context, storage environment.Storage, root string, resolver PythonResolver) (environment.Spec, error) {
	settings, err := matrix.DecodeSettings(s.ID, s.Metadata.Tool.Envrun)
	if err != nil {
		return environment.Spec{}, err
	}
	settings.Type = matrix.TypeVirtual
	settings.SkipInstall = true
	settings.Dependencies = append(append([]string(nil), s.Metadata.Dependencies...), settings.Dependencies...)

	if settings.Python == "" && s.Metadata.RequiresPython != "" {
		constraint, err := python.ParseSpecifierSet(s.Metadata.RequiresPython)
		if err != nil {
			return environment.Spec{}, fmt.Errorf("requires-python: %w", err)
		}
		settings.Python, err = resolver.MaxCompatible(ctx, constraint)
		if err != nil {
			return environment.Spec{}, err
		}
	}

	return environment.Spec{
		Name:     s.ID,
		Settings: settings,
		Root:     root,
		Dir:      storage.ScriptDir(s.Path),
		Store:    environment.NewMetadataStore(storage.MetadataPath(environment.ScriptsDirName, s.Path)),
	}, nil
}

// Command is the literal command running the script with the environment's
// interpreter. Braces in the path are escaped for the context formatter.
func (s *Script) Command() (string, error) {
	quoted, err := shell.QuoteArgs([]string{s.Path})
	if err != nil {
		return "", err
	}
	quoted = strings.NewReplacer("{", "{{", "}", "}}").Replace(quoted)
	return "python " + quoted, nil
}
