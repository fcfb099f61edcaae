// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"crypto/sha256"
	"encoding/base64"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	idLength = 8
	// ScriptsDirName holds the environments of inline-metadata scripts.
	ScriptsDirName = ".scripts"
	metadataDir    = ".metadata"
	pluginsDir     = ".plugins"
)

// Storage lays out environment directories beneath a data directory.
type Storage struct {
	DataDir string
}

// PathID returns the short identifier of path: the first characters of the
// URL-safe base64 SHA-256 digest. Paths are case-folded on platforms with
// case-insensitive filesystems.
func PathID(path string) string {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		path = strings.ToLower(path)
	}
	sum := sha256.Sum256([]byte(path))
	return base64.URLEncoding.EncodeToString(sum[:])[:idLength]
}

// VirtualRoot is the parent of every virtual environment.
func (s Storage) VirtualRoot() string {
	return filepath.Join(s.DataDir, "env", "virtual")
}

// ProjectDir is the directory holding the environments of the project at root.
func (s Storage) ProjectDir(projectName, root string) string {
	return filepath.Join(s.VirtualRoot(), projectName, PathID(root))
}

// EnvDir is the directory of one environment. The default environment is
// named after the project.
func (s Storage) EnvDir(projectName, root, env string) string {
	dir := env
	if env == "default" {
		dir = projectName
	}
	return filepath.Join(s.ProjectDir(projectName, root), dir)
}

// ScriptDir is the environment directory of the inline-metadata script at path.
func (s Storage) ScriptDir(path string) string {
	return filepath.Join(s.VirtualRoot(), ScriptsDirName, PathID(path))
}

// MetadataPath is the metadata file of the project at root. It lives outside
// the environment tree so that tree only ever holds environments.
func (s Storage) MetadataPath(projectName, root string) string {
	return filepath.Join(s.DataDir, "env", metadataDir, projectName+"-"+PathID(root)+".json")
}

// PluginDir is the tooling environment holding the plugin requirements of
// the project at root.
func (s Storage) PluginDir(projectName, root string) string {
	return filepath.Join(s.DataDir, "env", pluginsDir, projectName+"-"+PathID(root))
}
