// SPDX-License-Identifier: MPL-2.0

package python

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

const (
	// DefaultSourceURL hosts the standalone CPython builds.
	DefaultSourceURL = "https://github.com/indygreg/python-build-standalone/releases/download"

	metadataFile = "envrun-dist.json"
)

// Releases are the distributions envrun knows how to install, newest first.
var Releases = []Release{
	{Name: "3.13", Version: "3.13.0", Tag: "20241016"},
	{Name: "3.12", Version: "3.12.7", Tag: "20241016"},
	{Name: "3.11", Version: "3.11.10", Tag: "20241016"},
	{Name: "3.10", Version: "3.10.15", Tag: "20241016"},
	{Name: "3.9", Version: "3.9.20", Tag: "20241016"},
	{Name: "3.8", Version: "3.8.20", Tag: "20241016"},
}

type (
	// Release is an installable distribution.
	Release struct {
		// Name is the minor version users request, e.g. 3.12.
		Name    string
		Version string
		Tag     string
	}

	// Distribution is an installed managed distribution.
	Distribution struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Source  string `json:"source"`
		dir     string
	}

	// Manager installs distributions under Dir, one directory per release name.
	Manager struct {
		Dir       string
		SourceURL string
		Client    *http.Client
		Releases  []Release
		// Triple is the target platform of the downloaded builds.
		Triple string
	}
)

// NewManager returns a Manager rooted at dir for the current platform.
func NewManager(dir, sourceURL string) *Manager {
	return &Manager{
		Dir:       dir,
		SourceURL: cmp.Or(sourceURL, DefaultSourceURL),
		Client:    http.DefaultClient,
		Releases:  Releases,
		Triple:    HostTriple(),
	}
}

// HostTriple returns the build triple of the current platform, or "" when no
// builds exist for it.
func HostTriple() string {
	arch := map[string]string{"amd64": "x86_64", "arm64": "aarch64"}[runtime.GOARCH]
	if arch == "" {
		return ""
	}
	switch runtime.GOOS {
	case "linux":
		return arch + "-unknown-linux-gnu"
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		if arch == "x86_64" {
			return arch + "-pc-windows-msvc"
		}
	}
	return ""
}

// PythonPath returns the interpreter executable of the distribution.
func (d Distribution) PythonPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(d.dir, "python", "python.exe")
	}
	return filepath.Join(d.dir, "python", "bin", "python3")
}

// Dir returns the installation directory.
func (d Distribution) Dir() string { return d.dir }

// URL returns the download URL of the release for triple.
func (r Release) URL(sourceURL, triple string) string {
	return fmt.Sprintf("%s/%s/cpython-%s+%s-%s-install_only.tar.gz",
		strings.TrimRight(sourceURL, "/"), r.Tag, r.Version, r.Tag, triple)
}

// Available reports whether the manager can download builds at all.
func (m *Manager) Available() bool {
	return m.Triple != "" && len(m.Releases) > 0
}

// Release returns the newest known release matching the request and the
// constraint.
func (m *Manager) Release(req Request, constraint SpecifierSet) (Release, bool) {
	if !m.Available() || req.Path != "" || req.Implementation != ImplCPython {
		return Release{}, false
	}
	for _, rel := range m.Releases {
		v, err := ParseVersion(rel.Version)
		if err != nil {
			continue
		}
		if req.Matches(Interpreter{Implementation: ImplCPython, Version: v}) && constraint.Contains(v) {
			return rel, true
		}
	}
	return Release{}, false
}

// Installed returns the installed distributions sorted by name, newest first.
func (m *Manager) Installed() ([]Distribution, error) {
	entries, err := os.ReadDir(m.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read distributions: %w", err)
	}

	var dists []Distribution
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dist, ok := m.Get(entry.Name())
		if ok {
			dists = append(dists, dist)
		}
	}
	slices.SortFunc(dists, func(a, b Distribution) int {
		return MustParseVersion(b.Name).Compare(MustParseVersion(a.Name))
	})
	return dists, nil
}

// Get returns the installed distribution called name.
func (m *Manager) Get(name string) (Distribution, bool) {
	dir := filepath.Join(m.Dir, name)
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return Distribution{}, false
	}
	var dist Distribution
	if err := json.Unmarshal(data, &dist); err != nil {
		slog.Debug("ignoring distribution with unreadable metadata", "dir", dir, "error", err)
		return Distribution{}, false
	}
	if _, err := ParseVersion(dist.Name); err != nil {
		return Distribution{}, false
	}
	dist.dir = dir
	return dist, true
}

// NeedsUpdate reports whether a newer build of dist is known.
func (m *Manager) NeedsUpdate(dist Distribution) bool {
	for _, rel := range m.Releases {
		if rel.Name != dist.Name {
			continue
		}
		installed, err := ParseVersion(dist.Version)
		if err != nil {
			return true
		}
		return MustParseVersion(rel.Version).Compare(installed) > 0
	}
	return false
}

// Install downloads and unpacks rel, replacing any previous installation.
func (m *Manager) Install(ctx context.Context, rel Release) (Distribution, error) {
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return Distribution{}, fmt.Errorf("create distribution directory: %w", err)
	}
	url := rel.URL(m.SourceURL, m.Triple)
	slog.Debug("downloading python distribution", "url", url)

	staging, err := os.MkdirTemp(m.Dir, ".install-"+rel.Name+"-")
	if err != nil {
		return Distribution{}, fmt.Errorf("create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	if err := m.download(ctx, url, staging); err != nil {
		return Distribution{}, err
	}

	dist := Distribution{Name: rel.Name, Version: rel.Version, Source: url}
	data, err := json.MarshalIndent(dist, "", "  ")
	if err != nil {
		return Distribution{}, err
	}
	if err := os.WriteFile(filepath.Join(staging, metadataFile), data, 0o644); err != nil {
		return Distribution{}, fmt.Errorf("write distribution metadata: %w", err)
	}

	target := filepath.Join(m.Dir, rel.Name)
	if err := os.RemoveAll(target); err != nil {
		return Distribution{}, fmt.Errorf("remove previous distribution: %w", err)
	}
	if err := os.Rename(staging, target); err != nil {
		return Distribution{}, fmt.Errorf("install distribution: %w", err)
	}
	dist.dir = target
	return dist, nil
}

func (m *Manager) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	client := cmp.Or(m.Client, http.DefaultClient)
	resp, err := client.Do(req)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &DownloadError{URL: url, Status: resp.Status}
	}
	if err := Extract(resp.Body, archiveFormat(url), dest); err != nil {
		return fmt.Errorf("unpack %s: %w", url, err)
	}
	return nil
}
