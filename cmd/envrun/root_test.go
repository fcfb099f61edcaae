// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"testing"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-03-01T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-03-01T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got, want := getVersionString(), "dev (built from source)"; got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

func TestNewRootCommand(t *testing.T) {
	t.Parallel()

	app := NewApp(Dependencies{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	root := NewRootCommand(app)

	for _, path := range [][]string{
		{"run"},
		{"env", "create"},
		{"env", "remove"},
		{"env", "find"},
		{"env", "show"},
		{"config", "show"},
		{"config", "path"},
		{"config", "init"},
		{"config", "dump"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Errorf("Find(%v) error = %v", path, err)
			continue
		}
		if cmd == root {
			t.Errorf("Find(%v) returned the root command", path)
		}
	}

	for _, name := range []string{"config", "verbose", "quiet"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag --%s is not registered", name)
		}
	}

	run, _, _ := root.Find([]string{"run"})
	if !run.DisableFlagParsing {
		t.Error("run must pass selection tokens through unparsed")
	}
}
