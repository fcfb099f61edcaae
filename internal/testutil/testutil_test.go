// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestWriteProject(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "demo")
	path := WriteProject(t, dir, "[project]\nname = \"demo\"\n")

	if path != filepath.Join(dir, PyprojectName) {
		t.Errorf("WriteProject() = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "[project]\nname = \"demo\"\n" {
		t.Errorf("content = %q", data)
	}
}

func TestMustSetenv_Restores(t *testing.T) {
	// Not parallel: mutates the process environment.
	const key = "ENVRUN_TESTUTIL_PROBE"
	restore := MustSetenv(t, key, "set")
	if got := os.Getenv(key); got != "set" {
		t.Fatalf("Getenv() = %q, want set", got)
	}
	restore()
	if _, ok := os.LookupEnv(key); ok {
		t.Errorf("%s still set after restore", key)
	}
}

func TestMustChdir(t *testing.T) {
	// Not parallel: changes the working directory.
	dir := t.TempDir()
	before, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	restore := MustChdir(t, dir)
	got, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	if resolved, _ := filepath.EvalSymlinks(got); resolved != want {
		t.Errorf("Getwd() = %q, want %q", got, want)
	}

	restore()
	if after, _ := os.Getwd(); after != before {
		t.Errorf("Getwd() after restore = %q, want %q", after, before)
	}
}

func TestSetHomeDir(t *testing.T) {
	// Not parallel: mutates the process environment.
	key := "HOME"
	if runtime.GOOS == "windows" {
		key = "USERPROFILE"
	}
	original := os.Getenv(key)
	dir := t.TempDir()

	cleanup := SetHomeDir(t, dir)
	if got := os.Getenv(key); got != dir {
		t.Errorf("%s = %q, want %q", key, got, dir)
	}
	if got := os.Getenv("XDG_DATA_HOME"); got != "" {
		t.Errorf("XDG_DATA_HOME = %q, want empty", got)
	}

	cleanup()
	if got := os.Getenv(key); got != original {
		t.Errorf("after cleanup %s = %q, want %q", key, got, original)
	}
}
