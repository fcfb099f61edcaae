// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

func TestMetadataStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "meta.json")
	s := NewMetadataStore(path)

	if _, ok, err := s.DependencyHash("default"); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("reading must not create the file")
	}

	if err := s.SetDependencyHash("default", "foo"); err != nil {
		t.Fatalf("SetDependencyHash() error: %v", err)
	}
	if err := s.SetDependencyHash("test", "bar"); err != nil {
		t.Fatal(err)
	}

	reopened := NewMetadataStore(path)
	if h, ok, err := reopened.DependencyHash("default"); h != "foo" || !ok || err != nil {
		t.Errorf("DependencyHash(default) = %q, %v, %v", h, ok, err)
	}

	if err := reopened.Forget("default"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.DependencyHash("default"); ok {
		t.Error("forgotten environment still has a hash")
	}
	if h, _, _ := s.DependencyHash("test"); h != "bar" {
		t.Errorf("other environments must be kept, got %q", h)
	}
}

func TestMetadataStore_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "meta.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewMetadataStore(path)
	if _, ok, err := s.DependencyHash("default"); ok || err != nil {
		t.Errorf("corrupt file should read as empty: ok=%v err=%v", ok, err)
	}
	if err := s.SetDependencyHash("default", "h"); err != nil {
		t.Errorf("corrupt file should be replaced: %v", err)
	}
}

func TestMetadataStore_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	if runtime.GOOS != "linux" {
		t.Skip("cross-store serialization relies on flock")
	}

	path := filepath.Join(t.TempDir(), "meta.json")
	envs := []string{"a", "b", "c", "d", "e", "f"}

	var wg sync.WaitGroup
	for _, env := range envs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Separate stores share only the file lock.
			if err := NewMetadataStore(path).SetDependencyHash(env, "h-"+env); err != nil {
				t.Errorf("SetDependencyHash(%s) error: %v", env, err)
			}
		}()
	}
	wg.Wait()

	s := NewMetadataStore(path)
	for _, env := range envs {
		if h, ok, _ := s.DependencyHash(env); !ok || h != "h-"+env {
			t.Errorf("DependencyHash(%s) = %q, %v", env, h, ok)
		}
	}
}
