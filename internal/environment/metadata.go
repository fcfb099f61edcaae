// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const metadataVersion = 1

type (
	// MetadataStore persists per-environment metadata of one project in a
	// JSON file. It implements depsync.Store.
	MetadataStore struct {
		Path string
		mu   sync.Mutex
	}

	metadataFile struct {
		Version int                    `json:"version"`
		Envs    map[string]envMetadata `json:"envs"`
	}

	envMetadata struct {
		DependencyHash string `json:"dependency_hash,omitempty"`
	}
)

// NewMetadataStore returns a store backed by the file at path. The file and
// its directory are created on first write.
func NewMetadataStore(path string) *MetadataStore {
	return &MetadataStore{Path: path}
}

// DependencyHash returns the persisted hash of env.
func (s *MetadataStore) DependencyHash(env string) (string, bool, error) {
	var (
		hash string
		ok   bool
	)
	err := s.locked(false, func(m *metadataFile) bool {
		var meta envMetadata
		meta, ok = m.Envs[env]
		hash = meta.DependencyHash
		ok = ok && hash != ""
		return false
	})
	return hash, ok, err
}

// SetDependencyHash persists hash for env.
func (s *MetadataStore) SetDependencyHash(env, hash string) error {
	return s.locked(true, func(m *metadataFile) bool {
		meta := m.Envs[env]
		meta.DependencyHash = hash
		m.Envs[env] = meta
		return true
	})
}

// Forget drops everything recorded for env.
func (s *MetadataStore) Forget(env string) error {
	return s.locked(true, func(m *metadataFile) bool {
		if _, ok := m.Envs[env]; !ok {
			return false
		}
		delete(m.Envs, env)
		return true
	})
}

// locked loads the file under the store lock and writes it back when fn
// reports a change.
func (s *MetadataStore) locked(create bool, fn func(*metadataFile) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if create {
		if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
			return fmt.Errorf("create metadata directory: %w", err)
		}
	}
	if _, err := os.Stat(filepath.Dir(s.Path)); err == nil {
		lock, err := acquireFileLock(s.Path + ".lock")
		switch {
		case err == nil:
			defer lock.Release()
		case errors.Is(err, errFlockUnavailable):
		default:
			return err
		}
	}

	m, err := s.read()
	if err != nil {
		return err
	}
	if !fn(m) {
		return nil
	}
	return s.write(m)
}

func (s *MetadataStore) read() (*metadataFile, error) {
	m := &metadataFile{Version: metadataVersion, Envs: map[string]envMetadata{}}
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		// A corrupt file only costs a dependency check.
		slog.Debug("discarding unreadable metadata", "path", s.Path, "error", err)
		return &metadataFile{Version: metadataVersion, Envs: map[string]envMetadata{}}, nil
	}
	if m.Envs == nil {
		m.Envs = map[string]envMetadata{}
	}
	return m, nil
}

func (s *MetadataStore) write(m *metadataFile) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".metadata-*")
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
