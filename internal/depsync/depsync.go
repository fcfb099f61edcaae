// SPDX-License-Identifier: MPL-2.0

// Package depsync keeps an environment's installed dependencies in step with
// its declared ones, using a persisted dependency hash to skip redundant
// checks.
package depsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const (
	// Skipped means the environment opted out of dependency checks.
	Skipped Outcome = iota
	// Unchanged means the hash matched the persisted one.
	Unchanged
	// InSync means the hash changed but nothing needed installing.
	InSync
	// Synced means dependencies were installed.
	Synced
)

type (
	// Outcome describes what EnsureSynced did.
	Outcome int

	// Environment is the dependency capability of an environment.
	Environment interface {
		Name() string
		SkipDependencyCheck() bool
		DependencyHash() (string, error)
		DependenciesInSync(ctx context.Context) (bool, error)
		SyncDependencies(ctx context.Context) error
	}

	// Store persists the last known dependency hash per environment.
	Store interface {
		DependencyHash(env string) (string, bool, error)
		SetDependencyHash(env, hash string) error
		// Forget drops the hash of env, so the next EnsureSynced checks
		// its dependencies.
		Forget(env string) error
	}

	// Synchronizer runs the hash protocol against a Store.
	Synchronizer struct {
		Store  Store
		Status func(msg string)
	}

	// MemoryStore keeps hashes for the lifetime of the process. It serves
	// environments without storage of their own.
	MemoryStore struct {
		mu     sync.Mutex
		hashes map[string]string
	}
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Unchanged:
		return "unchanged"
	case InSync:
		return "in-sync"
	case Synced:
		return "synced"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// EnsureSynced compares the current dependency hash with the persisted one.
// On mismatch it reports "Checking dependencies", installs when the
// environment is out of sync, and persists a hash read after installation.
func (s *Synchronizer) EnsureSynced(ctx context.Context, env Environment) (Outcome, error) {
	if env.SkipDependencyCheck() {
		return Skipped, nil
	}

	current, err := env.DependencyHash()
	if err != nil {
		return 0, fmt.Errorf("compute dependency hash: %w", err)
	}
	stored, ok, err := s.Store.DependencyHash(env.Name())
	if err != nil {
		return 0, fmt.Errorf("read dependency hash: %w", err)
	}
	if ok && stored == current {
		return Unchanged, nil
	}

	s.status("Checking dependencies")
	inSync, err := env.DependenciesInSync(ctx)
	if err != nil {
		return 0, fmt.Errorf("check dependencies: %w", err)
	}

	outcome := InSync
	if !inSync {
		s.status("Syncing dependencies")
		if err := env.SyncDependencies(ctx); err != nil {
			return 0, fmt.Errorf("sync dependencies: %w", err)
		}
		// Installation may change what the hash covers.
		if current, err = env.DependencyHash(); err != nil {
			return 0, fmt.Errorf("compute dependency hash: %w", err)
		}
		outcome = Synced
	}

	if err := s.Store.SetDependencyHash(env.Name(), current); err != nil {
		return 0, fmt.Errorf("save dependency hash: %w", err)
	}
	slog.Debug("dependencies checked", "env", env.Name(), "outcome", outcome, "hash", current)
	return outcome, nil
}

func (s *Synchronizer) status(msg string) {
	if s.Status != nil {
		s.Status(msg)
	}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hashes: make(map[string]string)}
}

// DependencyHash implements Store.
func (m *MemoryStore) DependencyHash(env string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[env]
	return h, ok, nil
}

// SetDependencyHash implements Store.
func (m *MemoryStore) SetDependencyHash(env, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hashes == nil {
		m.hashes = make(map[string]string)
	}
	m.hashes[env] = hash
	return nil
}

// Forget implements Store.
func (m *MemoryStore) Forget(env string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hashes, env)
	return nil
}
