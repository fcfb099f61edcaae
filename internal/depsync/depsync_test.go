// SPDX-License-Identifier: MPL-2.0

package depsync

import (
	"context"
	"errors"
	"slices"
	"testing"
)

type fakeEnv struct {
	skip      bool
	hashes    []string
	hashCalls int
	inSync    bool
	syncCalls int
	syncErr   error
}

func (f *fakeEnv) Name() string              { return "default" }
func (f *fakeEnv) SkipDependencyCheck() bool { return f.skip }

func (f *fakeEnv) DependencyHash() (string, error) {
	h := f.hashes[min(f.hashCalls, len(f.hashes)-1)]
	f.hashCalls++
	return h, nil
}

func (f *fakeEnv) DependenciesInSync(context.Context) (bool, error) { return f.inSync, nil }

func (f *fakeEnv) SyncDependencies(context.Context) error {
	f.syncCalls++
	return f.syncErr
}

func newSynchronizer(store Store) (*Synchronizer, *[]string) {
	var lines []string
	return &Synchronizer{Store: store, Status: func(s string) { lines = append(lines, s) }}, &lines
}

func TestEnsureSynced_PersistsPostInstallHash(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	s, lines := newSynchronizer(store)
	env := &fakeEnv{hashes: []string{"foo", "bar", "bar"}}

	outcome, err := s.EnsureSynced(t.Context(), env)
	if err != nil {
		t.Fatalf("EnsureSynced() error: %v", err)
	}
	if outcome != Synced {
		t.Errorf("outcome = %v, want %v", outcome, Synced)
	}
	if !slices.Equal(*lines, []string{"Checking dependencies", "Syncing dependencies"}) {
		t.Errorf("status = %v", *lines)
	}
	if h, _, _ := store.DependencyHash("default"); h != "bar" {
		t.Errorf("persisted hash = %q, want the post-install read %q", h, "bar")
	}

	*lines = nil
	outcome, err = s.EnsureSynced(t.Context(), env)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != Unchanged || len(*lines) != 0 || env.syncCalls != 1 {
		t.Errorf("second run: outcome=%v status=%v syncCalls=%d", outcome, *lines, env.syncCalls)
	}
}

func TestEnsureSynced_InSyncPersistsFirstRead(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	s, lines := newSynchronizer(store)
	env := &fakeEnv{hashes: []string{"abc"}, inSync: true}

	outcome, err := s.EnsureSynced(t.Context(), env)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != InSync || env.syncCalls != 0 || env.hashCalls != 1 {
		t.Errorf("outcome=%v syncCalls=%d hashCalls=%d", outcome, env.syncCalls, env.hashCalls)
	}
	if !slices.Equal(*lines, []string{"Checking dependencies"}) {
		t.Errorf("status = %v", *lines)
	}
	if h, ok, _ := store.DependencyHash("default"); !ok || h != "abc" {
		t.Errorf("persisted hash = %q (%v)", h, ok)
	}
}

func TestEnsureSynced_Skip(t *testing.T) {
	t.Parallel()

	s, lines := newSynchronizer(NewMemoryStore())
	env := &fakeEnv{skip: true, hashes: []string{"x"}}

	outcome, err := s.EnsureSynced(t.Context(), env)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != Skipped || env.hashCalls != 0 || len(*lines) != 0 {
		t.Errorf("outcome=%v hashCalls=%d status=%v", outcome, env.hashCalls, *lines)
	}
}

func TestEnsureSynced_SyncFailureKeepsOldHash(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.SetDependencyHash("default", "old"); err != nil {
		t.Fatal(err)
	}
	s, _ := newSynchronizer(store)
	boom := errors.New("pip failed")
	env := &fakeEnv{hashes: []string{"new"}, syncErr: boom}

	if _, err := s.EnsureSynced(t.Context(), env); !errors.Is(err, boom) {
		t.Fatalf("EnsureSynced() error = %v, want %v", err, boom)
	}
	if h, _, _ := store.DependencyHash("default"); h != "old" {
		t.Errorf("hash = %q, failed sync must not persist", h)
	}
}

func TestEnsureSynced_ForgottenHashChecksAgain(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.SetDependencyHash("default", "same"); err != nil {
		t.Fatal(err)
	}
	if err := store.Forget("default"); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	if _, ok, _ := store.DependencyHash("default"); ok {
		t.Fatal("hash still recorded after Forget")
	}

	s, lines := newSynchronizer(store)
	env := &fakeEnv{hashes: []string{"same"}}
	outcome, err := s.EnsureSynced(t.Context(), env)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != Synced || env.syncCalls != 1 {
		t.Errorf("outcome=%v syncCalls=%d, want a sync", outcome, env.syncCalls)
	}
	if !slices.Equal(*lines, []string{"Checking dependencies", "Syncing dependencies"}) {
		t.Errorf("status = %v", *lines)
	}
}
