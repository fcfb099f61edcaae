// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"context"

	"github.com/envrun/envrun/internal/matrix"
	"github.com/envrun/envrun/internal/python"
	"github.com/envrun/envrun/internal/shell"
)

// System runs commands against the interpreter found on PATH. It always
// exists and never creates or removes anything.
type System struct {
	base
	interp *python.Interpreter
}

// NewSystem returns the system environment described by spec.
func NewSystem(spec Spec, opts Options) *System {
	spec.Dir = ""
	return &System{base: base{spec: spec, opts: opts}}
}

// Type returns matrix.TypeSystem.
func (s *System) Type() string { return matrix.TypeSystem }

// Exists is always true.
func (s *System) Exists() bool { return true }

// Create is a no-op.
func (s *System) Create(context.Context) error { return nil }

// Remove is a no-op.
func (s *System) Remove(context.Context) error { return nil }

// DependenciesInSync checks the packages of the PATH interpreter.
func (s *System) DependenciesInSync(ctx context.Context) (bool, error) {
	deps, err := s.Dependencies()
	if err != nil || len(deps) == 0 {
		return err == nil, err
	}
	interp, err := s.interpreter(ctx)
	if err != nil {
		return false, err
	}
	env, err := s.environ()
	if err != nil {
		return false, err
	}
	return inSync(ctx, &s.base, interp.Path, interp.Version, deps, env)
}

// SyncDependencies installs the requirements with the PATH interpreter.
func (s *System) SyncDependencies(ctx context.Context) error {
	deps, err := s.Dependencies()
	if err != nil || len(deps) == 0 {
		return err
	}
	interp, err := s.interpreter(ctx)
	if err != nil {
		return err
	}
	env, err := s.environ()
	if err != nil {
		return err
	}
	return s.pip(ctx, interp.Path, env, append([]string{"install"}, deps...)...)
}

// Enter runs line with the host environment plus declared env-vars.
func (s *System) Enter(ctx context.Context, line string) (shell.ExitCode, error) {
	env, err := s.environ()
	if err != nil {
		return 1, err
	}
	return s.enter(ctx, line, env)
}

func (s *System) interpreter(ctx context.Context) (python.Interpreter, error) {
	if s.interp != nil {
		return *s.interp, nil
	}
	interp, err := s.opts.Python.Ensure(ctx, s.spec.Settings.Python, nil, s.status)
	if err != nil {
		return python.Interpreter{}, err
	}
	s.interp = &interp
	return interp, nil
}
