// SPDX-License-Identifier: MPL-2.0

package python

import (
	"context"
	"log/slog"
	"os/exec"
)

type (
	// Resolver turns `python` option values into interpreters, preferring
	// managed distributions for explicit versions and the PATH otherwise.
	// It caches probe results and is not safe for concurrent use.
	Resolver struct {
		Manager  *Manager
		LookPath func(file string) (string, error)
		Probe    Prober
		probed   map[string]probeResult
	}

	probeResult struct {
		interp Interpreter
		err    error
	}
)

// NewResolver returns a Resolver searching the PATH and managing
// distributions through m.
func NewResolver(m *Manager) *Resolver {
	return &Resolver{Manager: m, LookPath: exec.LookPath, Probe: ProbeExecutable}
}

// Available reports whether raw can be satisfied by an existing interpreter
// or by installing a distribution. It never installs anything.
func (r *Resolver) Available(ctx context.Context, raw string) bool {
	req := ParseRequest(raw)
	if req.Path != "" {
		_, err := r.probe(ctx, req.Path)
		return err == nil
	}
	if _, ok := r.Manager.Release(req, nil); ok {
		return true
	}
	if dists, err := r.Manager.Installed(); err == nil {
		for _, dist := range dists {
			if req.Matches(managedInterpreter(dist)) {
				return true
			}
		}
	}
	_, ok := r.findOnPath(ctx, req, nil)
	return ok
}

// Ensure returns an interpreter for raw that satisfies constraint, installing
// or updating a managed distribution when needed. status receives the
// user-facing progress lines.
func (r *Resolver) Ensure(ctx context.Context, raw string, constraint SpecifierSet, status func(string)) (Interpreter, error) {
	req := ParseRequest(raw)
	if req.Path != "" {
		interp, err := r.probe(ctx, req.Path)
		if err != nil {
			slog.Debug("interpreter probe failed", "path", req.Path, "error", err)
			return Interpreter{}, &NotFoundError{Request: raw}
		}
		return interp, nil
	}

	if req.IsAny() {
		if interp, ok := r.findOnPath(ctx, req, constraint); ok {
			return interp, nil
		}
		if interp, ok, err := r.managed(ctx, req, constraint, status); ok || err != nil {
			return interp, err
		}
	} else {
		if interp, ok, err := r.managed(ctx, req, constraint, status); ok || err != nil {
			return interp, err
		}
		if interp, ok := r.findOnPath(ctx, req, constraint); ok {
			return interp, nil
		}
	}

	if rel, ok := r.Manager.Release(req, constraint); ok {
		status("Installing Python distribution: " + rel.Name)
		dist, err := r.Manager.Install(ctx, rel)
		if err != nil {
			return Interpreter{}, err
		}
		return managedInterpreter(dist), nil
	}

	if req.IsAny() {
		if len(constraint) > 0 {
			return Interpreter{}, &ConstraintError{Constraint: constraint.String()}
		}
		return Interpreter{}, &NotFoundError{Request: "python3"}
	}
	return Interpreter{}, &NotFoundError{Request: raw}
}

// MaxCompatible returns the newest Python minor version satisfying
// constraint, considering known releases first and then the PATH. It fails
// with *ConstraintError when nothing qualifies.
func (r *Resolver) MaxCompatible(ctx context.Context, constraint SpecifierSet) (string, error) {
	req := ParseRequest("")
	if rel, ok := r.Manager.Release(req, constraint); ok {
		v, err := ParseVersion(rel.Version)
		if err == nil {
			return v.Minor(), nil
		}
	}
	if interp, ok := r.findOnPath(ctx, req, constraint); ok {
		return interp.Version.Minor(), nil
	}
	return "", &ConstraintError{Constraint: constraint.String()}
}

// managed returns an installed distribution matching the request, updating
// it first when a newer build is known.
func (r *Resolver) managed(ctx context.Context, req Request, constraint SpecifierSet, status func(string)) (Interpreter, bool, error) {
	dists, err := r.Manager.Installed()
	if err != nil {
		return Interpreter{}, false, err
	}
	for _, dist := range dists {
		interp := managedInterpreter(dist)
		if !req.Matches(interp) || !constraint.Contains(interp.Version) {
			continue
		}
		if !r.Manager.NeedsUpdate(dist) {
			return interp, true, nil
		}
		rel, ok := r.Manager.Release(ParseRequest(dist.Name), nil)
		if !ok {
			return interp, true, nil
		}
		status("Updating Python distribution: " + dist.Name)
		updated, err := r.Manager.Install(ctx, rel)
		if err != nil {
			return Interpreter{}, false, err
		}
		return managedInterpreter(updated), true, nil
	}
	return Interpreter{}, false, nil
}

func (r *Resolver) findOnPath(ctx context.Context, req Request, constraint SpecifierSet) (Interpreter, bool) {
	for _, name := range req.executableNames() {
		path, err := r.LookPath(name)
		if err != nil {
			continue
		}
		interp, err := r.probe(ctx, path)
		if err != nil {
			slog.Debug("interpreter probe failed", "path", path, "error", err)
			continue
		}
		if req.Matches(interp) && constraint.Contains(interp.Version) {
			return interp, true
		}
	}
	return Interpreter{}, false
}

func (r *Resolver) probe(ctx context.Context, path string) (Interpreter, error) {
	if res, ok := r.probed[path]; ok {
		return res.interp, res.err
	}
	interp, err := r.Probe(ctx, path)
	if r.probed == nil {
		r.probed = make(map[string]probeResult)
	}
	r.probed[path] = probeResult{interp: interp, err: err}
	return interp, err
}

func managedInterpreter(dist Distribution) Interpreter {
	v, _ := ParseVersion(dist.Version)
	return Interpreter{Path: dist.PythonPath(), Implementation: ImplCPython, Version: v, Managed: true}
}
