// SPDX-License-Identifier: MPL-2.0

package compat

import (
	"context"
	"errors"
	"fmt"

	"github.com/envrun/envrun/internal/matrix"
	"github.com/envrun/envrun/pkg/platform"
)

// ReasonUnsupportedPlatform is reported for environments restricted to other platforms.
const ReasonUnsupportedPlatform = "unsupported platform"

// ErrIncompatible is the sentinel error wrapped by IncompatibleError and ReasonError.
var ErrIncompatible = errors.New("incompatible environment")

type (
	// Locator reports whether a `python` option value can be satisfied,
	// either by an existing interpreter or by an installable distribution.
	Locator interface {
		Available(ctx context.Context, python string) bool
	}

	// Checker evaluates environment requirements against the host.
	Checker struct {
		Platform platform.Name
		Python   Locator
	}

	// Verdict is the outcome of a compatibility check.
	Verdict struct {
		Compatible bool
		Reason     string
	}

	// Candidate is an environment instance considered for execution.
	Candidate interface {
		Name() string
		Exists() bool
		CheckCompatibility(ctx context.Context) error
	}

	// Skip records an incompatible candidate left out of the run.
	Skip struct {
		Name   string
		Reason string
	}

	// ReasonError carries the reason an environment cannot run here.
	ReasonError struct {
		Reason string
	}

	// IncompatibleError reports that the only requested environment cannot run.
	IncompatibleError struct {
		Env    string
		Reason string
	}
)

// Check evaluates the platform restriction first, then the interpreter.
// System environments run on the current interpreter and skip the latter.
func (c *Checker) Check(ctx context.Context, s matrix.Settings) Verdict {
	if !platform.Matches(s.Platforms, c.Platform) {
		return Verdict{Reason: ReasonUnsupportedPlatform}
	}
	if s.Type != matrix.TypeSystem && s.Python != "" && c.Python != nil && !c.Python.Available(ctx, s.Python) {
		return Verdict{Reason: "cannot locate Python: " + s.Python}
	}
	return Verdict{Compatible: true}
}

// Err returns nil for compatible verdicts and a *ReasonError otherwise.
func (v Verdict) Err() error {
	if v.Compatible {
		return nil
	}
	return &ReasonError{Reason: v.Reason}
}

// Partition splits candidates into those that run and those skipped, keeping
// their order. A single incompatible candidate fails with *IncompatibleError.
func Partition[C Candidate](ctx context.Context, candidates []C) ([]C, []Skip, error) {
	var (
		runnable []C
		skipped  []Skip
	)
	for _, c := range candidates {
		if c.Exists() {
			runnable = append(runnable, c)
			continue
		}
		err := c.CheckCompatibility(ctx)
		if err == nil {
			runnable = append(runnable, c)
			continue
		}
		reason := reasonOf(err)
		if len(candidates) == 1 {
			return nil, nil, &IncompatibleError{Env: c.Name(), Reason: reason}
		}
		skipped = append(skipped, Skip{Name: c.Name(), Reason: reason})
	}
	return runnable, skipped, nil
}

func reasonOf(err error) string {
	var re *ReasonError
	if errors.As(err, &re) {
		return re.Reason
	}
	return err.Error()
}

// Error implements the error interface.
func (e *ReasonError) Error() string { return e.Reason }

// Unwrap returns ErrIncompatible for errors.Is() compatibility.
func (e *ReasonError) Unwrap() error { return ErrIncompatible }

// Error implements the error interface.
func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("Environment `%s` is incompatible: %s", e.Env, e.Reason)
}

// Unwrap returns ErrIncompatible for errors.Is() compatibility.
func (e *IncompatibleError) Unwrap() error { return ErrIncompatible }
