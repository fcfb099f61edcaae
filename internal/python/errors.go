// SPDX-License-Identifier: MPL-2.0

package python

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the sentinel error wrapped by NotFoundError.
	ErrNotFound = errors.New("python interpreter not found")
	// ErrIncompatible is the sentinel error wrapped by ConstraintError.
	ErrIncompatible = errors.New("python version constraint unsatisfiable")
	// ErrUnknownDistribution is returned when no release is known for a request.
	ErrUnknownDistribution = errors.New("unknown python distribution")
)

type (
	// NotFoundError reports an interpreter request that can neither be found
	// nor installed.
	NotFoundError struct {
		Request string
	}

	// ConstraintError reports a requires-python constraint that no available
	// or installable interpreter satisfies.
	ConstraintError struct {
		Constraint string
	}

	// DownloadError reports a failed distribution download.
	DownloadError struct {
		URL    string
		Status string
		Err    error
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return "cannot locate Python: " + e.Request
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	return "Unable to satisfy Python version constraint: " + e.Constraint
}

// Unwrap returns ErrIncompatible for errors.Is() compatibility.
func (e *ConstraintError) Unwrap() error { return ErrIncompatible }

// Error implements the error interface.
func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("download %s: %s", e.URL, e.Status)
}

// Unwrap returns the underlying transport error, if any.
func (e *DownloadError) Unwrap() error { return e.Err }
