// SPDX-License-Identifier: MPL-2.0

package script

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycle is the sentinel error wrapped by CycleError.
	ErrCycle = errors.New("cyclic script reference")
	// ErrExpansion is the sentinel error wrapped by ExpansionError.
	ErrExpansion = errors.New("command expansion failed")
)

type (
	// CycleError is returned when scripts reference each other in a loop.
	CycleError struct {
		Path []string
	}

	// ExpansionError is returned when a pipeline entry cannot be expanded.
	// Its message is the formatter's, since that is what users need to fix.
	ExpansionError struct {
		Entry Entry
		Err   error
	}
)

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(e.Path, " -> "))
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// Error implements the error interface.
func (e *ExpansionError) Error() string { return e.Err.Error() }

// Unwrap returns both ErrExpansion and the formatter error.
func (e *ExpansionError) Unwrap() []error { return []error{ErrExpansion, e.Err} }
