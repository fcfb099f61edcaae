// SPDX-License-Identifier: MPL-2.0

package selection

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateVariable is the sentinel error wrapped by DuplicateVariableError.
	ErrDuplicateVariable = errors.New("duplicate selection variable")
	// ErrMalformedToken is the sentinel error wrapped by MalformedTokenError.
	ErrMalformedToken = errors.New("malformed selection token")
	// ErrUnsupportedSelection is the sentinel error wrapped by UnsupportedSelectionError.
	ErrUnsupportedSelection = errors.New("variable selection unsupported")
	// ErrNoEnvironmentsSelected is returned when filtering leaves nothing to run.
	ErrNoEnvironmentsSelected = errors.New("No environments were selected")
)

type (
	// DuplicateVariableError reports a variable given twice for the same kind
	// of filter. Name is the canonical variable name.
	DuplicateVariableError struct {
		Kind Kind
		Name string
	}

	// MalformedTokenError reports a selection token without a variable name.
	MalformedTokenError struct {
		Token string
	}

	// UnsupportedSelectionError reports a selection applied to an environment
	// that declares no matrix.
	UnsupportedSelectionError struct {
		Env string
	}
)

// Error implements the error interface.
func (e *DuplicateVariableError) Error() string {
	return fmt.Sprintf("Duplicate %s variable: %s", e.Kind, e.Name)
}

// Unwrap returns ErrDuplicateVariable for errors.Is() compatibility.
func (e *DuplicateVariableError) Unwrap() error { return ErrDuplicateVariable }

// Error implements the error interface.
func (e *MalformedTokenError) Error() string {
	return fmt.Sprintf("Invalid variable selection: %s", e.Token)
}

// Unwrap returns ErrMalformedToken for errors.Is() compatibility.
func (e *MalformedTokenError) Unwrap() error { return ErrMalformedToken }

// Error implements the error interface.
func (e *UnsupportedSelectionError) Error() string {
	return "Variable selection is unsupported for non-matrix environments: " + e.Env
}

// Unwrap returns ErrUnsupportedSelection for errors.Is() compatibility.
func (e *UnsupportedSelectionError) Unwrap() error { return ErrUnsupportedSelection }
