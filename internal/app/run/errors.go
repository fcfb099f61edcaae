// SPDX-License-Identifier: MPL-2.0

package run

import "errors"

// ErrMissingArgument is the sentinel error wrapped by MissingArgumentError.
var ErrMissingArgument = errors.New("missing argument")

// MissingArgumentError reports a run invocation without a command.
type MissingArgumentError struct {
	Name string
}

// Error implements the error interface.
func (e *MissingArgumentError) Error() string {
	return "Missing argument `" + e.Name + "`"
}

// Unwrap returns ErrMissingArgument for errors.Is() compatibility.
func (e *MissingArgumentError) Unwrap() error { return ErrMissingArgument }
