// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"errors"
	"fmt"

	"github.com/envrun/envrun/internal/shell"
)

// ErrCommandFailed is the sentinel error wrapped by CommandError.
var ErrCommandFailed = errors.New("environment command failed")

// CommandError reports a failing pre- or post-install command.
type CommandError struct {
	Kind     string
	Command  string
	ExitCode shell.ExitCode
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed with exit code %d: %s", e.Kind, e.ExitCode, e.Command)
}

// Unwrap returns ErrCommandFailed for errors.Is() compatibility.
func (e *CommandError) Unwrap() error { return ErrCommandFailed }

// EnvVarError reports a declared environment variable whose template
// cannot be expanded.
type EnvVarError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *EnvVarError) Error() string {
	return fmt.Sprintf("env-vars %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying expansion error.
func (e *EnvVarError) Unwrap() error { return e.Err }
