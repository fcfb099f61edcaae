// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"

	"github.com/envrun/envrun/internal/app/run"
	"github.com/envrun/envrun/internal/compat"
	"github.com/envrun/envrun/internal/formatter"
	"github.com/envrun/envrun/internal/issue"
	"github.com/envrun/envrun/internal/matrix"
	"github.com/envrun/envrun/internal/python"
	"github.com/envrun/envrun/internal/script"
	"github.com/envrun/envrun/internal/selection"
	"github.com/envrun/envrun/pkg/project"
)

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// classifyError maps a failure to the issue catalog entry that explains it,
// or 0 when none applies.
func classifyError(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}

	switch {
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId
	case errors.Is(err, project.ErrNotFound), errors.Is(err, project.ErrInvalidMetadata):
		return issue.ProjectNotFoundId
	case errors.Is(err, matrix.ErrUnknownEnvironment):
		return issue.EnvironmentNotFoundId
	case errors.Is(err, selection.ErrDuplicateVariable),
		errors.Is(err, selection.ErrMalformedToken),
		errors.Is(err, selection.ErrUnsupportedSelection),
		errors.Is(err, selection.ErrNoEnvironmentsSelected),
		errors.Is(err, run.ErrMissingArgument):
		return issue.InvalidSelectionId
	case errors.Is(err, compat.ErrIncompatible):
		return issue.IncompatibleEnvironmentId
	case errors.Is(err, python.ErrNotFound), errors.Is(err, python.ErrIncompatible):
		return issue.PythonNotFoundId
	case errors.Is(err, script.ErrCycle):
		return issue.ScriptCycleId
	case errors.Is(err, script.ErrExpansion),
		errors.Is(err, formatter.ErrMissingEnvVar),
		errors.Is(err, formatter.ErrUnknownField),
		errors.Is(err, formatter.ErrSyntax),
		errors.Is(err, formatter.ErrRecursion):
		return issue.ContextExpansionFailedId
	}
	return 0
}
