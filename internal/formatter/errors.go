// SPDX-License-Identifier: MPL-2.0

package formatter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRecursion is the sentinel error wrapped by RecursionError.
	ErrRecursion = errors.New("recursive context expansion")
	// ErrMissingEnvVar is the sentinel error wrapped by MissingEnvVarError.
	ErrMissingEnvVar = errors.New("missing environment variable")
	// ErrUnknownField is the sentinel error wrapped by UnknownFieldError.
	ErrUnknownField = errors.New("unknown context field")
	// ErrSyntax is the sentinel error wrapped by SyntaxError.
	ErrSyntax = errors.New("invalid context template")
)

type (
	// RecursionError reports a field whose expansion reached itself again.
	// Chain lists the expansion stack, ending with the repeated key.
	RecursionError struct {
		Chain []string
	}

	// MissingEnvVarError reports an {env:NAME} reference without a default
	// for a variable that is not set.
	MissingEnvVarError struct {
		Name string
	}

	// UnknownFieldError reports a replacement field the context cannot serve.
	UnknownFieldError struct {
		Field string
	}

	// SyntaxError reports unbalanced braces.
	SyntaxError struct {
		Template string
		Offset   int
		Reason   string
	}
)

// Error implements the error interface.
func (e *RecursionError) Error() string {
	return "Recursive context formatting detected: " + strings.Join(e.Chain, " -> ")
}

// Unwrap returns ErrRecursion for errors.Is() compatibility.
func (e *RecursionError) Unwrap() error { return ErrRecursion }

// Error implements the error interface.
func (e *MissingEnvVarError) Error() string {
	return "Nonexistent environment variable must set a default: " + e.Name
}

// Unwrap returns ErrMissingEnvVar for errors.Is() compatibility.
func (e *MissingEnvVarError) Unwrap() error { return ErrMissingEnvVar }

// Error implements the error interface.
func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("Unknown context field `%s`", e.Field)
}

// Unwrap returns ErrUnknownField for errors.Is() compatibility.
func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at offset %d: %q", e.Reason, e.Offset, e.Template)
}

// Unwrap returns ErrSyntax for errors.Is() compatibility.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }
