// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

const (
	// KindNative runs commands through the host shell.
	KindNative Kind = "native"
	// KindVirtual runs commands through the embedded POSIX interpreter.
	KindVirtual Kind = "virtual"
)

// ErrInvalidKind is the sentinel error wrapped by InvalidKindError.
var ErrInvalidKind = errors.New("invalid shell kind")

type (
	// Kind selects a Runner implementation.
	Kind string

	// Command is one command line to run.
	Command struct {
		Line string
		Dir  string
		// Env is the complete process environment as KEY=VALUE entries.
		Env    []string
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Runner executes command lines. A non-zero exit is reported through the
	// ExitCode, not the error; the error is for failures to start or parse.
	Runner interface {
		Name() string
		Run(ctx context.Context, cmd Command) (ExitCode, error)
	}

	// InvalidKindError is returned when a Kind value is not recognized.
	InvalidKindError struct {
		Value Kind
	}
)

// Error implements the error interface.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid shell %q (valid: %s, %s)", e.Value, KindNative, KindVirtual)
}

// Unwrap returns ErrInvalidKind for errors.Is() compatibility.
func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }

// IsValid returns whether the Kind is one of the defined kinds,
// and a list of validation errors if it is not.
func (k Kind) IsValid() (bool, []error) {
	switch k {
	case KindNative, KindVirtual:
		return true, nil
	default:
		return false, []error{&InvalidKindError{Value: k}}
	}
}

// String returns the string representation of the Kind.
func (k Kind) String() string { return string(k) }

// New returns the Runner for kind. The empty kind selects the native shell.
func New(kind Kind) (Runner, error) {
	switch kind {
	case KindNative, "":
		return NewNative(), nil
	case KindVirtual:
		return NewVirtual(), nil
	default:
		return nil, &InvalidKindError{Value: kind}
	}
}

// QuoteArgs joins args into one shell word list, quoting only the arguments
// that need it.
func QuoteArgs(args []string) (string, error) {
	quoted := make([]string, len(args))
	for i, arg := range args {
		q, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("quote argument %q: %w", arg, err)
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " "), nil
}
