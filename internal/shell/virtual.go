// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Virtual executes command lines with the embedded POSIX shell interpreter,
// so pipelines behave the same on every platform.
type Virtual struct{}

// NewVirtual creates a virtual runner.
func NewVirtual() *Virtual {
	return &Virtual{}
}

// Name returns the runner name.
func (v *Virtual) Name() string { return string(KindVirtual) }

// Run parses and interprets cmd.Line.
func (v *Virtual) Run(ctx context.Context, cmd Command) (ExitCode, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(cmd.Line), "command")
	if err != nil {
		return 1, fmt.Errorf("failed to parse command: %w", err)
	}

	runner, err := interp.New(
		interp.Dir(cmd.Dir),
		interp.Env(expand.ListEnviron(cmd.Env...)),
		interp.StdIO(cmd.Stdin, cmd.Stdout, cmd.Stderr),
	)
	if err != nil {
		return 1, fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return normalize(int(exitStatus)), nil
		}
		return 1, fmt.Errorf("command execution failed: %w", err)
	}
	return 0, nil
}
