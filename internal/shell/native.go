// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Native executes command lines with the host shell.
type Native struct {
	// Shell overrides the default shell.
	Shell string
	// ShellArgs are passed to the shell before the command line.
	ShellArgs []string
}

// NewNative creates a native runner using the platform default shell.
func NewNative() *Native {
	return &Native{}
}

// Name returns the runner name.
func (n *Native) Name() string { return string(KindNative) }

// Run executes cmd.Line through the shell and waits for it to exit.
func (n *Native) Run(ctx context.Context, cmd Command) (ExitCode, error) {
	sh, err := n.shell()
	if err != nil {
		return 1, err
	}
	args := append(n.shellArgs(sh), cmd.Line)

	c := exec.CommandContext(ctx, sh, args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.Stdin = cmd.Stdin
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return normalize(exitErr.ExitCode()), nil
		}
		return 1, fmt.Errorf("failed to execute command: %w", err)
	}
	return 0, nil
}

// shell determines which shell to use. Command lines are written for sh, so
// $SHELL is deliberately not consulted.
func (n *Native) shell() (string, error) {
	if n.Shell != "" {
		return n.Shell, nil
	}
	if runtime.GOOS == "windows" {
		return exec.LookPath("cmd")
	}
	if sh, err := exec.LookPath("sh"); err == nil {
		return sh, nil
	}
	return "", errors.New("no shell found")
}

func (n *Native) shellArgs(sh string) []string {
	if len(n.ShellArgs) > 0 {
		return append([]string(nil), n.ShellArgs...)
	}
	switch strings.TrimSuffix(filepath.Base(sh), ".exe") {
	case "cmd":
		return []string{"/C"}
	case "powershell", "pwsh":
		return []string{"-NoProfile", "-Command"}
	default:
		return []string{"-c"}
	}
}
