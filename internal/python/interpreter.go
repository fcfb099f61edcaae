// SPDX-License-Identifier: MPL-2.0

package python

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const probeScript = "import platform, sys; " +
	"print(platform.python_implementation().lower(), '.'.join(map(str, sys.version_info[:3])))"

type (
	// Interpreter is a usable Python executable.
	Interpreter struct {
		Path           string
		Implementation string
		Version        Version
		// Managed is true for distributions installed by envrun.
		Managed bool
	}

	// Prober reports the implementation and version of the interpreter at path.
	Prober func(ctx context.Context, path string) (Interpreter, error)
)

// ProbeExecutable runs the interpreter at path and parses its version.
func ProbeExecutable(ctx context.Context, path string) (Interpreter, error) {
	out, err := exec.CommandContext(ctx, path, "-c", probeScript).Output()
	if err != nil {
		return Interpreter{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return parseProbeOutput(path, string(out))
}

func parseProbeOutput(path, out string) (Interpreter, error) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return Interpreter{}, fmt.Errorf("probe %s: unexpected output %q", path, strings.TrimSpace(out))
	}
	v, err := ParseVersion(fields[1])
	if err != nil {
		return Interpreter{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return Interpreter{Path: path, Implementation: fields[0], Version: v}, nil
}
