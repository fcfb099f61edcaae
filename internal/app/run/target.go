// SPDX-License-Identifier: MPL-2.0

package run

import "strings"

// Target is the parsed `[ENV:]COMMAND` argument.
type Target struct {
	// Env is the environment name; empty with System set.
	Env string
	// Command is the script name or literal command.
	Command string
	// Explicit is set when the argument carried an ENV: prefix.
	Explicit bool
	// System is set for `:COMMAND`, which runs without an environment of its own.
	System bool
}

// ParseTarget splits arg at its first colon. Without a colon the command
// runs in active.
func ParseTarget(arg, active string) Target {
	env, command, found := strings.Cut(arg, ":")
	if !found {
		return Target{Env: active, Command: arg}
	}
	if env == "" {
		return Target{Command: command, Explicit: true, System: true}
	}
	return Target{Env: env, Command: command, Explicit: true}
}
