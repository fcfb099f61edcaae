// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"runtime"
	"strings"
)

// OS name constants for runtime.GOOS comparisons.
// Centralizes the string literals to avoid scattered magic strings.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// Declared platform names, as written in environment `platforms` lists.
const (
	NameLinux   Name = "linux"
	NameWindows Name = "windows"
	NameMacOS   Name = "macos"
)

// Name is a platform name as used in environment configuration.
type Name string

// String returns the platform name.
func (n Name) String() string { return string(n) }

// Current returns the platform name of the running host.
func Current() Name {
	return FromGOOS(runtime.GOOS)
}

// FromGOOS converts a runtime.GOOS value into a platform name.
// Unknown values are passed through unchanged so that declarations such as
// "freebsd" still match on that host.
func FromGOOS(goos string) Name {
	switch goos {
	case Darwin:
		return NameMacOS
	case Windows:
		return NameWindows
	case Linux:
		return NameLinux
	default:
		return Name(goos)
	}
}

// Matches reports whether the declared platform list admits the given host.
// An empty list admits every platform. Comparison is case-insensitive and
// accepts "darwin" as an alias of "macos".
func Matches(declared []string, host Name) bool {
	if len(declared) == 0 {
		return true
	}
	for _, d := range declared {
		name := strings.ToLower(strings.TrimSpace(d))
		if name == Darwin {
			name = string(NameMacOS)
		}
		if Name(name) == host {
			return true
		}
	}
	return false
}
