// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"fmt"
	"strings"
)

// WindowsReservedNames are filenames that cannot be used on Windows.
// These names are reserved by the operating system regardless of file extension.
var WindowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsWindowsReservedName checks if a filename is a Windows reserved name.
// Only the part before the first dot is considered, since Windows treats
// "nul.txt" the same as "NUL".
func IsWindowsReservedName(name string) bool {
	upper := strings.ToUpper(name)
	if idx := strings.Index(upper, "."); idx != -1 {
		upper = upper[:idx]
	}
	return WindowsReservedNames[upper]
}

// CheckDirName validates a directory name derived from an environment name.
// Environment instance names such as "test.py311" become directory names
// under the storage root, so they must be usable on every platform.
func CheckDirName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
		return fmt.Errorf("invalid environment directory name %q", name)
	case strings.ContainsAny(name, `/\:*?"<>|`):
		return fmt.Errorf("environment directory name %q contains a reserved character", name)
	case IsWindowsReservedName(name):
		return fmt.Errorf("environment directory name %q is reserved on Windows", name)
	}
	return nil
}
