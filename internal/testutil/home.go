// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// SetHomeDir points the platform's home variable (USERPROFILE on Windows,
// HOME elsewhere) at dir and returns a cleanup function restoring it.
// XDG_CONFIG_HOME and XDG_DATA_HOME are cleared so that directory lookups
// derive from the new home.
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	key := "HOME"
	if runtime.GOOS == "windows" {
		key = "USERPROFILE"
	}
	restores := []func(){
		MustSetenv(t, key, dir),
		MustSetenv(t, "XDG_CONFIG_HOME", ""),
		MustSetenv(t, "XDG_DATA_HOME", ""),
	}
	return func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}
}
