// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride and dataDirOverride allow tests to bypass os.UserHomeDir(),
// which doesn't reliably respect HOME on all platforms (e.g., macOS in CI).
var (
	configDirOverride string
	dataDirOverride   string
)

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
	dataDirOverride = ""
}

// SetConfigDirOverride sets a custom config directory path.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// SetDataDirOverride sets a custom default data directory path.
func SetDataDirOverride(dir string) {
	dataDirOverride = dir
}
