// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform compatibility utilities.
//
// It maps Go's runtime.GOOS values onto the platform names that environment
// configurations declare (linux, windows, macos) and guards directory names
// derived from environment names against Windows reserved filenames.
package platform
