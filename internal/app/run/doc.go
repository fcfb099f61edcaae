// SPDX-License-Identifier: MPL-2.0

// Package run resolves which environments a command runs in and drives each
// of them from creation to the end of its command pipeline.
package run
