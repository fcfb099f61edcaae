// SPDX-License-Identifier: MPL-2.0

// Package issue holds envrun's user-facing failure vocabulary.
//
// ActionableError carries the attempted operation, the resource involved and
// suggestions for the fix. Each error may link an entry of the Markdown
// catalog (missing interpreters, unknown environments, script cycles, ...),
// which verbose runs render through glamour.
package issue
