// SPDX-License-Identifier: MPL-2.0

// Package script resolves a command or declared script into an ordered
// pipeline and runs it inside an environment.
//
// A script entry whose first word names another script expands to that
// script's entries with the remaining words appended. A leading "- " marks
// an entry whose failure is ignored. Entries are expanded with the context
// formatter one at a time, right before they run.
package script
