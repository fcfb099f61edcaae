// SPDX-License-Identifier: MPL-2.0

// Package compat decides which environment instances can run on this host.
//
// A Checker evaluates the platform and interpreter requirements of resolved
// settings. Partition applies the run policy over a list of candidates: a
// lone incompatible candidate is fatal, while incompatible members of a
// larger set are skipped and reported. Candidates whose environment already
// exists are never checked.
package compat
